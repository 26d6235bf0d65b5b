package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/ryanbastic/go-chronos/internal/grid"
	"github.com/ryanbastic/go-chronos/internal/metrics"
	"github.com/ryanbastic/go-chronos/internal/model"
	"github.com/ryanbastic/go-chronos/internal/storage"
)

// --- Huma Input/Output types ---

type CellsPathInput struct {
	MatrixID string `path:"matrixId" doc:"Matrix UUID" format:"uuid"`
}

type CellBody struct {
	Index    int     `json:"index" doc:"Row-major cell index" minimum:"0"`
	ColorHex *string `json:"colorHex,omitempty" doc:"Hex color, or null to clear the cell" nullable:"true"`
}

type SaveCellsBody struct {
	Cells []CellBody `json:"cells" doc:"Changed cells; cells not listed keep their stored color"`
}

type SaveCellsInput struct {
	MatrixID string `path:"matrixId" doc:"Matrix UUID" format:"uuid"`
	Body     SaveCellsBody
}

type CellsBody struct {
	Data []model.Cell `json:"data"`
}

type CellsOutput struct {
	Body CellsBody
}

// --- Handler ---

type CellHandler struct {
	store  storage.Store
	logger *slog.Logger
}

func NewCellHandler(store storage.Store, logger *slog.Logger) *CellHandler {
	return &CellHandler{store: store, logger: logger}
}

func registerCellRoutes(api huma.API, h *CellHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "list-cells",
		Method:      http.MethodGet,
		Path:        "/api/cell/{matrixId}",
		Summary:     "List the painted cells of a matrix",
		Tags:        []string{"cells"},
	}, h.ListCells)

	huma.Register(api, huma.Operation{
		OperationID: "save-cells",
		Method:      http.MethodPut,
		Path:        "/api/cell/{matrixId}",
		Summary:     "Save changed cells",
		Description: "Applies a partial update and returns the full resulting cell set.",
		Tags:        []string{"cells"},
	}, h.SaveCells)
}

func (h *CellHandler) ListCells(ctx context.Context, input *CellsPathInput) (*CellsOutput, error) {
	m, err := ownedMatrix(ctx, h.store, h.logger, input.MatrixID)
	if err != nil {
		return nil, err
	}
	cells, err := h.store.ListCells(ctx, m.ID)
	if err != nil {
		return nil, storeError(h.logger, "failed to list cells", err, "matrix_id", m.ID)
	}
	return &CellsOutput{Body: CellsBody{Data: cells}}, nil
}

func (h *CellHandler) SaveCells(ctx context.Context, input *SaveCellsInput) (*CellsOutput, error) {
	m, err := ownedMatrix(ctx, h.store, h.logger, input.MatrixID)
	if err != nil {
		return nil, err
	}

	cells, painted, err := normalizeCells(input.Body.Cells, grid.TotalCells(m.Config))
	if err != nil {
		return nil, err
	}
	if len(cells) == 0 {
		return nil, huma.Error422UnprocessableEntity("no cells to save")
	}

	saved, err := h.store.ApplyCells(ctx, m.ID, cells)
	if err != nil {
		return nil, storeError(h.logger, "failed to save cells", err, "matrix_id", m.ID)
	}

	metrics.ObserveSave(painted, len(cells)-painted)
	h.logger.Info("cells saved", "matrix_id", m.ID, "painted", painted, "cleared", len(cells)-painted)
	return &CellsOutput{Body: CellsBody{Data: saved}}, nil
}

// normalizeCells checks each cell against the grid bounds and canonicalizes
// its color. It reports every invalid cell and the number of painted ones.
func normalizeCells(in []CellBody, total int) ([]model.Cell, int, error) {
	var (
		details []error
		out     = make([]model.Cell, 0, len(in))
		seen    = make(map[int]bool, len(in))
		painted int
	)
	for i, c := range in {
		switch {
		case c.Index < 0 || c.Index >= total:
			details = append(details, &huma.ErrorDetail{
				Location: fmt.Sprintf("body.cells[%d].index", i),
				Message:  fmt.Sprintf("must be between 0 and %d", total-1),
				Value:    c.Index,
			})
			continue
		case seen[c.Index]:
			details = append(details, &huma.ErrorDetail{
				Location: fmt.Sprintf("body.cells[%d].index", i),
				Message:  "duplicate cell index",
				Value:    c.Index,
			})
			continue
		}
		seen[c.Index] = true

		color, err := model.NormalizeColorPtr(c.ColorHex)
		if err != nil {
			details = append(details, &huma.ErrorDetail{
				Location: fmt.Sprintf("body.cells[%d].colorHex", i),
				Message:  err.Error(),
				Value:    *c.ColorHex,
			})
			continue
		}
		if color != model.Unfilled {
			painted++
		}
		out = append(out, model.NewCell(c.Index, color))
	}
	if len(details) > 0 {
		return nil, 0, huma.Error422UnprocessableEntity("invalid cells", details...)
	}
	return out, painted, nil
}
