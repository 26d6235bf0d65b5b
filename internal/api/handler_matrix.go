package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/ryanbastic/go-chronos/internal/metrics"
	"github.com/ryanbastic/go-chronos/internal/model"
	"github.com/ryanbastic/go-chronos/internal/storage"
)

// --- Huma Input/Output types ---

type CreateMatrixBody struct {
	Name      string `json:"name" doc:"Display name" maxLength:"100"`
	StartDate string `json:"startDate" doc:"First date, inclusive" example:"2024-01-01"`
	EndDate   string `json:"endDate" doc:"Last date, inclusive" example:"2024-01-07"`
	StartTime string `json:"startTime" doc:"Start of the first slot" example:"09:00"`
	EndTime   string `json:"endTime" doc:"End of the day's slots" example:"17:00"`
	Interval  int    `json:"interval" doc:"Slot width in minutes" example:"30"`
}

type CreateMatrixInput struct {
	Body CreateMatrixBody
}

type MatrixBody struct {
	Data *model.Matrix `json:"data"`
}

type MatrixOutput struct {
	Body MatrixBody
}

type ListMatricesInput struct {
	Cursor string `query:"cursor" doc:"Opaque cursor from a previous page"`
	Limit  int    `query:"limit" doc:"Maximum number of matrices to return" minimum:"0" maximum:"100"`
}

type MatrixPageBody struct {
	Data *storage.MatrixPage `json:"data"`
}

type ListMatricesOutput struct {
	Body MatrixPageBody
}

type MatrixPathInput struct {
	ID string `path:"id" doc:"Matrix UUID" format:"uuid"`
}

type MatrixConfigBody struct {
	Data model.MatrixConfig `json:"data"`
}

type MatrixConfigOutput struct {
	Body MatrixConfigBody
}

// --- Handler ---

type MatrixHandler struct {
	matrices storage.MatrixStore
	logger   *slog.Logger
}

func NewMatrixHandler(matrices storage.MatrixStore, logger *slog.Logger) *MatrixHandler {
	return &MatrixHandler{matrices: matrices, logger: logger}
}

func registerMatrixRoutes(api huma.API, h *MatrixHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "list-matrices",
		Method:      http.MethodGet,
		Path:        "/api/matrix",
		Summary:     "List matrices, newest first",
		Tags:        []string{"matrices"},
	}, h.ListMatrices)

	huma.Register(api, huma.Operation{
		OperationID:   "create-matrix",
		Method:        http.MethodPost,
		Path:          "/api/matrix",
		Summary:       "Create a matrix",
		Tags:          []string{"matrices"},
		DefaultStatus: http.StatusCreated,
	}, h.CreateMatrix)

	huma.Register(api, huma.Operation{
		OperationID: "get-matrix",
		Method:      http.MethodGet,
		Path:        "/api/matrix/{id}",
		Summary:     "Get a matrix",
		Tags:        []string{"matrices"},
	}, h.GetMatrix)

	huma.Register(api, huma.Operation{
		OperationID:   "delete-matrix",
		Method:        http.MethodDelete,
		Path:          "/api/matrix/{id}",
		Summary:       "Delete a matrix with its categories and cells",
		Tags:          []string{"matrices"},
		DefaultStatus: http.StatusNoContent,
	}, h.DeleteMatrix)

	huma.Register(api, huma.Operation{
		OperationID: "get-matrix-data",
		Method:      http.MethodGet,
		Path:        "/api/matrix-data/{id}",
		Summary:     "Get the grid configuration of a matrix",
		Tags:        []string{"matrices"},
	}, h.GetMatrixData)
}

func (h *MatrixHandler) ListMatrices(ctx context.Context, input *ListMatricesInput) (*ListMatricesOutput, error) {
	session, err := requireSession(ctx)
	if err != nil {
		return nil, err
	}
	page, err := h.matrices.ListMatrices(ctx, session.UserID, input.Cursor, input.Limit)
	if err != nil {
		return nil, storeError(h.logger, "failed to list matrices", err, "user_id", session.UserID)
	}
	return &ListMatricesOutput{Body: MatrixPageBody{Data: page}}, nil
}

func (h *MatrixHandler) CreateMatrix(ctx context.Context, input *CreateMatrixInput) (*MatrixOutput, error) {
	session, err := requireSession(ctx)
	if err != nil {
		return nil, err
	}

	req := model.NewMatrix{
		Name:      input.Body.Name,
		StartDate: input.Body.StartDate,
		EndDate:   input.Body.EndDate,
		StartTime: input.Body.StartTime,
		EndTime:   input.Body.EndTime,
		Interval:  input.Body.Interval,
	}.Normalized()
	if err := req.Validate(); err != nil {
		return nil, validationError(err)
	}

	m, err := h.matrices.CreateMatrix(ctx, session.UserID, req)
	if err != nil {
		return nil, storeError(h.logger, "failed to create matrix", err, "user_id", session.UserID)
	}

	metrics.MatrixCreated()
	h.logger.Info("matrix created", "matrix_id", m.ID, "user_id", session.UserID)
	return &MatrixOutput{Body: MatrixBody{Data: m}}, nil
}

func (h *MatrixHandler) GetMatrix(ctx context.Context, input *MatrixPathInput) (*MatrixOutput, error) {
	m, err := ownedMatrix(ctx, h.matrices, h.logger, input.ID)
	if err != nil {
		return nil, err
	}
	return &MatrixOutput{Body: MatrixBody{Data: m}}, nil
}

func (h *MatrixHandler) GetMatrixData(ctx context.Context, input *MatrixPathInput) (*MatrixConfigOutput, error) {
	m, err := ownedMatrix(ctx, h.matrices, h.logger, input.ID)
	if err != nil {
		return nil, err
	}
	return &MatrixConfigOutput{Body: MatrixConfigBody{Data: m.Config}}, nil
}

func (h *MatrixHandler) DeleteMatrix(ctx context.Context, input *MatrixPathInput) (*struct{}, error) {
	session, err := requireSession(ctx)
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid matrix id")
	}
	if err := h.matrices.DeleteMatrix(ctx, session.UserID, id); err != nil {
		return nil, storeError(h.logger, "failed to delete matrix", err, "matrix_id", id)
	}

	h.logger.Info("matrix deleted", "matrix_id", id, "user_id", session.UserID)
	return nil, nil
}

// ownedMatrix loads a matrix owned by the caller. Matrices of other users
// are reported as not found.
func ownedMatrix(ctx context.Context, matrices storage.MatrixStore, logger *slog.Logger, rawID string) (*model.Matrix, error) {
	session, err := requireSession(ctx)
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid matrix id")
	}
	m, err := matrices.GetMatrix(ctx, session.UserID, id)
	if err != nil {
		return nil, storeError(logger, "failed to load matrix", err, "matrix_id", id)
	}
	return m, nil
}
