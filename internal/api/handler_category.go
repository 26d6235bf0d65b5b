package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/ryanbastic/go-chronos/internal/model"
	"github.com/ryanbastic/go-chronos/internal/storage"
)

// --- Huma Input/Output types ---

type CategoryBody struct {
	Name  string `json:"name" doc:"Display name" maxLength:"100"`
	Color string `json:"color" doc:"Hex color, unique within the matrix" example:"#4f46e5"`
}

type CreateCategoryInput struct {
	MatrixID string `path:"matrixId" doc:"Matrix UUID" format:"uuid"`
	Body     CategoryBody
}

type UpdateCategoryInput struct {
	MatrixID   string `path:"matrixId" doc:"Matrix UUID" format:"uuid"`
	CategoryID string `path:"categoryId" doc:"Category UUID" format:"uuid"`
	Body       CategoryBody
}

type CategoryPathInput struct {
	MatrixID   string `path:"matrixId" doc:"Matrix UUID" format:"uuid"`
	CategoryID string `path:"categoryId" doc:"Category UUID" format:"uuid"`
}

type CategoryDataBody struct {
	Data *model.Category `json:"data"`
}

type CategoryOutput struct {
	Body CategoryDataBody
}

type CategoriesBody struct {
	Data []model.Category `json:"data"`
}

type CategoriesOutput struct {
	Body CategoriesBody
}

// --- Handler ---

type CategoryHandler struct {
	store  storage.Store
	logger *slog.Logger
}

func NewCategoryHandler(store storage.Store, logger *slog.Logger) *CategoryHandler {
	return &CategoryHandler{store: store, logger: logger}
}

func registerCategoryRoutes(api huma.API, h *CategoryHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "list-categories",
		Method:      http.MethodGet,
		Path:        "/api/categories/{matrixId}",
		Summary:     "List the categories of a matrix",
		Tags:        []string{"categories"},
	}, h.ListCategories)

	huma.Register(api, huma.Operation{
		OperationID:   "create-category",
		Method:        http.MethodPost,
		Path:          "/api/categories/{matrixId}",
		Summary:       "Create a category",
		Tags:          []string{"categories"},
		DefaultStatus: http.StatusCreated,
	}, h.CreateCategory)

	huma.Register(api, huma.Operation{
		OperationID: "update-category",
		Method:      http.MethodPut,
		Path:        "/api/categories/{matrixId}/{categoryId}",
		Summary:     "Rename or recolor a category",
		Tags:        []string{"categories"},
	}, h.UpdateCategory)

	huma.Register(api, huma.Operation{
		OperationID:   "delete-category",
		Method:        http.MethodDelete,
		Path:          "/api/categories/{matrixId}/{categoryId}",
		Summary:       "Delete a category",
		Tags:          []string{"categories"},
		DefaultStatus: http.StatusNoContent,
	}, h.DeleteCategory)
}

func (h *CategoryHandler) ListCategories(ctx context.Context, input *CellsPathInput) (*CategoriesOutput, error) {
	m, err := ownedMatrix(ctx, h.store, h.logger, input.MatrixID)
	if err != nil {
		return nil, err
	}
	categories, err := h.store.ListCategories(ctx, m.ID)
	if err != nil {
		return nil, storeError(h.logger, "failed to list categories", err, "matrix_id", m.ID)
	}
	return &CategoriesOutput{Body: CategoriesBody{Data: categories}}, nil
}

func (h *CategoryHandler) CreateCategory(ctx context.Context, input *CreateCategoryInput) (*CategoryOutput, error) {
	m, err := ownedMatrix(ctx, h.store, h.logger, input.MatrixID)
	if err != nil {
		return nil, err
	}
	name, color, err := validateCategory(input.Body)
	if err != nil {
		return nil, err
	}

	c, err := h.store.CreateCategory(ctx, m.ID, name, color)
	if err != nil {
		return nil, categoryStoreError(h.logger, "failed to create category", err, m.ID)
	}
	h.logger.Info("category created", "matrix_id", m.ID, "category_id", c.ID)
	return &CategoryOutput{Body: CategoryDataBody{Data: c}}, nil
}

func (h *CategoryHandler) UpdateCategory(ctx context.Context, input *UpdateCategoryInput) (*CategoryOutput, error) {
	m, err := ownedMatrix(ctx, h.store, h.logger, input.MatrixID)
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(input.CategoryID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid category id")
	}
	name, color, err := validateCategory(input.Body)
	if err != nil {
		return nil, err
	}

	c, err := h.store.UpdateCategory(ctx, m.ID, id, name, color)
	if err != nil {
		return nil, categoryStoreError(h.logger, "failed to update category", err, m.ID)
	}
	return &CategoryOutput{Body: CategoryDataBody{Data: c}}, nil
}

func (h *CategoryHandler) DeleteCategory(ctx context.Context, input *CategoryPathInput) (*struct{}, error) {
	m, err := ownedMatrix(ctx, h.store, h.logger, input.MatrixID)
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(input.CategoryID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid category id")
	}
	if err := h.store.DeleteCategory(ctx, m.ID, id); err != nil {
		return nil, storeError(h.logger, "failed to delete category", err, "matrix_id", m.ID, "category_id", id)
	}
	h.logger.Info("category deleted", "matrix_id", m.ID, "category_id", id)
	return nil, nil
}

func validateCategory(body CategoryBody) (string, string, error) {
	var details []error
	name := strings.TrimSpace(body.Name)
	if name == "" {
		details = append(details, &huma.ErrorDetail{Location: "body.name", Message: "must not be empty", Value: body.Name})
	}
	color, err := model.CategoryColor(body.Color)
	if err != nil {
		details = append(details, &huma.ErrorDetail{Location: "body.color", Message: err.Error(), Value: body.Color})
	}
	if len(details) > 0 {
		return "", "", huma.Error422UnprocessableEntity("validation failed", details...)
	}
	return name, color, nil
}

func categoryStoreError(logger *slog.Logger, msg string, err error, matrixID uuid.UUID) error {
	if errors.Is(err, storage.ErrConflict) {
		return huma.Error409Conflict("another category of this matrix already uses this color")
	}
	return storeError(logger, msg, err, "matrix_id", matrixID)
}
