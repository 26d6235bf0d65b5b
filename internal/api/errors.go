package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/ryanbastic/go-chronos/internal/model"
	"github.com/ryanbastic/go-chronos/internal/storage"
)

// problem mirrors huma's error model for responses written outside huma.
type problem struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("failed to encode JSON response", "error", err)
	}
}

func writeProblem(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Title: http.StatusText(status), Status: status, Detail: detail}); err != nil {
		slog.Default().Error("failed to encode problem response", "error", err)
	}
}

// storeError maps storage failures to HTTP errors, logging anything unexpected.
func storeError(logger *slog.Logger, msg string, err error, attrs ...any) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return huma.Error404NotFound("not found")
	case errors.Is(err, storage.ErrConflict):
		return huma.Error409Conflict("conflicts with an existing resource")
	case errors.Is(err, storage.ErrInvalidCursor):
		return huma.Error400BadRequest("invalid cursor")
	}
	logger.Error(msg, append(attrs, "error", err)...)
	return huma.Error500InternalServerError(msg)
}

// requireSession returns the caller's session or a 401.
func requireSession(ctx context.Context) (*Session, error) {
	s, ok := sessionFrom(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("authentication required")
	}
	return s, nil
}

// validationError turns field errors into a 422 with one detail per field.
func validationError(err error) error {
	var ve *model.ValidationError
	if !errors.As(err, &ve) {
		return huma.Error422UnprocessableEntity(err.Error())
	}
	details := make([]error, 0, len(ve.Fields))
	for _, field := range ve.FieldNames() {
		details = append(details, &huma.ErrorDetail{
			Location: "body." + field,
			Message:  ve.Fields[field],
		})
	}
	return huma.Error422UnprocessableEntity("validation failed", details...)
}
