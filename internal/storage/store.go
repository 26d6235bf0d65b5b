package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/ryanbastic/go-chronos/internal/model"
)

var (
	// ErrNotFound is returned when a lookup finds no matching row, including
	// rows that exist but belong to another owner.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("conflict")
	// ErrInvalidCursor is returned for a list cursor that cannot be decoded.
	ErrInvalidCursor = errors.New("invalid cursor")
)

// UserStore persists accounts created through identity-provider sign-in.
type UserStore interface {
	// UpsertUser returns the user for the identity-provider subject, creating
	// it on first sign-in. Existing users keep their edited name and avatar.
	UpsertUser(ctx context.Context, identity model.Identity) (*model.User, error)

	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)

	// UpdateProfile applies the non-nil fields of update.
	UpdateProfile(ctx context.Context, id uuid.UUID, update model.ProfileUpdate) (*model.User, error)
}

// MatrixStore persists matrices. Every method is scoped to an owner.
type MatrixStore interface {
	CreateMatrix(ctx context.Context, ownerID uuid.UUID, req model.NewMatrix) (*model.Matrix, error)
	GetMatrix(ctx context.Context, ownerID, id uuid.UUID) (*model.Matrix, error)

	// ListMatrices returns the owner's matrices, newest first.
	ListMatrices(ctx context.Context, ownerID uuid.UUID, cursor string, limit int) (*MatrixPage, error)

	// DeleteMatrix removes a matrix together with its categories and cells.
	DeleteMatrix(ctx context.Context, ownerID, id uuid.UUID) error
}

// CategoryStore persists the categories of a matrix. Colors are unique per
// matrix; a duplicate yields ErrConflict.
type CategoryStore interface {
	ListCategories(ctx context.Context, matrixID uuid.UUID) ([]model.Category, error)
	CreateCategory(ctx context.Context, matrixID uuid.UUID, name, color string) (*model.Category, error)
	UpdateCategory(ctx context.Context, matrixID, id uuid.UUID, name, color string) (*model.Category, error)
	DeleteCategory(ctx context.Context, matrixID, id uuid.UUID) error
}

// CellStore persists painted cells. Unfilled cells are never stored.
type CellStore interface {
	// ListCells returns the stored cells ordered by index.
	ListCells(ctx context.Context, matrixID uuid.UUID) ([]model.Cell, error)

	// ApplyCells upserts colored cells and deletes unfilled ones in one
	// transaction, then returns the full resulting cell set.
	ApplyCells(ctx context.Context, matrixID uuid.UUID, cells []model.Cell) ([]model.Cell, error)
}

// Store is everything the API needs from persistence.
type Store interface {
	UserStore
	MatrixStore
	CategoryStore
	CellStore

	Ping(ctx context.Context) error
}

// MatrixPage is one page of a matrix listing.
type MatrixPage struct {
	Matrices   []model.Matrix `json:"matrices"`
	NextCursor string         `json:"nextCursor,omitempty"`
	HasMore    bool           `json:"hasMore"`
}
