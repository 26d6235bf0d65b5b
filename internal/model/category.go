package model

import (
	"time"

	"github.com/google/uuid"
)

// Category is a named, colored label scoped to one matrix.
type Category struct {
	ID        uuid.UUID `json:"id"`
	MatrixID  uuid.UUID `json:"matrixId"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"createdAt"`
}
