package model

import (
	"errors"
	"regexp"
	"strings"
)

// Unfilled is the canonical color of a cell that carries no category.
// It travels as JSON null on the wire.
const Unfilled = ""

var (
	// ErrInvalidColor is returned for strings that are not #rgb or #rrggbb hex colors.
	ErrInvalidColor = errors.New("invalid hex color")
	// ErrReservedColor is returned when a category tries to use the unfilled color.
	ErrReservedColor = errors.New("color is reserved for unfilled cells")
)

var hexColor = regexp.MustCompile(`^#([0-9a-f]{3}|[0-9a-f]{6})$`)

// NormalizeColor maps every known spelling of "unfilled" to Unfilled and
// canonicalizes hex colors to lowercase #rrggbb.
func NormalizeColor(s string) (string, error) {
	c := strings.ToLower(strings.TrimSpace(s))
	switch c {
	case "", "white", "#fff", "#ffffff", "null":
		return Unfilled, nil
	}
	if !hexColor.MatchString(c) {
		return "", ErrInvalidColor
	}
	if len(c) == 4 {
		c = string([]byte{'#', c[1], c[1], c[2], c[2], c[3], c[3]})
	}
	return c, nil
}

// NormalizeColorPtr is NormalizeColor for nullable wire values.
func NormalizeColorPtr(s *string) (string, error) {
	if s == nil {
		return Unfilled, nil
	}
	return NormalizeColor(*s)
}

// ColorPtr converts a canonical color back to its wire form.
func ColorPtr(c string) *string {
	if c == Unfilled {
		return nil
	}
	return &c
}

// CategoryColor validates a color for use by a category.
func CategoryColor(s string) (string, error) {
	c, err := NormalizeColor(s)
	if err != nil {
		return "", err
	}
	if c == Unfilled {
		return "", ErrReservedColor
	}
	return c, nil
}
