package model

import (
	"errors"
	"testing"
)

func TestNormalizeColor(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", Unfilled},
		{"white", Unfilled},
		{"#FFFFFF", Unfilled},
		{"#fff", Unfilled},
		{"  #FF0000 ", "#ff0000"},
		{"#0a0", "#00aa00"},
		{"#12ab9C", "#12ab9c"},
	}
	for _, tt := range tests {
		got, err := NormalizeColor(tt.in)
		if err != nil {
			t.Errorf("NormalizeColor(%q): unexpected error %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeColor(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeColor_Invalid(t *testing.T) {
	for _, in := range []string{"red", "#12", "#1234567", "ff0000", "#gg0000"} {
		if _, err := NormalizeColor(in); !errors.Is(err, ErrInvalidColor) {
			t.Errorf("NormalizeColor(%q): got %v, want ErrInvalidColor", in, err)
		}
	}
}

func TestNormalizeColorPtr_Nil(t *testing.T) {
	got, err := NormalizeColorPtr(nil)
	if err != nil || got != Unfilled {
		t.Errorf("NormalizeColorPtr(nil) = %q, %v", got, err)
	}
}

func TestCategoryColor_RejectsWhite(t *testing.T) {
	if _, err := CategoryColor("#FFF"); !errors.Is(err, ErrReservedColor) {
		t.Errorf("got %v, want ErrReservedColor", err)
	}
	got, err := CategoryColor("#ABCDEF")
	if err != nil {
		t.Fatalf("CategoryColor: %v", err)
	}
	if got != "#abcdef" {
		t.Errorf("got %q, want #abcdef", got)
	}
}

func TestCell_ColorRoundTrip(t *testing.T) {
	c := NewCell(3, "#ff0000")
	if c.ColorHex == nil || *c.ColorHex != "#ff0000" {
		t.Fatalf("ColorHex = %v", c.ColorHex)
	}
	if c.Color() != "#ff0000" {
		t.Errorf("Color() = %q", c.Color())
	}

	empty := NewCell(4, Unfilled)
	if empty.ColorHex != nil {
		t.Errorf("unfilled cell should serialize as null, got %q", *empty.ColorHex)
	}

	bogus := "nonsense"
	if (Cell{Index: 1, ColorHex: &bogus}).Color() != Unfilled {
		t.Error("malformed color should read as unfilled")
	}
}
