package model

// Cell is one persisted grid cell. ColorHex is nil for an unfilled cell.
type Cell struct {
	Index    int     `json:"index"`
	ColorHex *string `json:"colorHex"`
}

// Color returns the normalized color of the cell. Malformed colors read as unfilled.
func (c Cell) Color() string {
	color, err := NormalizeColorPtr(c.ColorHex)
	if err != nil {
		return Unfilled
	}
	return color
}

// NewCell builds a cell from a canonical color.
func NewCell(index int, color string) Cell {
	return Cell{Index: index, ColorHex: ColorPtr(color)}
}
