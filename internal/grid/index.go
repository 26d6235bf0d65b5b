package grid

// ToIndex flattens a (row, column) coordinate. numColumns must be the slot
// count of the layout the coordinate came from.
func ToIndex(row, col, numColumns int) int {
	return row*numColumns + col
}

// FromIndex is the inverse of ToIndex. It returns (-1, -1) when numColumns is
// not positive.
func FromIndex(index, numColumns int) (row, col int) {
	if numColumns <= 0 {
		return -1, -1
	}
	return index / numColumns, index % numColumns
}
