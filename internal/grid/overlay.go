package grid

import (
	"maps"
	"slices"

	"github.com/ryanbastic/go-chronos/internal/model"
)

// Overlay merges server-confirmed cells with unsaved local edits. It is not
// safe for concurrent use; Session adds locking.
type Overlay struct {
	baseline map[int]string
	edits    map[int]string
	dirty    bool
	revision uint64
}

// NewOverlay builds an overlay over the fetched cells.
func NewOverlay(cells []model.Cell) *Overlay {
	o := &Overlay{edits: make(map[int]string)}
	o.SetBaseline(cells)
	return o
}

// SetBaseline replaces the server-confirmed cells. Unfilled cells are dropped
// so the baseline only holds colors.
func (o *Overlay) SetBaseline(cells []model.Cell) {
	o.baseline = make(map[int]string, len(cells))
	for _, c := range cells {
		if color := c.Color(); color != model.Unfilled {
			o.baseline[c.Index] = color
		}
	}
	o.revision++
}

// Render returns the color to show for index: a local edit first, then the
// fetched color, then Unfilled.
func (o *Overlay) Render(index int) string {
	if color, ok := o.edits[index]; ok {
		return color
	}
	return o.baseline[index]
}

// Paint toggles index with the category color. A nil category means nothing
// is armed and the call is a no-op. Painting a cell already showing the
// category color returns it to its fetched color, or clears it when the
// fetched color is the category color itself.
func (o *Overlay) Paint(index int, category *model.Category) bool {
	if category == nil || index < 0 {
		return false
	}
	color, err := model.CategoryColor(category.Color)
	if err != nil {
		return false
	}
	next := color
	if o.Render(index) == color {
		next = o.baseline[index]
		if next == color {
			next = model.Unfilled
		}
	}
	if next == o.baseline[index] {
		delete(o.edits, index)
	} else {
		o.edits[index] = next
	}
	o.dirty = len(o.edits) > 0
	o.revision++
	return true
}

// HasChanges reports whether there are edits not yet confirmed by a save.
func (o *Overlay) HasChanges() bool { return o.dirty }

// Revision increases on every change to the rendered state.
func (o *Overlay) Revision() uint64 { return o.revision }

// Edits returns the pending edits ordered by index, in wire form.
func (o *Overlay) Edits() []model.Cell {
	keys := slices.Sorted(maps.Keys(o.edits))
	cells := make([]model.Cell, len(keys))
	for i, idx := range keys {
		cells[i] = model.NewCell(idx, o.edits[idx])
	}
	return cells
}

// EditCount is the number of pending edits.
func (o *Overlay) EditCount() int { return len(o.edits) }

// commit folds the sent edits into the baseline. Edits left untouched since
// they were sent are dropped; a cell reverted in the meantime gets an edit
// restoring its pre-save color.
func (o *Overlay) commit(sent []model.Cell) {
	for _, c := range sent {
		color := c.Color()
		prev := o.baseline[c.Index]
		if color == model.Unfilled {
			delete(o.baseline, c.Index)
		} else {
			o.baseline[c.Index] = color
		}
		cur, ok := o.edits[c.Index]
		switch {
		case !ok && prev != color:
			o.edits[c.Index] = prev
		case ok && cur == color:
			delete(o.edits, c.Index)
		}
	}
	o.dirty = len(o.edits) > 0
	o.revision++
}

// Discard drops all edits and the baseline. Used when the layout changes and
// every index becomes meaningless.
func (o *Overlay) Discard() {
	clear(o.edits)
	clear(o.baseline)
	o.dirty = false
	o.revision++
}

// Rendered materializes the color of every index in [0, total).
func (o *Overlay) Rendered(total int) []string {
	out := make([]string, max(total, 0))
	for i := range out {
		out[i] = o.Render(i)
	}
	return out
}
