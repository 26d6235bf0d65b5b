// Package view is the matrix detail screen without its rendering: it loads a
// matrix, tracks the selected category, and paints, saves, and summarizes the
// grid.
package view

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/ryanbastic/go-chronos/internal/grid"
	"github.com/ryanbastic/go-chronos/internal/model"
	"golang.org/x/sync/errgroup"
)

// ErrUnknownCategory is returned when selecting a category the matrix does
// not have.
var ErrUnknownCategory = errors.New("unknown category")

// Backend is the remote API as seen by the view. *client.Client satisfies it.
type Backend interface {
	grid.Saver
	grid.Fetcher
	MatrixConfig(ctx context.Context, matrixID uuid.UUID) (model.MatrixConfig, error)
	ListCategories(ctx context.Context, matrixID uuid.UUID) ([]model.Category, error)
}

var layouts = grid.NewLayoutCache(32)

// View is one loaded matrix.
type View struct {
	backend Backend
	session *grid.Session
	stats   grid.StatsMemo

	mu         sync.Mutex
	categories []model.Category
	selected   *model.Category
	reloadErr  error
}

// Load fetches the config, cells, and categories of a matrix concurrently.
// If any fetch fails no view is returned.
func Load(ctx context.Context, backend Backend, matrixID uuid.UUID) (*View, error) {
	snap, err := fetch(ctx, backend, matrixID)
	if err != nil {
		return nil, err
	}
	v := &View{backend: backend, categories: snap.categories}
	v.session = grid.NewSession(layouts.Get(snap.config), snap.cells, backend,
		grid.WithFetcher(backend),
		grid.WithReloadErrorHandler(v.setReloadErr),
	)
	return v, nil
}

type snapshot struct {
	config     model.MatrixConfig
	cells      []model.Cell
	categories []model.Category
}

func fetch(ctx context.Context, backend Backend, matrixID uuid.UUID) (snapshot, error) {
	var snap snapshot

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap.config, err = backend.MatrixConfig(ctx, matrixID)
		if err != nil {
			return fmt.Errorf("load matrix config: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		snap.cells, err = backend.ListCells(ctx, matrixID)
		if err != nil {
			return fmt.Errorf("load cells: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		snap.categories, err = backend.ListCategories(ctx, matrixID)
		if err != nil {
			return fmt.Errorf("load categories: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return snapshot{}, err
	}

	if snap.config.MatrixID == uuid.Nil {
		snap.config.MatrixID = matrixID
	}
	return snap, nil
}

// Layout returns the dates and time slots of the matrix.
func (v *View) Layout() grid.Layout { return v.session.Layout() }

// Categories returns the categories of the matrix.
func (v *View) Categories() []model.Category {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.categories)
}

// Select arms the category used by Paint.
func (v *View) Select(categoryID uuid.UUID) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := range v.categories {
		if v.categories[i].ID == categoryID {
			c := v.categories[i]
			v.selected = &c
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownCategory, categoryID)
}

// Deselect disarms painting.
func (v *View) Deselect() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.selected = nil
}

// Selected returns the armed category, or nil.
func (v *View) Selected() *model.Category {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.selected == nil {
		return nil
	}
	c := *v.selected
	return &c
}

// SetCategories replaces the category list after categories were created,
// edited, or deleted. A selection whose category is gone is cleared.
func (v *View) SetCategories(categories []model.Category) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.categories = slices.Clone(categories)
	if v.selected == nil {
		return
	}
	id := v.selected.ID
	v.selected = nil
	for i := range v.categories {
		if v.categories[i].ID == id {
			c := v.categories[i]
			v.selected = &c
		}
	}
}

// Paint toggles the cell at index with the selected category.
func (v *View) Paint(index int) bool {
	return v.session.Paint(index, v.Selected())
}

// PaintAt toggles the cell at (date row, slot column).
func (v *View) PaintAt(row, col int) bool {
	return v.session.PaintAt(row, col, v.Selected())
}

// Render returns the color shown at index.
func (v *View) Render(index int) string { return v.session.Render(index) }

// Rendered returns the shown color of every cell in index order.
func (v *View) Rendered() []string { return v.session.Rendered() }

// HasChanges reports whether there are unsaved edits.
func (v *View) HasChanges() bool { return v.session.HasChanges() }

// Saving reports whether a save is in flight.
func (v *View) Saving() bool { return v.session.Saving() }

// Save persists pending edits and returns the number of cells sent. Saving a
// clean view, or saving while another save is in flight, does nothing.
func (v *View) Save(ctx context.Context) (int, error) {
	prev := v.ReloadErr()
	v.setReloadErr(nil)
	n, err := v.session.Save(ctx)
	if err != nil && v.ReloadErr() == nil {
		v.setReloadErr(prev)
	}
	if errors.Is(err, grid.ErrNoChanges) || errors.Is(err, grid.ErrSaveInFlight) {
		return 0, nil
	}
	return n, err
}

// Stats summarizes the rendered grid.
func (v *View) Stats() grid.Stats {
	return v.stats.Get(v.session, v.Categories())
}

func (v *View) setReloadErr(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.reloadErr = err
}

// ReloadErr returns the failure of the refetch that followed the last save,
// or nil. Saved edits are kept either way; a failed refetch only means other
// changes on the server may not be shown until the next Refresh.
func (v *View) ReloadErr() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.reloadErr
}

// Refresh refetches the matrix. Local edits survive unless the grid shape
// changed.
func (v *View) Refresh(ctx context.Context) error {
	snap, err := fetch(ctx, v.backend, v.Layout().Config.MatrixID)
	if err != nil {
		return err
	}
	v.session.Rebind(layouts.Get(snap.config), snap.cells)
	v.SetCategories(snap.categories)
	v.setReloadErr(nil)
	return nil
}
