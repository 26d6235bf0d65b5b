package grid

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/ryanbastic/go-chronos/internal/model"
)

var (
	// ErrNoChanges is returned by Save when there is nothing to persist.
	ErrNoChanges = errors.New("no unsaved changes")
	// ErrSaveInFlight is returned by Save while a previous save is pending.
	ErrSaveInFlight = errors.New("save already in progress")
)

// Saver persists a partial cell update. It may return the updated cell set;
// a nil slice means the caller must refresh on its own.
type Saver interface {
	SaveCells(ctx context.Context, matrixID uuid.UUID, cells []model.Cell) ([]model.Cell, error)
}

// Fetcher reads the authoritative cells of a matrix.
type Fetcher interface {
	ListCells(ctx context.Context, matrixID uuid.UUID) ([]model.Cell, error)
}

// Session owns the grid state of one open matrix: its layout, the overlay of
// fetched cells and local edits, and single-flight saving.
type Session struct {
	mu      sync.Mutex
	layout  Layout
	overlay *Overlay
	saving  bool

	saver         Saver
	fetcher       Fetcher
	onReloadError func(error)
}

// Option configures a Session.
type Option func(*Session)

// WithFetcher lets Save refresh the baseline when the saver returns no cells.
func WithFetcher(f Fetcher) Option {
	return func(s *Session) { s.fetcher = f }
}

// WithReloadErrorHandler receives the error of the refresh that follows a
// save whose saver returned no cells. The save has succeeded by then and the
// merged baseline stays in place, so the error is not returned by Save.
func WithReloadErrorHandler(fn func(error)) Option {
	return func(s *Session) { s.onReloadError = fn }
}

// NewSession starts a session over the fetched cells of a layout.
func NewSession(layout Layout, cells []model.Cell, saver Saver, opts ...Option) *Session {
	s := &Session{
		layout:  layout,
		overlay: NewOverlay(inLayout(layout, cells)),
		saver:   saver,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Layout returns the layout the session's indices refer to.
func (s *Session) Layout() Layout {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.layout
}

// Render returns the color shown at index.
func (s *Session) Render(index int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlay.Render(index)
}

// Rendered returns the color of every cell of the layout, in index order.
func (s *Session) Rendered() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlay.Rendered(s.layout.TotalCells())
}

// Paint toggles a cell with the armed category. It reports whether anything
// changed; painting with no category or outside the layout does nothing.
func (s *Session) Paint(index int, category *model.Category) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.layout.Contains(index) {
		return false
	}
	return s.overlay.Paint(index, category)
}

// PaintAt is Paint addressed by (date row, slot column).
func (s *Session) PaintAt(row, col int, category *model.Category) bool {
	index, ok := s.Layout().Index(row, col)
	if !ok {
		return false
	}
	return s.Paint(index, category)
}

// HasChanges reports whether there are unsaved edits.
func (s *Session) HasChanges() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlay.HasChanges()
}

// Saving reports whether a save is in flight.
func (s *Session) Saving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saving
}

// Edits returns the pending edits ordered by index.
func (s *Session) Edits() []model.Cell {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlay.Edits()
}

// Revision changes whenever the rendered state changes.
func (s *Session) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlay.Revision()
}

// Snapshot returns the rendered colors together with the revision they were
// rendered at.
func (s *Session) Snapshot() (revision uint64, rendered []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlay.Revision(), s.overlay.Rendered(s.layout.TotalCells())
}

// Save sends the pending edits as a partial update. On failure the edits are
// kept untouched so the save can be retried. Edits painted while the save was
// in flight stay pending for the next save. It returns the number of cells sent.
func (s *Session) Save(ctx context.Context) (int, error) {
	s.mu.Lock()
	if s.saving {
		s.mu.Unlock()
		return 0, ErrSaveInFlight
	}
	if !s.overlay.HasChanges() {
		s.mu.Unlock()
		return 0, ErrNoChanges
	}
	payload := s.overlay.Edits()
	cfg := s.layout.Config
	s.saving = true
	s.mu.Unlock()

	saved, err := s.saver.SaveCells(ctx, cfg.MatrixID, payload)

	s.mu.Lock()
	s.saving = false
	if err != nil {
		s.mu.Unlock()
		return 0, fmt.Errorf("save cells: %w", err)
	}
	if s.layout.Config != cfg {
		// Rebound while saving: the sent indices belong to another layout.
		s.mu.Unlock()
		return len(payload), nil
	}
	s.overlay.commit(payload)
	if saved != nil {
		s.overlay.SetBaseline(inLayout(s.layout, saved))
		s.mu.Unlock()
		return len(payload), nil
	}
	s.mu.Unlock()

	if s.fetcher != nil {
		if err := s.Reload(ctx); err != nil && s.onReloadError != nil {
			s.onReloadError(err)
		}
	}
	return len(payload), nil
}

// Reload replaces the baseline with the server's cells, keeping local edits.
func (s *Session) Reload(ctx context.Context) error {
	if s.fetcher == nil {
		return errors.New("session has no fetcher")
	}
	matrixID := s.Layout().Config.MatrixID
	cells, err := s.fetcher.ListCells(ctx, matrixID)
	if err != nil {
		return fmt.Errorf("reload cells: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overlay.SetBaseline(inLayout(s.layout, cells))
	return nil
}

// Rebind points the session at a new config. If the shape changed every
// previously computed index is invalid, so edits and baseline are discarded
// and replaced by cells.
func (s *Session) Rebind(layout Layout, cells []model.Cell) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if layout.Config != s.layout.Config {
		s.overlay.Discard()
	}
	s.layout = layout
	s.overlay.SetBaseline(inLayout(layout, cells))
}

// inLayout drops cells whose index falls outside the layout.
func inLayout(l Layout, cells []model.Cell) []model.Cell {
	out := make([]model.Cell, 0, len(cells))
	for _, c := range cells {
		if l.Contains(c.Index) {
			out = append(out, c)
		}
	}
	return out
}
