package view

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/ryanbastic/go-chronos/internal/model"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu         sync.Mutex
	config     model.MatrixConfig
	cells      []model.Cell
	categories []model.Category

	configErr, cellsErr, categoriesErr, saveErr error

	saved [][]model.Cell
}

func (f *fakeBackend) MatrixConfig(context.Context, uuid.UUID) (model.MatrixConfig, error) {
	return f.config, f.configErr
}

func (f *fakeBackend) ListCells(context.Context, uuid.UUID) ([]model.Cell, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Cell{}, f.cells...), f.cellsErr
}

func (f *fakeBackend) ListCategories(context.Context, uuid.UUID) ([]model.Category, error) {
	return f.categories, f.categoriesErr
}

// SaveCells applies the update and returns no body, making the session refetch.
func (f *fakeBackend) SaveCells(_ context.Context, _ uuid.UUID, cells []model.Cell) ([]model.Cell, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	f.saved = append(f.saved, cells)
	stored := map[int]string{}
	for _, c := range f.cells {
		stored[c.Index] = c.Color()
	}
	for _, c := range cells {
		if c.Color() == model.Unfilled {
			delete(stored, c.Index)
		} else {
			stored[c.Index] = c.Color()
		}
	}
	f.cells = f.cells[:0]
	for i := range 64 {
		if color, ok := stored[i]; ok {
			f.cells = append(f.cells, model.NewCell(i, color))
		}
	}
	return nil, nil
}

var (
	work  = model.Category{ID: uuid.MustParse("00000000-0000-0000-0000-00000000000a"), Name: "Work", Color: "#ff0000"}
	sleep = model.Category{ID: uuid.MustParse("00000000-0000-0000-0000-00000000000b"), Name: "Sleep", Color: "#0000ff"}
)

func newBackend() *fakeBackend {
	return &fakeBackend{
		config: model.MatrixConfig{
			MatrixID:  uuid.MustParse("00000000-0000-0000-0000-000000000001"),
			StartDate: "2024-01-01",
			EndDate:   "2024-01-02",
			StartTime: "09:00",
			EndTime:   "11:00",
			Interval:  60,
		},
		categories: []model.Category{work, sleep},
	}
}

func load(t *testing.T, b *fakeBackend) *View {
	t.Helper()
	v, err := Load(context.Background(), b, b.config.MatrixID)
	require.NoError(t, err)
	return v
}

func TestLoad(t *testing.T) {
	b := newBackend()
	b.cells = []model.Cell{model.NewCell(3, "#0000FF")}
	v := load(t, b)

	require.Equal(t, []string{"09:00", "10:00"}, v.Layout().TimeSlots)
	require.Len(t, v.Layout().Dates, 2)
	require.Equal(t, "#0000ff", v.Render(3))
	require.Equal(t, []model.Category{work, sleep}, v.Categories())
	require.False(t, v.HasChanges())
	require.Nil(t, v.Selected())
}

func TestLoad_AnyFailureYieldsNoView(t *testing.T) {
	boom := errors.New("boom")
	for name, set := range map[string]func(b *fakeBackend){
		"config":     func(b *fakeBackend) { b.configErr = boom },
		"cells":      func(b *fakeBackend) { b.cellsErr = boom },
		"categories": func(b *fakeBackend) { b.categoriesErr = boom },
	} {
		t.Run(name, func(t *testing.T) {
			b := newBackend()
			set(b)
			v, err := Load(context.Background(), b, b.config.MatrixID)
			require.ErrorIs(t, err, boom)
			require.Nil(t, v)
		})
	}
}

func TestPaint_RequiresSelection(t *testing.T) {
	v := load(t, newBackend())

	require.False(t, v.Paint(0))
	require.ErrorIs(t, v.Select(uuid.New()), ErrUnknownCategory)
	require.False(t, v.Paint(0))
	require.False(t, v.HasChanges())
}

func TestScenario_PaintStatsSave(t *testing.T) {
	b := newBackend()
	v := load(t, b)

	require.NoError(t, v.Select(work.ID))
	require.True(t, v.Paint(0))
	require.Equal(t, "#ff0000", v.Render(0))
	require.True(t, v.HasChanges())

	stats := v.Stats()
	require.Equal(t, 1, stats.FilledCount)
	require.Equal(t, 4, stats.TotalCells)
	require.Equal(t, 3, stats.RemainingCount)
	require.Equal(t, 25, stats.Percentage)
	require.NotNil(t, stats.Top)
	require.Equal(t, "Work", stats.Top.Name)

	n, err := v.Save(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.False(t, v.HasChanges())
	require.Equal(t, "#ff0000", v.Render(0))

	want := [][]model.Cell{{model.NewCell(0, "#ff0000")}}
	if diff := cmp.Diff(want, b.saved); diff != "" {
		t.Errorf("saved payloads mismatch (-want +got):\n%s", diff)
	}
}

func TestSave_CleanIsNoop(t *testing.T) {
	b := newBackend()
	v := load(t, b)

	n, err := v.Save(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)
	require.Empty(t, b.saved)
}

func TestSave_FailurePreservesEdits(t *testing.T) {
	b := newBackend()
	b.saveErr = errors.New("network down")
	v := load(t, b)
	require.NoError(t, v.Select(sleep.ID))
	v.PaintAt(1, 1)

	_, err := v.Save(context.Background())
	require.ErrorIs(t, err, b.saveErr)
	require.True(t, v.HasChanges())
	require.Equal(t, "#0000ff", v.Render(3))
}

func TestSetCategories_DropsDeletedSelection(t *testing.T) {
	v := load(t, newBackend())
	require.NoError(t, v.Select(work.ID))

	renamed := work
	renamed.Name = "Deep work"
	v.SetCategories([]model.Category{renamed, sleep})
	require.Equal(t, "Deep work", v.Selected().Name)

	v.SetCategories([]model.Category{sleep})
	require.Nil(t, v.Selected())
}

func TestStats_FollowCategoryChanges(t *testing.T) {
	b := newBackend()
	b.cells = []model.Cell{model.NewCell(0, "#00ff00")}
	v := load(t, b)
	require.Equal(t, "Unknown", v.Stats().Top.Name)

	green := model.Category{ID: uuid.New(), Name: "Exercise", Color: "#00ff00"}
	v.SetCategories([]model.Category{work, sleep, green})
	require.Equal(t, "Exercise", v.Stats().Top.Name)
}

func TestRefresh_KeepsEdits(t *testing.T) {
	b := newBackend()
	v := load(t, b)
	require.NoError(t, v.Select(work.ID))
	v.Paint(1)

	b.mu.Lock()
	b.cells = []model.Cell{model.NewCell(2, "#0000ff")}
	b.mu.Unlock()

	require.NoError(t, v.Refresh(context.Background()))
	require.Equal(t, "#ff0000", v.Render(1))
	require.Equal(t, "#0000ff", v.Render(2))
	require.True(t, v.HasChanges())
}

func TestSave_RecordsFailedRefetch(t *testing.T) {
	b := newBackend()
	v := load(t, b)
	require.NoError(t, v.Select(work.ID))
	v.Paint(0)

	down := errors.New("connection reset")
	b.mu.Lock()
	b.cellsErr = down
	b.mu.Unlock()

	n, err := v.Save(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.False(t, v.HasChanges())
	require.Equal(t, "#ff0000", v.Render(0))
	require.ErrorIs(t, v.ReloadErr(), down)

	b.mu.Lock()
	b.cellsErr = nil
	b.mu.Unlock()
	require.NoError(t, v.Refresh(context.Background()))
	require.NoError(t, v.ReloadErr())
}

func TestSave_NextSaveClearsRefetchError(t *testing.T) {
	b := newBackend()
	v := load(t, b)
	require.NoError(t, v.Select(work.ID))
	v.Paint(0)

	b.mu.Lock()
	b.cellsErr = errors.New("connection reset")
	b.mu.Unlock()
	_, err := v.Save(context.Background())
	require.NoError(t, err)
	require.Error(t, v.ReloadErr())

	n, err := v.Save(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)
	require.Error(t, v.ReloadErr(), "a clean save does not refetch")

	b.mu.Lock()
	b.cellsErr = nil
	b.mu.Unlock()
	v.Paint(1)
	_, err = v.Save(context.Background())
	require.NoError(t, err)
	require.NoError(t, v.ReloadErr())
}
