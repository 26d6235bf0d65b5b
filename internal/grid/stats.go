package grid

import (
	"math"
	"slices"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/ryanbastic/go-chronos/internal/model"
)

// UnknownCategory labels colors that no current category uses.
const UnknownCategory = "Unknown"

// CategoryCount is the number of filled cells sharing one color.
type CategoryCount struct {
	CategoryID uuid.UUID `json:"categoryId"`
	Name       string    `json:"name"`
	Color      string    `json:"color"`
	Count      int       `json:"count"`
}

// Stats summarizes a rendered grid.
type Stats struct {
	FilledCount    int             `json:"filledCount"`
	TotalCells     int             `json:"totalCells"`
	RemainingCount int             `json:"remainingCount"`
	Percentage     int             `json:"percentage"`
	Categories     []CategoryCount `json:"categories"`
	Top            *CategoryCount  `json:"top,omitempty"`
}

// ComputeStats aggregates rendered colors, one per index of the layout. The
// total is len(rendered), so it always matches the layout that produced it.
// Colors resolve to categories by exact color match.
func ComputeStats(rendered []string, categories []model.Category) Stats {
	byColor := make(map[string]model.Category, len(categories))
	for _, c := range categories {
		if _, seen := byColor[c.Color]; !seen {
			byColor[c.Color] = c
		}
	}

	stats := Stats{TotalCells: len(rendered)}
	groups := make(map[string]int)
	for _, color := range rendered {
		if color == model.Unfilled {
			continue
		}
		stats.FilledCount++
		pos, ok := groups[color]
		if !ok {
			cc := CategoryCount{Name: UnknownCategory, Color: color}
			if cat, found := byColor[color]; found {
				cc.CategoryID = cat.ID
				cc.Name = cat.Name
			}
			pos = len(stats.Categories)
			groups[color] = pos
			stats.Categories = append(stats.Categories, cc)
		}
		stats.Categories[pos].Count++
	}

	sort.SliceStable(stats.Categories, func(i, j int) bool {
		return stats.Categories[i].Count > stats.Categories[j].Count
	})
	if len(stats.Categories) > 0 {
		top := stats.Categories[0]
		stats.Top = &top
	}

	stats.RemainingCount = stats.TotalCells - stats.FilledCount
	if stats.TotalCells > 0 {
		stats.Percentage = int(math.Round(float64(stats.FilledCount) / float64(stats.TotalCells) * 100))
	}
	return stats
}

// StatsMemo caches the stats of a session until its rendered state, its
// layout size, or the category list changes.
type StatsMemo struct {
	mu         sync.Mutex
	valid      bool
	revision   uint64
	total      int
	categories []model.Category
	stats      Stats
}

// Get returns the stats for the session, recomputing only when an input changed.
func (m *StatsMemo) Get(s *Session, categories []model.Category) Stats {
	revision, rendered := s.Snapshot()
	total := len(rendered)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.valid && m.revision == revision && m.total == total && slices.Equal(m.categories, categories) {
		return m.stats
	}
	m.stats = ComputeStats(rendered, categories)
	m.revision = revision
	m.total = total
	m.categories = slices.Clone(categories)
	m.valid = true
	return m.stats
}
