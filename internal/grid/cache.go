package grid

import (
	"sync"

	"github.com/ryanbastic/go-chronos/internal/model"
)

// LayoutCache memoizes layouts per config. Layouts are shared; callers must
// not modify the returned slices.
type LayoutCache struct {
	mu      sync.Mutex
	layouts map[model.MatrixConfig]Layout
	max     int
}

// NewLayoutCache creates a cache holding at most max layouts. When full, the
// cache is reset.
func NewLayoutCache(max int) *LayoutCache {
	if max <= 0 {
		max = 64
	}
	return &LayoutCache{layouts: make(map[model.MatrixConfig]Layout), max: max}
}

// Get returns the layout for cfg, computing it on first use.
func (c *LayoutCache) Get(cfg model.MatrixConfig) Layout {
	c.mu.Lock()
	defer c.mu.Unlock()
	if l, ok := c.layouts[cfg]; ok {
		return l
	}
	if len(c.layouts) >= c.max {
		clear(c.layouts)
	}
	l := NewLayout(cfg)
	c.layouts[cfg] = l
	return l
}
