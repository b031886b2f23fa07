package cache

import (
	"log/slog"
	"sync"

	"github.com/suivideflotte/fleet-intel/app/metrics"
)

// Clearable is the part of a cache the Group needs.
type Clearable interface {
	Name() string
	Clear()
	Len() int
}

// Group tracks every cache so the operator can invalidate all of them at once.
type Group struct {
	mu      sync.RWMutex
	caches  []Clearable
	metrics *metrics.Metrics
}

func NewGroup(m *metrics.Metrics) *Group {
	return &Group{metrics: m}
}

func (g *Group) Register(c Clearable) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.caches = append(g.caches, c)
}

// ClearAll forces the next lookup of every key in every cache to refetch.
func (g *Group) ClearAll() {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, c := range g.caches {
		c.Clear()
	}
	g.metrics.ObserveCacheClear()

	slog.Info("Cache cleared", "caches", len(g.caches))
}

// Sizes reports the entry count of each registered cache.
func (g *Group) Sizes() map[string]int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	sizes := make(map[string]int, len(g.caches))
	for _, c := range g.caches {
		sizes[c.Name()] = c.Len()
	}
	return sizes
}
