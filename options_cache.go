package decisions

import "sync"

// ProgramCache stores compiled expression programs keyed by expression.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

type mapCache struct {
	mu       sync.RWMutex
	programs map[string]any
}

// NewProgramCache returns an unbounded in-memory ProgramCache. Scenario
// catalogs are small and fixed, so entries are never evicted.
func NewProgramCache() ProgramCache {
	return &mapCache{programs: map[string]any{}}
}

func (c *mapCache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, ok := c.programs[key]
	return value, ok
}

func (c *mapCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.programs[key] = value
}
