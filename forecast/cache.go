package forecast

import "sync"

// modelCache holds fitted models keyed by series, method and split.
type modelCache struct {
	mu     sync.RWMutex
	models map[cacheKey]Model
}

func newModelCache() *modelCache {
	return &modelCache{models: make(map[cacheKey]Model)}
}

func (c *modelCache) get(key cacheKey) (Model, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.models[key]
	return m, ok
}

func (c *modelCache) put(key cacheKey, m Model) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.models[key] = m
}

func (c *modelCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.models)
}
