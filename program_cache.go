package snapdiff

import "sync"

// ProgramCache stores compiled expression programs keyed by engine and
// expression.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// MemoryProgramCache is an unbounded ProgramCache safe for concurrent use.
type MemoryProgramCache struct {
	programs sync.Map
}

// NewMemoryProgramCache constructs an empty cache.
func NewMemoryProgramCache() *MemoryProgramCache {
	return &MemoryProgramCache{}
}

// Get returns the program stored under key.
func (c *MemoryProgramCache) Get(key string) (any, bool) {
	return c.programs.Load(key)
}

// Set stores value under key.
func (c *MemoryProgramCache) Set(key string, value any) {
	c.programs.Store(key, value)
}
