package project

import (
	"sync"

	"ember/internal/diag"
)

// UnitMeta is the cached shape of one analyzed translation unit: enough
// for a host to decide whether re-running the pipeline is needed, without
// the core itself persisting anything.
type UnitMeta struct {
	Path        string
	ContentHash Digest
	Diags       []diag.Diagnostic
	MonoCount   int
	HadErrors   bool
}

type cached struct {
	content Digest
	meta    *UnitMeta
}

// ModuleCache is a per-process cache keyed by unit path + content hash.
// Safe for concurrent use by the pipeline's file-level fan-out.
type ModuleCache struct {
	mu     sync.RWMutex
	byUnit map[string]cached
}

// NewModuleCache creates a ModuleCache with the given capacity hint.
func NewModuleCache(capHint int) *ModuleCache {
	return &ModuleCache{byUnit: make(map[string]cached, capHint)}
}

// Get retrieves a unit's cached outputs if its content hash still matches.
func (c *ModuleCache) Get(path string, content Digest) (*UnitMeta, bool) {
	c.mu.RLock()
	rec, ok := c.byUnit[path]
	c.mu.RUnlock()
	if !ok || rec.content != content {
		return nil, false
	}
	return rec.meta, true
}

// Put inserts a unit's outputs keyed by its content hash.
func (c *ModuleCache) Put(m *UnitMeta) {
	if m == nil {
		return
	}
	c.mu.Lock()
	c.byUnit[m.Path] = cached{content: m.ContentHash, meta: m}
	c.mu.Unlock()
}

// Len reports how many units are cached.
func (c *ModuleCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byUnit)
}
