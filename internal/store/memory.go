package store

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"subcue/internal/subtitle"
)

// DefaultCacheEntries is the reference memory-tier bound.
const DefaultCacheEntries = 10

// Memory is the bounded, recency-ordered in-memory tier keyed by project
// identifier. Writing beyond the bound evicts the least-recently-used entry.
type Memory struct {
	cache *lru.Cache[string, subtitle.Snapshot]
}

func NewMemory(entries int) *Memory {
	if entries <= 0 {
		entries = DefaultCacheEntries
	}
	// lru.New only errors on a non-positive size.
	cache, _ := lru.New[string, subtitle.Snapshot](entries)
	return &Memory{cache: cache}
}

// Put inserts or refreshes the entry for id.
func (m *Memory) Put(id string, snap subtitle.Snapshot) {
	m.cache.Add(id, snap)
}

// Get returns the cached snapshot and marks it recently used.
func (m *Memory) Get(id string) (subtitle.Snapshot, bool) {
	return m.cache.Get(id)
}

// Remove drops the entry for id if present.
func (m *Memory) Remove(id string) {
	m.cache.Remove(id)
}

// Len returns the resident entry count.
func (m *Memory) Len() int {
	return m.cache.Len()
}
