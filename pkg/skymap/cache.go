package skymap

import (
	"container/list"
	"fmt"
	"iter"
	"sync"
)

// TractCache keeps decoded tracts of a Reader in memory with LRU eviction.
// It implements Reader itself.
//
// Ring-optimized reconstruction and full-vertex reads are cheap, but callers
// that revisit the same tracts (point lookups, viewers) avoid the positioned
// read and allocation on every access. Memory use is estimated from the
// vertex count.
//
// Example:
//
//	cache := skymap.NewTractCache(f, 16*1024*1024) // 16MB
//	vs, err := cache.Vertices(1234)
type TractCache struct {
	reader     Reader
	maxMemory  int64 // Maximum memory in bytes, 0 for unlimited
	usedMemory int64
	tracts     map[int]*tractEntry
	lru        *list.List // Most recent at front
	hits       int64
	misses     int64
	mu         sync.RWMutex
}

// tractEntry tracks one cached tract
type tractEntry struct {
	tract      int
	vertices   []Vertex
	memorySize int64
	element    *list.Element
}

// NewTractCache creates a cache over r with the given memory limit in bytes.
// Set maxMemoryBytes to 0 for an unlimited cache.
func NewTractCache(r Reader, maxMemoryBytes int64) *TractCache {
	return &TractCache{
		reader:    r,
		maxMemory: maxMemoryBytes,
		tracts:    make(map[int]*tractEntry),
		lru:       list.New(),
	}
}

// TractCount returns the tract count of the underlying reader.
func (c *TractCache) TractCount() int { return c.reader.TractCount() }

// VertexCount returns the vertex count of a tract, from the cache when present.
func (c *TractCache) VertexCount(tract int) (int, error) {
	c.mu.RLock()
	entry, ok := c.tracts[tract]
	c.mu.RUnlock()
	if ok {
		return len(entry.vertices), nil
	}
	return c.reader.VertexCount(tract)
}

// Vertices returns the boundary of a tract, decoding it on a miss.
//
// The returned slice is shared with the cache and must not be modified.
func (c *TractCache) Vertices(tract int) ([]Vertex, error) {
	// Fast path: check cache with read lock
	c.mu.RLock()
	if entry, ok := c.tracts[tract]; ok {
		c.mu.RUnlock()

		c.mu.Lock()
		c.hits++
		if entry.element != nil {
			c.lru.MoveToFront(entry.element)
		}
		c.mu.Unlock()

		return entry.vertices, nil
	}
	c.mu.RUnlock()

	vs, err := c.reader.Vertices(tract)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.misses++
	c.mu.Unlock()

	// A tract too large for the cache is still returned
	_ = c.Add(tract, vs)
	return vs, nil
}

// Tracts yields every tract in index order through the cache.
func (c *TractCache) Tracts() iter.Seq2[Tract, error] {
	return func(yield func(Tract, error) bool) {
		for i := 0; i < c.reader.TractCount(); i++ {
			vs, err := c.Vertices(i)
			if err != nil {
				yield(Tract{ID: i}, err)
				return
			}
			if !yield(Tract{ID: i, Vertices: vs}, nil) {
				return
			}
		}
	}
}

// Add stores decoded vertices for a tract.
//
// Least-recently-used tracts are evicted to make room. Returns an error if the
// tract alone exceeds the memory limit; any older entry for it is dropped.
func (c *TractCache) Add(tract int, vs []Vertex) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// A replaced tract goes through the same eviction as a new one
	if entry, ok := c.tracts[tract]; ok {
		c.removeEntry(entry)
	}

	memSize := estimateTractMemory(vs)
	if c.maxMemory > 0 && memSize > c.maxMemory {
		return fmt.Errorf("tract %d too large for cache (%d bytes > %d bytes max)",
			tract, memSize, c.maxMemory)
	}

	if c.maxMemory > 0 {
		for c.usedMemory+memSize > c.maxMemory && c.lru.Len() > 0 {
			c.evictLRU()
		}
	}

	entry := &tractEntry{
		tract:      tract,
		vertices:   vs,
		memorySize: memSize,
	}
	entry.element = c.lru.PushFront(entry)
	c.tracts[tract] = entry
	c.usedMemory += memSize
	return nil
}

// evictLRU removes the least recently used tract.
// Must be called with c.mu locked.
func (c *TractCache) evictLRU() {
	elem := c.lru.Back()
	if elem == nil {
		return
	}
	c.removeEntry(elem.Value.(*tractEntry))
}

// removeEntry unlinks one tract. Must be called with c.mu locked.
func (c *TractCache) removeEntry(entry *tractEntry) {
	c.lru.Remove(entry.element)
	delete(c.tracts, entry.tract)
	c.usedMemory -= entry.memorySize
}

// Remove drops a tract from the cache.
func (c *TractCache) Remove(tract int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.tracts[tract]; ok {
		c.removeEntry(entry)
	}
}

// Clear removes all tracts from the cache.
func (c *TractCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tracts = make(map[int]*tractEntry)
	c.lru.Init()
	c.usedMemory = 0
}

// Stats returns cache statistics.
func (c *TractCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return CacheStats{
		TractCount: len(c.tracts),
		UsedMemory: c.usedMemory,
		MaxMemory:  c.maxMemory,
		Hits:       c.hits,
		Misses:     c.misses,
	}
}

// CacheStats holds cache performance metrics.
type CacheStats struct {
	TractCount int   // Number of tracts currently cached
	UsedMemory int64 // Estimated memory usage in bytes
	MaxMemory  int64 // Maximum memory limit in bytes
	Hits       int64
	Misses     int64
}

// HitRate returns the fraction of lookups served from the cache.
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// estimateTractMemory approximates the bytes held by one cached tract:
// a fixed entry overhead plus 16 bytes per vertex.
func estimateTractMemory(vs []Vertex) int64 {
	return 128 + int64(len(vs))*16
}
