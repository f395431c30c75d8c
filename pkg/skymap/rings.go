package skymap

import (
	"fmt"
	"iter"
	"slices"
)

// TractPosition locates one tract within the ring partition.
type TractPosition struct {
	Ring  int // Ring index, ordered by declination
	Index int // Position of the tract within its ring
	Tract int // Global tract index
}

// RingLayout partitions a contiguous range of tract indices into rings.
//
// Ring r owns tracts [RingStart(r), RingStart(r)+RingSize(r)). A layout is
// immutable once built and safe for concurrent use.
type RingLayout struct {
	sizes  []int
	starts []int   // Prefix sum of sizes, len(sizes)+1 entries
	ringOf []int32 // Owning ring per global tract index
}

// NewRingLayout builds a layout from per-ring tract counts.
//
// Every ring must hold at least one tract.
//
// Example:
//
//	layout, err := skymap.NewRingLayout([]int{1, 6, 12, 6, 1})
//	ring, offset, err := layout.Locate(9) // ring 2, offset 2
func NewRingLayout(sizes []int) (*RingLayout, error) {
	starts := make([]int, len(sizes)+1)
	for r, n := range sizes {
		if n <= 0 {
			return nil, fmt.Errorf("ring %d has %d tracts, need at least 1", r, n)
		}
		starts[r+1] = starts[r] + n
	}
	total := starts[len(sizes)]
	ringOf := make([]int32, total)
	for r := range sizes {
		for t := starts[r]; t < starts[r+1]; t++ {
			ringOf[t] = int32(r)
		}
	}
	return &RingLayout{
		sizes:  slices.Clone(sizes),
		starts: starts,
		ringOf: ringOf,
	}, nil
}

// RingCount returns the number of rings.
func (l *RingLayout) RingCount() int { return len(l.sizes) }

// TractCount returns the total number of tracts across all rings.
func (l *RingLayout) TractCount() int { return l.starts[len(l.sizes)] }

// Sizes returns a copy of the per-ring tract counts.
func (l *RingLayout) Sizes() []int { return slices.Clone(l.sizes) }

// RingSize returns the number of tracts in a ring.
func (l *RingLayout) RingSize(ring int) (int, error) {
	if ring < 0 || ring >= len(l.sizes) {
		return 0, ringIndexError(ring, len(l.sizes))
	}
	return l.sizes[ring], nil
}

// RingStart returns the global index of the first tract in a ring.
func (l *RingLayout) RingStart(ring int) (int, error) {
	if ring < 0 || ring >= len(l.sizes) {
		return 0, ringIndexError(ring, len(l.sizes))
	}
	return l.starts[ring], nil
}

// Locate returns the ring owning a tract and the tract's offset within it.
//
// Runs in constant time. Fails with *IndexError when tract is outside
// [0, TractCount()).
func (l *RingLayout) Locate(tract int) (ring, offset int, err error) {
	if tract < 0 || tract >= len(l.ringOf) {
		return 0, 0, tractIndexError(tract, len(l.ringOf))
	}
	ring = int(l.ringOf[tract])
	return ring, tract - l.starts[ring], nil
}

// All yields every tract position in ascending ring-then-tract order.
//
// The sequence is lazy and may be ranged over any number of times.
func (l *RingLayout) All() iter.Seq[TractPosition] {
	return IterateTractAndRing(l.sizes)
}

// Ring yields the positions of the tracts in one ring.
// An out-of-range ring yields nothing.
func (l *RingLayout) Ring(ring int) iter.Seq[TractPosition] {
	return func(yield func(TractPosition) bool) {
		if ring < 0 || ring >= len(l.sizes) {
			return
		}
		for i := 0; i < l.sizes[ring]; i++ {
			if !yield(TractPosition{Ring: ring, Index: i, Tract: l.starts[ring] + i}) {
				return
			}
		}
	}
}

// Equal reports whether two layouts describe the same partition.
func (l *RingLayout) Equal(o *RingLayout) bool {
	if l == nil || o == nil {
		return l == o
	}
	return slices.Equal(l.sizes, o.sizes)
}

// IterateTractAndRing enumerates (ring, tract) pairs from per-ring tract counts
// without building a layout.
//
// Positions are yielded in ascending ring-then-tract order; the global tract
// index increases by one at every step. Non-positive counts contribute no tracts.
//
// Example:
//
//	for pos := range skymap.IterateTractAndRing([]int{1, 4, 1}) {
//	    fmt.Println(pos.Ring, pos.Index, pos.Tract)
//	}
func IterateTractAndRing(sizes []int) iter.Seq[TractPosition] {
	return func(yield func(TractPosition) bool) {
		tract := 0
		for ring, n := range sizes {
			for i := 0; i < n; i++ {
				if !yield(TractPosition{Ring: ring, Index: i, Tract: tract}) {
					return
				}
				tract++
			}
		}
	}
}
