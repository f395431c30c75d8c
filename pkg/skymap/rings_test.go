package skymap

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIterateTractAndRing(t *testing.T) {
	got := slices.Collect(IterateTractAndRing([]int{1, 3, 2}))
	want := []TractPosition{
		{Ring: 0, Index: 0, Tract: 0},
		{Ring: 1, Index: 0, Tract: 1},
		{Ring: 1, Index: 1, Tract: 2},
		{Ring: 1, Index: 2, Tract: 3},
		{Ring: 2, Index: 0, Tract: 4},
		{Ring: 2, Index: 1, Tract: 5},
	}
	assert.Equal(t, want, got)

	// Restartable
	assert.Equal(t, want, slices.Collect(IterateTractAndRing([]int{1, 3, 2})))
}

func TestIterateTractAndRingEdgeCases(t *testing.T) {
	assert.Empty(t, slices.Collect(IterateTractAndRing(nil)))
	assert.Empty(t, slices.Collect(IterateTractAndRing([]int{})))

	// Zero-sized rings contribute nothing but keep their ring number
	got := slices.Collect(IterateTractAndRing([]int{0, 2}))
	assert.Equal(t, []TractPosition{
		{Ring: 1, Index: 0, Tract: 0},
		{Ring: 1, Index: 1, Tract: 1},
	}, got)
}

func TestIterateTractAndRingEarlyStop(t *testing.T) {
	var seen []int
	for pos := range IterateTractAndRing([]int{5, 5}) {
		if pos.Tract == 3 {
			break
		}
		seen = append(seen, pos.Tract)
	}
	assert.Equal(t, []int{0, 1, 2}, seen)
}

func TestIterationIsContiguous(t *testing.T) {
	sizes := []int{1, 6, 12, 18, 12, 6, 1}
	next := 0
	for pos := range IterateTractAndRing(sizes) {
		require.Equal(t, next, pos.Tract)
		next++
	}
	assert.Equal(t, 56, next)
}

func TestNewRingLayout(t *testing.T) {
	l, err := NewRingLayout([]int{1, 6, 12, 6, 1})
	require.NoError(t, err)

	assert.Equal(t, 5, l.RingCount())
	assert.Equal(t, 26, l.TractCount())
	assert.Equal(t, []int{1, 6, 12, 6, 1}, l.Sizes())

	start, err := l.RingStart(2)
	require.NoError(t, err)
	assert.Equal(t, 7, start)

	n, err := l.RingSize(3)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	_, err = NewRingLayout([]int{3, 0, 2})
	assert.Error(t, err)

	empty, err := NewRingLayout(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.TractCount())
}

func TestRingLayoutSizesIsACopy(t *testing.T) {
	l, err := NewRingLayout([]int{2, 2})
	require.NoError(t, err)
	s := l.Sizes()
	s[0] = 99
	assert.Equal(t, []int{2, 2}, l.Sizes())
}

func TestRingLayoutLocate(t *testing.T) {
	l, err := NewRingLayout([]int{1, 6, 12, 6, 1})
	require.NoError(t, err)

	tests := []struct {
		tract, ring, offset int
	}{
		{0, 0, 0},
		{1, 1, 0},
		{6, 1, 5},
		{7, 2, 0},
		{9, 2, 2},
		{18, 2, 11},
		{25, 4, 0},
	}
	for _, tt := range tests {
		ring, offset, err := l.Locate(tt.tract)
		require.NoError(t, err)
		assert.Equal(t, tt.ring, ring, "tract %d", tt.tract)
		assert.Equal(t, tt.offset, offset, "tract %d", tt.tract)
	}

	// Locate agrees with iteration everywhere
	for pos := range l.All() {
		ring, offset, err := l.Locate(pos.Tract)
		require.NoError(t, err)
		assert.Equal(t, pos.Ring, ring)
		assert.Equal(t, pos.Index, offset)
	}
}

func TestRingLayoutIndexErrors(t *testing.T) {
	l, err := NewRingLayout([]int{2, 3})
	require.NoError(t, err)

	var ie *IndexError
	_, _, err = l.Locate(5)
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "tract", ie.Kind)
	assert.Equal(t, 5, ie.Index)
	assert.Equal(t, 5, ie.Limit)

	_, _, err = l.Locate(-1)
	require.ErrorAs(t, err, &ie)

	_, err = l.RingSize(2)
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "ring", ie.Kind)

	_, err = l.RingStart(-1)
	require.ErrorAs(t, err, &ie)
}

func TestRingLayoutRing(t *testing.T) {
	l, err := NewRingLayout([]int{2, 3})
	require.NoError(t, err)

	var tracts []int
	for pos := range l.Ring(1) {
		assert.Equal(t, 1, pos.Ring)
		tracts = append(tracts, pos.Tract)
	}
	assert.Equal(t, []int{2, 3, 4}, tracts)
	assert.Empty(t, slices.Collect(l.Ring(2)))
	assert.Empty(t, slices.Collect(l.Ring(-1)))
}

func TestRingLayoutEqual(t *testing.T) {
	a, _ := NewRingLayout([]int{2, 3})
	b, _ := NewRingLayout([]int{2, 3})
	c, _ := NewRingLayout([]int{3, 2})

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(nil))

	var n *RingLayout
	assert.True(t, n.Equal(nil))
}
