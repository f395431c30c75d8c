package skymap

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTractIndexLocate(t *testing.T) {
	// Layout of gridSkymap(t, 4, 8):
	//   tract 0       south cap below -80
	//   tracts 1-8    -80..-40
	//   tracts 9-16   -40..0
	//   tracts 17-24  0..40
	//   tracts 25-32  40..80
	//   tract 33      north cap above 80
	sky := gridSkymap(t, 4, 8)
	idx := IndexSkymap(sky)

	tests := []struct {
		name    string
		ra, dec float64
		want    []int
	}{
		{"ring interior", 22.5, -20, []int{9}},
		{"last tract of ring", 337.5, 20, []int{24}},
		{"just below ra 360", 359.99, 60, []int{32}},
		{"ra given past 360", 360.01 + 22.5, -20, []int{9}},
		{"negative ra", -22.5, 20, []int{24}},
		{"north cap", 10, 85, []int{33}},
		{"north pole", 0, 90, []int{33}},
		{"south cap", 200, -89.9, []int{0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, idx.Locate(tt.ra, tt.dec))
		})
	}
}

func TestTractIndexEveryCentreLocates(t *testing.T) {
	sky := gridSkymap(t, 5, 10)
	idx := IndexSkymap(sky)

	for _, tr := range sky.Tracts {
		var x, y, z float64
		for _, v := range tr.Vertices {
			p := v.Vector()
			x, y, z = x+p[0], y+p[1], z+p[2]
		}
		c := VertexFromVector(x, y, z)
		assert.Contains(t, idx.Locate(c.RA, c.Dec), tr.ID, "centre of tract %d at (%.3f, %.3f)", tr.ID, c.RA, c.Dec)
	}
}

func TestTractIndexGaps(t *testing.T) {
	idx := IndexSkymap(fourSquareRings(t))
	assert.Equal(t, []int{0}, idx.Locate(45, -5))
	assert.Equal(t, []int{6}, idx.Locate(225, 25))
	assert.Empty(t, idx.Locate(100, 0))
	assert.Empty(t, idx.Locate(45, 10))
}

func TestTractIndexSearch(t *testing.T) {
	idx := IndexSkymap(gridSkymap(t, 4, 8))

	got := idx.Search(Bounds{MinRA: 5, MaxRA: 50, MinDec: -30, MaxDec: -10})
	assert.Equal(t, []int{9, 10}, got)

	assert.Empty(t, IndexSkymap(fourSquareRings(t)).Search(Bounds{MinRA: 60, MaxRA: 120, MinDec: -5, MaxDec: 5}))
}

func TestTractIndexSplitsAtRAZero(t *testing.T) {
	sky := gridSkymap(t, 4, 8)
	idx := IndexSkymap(sky)

	// Tract 9 spans RA 0..45 and its padded box reaches across RA 0
	assert.Len(t, idx.Bounds(9), 2)
	assert.Len(t, idx.Bounds(10), 1)
	assert.Len(t, idx.Bounds(33), 1)
	assert.Equal(t, 0.0, idx.Bounds(33)[0].MinRA)
	assert.Equal(t, 360.0, idx.Bounds(33)[0].MaxRA)
	assert.GreaterOrEqual(t, idx.Size(), sky.TractCount())
}

func TestBuildTractIndexFromReader(t *testing.T) {
	sky := gridSkymap(t, 4, 8)
	data := encodeRingOptimized(t, sky)
	r := openRingOptimized(t, data)

	idx, err := BuildTractIndex(r)
	require.NoError(t, err)
	mem := IndexSkymap(sky)
	for _, p := range [][2]float64{{22.5, -20}, {337.5, 20}, {10, 85}, {200, -89.9}} {
		assert.Equal(t, mem.Locate(p[0], p[1]), idx.Locate(p[0], p[1]))
	}

	// Errors from the reader abort the build
	bad := bytes.Clone(data)
	le.PutUint32(bad[len(bad)-12:], 99)
	r = openRingOptimized(t, bad)
	_, err = BuildTractIndex(r)
	var mr *MissingRingError
	require.ErrorAs(t, err, &mr)
}
