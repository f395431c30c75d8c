package legacy

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beetlebugorg/skymap/internal/testutil"
)

func square(ra0, dec0, size float64) [][]float64 {
	return [][]float64{
		{ra0, dec0},
		{ra0 + size, dec0},
		{ra0 + size, dec0 + size},
		{ra0, dec0 + size},
	}
}

func TestDecodeDictWithRingSizes(t *testing.T) {
	tracts := []testutil.FixtureTract{
		{ID: 0, Ring: -1, Vertices: square(0, -10, 5)},
		{ID: 1, Ring: -1, Vertices: square(90, -10, 5)},
		{ID: 2, Ring: -1, Vertices: square(10, 20, 5)},
	}
	sky, err := Decode(bytes.NewReader(testutil.SkymapPickle(tracts, []int{2, 1})))
	require.NoError(t, err)

	assert.Equal(t, []int{2, 1}, sky.RingSizes)
	require.Len(t, sky.Tracts, 3)
	assert.Equal(t, 1, sky.Tracts[1].ID)
	assert.Equal(t, -1, sky.Tracts[1].Ring)
	assert.Equal(t, [2]float64{95, -5}, sky.Tracts[1].Vertices[2])
}

func TestDecodeDerivesRingsAndSortsTracts(t *testing.T) {
	tracts := []testutil.FixtureTract{
		{ID: 2, Ring: 1, Vertices: square(10, 20, 5)},
		{ID: 0, Ring: 0, Vertices: square(0, -10, 5)},
		{ID: 1, Ring: 0, Vertices: square(90, -10, 5)},
	}
	sky, err := Decode(bytes.NewReader(testutil.SkymapPickle(tracts, nil)))
	require.NoError(t, err)

	assert.Equal(t, []int{2, 1}, sky.RingSizes)
	for i, tr := range sky.Tracts {
		assert.Equal(t, i, tr.ID)
	}
	assert.Equal(t, 1, sky.Tracts[2].Ring)
}

func TestDecodeObjectGraph(t *testing.T) {
	tracts := []testutil.FixtureTract{
		{ID: 0, Ring: 0, Vertices: square(0, 0, 5)},
		{ID: 1, Ring: 0, Vertices: square(180, 0, 5)},
	}
	sky, err := Decode(bytes.NewReader(testutil.SkymapObjectPickle(tracts)))
	require.NoError(t, err)

	assert.Equal(t, []int{2}, sky.RingSizes)
	assert.Equal(t, [2]float64{185, 5}, sky.Tracts[1].Vertices[2])
}

func TestDecodeUnitVectors(t *testing.T) {
	s := math.Sqrt(0.5)
	tracts := []testutil.FixtureTract{
		{ID: 0, Ring: 0, Vertices: [][]float64{
			{1, 0, 0},
			{0, 1, 0},
			{0, 0, 1},
			{s, 0, -s},
		}},
	}
	sky, err := Decode(bytes.NewReader(testutil.SkymapPickle(tracts, nil)))
	require.NoError(t, err)

	vs := sky.Tracts[0].Vertices
	assert.InDelta(t, 0, vs[0][0], 1e-12)
	assert.InDelta(t, 90, vs[1][0], 1e-12)
	assert.InDelta(t, 90, vs[2][1], 1e-12)
	assert.InDelta(t, -45, vs[3][1], 1e-12)
}

func TestDecodeWrapsRA(t *testing.T) {
	tracts := []testutil.FixtureTract{
		{ID: 0, Ring: 0, Vertices: [][]float64{{-5, 0}, {5, 0}, {5, 5}, {-5, 5}}},
	}
	sky, err := Decode(bytes.NewReader(testutil.SkymapPickle(tracts, nil)))
	require.NoError(t, err)
	assert.Equal(t, 355.0, sky.Tracts[0].Vertices[0][0])
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		target interface{}
	}{
		{
			name: "duplicate ids",
			data: testutil.SkymapPickle([]testutil.FixtureTract{
				{ID: 0, Ring: 0, Vertices: square(0, 0, 5)},
				{ID: 0, Ring: 0, Vertices: square(10, 0, 5)},
			}, nil),
			target: new(*ErrUnexpectedShape),
		},
		{
			name: "gap in ids",
			data: testutil.SkymapPickle([]testutil.FixtureTract{
				{ID: 0, Ring: 0, Vertices: square(0, 0, 5)},
				{ID: 2, Ring: 0, Vertices: square(10, 0, 5)},
			}, nil),
			target: new(*ErrUnexpectedShape),
		},
		{
			name: "too few vertices",
			data: testutil.SkymapPickle([]testutil.FixtureTract{
				{ID: 0, Ring: 0, Vertices: [][]float64{{0, 0}, {1, 0}}},
			}, nil),
			target: new(*ErrUnexpectedShape),
		},
		{
			name: "dec out of range",
			data: testutil.SkymapPickle([]testutil.FixtureTract{
				{ID: 0, Ring: 0, Vertices: [][]float64{{0, 0}, {1, 0}, {1, 95}}},
			}, nil),
			target: new(*ErrInvalidVertex),
		},
		{
			name: "not a unit vector",
			data: testutil.SkymapPickle([]testutil.FixtureTract{
				{ID: 0, Ring: 0, Vertices: [][]float64{{2, 0, 0}, {0, 1, 0}, {0, 0, 1}}},
			}, nil),
			target: new(*ErrInvalidVertex),
		},
		{
			name: "four components",
			data: testutil.SkymapPickle([]testutil.FixtureTract{
				{ID: 0, Ring: 0, Vertices: [][]float64{{1, 0, 0, 0}, {0, 1, 0}, {0, 0, 1}}},
			}, nil),
			target: new(*ErrInvalidVertex),
		},
		{
			name: "no ring information",
			data: testutil.SkymapPickle([]testutil.FixtureTract{
				{ID: 0, Ring: -1, Vertices: square(0, 0, 5)},
			}, nil),
			target: new(*ErrRingPartition),
		},
		{
			name: "rings skip",
			data: testutil.SkymapPickle([]testutil.FixtureTract{
				{ID: 0, Ring: 0, Vertices: square(0, 0, 5)},
				{ID: 1, Ring: 2, Vertices: square(0, 20, 5)},
			}, nil),
			target: new(*ErrRingPartition),
		},
		{
			name: "ring sizes disagree with tract count",
			data: testutil.SkymapPickle([]testutil.FixtureTract{
				{ID: 0, Ring: -1, Vertices: square(0, 0, 5)},
			}, []int{2}),
			target: new(*ErrRingPartition),
		},
		{
			name: "ring sizes disagree with tract rings",
			data: testutil.SkymapPickle([]testutil.FixtureTract{
				{ID: 0, Ring: 0, Vertices: square(0, 0, 5)},
				{ID: 1, Ring: 0, Vertices: square(90, 0, 5)},
			}, []int{1, 1}),
			target: new(*ErrRingPartition),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sky, err := Decode(bytes.NewReader(tt.data))
			require.Error(t, err)
			assert.Nil(t, sky)
			assert.True(t, errors.As(err, tt.target), "unexpected error type %T: %v", err, err)
		})
	}
}

func TestDecodeRejectsWrongRoot(t *testing.T) {
	p := testutil.NewPickler()
	p.List(func() { p.Int(1) })
	_, err := Decode(bytes.NewReader(p.Bytes()))
	var shape *ErrUnexpectedShape
	require.ErrorAs(t, err, &shape)
	assert.Equal(t, "root", shape.Path)

	p = testutil.NewPickler()
	p.Dict(func() { p.Key("name", func() { p.Str("not a skymap") }) })
	_, err = Decode(bytes.NewReader(p.Bytes()))
	require.ErrorAs(t, err, &shape)
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte("definitely not a pickle")))
	assert.Error(t, err)

	_, err = Decode(bytes.NewReader(nil))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skymap.pickle")
	data := testutil.SkymapPickle([]testutil.FixtureTract{
		{ID: 0, Ring: 0, Vertices: square(0, 0, 5)},
	}, nil)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	sky, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, sky.Tracts, 1)

	_, err = Load(filepath.Join(t.TempDir(), "missing.pickle"))
	assert.Error(t, err)
}
