package skymap

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beetlebugorg/skymap/internal/testutil"
)

// fixtureTracts converts a skymap to pickle fixture tracts.
func fixtureTracts(sky *Skymap, withRing bool) []testutil.FixtureTract {
	out := make([]testutil.FixtureTract, len(sky.Tracts))
	for i, tr := range sky.Tracts {
		ring := -1
		if withRing {
			ring, _, _ = sky.Rings.Locate(i)
		}
		vs := make([][]float64, len(tr.Vertices))
		for j, v := range tr.Vertices {
			vs[j] = []float64{v.RA, v.Dec}
		}
		out[i] = testutil.FixtureTract{ID: tr.ID, Ring: ring, Vertices: vs}
	}
	return out
}

func writePickle(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "skyMap.pickle")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestLoadPickle(t *testing.T) {
	want := fourSquareRings(t)
	path := writePickle(t, testutil.SkymapPickle(fixtureTracts(want, false), want.Rings.Sizes()))

	sky, err := LoadPickle(path)
	require.NoError(t, err)
	assert.Equal(t, want.Tracts, sky.Tracts)
	assert.True(t, want.Rings.Equal(sky.Rings))
}

func TestLoadPickleObjectGraph(t *testing.T) {
	want := gridSkymap(t, 3, 6)
	sky, err := DecodePickle(bytes.NewReader(testutil.SkymapObjectPickle(fixtureTracts(want, true))))
	require.NoError(t, err)
	assert.Equal(t, want.Tracts, sky.Tracts)
	assert.Equal(t, want.Rings.Sizes(), sky.Rings.Sizes())
}

func TestLoadPickleFeedsBothWriters(t *testing.T) {
	want := fourSquareRings(t)
	sky, err := DecodePickle(bytes.NewReader(testutil.SkymapPickle(fixtureTracts(want, true), nil)))
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, WriteFile(filepath.Join(dir, "s.fv"), &FullVertexWriter{}, sky))
	require.NoError(t, WriteFile(filepath.Join(dir, "s.ro"), &RingOptimizedWriter{}, sky))

	f, err := OpenFile(filepath.Join(dir, "s.ro"), FormatRingOptimized)
	require.NoError(t, err)
	defer f.Close()
	rings, err := f.RingOptimized().Rings()
	require.NoError(t, err)
	assert.Equal(t, []int{4, 4}, rings.Sizes())
}

func TestLoadPickleErrors(t *testing.T) {
	var le *LoadError

	_, err := LoadPickle(filepath.Join(t.TempDir(), "missing.pickle"))
	require.ErrorAs(t, err, &le)
	assert.Contains(t, le.Source, "missing.pickle")

	_, err = DecodePickle(bytes.NewReader([]byte("not a pickle")))
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "<stream>", le.Source)

	// Structural problems from the adapter keep their type
	data := testutil.SkymapPickle([]testutil.FixtureTract{
		{ID: 0, Ring: 0, Vertices: [][]float64{{0, 0}, {1, 0}}},
	}, nil)
	_, err = DecodePickle(bytes.NewReader(data))
	require.ErrorAs(t, err, &le)
	assert.Error(t, le.Unwrap())
}
