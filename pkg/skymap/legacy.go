package skymap

import (
	"io"

	"github.com/beetlebugorg/skymap/internal/legacy"
)

// LoadPickle reads a pickled legacy skymap from path.
//
// The pickle is treated as untrusted input. Every failure, including I/O
// errors and unexpected object shapes, is returned as a *LoadError.
//
// Example:
//
//	sky, err := skymap.LoadPickle("skyMap.pickle")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%d tracts in %d rings\n", sky.TractCount(), sky.Rings.RingCount())
func LoadPickle(path string) (*Skymap, error) {
	raw, err := legacy.Load(path)
	if err != nil {
		return nil, &LoadError{Source: path, Err: err}
	}
	return convertLegacy(path, raw)
}

// DecodePickle reads a pickled legacy skymap from r.
func DecodePickle(r io.Reader) (*Skymap, error) {
	raw, err := legacy.Decode(r)
	if err != nil {
		return nil, &LoadError{Source: "<stream>", Err: err}
	}
	return convertLegacy("<stream>", raw)
}

// convertLegacy converts the adapter's structure to the public one.
func convertLegacy(source string, raw *legacy.Skymap) (*Skymap, error) {
	rings, err := NewRingLayout(raw.RingSizes)
	if err != nil {
		return nil, &LoadError{Source: source, Err: err}
	}

	sky := &Skymap{
		Tracts: make([]Tract, len(raw.Tracts)),
		Rings:  rings,
	}
	for i, t := range raw.Tracts {
		vs := make([]Vertex, len(t.Vertices))
		for j, v := range t.Vertices {
			vs[j] = Vertex{RA: v[0], Dec: v[1]}
		}
		sky.Tracts[i] = Tract{ID: t.ID, Vertices: vs}
	}

	if err := sky.Validate(); err != nil {
		return nil, &LoadError{Source: source, Err: err}
	}
	return sky, nil
}
