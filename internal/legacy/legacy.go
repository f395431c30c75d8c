// Package legacy reads pickled skymap object graphs.
//
// The pickle stream is untrusted: every class it references is materialised
// as a plain attribute bag and the graph is walked defensively. Only the
// validated Skymap leaves this package.
package legacy

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/nlpodyssey/gopickle/pickle"

	"github.com/beetlebugorg/skymap/internal/sphere"
)

// UnitTolerance is the allowed deviation from 1.0 of a unit-vector vertex norm.
const UnitTolerance = 1e-6

// Skymap is the canonical structure extracted from a legacy pickle.
//
// Tracts are sorted by ID and IDs are 0..len(Tracts)-1. RingSizes partitions
// the tracts into contiguous rings.
type Skymap struct {
	RingSizes []int
	Tracts    []Tract
}

// Tract is one tract with its vertices as (RA, Dec) in degrees.
type Tract struct {
	ID       int
	Ring     int // -1 when the pickle does not record it
	Vertices [][2]float64
}

var (
	tractListKeys = []string{"tracts", "_tractInfoList", "tract_infos"}
	ringSizeKeys  = []string{"ring_sizes", "_ringSizes"}
	tractIDKeys   = []string{"id", "_id", "tract_id"}
	vertexKeys    = []string{"vertices", "_vertexCoordList", "vertex_list"}
	ringKeys      = []string{"ring", "_ring"}
)

// Load reads and decodes a pickle file.
func Load(path string) (*Skymap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(bufio.NewReader(f))
}

// Decode reads a pickle stream and extracts the skymap it describes.
func Decode(r io.Reader) (sky *Skymap, err error) {
	// The unpickler panics on some malformed streams; those are input errors too.
	defer func() {
		if p := recover(); p != nil {
			sky, err = nil, fmt.Errorf("malformed pickle stream: %v", p)
		}
	}()

	u := pickle.NewUnpickler(r)
	u.FindClass = findClass
	root, err := u.Load()
	if err != nil {
		return nil, fmt.Errorf("unpickle: %w", err)
	}
	return extract(root)
}

// extract walks the decoded object graph.
func extract(root interface{}) (*Skymap, error) {
	if !isMapping(root) {
		return nil, &ErrUnexpectedShape{Path: "root", Reason: "expected a skymap object or dict, got " + describe(root)}
	}

	rawTracts, key, ok := lookup(root, tractListKeys...)
	if !ok {
		return nil, &ErrUnexpectedShape{Path: "root", Reason: fmt.Sprintf("no tract list (looked for %v)", tractListKeys)}
	}
	list, ok := asSequence(rawTracts)
	if !ok {
		return nil, &ErrUnexpectedShape{Path: key, Reason: "expected a sequence, got " + describe(rawTracts)}
	}

	tracts := make([]Tract, 0, len(list))
	for i, item := range list {
		t, err := extractTract(fmt.Sprintf("%s[%d]", key, i), item)
		if err != nil {
			return nil, err
		}
		tracts = append(tracts, t)
	}
	sort.SliceStable(tracts, func(i, j int) bool { return tracts[i].ID < tracts[j].ID })
	for i, t := range tracts {
		if t.ID != i {
			if i > 0 && tracts[i-1].ID == t.ID {
				return nil, &ErrUnexpectedShape{Path: key, Reason: fmt.Sprintf("duplicate tract id %d", t.ID)}
			}
			return nil, &ErrUnexpectedShape{Path: key, Reason: fmt.Sprintf("tract ids must be 0..%d, missing %d", len(tracts)-1, i)}
		}
	}

	var sizes []int
	if rawSizes, skey, ok := lookup(root, ringSizeKeys...); ok {
		s, err := extractSizes(skey, rawSizes)
		if err != nil {
			return nil, err
		}
		sizes = s
	} else {
		s, err := deriveSizes(tracts)
		if err != nil {
			return nil, err
		}
		sizes = s
	}
	if err := checkPartition(sizes, tracts); err != nil {
		return nil, err
	}

	return &Skymap{RingSizes: sizes, Tracts: tracts}, nil
}

func extractTract(path string, item interface{}) (Tract, error) {
	if !isMapping(item) {
		return Tract{}, &ErrUnexpectedShape{Path: path, Reason: "expected a tract object or dict, got " + describe(item)}
	}
	rawID, idKey, ok := lookup(item, tractIDKeys...)
	if !ok {
		return Tract{}, &ErrUnexpectedShape{Path: path, Reason: fmt.Sprintf("no tract id (looked for %v)", tractIDKeys)}
	}
	id, ok := asInt(rawID)
	if !ok || id < 0 {
		return Tract{}, &ErrUnexpectedShape{Path: path + "." + idKey, Reason: fmt.Sprintf("expected a non-negative integer, got %v", rawID)}
	}

	t := Tract{ID: id, Ring: -1}
	if rawRing, rkey, ok := lookup(item, ringKeys...); ok && rawRing != nil {
		ring, ok := asInt(rawRing)
		if !ok || ring < 0 {
			return Tract{}, &ErrUnexpectedShape{Path: path + "." + rkey, Reason: fmt.Sprintf("expected a non-negative integer, got %v", rawRing)}
		}
		t.Ring = ring
	}

	rawVerts, vkey, ok := lookup(item, vertexKeys...)
	if !ok {
		return Tract{}, &ErrUnexpectedShape{Path: path, Reason: fmt.Sprintf("no vertex list (looked for %v)", vertexKeys)}
	}
	verts, ok := asSequence(rawVerts)
	if !ok {
		return Tract{}, &ErrUnexpectedShape{Path: path + "." + vkey, Reason: "expected a sequence, got " + describe(rawVerts)}
	}
	if len(verts) < 3 {
		return Tract{}, &ErrUnexpectedShape{Path: path + "." + vkey, Reason: fmt.Sprintf("polygon needs at least 3 vertices, got %d", len(verts))}
	}

	t.Vertices = make([][2]float64, len(verts))
	for j, raw := range verts {
		v, err := extractVertex(id, j, raw)
		if err != nil {
			return Tract{}, err
		}
		t.Vertices[j] = v
	}
	return t, nil
}

// extractVertex accepts (ra, dec) in degrees, a unit vector (x, y, z), or a
// mapping carrying either form.
func extractVertex(tract, index int, raw interface{}) ([2]float64, error) {
	var comps []interface{}
	if isMapping(raw) {
		if x, _, ok := lookup(raw, "x"); ok {
			y, _, yok := lookup(raw, "y")
			z, _, zok := lookup(raw, "z")
			if !yok || !zok {
				return [2]float64{}, &ErrInvalidVertex{Tract: tract, Vertex: index, Reason: "vector needs x, y and z"}
			}
			comps = []interface{}{x, y, z}
		} else if ra, _, ok := lookup(raw, "ra"); ok {
			dec, _, dok := lookup(raw, "dec")
			if !dok {
				return [2]float64{}, &ErrInvalidVertex{Tract: tract, Vertex: index, Reason: "ra without dec"}
			}
			comps = []interface{}{ra, dec}
		} else {
			return [2]float64{}, &ErrInvalidVertex{Tract: tract, Vertex: index, Reason: "mapping has neither x/y/z nor ra/dec"}
		}
	} else if seq, ok := asSequence(raw); ok {
		comps = seq
	} else {
		return [2]float64{}, &ErrInvalidVertex{Tract: tract, Vertex: index, Reason: "unsupported vertex " + describe(raw)}
	}

	vals := make([]float64, len(comps))
	for i, c := range comps {
		f, ok := asFloat(c)
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			return [2]float64{}, &ErrInvalidVertex{Tract: tract, Vertex: index, Reason: fmt.Sprintf("component %d is not a finite number: %v", i, c)}
		}
		vals[i] = f
	}

	switch len(vals) {
	case 2:
		if vals[1] < -90 || vals[1] > 90 {
			return [2]float64{}, &ErrInvalidVertex{Tract: tract, Vertex: index, Reason: fmt.Sprintf("dec=%v outside [-90, 90]", vals[1])}
		}
		return [2]float64{sphere.WrapRA(vals[0]), vals[1]}, nil
	case 3:
		v := sphere.Vec{vals[0], vals[1], vals[2]}
		if n := v.Norm(); math.Abs(n-1) > UnitTolerance {
			return [2]float64{}, &ErrInvalidVertex{Tract: tract, Vertex: index, Reason: fmt.Sprintf("unit vector has norm %v", n)}
		}
		ra, dec := sphere.FromVector(v)
		return [2]float64{ra, dec}, nil
	default:
		return [2]float64{}, &ErrInvalidVertex{Tract: tract, Vertex: index, Reason: fmt.Sprintf("expected 2 or 3 components, got %d", len(vals))}
	}
}

func extractSizes(key string, raw interface{}) ([]int, error) {
	seq, ok := asSequence(raw)
	if !ok {
		return nil, &ErrUnexpectedShape{Path: key, Reason: "expected a sequence, got " + describe(raw)}
	}
	sizes := make([]int, len(seq))
	for i, s := range seq {
		n, ok := asInt(s)
		if !ok || n <= 0 {
			return nil, &ErrUnexpectedShape{Path: fmt.Sprintf("%s[%d]", key, i), Reason: fmt.Sprintf("expected a positive integer, got %v", s)}
		}
		sizes[i] = n
	}
	return sizes, nil
}

// deriveSizes builds ring sizes from per-tract ring indices, which must start
// at 0, never decrease and never skip a ring.
func deriveSizes(tracts []Tract) ([]int, error) {
	var sizes []int
	for _, t := range tracts {
		switch {
		case t.Ring < 0:
			return nil, &ErrRingPartition{Reason: fmt.Sprintf("tract %d has no ring and the skymap has no ring sizes", t.ID)}
		case t.Ring == len(sizes)-1:
			sizes[t.Ring]++
		case t.Ring == len(sizes):
			sizes = append(sizes, 1)
		default:
			return nil, &ErrRingPartition{Reason: fmt.Sprintf("tract %d is in ring %d after ring %d; rings must be contiguous", t.ID, t.Ring, len(sizes)-1)}
		}
	}
	return sizes, nil
}

// checkPartition verifies sizes against the tract count and any recorded rings.
func checkPartition(sizes []int, tracts []Tract) error {
	total := 0
	for _, n := range sizes {
		total += n
	}
	if total != len(tracts) {
		return &ErrRingPartition{Reason: fmt.Sprintf("ring sizes cover %d tracts but there are %d", total, len(tracts))}
	}
	i := 0
	for ring, n := range sizes {
		for k := 0; k < n; k++ {
			if r := tracts[i].Ring; r >= 0 && r != ring {
				return &ErrRingPartition{Reason: fmt.Sprintf("tract %d records ring %d but ring sizes place it in ring %d", i, r, ring)}
			}
			i++
		}
	}
	return nil
}
