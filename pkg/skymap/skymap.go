package skymap

import (
	"fmt"
	"math"

	"github.com/beetlebugorg/skymap/internal/sphere"
)

// Vertex is a point on the celestial sphere.
//
// Coordinates are in decimal degrees. RA lies in [0, 360) and Dec in [-90, 90].
type Vertex struct {
	RA  float64 // Right ascension
	Dec float64 // Declination
}

// Vector returns the vertex as a unit vector (x, y, z).
func (v Vertex) Vector() [3]float64 {
	return sphere.ToVector(v.RA, v.Dec)
}

// VertexFromVector converts a unit vector to a Vertex.
//
// The vector need not be exactly normalised; only its direction is used.
func VertexFromVector(x, y, z float64) Vertex {
	ra, dec := sphere.FromVector(sphere.Vec{x, y, z})
	return Vertex{RA: ra, Dec: dec}
}

// Validate reports whether the vertex lies within the valid angular ranges.
func (v Vertex) Validate() error {
	if math.IsNaN(v.RA) || math.IsInf(v.RA, 0) || math.IsNaN(v.Dec) || math.IsInf(v.Dec, 0) {
		return fmt.Errorf("non-finite coordinate ra=%v dec=%v", v.RA, v.Dec)
	}
	if v.RA < 0 || v.RA >= 360 {
		return fmt.Errorf("ra=%v outside [0, 360)", v.RA)
	}
	if v.Dec < -90 || v.Dec > 90 {
		return fmt.Errorf("dec=%v outside [-90, 90]", v.Dec)
	}
	return nil
}

// Separation returns the angular distance in degrees to another vertex.
func (v Vertex) Separation(o Vertex) float64 {
	return sphere.Separation(v.RA, v.Dec, o.RA, o.Dec)
}

// Tract is one region of the tessellation, bounded by a spherical polygon.
type Tract struct {
	ID       int
	Vertices []Vertex
}

// Skymap is the canonical in-memory tessellation consumed by the writers.
//
// Tracts are indexed by ID: Tracts[i].ID == i. Rings describes how the tract
// indices are partitioned into declination rings; it is required by the
// ring-optimized writer and optional otherwise.
type Skymap struct {
	Tracts []Tract
	Rings  *RingLayout
}

// TractCount returns the number of tracts.
func (s *Skymap) TractCount() int {
	return len(s.Tracts)
}

// Validate checks the invariants both writers rely on.
//
// Returns a *FormatError describing the first violation found.
func (s *Skymap) Validate() error {
	if s == nil {
		return &FormatError{Tract: -1, Vertex: -1, Reason: "skymap is nil"}
	}
	if s.Rings != nil && s.Rings.TractCount() != len(s.Tracts) {
		return &FormatError{Tract: -1, Vertex: -1,
			Reason: fmt.Sprintf("ring layout covers %d tracts but skymap has %d", s.Rings.TractCount(), len(s.Tracts))}
	}
	for i, t := range s.Tracts {
		if t.ID != i {
			return &FormatError{Tract: i, Vertex: -1, Reason: fmt.Sprintf("tract at position %d has id %d", i, t.ID)}
		}
		if len(t.Vertices) < 3 {
			return &FormatError{Tract: i, Vertex: -1, Reason: fmt.Sprintf("polygon needs at least 3 vertices, got %d", len(t.Vertices))}
		}
		if uint64(len(t.Vertices)) > math.MaxUint32 {
			return &FormatError{Tract: i, Vertex: -1, Reason: "too many vertices"}
		}
		for j, v := range t.Vertices {
			if err := v.Validate(); err != nil {
				return &FormatError{Tract: i, Vertex: j, Reason: err.Error()}
			}
		}
	}
	return nil
}

// Bounds represents an RA/Dec bounding box in decimal degrees.
//
// MinRA <= MaxRA always holds; boxes crossing RA 0 are represented as two boxes.
type Bounds struct {
	MinRA  float64
	MaxRA  float64
	MinDec float64
	MaxDec float64
}

// Contains returns true if the point (ra, dec) is within the bounds.
func (b Bounds) Contains(ra, dec float64) bool {
	return ra >= b.MinRA && ra <= b.MaxRA &&
		dec >= b.MinDec && dec <= b.MaxDec
}

// Intersects returns true if the given bounds intersects with this bounds.
func (b Bounds) Intersects(other Bounds) bool {
	return !(other.MaxRA < b.MinRA ||
		other.MinRA > b.MaxRA ||
		other.MaxDec < b.MinDec ||
		other.MinDec > b.MaxDec)
}

// tractBounds returns one or two boxes covering the tract polygon.
//
// Edges are taken as straight in RA/Dec, which is exact for iso-latitude
// edges; boxes are padded by pad degrees to absorb great-circle bulge.
func tractBounds(vs []Vertex, pad float64) []Bounds {
	if len(vs) == 0 {
		return nil
	}
	ras := make([]float64, len(vs))
	decs := make([]float64, len(vs))
	minDec, maxDec := 90.0, -90.0
	for i, v := range vs {
		ras[i], decs[i] = v.RA, v.Dec
		minDec = math.Min(minDec, v.Dec)
		maxDec = math.Max(maxDec, v.Dec)
	}
	minDec = math.Max(-90, minDec-pad)
	maxDec = math.Min(90, maxDec+pad)

	switch sphere.EnclosedPole(ras, decs) {
	case 1:
		return []Bounds{{MinRA: 0, MaxRA: 360, MinDec: minDec, MaxDec: 90}}
	case -1:
		return []Bounds{{MinRA: 0, MaxRA: 360, MinDec: -90, MaxDec: maxDec}}
	}

	// Walk the boundary in unwrapped RA so a tract straddling RA 0 stays contiguous.
	lo, hi, cur := ras[0], ras[0], ras[0]
	for i := 1; i < len(ras); i++ {
		cur += sphere.DeltaRA(ras[i-1], ras[i])
		lo = math.Min(lo, cur)
		hi = math.Max(hi, cur)
	}
	lo -= pad
	hi += pad
	if hi-lo >= 360 {
		return []Bounds{{MinRA: 0, MaxRA: 360, MinDec: minDec, MaxDec: maxDec}}
	}
	switch {
	case lo < 0:
		return []Bounds{
			{MinRA: lo + 360, MaxRA: 360, MinDec: minDec, MaxDec: maxDec},
			{MinRA: 0, MaxRA: hi, MinDec: minDec, MaxDec: maxDec},
		}
	case hi > 360:
		return []Bounds{
			{MinRA: lo, MaxRA: 360, MinDec: minDec, MaxDec: maxDec},
			{MinRA: 0, MaxRA: hi - 360, MinDec: minDec, MaxDec: maxDec},
		}
	default:
		return []Bounds{{MinRA: lo, MaxRA: hi, MinDec: minDec, MaxDec: maxDec}}
	}
}
