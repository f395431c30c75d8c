package skymap

import (
	"slices"

	"github.com/dhconnelly/rtreego"

	"github.com/beetlebugorg/skymap/internal/sphere"
)

// TractIndex answers "which tract covers this position" without decoding
// every tract.
//
// The index stores an RA/Dec bounding box per tract in an R-tree. Boxes are
// computed from the densified great-circle boundary, split at RA 0 and
// extended to the pole for polar caps. Candidates from the R-tree are
// confirmed with an exact spherical point-in-polygon test, which assumes
// convex tracts.
//
// Example:
//
//	f, err := skymap.OpenFile("skymap.ro", skymap.FormatRingOptimized)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer f.Close()
//
//	idx, err := skymap.BuildTractIndex(f)
//	tracts := idx.Locate(150.1, 2.2)
type TractIndex struct {
	rtree  *rtreego.Rtree
	tracts []*indexedTract
}

// indexedTract wraps one bounding box of a tract for R-tree storage.
type indexedTract struct {
	tract   int
	bounds  Bounds
	polygon []sphere.Vec
}

// Bounds implements rtreego.Spatial interface.
func (t *indexedTract) Bounds() rtreego.Rect {
	return boundsRect(t.bounds)
}

func boundsRect(b Bounds) rtreego.Rect {
	point := rtreego.Point{b.MinRA, b.MinDec}

	// R-tree requires non-zero dimensions
	const epsilon = 1e-9
	raLength := b.MaxRA - b.MinRA
	decLength := b.MaxDec - b.MinDec
	if raLength < epsilon {
		raLength = epsilon
	}
	if decLength < epsilon {
		decLength = epsilon
	}
	rect, _ := rtreego.NewRect(point, []float64{raLength, decLength})
	return rect
}

const (
	edgeSamples = 8    // Interpolated points per boundary edge
	boundsPad   = 0.05 // Degrees added around each box
)

// BuildTractIndex decodes every tract of r once and indexes it.
func BuildTractIndex(r Reader) (*TractIndex, error) {
	// Create R-tree (2D, min=25 children, max=50 children)
	rtree := rtreego.NewTree(2, 25, 50)
	idx := &TractIndex{rtree: rtree}

	for t, err := range r.Tracts() {
		if err != nil {
			return nil, err
		}
		idx.insert(t)
	}
	return idx, nil
}

// IndexSkymap indexes an in-memory skymap.
func IndexSkymap(sky *Skymap) *TractIndex {
	idx := &TractIndex{rtree: rtreego.NewTree(2, 25, 50)}
	for _, t := range sky.Tracts {
		idx.insert(t)
	}
	return idx
}

func (idx *TractIndex) insert(t Tract) {
	poly := make([]sphere.Vec, len(t.Vertices))
	for i, v := range t.Vertices {
		poly[i] = sphere.ToVector(v.RA, v.Dec)
	}
	for _, b := range tractBounds(densify(poly), boundsPad) {
		entry := &indexedTract{tract: t.ID, bounds: b, polygon: poly}
		idx.rtree.Insert(entry)
		idx.tracts = append(idx.tracts, entry)
	}
}

// densify samples each great-circle edge so the RA/Dec box captures the
// poleward bulge of the edge.
func densify(poly []sphere.Vec) []Vertex {
	out := make([]Vertex, 0, len(poly)*edgeSamples)
	for i := range poly {
		a, b := poly[i], poly[(i+1)%len(poly)]
		for s := 0; s < edgeSamples; s++ {
			f := float64(s) / edgeSamples
			p := sphere.Vec{
				a[0]*(1-f) + b[0]*f,
				a[1]*(1-f) + b[1]*f,
				a[2]*(1-f) + b[2]*f,
			}
			ra, dec := sphere.FromVector(p)
			out = append(out, Vertex{RA: ra, Dec: dec})
		}
	}
	return out
}

// Locate returns the tracts whose polygon contains (ra, dec), in ascending
// order. Neighbouring tracts overlap, so more than one tract may be returned.
func (idx *TractIndex) Locate(ra, dec float64) []int {
	ra = sphere.WrapRA(ra)
	p := sphere.ToVector(ra, dec)
	query := boundsRect(Bounds{MinRA: ra, MaxRA: ra, MinDec: dec, MaxDec: dec})

	var result []int
	for _, spatial := range idx.rtree.SearchIntersect(query) {
		entry := spatial.(*indexedTract)
		if sphere.ConvexContains(entry.polygon, p) {
			result = append(result, entry.tract)
		}
	}
	slices.Sort(result)
	return slices.Compact(result)
}

// Search returns the tracts whose bounding box intersects b, in ascending
// order. b must not cross RA 0; split such queries in two.
func (idx *TractIndex) Search(b Bounds) []int {
	var result []int
	for _, spatial := range idx.rtree.SearchIntersect(boundsRect(b)) {
		result = append(result, spatial.(*indexedTract).tract)
	}
	slices.Sort(result)
	return slices.Compact(result)
}

// Bounds returns the bounding boxes stored for a tract. Tracts crossing RA 0
// have two.
func (idx *TractIndex) Bounds(tract int) []Bounds {
	var out []Bounds
	for _, e := range idx.tracts {
		if e.tract == tract {
			out = append(out, e.bounds)
		}
	}
	return out
}

// Size returns the number of boxes in the index.
func (idx *TractIndex) Size() int {
	return idx.rtree.Size()
}
