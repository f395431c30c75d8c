package skymap

import (
	"fmt"
	"io"
	"iter"
	"math"
	"slices"

	"github.com/pkg/errors"

	"github.com/beetlebugorg/skymap/internal/sphere"
)

// Ring-optimized layout, little-endian:
//
//	header      : magic "SKRO" | version u16 | reserved u16 | ring_count u32 | tract_count u32
//	shape table : ring_count x { vertex_count u32, vertex_count x { ra f64, dec f64 } }
//	tract table : tract_count x { ring_index u32, rotation f64 }
//
// Version 1 convention: the shape of a ring is its first tract, stored
// verbatim, so the ring-local frame coincides with the sky frame for that
// tract. A tract is reconstructed by rotating the shape about the polar axis:
// RA = WrapRA(shapeRA + rotation), Dec = shapeDec, vertex order unchanged.
// Rotation is in degrees, positive towards increasing RA, in [0, 360).
// Changing any part of this convention requires a new version number.
const (
	ringOptimizedVersion    uint16 = 1
	ringOptimizedHeaderSize        = 16
	ringShapeVertexSize            = 16
	ringTransformSize              = 12
)

var ringOptimizedMagic = [4]byte{'S', 'K', 'R', 'O'}

// RingShape is the canonical polygon shared by all tracts of a ring.
type RingShape struct {
	Ring     int
	Vertices []Vertex
}

// TractTransform maps a ring shape onto one tract.
type TractTransform struct {
	Ring     int
	Rotation float64 // Degrees about the polar axis, in [0, 360)
}

// Apply returns the shape rotated into the tract's frame.
func (tf TractTransform) Apply(shape []Vertex) []Vertex {
	out := make([]Vertex, len(shape))
	for i, v := range shape {
		out[i] = rotateVertex(v, tf.Rotation)
	}
	return out
}

func rotateVertex(v Vertex, rotation float64) Vertex {
	return Vertex{RA: sphere.WrapRA(v.RA + rotation), Dec: v.Dec}
}

// RingOptimizedWriter encodes one shape per ring and one rotation per tract.
//
// It requires every tract in a ring to be congruent to the ring's first tract
// up to a rotation about the polar axis. The precondition is verified for
// every vertex before anything is written.
type RingOptimizedWriter struct {
	// Tolerance is the largest allowed angular error in degrees between a
	// tract vertex and its reconstruction. Zero means DefaultTolerance;
	// negative values are rejected.
	Tolerance float64
}

// Write validates sky, verifies ring uniformity and writes the ring-optimized
// encoding to w.
//
// Fails with *FormatError for invalid geometry or a missing ring layout and
// with *NonUniformRingError when a tract does not match its ring shape.
// Nothing is written on failure.
func (rw *RingOptimizedWriter) Write(w io.Writer, sky *Skymap) error {
	data, err := rw.Encode(sky)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return errors.Wrap(err, "write ring-optimized stream")
	}
	return nil
}

// Encode validates sky and returns its ring-optimized encoding.
func (rw *RingOptimizedWriter) Encode(sky *Skymap) ([]byte, error) {
	shapes, transforms, err := rw.Tables(sky)
	if err != nil {
		return nil, err
	}

	total := ringOptimizedHeaderSize + ringTransformSize*len(transforms)
	for _, s := range shapes {
		total += 4 + ringShapeVertexSize*len(s.Vertices)
	}

	b := make([]byte, 0, total)
	b = append(b, ringOptimizedMagic[:]...)
	b = le.AppendUint16(b, ringOptimizedVersion)
	b = le.AppendUint16(b, 0)
	b = le.AppendUint32(b, uint32(len(shapes)))
	b = le.AppendUint32(b, uint32(len(transforms)))
	for _, s := range shapes {
		b = le.AppendUint32(b, uint32(len(s.Vertices)))
		for _, v := range s.Vertices {
			b = appendFloat(b, v.RA, Float64)
			b = appendFloat(b, v.Dec, Float64)
		}
	}
	for _, tf := range transforms {
		b = le.AppendUint32(b, uint32(tf.Ring))
		b = appendFloat(b, tf.Rotation, Float64)
	}
	return b, nil
}

// Tables derives the shape table and the per-tract transform table without
// encoding them.
func (rw *RingOptimizedWriter) Tables(sky *Skymap) ([]RingShape, []TractTransform, error) {
	tol := rw.Tolerance
	if tol < 0 || math.IsNaN(tol) {
		return nil, nil, errors.Errorf("tolerance must be >= 0, got %v", tol)
	}
	if tol == 0 {
		tol = DefaultTolerance
	}
	if err := sky.Validate(); err != nil {
		return nil, nil, err
	}
	if sky.Rings == nil {
		return nil, nil, &FormatError{Tract: -1, Vertex: -1, Reason: "ring-optimized encoding needs a ring layout"}
	}
	if uint64(len(sky.Tracts)) > math.MaxUint32 || uint64(sky.Rings.RingCount()) > math.MaxUint32 {
		return nil, nil, &FormatError{Tract: -1, Vertex: -1, Reason: "too many tracts or rings"}
	}

	layout := sky.Rings
	shapes := make([]RingShape, layout.RingCount())
	transforms := make([]TractTransform, len(sky.Tracts))
	for ring := range shapes {
		start, _ := layout.RingStart(ring)
		ref := sky.Tracts[start].Vertices
		anchor := anchorVertex(ref)
		shapes[ring] = RingShape{Ring: ring, Vertices: slices.Clone(ref)}

		for pos := range layout.Ring(ring) {
			rot, err := fitRotation(ring, pos.Tract, ref, sky.Tracts[pos.Tract].Vertices, anchor, tol)
			if err != nil {
				return nil, nil, err
			}
			transforms[pos.Tract] = TractTransform{Ring: ring, Rotation: rot}
		}
	}
	return shapes, transforms, nil
}

// anchorVertex picks the shape vertex farthest from either pole, where RA
// differences are best conditioned. Ties go to the lowest index.
func anchorVertex(shape []Vertex) int {
	best, bestCos := 0, -1.0
	for i, v := range shape {
		if c := math.Cos(v.Dec * math.Pi / 180); c > bestCos {
			best, bestCos = i, c
		}
	}
	return best
}

// fitRotation estimates the rotation carrying shape onto tract and verifies
// every vertex against it.
func fitRotation(ring, tract int, shape, vs []Vertex, anchor int, tol float64) (float64, error) {
	if len(vs) != len(shape) {
		return 0, &NonUniformRingError{Ring: ring, Tract: tract, Vertex: -1, Tolerance: tol,
			Reason: fmt.Sprintf("has %d vertices, ring shape has %d", len(vs), len(shape))}
	}
	rot := sphere.WrapRA(vs[anchor].RA - shape[anchor].RA)
	for i, v := range shape {
		sep := rotateVertex(v, rot).Separation(vs[i])
		if !(sep <= tol) {
			return 0, &NonUniformRingError{Ring: ring, Tract: tract, Vertex: i,
				Separation: sep, Tolerance: tol}
		}
	}
	return rot, nil
}

// RingOptimizedReader reconstructs tracts from a ring-optimized stream.
//
// The shape table is decoded when the reader is opened; tract transforms are
// read on demand with one fixed-size positioned read each. A
// RingOptimizedReader holds no cursor and is safe for concurrent use if the
// underlying io.ReaderAt is.
type RingOptimizedReader struct {
	r          io.ReaderAt
	shapes     [][]Vertex
	tableOff   int64
	tractCount int
}

// OpenRingOptimized validates the header and decodes the shape table of a
// ring-optimized stream holding size bytes.
//
// Fails with *CorruptHeaderError when the magic tag is wrong or the tables do
// not exactly fill the stream, and *VersionMismatchError for another version.
func OpenRingOptimized(r io.ReaderAt, size int64) (*RingOptimizedReader, error) {
	if size < ringOptimizedHeaderSize {
		return nil, &CorruptHeaderError{Format: FormatRingOptimized,
			Reason: fmt.Sprintf("stream is %d bytes, header needs %d", size, ringOptimizedHeaderSize)}
	}
	hdr, err := readFull(r, 0, ringOptimizedHeaderSize, FormatRingOptimized, "header")
	if err != nil {
		return nil, err
	}
	if [4]byte(hdr[0:4]) != ringOptimizedMagic {
		return nil, &CorruptHeaderError{Format: FormatRingOptimized,
			Reason: fmt.Sprintf("bad magic %q (expected %q)", hdr[0:4], ringOptimizedMagic[:])}
	}
	if v := le.Uint16(hdr[4:6]); v != ringOptimizedVersion {
		return nil, &VersionMismatchError{Format: FormatRingOptimized, Expected: ringOptimizedVersion, Found: v}
	}
	ringCount := int64(le.Uint32(hdr[8:12]))
	tractCount := int64(le.Uint32(hdr[12:16]))

	minSize := ringOptimizedHeaderSize + 4*ringCount + ringTransformSize*tractCount
	if minSize > size {
		return nil, &CorruptHeaderError{Format: FormatRingOptimized,
			Reason: fmt.Sprintf("%d rings and %d tracts need at least %d bytes, stream has %d", ringCount, tractCount, minSize, size)}
	}

	shapes := make([][]Vertex, ringCount)
	off := int64(ringOptimizedHeaderSize)
	for ring := range shapes {
		b, err := readFull(r, off, 4, FormatRingOptimized, fmt.Sprintf("ring %d shape", ring))
		if err != nil {
			return nil, err
		}
		n := int64(le.Uint32(b))
		off += 4
		if n < 3 {
			return nil, &CorruptHeaderError{Format: FormatRingOptimized,
				Reason: fmt.Sprintf("ring %d shape has %d vertices", ring, n)}
		}
		if off+n*ringShapeVertexSize > size-ringTransformSize*tractCount {
			return nil, &CorruptHeaderError{Format: FormatRingOptimized,
				Reason: fmt.Sprintf("ring %d shape of %d vertices overruns the tract table", ring, n)}
		}
		b, err = readFull(r, off, int(n*ringShapeVertexSize), FormatRingOptimized, fmt.Sprintf("ring %d shape", ring))
		if err != nil {
			return nil, err
		}
		vs := make([]Vertex, n)
		for i := range vs {
			rec := b[i*ringShapeVertexSize:]
			vs[i] = Vertex{RA: readFloat(rec, Float64), Dec: readFloat(rec[8:], Float64)}
		}
		shapes[ring] = vs
		off += n * ringShapeVertexSize
	}

	if end := off + ringTransformSize*tractCount; end != size {
		return nil, &CorruptHeaderError{Format: FormatRingOptimized,
			Reason: fmt.Sprintf("tables end at byte %d but stream has %d bytes", end, size)}
	}

	return &RingOptimizedReader{
		r:          r,
		shapes:     shapes,
		tableOff:   off,
		tractCount: int(tractCount),
	}, nil
}

// TractCount returns the number of tracts in the stream.
func (rr *RingOptimizedReader) TractCount() int { return rr.tractCount }

// RingCount returns the number of stored ring shapes.
func (rr *RingOptimizedReader) RingCount() int { return len(rr.shapes) }

// RingShape returns a copy of the raw shared shape of a ring, in the
// ring-local frame.
func (rr *RingOptimizedReader) RingShape(ring int) ([]Vertex, error) {
	if ring < 0 || ring >= len(rr.shapes) {
		return nil, ringIndexError(ring, len(rr.shapes))
	}
	return slices.Clone(rr.shapes[ring]), nil
}

// Transform returns the stored ring index and rotation of a tract.
//
// Fails with *MissingRingError when the ring index has no stored shape.
func (rr *RingOptimizedReader) Transform(tract int) (TractTransform, error) {
	if tract < 0 || tract >= rr.tractCount {
		return TractTransform{}, tractIndexError(tract, rr.tractCount)
	}
	b, err := readFull(rr.r, rr.tableOff+int64(tract)*ringTransformSize, ringTransformSize,
		FormatRingOptimized, fmt.Sprintf("tract %d transform", tract))
	if err != nil {
		return TractTransform{}, err
	}
	return rr.decodeTransform(tract, b)
}

func (rr *RingOptimizedReader) decodeTransform(tract int, b []byte) (TractTransform, error) {
	ring := le.Uint32(b[0:4])
	rot := readFloat(b[4:], Float64)
	if uint64(ring) >= uint64(len(rr.shapes)) {
		return TractTransform{}, &MissingRingError{Tract: tract, Ring: int(ring), RingCount: len(rr.shapes)}
	}
	if math.IsNaN(rot) || math.IsInf(rot, 0) {
		return TractTransform{}, &CorruptHeaderError{Format: FormatRingOptimized,
			Reason: fmt.Sprintf("tract %d has rotation %v", tract, rot)}
	}
	return TractTransform{Ring: int(ring), Rotation: rot}, nil
}

// VertexCount returns the number of vertices of a tract.
func (rr *RingOptimizedReader) VertexCount(tract int) (int, error) {
	tf, err := rr.Transform(tract)
	if err != nil {
		return 0, err
	}
	return len(rr.shapes[tf.Ring]), nil
}

// Vertices reconstructs the boundary of a tract from its ring shape.
func (rr *RingOptimizedReader) Vertices(tract int) ([]Vertex, error) {
	tf, err := rr.Transform(tract)
	if err != nil {
		return nil, err
	}
	return tf.Apply(rr.shapes[tf.Ring]), nil
}

// Tracts yields every reconstructed tract in index order, stopping at the
// first error.
func (rr *RingOptimizedReader) Tracts() iter.Seq2[Tract, error] {
	return func(yield func(Tract, error) bool) {
		for i := 0; i < rr.tractCount; i++ {
			vs, err := rr.Vertices(i)
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

// Transforms reads the whole tract table in one pass.
func (rr *RingOptimizedReader) Transforms() ([]TractTransform, error) {
	b, err := readFull(rr.r, rr.tableOff, rr.tractCount*ringTransformSize, FormatRingOptimized, "tract table")
	if err != nil {
		return nil, err
	}
	out := make([]TractTransform, rr.tractCount)
	for i := range out {
		tf, err := rr.decodeTransform(i, b[i*ringTransformSize:])
		if err != nil {
			return nil, err
		}
		out[i] = tf
	}
	return out, nil
}

// Rings rebuilds the ring layout from the tract table.
//
// Fails when ring indices are not non-decreasing in tract order or a stored
// ring owns no tract, since such a table does not describe a ring partition.
func (rr *RingOptimizedReader) Rings() (*RingLayout, error) {
	tfs, err := rr.Transforms()
	if err != nil {
		return nil, err
	}
	sizes := make([]int, len(rr.shapes))
	prev := 0
	for i, tf := range tfs {
		if tf.Ring < prev {
			return nil, errors.Errorf("tract %d is in ring %d after a tract in ring %d", i, tf.Ring, prev)
		}
		prev = tf.Ring
		sizes[tf.Ring]++
	}
	for ring, n := range sizes {
		if n == 0 {
			return nil, errors.Errorf("ring %d has a shape but no tracts", ring)
		}
	}
	return NewRingLayout(sizes)
}
