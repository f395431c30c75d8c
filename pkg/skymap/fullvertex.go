package skymap

import (
	"fmt"
	"io"
	"iter"
	"math"

	"github.com/pkg/errors"
)

// Full-vertex layout, little-endian:
//
//	header    : magic "SKFV" | version u16 | width u8 | reserved u8 | tract_count u32
//	directory : tract_count x { byte_offset u64, vertex_count u32 }
//	body      : per tract, vertex_count x { ra, dec } at the declared width
//
// Byte offsets are absolute. Coordinates are (RA, Dec) in degrees.
const (
	fullVertexVersion    uint16 = 1
	fullVertexHeaderSize        = 12
	fullVertexDirEntry          = 12
)

var fullVertexMagic = [4]byte{'S', 'K', 'F', 'V'}

// FullVertexWriter encodes every tract's vertices explicitly.
//
// The encoding makes no assumption about the tessellation and round-trips
// coordinates exactly at the chosen width.
type FullVertexWriter struct {
	// Width is the coordinate width. Zero means Float64.
	Width VertexWidth
}

// Write validates sky and writes its full-vertex encoding to w.
//
// Fails with *FormatError, before writing anything, when a tract has fewer
// than 3 vertices or a coordinate is outside its valid range.
func (fw *FullVertexWriter) Write(w io.Writer, sky *Skymap) error {
	data, err := fw.Encode(sky)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return errors.Wrap(err, "write full-vertex stream")
	}
	return nil
}

// Encode validates sky and returns its full-vertex encoding.
func (fw *FullVertexWriter) Encode(sky *Skymap) ([]byte, error) {
	width := fw.Width
	if width == 0 {
		width = Float64
	}
	if width.Size() == 0 {
		return nil, errors.Errorf("unsupported vertex width %d", width)
	}
	if err := sky.Validate(); err != nil {
		return nil, err
	}
	if uint64(len(sky.Tracts)) > math.MaxUint32 {
		return nil, &FormatError{Tract: -1, Vertex: -1, Reason: "too many tracts"}
	}

	recSize := 2 * width.Size()
	total := fullVertexHeaderSize + fullVertexDirEntry*len(sky.Tracts)
	for _, t := range sky.Tracts {
		total += recSize * len(t.Vertices)
	}

	b := make([]byte, 0, total)
	b = append(b, fullVertexMagic[:]...)
	b = le.AppendUint16(b, fullVertexVersion)
	b = append(b, byte(width), 0)
	b = le.AppendUint32(b, uint32(len(sky.Tracts)))

	offset := uint64(fullVertexHeaderSize + fullVertexDirEntry*len(sky.Tracts))
	for _, t := range sky.Tracts {
		b = le.AppendUint64(b, offset)
		b = le.AppendUint32(b, uint32(len(t.Vertices)))
		offset += uint64(recSize * len(t.Vertices))
	}
	for _, t := range sky.Tracts {
		for _, v := range t.Vertices {
			b = appendFloat(b, narrowRA(v.RA, width), width)
			b = appendFloat(b, v.Dec, width)
		}
	}
	return b, nil
}

// narrowRA keeps ra inside [0, 360) at the stored width. RA just below 360
// rounds up to 360 in float32 and is stored as 0.
func narrowRA(ra float64, w VertexWidth) float64 {
	if w == Float32 && float32(ra) >= 360 {
		return 0
	}
	return ra
}

// FullVertexReader decodes a full-vertex stream with random access by tract.
//
// The directory is loaded and bounds-checked when the reader is opened;
// vertices are read on demand. A FullVertexReader holds no cursor and is safe
// for concurrent use if the underlying io.ReaderAt is.
type FullVertexReader struct {
	r       io.ReaderAt
	size    int64
	width   VertexWidth
	offsets []uint64
	counts  []uint32
}

// OpenFullVertex validates the header and directory of a full-vertex stream.
//
// Fails with *CorruptHeaderError when the magic tag, width or directory is
// invalid or does not fit in size bytes, and *VersionMismatchError when the
// stream was written by another format version.
func OpenFullVertex(r io.ReaderAt, size int64) (*FullVertexReader, error) {
	if size < fullVertexHeaderSize {
		return nil, &CorruptHeaderError{Format: FormatFullVertex,
			Reason: fmt.Sprintf("stream is %d bytes, header needs %d", size, fullVertexHeaderSize)}
	}
	hdr, err := readFull(r, 0, fullVertexHeaderSize, FormatFullVertex, "header")
	if err != nil {
		return nil, err
	}
	if [4]byte(hdr[0:4]) != fullVertexMagic {
		return nil, &CorruptHeaderError{Format: FormatFullVertex,
			Reason: fmt.Sprintf("bad magic %q (expected %q)", hdr[0:4], fullVertexMagic[:])}
	}
	if v := le.Uint16(hdr[4:6]); v != fullVertexVersion {
		return nil, &VersionMismatchError{Format: FormatFullVertex, Expected: fullVertexVersion, Found: v}
	}
	width := VertexWidth(hdr[6])
	if width.Size() == 0 {
		return nil, &CorruptHeaderError{Format: FormatFullVertex,
			Reason: fmt.Sprintf("unknown vertex width code %d", hdr[6])}
	}
	count := int64(le.Uint32(hdr[8:12]))

	dirEnd := fullVertexHeaderSize + fullVertexDirEntry*count
	if dirEnd > size {
		return nil, &CorruptHeaderError{Format: FormatFullVertex,
			Reason: fmt.Sprintf("directory of %d tracts ends at byte %d past stream size %d", count, dirEnd, size)}
	}
	dir, err := readFull(r, fullVertexHeaderSize, int(dirEnd-fullVertexHeaderSize), FormatFullVertex, "directory")
	if err != nil {
		return nil, err
	}

	recSize := uint64(2 * width.Size())
	fr := &FullVertexReader{
		r:       r,
		size:    size,
		width:   width,
		offsets: make([]uint64, count),
		counts:  make([]uint32, count),
	}
	for i := range fr.offsets {
		e := dir[i*fullVertexDirEntry:]
		off := le.Uint64(e[0:8])
		n := le.Uint32(e[8:12])
		if n < 3 {
			return nil, &CorruptHeaderError{Format: FormatFullVertex,
				Reason: fmt.Sprintf("tract %d has %d vertices, need at least 3", i, n)}
		}
		end := off + uint64(n)*recSize
		if off < uint64(dirEnd) || end < off || end > uint64(size) {
			return nil, &CorruptHeaderError{Format: FormatFullVertex,
				Reason: fmt.Sprintf("tract %d spans bytes [%d, %d) outside body [%d, %d)", i, off, end, dirEnd, size)}
		}
		fr.offsets[i] = off
		fr.counts[i] = n
	}
	return fr, nil
}

// TractCount returns the number of tracts in the stream.
func (fr *FullVertexReader) TractCount() int { return len(fr.offsets) }

// Width returns the stored coordinate width.
func (fr *FullVertexReader) Width() VertexWidth { return fr.width }

// VertexCount returns the number of vertices of a tract.
func (fr *FullVertexReader) VertexCount(tract int) (int, error) {
	if tract < 0 || tract >= len(fr.counts) {
		return 0, tractIndexError(tract, len(fr.counts))
	}
	return int(fr.counts[tract]), nil
}

// Vertices decodes the boundary of a tract with one positioned read.
func (fr *FullVertexReader) Vertices(tract int) ([]Vertex, error) {
	if tract < 0 || tract >= len(fr.offsets) {
		return nil, tractIndexError(tract, len(fr.offsets))
	}
	n := int(fr.counts[tract])
	fs := fr.width.Size()
	b, err := readFull(fr.r, int64(fr.offsets[tract]), 2*fs*n, FormatFullVertex, fmt.Sprintf("tract %d", tract))
	if err != nil {
		return nil, err
	}
	vs := make([]Vertex, n)
	for i := range vs {
		rec := b[2*fs*i:]
		vs[i] = Vertex{
			RA:  readFloat(rec, fr.width),
			Dec: readFloat(rec[fs:], fr.width),
		}
	}
	return vs, nil
}

// Tracts yields every tract in index order, stopping at the first error.
func (fr *FullVertexReader) Tracts() iter.Seq2[Tract, error] {
	return func(yield func(Tract, error) bool) {
		for i := range fr.offsets {
			vs, err := fr.Vertices(i)
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
