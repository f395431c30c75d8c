package skymap

import (
	"bytes"
	"encoding/binary"
	"io"
	"iter"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/edsrzf/mmap-go"
	"github.com/pkg/errors"
)

// Format selects one of the two binary encodings.
type Format int

const (
	// FormatFullVertex stores every tract's vertices explicitly.
	FormatFullVertex Format = iota + 1

	// FormatRingOptimized stores one shape per ring plus a rotation per tract.
	FormatRingOptimized
)

// String returns the format name used on the command line and in errors.
func (f Format) String() string {
	switch f {
	case FormatFullVertex:
		return "full-vertex"
	case FormatRingOptimized:
		return "ring-optimized"
	default:
		return "unknown"
	}
}

// ParseFormat parses a format name as returned by Format.String.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "full-vertex", "fullvertex", "full":
		return FormatFullVertex, nil
	case "ring-optimized", "ringoptimized", "ring":
		return FormatRingOptimized, nil
	default:
		return 0, errors.Errorf("unknown format %q (expected full-vertex or ring-optimized)", s)
	}
}

// VertexWidth is the floating-point width of stored full-vertex coordinates.
type VertexWidth uint8

const (
	Float32 VertexWidth = 1
	Float64 VertexWidth = 2
)

// Size returns the byte width of one coordinate, or 0 for an unknown width.
func (w VertexWidth) Size() int {
	switch w {
	case Float32:
		return 4
	case Float64:
		return 8
	default:
		return 0
	}
}

func (w VertexWidth) String() string {
	switch w {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	default:
		return "unknown"
	}
}

// ParseVertexWidth parses "float32" or "float64".
func ParseVertexWidth(s string) (VertexWidth, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "float32", "f32", "32":
		return Float32, nil
	case "float64", "f64", "64", "":
		return Float64, nil
	default:
		return 0, errors.Errorf("unknown vertex width %q (expected float32 or float64)", s)
	}
}

// DefaultTolerance is the default ring-uniformity tolerance in degrees.
const DefaultTolerance = 1e-6

// Reader is the read capability shared by both codecs.
//
// Implementations hold no cursor: every call is independent and a single
// Reader may be used from several goroutines.
type Reader interface {
	// TractCount returns the number of tracts in the stream.
	TractCount() int

	// VertexCount returns the number of vertices of a tract.
	VertexCount(tract int) (int, error)

	// Vertices decodes the boundary of a tract. The returned slice is complete
	// or an error is returned; it is never partially filled.
	Vertices(tract int) ([]Vertex, error)

	// Tracts yields every tract in index order. Ranging over the sequence again
	// restarts from tract 0.
	Tracts() iter.Seq2[Tract, error]
}

// Writer is the write capability shared by both codecs.
type Writer interface {
	// Write validates and encodes sky, then writes the encoding to w in one call.
	// Nothing is written when validation fails.
	Write(w io.Writer, sky *Skymap) error
}

// WriterOptions configures the writers returned by Format.Writer.
type WriterOptions struct {
	// Width is the coordinate width of the full-vertex format.
	// Default: Float64
	Width VertexWidth

	// Tolerance is the maximum angular error in degrees allowed between a
	// tract and its ring-optimized reconstruction.
	// Default: DefaultTolerance
	Tolerance float64
}

// DefaultWriterOptions returns writer options with defaults.
func DefaultWriterOptions() WriterOptions {
	return WriterOptions{
		Width:     Float64,
		Tolerance: DefaultTolerance,
	}
}

// Writer returns the writer for the format.
func (f Format) Writer(opts WriterOptions) (Writer, error) {
	switch f {
	case FormatFullVertex:
		return &FullVertexWriter{Width: opts.Width}, nil
	case FormatRingOptimized:
		return &RingOptimizedWriter{Tolerance: opts.Tolerance}, nil
	default:
		return nil, errors.Errorf("unknown format %d", int(f))
	}
}

// Open opens a reader of the format over r, which holds size bytes.
func (f Format) Open(r io.ReaderAt, size int64) (Reader, error) {
	switch f {
	case FormatFullVertex:
		return OpenFullVertex(r, size)
	case FormatRingOptimized:
		return OpenRingOptimized(r, size)
	default:
		return nil, errors.Errorf("unknown format %d", int(f))
	}
}

// WriteFile encodes sky with w and atomically replaces path with the result.
//
// The encoding is built in memory and written to a temporary file next to
// path, which is synced and renamed over path. On any failure path is left
// untouched and the temporary file is removed.
//
// Example:
//
//	w := &skymap.RingOptimizedWriter{Tolerance: 1e-6}
//	if err := skymap.WriteFile("skymap.ro", w, sky); err != nil {
//	    var nonUniform *skymap.NonUniformRingError
//	    if errors.As(err, &nonUniform) {
//	        // fall back to the full-vertex format
//	    }
//	}
func WriteFile(path string, w Writer, sky *Skymap) (err error) {
	var buf bytes.Buffer
	if err := w.Write(&buf, sky); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "create temporary file")
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(buf.Bytes()); err != nil {
		return errors.Wrapf(err, "write %s", tmp.Name())
	}
	if err = tmp.Sync(); err != nil {
		return errors.Wrapf(err, "sync %s", tmp.Name())
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrapf(err, "close %s", tmp.Name())
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(err, "rename to %s", path)
	}
	return nil
}

// File is a codec reader over a memory-mapped file.
type File struct {
	Reader

	format Format
	size   int64
	data   mmap.MMap
	file   *os.File
}

// OpenFile memory-maps path and opens the reader for format over it.
//
// The caller selects the format; the header is validated against it.
// Close releases the mapping.
func OpenFile(path string, format Format) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open skymap file")
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "stat %s", path)
	}
	if info.Size() == 0 {
		f.Close()
		return nil, &CorruptHeaderError{Format: format, Reason: "file is empty"}
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "mmap %s", path)
	}

	r, err := format.Open(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		data.Unmap()
		f.Close()
		return nil, err
	}

	return &File{
		Reader: r,
		format: format,
		size:   int64(len(data)),
		data:   data,
		file:   f,
	}, nil
}

// Format returns the format the file was opened with.
func (f *File) Format() Format { return f.format }

// Size returns the file size in bytes.
func (f *File) Size() int64 { return f.size }

// FullVertex returns the full-vertex reader, or nil for another format.
func (f *File) FullVertex() *FullVertexReader {
	r, _ := f.Reader.(*FullVertexReader)
	return r
}

// RingOptimized returns the ring-optimized reader, or nil for another format.
func (f *File) RingOptimized() *RingOptimizedReader {
	r, _ := f.Reader.(*RingOptimizedReader)
	return r
}

// Close unmaps and closes the file. The reader must not be used afterwards.
func (f *File) Close() error {
	uerr := f.data.Unmap()
	cerr := f.file.Close()
	if uerr != nil {
		return errors.Wrap(uerr, "unmap")
	}
	return cerr
}

// ReadSkymap decodes every tract of r into a Skymap with the given ring layout
// (which may be nil).
func ReadSkymap(r Reader, rings *RingLayout) (*Skymap, error) {
	if rings != nil && rings.TractCount() != r.TractCount() {
		return nil, errors.Errorf("ring layout covers %d tracts but reader has %d", rings.TractCount(), r.TractCount())
	}
	sky := &Skymap{
		Tracts: make([]Tract, 0, r.TractCount()),
		Rings:  rings,
	}
	for t, err := range r.Tracts() {
		if err != nil {
			return nil, err
		}
		sky.Tracts = append(sky.Tracts, t)
	}
	return sky, nil
}

// EncodedSize returns the number of bytes format would produce for sky.
func EncodedSize(format Format, sky *Skymap, opts WriterOptions) (int64, error) {
	w, err := format.Writer(opts)
	if err != nil {
		return 0, err
	}
	var c countingWriter
	if err := w.Write(&c, sky); err != nil {
		return 0, err
	}
	return c.n, nil
}

type countingWriter struct{ n int64 }

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return len(p), nil
}

// readFull reads exactly n bytes at off, treating a short read as corruption.
func readFull(r io.ReaderAt, off int64, n int, format Format, what string) ([]byte, error) {
	b := make([]byte, n)
	got, err := r.ReadAt(b, off)
	if got < n {
		if err == nil || err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, &CorruptHeaderError{Format: format,
				Reason: "truncated " + what}
		}
		return nil, errors.Wrapf(err, "read %s", what)
	}
	return b, nil
}

var le = binary.LittleEndian

func appendFloat(b []byte, v float64, w VertexWidth) []byte {
	if w == Float32 {
		return le.AppendUint32(b, math.Float32bits(float32(v)))
	}
	return le.AppendUint64(b, math.Float64bits(v))
}

func readFloat(b []byte, w VertexWidth) float64 {
	if w == Float32 {
		return float64(math.Float32frombits(le.Uint32(b)))
	}
	return math.Float64frombits(le.Uint64(b))
}
