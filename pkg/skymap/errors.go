package skymap

import (
	"fmt"
)

// LoadError indicates the legacy skymap input could not be turned into a Skymap.
type LoadError struct {
	Source string // File path or "<stream>"
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load legacy skymap %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// FormatError indicates a writer was handed geometrically invalid input.
type FormatError struct {
	Tract  int // -1 when the problem is not tied to a tract
	Vertex int // -1 when the problem is not tied to a vertex
	Reason string
}

func (e *FormatError) Error() string {
	switch {
	case e.Tract < 0:
		return fmt.Sprintf("invalid skymap: %s", e.Reason)
	case e.Vertex < 0:
		return fmt.Sprintf("invalid tract %d: %s", e.Tract, e.Reason)
	default:
		return fmt.Sprintf("invalid tract %d vertex %d: %s", e.Tract, e.Vertex, e.Reason)
	}
}

// NonUniformRingError indicates a ring whose tracts are not congruent up to a
// rotation about the polar axis, so the ring-optimized encoding cannot represent it.
type NonUniformRingError struct {
	Ring       int
	Tract      int
	Vertex     int     // -1 for a vertex count mismatch
	Separation float64 // Degrees between reconstructed and actual vertex
	Tolerance  float64
	Reason     string
}

func (e *NonUniformRingError) Error() string {
	if e.Vertex < 0 {
		return fmt.Sprintf("ring %d is not uniform: tract %d: %s", e.Ring, e.Tract, e.Reason)
	}
	return fmt.Sprintf("ring %d is not uniform: tract %d vertex %d is %.3g deg from the ring shape (tolerance %.3g deg)",
		e.Ring, e.Tract, e.Vertex, e.Separation, e.Tolerance)
}

// VersionMismatchError indicates a stream written by an unsupported format version.
type VersionMismatchError struct {
	Format   Format
	Expected uint16
	Found    uint16
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("%s: unsupported version %d (expected %d)", e.Format, e.Found, e.Expected)
}

// CorruptHeaderError indicates a stream whose header or directory cannot be trusted.
type CorruptHeaderError struct {
	Format Format
	Reason string
}

func (e *CorruptHeaderError) Error() string {
	return fmt.Sprintf("%s: corrupt header: %s", e.Format, e.Reason)
}

// MissingRingError indicates a tract referencing a ring with no stored shape.
type MissingRingError struct {
	Tract     int
	Ring      int
	RingCount int
}

func (e *MissingRingError) Error() string {
	return fmt.Sprintf("tract %d references ring %d but only %d ring shapes are stored",
		e.Tract, e.Ring, e.RingCount)
}

// IndexError indicates a tract or ring index outside its valid range.
type IndexError struct {
	Kind  string // "tract" or "ring"
	Index int
	Limit int // Valid range is [0, Limit)
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("%s index %d out of range [0, %d)", e.Kind, e.Index, e.Limit)
}

func tractIndexError(index, limit int) error {
	return &IndexError{Kind: "tract", Index: index, Limit: limit}
}

func ringIndexError(index, limit int) error {
	return &IndexError{Kind: "ring", Index: index, Limit: limit}
}
