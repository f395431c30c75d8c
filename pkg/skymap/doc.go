// Package skymap converts sky tessellations into compact binary formats and
// reads them back with random access by tract.
//
// A skymap partitions the celestial sphere into tracts, spherical polygons
// grouped into rings of roughly constant declination. Tracts are numbered
// contiguously ring by ring, so a tract index alone identifies its ring.
//
// # Basic Usage
//
//	sky, err := skymap.LoadPickle("skyMap.pickle")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Every vertex stored explicitly
//	err = skymap.WriteFile("skymap.fv", &skymap.FullVertexWriter{Width: skymap.Float64}, sky)
//
//	// One shape per ring plus a rotation per tract
//	err = skymap.WriteFile("skymap.ro", &skymap.RingOptimizedWriter{}, sky)
//
// # Formats
//
// The full-vertex format stores each tract's (RA, Dec) vertices at float32 or
// float64 width behind a directory of absolute byte offsets. It makes no
// assumption about the tessellation.
//
// The ring-optimized format stores the first tract of each ring as the ring
// shape and, for every tract, the rotation about the polar axis that carries
// the shape onto it. It only applies when every ring is uniform; the writer
// verifies this for every vertex and fails with *NonUniformRingError
// otherwise. Callers that need a fallback retry with the full-vertex format:
//
//	err := skymap.WriteFile(path, &skymap.RingOptimizedWriter{}, sky)
//	var nonUniform *skymap.NonUniformRingError
//	if errors.As(err, &nonUniform) {
//	    err = skymap.WriteFile(path, &skymap.FullVertexWriter{}, sky)
//	}
//
// Both formats are little-endian and start with a 4-byte magic tag and a
// version number. Neither format is self-describing beyond that tag: the
// caller chooses the reader.
//
// # Reading
//
// Readers work over any io.ReaderAt and hold no cursor, so a single reader
// serves concurrent goroutines:
//
//	f, err := skymap.OpenFile("skymap.ro", skymap.FormatRingOptimized)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer f.Close()
//
//	vs, err := f.Vertices(1234)
//	for tract, err := range f.Tracts() {
//	    // ...
//	}
//
// # Ring Iteration
//
// IterateTractAndRing and RingLayout enumerate (ring, tract) positions from
// per-ring tract counts. RingLayout.Locate maps a tract to its ring in
// constant time.
//
// # Spatial Lookup
//
// TractIndex finds the tracts containing a sky position using an R-tree over
// tract bounding boxes, refined by an exact spherical containment test.
// TractCache keeps recently decoded tracts in memory in front of any Reader.
//
// # Error Handling
//
// Failures are reported as typed errors that carry their context:
// *LoadError, *FormatError, *NonUniformRingError, *VersionMismatchError,
// *CorruptHeaderError, *MissingRingError and *IndexError. Match them with
// errors.As.
package skymap
