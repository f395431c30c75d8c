package main

import (
	"errors"
	"fmt"
	"log"

	"github.com/beetlebugorg/skymap/pkg/skymap"
)

// writeCompact writes the ring-optimized format when every ring is uniform and
// falls back to the full-vertex format otherwise.
func writeCompact(path string, sky *skymap.Skymap) (skymap.Format, error) {
	err := skymap.WriteFile(path, &skymap.RingOptimizedWriter{Tolerance: 1e-6}, sky)

	var nonUniform *skymap.NonUniformRingError
	if errors.As(err, &nonUniform) {
		log.Printf("Ring %d is not uniform (tract %d): %v", nonUniform.Ring, nonUniform.Tract, err)
		return skymap.FormatFullVertex, skymap.WriteFile(path, &skymap.FullVertexWriter{}, sky)
	}
	return skymap.FormatRingOptimized, err
}

func main() {
	sky, err := skymap.LoadPickle("skyMap.pickle")
	if err != nil {
		var loadErr *skymap.LoadError
		if errors.As(err, &loadErr) {
			log.Fatalf("Cannot read %s: %v", loadErr.Source, loadErr.Err)
		}
		log.Fatal(err)
	}

	format, err := writeCompact("skymap.bin", sky)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Wrote %s\n", format)

	// Opening with the wrong reader fails on the header
	_, err = skymap.OpenFile("skymap.bin", skymap.FormatRingOptimized)
	var corrupt *skymap.CorruptHeaderError
	var version *skymap.VersionMismatchError
	switch {
	case errors.As(err, &corrupt):
		log.Printf("Not a ring-optimized file: %s", corrupt.Reason)
	case errors.As(err, &version):
		log.Printf("Written by format version %d", version.Found)
	case err != nil:
		log.Fatal(err)
	}

	// Out-of-range tract indices are reported, not clamped
	f, err := skymap.OpenFile("skymap.bin", format)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	_, err = f.Vertices(f.TractCount())
	var indexErr *skymap.IndexError
	if errors.As(err, &indexErr) {
		fmt.Printf("Tract %d out of range [0, %d)\n", indexErr.Index, indexErr.Limit)
	}
}
