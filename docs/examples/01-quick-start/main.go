package main

import (
	"fmt"
	"log"

	"github.com/beetlebugorg/skymap/pkg/skymap"
)

func main() {
	// Load legacy skymap
	sky, err := skymap.LoadPickle("skyMap.pickle")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Tracts: %d\n", sky.TractCount())
	fmt.Printf("Rings: %d\n", sky.Rings.RingCount())

	// Write both formats
	if err := skymap.WriteFile("skymap.fv", &skymap.FullVertexWriter{Width: skymap.Float64}, sky); err != nil {
		log.Fatal(err)
	}
	if err := skymap.WriteFile("skymap.ro", &skymap.RingOptimizedWriter{}, sky); err != nil {
		log.Fatal(err)
	}

	// Read one tract back
	f, err := skymap.OpenFile("skymap.ro", skymap.FormatRingOptimized)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	vs, err := f.Vertices(0)
	if err != nil {
		log.Fatal(err)
	}
	for _, v := range vs {
		fmt.Printf("  RA %.6f Dec %.6f\n", v.RA, v.Dec)
	}
}
