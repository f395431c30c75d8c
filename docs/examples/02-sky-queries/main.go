package main

import (
	"fmt"
	"log"

	"github.com/beetlebugorg/skymap/pkg/skymap"
)

func main() {
	f, err := skymap.OpenFile("skymap.ro", skymap.FormatRingOptimized)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	// Build R-tree over tract bounds (decodes every tract once)
	idx, err := skymap.BuildTractIndex(f)
	if err != nil {
		log.Fatal(err)
	}

	layout, err := f.RingOptimized().Rings()
	if err != nil {
		log.Fatal(err)
	}

	// Tracts containing the COSMOS field centre
	for _, tract := range idx.Locate(150.1, 2.2) {
		ring, offset, err := layout.Locate(tract)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Tract %d (ring %d, position %d)\n", tract, ring, offset)
	}

	// Tracts overlapping a field of view
	fov := skymap.Bounds{
		MinRA: 149.5, MaxRA: 150.7,
		MinDec: 1.6, MaxDec: 2.8,
	}
	fmt.Printf("Tracts in field: %v\n", idx.Search(fov))
}

