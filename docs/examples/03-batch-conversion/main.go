package main

import (
	"context"
	"fmt"
	"log"

	"github.com/sirupsen/logrus"

	"github.com/beetlebugorg/skymap/pkg/skymap"
)

func main() {
	jobs := []skymap.ConvertJob{
		{Input: "hsc_rings_v1.pickle", FullVertex: "hsc.fv", RingOptimized: "hsc.ro"},
		{Input: "lsst_cells_v1.pickle", FullVertex: "lsst.fv", RingOptimized: "lsst.ro"},
	}

	opts := skymap.DefaultConvertOptions()
	opts.Workers = 2
	opts.Logger = logrus.WithField("example", "batch")
	opts.Progress = func(done, total int) {
		fmt.Printf("\rConverting: %d/%d", done, total)
	}

	results, errs := skymap.ConvertFiles(context.Background(), jobs, opts)
	fmt.Println()
	for _, err := range errs {
		log.Printf("Failed: %v", err)
	}
	for _, res := range results {
		for _, out := range res.Outputs {
			fmt.Printf("%s: %d bytes in %v\n", out.Path, out.Bytes, res.Duration)
		}
	}

	// Repeated lookups go through an LRU cache
	f, err := skymap.OpenFile("hsc.fv", skymap.FormatFullVertex)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	cache := skymap.NewTractCache(f, 8*1024*1024)
	for i := 0; i < 1000; i++ {
		if _, err := cache.Vertices(i % 16); err != nil {
			log.Fatal(err)
		}
	}
	stats := cache.Stats()
	fmt.Printf("Cache: %d tracts, hit rate %.1f%%\n", stats.TractCount, stats.HitRate()*100)
}
