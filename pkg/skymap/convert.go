package skymap

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ConvertJob converts one legacy pickle into one or both binary formats.
// An empty output path skips that format.
type ConvertJob struct {
	Input         string
	FullVertex    string
	RingOptimized string
}

// ConvertOptions controls batch conversion.
type ConvertOptions struct {
	// Writer holds the vertex width and ring tolerance passed to the writers.
	Writer WriterOptions

	// Workers is the number of jobs converted concurrently.
	// If 0, defaults to runtime.NumCPU(). Each job is converted on a single
	// goroutine.
	Workers int

	// SkipErrors continues with the remaining jobs when one fails.
	// When false, jobs not yet started are abandoned after the first failure.
	SkipErrors bool

	// Progress is an optional callback invoked after each job finishes,
	// with the number of finished jobs and the total.
	Progress func(done, total int)

	// Logger receives one entry per written file and per failed job.
	// If nil, logrus.StandardLogger() is used.
	Logger logrus.FieldLogger
}

// DefaultConvertOptions returns convert options with defaults.
func DefaultConvertOptions() ConvertOptions {
	return ConvertOptions{
		Writer:     DefaultWriterOptions(),
		Workers:    runtime.NumCPU(),
		SkipErrors: true,
	}
}

// OutputResult describes one written file.
type OutputResult struct {
	Format Format
	Path   string
	Bytes  int64
}

// ConvertResult is the outcome of one job.
type ConvertResult struct {
	Job      ConvertJob
	Tracts   int
	Rings    int
	Outputs  []OutputResult
	Duration time.Duration
	Err      error
}

// ConvertFile loads one legacy pickle and writes the requested formats.
//
// Every output is written with WriteFile, so a failing format leaves its
// destination untouched. The full-vertex output is written before the
// ring-optimized one.
func ConvertFile(job ConvertJob, opts WriterOptions) (ConvertResult, error) {
	start := time.Now()
	res := ConvertResult{Job: job}
	if job.FullVertex == "" && job.RingOptimized == "" {
		return res, errors.Errorf("%s: no output requested", job.Input)
	}

	sky, err := LoadPickle(job.Input)
	if err != nil {
		return res, err
	}
	res.Tracts = sky.TractCount()
	if sky.Rings != nil {
		res.Rings = sky.Rings.RingCount()
	}

	for _, out := range []struct {
		format Format
		path   string
	}{
		{FormatFullVertex, job.FullVertex},
		{FormatRingOptimized, job.RingOptimized},
	} {
		if out.path == "" {
			continue
		}
		w, err := out.format.Writer(opts)
		if err != nil {
			return res, err
		}
		if err := WriteFile(out.path, w, sky); err != nil {
			return res, errors.Wrapf(err, "write %s %s", out.format, out.path)
		}
		info, err := os.Stat(out.path)
		if err != nil {
			return res, errors.Wrapf(err, "stat %s", out.path)
		}
		res.Outputs = append(res.Outputs, OutputResult{Format: out.format, Path: out.path, Bytes: info.Size()})
	}
	res.Duration = time.Since(start)
	return res, nil
}

// ConvertFiles runs jobs on a worker pool.
//
// Results are returned in job order, one per job; a job that was abandoned or
// failed carries its error in Err. The returned error slice collects the
// failures, each prefixed with the job input.
//
// Example:
//
//	results, errs := skymap.ConvertFiles(ctx, jobs, skymap.ConvertOptions{
//	    Workers:    4,
//	    SkipErrors: true,
//	    Progress: func(done, total int) {
//	        fmt.Printf("\rConverting: %d/%d", done, total)
//	    },
//	})
//	if len(errs) > 0 {
//	    fmt.Printf("\n%d conversions failed\n", len(errs))
//	}
func ConvertFiles(ctx context.Context, jobs []ConvertJob, opts ConvertOptions) ([]ConvertResult, []error) {
	results := make([]ConvertResult, len(jobs))
	if len(jobs) == 0 {
		return results, nil
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type jobResult struct {
		index int
		res   ConvertResult
		err   error
	}

	queue := make(chan int, len(jobs))
	done := make(chan jobResult, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for index := range queue {
				job := jobs[index]
				if err := ctx.Err(); err != nil {
					done <- jobResult{index: index, res: ConvertResult{Job: job}, err: err}
					continue
				}
				res, err := ConvertFile(job, opts.Writer)
				done <- jobResult{index: index, res: res, err: err}
			}
		}()
	}

	for i := range jobs {
		queue <- i
	}
	close(queue)

	go func() {
		wg.Wait()
		close(done)
	}()

	var errs []error
	finished := 0
	for r := range done {
		finished++
		if opts.Progress != nil {
			opts.Progress(finished, len(jobs))
		}

		job := jobs[r.index]
		if r.err != nil {
			r.res.Err = r.err
			results[r.index] = r.res
			errs = append(errs, fmt.Errorf("%s: %w", job.Input, r.err))
			logger.WithFields(logrus.Fields{
				"input": job.Input,
			}).WithError(r.err).Error("conversion failed")
			if !opts.SkipErrors {
				cancel()
			}
			continue
		}

		results[r.index] = r.res
		for _, out := range r.res.Outputs {
			logger.WithFields(logrus.Fields{
				"input":    job.Input,
				"output":   out.Path,
				"format":   out.Format.String(),
				"tracts":   r.res.Tracts,
				"bytes":    out.Bytes,
				"duration": r.res.Duration,
			}).Info("wrote skymap")
		}
	}

	return results, errs
}
