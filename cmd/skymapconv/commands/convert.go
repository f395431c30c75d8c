package commands

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/beetlebugorg/skymap/internal/config"
	"github.com/beetlebugorg/skymap/pkg/skymap"
)

func newConvertCmd() *cobra.Command {
	var (
		input         string
		fullVertex    string
		ringOptimized string
		vertexWidth   string
		tolerance     float64
		workers       int
		configPath    string
	)

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert legacy pickled skymaps",
		Long: `Convert a legacy pickled skymap into one or both binary formats.

Single file:
  skymapconv convert --input skyMap.pickle --full-vertex sky.fv --ring-optimized sky.ro

Batch, from a YAML plan:
  skymapconv convert --config plan.yml

Outputs are replaced atomically. A ring-optimized output is refused when a
ring is not uniform; the full-vertex output of the same job is still written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				if input != "" || fullVertex != "" || ringOptimized != "" {
					return fmt.Errorf("--config cannot be combined with --input, --full-vertex or --ring-optimized")
				}
				return runPlan(cmd.Context(), cmd.OutOrStdout(), configPath)
			}

			if input == "" {
				return fmt.Errorf("--input is required (or use --config)")
			}
			width, err := skymap.ParseVertexWidth(vertexWidth)
			if err != nil {
				return err
			}
			if !(tolerance > 0) {
				return fmt.Errorf("--tolerance must be > 0, got %v", tolerance)
			}
			opts := skymap.ConvertOptions{
				Writer:     skymap.WriterOptions{Width: width, Tolerance: tolerance},
				Workers:    workers,
				SkipErrors: true,
				Logger:     logrus.StandardLogger(),
			}

			// Each format is its own job so a non-uniform ring does not
			// prevent the full-vertex output.
			var jobs []skymap.ConvertJob
			if fullVertex != "" {
				jobs = append(jobs, skymap.ConvertJob{Input: input, FullVertex: fullVertex})
			}
			if ringOptimized != "" {
				jobs = append(jobs, skymap.ConvertJob{Input: input, RingOptimized: ringOptimized})
			}
			if len(jobs) == 0 {
				return fmt.Errorf("at least one of --full-vertex or --ring-optimized is required")
			}
			return runJobs(cmd.Context(), cmd.OutOrStdout(), jobs, opts)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Legacy pickled skymap")
	cmd.Flags().StringVar(&fullVertex, "full-vertex", "", "Full-vertex output path")
	cmd.Flags().StringVar(&ringOptimized, "ring-optimized", "", "Ring-optimized output path")
	cmd.Flags().StringVar(&vertexWidth, "vertex-width", "float64", "Full-vertex coordinate width (float32 or float64)")
	cmd.Flags().Float64Var(&tolerance, "tolerance", skymap.DefaultTolerance, "Ring uniformity tolerance in degrees")
	cmd.Flags().IntVarP(&workers, "workers", "j", 0, "Concurrent conversions (0 = one per CPU)")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML conversion plan")
	return cmd
}

func runPlan(ctx context.Context, out io.Writer, path string) error {
	plan, err := config.Load(path)
	if err != nil {
		return err
	}
	opts := skymap.ConvertOptions{
		Writer:     plan.WriterOptions(),
		Workers:    plan.Defaults.Workers,
		SkipErrors: true,
		Logger:     logrus.StandardLogger(),
	}
	return runJobs(ctx, out, plan.ConvertJobs(filepath.Dir(path)), opts)
}

func runJobs(ctx context.Context, out io.Writer, jobs []skymap.ConvertJob, opts skymap.ConvertOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	opts.Progress = func(done, total int) {
		logrus.WithFields(logrus.Fields{"done": done, "total": total}).Debug("progress")
	}

	results, errs := skymap.ConvertFiles(ctx, jobs, opts)
	for _, res := range results {
		for _, o := range res.Outputs {
			fmt.Fprintf(out, "%s -> %s (%s, %d tracts, %s)\n",
				res.Job.Input, o.Path, o.Format, res.Tracts, humanize.Bytes(uint64(o.Bytes)))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d of %d conversions failed", len(errs), len(jobs))
	}
	return nil
}
