// Package config loads skymapconv conversion plans.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/beetlebugorg/skymap/pkg/skymap"
)

// PlanConfig represents a conversion plan file
type PlanConfig struct {
	Version  string    `yaml:"version"`
	Defaults *Defaults `yaml:"defaults,omitempty"`
	Jobs     []Job     `yaml:"jobs"`
}

// Defaults apply to every job in the plan
type Defaults struct {
	VertexWidth string   `yaml:"vertex_width,omitempty"` // "float32" or "float64" (default)
	Tolerance   *float64 `yaml:"tolerance,omitempty"`    // Ring uniformity tolerance in degrees
	Workers     int      `yaml:"workers,omitempty"`      // 0 = one per CPU
}

// Job converts one legacy pickle. Relative paths are resolved against the
// directory of the plan file.
type Job struct {
	Input         string `yaml:"input"`
	FullVertex    string `yaml:"full_vertex,omitempty"`
	RingOptimized string `yaml:"ring_optimized,omitempty"`
}

// Validate performs strict validation on the plan and applies defaults
func (c *PlanConfig) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if c.Defaults == nil {
		c.Defaults = &Defaults{}
	}
	if c.Defaults.VertexWidth == "" {
		c.Defaults.VertexWidth = skymap.Float64.String()
	}
	if _, err := skymap.ParseVertexWidth(c.Defaults.VertexWidth); err != nil {
		return fmt.Errorf("defaults.vertex_width: %w", err)
	}
	if c.Defaults.Tolerance == nil {
		tol := skymap.DefaultTolerance
		c.Defaults.Tolerance = &tol
	} else if !(*c.Defaults.Tolerance > 0) {
		return fmt.Errorf("defaults.tolerance must be > 0, got %v", *c.Defaults.Tolerance)
	}
	if c.Defaults.Workers < 0 {
		return fmt.Errorf("defaults.workers must be >= 0 (0 = one per CPU), got %d", c.Defaults.Workers)
	}

	if len(c.Jobs) == 0 {
		return fmt.Errorf("no jobs defined")
	}

	outputs := make(map[string]int) // output path → job index
	for i, job := range c.Jobs {
		if job.Input == "" {
			return fmt.Errorf("job %d: input is required", i)
		}
		if job.FullVertex == "" && job.RingOptimized == "" {
			return fmt.Errorf("job %d (%s): at least one of full_vertex or ring_optimized is required", i, job.Input)
		}
		for _, out := range []string{job.FullVertex, job.RingOptimized} {
			if out == "" {
				continue
			}
			clean := filepath.Clean(out)
			if other, exists := outputs[clean]; exists {
				return fmt.Errorf("job %d: output %s is already written by job %d", i, out, other)
			}
			outputs[clean] = i
		}
	}

	return nil
}

// WriterOptions returns the writer options selected by the plan defaults.
// Validate must have succeeded.
func (c *PlanConfig) WriterOptions() skymap.WriterOptions {
	width, _ := skymap.ParseVertexWidth(c.Defaults.VertexWidth)
	return skymap.WriterOptions{
		Width:     width,
		Tolerance: *c.Defaults.Tolerance,
	}
}

// ConvertJobs returns the plan's jobs with paths resolved against baseDir.
func (c *PlanConfig) ConvertJobs(baseDir string) []skymap.ConvertJob {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(baseDir, p)
	}

	jobs := make([]skymap.ConvertJob, len(c.Jobs))
	for i, j := range c.Jobs {
		jobs[i] = skymap.ConvertJob{
			Input:         resolve(j.Input),
			FullVertex:    resolve(j.FullVertex),
			RingOptimized: resolve(j.RingOptimized),
		}
	}
	return jobs
}

// Load reads, parses and validates a plan file.
func Load(path string) (*PlanConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config PlanConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}
