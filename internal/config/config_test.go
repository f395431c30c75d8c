package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beetlebugorg/skymap/pkg/skymap"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `version: "1.0"
defaults:
  vertex_width: float32
  tolerance: 1.0e-5
  workers: 4
jobs:
  - input: hsc.pickle
    full_vertex: out/hsc.fv
    ring_optimized: /abs/hsc.ro
  - input: lsst.pickle
    ring_optimized: lsst.ro
`)

	config, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "1.0", config.Version)
	assert.Len(t, config.Jobs, 2)
	assert.Equal(t, 4, config.Defaults.Workers)

	opts := config.WriterOptions()
	assert.Equal(t, skymap.Float32, opts.Width)
	assert.Equal(t, 1.0e-5, opts.Tolerance)

	dir := filepath.Dir(path)
	jobs := config.ConvertJobs(dir)
	assert.Equal(t, skymap.ConvertJob{
		Input:         filepath.Join(dir, "hsc.pickle"),
		FullVertex:    filepath.Join(dir, "out", "hsc.fv"),
		RingOptimized: "/abs/hsc.ro",
	}, jobs[0])
	assert.Equal(t, "", jobs[1].FullVertex)
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `version: "1.0"
jobs:
  - input: a.pickle
    full_vertex: a.fv
`)

	config, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, config.Defaults)
	assert.Equal(t, "float64", config.Defaults.VertexWidth)
	assert.Equal(t, skymap.DefaultTolerance, *config.Defaults.Tolerance)
	assert.Equal(t, 0, config.Defaults.Workers)
	assert.Equal(t, skymap.DefaultWriterOptions(), config.WriterOptions())
}

func TestLoad_FileNotFound(t *testing.T) {
	config, err := Load("/nonexistent/plan.yml")
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, `version: "1.0"
jobs:
  input: [unclosed
`)

	config, err := Load(path)
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestValidate(t *testing.T) {
	negative := -1.0
	tests := []struct {
		name    string
		config  PlanConfig
		wantErr string
	}{
		{
			name:    "unsupported version",
			config:  PlanConfig{Version: "2.0", Jobs: []Job{{Input: "a", FullVertex: "b"}}},
			wantErr: "unsupported version: 2.0",
		},
		{
			name:    "no jobs",
			config:  PlanConfig{Version: "1.0"},
			wantErr: "no jobs defined",
		},
		{
			name:    "missing input",
			config:  PlanConfig{Version: "1.0", Jobs: []Job{{FullVertex: "b"}}},
			wantErr: "input is required",
		},
		{
			name:    "no outputs",
			config:  PlanConfig{Version: "1.0", Jobs: []Job{{Input: "a"}}},
			wantErr: "at least one of full_vertex or ring_optimized",
		},
		{
			name: "duplicate output",
			config: PlanConfig{Version: "1.0", Jobs: []Job{
				{Input: "a", FullVertex: "out/x.bin"},
				{Input: "b", RingOptimized: "out/./x.bin"},
			}},
			wantErr: "already written by job 0",
		},
		{
			name:    "bad width",
			config:  PlanConfig{Version: "1.0", Defaults: &Defaults{VertexWidth: "float16"}, Jobs: []Job{{Input: "a", FullVertex: "b"}}},
			wantErr: "defaults.vertex_width",
		},
		{
			name:    "negative tolerance",
			config:  PlanConfig{Version: "1.0", Defaults: &Defaults{Tolerance: &negative}, Jobs: []Job{{Input: "a", FullVertex: "b"}}},
			wantErr: "defaults.tolerance must be > 0",
		},
		{
			name:    "negative workers",
			config:  PlanConfig{Version: "1.0", Defaults: &Defaults{Workers: -2}, Jobs: []Job{{Input: "a", FullVertex: "b"}}},
			wantErr: "defaults.workers must be >= 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
