package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"pinn-forge/internal/dataset"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, dataset.Counts{Initial: 200, Boundary: 200, Residual: 200}, cfg.Counts())
	require.Equal(t, 0.2, cfg.Split)
	require.Equal(t, 1000, cfg.Epochs)
	require.Equal(t, 100, cfg.PlotEvery)
	require.Equal(t, 1000, cfg.CheckpointEvery)
	require.Equal(t, 70, cfg.GridSize)
	require.Equal(t, 10, cfg.SeqLen)
	require.False(t, cfg.Recurrent)
	require.Zero(t, cfg.Seed)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	doc := `
epochs: 3
seed: 17
recurrent: true
seq_len: 4
points:
  residual: 50
model:
  hidden: [8, 8]
  weights:
    residual: 2
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 3, cfg.Epochs)
	require.Equal(t, int64(17), cfg.Seed)
	require.True(t, cfg.Recurrent)
	require.Equal(t, 4, cfg.SeqLen)
	require.Equal(t, 50, cfg.Points.Residual)
	require.Equal(t, 200, cfg.Points.Initial)
	require.Equal(t, []int{8, 8}, cfg.Model.Hidden)
	require.Equal(t, 2.0, cfg.Model.Weights.Residual)
	require.Equal(t, 1.0, cfg.Model.Weights.Initial)
	require.Equal(t, 0.1, cfg.Model.Diffusivity)
}

func TestParseEmptyDocument(t *testing.T) {
	cfg, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse(strings.NewReader("epoch: 3\n"))
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestApplyOverrides(t *testing.T) {
	cfg := Default()
	cfg.ApplyOverrides(Overrides{Epochs: 5, Seed: 9, Recurrent: true, ResultsDir: "out", LogEvery: 2})
	require.Equal(t, 5, cfg.Epochs)
	require.Equal(t, int64(9), cfg.Seed)
	require.True(t, cfg.Recurrent)
	require.Equal(t, "out", cfg.Output.ResultsDir)
	require.Equal(t, 2, cfg.LogEvery)

	cfg.ApplyOverrides(Overrides{})
	require.Equal(t, 5, cfg.Epochs)
	require.True(t, cfg.Recurrent)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"points":        func(c *Config) { c.Points.Boundary = 0 },
		"split zero":    func(c *Config) { c.Split = 0 },
		"split one":     func(c *Config) { c.Split = 1 },
		"epochs":        func(c *Config) { c.Epochs = 0 },
		"plot every":    func(c *Config) { c.PlotEvery = 0 },
		"checkpoint":    func(c *Config) { c.CheckpointEvery = -1 },
		"domain":        func(c *Config) { c.Domain.XMax = c.Domain.XMin },
		"grid":          func(c *Config) { c.GridSize = 1 },
		"seq len":       func(c *Config) { c.Recurrent = true; c.SeqLen = 200 },
		"empty val":     func(c *Config) { c.Points = Points{Initial: 4, Boundary: 4, Residual: 4} },
		"empty val seq": func(c *Config) { c.Recurrent = true; c.SeqLen = 199 },
		"hidden empty":  func(c *Config) { c.Model.Hidden = nil },
		"hidden zero":   func(c *Config) { c.Model.Hidden = []int{4, 0} },
		"learning rate": func(c *Config) { c.Model.LearningRate = 0 },
		"diffusivity":   func(c *Config) { c.Model.Diffusivity = -1 },
		"weights":       func(c *Config) { c.Model.Weights.Boundary = -1 },
		"results dir":   func(c *Config) { c.Output.ResultsDir = "" },
		"weights dir":   func(c *Config) { c.Recurrent = true; c.Output.WeightsDir = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}

	var nilCfg *Config
	require.Error(t, nilCfg.Validate())

	cfg := Default()
	cfg.LogEvery = 0
	require.NoError(t, cfg.Validate())
	require.Equal(t, 50, cfg.LogEvery)
}

func TestValidateSplitSizes(t *testing.T) {
	cfg, err := Parse(strings.NewReader("points: {initial: 4, boundary: 4, residual: 4}\n"))
	require.NoError(t, err)
	require.ErrorContains(t, cfg.Validate(), "initial validation")

	cfg.Points.Initial, cfg.Points.Boundary, cfg.Points.Residual = 5, 5, 5
	require.NoError(t, cfg.Validate())

	rng, _ := dataset.NewRand(3)
	_, val, err := dataset.Split(dataset.Sample(cfg.Counts(), cfg.Domain, rng), cfg.Split, rng)
	require.NoError(t, err)
	require.Len(t, val.Initial, 1)
	require.Len(t, val.Boundary, 1)
	require.Len(t, val.Residual, 1)

	cfg.Recurrent = true
	cfg.SeqLen = 1
	require.ErrorContains(t, cfg.Validate(), "validation")

	cfg.Points.Initial, cfg.Points.Boundary, cfg.Points.Residual = 6, 6, 6
	require.NoError(t, cfg.Validate())
	windows, err := dataset.Window(dataset.Sample(cfg.Counts(), cfg.Domain, rng), cfg.SeqLen)
	require.NoError(t, err)
	_, valSeq, err := dataset.SplitSequences(windows, cfg.Split, rng)
	require.NoError(t, err)
	require.Len(t, valSeq.Residual, 1)
}
