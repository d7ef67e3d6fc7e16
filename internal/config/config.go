package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"pinn-forge/internal/dataset"
	"pinn-forge/internal/model"
)

// Config captures the runtime knobs for a training run.
type Config struct {
	Points          Points         `yaml:"points"`
	Split           float64        `yaml:"split"`
	Epochs          int            `yaml:"epochs"`
	PlotEvery       int            `yaml:"plot_every"`
	CheckpointEvery int            `yaml:"checkpoint_every"`
	LogEvery        int            `yaml:"log_every"`
	Domain          dataset.Domain `yaml:"domain"`
	GridSize        int            `yaml:"grid_size"`
	Recurrent       bool           `yaml:"recurrent"`
	SeqLen          int            `yaml:"seq_len"`
	Seed            int64          `yaml:"seed"`
	Model           Model          `yaml:"model"`
	Output          Output         `yaml:"output"`
}

// Points is the number of collocation points per category.
type Points struct {
	Initial  int `yaml:"initial"`
	Boundary int `yaml:"boundary"`
	Residual int `yaml:"residual"`
}

// Model configures the network and the loss.
type Model struct {
	Hidden       []int         `yaml:"hidden"`
	LearningRate float64       `yaml:"learning_rate"`
	Diffusivity  float64       `yaml:"diffusivity"`
	Weights      model.Weights `yaml:"weights"`
}

// Output configures where artefacts are written.
type Output struct {
	ResultsDir string `yaml:"results_dir"`
	WeightsDir string `yaml:"weights_dir"`
}

// Overrides captures CLI supplied values.
type Overrides struct {
	Epochs     int
	Seed       int64
	Recurrent  bool
	ResultsDir string
	LogEvery   int
}

// Default returns the stock configuration.
func Default() *Config {
	return &Config{
		Points:          Points{Initial: 200, Boundary: 200, Residual: 200},
		Split:           0.2,
		Epochs:          1000,
		PlotEvery:       100,
		CheckpointEvery: 1000,
		LogEvery:        50,
		Domain:          dataset.UnitDomain,
		GridSize:        70,
		SeqLen:          10,
		Model: Model{
			Hidden:       []int{20, 20, 20},
			LearningRate: 1e-3,
			Diffusivity:  0.1,
			Weights:      model.UnitWeights,
		},
		Output: Output{ResultsDir: "results", WeightsDir: "weights"},
	}
}

// Load reads a YAML document on top of the defaults and validates it.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Parse decodes YAML from r on top of the defaults. Unknown keys are
// rejected.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return cfg, nil
}

// ApplyOverrides updates cfg using any non-zero override.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.Epochs > 0 {
		c.Epochs = o.Epochs
	}
	if o.Seed != 0 {
		c.Seed = o.Seed
	}
	if o.Recurrent {
		c.Recurrent = true
	}
	if o.ResultsDir != "" {
		c.Output.ResultsDir = o.ResultsDir
	}
	if o.LogEvery > 0 {
		c.LogEvery = o.LogEvery
	}
}

// Counts converts Points for the sampler.
func (c *Config) Counts() dataset.Counts {
	return dataset.Counts{Initial: c.Points.Initial, Boundary: c.Points.Boundary, Residual: c.Points.Residual}
}

// Validate verifies the config is runnable.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Points.Initial <= 0 || c.Points.Boundary <= 0 || c.Points.Residual <= 0 {
		return fmt.Errorf("points must be > 0 (got %d/%d/%d)", c.Points.Initial, c.Points.Boundary, c.Points.Residual)
	}
	if c.Split <= 0 || c.Split >= 1 {
		return fmt.Errorf("split must be in (0,1) (got %g)", c.Split)
	}
	if c.Epochs <= 0 {
		return fmt.Errorf("epochs must be > 0 (got %d)", c.Epochs)
	}
	if c.PlotEvery <= 0 {
		return fmt.Errorf("plot_every must be > 0 (got %d)", c.PlotEvery)
	}
	if c.CheckpointEvery <= 0 {
		return fmt.Errorf("checkpoint_every must be > 0 (got %d)", c.CheckpointEvery)
	}
	if c.Domain.TMax <= c.Domain.TMin || c.Domain.XMax <= c.Domain.XMin {
		return fmt.Errorf("domain must be non-empty (got %+v)", c.Domain)
	}
	if c.GridSize < 2 {
		return fmt.Errorf("grid_size must be >= 2 (got %d)", c.GridSize)
	}
	if c.Recurrent {
		smallest := min(c.Points.Initial, c.Points.Boundary, c.Points.Residual)
		if c.SeqLen < 1 || c.SeqLen >= smallest {
			return fmt.Errorf("seq_len must be in [1,%d) (got %d)", smallest, c.SeqLen)
		}
	}
	if err := c.validateSplitSizes(); err != nil {
		return err
	}
	if len(c.Model.Hidden) == 0 {
		return errors.New("model.hidden must list at least one layer")
	}
	for _, h := range c.Model.Hidden {
		if h <= 0 {
			return fmt.Errorf("model.hidden widths must be > 0 (got %v)", c.Model.Hidden)
		}
	}
	if c.Model.LearningRate <= 0 {
		return fmt.Errorf("model.learning_rate must be > 0 (got %g)", c.Model.LearningRate)
	}
	if c.Model.Diffusivity < 0 {
		return fmt.Errorf("model.diffusivity must be >= 0 (got %g)", c.Model.Diffusivity)
	}
	w := c.Model.Weights
	if w.Initial < 0 || w.Boundary < 0 || w.Residual < 0 {
		return fmt.Errorf("model.weights must be >= 0 (got %+v)", w)
	}
	if c.Output.ResultsDir == "" {
		return errors.New("output.results_dir must be set")
	}
	if c.Recurrent && c.Output.WeightsDir == "" {
		return errors.New("output.weights_dir must be set in recurrent mode")
	}
	if c.LogEvery <= 0 {
		c.LogEvery = 50
	}
	return nil
}

// validateSplitSizes checks that every category keeps at least one
// validation sample after the split. Recurrent runs split windows, of which
// there are n-seq_len per category.
func (c *Config) validateSplitSizes() error {
	categories := []struct {
		name string
		n    int
	}{
		{"initial", c.Points.Initial},
		{"boundary", c.Points.Boundary},
		{"residual", c.Points.Residual},
	}
	for _, cat := range categories {
		n := cat.n
		if c.Recurrent {
			n -= c.SeqLen
		}
		if int(float64(n)*c.Split) < 1 {
			return fmt.Errorf("split %g leaves no %s validation samples out of %d", c.Split, cat.name, n)
		}
	}
	return nil
}
