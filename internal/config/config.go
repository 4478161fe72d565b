package config

import (
	"os"

	"github.com/pkg/errors"
	"github.com/san-kum/sdesim/internal/brownian"
	"github.com/san-kum/sdesim/internal/dynamo"
	"github.com/san-kum/sdesim/internal/sim"
	"gonum.org/v1/gonum/floats"
	"gopkg.in/yaml.v3"
)

const (
	DefaultModel   = "gbm"
	DefaultT1      = 1.0
	DefaultSamples = 101
	DefaultBatch   = 16
	DefaultSeed    = 1
)

// Config is one run as read from or written to YAML.
type Config struct {
	Model    string `yaml:"model"`
	Method   string `yaml:"method"`
	Brownian string `yaml:"brownian"`

	Dt        float64 `yaml:"dt"`
	Adaptive  bool    `yaml:"adaptive"`
	Rtol      float64 `yaml:"rtol"`
	Atol      float64 `yaml:"atol"`
	DtMin     float64 `yaml:"dt_min"`
	FDEpsilon float64 `yaml:"fd_epsilon,omitempty"`
	MaxSteps  int     `yaml:"max_steps,omitempty"`

	// Output times: either explicit Ts, or Samples points spanning [T0, T1].
	T0      float64   `yaml:"t0"`
	T1      float64   `yaml:"t1"`
	Samples int       `yaml:"samples"`
	Ts      []float64 `yaml:"ts,omitempty"`

	Batch int `yaml:"batch"`
	// Init is one row of initial values repeated over the batch. Empty
	// means all ones.
	Init    []float64          `yaml:"init,omitempty"`
	Params  map[string]float64 `yaml:"params,omitempty"`
	Logqp   bool               `yaml:"logqp"`
	Seed    uint64             `yaml:"seed"`
	Metrics []string           `yaml:"metrics,omitempty"`
}

func DefaultConfig() *Config {
	sc := dynamo.DefaultConfig()
	return &Config{
		Model:     DefaultModel,
		Method:    string(dynamo.SRK),
		Brownian:  string(brownian.KindTree),
		Dt:        sc.Dt,
		Rtol:      sc.Rtol,
		Atol:      sc.Atol,
		DtMin:     sc.DtMin,
		FDEpsilon: sc.FDEpsilon,
		T1:        DefaultT1,
		Samples:   DefaultSamples,
		Batch:     DefaultBatch,
		Seed:      DefaultSeed,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks everything that does not depend on the model. Unknown
// model names and parameters are caught when the experiment is built.
func (c *Config) Validate() error {
	if c.Model == "" {
		return errors.Wrap(dynamo.ErrContractViolation, "model is required")
	}
	if _, err := dynamo.ParseMethod(c.Method); err != nil {
		return err
	}
	if c.Brownian != "" {
		if _, err := brownian.ParseKind(c.Brownian); err != nil {
			return err
		}
	}
	if c.Batch <= 0 {
		return errors.Wrapf(dynamo.ErrContractViolation, "batch must be positive, got %d", c.Batch)
	}
	if len(c.Ts) == 0 && c.Samples < 2 {
		return errors.Wrapf(dynamo.ErrContractViolation, "need at least two samples, got %d", c.Samples)
	}
	if err := c.SolverConfig().Validate(); err != nil {
		return err
	}
	return sim.ValidateTimes(c.Times())
}

// Times returns the output grid.
func (c *Config) Times() []float64 {
	if len(c.Ts) > 0 {
		return append([]float64(nil), c.Ts...)
	}
	if c.Samples < 2 {
		return []float64{c.T0}
	}
	return floats.Span(make([]float64, c.Samples), c.T0, c.T1)
}

// SolverConfig returns the step-size settings of the run.
func (c *Config) SolverConfig() dynamo.Config {
	return dynamo.Config{
		Dt:        c.Dt,
		Adaptive:  c.Adaptive,
		Rtol:      c.Rtol,
		Atol:      c.Atol,
		DtMin:     c.DtMin,
		FDEpsilon: c.FDEpsilon,
		MaxSteps:  c.MaxSteps,
	}
}

// InitRow returns the initial row for a model of dimension dim.
func (c *Config) InitRow(dim int) ([]float64, error) {
	if len(c.Init) == 0 {
		row := make([]float64, dim)
		for i := range row {
			row[i] = 1
		}
		return row, nil
	}
	if len(c.Init) != dim {
		return nil, errors.Wrapf(dynamo.ErrDimensionMismatch, "init has %d values, model %s has dimension %d", len(c.Init), c.Model, dim)
	}
	return append([]float64(nil), c.Init...), nil
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Ts = append([]float64(nil), c.Ts...)
	out.Init = append([]float64(nil), c.Init...)
	out.Metrics = append([]string(nil), c.Metrics...)
	if c.Params != nil {
		out.Params = make(map[string]float64, len(c.Params))
		for k, v := range c.Params {
			out.Params[k] = v
		}
	}
	return &out
}
