package experiment

import (
	"context"

	"github.com/pkg/errors"
	"github.com/san-kum/sdesim/internal/brownian"
	"github.com/san-kum/sdesim/internal/config"
	"github.com/san-kum/sdesim/internal/dynamo"
	"github.com/san-kum/sdesim/internal/models"
	"github.com/san-kum/sdesim/internal/solver"
)

// Experiment is one configured run: a model, its initial batch, the
// output grid and a Brownian path shared by every integration of it.
type Experiment struct {
	cfg    *config.Config
	model  models.Model
	method dynamo.Method
	y0     dynamo.State
	ts     []float64
	bm     dynamo.Brownian
}

func New(cfg *config.Config, reg *Registry) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	model, err := reg.GetModel(cfg.Model, cfg.Params)
	if err != nil {
		return nil, err
	}
	method, err := dynamo.ParseMethod(cfg.Method)
	if err != nil {
		return nil, err
	}
	row, err := cfg.InitRow(model.Dim())
	if err != nil {
		return nil, err
	}

	e := &Experiment{
		cfg:    cfg,
		model:  model,
		method: method,
		y0:     dynamo.State{dynamo.Repeat(cfg.Batch, row)},
		ts:     cfg.Times(),
	}
	kind := brownian.Kind(cfg.Brownian)
	if e.bm, err = solver.BrownianFor(model, e.y0, e.ts, kind, cfg.Seed); err != nil {
		return nil, errors.Wrapf(err, "brownian motion for %s", cfg.Model)
	}
	return e, nil
}

func (e *Experiment) Config() *config.Config { return e.cfg }
func (e *Experiment) Model() models.Model    { return e.model }
func (e *Experiment) Initial() dynamo.State  { return e.y0 }
func (e *Experiment) Times() []float64       { return e.ts }
func (e *Experiment) Method() dynamo.Method  { return e.method }

// Run integrates over the configured grid. Metrics are observed on every
// accepted step.
func (e *Experiment) Run(ctx context.Context, metrics []dynamo.Metric) (*solver.Trajectory, error) {
	opts := solver.DefaultOptions()
	opts.Method = e.method
	opts.Config = e.cfg.SolverConfig()
	opts.Brownian = e.bm
	opts.Logqp = e.cfg.Logqp
	opts.Metrics = metrics
	return solver.Sdeint(ctx, e.model, solver.Single(e.y0.Clone()[0]), e.ts, opts)
}

// WithMethod returns a copy that integrates the same model, grid and
// Brownian path with another method.
func (e *Experiment) WithMethod(method dynamo.Method) *Experiment {
	out := *e
	out.method = method
	return &out
}

// Solver builds a solver over the experiment's Brownian path, for callers
// that drive the integration step by step.
func (e *Experiment) Solver() (*solver.Solver, error) {
	return solver.New(e.model, e.bm, e.cfg.SolverConfig(), e.method)
}
