package solver

import (
	"context"

	"github.com/pkg/errors"
	"github.com/san-kum/sdesim/internal/dynamo"
	"github.com/san-kum/sdesim/internal/integrators"
	"github.com/san-kum/sdesim/internal/sim"
	"k8s.io/klog/v2"
)

// Solver binds an SDE, a Brownian source and a step configuration to one
// update rule.
type Solver struct {
	sde         dynamo.SDE
	bm          dynamo.Brownian
	cfg         dynamo.Config
	method      dynamo.Method
	stepper     integrators.Stepper
	diagnostics []dynamo.Diagnostic
	metrics     []dynamo.Metric
	observers   []dynamo.Observer
}

func New(sde dynamo.SDE, bm dynamo.Brownian, cfg dynamo.Config, method dynamo.Method) (*Solver, error) {
	if bm == nil {
		return nil, errors.Wrap(dynamo.ErrContractViolation, "nil brownian motion")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	diags, err := CheckContract(sde, bm, method, cfg.Adaptive, false)
	if err != nil {
		return nil, err
	}
	build, err := Select(method, sde.NoiseType())
	if err != nil {
		return nil, err
	}
	stepper, err := build(sde, bm, cfg)
	if err != nil {
		return nil, err
	}
	for _, d := range diags {
		klog.Warning(d.Message)
	}
	resolved := Resolve(method, sde.NoiseType())
	if resolved != method {
		klog.V(1).Infof("%s on %s noise runs as %s", method, sde.NoiseType(), resolved)
	}
	klog.V(2).Infof("solver: %s (strong order %.1f), adaptive=%v dt=%g", stepper.Name(), stepper.StrongOrder(), cfg.Adaptive, cfg.Dt)

	return &Solver{
		sde:         sde,
		bm:          bm,
		cfg:         cfg,
		method:      resolved,
		stepper:     stepper,
		diagnostics: diags,
	}, nil
}

// Method is the update rule that runs, after Milstein on additive noise
// has been mapped to Euler.
func (s *Solver) Method() dynamo.Method            { return s.method }
func (s *Solver) Stepper() integrators.Stepper     { return s.stepper }
func (s *Solver) Config() dynamo.Config            { return s.cfg }
func (s *Solver) Diagnostics() []dynamo.Diagnostic { return s.diagnostics }
func (s *Solver) AddMetric(m dynamo.Metric)        { s.metrics = append(s.metrics, m) }
func (s *Solver) AddObserver(o dynamo.Observer)    { s.observers = append(s.observers, o) }
func (s *Solver) Brownian() dynamo.Brownian        { return s.bm }
func (s *Solver) SDE() dynamo.SDE                  { return s.sde }

func (s *Solver) simulator() *sim.Simulator {
	simulator := sim.New(s.stepper, s.cfg)
	for _, m := range s.metrics {
		simulator.AddMetric(m)
	}
	for _, o := range s.observers {
		simulator.AddObserver(o)
	}
	for _, d := range s.diagnostics {
		simulator.AddDiagnostic(d)
	}
	return simulator
}

// Integrate returns the state at every entry of ts.
func (s *Solver) Integrate(ctx context.Context, y0 dynamo.State, ts []float64) (*sim.Result, error) {
	return s.simulator().Run(ctx, y0, ts)
}

// IntegrateLogqp is Integrate with the log-ratio against the prior drift
// accumulated between consecutive output times.
func (s *Solver) IntegrateLogqp(ctx context.Context, y0 dynamo.State, ts []float64) (*sim.Result, error) {
	lr, err := integrators.NewLogRatio(s.sde, s.bm)
	if err != nil {
		return nil, err
	}
	return s.simulator().WithLogRatio(lr).Run(ctx, y0, ts)
}

// IntegrateWithCallback integrates and calls callback after every accepted
// step until it returns false.
func (s *Solver) IntegrateWithCallback(ctx context.Context, y0 dynamo.State, ts []float64, callback func(t float64, y dynamo.State) bool) error {
	return s.simulator().RunWithCallback(ctx, y0, ts, callback)
}
