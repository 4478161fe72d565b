package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/pkg/errors"
	"github.com/san-kum/sdesim/internal/dynamo"
	"github.com/san-kum/sdesim/internal/integrators"
	"gonum.org/v1/gonum/mat"
	"k8s.io/klog/v2"
)

// snapTol is the relative distance below which a step endpoint is moved
// onto the next output time.
const snapTol = 1e-12

type Simulator struct {
	stepper     integrators.Stepper
	logRatio    LogRatioer
	cfg         dynamo.Config
	metrics     []dynamo.Metric
	observers   []dynamo.Observer
	diagnostics []dynamo.Diagnostic
}

func New(stepper integrators.Stepper, cfg dynamo.Config) *Simulator {
	return &Simulator{
		stepper:   stepper,
		cfg:       cfg,
		metrics:   make([]dynamo.Metric, 0),
		observers: make([]dynamo.Observer, 0),
	}
}

// WithLogRatio makes Run accumulate log-ratio increments alongside the
// state.
func (s *Simulator) WithLogRatio(lr LogRatioer) *Simulator {
	s.logRatio = lr
	return s
}

func (s *Simulator) AddMetric(m dynamo.Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o dynamo.Observer) { s.observers = append(s.observers, o) }

// AddDiagnostic attaches an advisory raised before integration; it is
// reported in every Result.
func (s *Simulator) AddDiagnostic(d dynamo.Diagnostic) {
	s.diagnostics = append(s.diagnostics, d)
}

func (s *Simulator) Config() dynamo.Config { return s.cfg }

// Run integrates y0 across the output grid ts. Every output time is a step
// endpoint; values are never interpolated.
func (s *Simulator) Run(ctx context.Context, y0 dynamo.State, ts []float64) (*Result, error) {
	return s.run(ctx, y0, ts, nil)
}

// RunWithCallback integrates like Run and calls callback after every
// accepted step. Integration stops early, without error, when callback
// returns false.
func (s *Simulator) RunWithCallback(ctx context.Context, y0 dynamo.State, ts []float64, callback func(t float64, y dynamo.State) bool) error {
	_, err := s.run(ctx, y0, ts, callback)
	return err
}

var errStopped = errors.New("stopped by callback")

func (s *Simulator) run(ctx context.Context, y0 dynamo.State, ts []float64, callback func(float64, dynamo.State) bool) (*Result, error) {
	if s.stepper == nil {
		return nil, errors.Wrap(dynamo.ErrContractViolation, "simulator has no stepper")
	}
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateTimes(ts); err != nil {
		return nil, err
	}
	if len(y0) == 0 || y0.Batch() == 0 {
		return nil, errors.Wrap(dynamo.ErrContractViolation, "initial state is empty")
	}
	if !y0.IsValid() {
		return nil, errors.Wrap(dynamo.ErrInvalidState, "initial state")
	}

	result := &Result{
		Times:       append([]float64(nil), ts...),
		States:      make([]dynamo.State, 0, len(ts)),
		Metrics:     make(map[string]float64),
		Diagnostics: append([]dynamo.Diagnostic(nil), s.diagnostics...),
	}
	for _, m := range s.metrics {
		m.Reset()
	}

	r := &runner{
		Simulator: s,
		ctx:       ctx,
		result:    result,
		callback:  callback,
		y:         y0.Clone(),
		t:         ts[0],
		h:         s.cfg.Dt,
	}
	if s.logRatio != nil {
		batch := y0.Batch()
		result.LogRatio = make([]*mat.Dense, len(y0))
		for i := range result.LogRatio {
			result.LogRatio[i] = mat.NewDense(len(ts)-1, batch, nil)
		}
		r.acc = make([][]float64, len(y0))
		for i := range r.acc {
			r.acc[i] = make([]float64, batch)
		}
	}

	result.States = append(result.States, r.y.Clone())
	for _, m := range s.metrics {
		m.Observe(r.t, r.y)
	}

	for i := 1; i < len(ts); i++ {
		if err := r.advanceTo(ts[i]); err != nil {
			if errors.Is(err, errStopped) {
				return result, nil
			}
			return nil, err
		}
		result.States = append(result.States, r.y.Clone())
		if r.acc != nil {
			for blk, acc := range r.acc {
				result.LogRatio[blk].SetRow(i-1, acc)
				clear(acc)
			}
		}
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	klog.V(1).Infof("integrated %s over [%g, %g]: %d steps, %d rejected, %d forced",
		s.stepper.Name(), ts[0], ts[len(ts)-1], result.Stats.Steps, result.Stats.Rejected, result.Stats.Forced)
	return result, nil
}

// runner carries the mutable state of one Run.
type runner struct {
	*Simulator
	ctx      context.Context
	result   *Result
	callback func(float64, dynamo.State) bool

	y        dynamo.State
	t, h     float64
	attempts int
	ctl      controller
	warned   bool
	acc      [][]float64
}

func (r *runner) fail(err error) error {
	return &dynamo.SimulationError{Step: r.attempts, Time: r.t, Wrapped: err}
}

func (r *runner) advanceTo(out float64) error {
	for r.t < out {
		if err := r.ctx.Err(); err != nil {
			return errors.Wrapf(err, "integration cancelled at t=%g", r.t)
		}
		if r.cfg.MaxSteps > 0 && r.attempts >= r.cfg.MaxSteps {
			return r.fail(errors.Wrapf(dynamo.ErrStepLimit, "%d attempts", r.attempts))
		}
		r.attempts++

		next := r.t + r.h
		clamped := false
		if next >= out || out-next <= snapTol*math.Max(1, math.Abs(out)) {
			next, clamped = out, true
		}

		var err error
		if r.cfg.Adaptive {
			err = r.adaptiveStep(next, clamped)
		} else {
			err = r.fixedStep(next)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *runner) fixedStep(next float64) error {
	y1, err := r.stepper.Step(r.t, next, r.y)
	if err != nil {
		return r.fail(err)
	}
	if r.logRatio != nil {
		inc, err := r.logRatio.Increment(r.t, next, r.y)
		if err != nil {
			return r.fail(err)
		}
		r.accumulate(inc)
	}
	return r.accept(next, y1)
}

// adaptiveStep compares one step over [t, next] with two half steps. The
// half-step solution is kept when the scaled difference passes the
// tolerance, or when the step or its shrunk retry is at the floor.
func (r *runner) adaptiveStep(next float64, clamped bool) error {
	size := next - r.t
	mid := r.t + size/2

	full, err := r.stepper.Step(r.t, next, r.y)
	if err != nil {
		return r.fail(err)
	}
	yMid, err := r.stepper.Step(r.t, mid, r.y)
	if err != nil {
		return r.fail(err)
	}
	half, err := r.stepper.Step(mid, next, yMid)
	if err != nil {
		return r.fail(err)
	}

	ratio := errorRatio(full, half, r.cfg.Atol, r.cfg.Rtol)
	factor := r.ctl.factor(ratio)
	floor := r.cfg.DtMin * (1 + 1e-9)
	// A failing step whose retry would land on the floor is accepted now.
	atFloor := size <= floor || size*factor <= floor

	if ratio > 1 && !atFloor {
		r.result.Stats.Rejected++
		r.h = size * factor
		klog.V(2).Infof("rejected step of %g at t=%g (error ratio %.3g), retrying with %g", size, r.t, ratio, r.h)
		return nil
	}
	if ratio > 1 {
		r.result.Stats.Forced++
		klog.V(1).Infof("accepting step of %g at t=%g at the floor with error ratio %.3g", size, r.t, ratio)
		if !r.warned {
			r.warned = true
			r.result.Diagnostics = append(r.result.Diagnostics, dynamo.Diagnostic{
				Kind:    dynamo.ToleranceUnmet,
				Time:    r.t,
				Message: fmt.Sprintf("step of %g at the floor dt_min=%g accepted with error ratio %.3g", size, r.cfg.DtMin, ratio),
			})
		}
	}

	if r.logRatio != nil {
		first, err := r.logRatio.Increment(r.t, mid, r.y)
		if err != nil {
			return r.fail(err)
		}
		second, err := r.logRatio.Increment(mid, next, yMid)
		if err != nil {
			return r.fail(errors.Wrapf(err, "at t=%g", mid))
		}
		r.accumulate(first)
		r.accumulate(second)
	}

	proposed := math.Max(size*factor, r.cfg.DtMin)
	if r.cfg.DtMin >= r.cfg.Dt {
		// The floor is the requested step: stay on it.
		proposed = r.cfg.DtMin
	}
	if clamped {
		// A step cut short by an output time says nothing against the
		// previous proposal.
		proposed = math.Max(proposed, r.h)
	}
	r.h = proposed
	return r.accept(next, half)
}

func (r *runner) accept(next float64, y1 dynamo.State) error {
	if !y1.IsValid() {
		return r.fail(dynamo.ErrInvalidState)
	}
	h := next - r.t
	r.y, r.t = y1, next
	r.result.Stats.accept(h)

	for _, m := range r.metrics {
		m.Observe(r.t, r.y)
	}
	for _, o := range r.observers {
		o.OnStep(r.t, r.y, h)
	}
	if r.callback != nil && !r.callback(r.t, r.y) {
		return errStopped
	}
	return nil
}

func (r *runner) accumulate(inc [][]float64) {
	for blk := range r.acc {
		for b, v := range inc[blk] {
			r.acc[blk][b] += v
		}
	}
}

// ValidateTimes checks that ts has at least two finite, non-descending
// entries.
func ValidateTimes(ts []float64) error {
	if len(ts) < 2 {
		return errors.Wrapf(dynamo.ErrContractViolation, "need at least two output times, got %d", len(ts))
	}
	for i, t := range ts {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return errors.Wrapf(dynamo.ErrContractViolation, "output time %d is %v", i, t)
		}
		if i > 0 && t < ts[i-1] {
			return errors.Wrapf(dynamo.ErrContractViolation, "output times must be non-descending, ts[%d]=%g < ts[%d]=%g", i, t, i-1, ts[i-1])
		}
	}
	return nil
}
