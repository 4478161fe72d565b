package dynamo

import (
	"fmt"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Diffusion is one evaluation of g for a single state block.
//
// Diag holds a (batch, d) matrix for diagonal and scalar noise. Full holds
// one (d, m) matrix per batch element for general and additive noise.
// Exactly one of the two is set.
type Diffusion struct {
	Diag *mat.Dense
	Full []*mat.Dense
}

// SDE is the capability bundle every solver requires.
type SDE interface {
	// Drift returns f(t, y) with the shapes of y.
	Drift(t float64, y State) State
	// Diffusion returns g(t, y), one entry per state block.
	Diffusion(t float64, y State) []Diffusion
	NoiseType() NoiseType
	SDEType() SDEType
}

// PriorDrifter exposes the prior drift h(t, y) needed for log-ratio
// accumulation.
type PriorDrifter interface {
	PriorDrift(t float64, y State) State
}

// DiffusionDirectional exposes the analytic product g·∂g/∂y (the Milstein
// correction coefficient) for diagonal and scalar noise. Solvers fall back
// to a finite difference when an SDE does not implement it.
type DiffusionDirectional interface {
	DiffusionDirectional(t float64, y State) State
}

// Brownian is a source of Wiener process samples. Repeated identical
// queries must return identical values, in any order and from any goroutine.
type Brownian interface {
	// At returns W(t), one block per state block.
	At(t float64) (State, error)
	// Increment returns W(t1) - W(t0).
	Increment(t0, t1 float64) (State, error)
}

// SpaceTimeSource supplies the auxiliary N(0, t1-t0) variate, independent
// of the increment over the same interval, used by stochastic Runge-Kutta
// stages.
type SpaceTimeSource interface {
	SpaceTime(t0, t1 float64) (State, error)
}

type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

type Metric interface {
	Name() string
	Observe(t float64, y State)
	Value() float64
	Reset()
}

// Observer is notified after every accepted step.
type Observer interface {
	OnStep(t float64, y State, h float64)
}

type Config struct {
	Dt       float64
	Adaptive bool
	Rtol     float64
	Atol     float64
	DtMin    float64
	// FDEpsilon is the relative step of the directional finite difference
	// used by Milstein when the SDE has no analytic g·∂g.
	FDEpsilon float64
	// MaxSteps bounds accepted plus rejected attempts; 0 means unbounded.
	MaxSteps int
}

func DefaultConfig() Config {
	return Config{
		Dt:        1e-3,
		Adaptive:  false,
		Rtol:      1e-6,
		Atol:      1e-5,
		DtMin:     1e-4,
		FDEpsilon: 1e-6,
	}
}

func (c Config) Validate() error {
	if !(c.Dt > 0) {
		return errors.Wrapf(ErrContractViolation, "dt must be positive, got %g", c.Dt)
	}
	if c.Adaptive {
		if !(c.DtMin > 0) {
			return errors.Wrapf(ErrContractViolation, "dt_min must be positive for adaptive stepping, got %g", c.DtMin)
		}
		if c.Rtol < 0 || c.Atol < 0 || c.Rtol+c.Atol <= 0 {
			return errors.Wrapf(ErrContractViolation, "tolerances must be non-negative and not both zero (rtol=%g, atol=%g)", c.Rtol, c.Atol)
		}
	}
	if c.FDEpsilon < 0 {
		return errors.Wrapf(ErrContractViolation, "finite difference epsilon must be non-negative, got %g", c.FDEpsilon)
	}
	if c.MaxSteps < 0 {
		return errors.Wrapf(ErrContractViolation, "max steps must be non-negative, got %d", c.MaxSteps)
	}
	return nil
}

type DiagnosticKind string

const (
	// LowOrderAdaptive flags adaptive stepping with a scheme whose strong
	// order is below 1.0, where step doubling is not guaranteed to converge.
	LowOrderAdaptive DiagnosticKind = "low-order-adaptive"
	// ToleranceUnmet flags steps force-accepted at the step floor.
	ToleranceUnmet DiagnosticKind = "tolerance-unmet"
)

// Diagnostic is a non-fatal advisory returned alongside a result.
type Diagnostic struct {
	Kind    DiagnosticKind
	Time    float64
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s (t=%.6g): %s", d.Kind, d.Time, d.Message)
}
