package integrators

import (
	"github.com/pkg/errors"
	"github.com/san-kum/sdesim/internal/dynamo"
)

// Stepper advances a state across one interval of a Brownian path.
type Stepper interface {
	Step(t0, t1 float64, y dynamo.State) (dynamo.State, error)
	Name() string
	// StrongOrder is the strong convergence order of the update rule for
	// the noise type it was built for.
	StrongOrder() float64
}

// base holds what every update rule evaluates: the SDE, its noise type and
// the Brownian source. The helpers check every evaluation against the
// shape contract.
type base struct {
	sde   dynamo.SDE
	bm    dynamo.Brownian
	noise dynamo.NoiseType
}

func newBase(sde dynamo.SDE, bm dynamo.Brownian) (base, error) {
	if sde == nil {
		return base{}, errors.Wrap(dynamo.ErrContractViolation, "nil sde")
	}
	if bm == nil {
		return base{}, errors.Wrap(dynamo.ErrContractViolation, "nil brownian motion")
	}
	noise := sde.NoiseType()
	if !noise.Valid() {
		return base{}, errors.Wrapf(dynamo.ErrContractViolation, "expected noise type in %v, but found %q", dynamo.NoiseTypes, noise)
	}
	return base{sde: sde, bm: bm, noise: noise}, nil
}

func (b base) drift(t float64, y dynamo.State) (dynamo.State, error) {
	f := b.sde.Drift(t, y)
	if !f.SameShape(y) {
		return nil, errors.Wrapf(dynamo.ErrContractViolation, "drift at t=%g does not match the state shape", t)
	}
	return f, nil
}

func (b base) diffusion(t float64, y dynamo.State) ([]dynamo.Diffusion, error) {
	g := b.sde.Diffusion(t, y)
	if err := dynamo.ValidateDiffusion(b.noise, g, y); err != nil {
		return nil, errors.Wrapf(err, "diffusion at t=%g", t)
	}
	return g, nil
}

func (b base) increment(t0, t1 float64, y dynamo.State) (dynamo.State, error) {
	dw, err := b.bm.Increment(t0, t1)
	if err != nil {
		return nil, errors.Wrapf(err, "brownian increment over [%g, %g]", t0, t1)
	}
	if len(dw) != len(y) {
		return nil, errors.Wrapf(dynamo.ErrDimensionMismatch, "brownian has %d blocks, state has %d", len(dw), len(y))
	}
	return dw, nil
}

// apply returns y + sum_i g_i·w_i, block by block.
func (b base) apply(y dynamo.State, g []dynamo.Diffusion, w dynamo.State) (dynamo.State, error) {
	out := y.Clone()
	for i := range out {
		gw, err := contract(b.noise, g[i], w[i])
		if err != nil {
			return nil, errors.Wrapf(err, "block %d", i)
		}
		out[i].Add(out[i], gw)
	}
	return out, nil
}
