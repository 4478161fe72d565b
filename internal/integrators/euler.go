package integrators

import (
	"github.com/san-kum/sdesim/internal/dynamo"
)

// Euler is the Euler-Maruyama scheme y1 = y0 + f·h + g·ΔW. It accepts
// every noise type.
type Euler struct {
	base
}

func NewEuler(sde dynamo.SDE, bm dynamo.Brownian) (*Euler, error) {
	b, err := newBase(sde, bm)
	if err != nil {
		return nil, err
	}
	return &Euler{base: b}, nil
}

func (e *Euler) Name() string { return string(dynamo.Euler) }

// StrongOrder is 1.0 for additive noise, where the scheme coincides with
// Milstein, and 0.5 otherwise.
func (e *Euler) StrongOrder() float64 {
	if e.noise == dynamo.Additive {
		return 1.0
	}
	return 0.5
}

func (e *Euler) Step(t0, t1 float64, y dynamo.State) (dynamo.State, error) {
	h := t1 - t0
	dw, err := e.increment(t0, t1, y)
	if err != nil {
		return nil, err
	}
	f, err := e.drift(t0, y)
	if err != nil {
		return nil, err
	}
	g, err := e.diffusion(t0, y)
	if err != nil {
		return nil, err
	}
	return e.apply(y.AddScaled(h, f), g, dw)
}
