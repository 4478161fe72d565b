package integrators

import (
	"math"

	"github.com/pkg/errors"
	"github.com/san-kum/sdesim/internal/dynamo"
	"gonum.org/v1/gonum/floats"
)

const defaultFDEpsilon = 1e-6

// Milstein adds the Itô correction ½·g·∂g/∂y·(ΔW² − h) to Euler-Maruyama.
// It is defined for diagonal and scalar noise. The product g·∂g/∂y comes
// from the SDE when it implements dynamo.DiffusionDirectional and from a
// central difference along g otherwise.
type Milstein struct {
	base
	eps float64
}

// NewMilstein builds the scheme. eps is the relative finite-difference
// step; 0 selects 1e-6.
func NewMilstein(sde dynamo.SDE, bm dynamo.Brownian, eps float64) (*Milstein, error) {
	b, err := newBase(sde, bm)
	if err != nil {
		return nil, err
	}
	if b.noise != dynamo.Diagonal && b.noise != dynamo.Scalar {
		return nil, errors.Wrapf(dynamo.ErrUnsupportedCombination, "milstein with %s noise", b.noise)
	}
	if eps <= 0 {
		eps = defaultFDEpsilon
	}
	return &Milstein{base: b, eps: eps}, nil
}

func (m *Milstein) Name() string         { return string(dynamo.Milstein) }
func (m *Milstein) StrongOrder() float64 { return 1.0 }

func (m *Milstein) Step(t0, t1 float64, y dynamo.State) (dynamo.State, error) {
	h := t1 - t0
	dw, err := m.increment(t0, t1, y)
	if err != nil {
		return nil, err
	}
	f, err := m.drift(t0, y)
	if err != nil {
		return nil, err
	}
	g, err := m.diffusion(t0, y)
	if err != nil {
		return nil, err
	}
	gdg, err := m.directional(t0, y, g)
	if err != nil {
		return nil, err
	}

	// The correction reuses the Euler contraction with weights (ΔW² − h)/2.
	weights := mapState(dw, func(v float64) float64 { return (v*v - h) / 2 })
	corr := make([]dynamo.Diffusion, len(gdg))
	for i := range gdg {
		corr[i] = dynamo.Diffusion{Diag: gdg[i]}
	}

	out, err := m.apply(y.AddScaled(h, f), g, dw)
	if err != nil {
		return nil, err
	}
	return m.apply(out, corr, weights)
}

func (m *Milstein) directional(t float64, y dynamo.State, g []dynamo.Diffusion) (dynamo.State, error) {
	if dd, ok := dynamo.DirectionalOf(m.sde); ok {
		gdg := dd.DiffusionDirectional(t, y)
		if !gdg.SameShape(y) {
			return nil, errors.Wrapf(dynamo.ErrContractViolation, "diffusion directional at t=%g does not match the state shape", t)
		}
		return gdg, nil
	}

	dir := make(dynamo.State, len(g))
	for i := range g {
		dir[i] = g[i].Diag
	}
	scale := 0.0
	for _, b := range y {
		scale = math.Max(scale, floats.Norm(dynamo.Data(b), math.Inf(1)))
	}
	eps := m.eps * (1 + scale)

	gp, err := m.diffusion(t, y.AddScaled(eps, dir))
	if err != nil {
		return nil, err
	}
	gm, err := m.diffusion(t, y.AddScaled(-eps, dir))
	if err != nil {
		return nil, err
	}
	gdg := dynamo.ZerosLike(y)
	for i := range gdg {
		gdg[i].Sub(gp[i].Diag, gm[i].Diag)
		gdg[i].Scale(1/(2*eps), gdg[i])
	}
	return gdg, nil
}
