package integrators

import (
	"math"

	"github.com/pkg/errors"
	"github.com/san-kum/sdesim/internal/dynamo"
)

// SRK is a stochastic Runge-Kutta scheme of strong order 1.5: SRI2 for
// diagonal and scalar noise, SRA1 for additive noise. Both need the
// auxiliary space-time variate, so the Brownian source must implement
// dynamo.SpaceTimeSource.
type SRK struct {
	base
	aux dynamo.SpaceTimeSource
}

func NewSRK(sde dynamo.SDE, bm dynamo.Brownian) (*SRK, error) {
	b, err := newBase(sde, bm)
	if err != nil {
		return nil, err
	}
	if b.noise == dynamo.General {
		return nil, errors.Wrapf(dynamo.ErrUnsupportedCombination, "srk with %s noise", b.noise)
	}
	aux, ok := bm.(dynamo.SpaceTimeSource)
	if !ok {
		return nil, errors.Wrap(dynamo.ErrContractViolation, "srk needs a brownian motion that supplies space-time variates")
	}
	return &SRK{base: b, aux: aux}, nil
}

func (s *SRK) Name() string         { return string(dynamo.SRK) }
func (s *SRK) StrongOrder() float64 { return 1.5 }

// integrals holds the iterated Itô integrals of one step.
type integrals struct {
	k    dynamo.State // I_k = ΔW
	kk   dynamo.State // I_kk / sqrt(h)
	k0   dynamo.State // I_k0 / h
	kkk  dynamo.State // I_kkk / h
	rtH  float64
	step float64
}

func (s *SRK) integrals(t0, t1 float64, y dynamo.State) (integrals, error) {
	h := t1 - t0
	dw, err := s.increment(t0, t1, y)
	if err != nil {
		return integrals{}, err
	}
	z, err := s.aux.SpaceTime(t0, t1)
	if err != nil {
		return integrals{}, errors.Wrapf(err, "space-time variate over [%g, %g]", t0, t1)
	}
	if !z.SameShape(dw) {
		return integrals{}, errors.Wrap(dynamo.ErrDimensionMismatch, "space-time variate does not match the increment shape")
	}
	rtH := math.Sqrt(h)
	return integrals{
		k:    dw,
		kk:   mapState(dw, func(v float64) float64 { return (v*v - h) / (2 * rtH) }),
		k0:   dw.AddScaled(1/math.Sqrt(3), z).Scale(0.5),
		kkk:  mapState(dw, func(v float64) float64 { return (v*v*v - 3*h*v) / (6 * h) }),
		rtH:  rtH,
		step: h,
	}, nil
}

func (s *SRK) Step(t0, t1 float64, y dynamo.State) (dynamo.State, error) {
	if t1 == t0 {
		return y.Clone(), nil
	}
	in, err := s.integrals(t0, t1, y)
	if err != nil {
		return nil, err
	}
	if s.noise == dynamo.Additive {
		return s.stepAdditive(t0, y, in)
	}
	return s.stepDiagonal(t0, y, in)
}

func (s *SRK) stepDiagonal(t0 float64, y dynamo.State, in integrals) (dynamo.State, error) {
	tab := sri2
	h := in.step
	n := tab.stages()
	fs := make([]dynamo.State, n)
	gs := make([][]dynamo.Diffusion, n)
	y1 := y.Clone()

	for st := 0; st < n; st++ {
		h0, h1 := y.Clone(), y.Clone()
		var err error
		for j := 0; j < st; j++ {
			if a := tab.A0[st][j]; a != 0 {
				h0 = h0.AddScaled(a*h, fs[j])
			}
			if b := tab.B0[st][j]; b != 0 {
				if h0, err = s.apply(h0, gs[j], in.k0.Scale(b)); err != nil {
					return nil, err
				}
			}
			if a := tab.A1[st][j]; a != 0 {
				h1 = h1.AddScaled(a*h, fs[j])
			}
			if b := tab.B1[st][j]; b != 0 {
				h1 = h1.AddScaled(b*in.rtH, diagOf(gs[j]))
			}
		}

		if fs[st], err = s.drift(t0+tab.C0[st]*h, h0); err != nil {
			return nil, err
		}
		if gs[st], err = s.diffusion(t0+tab.C1[st]*h, h1); err != nil {
			return nil, err
		}

		weight := in.k.Scale(tab.Beta1[st]).
			AddScaled(tab.Beta2[st], in.kk).
			AddScaled(tab.Beta3[st], in.k0).
			AddScaled(tab.Beta4[st], in.kkk)
		if a := tab.Alpha[st]; a != 0 {
			y1 = y1.AddScaled(a*h, fs[st])
		}
		if y1, err = s.apply(y1, gs[st], weight); err != nil {
			return nil, err
		}
	}
	return y1, nil
}

func (s *SRK) stepAdditive(t0 float64, y dynamo.State, in integrals) (dynamo.State, error) {
	tab := sra1
	h := in.step
	n := tab.stages()
	fs := make([]dynamo.State, n)
	gs := make([][]dynamo.Diffusion, n)
	y1 := y.Clone()

	for st := 0; st < n; st++ {
		h0 := y.Clone()
		var err error
		for j := 0; j < st; j++ {
			if a := tab.A0[st][j]; a != 0 {
				h0 = h0.AddScaled(a*h, fs[j])
			}
			if b := tab.B0[st][j]; b != 0 {
				if h0, err = s.apply(h0, gs[j], in.k0.Scale(b)); err != nil {
					return nil, err
				}
			}
		}

		if fs[st], err = s.drift(t0+tab.C0[st]*h, h0); err != nil {
			return nil, err
		}
		// Additive diffusion does not depend on the state.
		if gs[st], err = s.diffusion(t0+tab.C1[st]*h, y); err != nil {
			return nil, err
		}

		weight := in.k.Scale(tab.Beta1[st]).AddScaled(tab.Beta2[st], in.k0)
		y1 = y1.AddScaled(tab.Alpha[st]*h, fs[st])
		if y1, err = s.apply(y1, gs[st], weight); err != nil {
			return nil, err
		}
	}
	return y1, nil
}

func diagOf(g []dynamo.Diffusion) dynamo.State {
	s := make(dynamo.State, len(g))
	for i := range g {
		s[i] = g[i].Diag
	}
	return s
}
