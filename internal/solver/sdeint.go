package solver

import (
	"context"

	"github.com/pkg/errors"
	"github.com/san-kum/sdesim/internal/brownian"
	"github.com/san-kum/sdesim/internal/dynamo"
	"github.com/san-kum/sdesim/internal/sim"
)

type Options struct {
	Method dynamo.Method
	Config dynamo.Config
	// Brownian is used as is when set. Otherwise a source of kind
	// BrownianKind is built over [ts[0], ts[len(ts)-1]], shaped from the
	// first diffusion evaluation and seeded with Seed.
	Brownian     dynamo.Brownian
	BrownianKind brownian.Kind
	Seed         uint64
	Logqp        bool

	// Names rebinds the methods of sde through dynamo.Rename. Noise and
	// SDEType tag the rebound value.
	Names   *dynamo.Names
	Noise   dynamo.NoiseType
	SDEType dynamo.SDEType

	Metrics   []dynamo.Metric
	Observers []dynamo.Observer
}

func DefaultOptions() Options {
	return Options{
		Method:       dynamo.SRK,
		Config:       dynamo.DefaultConfig(),
		BrownianKind: brownian.KindTree,
		SDEType:      dynamo.Ito,
	}
}

// Sdeint integrates sde from y0 across ts. sde is a dynamo.SDE, or any
// value when opts.Names is set.
func Sdeint(ctx context.Context, sde any, y0 Initial, ts []float64, opts Options) (*Trajectory, error) {
	bound, err := bind(sde, opts)
	if err != nil {
		return nil, err
	}
	if err := sim.ValidateTimes(ts); err != nil {
		return nil, err
	}
	state := y0.State()
	if len(state) == 0 || state.Batch() == 0 {
		return nil, errors.Wrap(dynamo.ErrContractViolation, "initial state is empty")
	}
	for i, b := range state {
		if b == nil {
			return nil, errors.Wrapf(dynamo.ErrContractViolation, "initial block %d is nil", i)
		}
		if r, _ := b.Dims(); r != state.Batch() {
			return nil, errors.Wrapf(dynamo.ErrDimensionMismatch, "initial block %d has batch %d, want %d", i, r, state.Batch())
		}
	}
	if _, err := CheckContract(bound, opts.Brownian, opts.Method, opts.Config.Adaptive, opts.Logqp); err != nil {
		return nil, err
	}

	bm := opts.Brownian
	if bm == nil {
		if bm, err = BrownianFor(bound, state, ts, opts.BrownianKind, opts.Seed); err != nil {
			return nil, err
		}
	}

	s, err := New(bound, bm, opts.Config, opts.Method)
	if err != nil {
		return nil, err
	}
	for _, m := range opts.Metrics {
		s.AddMetric(m)
	}
	for _, o := range opts.Observers {
		s.AddObserver(o)
	}

	var result *sim.Result
	if opts.Logqp {
		result, err = s.IntegrateLogqp(ctx, state, ts)
	} else {
		result, err = s.Integrate(ctx, state, ts)
	}
	if err != nil {
		return nil, err
	}
	return &Trajectory{Result: result, tuple: y0.IsTuple()}, nil
}

func bind(sde any, opts Options) (dynamo.SDE, error) {
	if opts.Names == nil {
		s, ok := sde.(dynamo.SDE)
		if !ok || s == nil {
			return nil, errors.Wrapf(dynamo.ErrContractViolation, "%T does not implement the sde interface", sde)
		}
		return s, nil
	}
	noise, sdeType := opts.Noise, opts.SDEType
	if s, ok := sde.(interface{ NoiseType() dynamo.NoiseType }); ok && noise == "" {
		noise = s.NoiseType()
	}
	if s, ok := sde.(interface{ SDEType() dynamo.SDEType }); ok && sdeType == "" {
		sdeType = s.SDEType()
	}
	return dynamo.Rename(sde, *opts.Names, noise, sdeType)
}

// BrownianFor builds a source of the given kind over [ts[0], ts[len(ts)-1]]
// with one (batch, m) block per state block, m taken from the diffusion
// of sde at the first time.
func BrownianFor(sde dynamo.SDE, y0 dynamo.State, ts []float64, kind brownian.Kind, seed uint64) (dynamo.Brownian, error) {
	g := sde.Diffusion(ts[0], y0)
	if err := dynamo.ValidateDiffusion(sde.NoiseType(), g, y0); err != nil {
		return nil, errors.Wrapf(err, "diffusion at t=%g", ts[0])
	}
	shapes := brownian.ShapesFor(y0.Batch(), dynamo.NoiseDims(sde.NoiseType(), g, y0))
	return brownian.New(kind, ts[0], ts[len(ts)-1], shapes, seed)
}
