package integrators

import (
	"math"

	"github.com/pkg/errors"
	"github.com/san-kum/sdesim/internal/dynamo"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// LogRatio evaluates the Girsanov log-likelihood ratio between the SDE and
// its prior (same diffusion, prior drift h). Over a step [t0, t1] from y
// each batch element contributes ½‖u‖²·(t1−t0) + u·ΔW, where u solves
// g·u = f − h at the left endpoint.
type LogRatio struct {
	base
	prior dynamo.PriorDrifter
}

func NewLogRatio(sde dynamo.SDE, bm dynamo.Brownian) (*LogRatio, error) {
	b, err := newBase(sde, bm)
	if err != nil {
		return nil, err
	}
	prior, ok := dynamo.PriorDriftOf(sde)
	if !ok {
		return nil, errors.Wrap(dynamo.ErrContractViolation, "log-ratio needs an sde with a prior drift")
	}
	return &LogRatio{base: b, prior: prior}, nil
}

// Increment returns one batch vector per state block.
func (l *LogRatio) Increment(t0, t1 float64, y dynamo.State) ([][]float64, error) {
	h := t1 - t0
	dw, err := l.increment(t0, t1, y)
	if err != nil {
		return nil, err
	}
	return l.IncrementWith(t0, h, y, dw)
}

// IncrementWith is Increment with a known Brownian increment dw over a
// step of length h.
func (l *LogRatio) IncrementWith(t0, h float64, y, dw dynamo.State) ([][]float64, error) {
	f, err := l.drift(t0, y)
	if err != nil {
		return nil, err
	}
	p := l.prior.PriorDrift(t0, y)
	if !p.SameShape(y) {
		return nil, errors.Wrapf(dynamo.ErrContractViolation, "prior drift at t=%g does not match the state shape", t0)
	}
	g, err := l.diffusion(t0, y)
	if err != nil {
		return nil, err
	}
	diff := f.Sub(p)

	out := make([][]float64, len(y))
	for i := range y {
		var r []float64
		switch {
		case l.noise.Full():
			r, err = logqpFull(g[i].Full, diff[i], dw[i], h)
		case l.noise == dynamo.Scalar:
			r, err = logqpScalar(g[i].Diag, diff[i], dw[i], h)
		default:
			r, err = logqpDiagonal(g[i].Diag, diff[i], dw[i], h)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "block %d", i)
		}
		out[i] = r
	}
	return out, nil
}

func singular(b int, u float64) error {
	if math.IsNaN(u) || math.IsInf(u, 0) {
		return errors.Wrapf(dynamo.ErrDiffusionSingularity, "batch element %d", b)
	}
	return nil
}

func logqpDiagonal(g, diff, dw *mat.Dense, h float64) ([]float64, error) {
	batch, d := g.Dims()
	if r, c := dw.Dims(); r != batch || c != d {
		return nil, errors.Wrapf(dynamo.ErrDimensionMismatch, "increment shape (%d, %d), want (%d, %d)", r, c, batch, d)
	}
	out := make([]float64, batch)
	for b := 0; b < batch; b++ {
		acc := 0.0
		for i := 0; i < d; i++ {
			gi := g.At(b, i)
			if gi == 0 {
				return nil, errors.Wrapf(dynamo.ErrDiffusionSingularity, "batch element %d, coordinate %d", b, i)
			}
			u := diff.At(b, i) / gi
			if err := singular(b, u); err != nil {
				return nil, err
			}
			acc += 0.5*u*u*h + u*dw.At(b, i)
		}
		out[b] = acc
	}
	return out, nil
}

func logqpScalar(g, diff, dw *mat.Dense, h float64) ([]float64, error) {
	batch, _ := g.Dims()
	if r, c := dw.Dims(); r != batch || c != 1 {
		return nil, errors.Wrapf(dynamo.ErrDimensionMismatch, "increment shape (%d, %d), want (%d, 1)", r, c, batch)
	}
	out := make([]float64, batch)
	for b := 0; b < batch; b++ {
		gb := g.RawRowView(b)
		gg := floats.Dot(gb, gb)
		if gg == 0 {
			return nil, errors.Wrapf(dynamo.ErrDiffusionSingularity, "batch element %d has zero diffusion", b)
		}
		u := floats.Dot(gb, diff.RawRowView(b)) / gg
		if err := singular(b, u); err != nil {
			return nil, err
		}
		out[b] = 0.5*u*u*h + u*dw.At(b, 0)
	}
	return out, nil
}

func logqpFull(g []*mat.Dense, diff, dw *mat.Dense, h float64) ([]float64, error) {
	batch := len(g)
	if batch == 0 {
		return nil, nil
	}
	_, m := g[0].Dims()
	if r, c := dw.Dims(); r != batch || c != m {
		return nil, errors.Wrapf(dynamo.ErrDimensionMismatch, "increment shape (%d, %d), want (%d, %d)", r, c, batch, m)
	}
	out := make([]float64, batch)
	err := dynamo.ParallelFor(batch, minParallelBatch, func(start, end int) error {
		var u mat.VecDense
		for b := start; b < end; b++ {
			if err := u.SolveVec(g[b], diff.RowView(b)); err != nil {
				return errors.Wrapf(dynamo.ErrDiffusionSingularity, "batch element %d: %v", b, err)
			}
			for _, v := range u.RawVector().Data {
				if err := singular(b, v); err != nil {
					return err
				}
			}
			uu := mat.Dot(&u, &u)
			out[b] = 0.5*uu*h + mat.Dot(&u, dw.RowView(b))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
