package integrators

import (
	"github.com/pkg/errors"
	"github.com/san-kum/sdesim/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// minParallelBatch is the batch size below which full-noise contractions
// run on the calling goroutine.
const minParallelBatch = 64

// contract computes g·w for one block. w is (batch, d) for diagonal noise,
// (batch, 1) for scalar noise and (batch, m) for general or additive noise;
// the result is always (batch, d).
func contract(noise dynamo.NoiseType, g dynamo.Diffusion, w *mat.Dense) (*mat.Dense, error) {
	wr, wc := w.Dims()
	switch {
	case noise.Full():
		batch := len(g.Full)
		if batch == 0 || wr != batch {
			return nil, errors.Wrapf(dynamo.ErrDimensionMismatch, "noise batch %d, diffusion batch %d", wr, batch)
		}
		d, m := g.Full[0].Dims()
		if wc != m {
			return nil, errors.Wrapf(dynamo.ErrDimensionMismatch, "noise dimension %d, diffusion expects %d", wc, m)
		}
		out := mat.NewDense(batch, d, nil)
		err := dynamo.ParallelFor(batch, minParallelBatch, func(start, end int) error {
			for b := start; b < end; b++ {
				dst := mat.NewVecDense(d, out.RawRowView(b))
				dst.MulVec(g.Full[b], w.RowView(b))
			}
			return nil
		})
		return out, err

	case noise == dynamo.Scalar:
		r, c := g.Diag.Dims()
		if wr != r || wc != 1 {
			return nil, errors.Wrapf(dynamo.ErrDimensionMismatch, "scalar noise needs a (%d, 1) increment, got (%d, %d)", r, wr, wc)
		}
		out := mat.NewDense(r, c, nil)
		for b := 0; b < r; b++ {
			wb := w.At(b, 0)
			for i := 0; i < c; i++ {
				out.Set(b, i, g.Diag.At(b, i)*wb)
			}
		}
		return out, nil

	default:
		r, c := g.Diag.Dims()
		if wr != r || wc != c {
			return nil, errors.Wrapf(dynamo.ErrDimensionMismatch, "diagonal noise needs a (%d, %d) increment, got (%d, %d)", r, c, wr, wc)
		}
		out := mat.NewDense(r, c, nil)
		out.MulElem(g.Diag, w)
		return out, nil
	}
}

// mapState returns a new state with fn applied to every entry of s.
func mapState(s dynamo.State, fn func(v float64) float64) dynamo.State {
	out := s.Clone()
	for _, b := range out {
		b.Apply(func(_, _ int, v float64) float64 { return fn(v) }, b)
	}
	return out
}
