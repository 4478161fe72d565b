package integrators

import (
	"github.com/san-kum/sdesim/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

func diag(s dynamo.State) []dynamo.Diffusion {
	g := make([]dynamo.Diffusion, len(s))
	for i := range s {
		g[i] = dynamo.Diffusion{Diag: s[i]}
	}
	return g
}

// gbm is dy = mu·y dt + sigma·y dW with diagonal noise.
func gbm(mu, sigma float64) *dynamo.FuncSDE {
	return &dynamo.FuncSDE{
		Noise: dynamo.Diagonal,
		Type:  dynamo.Ito,
		DriftFn: func(t float64, y dynamo.State) dynamo.State {
			return y.Scale(mu)
		},
		DiffusionFn: func(t float64, y dynamo.State) []dynamo.Diffusion {
			return diag(y.Scale(sigma))
		},
	}
}

// constant returns a full-noise diffusion with the same matrix for every
// batch element.
func constant(batch int, g *mat.Dense) dynamo.Diffusion {
	full := make([]*mat.Dense, batch)
	for b := range full {
		full[b] = g
	}
	return dynamo.Diffusion{Full: full}
}

func ones(batch, d int) dynamo.State {
	s := dynamo.NewState(batch, d)
	for _, b := range s {
		b.Apply(func(_, _ int, _ float64) float64 { return 1 }, b)
	}
	return s
}

func run(s Stepper, y0 dynamo.State, t0, t1 float64, n int) (dynamo.State, error) {
	y := y0
	h := (t1 - t0) / float64(n)
	for i := 0; i < n; i++ {
		a := t0 + float64(i)*h
		b := t0 + float64(i+1)*h
		if i == n-1 {
			b = t1
		}
		var err error
		if y, err = s.Step(a, b, y); err != nil {
			return nil, err
		}
	}
	return y, nil
}

// stepOnly hides the space-time capability of a Brownian source.
type stepOnly struct {
	dynamo.Brownian
}
