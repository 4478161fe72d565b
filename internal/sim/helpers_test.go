package sim

import (
	"github.com/san-kum/sdesim/internal/brownian"
	"github.com/san-kum/sdesim/internal/dynamo"
	"github.com/san-kum/sdesim/internal/integrators"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func diag(s dynamo.State) []dynamo.Diffusion {
	g := make([]dynamo.Diffusion, len(s))
	for i := range s {
		g[i] = dynamo.Diffusion{Diag: s[i]}
	}
	return g
}

// linear is dy = mu·y dt + sigma·y dW with diagonal noise and prior drift 0.
func linear(mu, sigma float64) *dynamo.FuncSDE {
	return &dynamo.FuncSDE{
		Noise:        dynamo.Diagonal,
		Type:         dynamo.Ito,
		DriftFn:      func(t float64, y dynamo.State) dynamo.State { return y.Scale(mu) },
		DiffusionFn:  func(t float64, y dynamo.State) []dynamo.Diffusion { return diag(y.Scale(sigma)) },
		PriorDriftFn: func(t float64, y dynamo.State) dynamo.State { return dynamo.ZerosLike(y) },
	}
}

func filled(batch, d int, v float64) dynamo.State {
	data := make([]float64, batch*d)
	for i := range data {
		data[i] = v
	}
	return dynamo.State{mat.NewDense(batch, d, data)}
}

func tree(t require.TestingT, t1 float64, batch, m int, seed uint64) *brownian.Tree {
	tr, err := brownian.NewTree(0, t1, brownian.ShapesFor(batch, []int{m}), seed, 0)
	require.NoError(t, err)
	return tr
}

type stepperFunc func(sde dynamo.SDE, bm dynamo.Brownian) (integrators.Stepper, error)

func srk(sde dynamo.SDE, bm dynamo.Brownian) (integrators.Stepper, error) {
	return integrators.NewSRK(sde, bm)
}

func euler(sde dynamo.SDE, bm dynamo.Brownian) (integrators.Stepper, error) {
	return integrators.NewEuler(sde, bm)
}

func newSim(t require.TestingT, sde dynamo.SDE, bm dynamo.Brownian, cfg dynamo.Config, build stepperFunc) *Simulator {
	st, err := build(sde, bm)
	require.NoError(t, err)
	return New(st, cfg)
}

func fixed(dt float64) dynamo.Config {
	cfg := dynamo.DefaultConfig()
	cfg.Dt = dt
	return cfg
}

func adaptive(dt, dtMin, rtol, atol float64) dynamo.Config {
	cfg := dynamo.DefaultConfig()
	cfg.Adaptive = true
	cfg.Dt, cfg.DtMin, cfg.Rtol, cfg.Atol = dt, dtMin, rtol, atol
	return cfg
}

type stepRecorder struct {
	times []float64
}

func (r *stepRecorder) OnStep(t float64, y dynamo.State, h float64) {
	r.times = append(r.times, t)
}
