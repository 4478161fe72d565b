package models

import (
	"math"

	"github.com/san-kum/sdesim/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// GBM is geometric Brownian motion dy = μy dt + σy dW with an independent
// driver per coordinate. The prior drift is μ₀y.
type GBM struct {
	Mu      float64
	Sigma   float64
	PriorMu float64
	D       int
}

func NewGBM() *GBM {
	return &GBM{Mu: 0.5, Sigma: 0.3, PriorMu: 0.2, D: 1}
}

func (g *GBM) Name() string                { return "gbm" }
func (g *GBM) Dim() int                    { return g.D }
func (g *GBM) NoiseType() dynamo.NoiseType { return dynamo.Diagonal }
func (g *GBM) SDEType() dynamo.SDEType     { return dynamo.Ito }

func (g *GBM) Drift(t float64, y dynamo.State) dynamo.State      { return y.Scale(g.Mu) }
func (g *GBM) PriorDrift(t float64, y dynamo.State) dynamo.State { return y.Scale(g.PriorMu) }

func (g *GBM) Diffusion(t float64, y dynamo.State) []dynamo.Diffusion {
	return diag(y.Scale(g.Sigma))
}

// DiffusionDirectional is σ²y.
func (g *GBM) DiffusionDirectional(t float64, y dynamo.State) dynamo.State {
	return y.Scale(g.Sigma * g.Sigma)
}

func (g *GBM) Exact(t float64, y0, w dynamo.State) dynamo.State {
	out := y0.Clone()
	drift := (g.Mu - g.Sigma*g.Sigma/2) * t
	for i := range out {
		out[i].Apply(func(r, c int, v float64) float64 {
			return v * math.Exp(drift+g.Sigma*w[i].At(r, c))
		}, out[i])
	}
	return out
}

func (g *GBM) GetParams() map[string]float64 {
	p := g.params().get()
	p["dim"] = float64(g.D)
	return p
}

func (g *GBM) SetParam(name string, value float64) error {
	if name == "dim" {
		return setDim(&g.D, value)
	}
	return g.params().set(name, value)
}

func (g *GBM) params() params {
	return params{"mu": &g.Mu, "sigma": &g.Sigma, "prior_mu": &g.PriorMu}
}

// ScalarGBM is GBM where every coordinate shares one Wiener driver.
type ScalarGBM struct {
	GBM
}

func NewScalarGBM() *ScalarGBM {
	return &ScalarGBM{GBM: GBM{Mu: 0.5, Sigma: 0.3, PriorMu: 0.2, D: 2}}
}

func (s *ScalarGBM) Name() string                { return "scalar-gbm" }
func (s *ScalarGBM) NoiseType() dynamo.NoiseType { return dynamo.Scalar }

func (s *ScalarGBM) Exact(t float64, y0, w dynamo.State) dynamo.State {
	shared := make(dynamo.State, len(y0))
	for i := range y0 {
		r, c := y0[i].Dims()
		shared[i] = mat.NewDense(r, c, nil)
		for b := 0; b < r; b++ {
			for j := 0; j < c; j++ {
				shared[i].Set(b, j, w[i].At(b, 0))
			}
		}
	}
	return s.GBM.Exact(t, y0, shared)
}

func setDim(d *int, value float64) error {
	if value < 1 || value != math.Trunc(value) {
		return errInvalidDim(value)
	}
	*d = int(value)
	return nil
}
