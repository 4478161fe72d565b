package models

import (
	"math"

	"github.com/san-kum/sdesim/internal/dynamo"
)

// OU is the Ornstein-Uhlenbeck process dy = θ(μ − y) dt + σ dW with a
// constant σI diffusion. The prior is the same process reverting to 0.
type OU struct {
	Theta float64
	Mean  float64
	Sigma float64
	D     int
}

func NewOU() *OU {
	return &OU{Theta: 1.0, Mean: 0.0, Sigma: 0.5, D: 2}
}

func (o *OU) Name() string                { return "ou" }
func (o *OU) Dim() int                    { return o.D }
func (o *OU) NoiseType() dynamo.NoiseType { return dynamo.Additive }
func (o *OU) SDEType() dynamo.SDEType     { return dynamo.Ito }

func (o *OU) Drift(t float64, y dynamo.State) dynamo.State {
	out := y.Scale(-o.Theta)
	for _, b := range out {
		data := dynamo.Data(b)
		for i := range data {
			data[i] += o.Theta * o.Mean
		}
	}
	return out
}

func (o *OU) PriorDrift(t float64, y dynamo.State) dynamo.State {
	return y.Scale(-o.Theta)
}

func (o *OU) Diffusion(t float64, y dynamo.State) []dynamo.Diffusion {
	return isotropic(y, o.Sigma)
}

// Moments returns the mean and variance of every coordinate at time t
// when started from the point y0.
func (o *OU) Moments(t, y0 float64) (mean, variance float64) {
	decay := math.Exp(-o.Theta * t)
	mean = o.Mean + (y0-o.Mean)*decay
	variance = o.Sigma * o.Sigma / (2 * o.Theta) * (1 - decay*decay)
	return mean, variance
}

// Spectrum is the stationary power spectral density σ²/(θ² + ω²) of every
// coordinate, a Lorentzian in the angular frequency ω.
func (o *OU) Spectrum(omega float64) float64 {
	return o.Sigma * o.Sigma / (o.Theta*o.Theta + omega*omega)
}

func (o *OU) GetParams() map[string]float64 {
	p := o.params().get()
	p["dim"] = float64(o.D)
	return p
}

func (o *OU) SetParam(name string, value float64) error {
	if name == "dim" {
		return setDim(&o.D, value)
	}
	return o.params().set(name, value)
}

func (o *OU) params() params {
	return params{"theta": &o.Theta, "mean": &o.Mean, "sigma": &o.Sigma}
}
