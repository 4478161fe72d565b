package models

import (
	"github.com/san-kum/sdesim/internal/dynamo"
)

// Lorenz is the Lorenz system with additive noise s·dW on each of its
// three coordinates. The prior drops the quadratic couplings and keeps
// the linear part of the flow.
type Lorenz struct {
	Sigma float64
	Rho   float64
	Beta  float64
	Noise float64
}

func NewLorenz() *Lorenz {
	return &Lorenz{Sigma: 10.0, Rho: 28.0, Beta: 8.0 / 3.0, Noise: 1.0}
}

func (l *Lorenz) Name() string                { return "lorenz" }
func (l *Lorenz) Dim() int                    { return 3 }
func (l *Lorenz) NoiseType() dynamo.NoiseType { return dynamo.Additive }
func (l *Lorenz) SDEType() dynamo.SDEType     { return dynamo.Ito }

func (l *Lorenz) Drift(t float64, y dynamo.State) dynamo.State {
	return l.flow(y, true)
}

func (l *Lorenz) PriorDrift(t float64, y dynamo.State) dynamo.State {
	return l.flow(y, false)
}

func (l *Lorenz) flow(y dynamo.State, coupled bool) dynamo.State {
	out := dynamo.ZerosLike(y)
	for i, b := range y {
		batch, _ := b.Dims()
		for k := 0; k < batch; k++ {
			s := b.RawRowView(k)
			x, yy, z := s[0], s[1], s[2]
			row := out[i].RawRowView(k)
			row[0] = l.Sigma * (yy - x)
			row[1] = l.Rho*x - yy
			row[2] = -l.Beta * z
			if coupled {
				row[1] -= x * z
				row[2] += x * yy
			}
		}
	}
	return out
}

func (l *Lorenz) Diffusion(t float64, y dynamo.State) []dynamo.Diffusion {
	return isotropic(y, l.Noise)
}

func (l *Lorenz) GetParams() map[string]float64 { return l.params().get() }

func (l *Lorenz) SetParam(name string, value float64) error {
	return l.params().set(name, value)
}

func (l *Lorenz) params() params {
	return params{"sigma": &l.Sigma, "rho": &l.Rho, "beta": &l.Beta, "noise": &l.Noise}
}
