package models

import (
	"github.com/san-kum/sdesim/internal/dynamo"
)

// Decay is dy = −k·y dt + s·y dW. With the noise switched off it is plain
// exponential decay.
type Decay struct {
	Rate  float64
	Noise float64
	D     int
}

func NewDecay() *Decay {
	return &Decay{Rate: 1.0, Noise: 0.1, D: 1}
}

func (d *Decay) Name() string                { return "decay" }
func (d *Decay) Dim() int                    { return d.D }
func (d *Decay) NoiseType() dynamo.NoiseType { return dynamo.Diagonal }
func (d *Decay) SDEType() dynamo.SDEType     { return dynamo.Ito }

func (d *Decay) Drift(t float64, y dynamo.State) dynamo.State      { return y.Scale(-d.Rate) }
func (d *Decay) PriorDrift(t float64, y dynamo.State) dynamo.State { return dynamo.ZerosLike(y) }

func (d *Decay) Diffusion(t float64, y dynamo.State) []dynamo.Diffusion {
	return diag(y.Scale(d.Noise))
}

func (d *Decay) DiffusionDirectional(t float64, y dynamo.State) dynamo.State {
	return y.Scale(d.Noise * d.Noise)
}

func (d *Decay) GetParams() map[string]float64 {
	p := d.params().get()
	p["dim"] = float64(d.D)
	return p
}

func (d *Decay) SetParam(name string, value float64) error {
	if name == "dim" {
		return setDim(&d.D, value)
	}
	return d.params().set(name, value)
}

func (d *Decay) params() params {
	return params{"rate": &d.Rate, "noise": &d.Noise}
}
