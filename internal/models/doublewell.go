package models

import (
	"github.com/san-kum/sdesim/internal/dynamo"
)

// DoubleWell is overdamped Langevin motion in the bistable potential
// V(x) = a(x² − b)² applied to every coordinate:
//
//	dy = −V'(y)/γ dt + s dW
//
// With enough noise paths hop between the wells at ±√b. The prior is free
// diffusion with the same noise.
type DoubleWell struct {
	A       float64
	B       float64
	Damping float64
	Noise   float64
	D       int
}

func NewDoubleWell() *DoubleWell {
	return &DoubleWell{A: 1.0, B: 1.0, Damping: 1.0, Noise: 0.5, D: 1}
}

func (w *DoubleWell) Name() string                { return "doublewell" }
func (w *DoubleWell) Dim() int                    { return w.D }
func (w *DoubleWell) NoiseType() dynamo.NoiseType { return dynamo.Additive }
func (w *DoubleWell) SDEType() dynamo.SDEType     { return dynamo.Ito }

func (w *DoubleWell) Drift(t float64, y dynamo.State) dynamo.State {
	out := y.Clone()
	for _, b := range out {
		data := dynamo.Data(b)
		for i, x := range data {
			data[i] = -4 * w.A * x * (x*x - w.B) / w.Damping
		}
	}
	return out
}

func (w *DoubleWell) PriorDrift(t float64, y dynamo.State) dynamo.State {
	return dynamo.ZerosLike(y)
}

func (w *DoubleWell) Diffusion(t float64, y dynamo.State) []dynamo.Diffusion {
	return isotropic(y, w.Noise)
}

// Potential returns V(x).
func (w *DoubleWell) Potential(x float64) float64 {
	d := x*x - w.B
	return w.A * d * d
}

func (w *DoubleWell) GetParams() map[string]float64 {
	p := w.params().get()
	p["dim"] = float64(w.D)
	return p
}

func (w *DoubleWell) SetParam(name string, value float64) error {
	if name == "dim" {
		return setDim(&w.D, value)
	}
	return w.params().set(name, value)
}

func (w *DoubleWell) params() params {
	return params{"a": &w.A, "b": &w.B, "damping": &w.Damping, "noise": &w.Noise}
}
