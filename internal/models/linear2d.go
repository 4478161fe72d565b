package models

import (
	"math"

	"github.com/san-kum/sdesim/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// Linear2D is a damped rotation in the plane driven by two Wiener
// processes through a state-dependent mixing matrix
//
//	g(y) = [ s·√(1+y₀²)   c          ]
//	       [ −c           s·√(1+y₁²) ]
//
// whose determinant is always positive, so the log-ratio is defined
// everywhere. The prior has zero drift.
type Linear2D struct {
	Damping  float64
	Rotation float64
	Noise    float64
	Coupling float64
}

func NewLinear2D() *Linear2D {
	return &Linear2D{Damping: 0.5, Rotation: 2.0, Noise: 0.2, Coupling: 0.1}
}

func (l *Linear2D) Name() string                { return "linear2d" }
func (l *Linear2D) Dim() int                    { return 2 }
func (l *Linear2D) NoiseType() dynamo.NoiseType { return dynamo.General }
func (l *Linear2D) SDEType() dynamo.SDEType     { return dynamo.Ito }

func (l *Linear2D) Drift(t float64, y dynamo.State) dynamo.State {
	a := mat.NewDense(2, 2, []float64{
		-l.Damping, l.Rotation,
		-l.Rotation, -l.Damping,
	})
	out := dynamo.ZerosLike(y)
	for i := range y {
		// Rows are batch elements, so y·Aᵀ applies A to each.
		out[i].Mul(y[i], a.T())
	}
	return out
}

func (l *Linear2D) PriorDrift(t float64, y dynamo.State) dynamo.State {
	return dynamo.ZerosLike(y)
}

func (l *Linear2D) Diffusion(t float64, y dynamo.State) []dynamo.Diffusion {
	g := make([]dynamo.Diffusion, len(y))
	for i, b := range y {
		batch, _ := b.Dims()
		full := make([]*mat.Dense, batch)
		for k := range full {
			y0, y1 := b.At(k, 0), b.At(k, 1)
			full[k] = mat.NewDense(2, 2, []float64{
				l.Noise * math.Sqrt(1+y0*y0), l.Coupling,
				-l.Coupling, l.Noise * math.Sqrt(1+y1*y1),
			})
		}
		g[i] = dynamo.Diffusion{Full: full}
	}
	return g
}

func (l *Linear2D) GetParams() map[string]float64 { return l.params().get() }

func (l *Linear2D) SetParam(name string, value float64) error {
	return l.params().set(name, value)
}

func (l *Linear2D) params() params {
	return params{"damping": &l.Damping, "rotation": &l.Rotation, "noise": &l.Noise, "coupling": &l.Coupling}
}
