package models

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/san-kum/sdesim/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// Model is a named SDE with tunable parameters and a fixed state
// dimension.
type Model interface {
	dynamo.SDE
	dynamo.Configurable
	Name() string
	Dim() int
}

// Exacter is implemented by models with a closed-form strong solution
// y(t) = F(t, y0, W(t)).
type Exacter interface {
	Exact(t float64, y0, w dynamo.State) dynamo.State
}

// params is a named parameter set backed by float fields of a model.
type params map[string]*float64

func (p params) get() map[string]float64 {
	out := make(map[string]float64, len(p))
	for k, v := range p {
		out[k] = *v
	}
	return out
}

func (p params) set(name string, value float64) error {
	v, ok := p[name]
	if !ok {
		names := make([]string, 0, len(p))
		for k := range p {
			names = append(names, k)
		}
		sort.Strings(names)
		return errors.Errorf("unknown parameter %q, expected one of %v", name, names)
	}
	*v = value
	return nil
}

func diag(s dynamo.State) []dynamo.Diffusion {
	g := make([]dynamo.Diffusion, len(s))
	for i := range s {
		g[i] = dynamo.Diffusion{Diag: s[i]}
	}
	return g
}

// isotropic returns the constant additive diffusion sigma·I for every
// batch element of every block.
func isotropic(y dynamo.State, sigma float64) []dynamo.Diffusion {
	g := make([]dynamo.Diffusion, len(y))
	for i, b := range y {
		batch, d := b.Dims()
		data := make([]float64, d)
		for j := range data {
			data[j] = sigma
		}
		s := mat.NewDiagDense(d, data)
		full := make([]*mat.Dense, batch)
		for k := range full {
			full[k] = mat.DenseCopyOf(s)
		}
		g[i] = dynamo.Diffusion{Full: full}
	}
	return g
}

func errInvalidDim(v float64) error {
	return errors.Errorf("dim must be a positive integer, got %v", v)
}
