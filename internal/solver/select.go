package solver

import (
	"github.com/pkg/errors"
	"github.com/san-kum/sdesim/internal/dynamo"
	"github.com/san-kum/sdesim/internal/integrators"
)

// Constructor builds the update rule for one SDE and Brownian source.
type Constructor func(sde dynamo.SDE, bm dynamo.Brownian, cfg dynamo.Config) (integrators.Stepper, error)

func newEuler(sde dynamo.SDE, bm dynamo.Brownian, _ dynamo.Config) (integrators.Stepper, error) {
	return integrators.NewEuler(sde, bm)
}

func newMilstein(sde dynamo.SDE, bm dynamo.Brownian, cfg dynamo.Config) (integrators.Stepper, error) {
	return integrators.NewMilstein(sde, bm, cfg.FDEpsilon)
}

func newSRK(sde dynamo.SDE, bm dynamo.Brownian, _ dynamo.Config) (integrators.Stepper, error) {
	return integrators.NewSRK(sde, bm)
}

var constructors = map[dynamo.Method]Constructor{
	dynamo.Euler:    newEuler,
	dynamo.Milstein: newMilstein,
	dynamo.SRK:      newSRK,
}

// supported lists the methods defined for each noise type.
var supported = map[dynamo.NoiseType][]dynamo.Method{
	dynamo.Diagonal: {dynamo.Euler, dynamo.Milstein, dynamo.SRK},
	dynamo.Scalar:   {dynamo.Euler, dynamo.Milstein, dynamo.SRK},
	dynamo.Additive: {dynamo.Euler, dynamo.Milstein, dynamo.SRK},
	dynamo.General:  {dynamo.Euler},
}

// Resolve returns the method that actually runs. Milstein on additive
// noise is Euler, since its correction term vanishes.
func Resolve(method dynamo.Method, noise dynamo.NoiseType) dynamo.Method {
	if method == dynamo.Milstein && noise == dynamo.Additive {
		return dynamo.Euler
	}
	return method
}

// Select returns the constructor for a (method, noise type) pair.
func Select(method dynamo.Method, noise dynamo.NoiseType) (Constructor, error) {
	if !noise.Valid() {
		return nil, errors.Wrapf(dynamo.ErrContractViolation, "expected noise type in %v, but found %q", dynamo.NoiseTypes, noise)
	}
	if !method.Valid() {
		return nil, errors.Wrapf(dynamo.ErrContractViolation, "expected method in %v, but found %q", dynamo.Methods, method)
	}
	for _, m := range supported[noise] {
		if m == method {
			return constructors[Resolve(method, noise)], nil
		}
	}
	return nil, errors.Wrapf(dynamo.ErrUnsupportedCombination, "method %s for %s noise", method, noise)
}

// Supported reports whether Select accepts the pair.
func Supported(method dynamo.Method, noise dynamo.NoiseType) bool {
	_, err := Select(method, noise)
	return err == nil
}
