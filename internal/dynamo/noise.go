package dynamo

import (
	"github.com/pkg/errors"
)

// NoiseType tags an SDE by the structure of its diffusion.
type NoiseType string

const (
	// Diagonal noise drives every coordinate with its own Wiener process.
	Diagonal NoiseType = "diagonal"
	// Scalar noise drives every coordinate with one shared Wiener process.
	Scalar NoiseType = "scalar"
	// Additive noise has a full (d, m) diffusion independent of the state.
	Additive NoiseType = "additive"
	// General noise has a full (d, m) diffusion that may depend on the state.
	General NoiseType = "general"
)

var NoiseTypes = []NoiseType{Diagonal, Scalar, Additive, General}

type SDEType string

const (
	Ito          SDEType = "ito"
	Stratonovich SDEType = "stratonovich"
)

var SDETypes = []SDEType{Ito, Stratonovich}

type Method string

const (
	Euler    Method = "euler"
	Milstein Method = "milstein"
	SRK      Method = "srk"
)

var Methods = []Method{Euler, Milstein, SRK}

func (n NoiseType) Valid() bool {
	for _, v := range NoiseTypes {
		if n == v {
			return true
		}
	}
	return false
}

// Full reports whether g is a (d, m) matrix per batch element.
func (n NoiseType) Full() bool {
	return n == Additive || n == General
}

func (t SDEType) Valid() bool {
	for _, v := range SDETypes {
		if t == v {
			return true
		}
	}
	return false
}

func (m Method) Valid() bool {
	for _, v := range Methods {
		if m == v {
			return true
		}
	}
	return false
}

func ParseNoiseType(s string) (NoiseType, error) {
	n := NoiseType(s)
	if !n.Valid() {
		return "", errors.Wrapf(ErrContractViolation, "expected noise type in %v, but found %q", NoiseTypes, s)
	}
	return n, nil
}

func ParseSDEType(s string) (SDEType, error) {
	t := SDEType(s)
	if !t.Valid() {
		return "", errors.Wrapf(ErrContractViolation, "expected sde type in %v, but found %q", SDETypes, s)
	}
	return t, nil
}

func ParseMethod(s string) (Method, error) {
	m := Method(s)
	if !m.Valid() {
		return "", errors.Wrapf(ErrContractViolation, "expected method in %v, but found %q", Methods, s)
	}
	return m, nil
}

// ValidateDiffusion checks one evaluation of g against the shape contract
// of the noise type: (batch, d) for diagonal and scalar noise, batch
// matrices of shape (d, m) with a common m for general and additive noise.
func ValidateDiffusion(noise NoiseType, g []Diffusion, y State) error {
	if len(g) != len(y) {
		return errors.Wrapf(ErrContractViolation, "diffusion has %d blocks, state has %d", len(g), len(y))
	}
	batch := y.Batch()
	for i, gi := range g {
		_, d := y[i].Dims()
		switch {
		case !noise.Valid():
			return errors.Wrapf(ErrContractViolation, "unrecognised noise type %q", noise)
		case noise.Full():
			if gi.Full == nil || gi.Diag != nil {
				return errors.Wrapf(ErrContractViolation, "block %d: %s noise requires a (batch, d, m) diffusion", i, noise)
			}
			if len(gi.Full) != batch {
				return errors.Wrapf(ErrContractViolation, "block %d: diffusion batch %d, state batch %d", i, len(gi.Full), batch)
			}
			m := -1
			for b, gb := range gi.Full {
				if gb == nil {
					return errors.Wrapf(ErrContractViolation, "block %d: nil diffusion for batch element %d", i, b)
				}
				r, c := gb.Dims()
				if r != d {
					return errors.Wrapf(ErrContractViolation, "block %d: diffusion rows %d, state dim %d", i, r, d)
				}
				if m >= 0 && c != m {
					return errors.Wrapf(ErrContractViolation, "block %d: ragged noise dimension (%d vs %d)", i, c, m)
				}
				m = c
			}
		default:
			if gi.Diag == nil || gi.Full != nil {
				return errors.Wrapf(ErrContractViolation, "block %d: %s noise requires a (batch, d) diffusion", i, noise)
			}
			r, c := gi.Diag.Dims()
			if r != batch || c != d {
				return errors.Wrapf(ErrContractViolation, "block %d: diffusion shape (%d, %d), want (%d, %d)", i, r, c, batch, d)
			}
		}
	}
	return nil
}

// NoiseDims returns the Brownian dimension each block consumes: d for
// diagonal noise, 1 for scalar noise and m for general or additive noise.
// g must already satisfy ValidateDiffusion.
func NoiseDims(noise NoiseType, g []Diffusion, y State) []int {
	dims := make([]int, len(y))
	for i := range y {
		switch {
		case noise == Scalar:
			dims[i] = 1
		case noise.Full():
			_, dims[i] = g[i].Full[0].Dims()
		default:
			_, dims[i] = y[i].Dims()
		}
	}
	return dims
}
