package dynamo

import (
	"reflect"

	"github.com/pkg/errors"
)

type (
	DriftFunc     func(t float64, y State) State
	DiffusionFunc func(t float64, y State) []Diffusion
)

// FuncSDE adapts plain functions to the SDE interface. PriorDriftFn and
// DirectionalFn are optional. Without a prior drift the value does not
// satisfy log-ratio contracts; without a directional Milstein falls back to
// a finite difference.
type FuncSDE struct {
	Noise         NoiseType
	Type          SDEType
	DriftFn       DriftFunc
	DiffusionFn   DiffusionFunc
	PriorDriftFn  DriftFunc
	DirectionalFn DriftFunc
}

func (f *FuncSDE) Drift(t float64, y State) State           { return f.DriftFn(t, y) }
func (f *FuncSDE) Diffusion(t float64, y State) []Diffusion { return f.DiffusionFn(t, y) }
func (f *FuncSDE) NoiseType() NoiseType                     { return f.Noise }
func (f *FuncSDE) SDEType() SDEType                         { return f.Type }

// HasPriorDrift reports whether a prior drift was supplied.
func (f *FuncSDE) HasPriorDrift() bool { return f.PriorDriftFn != nil }

func (f *FuncSDE) PriorDrift(t float64, y State) State {
	return f.PriorDriftFn(t, y)
}

// HasDiffusionDirectional reports whether an analytic g·∂g/∂y was supplied.
func (f *FuncSDE) HasDiffusionDirectional() bool { return f.DirectionalFn != nil }

func (f *FuncSDE) DiffusionDirectional(t float64, y State) State {
	return f.DirectionalFn(t, y)
}

// DirectionalOf returns the analytic g·∂g/∂y capability of sde, if it has one.
func DirectionalOf(sde SDE) (DiffusionDirectional, bool) {
	if f, ok := sde.(*FuncSDE); ok && !f.HasDiffusionDirectional() {
		return nil, false
	}
	d, ok := sde.(DiffusionDirectional)
	return d, ok
}

// PriorDriftOf returns the prior drift capability of sde, if it has one.
func PriorDriftOf(sde SDE) (PriorDrifter, bool) {
	if f, ok := sde.(*FuncSDE); ok && !f.HasPriorDrift() {
		return nil, false
	}
	h, ok := sde.(PriorDrifter)
	return h, ok
}

// Names maps the roles of an SDE onto method names of an arbitrary value.
// Empty fields fall back to the method names of the SDE interface and its
// optional capabilities.
type Names struct {
	Drift       string
	Diffusion   string
	PriorDrift  string
	Directional string
}

func (n Names) withDefaults() Names {
	if n.Drift == "" {
		n.Drift = "Drift"
	}
	if n.Diffusion == "" {
		n.Diffusion = "Diffusion"
	}
	if n.PriorDrift == "" {
		n.PriorDrift = "PriorDrift"
	}
	if n.Directional == "" {
		n.Directional = "DiffusionDirectional"
	}
	return n
}

// Rename builds a FuncSDE from the methods of obj named by names. The
// lookup happens once here; the returned adapter calls plain function
// values. A missing drift or diffusion method, or a method with the wrong
// signature, is a contract violation. A missing prior drift or directional
// is not: the first is only needed for log-ratio accumulation and Milstein
// differentiates the diffusion numerically without the second.
func Rename(obj any, names Names, noise NoiseType, sdeType SDEType) (*FuncSDE, error) {
	if obj == nil {
		return nil, errors.Wrap(ErrContractViolation, "nil sde")
	}
	if !noise.Valid() {
		return nil, errors.Wrapf(ErrContractViolation, "expected noise type in %v, but found %q", NoiseTypes, noise)
	}
	if !sdeType.Valid() {
		return nil, errors.Wrapf(ErrContractViolation, "expected sde type in %v, but found %q", SDETypes, sdeType)
	}
	names = names.withDefaults()
	v := reflect.ValueOf(obj)

	var drift DriftFunc
	if err := lookup(v, names.Drift, &drift); err != nil {
		return nil, err
	}
	var diffusion DiffusionFunc
	if err := lookup(v, names.Diffusion, &diffusion); err != nil {
		return nil, err
	}
	var prior DriftFunc
	if v.MethodByName(names.PriorDrift).IsValid() {
		if err := lookup(v, names.PriorDrift, &prior); err != nil {
			return nil, err
		}
	}

	var directional DriftFunc
	if v.MethodByName(names.Directional).IsValid() {
		if err := lookup(v, names.Directional, &directional); err != nil {
			return nil, err
		}
	}

	return &FuncSDE{
		Noise:         noise,
		Type:          sdeType,
		DriftFn:       drift,
		DiffusionFn:   diffusion,
		PriorDriftFn:  prior,
		DirectionalFn: directional,
	}, nil
}

func lookup[F any](v reflect.Value, name string, out *F) error {
	m := v.MethodByName(name)
	if !m.IsValid() {
		return errors.Wrapf(ErrContractViolation, "sde is missing method %s", name)
	}
	want := reflect.TypeOf(out).Elem()
	if !m.Type().ConvertibleTo(want) {
		return errors.Wrapf(ErrContractViolation, "method %s has signature %s, want %s", name, m.Type(), want)
	}
	*out = m.Convert(want).Interface().(F)
	return nil
}
