package experiment

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/san-kum/sdesim/internal/dynamo"
	"github.com/san-kum/sdesim/internal/metrics"
	"github.com/san-kum/sdesim/internal/models"
	"github.com/san-kum/sdesim/internal/solver"
)

type Registry struct {
	models map[string]func() models.Model
}

func NewRegistry() *Registry {
	r := &Registry{
		models: make(map[string]func() models.Model),
	}

	r.Register("gbm", func() models.Model { return models.NewGBM() })
	r.Register("scalar-gbm", func() models.Model { return models.NewScalarGBM() })
	r.Register("ou", func() models.Model { return models.NewOU() })
	r.Register("linear2d", func() models.Model { return models.NewLinear2D() })
	r.Register("decay", func() models.Model { return models.NewDecay() })
	r.Register("doublewell", func() models.Model { return models.NewDoubleWell() })
	r.Register("lorenz", func() models.Model { return models.NewLorenz() })

	return r
}

func (r *Registry) Register(name string, fn func() models.Model) {
	r.models[name] = fn
}

// GetModel builds a fresh model and applies params. "dim" is applied
// before the others.
func (r *Registry) GetModel(name string, params map[string]float64) (models.Model, error) {
	fn, ok := r.models[name]
	if !ok {
		return nil, errors.Wrapf(dynamo.ErrContractViolation, "unknown model %q, expected one of %v", name, r.ListModels())
	}
	m := fn()

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if (keys[i] == "dim") != (keys[j] == "dim") {
			return keys[i] == "dim"
		}
		return keys[i] < keys[j]
	})
	for _, k := range keys {
		if err := m.SetParam(k, params[k]); err != nil {
			return nil, errors.Wrapf(err, "model %s", name)
		}
	}
	return m, nil
}

func (r *Registry) ListModels() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListMethods returns the methods that have an update rule for the noise
// type of the named model.
func (r *Registry) ListMethods(model string) ([]dynamo.Method, error) {
	m, err := r.GetModel(model, nil)
	if err != nil {
		return nil, err
	}
	var out []dynamo.Method
	for _, method := range dynamo.Methods {
		if solver.Supported(method, m.NoiseType()) {
			out = append(out, method)
		}
	}
	return out, nil
}

func (r *Registry) DefaultMetrics() []dynamo.Metric {
	return []dynamo.Metric{
		metrics.NewStability(metrics.DefaultStabilityThreshold),
		metrics.NewTerminalNorm(),
	}
}

// Metrics builds the named metrics, or the defaults when names is empty.
func (r *Registry) Metrics(names []string) ([]dynamo.Metric, error) {
	if len(names) == 0 {
		return r.DefaultMetrics(), nil
	}
	out := make([]dynamo.Metric, 0, len(names))
	for _, name := range names {
		m, err := metrics.New(name)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
