package optim

import (
	"context"
	"math"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/san-kum/sdesim/internal/config"
	"github.com/san-kum/sdesim/internal/dynamo"
	"github.com/san-kum/sdesim/internal/experiment"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"k8s.io/klog/v2"
)

// GridSearch evaluates a metric at every point of a parameter grid and
// keeps the point with the smallest value.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) == 0 || len(params) != len(ranges) {
		return nil, errors.Wrapf(dynamo.ErrContractViolation, "grid needs one range per parameter, got %d names and %d ranges", len(params), len(ranges))
	}
	for i, r := range ranges {
		if len(r) == 0 {
			return nil, errors.Wrapf(dynamo.ErrContractViolation, "empty range for %s", params[i])
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges}, nil
}

// Size is the number of grid points.
func (g *GridSearch) Size() int {
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

// Evaluation is the outcome at one grid point. Err is set when the run
// failed; Value is then NaN.
type Evaluation struct {
	Params map[string]float64
	Value  float64
	Err    error
}

type Result struct {
	Best        map[string]float64
	Value       float64
	Evaluations []Evaluation
}

// Search runs base once per grid point with the point's parameters merged
// over base.Params. Points whose run fails or yields NaN are skipped; ties
// go to the earlier point. onDone may be nil.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, reg *experiment.Registry, metric string, onDone func(Evaluation)) (*Result, error) {
	model, err := reg.GetModel(base.Model, nil)
	if err != nil {
		return nil, err
	}
	known := model.GetParams()
	for _, name := range g.paramNames {
		if _, ok := known[name]; !ok || name == "dim" {
			return nil, errors.Wrapf(dynamo.ErrContractViolation, "%s has no tunable parameter %q", base.Model, name)
		}
	}
	if _, err := reg.Metrics([]string{metric}); err != nil {
		return nil, err
	}

	points := g.points()
	evals := make([]Evaluation, len(points))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i, p := range points {
		eg.Go(func() error {
			val, err := evaluate(ctx, base, reg, p, metric)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			evals[i] = Evaluation{Params: p, Value: val, Err: err}
			if err != nil {
				klog.V(1).InfoS("grid point failed", "params", p, "err", err)
			}
			if onDone != nil {
				onDone(evals[i])
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	res := &Result{Value: math.Inf(1), Evaluations: evals}
	for _, ev := range evals {
		if ev.Err == nil && !math.IsNaN(ev.Value) && ev.Value < res.Value {
			res.Best, res.Value = ev.Params, ev.Value
		}
	}
	if res.Best == nil {
		return res, errors.Errorf("no grid point of %s produced a finite %s", base.Model, metric)
	}
	return res, nil
}

// points enumerates the grid with the last parameter varying fastest.
func (g *GridSearch) points() []map[string]float64 {
	out := make([]map[string]float64, 0, g.Size())
	idx := make([]int, len(g.ranges))
	for {
		p := make(map[string]float64, len(idx))
		for d, i := range idx {
			p[g.paramNames[d]] = g.ranges[d][i]
		}
		out = append(out, p)

		d := len(idx) - 1
		for ; d >= 0; d-- {
			idx[d]++
			if idx[d] < len(g.ranges[d]) {
				break
			}
			idx[d] = 0
		}
		if d < 0 {
			return out
		}
	}
}

func evaluate(ctx context.Context, base *config.Config, reg *experiment.Registry, point map[string]float64, metric string) (float64, error) {
	cfg := base.Clone()
	if cfg.Params == nil {
		cfg.Params = make(map[string]float64, len(point))
	}
	for k, v := range point {
		cfg.Params[k] = v
	}
	cfg.Metrics = []string{metric}

	exp, err := experiment.New(cfg, reg)
	if err != nil {
		return math.NaN(), err
	}
	ms, err := reg.Metrics(cfg.Metrics)
	if err != nil {
		return math.NaN(), err
	}
	traj, err := exp.Run(ctx, ms)
	if err != nil {
		return math.NaN(), err
	}
	return traj.Metrics[metric], nil
}

// ParseAxis parses "name=lo:hi:n" into n evenly spaced values, or
// "name=a,b,c" into an explicit list.
func ParseAxis(s string) (string, []float64, error) {
	name, list, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" || list == "" {
		return "", nil, errors.Errorf("grid axis %q: expected name=lo:hi:n or name=a,b,...", s)
	}

	if parts := strings.Split(list, ":"); len(parts) == 3 {
		lo, err1 := strconv.ParseFloat(parts[0], 64)
		hi, err2 := strconv.ParseFloat(parts[1], 64)
		n, err3 := strconv.Atoi(parts[2])
		if err1 != nil || err2 != nil || err3 != nil || n < 1 {
			return "", nil, errors.Errorf("grid axis %q: bad range", s)
		}
		if n == 1 {
			return name, []float64{lo}, nil
		}
		return name, floats.Span(make([]float64, n), lo, hi), nil
	}

	var values []float64
	for _, f := range strings.Split(list, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return "", nil, errors.Wrapf(err, "grid axis %q", s)
		}
		values = append(values, v)
	}
	return name, values, nil
}
