package analysis

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"github.com/san-kum/sdesim/internal/brownian"
	"github.com/san-kum/sdesim/internal/dynamo"
	"github.com/san-kum/sdesim/internal/models"
	"github.com/san-kum/sdesim/internal/sim"
	"github.com/san-kum/sdesim/internal/solver"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"k8s.io/klog/v2"
)

// referenceRefine is how much finer than the smallest dt the numerical
// reference runs when the model has no closed form.
const referenceRefine = 16

// Convergence is the outcome of a step-size study.
type Convergence struct {
	Dts    []float64
	Errors []float64
	// Order is the fitted slope of log error against log dt.
	Order float64
	// Exact reports whether the reference came from a closed form.
	Exact bool
}

// StrongOrder fits log(errs) = c + p*log(dts) by least squares and returns
// p. Every dt and error must be positive.
func StrongOrder(dts, errs []float64) (float64, error) {
	if len(dts) != len(errs) {
		return 0, errors.Errorf("have %d step sizes and %d errors", len(dts), len(errs))
	}
	if len(dts) < 2 {
		return 0, errors.New("need at least two step sizes")
	}
	x := make([]float64, len(dts))
	y := make([]float64, len(errs))
	for i := range dts {
		if !(dts[i] > 0) || !(errs[i] > 0) {
			return 0, errors.Errorf("point %d: dt=%g err=%g must both be positive", i, dts[i], errs[i])
		}
		x[i] = math.Log(dts[i])
		y[i] = math.Log(errs[i])
	}
	_, beta := stat.LinearRegression(x, y, nil, false)
	return beta, nil
}

// StrongError is the mean of |a - b| over every entry of every block.
func StrongError(a, b dynamo.State) float64 {
	var sum float64
	var n int
	for i := range a {
		var d mat.Dense
		d.Sub(a[i], b[i])
		data := dynamo.Data(&d)
		for _, v := range data {
			sum += math.Abs(v)
		}
		n += len(data)
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Converge integrates sde from y0 over [0, t1] with method once per dt,
// all runs sharing one Brownian tree, and compares each terminal state to
// a reference. Models implementing [models.Exacter] are compared to their
// closed form; others to the same method run at a much finer step.
// progress, when not nil, is called after each run finishes.
func Converge(ctx context.Context, sde dynamo.SDE, y0 dynamo.State, t1 float64, method dynamo.Method, dts []float64, seed uint64, progress func()) (*Convergence, error) {
	if len(dts) < 2 {
		return nil, errors.New("need at least two step sizes")
	}
	if _, err := solver.CheckContract(sde, nil, method, false, false); err != nil {
		return nil, err
	}
	g := sde.Diffusion(0, y0)
	if err := dynamo.ValidateDiffusion(sde.NoiseType(), g, y0); err != nil {
		return nil, errors.Wrap(err, "diffusion at t=0")
	}
	shapes := brownian.ShapesFor(y0.Batch(), dynamo.NoiseDims(sde.NoiseType(), g, y0))
	bm, err := brownian.NewTree(0, t1, shapes, seed, 0)
	if err != nil {
		return nil, err
	}
	build, err := builder(sde, bm, method)
	if err != nil {
		return nil, err
	}

	ts := []float64{0, t1}
	var onDone func(float64)
	if progress != nil {
		onDone = func(float64) { progress() }
	}
	results, err := sim.Sweep(ctx, dts, y0, ts, build, onDone)
	if err != nil {
		return nil, err
	}

	out := &Convergence{Dts: append([]float64(nil), dts...), Errors: make([]float64, len(dts))}
	var ref dynamo.State
	if ex, ok := sde.(models.Exacter); ok {
		w, err := bm.At(t1)
		if err != nil {
			return nil, err
		}
		ref = ex.Exact(t1, y0, w)
		out.Exact = true
	} else {
		fine := minOf(dts) / referenceRefine
		klog.V(1).Infof("convergence: no closed form, reference run at dt=%g", fine)
		s, err := build(fine)
		if err != nil {
			return nil, err
		}
		res, err := s.Run(ctx, y0, ts)
		if err != nil {
			return nil, errors.Wrap(err, "reference run")
		}
		ref = res.Final()
	}

	for i, r := range results {
		out.Errors[i] = StrongError(r.Final(), ref)
	}
	out.Order, err = StrongOrder(out.Dts, out.Errors)
	if err != nil {
		return nil, err
	}
	klog.V(1).Infof("convergence: method=%s order=%.3f", method, out.Order)
	return out, nil
}

func builder(sde dynamo.SDE, bm dynamo.Brownian, method dynamo.Method) (sim.Build, error) {
	ctor, err := solver.Select(method, sde.NoiseType())
	if err != nil {
		return nil, err
	}
	return func(dt float64) (*sim.Simulator, error) {
		cfg := dynamo.DefaultConfig()
		cfg.Dt = dt
		cfg.DtMin = math.Min(cfg.DtMin, dt)
		st, err := ctor(sde, bm, cfg)
		if err != nil {
			return nil, err
		}
		return sim.New(st, cfg), nil
	}, nil
}

func minOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		m = math.Min(m, x)
	}
	return m
}
