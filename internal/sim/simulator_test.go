package sim

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"github.com/san-kum/sdesim/internal/brownian"
	"github.com/san-kum/sdesim/internal/dynamo"
	"github.com/san-kum/sdesim/internal/integrators"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestRunDecayScenario(t *testing.T) {
	bm := brownian.NewZero(brownian.ShapesFor(1, []int{1}))
	s := newSim(t, linear(-1, 0.1), bm, fixed(1e-3), euler)

	result, err := s.Run(context.Background(), filled(1, 1, 1.0), []float64{0, 1})
	require.NoError(t, err)
	require.Len(t, result.States, 2)

	got := result.Final()[0].At(0, 0)
	if math.Abs(got-math.Exp(-1)) > 1e-3 {
		t.Errorf("y(1) = %.6f, want %.6f", got, math.Exp(-1))
	}
	assert.Equal(t, 1000, result.Stats.Steps)
}

func TestOutputGridFidelity(t *testing.T) {
	ts := []float64{0, 0.1, 0.35, 0.36, 0.36, 1.0}
	configs := map[string]dynamo.Config{
		"fixed":    fixed(0.07),
		"adaptive": adaptive(0.07, 1e-3, 1e-3, 1e-3),
	}

	for name, cfg := range configs {
		t.Run(name, func(t *testing.T) {
			rec := &stepRecorder{}
			s := newSim(t, linear(0.5, 0.3), tree(t, 1, 3, 1, 4), cfg, srk)
			s.AddObserver(rec)

			result, err := s.Run(context.Background(), filled(3, 1, 1), ts)
			require.NoError(t, err)
			assert.Equal(t, ts, result.Times)
			assert.Len(t, result.States, len(ts))

			for _, out := range ts[1:] {
				assert.Contains(t, rec.times, out, "output time %v is not a step endpoint", out)
			}
			assert.Equal(t, dynamo.Data(result.States[3][0]), dynamo.Data(result.States[4][0]))
		})
	}
}

func TestRunDeterministic(t *testing.T) {
	for _, cfg := range []dynamo.Config{fixed(0.01), adaptive(0.05, 1e-4, 1e-4, 1e-4)} {
		var finals [2][]float64
		for i := range finals {
			s := newSim(t, linear(0.5, 0.8), tree(t, 1, 8, 1, 77), cfg, srk)
			result, err := s.Run(context.Background(), filled(8, 1, 1), []float64{0, 0.5, 1})
			require.NoError(t, err)
			finals[i] = dynamo.Data(result.Final()[0])
		}
		assert.Equal(t, finals[0], finals[1])
	}
}

func TestStepFloorNeverRejects(t *testing.T) {
	tests := []struct {
		name   string
		tol    float64
		forced bool
	}{
		{"unreachable tolerance", 1e-12, true},
		{"tight", 1e-3, false},
		{"moderate", 3e-3, false},
		{"loose", 1e-2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := adaptive(0.01, 0.01, tt.tol, tt.tol)
			s := newSim(t, linear(1, 1), tree(t, 1, 4, 1, 5), cfg, euler)

			result, err := s.Run(context.Background(), filled(4, 1, 1), []float64{0, 1})
			require.NoError(t, err)

			assert.Zero(t, result.Stats.Rejected)
			assert.LessOrEqual(t, result.Stats.MaxStep, 0.01*(1+1e-9), "steps stay on the floor")
			if tt.forced {
				assert.Equal(t, result.Stats.Steps, result.Stats.Forced)
				require.Len(t, result.Diagnostics, 1)
				assert.Equal(t, dynamo.ToleranceUnmet, result.Diagnostics[0].Kind)
			}
		})
	}
}

func TestFailingStepNearFloorIsForced(t *testing.T) {
	// The first step fails and its shrunk retry would fall below dt_min.
	cfg := adaptive(0.02, 0.01, 1e-12, 1e-12)
	s := newSim(t, linear(1, 1), tree(t, 1, 4, 1, 5), cfg, euler)

	result, err := s.Run(context.Background(), filled(4, 1, 1), []float64{0, 1})
	require.NoError(t, err)

	assert.Zero(t, result.Stats.Rejected)
	assert.Equal(t, result.Stats.Steps, result.Stats.Forced)
	assert.InDelta(t, 0.02, result.Stats.MaxStep, 1e-12)
}

func TestAdaptiveShrinksLargeSteps(t *testing.T) {
	cfg := adaptive(0.5, 1e-5, 1e-3, 1e-3)
	s := newSim(t, linear(2, 0.5), tree(t, 1, 4, 1, 6), cfg, srk)

	result, err := s.Run(context.Background(), filled(4, 1, 1), []float64{0, 1})
	require.NoError(t, err)

	assert.Positive(t, result.Stats.Rejected)
	assert.Less(t, result.Stats.MinStep, 0.5)
	assert.Zero(t, result.Stats.Forced)
	assert.Empty(t, result.Diagnostics)
}

func TestLogRatioShapeAndAdditivity(t *testing.T) {
	const batch = 5
	run := func(ts []float64) *Result {
		sde := linear(-0.5, 0.7)
		bm := tree(t, 1, batch, 1, 31)
		lr, err := integrators.NewLogRatio(sde, bm)
		require.NoError(t, err)
		s := newSim(t, sde, bm, fixed(1.0/16), euler).WithLogRatio(lr)
		result, err := s.Run(context.Background(), filled(batch, 1, 2), ts)
		require.NoError(t, err)
		return result
	}

	split := run([]float64{0, 0.5, 1})
	whole := run([]float64{0, 1})

	require.Len(t, split.LogRatio, 1)
	rows, cols := split.LogRatio[0].Dims()
	assert.Equal(t, 2, rows)
	assert.Equal(t, batch, cols)

	var sum mat.VecDense
	sum.AddVec(split.LogRatio[0].RowView(0), split.LogRatio[0].RowView(1))
	assert.InDeltaSlice(t, whole.LogRatio[0].RawRowView(0), sum.RawVector().Data, 1e-12)
	assert.InDeltaSlice(t, whole.TotalLogRatio(), split.TotalLogRatio(), 1e-12)
}

func TestAdaptiveLogRatioAdditivity(t *testing.T) {
	const batch = 5
	const mu, sigma = -0.5, 0.7
	bm := tree(t, 1, batch, 1, 31)
	run := func(ts []float64) *Result {
		sde := linear(mu, sigma)
		lr, err := integrators.NewLogRatio(sde, bm)
		require.NoError(t, err)
		s := newSim(t, sde, bm, adaptive(0.05, 1e-4, 1e-3, 1e-3), euler).WithLogRatio(lr)
		result, err := s.Run(context.Background(), filled(batch, 1, 2), ts)
		require.NoError(t, err)
		return result
	}

	split := run([]float64{0, 0.3, 1})
	whole := run([]float64{0, 1})

	var sum mat.VecDense
	sum.AddVec(split.LogRatio[0].RowView(0), split.LogRatio[0].RowView(1))
	assert.InDeltaSlice(t, whole.LogRatio[0].RawRowView(0), sum.RawVector().Data, 1e-10)

	// u = (f-h)/g = mu/sigma is constant, so the total is exact on any grid.
	u := mu / sigma
	w1, err := bm.At(1)
	require.NoError(t, err)
	for b, got := range whole.TotalLogRatio() {
		want := 0.5*u*u + u*w1[0].At(b, 0)
		assert.InDelta(t, want, got, 1e-10, "batch element %d", b)
	}
}

// recordingLogRatio sums every increment it hands out and the time it
// covers.
type recordingLogRatio struct {
	inner LogRatioer
	span  float64
	total []float64
}

func (r *recordingLogRatio) Increment(t0, t1 float64, y dynamo.State) ([][]float64, error) {
	inc, err := r.inner.Increment(t0, t1, y)
	if err != nil {
		return nil, err
	}
	r.span += t1 - t0
	if r.total == nil {
		r.total = make([]float64, len(inc[0]))
	}
	for b, v := range inc[0] {
		r.total[b] += v
	}
	return inc, nil
}

func TestRejectedStepsAddNoLogRatio(t *testing.T) {
	const batch = 4
	sde := linear(2, 0.5)
	bm := tree(t, 1, batch, 1, 6)
	lr, err := integrators.NewLogRatio(sde, bm)
	require.NoError(t, err)
	rec := &recordingLogRatio{inner: lr}

	s := newSim(t, sde, bm, adaptive(0.5, 1e-5, 1e-3, 1e-3), srk).WithLogRatio(rec)
	result, err := s.Run(context.Background(), filled(batch, 1, 1), []float64{0, 1})
	require.NoError(t, err)

	require.Positive(t, result.Stats.Rejected)
	assert.InDelta(t, 1.0, rec.span, 1e-12, "only accepted steps are accumulated")
	assert.InDeltaSlice(t, rec.total, result.LogRatio[0].RawRowView(0), 1e-12)
}

func TestDiffusionSingularityCarriesTime(t *testing.T) {
	sde := linear(1, 1)
	sde.DiffusionFn = func(t float64, y dynamo.State) []dynamo.Diffusion {
		if t >= 0.5 {
			return diag(dynamo.ZerosLike(y))
		}
		return diag(y)
	}
	bm := tree(t, 1, 2, 1, 1)
	lr, err := integrators.NewLogRatio(sde, bm)
	require.NoError(t, err)
	s := newSim(t, sde, bm, fixed(0.125), euler).WithLogRatio(lr)

	_, err = s.Run(context.Background(), filled(2, 1, 1), []float64{0, 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, dynamo.ErrDiffusionSingularity))

	var simErr *dynamo.SimulationError
	require.True(t, errors.As(err, &simErr))
	assert.Equal(t, 0.5, simErr.Time)
}

func TestMaxSteps(t *testing.T) {
	cfg := fixed(0.01)
	cfg.MaxSteps = 10
	s := newSim(t, linear(1, 0), brownian.NewZero(brownian.ShapesFor(1, []int{1})), cfg, euler)

	_, err := s.Run(context.Background(), filled(1, 1, 1), []float64{0, 1})
	assert.True(t, errors.Is(err, dynamo.ErrStepLimit))
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := newSim(t, linear(1, 0.1), tree(t, 1, 1, 1, 1), fixed(0.01), euler)

	result, err := s.Run(ctx, filled(1, 1, 1), []float64{0, 1})
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRunInvalidInput(t *testing.T) {
	s := newSim(t, linear(1, 0.1), tree(t, 1, 1, 1, 1), fixed(0.01), euler)

	tests := []struct {
		name string
		y0   dynamo.State
		ts   []float64
	}{
		{"single time", filled(1, 1, 1), []float64{0}},
		{"descending", filled(1, 1, 1), []float64{0, 0.5, 0.4}},
		{"nan time", filled(1, 1, 1), []float64{0, math.NaN()}},
		{"empty state", dynamo.State{}, []float64{0, 1}},
		{"nan state", filled(1, 1, math.NaN()), []float64{0, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Run(context.Background(), tt.y0, tt.ts)
			if err == nil {
				t.Error("expected error, got nil")
			}
		})
	}

	bad := New(nil, fixed(0))
	_, err := bad.Run(context.Background(), filled(1, 1, 1), []float64{0, 1})
	assert.True(t, errors.Is(err, dynamo.ErrContractViolation))
}

type countMetric struct {
	count int
}

func (c *countMetric) Name() string                      { return "count" }
func (c *countMetric) Observe(t float64, y dynamo.State) { c.count++ }
func (c *countMetric) Value() float64                    { return float64(c.count) }
func (c *countMetric) Reset()                            { c.count = 0 }

func TestSimulatorMetrics(t *testing.T) {
	s := newSim(t, linear(-1, 0.2), tree(t, 1, 2, 1, 3), fixed(0.1), euler)
	s.AddMetric(&countMetric{})

	for i := 0; i < 2; i++ {
		result, err := s.Run(context.Background(), filled(2, 1, 1), []float64{0, 1})
		require.NoError(t, err)
		assert.Equal(t, float64(result.Stats.Steps+1), result.Metrics["count"])
	}
}

func TestRunWithCallbackStops(t *testing.T) {
	s := newSim(t, linear(-1, 0.2), tree(t, 1, 2, 1, 3), fixed(0.1), euler)

	calls := 0
	err := s.RunWithCallback(context.Background(), filled(2, 1, 1), []float64{0, 1}, func(t float64, y dynamo.State) bool {
		calls++
		return calls < 4
	})
	require.NoError(t, err)
	assert.Equal(t, 4, calls)
}

func TestSweep(t *testing.T) {
	dts := []float64{0.1, 0.05, 0.025}
	bm := tree(t, 1, 2, 1, 8)
	var done atomic.Int32

	results, err := Sweep(context.Background(), dts, filled(2, 1, 1), []float64{0, 1}, func(dt float64) (*Simulator, error) {
		st, err := integrators.NewEuler(linear(-1, 0.3), bm)
		if err != nil {
			return nil, err
		}
		return New(st, fixed(dt)), nil
	}, func(float64) { done.Add(1) })
	require.NoError(t, err)
	assert.Equal(t, int32(len(dts)), done.Load())
	require.Len(t, results, len(dts))
	for i, dt := range dts {
		assert.InDelta(t, 1/dt, float64(results[i].Stats.Steps), 1, "dt=%v", dt)
	}

	_, err = Sweep(context.Background(), []float64{0.1, -1}, filled(2, 1, 1), []float64{0, 1}, func(dt float64) (*Simulator, error) {
		st, _ := integrators.NewEuler(linear(-1, 0.3), bm)
		return New(st, fixed(dt)), nil
	}, nil)
	assert.True(t, errors.Is(err, dynamo.ErrContractViolation))
}
