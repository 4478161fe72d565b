package integrators

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/sdesim/internal/brownian"
	"github.com/san-kum/sdesim/internal/dynamo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

func TestEulerDecayWithZeroNoise(t *testing.T) {
	sde := gbm(-1, 0.1)
	bm := brownian.NewZero(brownian.ShapesFor(1, []int{1}))
	e, err := NewEuler(sde, bm)
	require.NoError(t, err)

	y0 := dynamo.State{mat.NewDense(1, 1, []float64{1.0})}
	y, err := run(e, y0, 0, 1, 1000)
	require.NoError(t, err)

	got := y[0].At(0, 0)
	if math.Abs(got-math.Exp(-1)) > 1e-3 {
		t.Errorf("y(1) = %v, want %v within 1e-3", got, math.Exp(-1))
	}
}

func TestSRKDeterministicLimit(t *testing.T) {
	sde := &dynamo.FuncSDE{
		Noise:   dynamo.Diagonal,
		Type:    dynamo.Ito,
		DriftFn: func(t float64, y dynamo.State) dynamo.State { return y.Scale(-1) },
		DiffusionFn: func(t float64, y dynamo.State) []dynamo.Diffusion {
			return diag(dynamo.ZerosLike(y))
		},
	}
	s, err := NewSRK(sde, brownian.NewZero(brownian.ShapesFor(2, []int{3})))
	require.NoError(t, err)

	y, err := run(s, ones(2, 3), 0, 1, 10)
	require.NoError(t, err)
	for _, v := range dynamo.Data(y[0]) {
		assert.InDelta(t, math.Exp(-1), v, 1e-4)
	}
}

func TestMilsteinMatchesEulerForStateIndependentNoise(t *testing.T) {
	sde := &dynamo.FuncSDE{
		Noise:   dynamo.Diagonal,
		Type:    dynamo.Ito,
		DriftFn: func(t float64, y dynamo.State) dynamo.State { return y.Scale(-0.5) },
		DiffusionFn: func(t float64, y dynamo.State) []dynamo.Diffusion {
			return diag(ones(y.Batch(), 2).Scale(0.3))
		},
	}
	shapes := brownian.ShapesFor(4, []int{2})
	bm, err := brownian.NewTree(0, 1, shapes, 5, 0)
	require.NoError(t, err)

	e, err := NewEuler(sde, bm)
	require.NoError(t, err)
	m, err := NewMilstein(sde, bm, 0)
	require.NoError(t, err)

	ye, err := run(e, ones(4, 2), 0, 1, 50)
	require.NoError(t, err)
	ym, err := run(m, ones(4, 2), 0, 1, 50)
	require.NoError(t, err)
	assert.InDeltaSlice(t, dynamo.Data(ye[0]), dynamo.Data(ym[0]), 1e-12)
}

type analyticGBM struct {
	*dynamo.FuncSDE
	sigma float64
}

func (a analyticGBM) DiffusionDirectional(t float64, y dynamo.State) dynamo.State {
	return y.Scale(a.sigma * a.sigma)
}

func TestMilsteinFiniteDifferenceMatchesAnalytic(t *testing.T) {
	shapes := brownian.ShapesFor(3, []int{2})
	bm, err := brownian.NewTree(0, 1, shapes, 8, 0)
	require.NoError(t, err)

	fd, err := NewMilstein(gbm(0.2, 0.6), bm, 0)
	require.NoError(t, err)
	an, err := NewMilstein(analyticGBM{FuncSDE: gbm(0.2, 0.6), sigma: 0.6}, bm, 0)
	require.NoError(t, err)

	y0 := ones(3, 2)
	a, err := fd.Step(0, 0.25, y0)
	require.NoError(t, err)
	b, err := an.Step(0, 0.25, y0)
	require.NoError(t, err)
	assert.InDeltaSlice(t, dynamo.Data(b[0]), dynamo.Data(a[0]), 1e-8)
}

func TestMilsteinUsesRenamedDirectional(t *testing.T) {
	shapes := brownian.ShapesFor(3, []int{2})
	bm, err := brownian.NewTree(0, 1, shapes, 8, 0)
	require.NoError(t, err)

	// A directional that disagrees with the diffusion shows which path ran.
	wrong := gbm(0.2, 0.6)
	wrong.DirectionalFn = func(t float64, y dynamo.State) dynamo.State { return y.Scale(5) }
	an, err := NewMilstein(analyticGBM{FuncSDE: gbm(0.2, 0.6), sigma: math.Sqrt(5)}, bm, 0)
	require.NoError(t, err)
	fn, err := NewMilstein(wrong, bm, 0)
	require.NoError(t, err)

	y0 := ones(3, 2)
	a, err := an.Step(0, 0.25, y0)
	require.NoError(t, err)
	b, err := fn.Step(0, 0.25, y0)
	require.NoError(t, err)
	assert.InDeltaSlice(t, dynamo.Data(a[0]), dynamo.Data(b[0]), 1e-12)
}

func TestStrongOrder(t *testing.T) {
	const (
		batch = 500
		mu    = 0.1
		sigma = 1.0
	)
	shapes := brownian.ShapesFor(batch, []int{1})
	bm, err := brownian.NewTree(0, 1, shapes, 3, 0)
	require.NoError(t, err)
	w1, err := bm.At(1)
	require.NoError(t, err)

	exact := make([]float64, batch)
	for b := range exact {
		exact[b] = math.Exp(mu - sigma*sigma/2 + sigma*w1[0].At(b, 0))
	}

	build := map[string]func() (Stepper, error){
		"euler":    func() (Stepper, error) { return NewEuler(gbm(mu, sigma), bm) },
		"milstein": func() (Stepper, error) { return NewMilstein(gbm(mu, sigma), bm, 0) },
		"srk":      func() (Stepper, error) { return NewSRK(gbm(mu, sigma), bm) },
	}
	bounds := map[string][2]float64{
		"euler":    {0.3, 0.8},
		"milstein": {0.75, 1.35},
		"srk":      {0.9, 2.0},
	}

	steps := []int{16, 32, 64, 128}
	for name, newStepper := range build {
		t.Run(name, func(t *testing.T) {
			s, err := newStepper()
			require.NoError(t, err)

			logDt := make([]float64, len(steps))
			logErr := make([]float64, len(steps))
			for i, n := range steps {
				y, err := run(s, ones(batch, 1), 0, 1, n)
				require.NoError(t, err)
				sum := 0.0
				for b, v := range dynamo.Data(y[0]) {
					sum += math.Abs(v - exact[b])
				}
				logDt[i] = math.Log(1 / float64(n))
				logErr[i] = math.Log(sum / batch)
			}
			_, slope := stat.LinearRegression(logDt, logErr, nil, false)
			assert.GreaterOrEqual(t, slope, bounds[name][0], "strong order of %s", name)
			assert.LessOrEqual(t, slope, bounds[name][1], "strong order of %s", name)
		})
	}
}

func TestSRKDeterministic(t *testing.T) {
	shapes := brownian.ShapesFor(6, []int{2})
	results := make([][]float64, 2)
	for i := range results {
		bm, err := brownian.NewTree(0, 1, shapes, 99, 0)
		require.NoError(t, err)
		s, err := NewSRK(gbm(0.3, 0.4), bm)
		require.NoError(t, err)
		y, err := run(s, ones(6, 2), 0, 1, 20)
		require.NoError(t, err)
		results[i] = dynamo.Data(y[0])
	}
	assert.Equal(t, results[0], results[1])
}

func TestSRKAdditiveOU(t *testing.T) {
	const batch = 2000
	theta, sigma := 2.0, 0.5
	g := mat.NewDense(1, 1, []float64{sigma})
	sde := &dynamo.FuncSDE{
		Noise:   dynamo.Additive,
		Type:    dynamo.Ito,
		DriftFn: func(t float64, y dynamo.State) dynamo.State { return y.Scale(-theta) },
		DiffusionFn: func(t float64, y dynamo.State) []dynamo.Diffusion {
			return []dynamo.Diffusion{constant(y.Batch(), g)}
		},
	}
	bm, err := brownian.NewTree(0, 2, brownian.ShapesFor(batch, []int{1}), 12, 0)
	require.NoError(t, err)
	s, err := NewSRK(sde, bm)
	require.NoError(t, err)

	y, err := run(s, dynamo.NewState(batch, 1), 0, 2, 100)
	require.NoError(t, err)

	// Variance of an OU process started at zero.
	mean, variance := stat.MeanVariance(dynamo.Data(y[0]), nil)
	want := sigma * sigma / (2 * theta) * (1 - math.Exp(-2*theta*2))
	assert.InDelta(t, 0, mean, 0.02)
	assert.InDelta(t, want, variance, 0.15*want)
}

func TestContract(t *testing.T) {
	tests := []struct {
		name  string
		noise dynamo.NoiseType
		g     dynamo.Diffusion
		w     *mat.Dense
		want  []float64
	}{
		{
			name:  "diagonal",
			noise: dynamo.Diagonal,
			g:     dynamo.Diffusion{Diag: mat.NewDense(2, 2, []float64{1, 2, 3, 4})},
			w:     mat.NewDense(2, 2, []float64{1, 1, 2, 0.5}),
			want:  []float64{1, 2, 6, 2},
		},
		{
			name:  "scalar",
			noise: dynamo.Scalar,
			g:     dynamo.Diffusion{Diag: mat.NewDense(2, 2, []float64{1, 2, 3, 4})},
			w:     mat.NewDense(2, 1, []float64{2, -1}),
			want:  []float64{2, 4, -3, -4},
		},
		{
			name:  "general",
			noise: dynamo.General,
			g: dynamo.Diffusion{Full: []*mat.Dense{
				mat.NewDense(2, 3, []float64{1, 0, 1, 0, 1, 0}),
				mat.NewDense(2, 3, []float64{2, 0, 0, 0, 0, 2}),
			}},
			w:    mat.NewDense(2, 3, []float64{1, 2, 3, 1, 1, 1}),
			want: []float64{4, 2, 2, 2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := contract(tt.noise, tt.g, tt.w)
			require.NoError(t, err)
			assert.Equal(t, tt.want, dynamo.Data(got))
		})
	}

	_, err := contract(dynamo.Diagonal, dynamo.Diffusion{Diag: mat.NewDense(2, 2, nil)}, mat.NewDense(2, 1, nil))
	assert.True(t, errors.Is(err, dynamo.ErrDimensionMismatch))
}

func TestConstructorsRejectUnsupportedNoise(t *testing.T) {
	general := &dynamo.FuncSDE{Noise: dynamo.General, Type: dynamo.Ito}
	additive := &dynamo.FuncSDE{Noise: dynamo.Additive, Type: dynamo.Ito}
	bm := brownian.NewZero(brownian.ShapesFor(1, []int{1}))

	_, err := NewMilstein(general, bm, 0)
	assert.True(t, errors.Is(err, dynamo.ErrUnsupportedCombination))
	_, err = NewMilstein(additive, bm, 0)
	assert.True(t, errors.Is(err, dynamo.ErrUnsupportedCombination))
	_, err = NewSRK(general, bm)
	assert.True(t, errors.Is(err, dynamo.ErrUnsupportedCombination))

	_, err = NewSRK(gbm(0, 1), stepOnly{bm})
	assert.True(t, errors.Is(err, dynamo.ErrContractViolation))

	_, err = NewEuler(&dynamo.FuncSDE{Noise: "weird"}, bm)
	assert.True(t, errors.Is(err, dynamo.ErrContractViolation))
}

func TestDriftShapeViolation(t *testing.T) {
	sde := gbm(1, 1)
	sde.DriftFn = func(t float64, y dynamo.State) dynamo.State {
		return dynamo.NewState(y.Batch(), 5)
	}
	e, err := NewEuler(sde, brownian.NewZero(brownian.ShapesFor(2, []int{1})))
	require.NoError(t, err)

	_, err = e.Step(0, 0.1, ones(2, 1))
	assert.True(t, errors.Is(err, dynamo.ErrContractViolation))
}

func TestStrongOrderReported(t *testing.T) {
	bm := brownian.NewZero(brownian.ShapesFor(1, []int{1}))
	e, _ := NewEuler(gbm(0, 1), bm)
	m, _ := NewMilstein(gbm(0, 1), bm, 0)
	s, _ := NewSRK(gbm(0, 1), bm)
	ea, _ := NewEuler(&dynamo.FuncSDE{Noise: dynamo.Additive, Type: dynamo.Ito}, bm)

	if e.StrongOrder() != 0.5 || ea.StrongOrder() != 1.0 {
		t.Errorf("euler orders = %v, %v", e.StrongOrder(), ea.StrongOrder())
	}
	if m.StrongOrder() != 1.0 {
		t.Errorf("milstein order = %v", m.StrongOrder())
	}
	if s.StrongOrder() != 1.5 {
		t.Errorf("srk order = %v", s.StrongOrder())
	}
}
