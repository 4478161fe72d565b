package analysis

import (
	"context"
	"math"
	"testing"

	"github.com/san-kum/sdesim/internal/dynamo"
	"github.com/san-kum/sdesim/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestStrongOrder(t *testing.T) {
	tests := []struct {
		name string
		p    float64
	}{
		{"half", 0.5},
		{"one", 1},
		{"three halves", 1.5},
	}

	dts := []float64{0.1, 0.05, 0.025, 0.0125}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := make([]float64, len(dts))
			for i, dt := range dts {
				errs[i] = 3 * math.Pow(dt, tt.p)
			}
			p, err := StrongOrder(dts, errs)
			require.NoError(t, err)
			assert.InDelta(t, tt.p, p, 1e-9)
		})
	}
}

func TestStrongOrderRejects(t *testing.T) {
	_, err := StrongOrder([]float64{0.1}, []float64{1})
	assert.Error(t, err)
	_, err = StrongOrder([]float64{0.1, 0.2}, []float64{1})
	assert.Error(t, err)
	_, err = StrongOrder([]float64{0.1, 0.2}, []float64{0, 1})
	assert.Error(t, err)
}

func TestStrongError(t *testing.T) {
	a := dynamo.State{mat.NewDense(2, 1, []float64{1, 2}), mat.NewDense(1, 2, []float64{0, 0})}
	b := dynamo.State{mat.NewDense(2, 1, []float64{2, 2}), mat.NewDense(1, 2, []float64{-1, 3})}
	assert.InDelta(t, 5.0/4, StrongError(a, b), 1e-15)
	assert.Zero(t, StrongError(a, a))
}

func TestBatchMoments(t *testing.T) {
	block := mat.NewDense(4, 2, []float64{
		1, 10,
		2, 10,
		3, 10,
		4, 10,
	})
	mean, variance := BatchMoments(block)
	assert.Equal(t, []float64{2.5, 10}, mean)
	assert.InDeltaSlice(t, []float64{5.0 / 3, 0}, variance, 1e-12)
}

func TestQuantiles(t *testing.T) {
	block := mat.NewDense(5, 1, []float64{5, 1, 4, 2, 3})
	q, err := Quantiles(block, []float64{0, 0.5, 1})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3, 5}, q[0])

	_, err = Quantiles(block, []float64{1.5})
	assert.Error(t, err)
}

func TestSamplePathAndEnvelope(t *testing.T) {
	blocks := []*mat.Dense{
		mat.NewDense(3, 2, []float64{0, 0, 0, 0, 0, 0}),
		mat.NewDense(3, 2, []float64{1, 7, 2, 8, 3, 9}),
	}
	path, err := SamplePath(blocks, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 8}, path)

	_, err = SamplePath(blocks, 3, 0)
	assert.Error(t, err)

	mean, lo, hi, err := Envelope(blocks, 0, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 2}, mean)
	assert.Equal(t, []float64{0, 1}, lo)
	assert.Equal(t, []float64{0, 3}, hi)

	_, _, _, err = Envelope(blocks, 2, 0, 1)
	assert.Error(t, err)
}

func TestConvergeAgainstClosedForm(t *testing.T) {
	gbm := models.NewGBM()
	gbm.Mu, gbm.Sigma = 0.1, 1
	y0 := dynamo.State{dynamo.Repeat(400, []float64{1})}
	dts := []float64{1.0 / 16, 1.0 / 32, 1.0 / 64, 1.0 / 128}

	calls := 0
	res, err := Converge(context.Background(), gbm, y0, 1, dynamo.Euler, dts, 3, func() { calls++ })
	require.NoError(t, err)

	assert.True(t, res.Exact)
	assert.Equal(t, len(dts), calls)
	assert.Greater(t, res.Errors[0], res.Errors[len(dts)-1])
	assert.InDelta(t, 0.55, res.Order, 0.25)
}

func TestConvergeAgainstReference(t *testing.T) {
	l := models.NewLinear2D()
	y0 := dynamo.State{dynamo.Repeat(50, []float64{1, -1})}
	dts := []float64{0.1, 0.05, 0.025}

	res, err := Converge(context.Background(), l, y0, 0.5, dynamo.Euler, dts, 5, nil)
	require.NoError(t, err)
	assert.False(t, res.Exact)
	for _, e := range res.Errors {
		assert.False(t, math.IsNaN(e))
	}
	assert.Greater(t, res.Order, 0.1)
}

func TestConvergeRejectsUnsupported(t *testing.T) {
	y0 := dynamo.State{dynamo.Repeat(2, []float64{1, 1})}
	_, err := Converge(context.Background(), models.NewLinear2D(), y0, 1, dynamo.SRK, []float64{0.1, 0.05}, 1, nil)
	assert.ErrorIs(t, err, dynamo.ErrUnsupportedCombination)
}
