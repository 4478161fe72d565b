package integrators

import (
	"errors"
	"testing"

	"github.com/san-kum/sdesim/internal/brownian"
	"github.com/san-kum/sdesim/internal/dynamo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func withPrior(sde *dynamo.FuncSDE, prior dynamo.DriftFunc) *dynamo.FuncSDE {
	sde.PriorDriftFn = prior
	return sde
}

func zeroDrift(t float64, y dynamo.State) dynamo.State { return dynamo.ZerosLike(y) }

func TestLogRatioDiagonal(t *testing.T) {
	sde := withPrior(&dynamo.FuncSDE{
		Noise:   dynamo.Diagonal,
		Type:    dynamo.Ito,
		DriftFn: func(t float64, y dynamo.State) dynamo.State { return y.Scale(-1) },
		DiffusionFn: func(t float64, y dynamo.State) []dynamo.Diffusion {
			return diag(ones(y.Batch(), 2).Scale(2))
		},
	}, zeroDrift)
	lr, err := NewLogRatio(sde, brownian.NewZero(brownian.ShapesFor(2, []int{2})))
	require.NoError(t, err)

	y := dynamo.State{mat.NewDense(2, 2, []float64{1, 2, 0, 4})}
	got, err := lr.Increment(0, 0.5, y)
	require.NoError(t, err)
	require.Len(t, got, 1)

	// u = -y/2, so ½‖u‖²h = ‖y‖²/16.
	assert.InDeltaSlice(t, []float64{5.0 / 16, 16.0 / 16}, got[0], 1e-12)
}

func TestLogRatioBrownianTerm(t *testing.T) {
	sde := withPrior(&dynamo.FuncSDE{
		Noise:   dynamo.Diagonal,
		Type:    dynamo.Ito,
		DriftFn: func(t float64, y dynamo.State) dynamo.State { return ones(y.Batch(), 1) },
		DiffusionFn: func(t float64, y dynamo.State) []dynamo.Diffusion {
			return diag(ones(y.Batch(), 1))
		},
	}, zeroDrift)
	lr, err := NewLogRatio(sde, brownian.NewZero(brownian.ShapesFor(1, []int{1})))
	require.NoError(t, err)

	dw := dynamo.State{mat.NewDense(1, 1, []float64{0.3})}
	got, err := lr.IncrementWith(0, 0.1, ones(1, 1), dw)
	require.NoError(t, err)
	assert.InDelta(t, 0.5*0.1+0.3, got[0][0], 1e-15)
}

func TestLogRatioScalar(t *testing.T) {
	sde := withPrior(&dynamo.FuncSDE{
		Noise:   dynamo.Scalar,
		Type:    dynamo.Ito,
		DriftFn: func(t float64, y dynamo.State) dynamo.State { return ones(y.Batch(), 2).Scale(3) },
		DiffusionFn: func(t float64, y dynamo.State) []dynamo.Diffusion {
			return diag(ones(y.Batch(), 2))
		},
	}, zeroDrift)
	lr, err := NewLogRatio(sde, brownian.NewZero(brownian.ShapesFor(1, []int{1})))
	require.NoError(t, err)

	// u = gᵀf/‖g‖² = 6/2 = 3.
	got, err := lr.Increment(0, 1, ones(1, 2))
	require.NoError(t, err)
	assert.InDelta(t, 4.5, got[0][0], 1e-12)
}

func TestLogRatioGeneral(t *testing.T) {
	tests := []struct {
		name string
		g    *mat.Dense
		want float64
	}{
		{"square", mat.NewDense(2, 2, []float64{2, 0, 0, 2}), 0.5 * 0.5},
		// Least squares on a tall matrix: u = 1/2 per coordinate of f.
		{"tall", mat.NewDense(2, 1, []float64{2, 2}), 0.5 * 0.25},
		// Minimum norm on a wide matrix: u = (1/2, 1/2) per coordinate.
		{"wide", mat.NewDense(1, 2, []float64{1, 1}), 0.5 * 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, m := tt.g.Dims()
			sde := withPrior(&dynamo.FuncSDE{
				Noise:   dynamo.General,
				Type:    dynamo.Ito,
				DriftFn: func(t float64, y dynamo.State) dynamo.State { return ones(y.Batch(), d) },
				DiffusionFn: func(t float64, y dynamo.State) []dynamo.Diffusion {
					return []dynamo.Diffusion{constant(y.Batch(), tt.g)}
				},
			}, zeroDrift)
			lr, err := NewLogRatio(sde, brownian.NewZero(brownian.ShapesFor(3, []int{m})))
			require.NoError(t, err)

			got, err := lr.Increment(0, 1, ones(3, d))
			require.NoError(t, err)
			for _, v := range got[0] {
				assert.InDelta(t, tt.want, v, 1e-12)
			}
		})
	}
}

func TestLogRatioSingular(t *testing.T) {
	tests := []struct {
		name  string
		noise dynamo.NoiseType
		g     func(batch int) dynamo.Diffusion
	}{
		{"diagonal zero", dynamo.Diagonal, func(batch int) dynamo.Diffusion {
			return dynamo.Diffusion{Diag: mat.NewDense(batch, 2, nil)}
		}},
		{"scalar zero", dynamo.Scalar, func(batch int) dynamo.Diffusion {
			return dynamo.Diffusion{Diag: mat.NewDense(batch, 2, nil)}
		}},
		{"rank deficient", dynamo.General, func(batch int) dynamo.Diffusion {
			return constant(batch, mat.NewDense(2, 2, []float64{1, 1, 1, 1}))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sde := withPrior(&dynamo.FuncSDE{
				Noise:   tt.noise,
				Type:    dynamo.Ito,
				DriftFn: func(t float64, y dynamo.State) dynamo.State { return ones(y.Batch(), 2) },
				DiffusionFn: func(t float64, y dynamo.State) []dynamo.Diffusion {
					return []dynamo.Diffusion{tt.g(y.Batch())}
				},
			}, zeroDrift)
			m := 2
			if tt.noise == dynamo.Scalar {
				m = 1
			}
			lr, err := NewLogRatio(sde, brownian.NewZero(brownian.ShapesFor(2, []int{m})))
			require.NoError(t, err)

			_, err = lr.Increment(0, 0.1, ones(2, 2))
			assert.True(t, errors.Is(err, dynamo.ErrDiffusionSingularity), "got %v", err)
		})
	}
}

func TestLogRatioNeedsPrior(t *testing.T) {
	_, err := NewLogRatio(gbm(1, 1), brownian.NewZero(brownian.ShapesFor(1, []int{1})))
	assert.True(t, errors.Is(err, dynamo.ErrContractViolation))
}
