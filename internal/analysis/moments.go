package analysis

import (
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// BatchMoments returns the sample mean and unbiased variance of each
// column of a (batch, d) block.
func BatchMoments(block *mat.Dense) (mean, variance []float64) {
	rows, cols := block.Dims()
	mean = make([]float64, cols)
	variance = make([]float64, cols)
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, block)
		mean[j], variance[j] = stat.MeanVariance(col, nil)
	}
	return mean, variance
}

// Quantiles returns, for each column of block, the empirical quantile at
// every p in ps. The result is indexed [column][p].
func Quantiles(block *mat.Dense, ps []float64) ([][]float64, error) {
	for _, p := range ps {
		if p < 0 || p > 1 {
			return nil, errors.Errorf("quantile %g outside [0, 1]", p)
		}
	}
	rows, cols := block.Dims()
	out := make([][]float64, cols)
	for j := range out {
		col := mat.Col(make([]float64, rows), j, block)
		sort.Float64s(col)
		out[j] = make([]float64, len(ps))
		for k, p := range ps {
			out[j][k] = stat.Quantile(p, stat.Empirical, col, nil)
		}
	}
	return out, nil
}

// SamplePath extracts coordinate coord of batch element b from every
// block of a trajectory.
func SamplePath(blocks []*mat.Dense, b, coord int) ([]float64, error) {
	out := make([]float64, len(blocks))
	for i, m := range blocks {
		r, c := m.Dims()
		if b < 0 || b >= r || coord < 0 || coord >= c {
			return nil, errors.Errorf("index (%d, %d) outside block of shape (%d, %d)", b, coord, r, c)
		}
		out[i] = m.At(b, coord)
	}
	return out, nil
}

// Envelope summarizes coordinate coord across the batch at every time: the
// batch mean and the lo and hi quantiles.
func Envelope(blocks []*mat.Dense, coord int, lo, hi float64) (mean, lower, upper []float64, err error) {
	if lo < 0 || hi > 1 || lo > hi {
		return nil, nil, nil, errors.Errorf("quantile band [%g, %g] invalid", lo, hi)
	}
	n := len(blocks)
	mean, lower, upper = make([]float64, n), make([]float64, n), make([]float64, n)
	for i, m := range blocks {
		if _, c := m.Dims(); coord < 0 || coord >= c {
			return nil, nil, nil, errors.Errorf("coordinate %d outside block of width %d", coord, c)
		}
		col := mat.Col(nil, coord, m)
		mean[i] = stat.Mean(col, nil)
		sort.Float64s(col)
		lower[i] = stat.Quantile(lo, stat.Empirical, col, nil)
		upper[i] = stat.Quantile(hi, stat.Empirical, col, nil)
	}
	return mean, lower, upper, nil
}
