package analysis

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Spectrum is a one-sided power spectral density estimate at angular
// frequencies Omegas. The DC bin is omitted.
type Spectrum struct {
	Omegas []float64
	Power  []float64
}

// Periodogram averages the periodograms of paths sampled every dt. Each
// path has its mean removed and contributes dt/N·|X_k|² at ω_k = 2πk/(N·dt)
// for k = 1..N/2, the normalisation under which a stationary process with
// autocovariance R has E[P(ω)] → ∫R(τ)e^{-iωτ}dτ.
func Periodogram(paths [][]float64, dt float64) (*Spectrum, error) {
	if len(paths) == 0 {
		return nil, errors.New("no paths")
	}
	if !(dt > 0) {
		return nil, errors.Errorf("sample spacing must be positive, got %g", dt)
	}
	n := len(paths[0])
	if n < 4 {
		return nil, errors.Errorf("need at least 4 samples per path, have %d", n)
	}

	half := n / 2
	out := &Spectrum{Omegas: make([]float64, half), Power: make([]float64, half)}
	for k := range out.Omegas {
		out.Omegas[k] = 2 * math.Pi * float64(k+1) / (float64(n) * dt)
	}
	centred := make([]float64, n)
	for i, p := range paths {
		if len(p) != n {
			return nil, errors.Errorf("path %d has %d samples, want %d", i, len(p), n)
		}
		mean := stat.Mean(p, nil)
		for j, v := range p {
			centred[j] = v - mean
		}
		x := fft.FFTReal(centred)
		for k := range out.Power {
			a := cmplx.Abs(x[k+1])
			out.Power[k] += dt / float64(n) * a * a
		}
	}
	for k := range out.Power {
		out.Power[k] /= float64(len(paths))
	}
	return out, nil
}

// BandMean averages the estimate over ω in [lo, hi). It reports false when
// no bin falls inside the band.
func (s *Spectrum) BandMean(lo, hi float64) (float64, bool) {
	var sum float64
	var n int
	for k, w := range s.Omegas {
		if w >= lo && w < hi {
			sum += s.Power[k]
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// BatchPaths returns coordinate coord of every batch element over time,
// dropping the first skip snapshots.
func BatchPaths(blocks []*mat.Dense, coord, skip int) ([][]float64, error) {
	if skip < 0 || skip >= len(blocks) {
		return nil, errors.Errorf("cannot skip %d of %d snapshots", skip, len(blocks))
	}
	rows, _ := blocks[0].Dims()
	out := make([][]float64, rows)
	for b := range out {
		p, err := SamplePath(blocks[skip:], b, coord)
		if err != nil {
			return nil, err
		}
		out[b] = p
	}
	return out, nil
}

// UniformStep returns the spacing of ts, which must be evenly spaced to
// within a relative 1e-6.
func UniformStep(ts []float64) (float64, error) {
	if len(ts) < 2 {
		return 0, errors.New("need at least two times")
	}
	dt := (ts[len(ts)-1] - ts[0]) / float64(len(ts)-1)
	for i := 1; i < len(ts); i++ {
		if math.Abs(ts[i]-ts[i-1]-dt) > 1e-6*dt {
			return 0, errors.Errorf("times are not evenly spaced at index %d", i)
		}
	}
	return dt, nil
}
