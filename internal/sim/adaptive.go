package sim

import (
	"math"

	"github.com/san-kum/sdesim/internal/dynamo"
)

// PI step-size controller constants.
const (
	safety = 0.9
	facMin = 0.2
	facMax = 1.4

	rejectIExp = 1 / 1.5
	acceptIExp = 1 / 4.5
	acceptPExp = 0.13
)

// controller proposes step sizes from error ratios. An error ratio is the
// scaled error of a step; values above 1 fail the tolerance.
type controller struct {
	prevRatio float64
}

// factor returns the multiplier for the next step size after a step with
// the given error ratio, and records the ratio when it passed.
func (c *controller) factor(errRatio float64) float64 {
	if errRatio == 0 {
		return facMax
	}
	ratio := safety / errRatio
	if c.prevRatio == 0 {
		c.prevRatio = ratio
	}

	pExp, iExp, lo := 0.0, rejectIExp, facMin
	if errRatio <= 1 {
		pExp, iExp, lo = acceptPExp, acceptIExp, 1.0
	}
	f := math.Pow(ratio, iExp) * math.Pow(ratio/c.prevRatio, pExp)
	if errRatio <= 1 {
		c.prevRatio = ratio
	}
	return math.Min(facMax, math.Max(lo, f))
}

// errorRatio is the max over blocks of the RMS of the scaled difference
// between the one-step and two-half-step solutions.
func errorRatio(full, half dynamo.State, atol, rtol float64) float64 {
	worst := 0.0
	for i := range full {
		a, b := dynamo.Data(full[i]), dynamo.Data(half[i])
		if len(a) == 0 {
			continue
		}
		sum := 0.0
		for j := range a {
			if a[j] == b[j] {
				continue
			}
			scale := atol + rtol*math.Max(math.Abs(a[j]), math.Abs(b[j]))
			e := (a[j] - b[j]) / scale
			sum += e * e
		}
		if math.IsNaN(sum) {
			return math.Inf(1)
		}
		worst = math.Max(worst, math.Sqrt(sum/float64(len(a))))
	}
	return worst
}
