package metrics

import (
	"math"

	"github.com/san-kum/sdesim/internal/dynamo"
)

// Stability is the fraction of observed sample points whose every
// coordinate stays within the threshold. Each batch element counts as one
// sample per observation.
type Stability struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(t float64, y dynamo.State) {
	batch := y.Batch()
	bad := make([]bool, batch)
	for _, block := range y {
		_, cols := block.Dims()
		for b := 0; b < batch; b++ {
			if bad[b] {
				continue
			}
			for j := 0; j < cols; j++ {
				if v := block.At(b, j); math.IsNaN(v) || math.Abs(v) > s.threshold {
					bad[b] = true
					break
				}
			}
		}
	}
	for _, v := range bad {
		if v {
			s.violations++
		}
	}
	s.samples += batch
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}
