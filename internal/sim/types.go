package sim

import (
	"github.com/san-kum/sdesim/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// LogRatioer yields the per-batch log-ratio increment of one step for
// every state block.
type LogRatioer interface {
	Increment(t0, t1 float64, y dynamo.State) ([][]float64, error)
}

type Stats struct {
	Steps    int
	Rejected int
	// Forced counts steps accepted at the step floor with the tolerance
	// unmet.
	Forced  int
	MinStep float64
	MaxStep float64
}

func (s *Stats) accept(h float64) {
	if s.Steps == 0 || h < s.MinStep {
		s.MinStep = h
	}
	if h > s.MaxStep {
		s.MaxStep = h
	}
	s.Steps++
}

type Result struct {
	// Times echoes the requested output grid and States[i] is the state at
	// Times[i].
	Times  []float64
	States []dynamo.State
	// LogRatio holds one (len(Times)-1, batch) matrix per block. Row i is
	// the log-ratio accumulated over [Times[i], Times[i+1]]. It is nil
	// unless the simulator was built with a log-ratio.
	LogRatio    []*mat.Dense
	Stats       Stats
	Diagnostics []dynamo.Diagnostic
	Metrics     map[string]float64
}

// Final returns the state at the last output time.
func (r *Result) Final() dynamo.State {
	if len(r.States) == 0 {
		return nil
	}
	return r.States[len(r.States)-1]
}

// TotalLogRatio sums the log-ratio rows of every block into one value per
// batch element.
func (r *Result) TotalLogRatio() []float64 {
	if len(r.LogRatio) == 0 {
		return nil
	}
	_, batch := r.LogRatio[0].Dims()
	total := make([]float64, batch)
	for _, m := range r.LogRatio {
		rows, _ := m.Dims()
		for i := 0; i < rows; i++ {
			for b := 0; b < batch; b++ {
				total[b] += m.At(i, b)
			}
		}
	}
	return total
}
