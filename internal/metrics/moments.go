package metrics

import (
	"math"

	"github.com/san-kum/sdesim/internal/dynamo"
	"gonum.org/v1/gonum/floats"
)

// MeanSquare is the time average of the batch mean of ‖y‖².
type MeanSquare struct {
	name    string
	total   float64
	samples int
}

func NewMeanSquare() *MeanSquare {
	return &MeanSquare{name: "mean_square"}
}

func (m *MeanSquare) Name() string { return m.name }

func (m *MeanSquare) Observe(t float64, y dynamo.State) {
	batch := y.Batch()
	if batch == 0 {
		return
	}
	var sum float64
	for _, block := range y {
		data := dynamo.Data(block)
		sum += floats.Dot(data, data)
	}
	m.total += sum / float64(batch)
	m.samples++
}

func (m *MeanSquare) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.total / float64(m.samples)
}

func (m *MeanSquare) Reset() {
	m.total = 0
	m.samples = 0
}

// TerminalNorm is the batch mean of ‖y‖ at the last observation.
type TerminalNorm struct {
	name string
	last float64
}

func NewTerminalNorm() *TerminalNorm {
	return &TerminalNorm{name: "terminal_norm"}
}

func (n *TerminalNorm) Name() string { return n.name }

func (n *TerminalNorm) Observe(t float64, y dynamo.State) {
	batch := y.Batch()
	if batch == 0 {
		return
	}
	sq := make([]float64, batch)
	for _, block := range y {
		_, cols := block.Dims()
		for b := 0; b < batch; b++ {
			for j := 0; j < cols; j++ {
				v := block.At(b, j)
				sq[b] += v * v
			}
		}
	}
	var sum float64
	for _, s := range sq {
		sum += math.Sqrt(s)
	}
	n.last = sum / float64(batch)
}

func (n *TerminalNorm) Value() float64 { return n.last }
func (n *TerminalNorm) Reset()         { n.last = 0 }
