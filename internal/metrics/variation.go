package metrics

import (
	"github.com/san-kum/sdesim/internal/dynamo"
)

// QuadraticVariation accumulates Σ‖y(t_{k+1}) - y(t_k)‖² between
// consecutive observations, averaged over the batch. Over a fine grid it
// approaches ∫ tr(g gᵀ) dt.
type QuadraticVariation struct {
	name string
	prev dynamo.State
	sum  float64
}

func NewQuadraticVariation() *QuadraticVariation {
	return &QuadraticVariation{name: "quadratic_variation"}
}

func (q *QuadraticVariation) Name() string {
	return q.name
}

func (q *QuadraticVariation) Observe(t float64, y dynamo.State) {
	if q.prev != nil && q.prev.SameShape(y) && y.Batch() > 0 {
		d := y.Sub(q.prev).Norm()
		q.sum += d * d / float64(y.Batch())
	}
	q.prev = y.Clone()
}

func (q *QuadraticVariation) Value() float64 {
	return q.sum
}

func (q *QuadraticVariation) Reset() {
	q.prev = nil
	q.sum = 0
}
