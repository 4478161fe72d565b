package solver

import (
	"github.com/san-kum/sdesim/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// Initial is an initial condition given either as one (batch, d) matrix
// or as a tuple of blocks. The engine always works on the tuple form; the
// tag decides how a Trajectory is presented.
type Initial struct {
	state dynamo.State
	tuple bool
}

func Single(y0 *mat.Dense) Initial {
	return Initial{state: dynamo.State{y0}}
}

func Tuple(blocks ...*mat.Dense) Initial {
	return Initial{state: dynamo.State(blocks), tuple: true}
}

func (i Initial) State() dynamo.State { return i.state }
func (i Initial) IsTuple() bool       { return i.tuple }
