package solver

import (
	"github.com/pkg/errors"
	"github.com/san-kum/sdesim/internal/dynamo"
	"github.com/san-kum/sdesim/internal/sim"
	"gonum.org/v1/gonum/mat"
)

// Trajectory is the output of Sdeint: the state at every requested time,
// optionally the log-ratio between consecutive times, and run statistics.
type Trajectory struct {
	*sim.Result
	tuple bool
}

func (tr *Trajectory) Len() int      { return len(tr.Times) }
func (tr *Trajectory) IsTuple() bool { return tr.tuple }

// At returns the state at output index i.
func (tr *Trajectory) At(i int) dynamo.State { return tr.States[i] }

// Block returns the snapshots of state block i, one (batch, d) matrix per
// output time.
func (tr *Trajectory) Block(i int) []*mat.Dense {
	out := make([]*mat.Dense, len(tr.States))
	for k, s := range tr.States {
		out[k] = s[i]
	}
	return out
}

// Single returns the snapshots of a trajectory started from Single.
func (tr *Trajectory) Single() ([]*mat.Dense, error) {
	if tr.tuple {
		return nil, errors.Wrap(dynamo.ErrContractViolation, "trajectory was started from a tuple")
	}
	return tr.Block(0), nil
}

// Blocks returns the snapshots of every block of a tuple trajectory.
func (tr *Trajectory) Blocks() ([][]*mat.Dense, error) {
	if !tr.tuple {
		return nil, errors.Wrap(dynamo.ErrContractViolation, "trajectory was started from a single state")
	}
	if len(tr.States) == 0 {
		return nil, nil
	}
	out := make([][]*mat.Dense, len(tr.States[0]))
	for i := range out {
		out[i] = tr.Block(i)
	}
	return out, nil
}
