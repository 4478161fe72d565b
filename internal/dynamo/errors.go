package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for integration.
var (
	// ErrContractViolation indicates an SDE or option outside the recognised
	// interface: missing capability, unknown tag, or wrong output shape.
	ErrContractViolation = errors.New("dynamo: contract violation")

	// ErrUnsupportedCombination indicates no update rule exists for a
	// (method, noise type) pair.
	ErrUnsupportedCombination = errors.New("dynamo: unsupported method and noise type combination")

	// ErrDiffusionSingularity indicates g could not be inverted in the
	// least-squares sense while accumulating the log-ratio.
	ErrDiffusionSingularity = errors.New("dynamo: diffusion is singular")

	// ErrInvalidState indicates a state vector with NaN or Inf entries.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrDimensionMismatch indicates mismatched block shapes.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state blocks")

	// ErrOutOfRange indicates a Brownian query outside the supported span.
	ErrOutOfRange = errors.New("dynamo: time outside brownian support")

	// ErrStepLimit indicates the configured step budget was exhausted.
	ErrStepLimit = errors.New("dynamo: step limit exceeded")
)

// SimulationError wraps an error with integration context.
type SimulationError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.6g): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
