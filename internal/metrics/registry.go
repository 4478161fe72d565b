package metrics

import (
	"github.com/pkg/errors"
	"github.com/san-kum/sdesim/internal/dynamo"
)

// DefaultStabilityThreshold bounds |y| for the stability metric when no
// threshold is configured.
const DefaultStabilityThreshold = 1e6

var Names = []string{"stability", "mean_square", "terminal_norm", "quadratic_variation"}

// New builds a fresh metric by name.
func New(name string) (dynamo.Metric, error) {
	switch name {
	case "stability":
		return NewStability(DefaultStabilityThreshold), nil
	case "mean_square":
		return NewMeanSquare(), nil
	case "terminal_norm":
		return NewTerminalNorm(), nil
	case "quadratic_variation":
		return NewQuadraticVariation(), nil
	}
	return nil, errors.Errorf("unknown metric %q, expected one of %v", name, Names)
}
