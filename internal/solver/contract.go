package solver

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/san-kum/sdesim/internal/dynamo"
)

// CheckContract verifies, once and before any integration, that sde
// and bm provide what the chosen configuration needs. bm may be nil when
// the caller lets the solver build its own source. The returned
// diagnostics are advisories, never failures.
func CheckContract(sde dynamo.SDE, bm dynamo.Brownian, method dynamo.Method, adaptive, logqp bool) ([]dynamo.Diagnostic, error) {
	if sde == nil {
		return nil, errors.Wrap(dynamo.ErrContractViolation, "nil sde")
	}
	noise, sdeType := sde.NoiseType(), sde.SDEType()
	if !sdeType.Valid() {
		return nil, errors.Wrapf(dynamo.ErrContractViolation, "expected sde type in %v, but found %q", dynamo.SDETypes, sdeType)
	}
	if sdeType != dynamo.Ito {
		return nil, errors.Wrapf(dynamo.ErrContractViolation, "only %s sdes are supported, got %s", dynamo.Ito, sdeType)
	}
	if _, err := Select(method, noise); err != nil {
		return nil, err
	}
	if logqp {
		if _, ok := dynamo.PriorDriftOf(sde); !ok {
			return nil, errors.Wrap(dynamo.ErrContractViolation, "log-ratio requested but the sde has no prior drift")
		}
	}
	if Resolve(method, noise) == dynamo.SRK && bm != nil {
		if _, ok := bm.(dynamo.SpaceTimeSource); !ok {
			return nil, errors.Wrap(dynamo.ErrContractViolation, "srk needs a brownian motion that supplies space-time variates")
		}
	}

	var diags []dynamo.Diagnostic
	if adaptive && Resolve(method, noise) == dynamo.Euler && noise != dynamo.Additive {
		msg := fmt.Sprintf("adaptive stepping with %s on %s noise: strong order 0.5 may not converge to the tolerance", dynamo.Euler, noise)
		diags = append(diags, dynamo.Diagnostic{Kind: dynamo.LowOrderAdaptive, Message: msg})
	}
	return diags, nil
}
