package brownian

import (
	"github.com/pkg/errors"
	"github.com/san-kum/sdesim/internal/dynamo"
)

// Kind names a Brownian source implementation.
type Kind string

const (
	KindTree Kind = "tree"
	KindPath Kind = "path"
	KindZero Kind = "zero"
)

var Kinds = []Kind{KindTree, KindPath, KindZero}

func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", errors.Wrapf(dynamo.ErrContractViolation, "expected brownian kind in %v, but found %q", Kinds, s)
}

// New builds a source of the given kind covering [t0, t1]. A degenerate
// span yields the zero path, since no increment will be queried.
func New(kind Kind, t0, t1 float64, shapes []Shape, seed uint64) (dynamo.Brownian, error) {
	switch kind {
	case KindTree, "":
		if t1 == t0 {
			return NewZero(shapes), nil
		}
		return NewTree(t0, t1, shapes, seed, 0)
	case KindPath:
		return NewZeroPath(t0, shapes, seed), nil
	case KindZero:
		return NewZero(shapes), nil
	default:
		return nil, errors.Wrapf(dynamo.ErrContractViolation, "expected brownian kind in %v, but found %q", Kinds, kind)
	}
}
