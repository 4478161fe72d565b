package brownian

import (
	"math"
	"sync"

	"github.com/pkg/errors"
	"github.com/san-kum/sdesim/internal/dynamo"
	"gonum.org/v1/gonum/floats"
)

const (
	defaultRelTol = 1e-7
	maxCachedNode = 1 << 12
	maxTreeDepth  = 60
)

// Tree is a Brownian motion on [t0, t1] whose value at any time is fixed by
// the seed alone. W(t1) is drawn first; every dyadic midpoint is then drawn
// from the Lévy bridge between its parent endpoints with a seed derived from
// the node position. Intervals narrower than the tolerance reuse their
// midpoint variate as a continuous bridge, so nearby queries stay close.
type Tree struct {
	t0, t1 float64
	tol    float64
	seed   uint64
	shapes []Shape
	w1     dynamo.State

	mu    sync.Mutex
	nodes map[uint64]dynamo.State
}

// NewTree builds a tree over [t0, t1]. A tolerance <= 0 selects
// 1e-7*(t1-t0).
func NewTree(t0, t1 float64, shapes []Shape, seed uint64, tol float64) (*Tree, error) {
	if err := checkTime(t0); err != nil {
		return nil, err
	}
	if err := checkTime(t1); err != nil {
		return nil, err
	}
	if !(t1 > t0) {
		return nil, errors.Wrapf(dynamo.ErrOutOfRange, "brownian tree needs t1 > t0, got [%v, %v]", t0, t1)
	}
	if tol <= 0 {
		tol = defaultRelTol * (t1 - t0)
	}
	return &Tree{
		t0:     t0,
		t1:     t1,
		tol:    tol,
		seed:   seed,
		shapes: shapes,
		w1:     normals(hashKey(seed, 0), shapes, math.Sqrt(t1-t0)),
		nodes:  make(map[uint64]dynamo.State),
	}, nil
}

// Span returns the interval the tree is defined on.
func (tr *Tree) Span() (float64, float64) { return tr.t0, tr.t1 }

func (tr *Tree) At(t float64) (dynamo.State, error) {
	if err := checkTime(t); err != nil {
		return nil, errors.Wrapf(err, "brownian tree query at %v", t)
	}
	if t < tr.t0 || t > tr.t1 {
		return nil, errors.Wrapf(dynamo.ErrOutOfRange, "t=%v outside [%v, %v]", t, tr.t0, tr.t1)
	}
	if t == tr.t0 {
		return zeros(tr.shapes), nil
	}
	if t == tr.t1 {
		return tr.w1.Clone(), nil
	}

	a, b := tr.t0, tr.t1
	wa, wb := zeros(tr.shapes), tr.w1
	id := uint64(1)
	for depth := 0; ; depth++ {
		z := tr.node(id)
		mid := a + (b-a)/2
		if b-a <= tr.tol || depth >= maxTreeDepth || mid <= a || mid >= b {
			return bridgeWith(a, wa, b, wb, t, z), nil
		}
		wm := bridgeWith(a, wa, b, wb, mid, z)
		switch {
		case t == mid:
			return wm, nil
		case t < mid:
			b, wb, id = mid, wm, 2*id
		default:
			a, wa, id = mid, wm, 2*id+1
		}
	}
}

func (tr *Tree) Increment(t0, t1 float64) (dynamo.State, error) {
	w0, err := tr.At(t0)
	if err != nil {
		return nil, err
	}
	w1, err := tr.At(t1)
	if err != nil {
		return nil, err
	}
	return w1.Sub(w0), nil
}

func (tr *Tree) SpaceTime(t0, t1 float64) (dynamo.State, error) {
	if err := checkTime(t0); err != nil {
		return nil, err
	}
	if err := checkTime(t1); err != nil {
		return nil, err
	}
	return spaceTime(tr.seed, tr.shapes, t0, t1), nil
}

// node returns the standard normal variate attached to a tree node.
func (tr *Tree) node(id uint64) dynamo.State {
	tr.mu.Lock()
	z, ok := tr.nodes[id]
	tr.mu.Unlock()
	if ok {
		return z
	}

	z = normals(hashKey(tr.seed, id), tr.shapes, 1)

	tr.mu.Lock()
	if len(tr.nodes) >= maxCachedNode {
		clear(tr.nodes)
	}
	tr.nodes[id] = z
	tr.mu.Unlock()
	return z
}

// bridgeWith evaluates the Lévy bridge between (a, wa) and (b, wb) at t
// using the fixed standard normal z. At the midpoint this is the exact
// bridge distribution.
func bridgeWith(a float64, wa dynamo.State, b float64, wb dynamo.State, t float64, z dynamo.State) dynamo.State {
	frac := (t - a) / (b - a)
	std := math.Sqrt(math.Max(0, (t-a)*(b-t)/(b-a)))
	w := wa.Clone()
	for i := range w {
		data := dynamo.Data(w[i])
		floats.AddScaled(data, frac, dynamo.Data(wb[i]))
		floats.AddScaled(data, -frac, dynamo.Data(wa[i]))
		floats.AddScaled(data, std, dynamo.Data(z[i]))
	}
	return w
}
