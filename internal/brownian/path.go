package brownian

import (
	"math"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/san-kum/sdesim/internal/dynamo"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Path caches every sampled point. Times beyond the cached span are reached
// with Gaussian increments; times inside it are filled in with Lévy-bridge
// samples between the neighbouring points. Once a time has been queried its
// value never changes, but which values a fresh query produces depends on
// the points sampled before it.
type Path struct {
	mu     sync.Mutex
	shapes []Shape
	seed   uint64
	ts     []float64
	ws     []dynamo.State
	dist   distuv.Normal
}

// NewPath starts a path at W(t0) = w0.
func NewPath(t0 float64, w0 dynamo.State, seed uint64) *Path {
	return &Path{
		shapes: ShapesOf(w0),
		seed:   seed,
		ts:     []float64{t0},
		ws:     []dynamo.State{w0.Clone()},
		dist:   distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewPCG(seed, mix(seed))},
	}
}

// NewZeroPath starts a path at W(t0) = 0 with the given block shapes.
func NewZeroPath(t0 float64, shapes []Shape, seed uint64) *Path {
	return NewPath(t0, zeros(shapes), seed)
}

func (p *Path) At(t float64) (dynamo.State, error) {
	if err := checkTime(t); err != nil {
		return nil, errors.Wrapf(err, "brownian path query at %v", t)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	i := sort.SearchFloat64s(p.ts, t)
	if i < len(p.ts) && p.ts[i] == t {
		return p.ws[i].Clone(), nil
	}

	var w dynamo.State
	switch {
	case i == len(p.ts):
		last := len(p.ts) - 1
		w = p.ws[last].AddScaled(math.Sqrt(t-p.ts[last]), p.standard())
	case i == 0:
		w = p.ws[0].AddScaled(math.Sqrt(p.ts[0]-t), p.standard())
	default:
		w = p.bridge(p.ts[i-1], p.ws[i-1], p.ts[i], p.ws[i], t)
	}

	p.ts = append(p.ts, 0)
	copy(p.ts[i+1:], p.ts[i:])
	p.ts[i] = t
	p.ws = append(p.ws, nil)
	copy(p.ws[i+1:], p.ws[i:])
	p.ws[i] = w

	return w.Clone(), nil
}

func (p *Path) Increment(t0, t1 float64) (dynamo.State, error) {
	w0, err := p.At(t0)
	if err != nil {
		return nil, err
	}
	w1, err := p.At(t1)
	if err != nil {
		return nil, err
	}
	return w1.Sub(w0), nil
}

func (p *Path) SpaceTime(t0, t1 float64) (dynamo.State, error) {
	if err := checkTime(t0); err != nil {
		return nil, err
	}
	if err := checkTime(t1); err != nil {
		return nil, err
	}
	return spaceTime(p.seed, p.shapes, t0, t1), nil
}

// Len returns the number of cached points.
func (p *Path) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.ts)
}

func (p *Path) standard() dynamo.State {
	s := zeros(p.shapes)
	for _, b := range s {
		data := dynamo.Data(b)
		for j := range data {
			data[j] = p.dist.Rand()
		}
	}
	return s
}

// bridge samples W(t) given W(a) = wa and W(b) = wb, a < t < b.
func (p *Path) bridge(a float64, wa dynamo.State, b float64, wb dynamo.State, t float64) dynamo.State {
	frac := (t - a) / (b - a)
	std := math.Sqrt((t - a) * (b - t) / (b - a))
	w := wa.Clone()
	z := p.standard()
	for i := range w {
		data := dynamo.Data(w[i])
		floats.AddScaled(data, frac, dynamo.Data(wb[i]))
		floats.AddScaled(data, -frac, dynamo.Data(wa[i]))
		floats.AddScaled(data, std, dynamo.Data(z[i]))
	}
	return w
}
