package brownian

import (
	"math"
	"math/rand/v2"

	"github.com/san-kum/sdesim/internal/dynamo"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Shape is the (batch, m) shape of one Brownian block.
type Shape struct {
	Rows, Cols int
}

// ShapesFor returns one (batch, m) shape per entry of noiseDims.
func ShapesFor(batch int, noiseDims []int) []Shape {
	shapes := make([]Shape, len(noiseDims))
	for i, m := range noiseDims {
		shapes[i] = Shape{Rows: batch, Cols: m}
	}
	return shapes
}

// ShapesOf returns the block shapes of s.
func ShapesOf(s dynamo.State) []Shape {
	shapes := make([]Shape, len(s))
	for i, b := range s {
		shapes[i].Rows, shapes[i].Cols = b.Dims()
	}
	return shapes
}

func zeros(shapes []Shape) dynamo.State {
	s := make(dynamo.State, len(shapes))
	for i, sh := range shapes {
		s[i] = mat.NewDense(sh.Rows, sh.Cols, nil)
	}
	return s
}

// normals fills a state with independent N(0, std^2) variates drawn from a
// PCG stream keyed by key.
func normals(key uint64, shapes []Shape, std float64) dynamo.State {
	dist := distuv.Normal{Mu: 0, Sigma: std, Src: rand.NewPCG(key, mix(key))}
	s := make(dynamo.State, len(shapes))
	for i, sh := range shapes {
		data := make([]float64, sh.Rows*sh.Cols)
		for j := range data {
			data[j] = dist.Rand()
		}
		s[i] = mat.NewDense(sh.Rows, sh.Cols, data)
	}
	return s
}

// spaceTime returns the auxiliary variate for [t0, t1]. It depends only on
// the seed and the interval endpoints.
func spaceTime(seed uint64, shapes []Shape, t0, t1 float64) dynamo.State {
	key := hashKey(seed^spaceTimeSalt, math.Float64bits(t0), math.Float64bits(t1))
	return normals(key, shapes, math.Sqrt(math.Abs(t1-t0)))
}

const spaceTimeSalt = 0x5bd1e9955bd1e995

// mix is the splitmix64 finaliser.
func mix(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

func hashKey(seed uint64, parts ...uint64) uint64 {
	h := mix(seed)
	for _, p := range parts {
		h = mix(h ^ p)
	}
	return h
}

func checkTime(t float64) error {
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return dynamo.ErrOutOfRange
	}
	return nil
}
