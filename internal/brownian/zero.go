package brownian

import "github.com/san-kum/sdesim/internal/dynamo"

// Zero is the path W ≡ 0. With it every scheme reduces to its drift part.
type Zero struct {
	shapes []Shape
}

func NewZero(shapes []Shape) *Zero {
	return &Zero{shapes: shapes}
}

func (z *Zero) At(t float64) (dynamo.State, error) {
	if err := checkTime(t); err != nil {
		return nil, err
	}
	return zeros(z.shapes), nil
}

func (z *Zero) Increment(t0, t1 float64) (dynamo.State, error) {
	return z.At(t1)
}

func (z *Zero) SpaceTime(t0, t1 float64) (dynamo.State, error) {
	return z.At(t1)
}
