package dynamo

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// State is an ordered tuple of blocks. Block i has shape (batch, d_i) and
// every block shares the same batch size.
type State []*mat.Dense

// NewState allocates a zero state with one block per entry of dims.
func NewState(batch int, dims ...int) State {
	s := make(State, len(dims))
	for i, d := range dims {
		s[i] = mat.NewDense(batch, d, nil)
	}
	return s
}

// ZerosLike allocates a zero state with the shapes of s.
func ZerosLike(s State) State {
	z := make(State, len(s))
	for i, b := range s {
		r, c := b.Dims()
		z[i] = mat.NewDense(r, c, nil)
	}
	return z
}

// Repeat builds a (batch, len(row)) block with row copied into every batch element.
func Repeat(batch int, row []float64) *mat.Dense {
	data := make([]float64, 0, batch*len(row))
	for b := 0; b < batch; b++ {
		data = append(data, row...)
	}
	return mat.NewDense(batch, len(row), data)
}

func (s State) Clone() State {
	c := make(State, len(s))
	for i, b := range s {
		c[i] = mat.DenseCopyOf(b)
	}
	return c
}

// Batch returns the shared leading dimension, or 0 for an empty state.
func (s State) Batch() int {
	if len(s) == 0 {
		return 0
	}
	r, _ := s[0].Dims()
	return r
}

// Dims returns the trailing dimension of every block.
func (s State) Dims() []int {
	dims := make([]int, len(s))
	for i, b := range s {
		_, dims[i] = b.Dims()
	}
	return dims
}

// SameShape reports whether o has the same arity and block shapes as s.
func (s State) SameShape(o State) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] == nil || o[i] == nil {
			return false
		}
		r1, c1 := s[i].Dims()
		r2, c2 := o[i].Dims()
		if r1 != r2 || c1 != c2 {
			return false
		}
	}
	return true
}

func (s State) IsValid() bool {
	for _, b := range s {
		for _, v := range Data(b) {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

// Norm is the Frobenius norm over all blocks.
func (s State) Norm() float64 {
	sum := 0.0
	for _, b := range s {
		n := floats.Norm(Data(b), 2)
		sum += n * n
	}
	return math.Sqrt(sum)
}

func (s State) Add(other State) State {
	return s.AddScaled(1, other)
}

func (s State) Sub(other State) State {
	return s.AddScaled(-1, other)
}

// AddScaled returns s + alpha*other.
func (s State) AddScaled(alpha float64, other State) State {
	result := s.Clone()
	for i := range result {
		if i < len(other) {
			floats.AddScaled(Data(result[i]), alpha, Data(other[i]))
		}
	}
	return result
}

func (s State) Scale(factor float64) State {
	result := s.Clone()
	for _, b := range result {
		floats.Scale(factor, Data(b))
	}
	return result
}

// Data returns the row-major backing slice of m. For a view whose stride
// is wider than its column count a compact copy is returned instead, and
// writes to it do not reach m.
func Data(m *mat.Dense) []float64 {
	raw := m.RawMatrix()
	if raw.Stride == raw.Cols {
		return raw.Data[:raw.Rows*raw.Cols]
	}
	return mat.DenseCopyOf(m).RawMatrix().Data
}

// Compact returns m itself when it is contiguous, or a contiguous copy.
func Compact(m *mat.Dense) *mat.Dense {
	raw := m.RawMatrix()
	if raw.Stride == raw.Cols {
		return m
	}
	return mat.DenseCopyOf(m)
}
