package integrators

// sriTableau holds the coefficients of a Rößler SRI scheme for diagonal
// and scalar noise. C0 and C1 are the drift and diffusion stage times, A*
// and B* the lower-triangular stage couplings, Alpha the drift weights and
// Beta1..Beta4 the weights of I_k, I_kk, I_k0 and I_kkk.
type sriTableau struct {
	C0, C1                     []float64
	A0, A1, B0, B1             [][]float64
	Alpha                      []float64
	Beta1, Beta2, Beta3, Beta4 []float64
}

func (t sriTableau) stages() int { return len(t.Alpha) }

// sraTableau holds a Rößler SRA scheme for additive noise.
type sraTableau struct {
	C0, C1       []float64
	A0, B0       [][]float64
	Alpha        []float64
	Beta1, Beta2 []float64
}

func (t sraTableau) stages() int { return len(t.Alpha) }

// SRI2: strong order 1.5 for diagonal and scalar noise.
var sri2 = sriTableau{
	C0: []float64{0, 1, 1.0 / 2, 0},
	C1: []float64{0, 1.0 / 4, 1, 1.0 / 4},
	A0: [][]float64{
		{},
		{1},
		{1.0 / 4, 1.0 / 4},
		{0, 0, 0},
	},
	A1: [][]float64{
		{},
		{1.0 / 4},
		{1, 0},
		{0, 0, 1.0 / 4},
	},
	B0: [][]float64{
		{},
		{0},
		{1, 1.0 / 2},
		{0, 0, 0},
	},
	B1: [][]float64{
		{},
		{-1.0 / 2},
		{1, 0},
		{2, -1, 1.0 / 2},
	},
	Alpha: []float64{1.0 / 6, 1.0 / 6, 2.0 / 3, 0},
	Beta1: []float64{-1, 4.0 / 3, 2.0 / 3, 0},
	Beta2: []float64{1, -4.0 / 3, 1.0 / 3, 0},
	Beta3: []float64{2, -4.0 / 3, -2.0 / 3, 0},
	Beta4: []float64{-2, 5.0 / 3, -2.0 / 3, 1},
}

// SRA1: strong order 1.5 for additive noise.
var sra1 = sraTableau{
	C0: []float64{0, 3.0 / 4},
	C1: []float64{1, 0},
	A0: [][]float64{
		{},
		{3.0 / 4},
	},
	B0: [][]float64{
		{},
		{3.0 / 2},
	},
	Alpha: []float64{1.0 / 3, 2.0 / 3},
	Beta1: []float64{1, 0},
	Beta2: []float64{-1, 1},
}
