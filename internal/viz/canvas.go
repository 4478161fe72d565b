package viz

import (
	"math"
	"strings"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const brailleBlank = 0x2800

// Canvas is a grid of Braille cells, each holding 2x4 sub-pixels.
type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Set turns on the sub-pixel (x, y). The canvas spans (Width*2) x
// (Height*4) sub-pixels with y growing downward.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
}

// IsSet reports whether the sub-pixel (x, y) is on.
func (c *Canvas) IsSet(x, y int) bool {
	if x < 0 || y < 0 {
		return false
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return false
	}
	return c.Grid[row][col]&rune(pixelMap[y%4][x%2]) != 0
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = brailleBlank
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// Bounds is the data window mapped onto a canvas.
type Bounds struct {
	XMin, XMax, YMin, YMax float64
}

// BoundsOf returns the smallest window containing every finite point of
// the given paths. Degenerate extents are widened to one unit.
func BoundsOf(xs, ys [][]float64) Bounds {
	b := Bounds{math.Inf(1), math.Inf(-1), math.Inf(1), math.Inf(-1)}
	for i := range xs {
		for j := range xs[i] {
			x, y := xs[i][j], ys[i][j]
			if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
				continue
			}
			b.XMin, b.XMax = math.Min(b.XMin, x), math.Max(b.XMax, x)
			b.YMin, b.YMax = math.Min(b.YMin, y), math.Max(b.YMax, y)
		}
	}
	if b.XMin > b.XMax {
		return Bounds{-1, 1, -1, 1}
	}
	if b.XMax-b.XMin == 0 {
		b.XMin, b.XMax = b.XMin-0.5, b.XMax+0.5
	}
	if b.YMax-b.YMin == 0 {
		b.YMin, b.YMax = b.YMin-0.5, b.YMax+0.5
	}
	return b
}

// DrawPath connects consecutive (xs[i], ys[i]) points inside b. Points that
// are not finite break the path.
func (c *Canvas) DrawPath(xs, ys []float64, b Bounds) {
	pw, ph := c.Width*2-1, c.Height*4-1
	toPixel := func(x, y float64) (int, int, bool) {
		if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
			return 0, 0, false
		}
		px := int(math.Round((x - b.XMin) / (b.XMax - b.XMin) * float64(pw)))
		py := int(math.Round((b.YMax - y) / (b.YMax - b.YMin) * float64(ph)))
		return px, py, true
	}

	prevX, prevY, havePrev := 0, 0, false
	for i := range xs {
		x, y, ok := toPixel(xs[i], ys[i])
		if !ok {
			havePrev = false
			continue
		}
		if havePrev {
			c.DrawLine(prevX, prevY, x, y)
		} else {
			c.Set(x, y)
		}
		prevX, prevY, havePrev = x, y, true
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
