// Package export renders stored trajectories as standalone SVG files.
package export

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/pkg/errors"
	"github.com/san-kum/sdesim/internal/dynamo"
	"github.com/san-kum/sdesim/internal/viz"
)

const background = "#0a0a0a"

// Series is one polyline. Points that are not finite break the line.
type Series struct {
	Xs, Ys []float64
	Color  string
	Width  float64
}

// Figure is a set of series sharing one data window.
type Figure struct {
	Width, Height int
	Series        []Series
}

// WriteSVG renders f. The window is padded by a tenth of its extent on
// every side.
func (f *Figure) WriteSVG(w io.Writer) error {
	if f.Width <= 0 || f.Height <= 0 {
		return errors.Wrapf(dynamo.ErrContractViolation, "svg size must be positive, got %dx%d", f.Width, f.Height)
	}
	xs := make([][]float64, len(f.Series))
	ys := make([][]float64, len(f.Series))
	for i, s := range f.Series {
		if len(s.Xs) != len(s.Ys) {
			return errors.Wrapf(dynamo.ErrDimensionMismatch, "series %d has %d x and %d y values", i, len(s.Xs), len(s.Ys))
		}
		xs[i], ys[i] = s.Xs, s.Ys
	}
	b := viz.BoundsOf(xs, ys)
	padX, padY := (b.XMax-b.XMin)*0.1, (b.YMax-b.YMin)*0.1
	b.XMin, b.XMax = b.XMin-padX, b.XMax+padX
	b.YMin, b.YMax = b.YMin-padY, b.YMax+padY

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
`, f.Width, f.Height, f.Width, f.Height, background)

	for _, s := range f.Series {
		d := pathData(s, b, float64(f.Width), float64(f.Height))
		if d == "" {
			continue
		}
		width := s.Width
		if width <= 0 {
			width = 1.5
		}
		fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="%.1f" d="%s"/>
`, s.Color, width, d)
	}
	sb.WriteString("</svg>\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

func pathData(s Series, b viz.Bounds, w, h float64) string {
	var sb strings.Builder
	move := true
	for i := range s.Xs {
		x, y := s.Xs[i], s.Ys[i]
		if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
			move = true
			continue
		}
		px := (x - b.XMin) / (b.XMax - b.XMin) * w
		py := h - (y-b.YMin)/(b.YMax-b.YMin)*h
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		if move {
			fmt.Fprintf(&sb, "M%.1f,%.1f", px, py)
			move = false
		} else {
			fmt.Fprintf(&sb, "L%.1f,%.1f", px, py)
		}
	}
	return sb.String()
}

// Envelope builds a figure of the batch mean with a lower and upper band
// over ts, plus any sample paths behind them, coloured from theme.
func Envelope(ts, mean, lower, upper []float64, paths [][]float64, theme viz.Theme, width, height int) *Figure {
	f := &Figure{Width: width, Height: height}
	for _, p := range paths {
		f.Series = append(f.Series, Series{Xs: ts, Ys: p, Color: string(theme.Muted), Width: 0.8})
	}
	f.Series = append(f.Series,
		Series{Xs: ts, Ys: lower, Color: string(theme.Accent), Width: 1},
		Series{Xs: ts, Ys: upper, Color: string(theme.Accent), Width: 1},
		Series{Xs: ts, Ys: mean, Color: string(theme.Primary), Width: 2},
	)
	return f
}

// CanvasToSVG draws every lit sub-pixel of a Braille canvas as a dot.
func CanvasToSVG(canvas *viz.Canvas, scale float64, color string) string {
	if canvas == nil {
		return ""
	}
	width := float64(canvas.Width) * scale * 2
	height := float64(canvas.Height) * scale * 4

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="%s"/>
<g fill="%s">
`, width, height, width, height, background, color)

	radius := scale * 0.4
	for row := 0; row < canvas.Height; row++ {
		for col := 0; col < canvas.Width; col++ {
			for dy := 0; dy < 4; dy++ {
				for dx := 0; dx < 2; dx++ {
					if !canvas.IsSet(col*2+dx, row*4+dy) {
						continue
					}
					cx := (float64(col*2+dx) + 0.5) * scale
					cy := (float64(row*4+dy) + 0.5) * scale
					fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n", cx, cy, radius)
				}
			}
		}
	}
	sb.WriteString("</g>\n</svg>\n")
	return sb.String()
}
