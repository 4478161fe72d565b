package viz

import (
	"fmt"

	"github.com/guptarohit/asciigraph"
)

// PlotPaths draws one or more equally sampled series on shared axes.
// Series shorter than two points are skipped.
func PlotPaths(series [][]float64, width, height int, caption string) string {
	data := make([][]float64, 0, len(series))
	for _, s := range series {
		if len(s) >= 2 {
			data = append(data, s)
		}
	}
	if len(data) == 0 {
		return Subtle.Render("(not enough points to plot)")
	}
	opts := []asciigraph.Option{
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	}
	if len(data) <= len(CurrentTheme.Series) {
		opts = append(opts, asciigraph.SeriesColors(CurrentTheme.Series[:len(data)]...))
	}
	return asciigraph.PlotMany(data, opts...)
}

// PhasePortrait draws paths in the plane given by two coordinates.
func PhasePortrait(xs, ys [][]float64, width, height int) string {
	c := NewCanvas(width, height)
	b := BoundsOf(xs, ys)
	for i := range xs {
		c.DrawPath(xs[i], ys[i], b)
	}
	axes := fmt.Sprintf("x ∈ [%.3g, %.3g]  y ∈ [%.3g, %.3g]", b.XMin, b.XMax, b.YMin, b.YMax)
	return c.String() + Subtle.Render(axes)
}
