package viz

import (
	"fmt"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/meshftle/internal/analysis"
)

// PlotHistogram draws bin counts as a line graph with the value range in the
// caption.
func PlotHistogram(h analysis.Histogram, caption string, width, height int) string {
	if len(h.Counts) == 0 {
		return Subtle.Render("no finite values")
	}
	counts := h.Counts
	if len(counts) == 1 {
		counts = []float64{counts[0], counts[0]}
	}
	return asciigraph.Plot(counts,
		asciigraph.Width(width),
		asciigraph.Height(height),
		asciigraph.Caption(fmt.Sprintf("%s  [%.4g, %.4g]", caption, h.Edges[0], h.Edges[len(h.Edges)-1])),
	)
}

// PlotSeries draws several value series on shared axes.
func PlotSeries(series [][]float64, caption string, width, height int) string {
	return asciigraph.PlotMany(series,
		asciigraph.Width(width),
		asciigraph.Height(height),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(asciigraph.Cyan, asciigraph.Magenta, asciigraph.Yellow, asciigraph.Green),
	)
}
