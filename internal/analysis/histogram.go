package analysis

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

type Histogram struct {
	// Edges has one more entry than Counts.
	Edges  []float64
	Counts []float64
}

// NewHistogram bins the finite values into equal-width bins spanning their
// range. A constant field gets a single bin.
func NewHistogram(values []float64, bins int) Histogram {
	x := finite(values)
	if len(x) == 0 || bins < 1 {
		return Histogram{}
	}
	sort.Float64s(x)

	lo, hi := x[0], x[len(x)-1]
	if lo == hi {
		return Histogram{Edges: []float64{lo, hi}, Counts: []float64{float64(len(x))}}
	}

	edges := make([]float64, bins+1)
	floats.Span(edges, lo, hi)
	// stat.Histogram wants the last divider strictly above the data.
	edges[bins] = nextUp(hi)
	counts := stat.Histogram(nil, edges, x, nil)
	edges[bins] = hi
	return Histogram{Edges: edges, Counts: counts}
}

// Centers returns the midpoint of each bin.
func (h Histogram) Centers() []float64 {
	out := make([]float64, len(h.Counts))
	for i := range out {
		out[i] = (h.Edges[i] + h.Edges[i+1]) / 2
	}
	return out
}
