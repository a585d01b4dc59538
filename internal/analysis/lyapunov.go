package analysis

import (
	"math"

	"github.com/san-kum/meshftle/internal/ftle"
	"gonum.org/v1/gonum/spatial/r3"
)

// PairExponents estimates a stretching rate per particle by the trajectory
// separation method: the largest (1/|Δt|)·ln(|δx(T)|/|δx(0)|) over the
// particle's neighbors. It needs no tangent frames, so it bounds the
// gradient-based FTLE from below on well-resolved fields.
//
// Invalid particles, and particles without neighbors, get NaN.
func PairExponents(f *ftle.Field) []float64 {
	out := make([]float64, f.Len())
	for i, p := range f.Particles {
		out[i] = math.NaN()
		if !p.Valid() || len(p.Neighbors) == 0 || f.Interval == 0 || i >= len(f.Trajectories) {
			continue
		}
		a := f.Trajectories[i]

		best := math.Inf(-1)
		for _, j := range p.Neighbors {
			b := f.Trajectories[j]
			d0 := r3.Norm(r3.Sub(b.Start(), a.Start()))
			d1 := r3.Norm(r3.Sub(b.End(), a.End()))
			if d0 == 0 || d1 == 0 {
				continue
			}
			best = math.Max(best, math.Log(d1/d0)/f.Interval)
		}
		if !math.IsInf(best, -1) {
			out[i] = best
		}
	}
	return out
}
