package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Ridges returns the particles whose value is at or above the pct quantile
// of the finite values and no lower than any finite neighbor. neighbors[i]
// lists the particles adjacent to i. Indices are ascending.
func Ridges(values []float64, neighbors [][]int, pct float64) []int {
	x := finite(values)
	if len(x) == 0 {
		return nil
	}
	sort.Float64s(x)
	threshold := stat.Quantile(math.Min(math.Max(pct, 0), 1), stat.Empirical, x, nil)

	var out []int
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < threshold {
			continue
		}
		peak := true
		if i < len(neighbors) {
			for _, j := range neighbors[i] {
				if w := values[j]; !math.IsNaN(w) && w > v {
					peak = false
					break
				}
			}
		}
		if peak {
			out = append(out, i)
		}
	}
	return out
}

func nextUp(v float64) float64 { return math.Nextafter(v, math.Inf(1)) }
