package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes the finite entries of a field; NaN and infinite entries
// are counted in Count only.
type Summary struct {
	Count  int     `json:"count"`
	Valid  int     `json:"valid"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Median float64 `json:"median"`
	P90    float64 `json:"p90"`
}

func finite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

func Summarize(values []float64) Summary {
	s := Summary{Count: len(values)}
	x := finite(values)
	s.Valid = len(x)
	if len(x) == 0 {
		nan := math.NaN()
		s.Min, s.Max, s.Mean, s.StdDev, s.Median, s.P90 = nan, nan, nan, nan, nan, nan
		return s
	}

	sort.Float64s(x)
	s.Min = floats.Min(x)
	s.Max = floats.Max(x)
	s.Mean, s.StdDev = stat.MeanStdDev(x, nil)
	if len(x) == 1 {
		s.StdDev = 0
	}
	s.Median = stat.Quantile(0.5, stat.Empirical, x, nil)
	s.P90 = stat.Quantile(0.9, stat.Empirical, x, nil)
	return s
}

// Metrics flattens a summary under prefix, for run metadata.
func (s Summary) Metrics(prefix string) map[string]float64 {
	return map[string]float64{
		prefix + "_valid":  float64(s.Valid),
		prefix + "_min":    s.Min,
		prefix + "_max":    s.Max,
		prefix + "_mean":   s.Mean,
		prefix + "_stddev": s.StdDev,
		prefix + "_median": s.Median,
		prefix + "_p90":    s.P90,
	}
}
