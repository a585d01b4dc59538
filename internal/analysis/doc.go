// Package analysis characterizes FTLE fields after they are computed.
//
//   - [Summarize]: count, range, mean, spread and quantiles of the finite values
//   - [Histogram]: fixed-width binning for terminal plots
//   - [Ridges]: local maxima above a percentile, candidate coherent structures
//   - [PairExponents]: direct two-trajectory separation rates, a cross-check
//     on the gradient-based FTLE
//
// # Ridges
//
// Ridges of the forward field approximate repelling structures and ridges of
// the backward field attracting ones:
//
//	idx := analysis.Ridges(res.Forward.FTLE(), neighbors, 0.9)
package analysis
