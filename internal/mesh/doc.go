// Package mesh holds the validated, read-only mesh time series the FTLE
// engine runs on, together with the geometric queries it needs: nearest
// tracked nodes, containing triangles and local tangent frames.
//
// A [Series] is built once with [NewSeries] or [FromArrays] and never
// mutated afterwards, so it can be shared by any number of goroutines.
//
// Node index i names the same Lagrangian point at every snapshot. The
// triangulation may change from one snapshot to the next; the node count
// may not.
package mesh
