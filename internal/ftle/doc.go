// Package ftle computes forward and backward Finite-Time Lyapunov Exponent
// fields on a time-varying triangulated surface.
//
// [Compute] advects every seed across a window of snapshots in both time
// directions, fits the local deformation gradient of each particle from its
// neighbors in the tangent plane, and reports FTLE and isotropy per particle:
//
//	res, err := ftle.Compute(ctx, series, seeds, dynamo.Window{Initial: 0, Final: 22}, ftle.DefaultOptions())
//	fwd := res.Forward.FTLE()
//	bwd := res.Backward.FTLE()
//
// Structural problems (bad window, bad input) return an error. A particle
// whose neighborhood cannot support a fit is marked invalid, with NaN values,
// and the rest of the batch is unaffected; [Abort] turns that into an error.
//
// Results are handed to collaborators through [Sink]; the package itself
// performs no I/O.
package ftle
