// Package dynamo provides the primitives shared by the FTLE engine.
//
// The package defines the vocabulary every stage of the pipeline speaks:
//
//   - [Direction]: forward or backward in time
//   - [Window]: the pair of snapshot indices delimiting an analysis
//   - [Field]: a time-dependent velocity field sampled in ambient 3D
//   - [Integrator]: single-step numerical integrator over a [Field]
//   - [ParallelFor]: chunked data-parallel loop over an index range
//
// # Errors
//
// Structural failures ([ErrDataIntegrity], [ErrRange], [ErrOutOfRange])
// abort a computation. Geometric failures ([ErrDegenerateNeighborhood],
// [ErrSingularFit]) are per-particle and are reported through
// [ParticleError] without stopping the batch.
//
// # Thread Safety
//
// Values in this package are immutable once built. [ParallelFor] writes
// nothing itself; callers must write to disjoint slots.
package dynamo
