package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for FTLE computations.
var (
	// ErrDataIntegrity indicates a malformed or inconsistent mesh time series.
	ErrDataIntegrity = errors.New("dynamo: inconsistent mesh data")

	// ErrRange indicates snapshot indices outside the series or an empty window.
	ErrRange = errors.New("dynamo: time index out of range")

	// ErrOutOfRange indicates an interpolation request outside the sampled time span.
	ErrOutOfRange = errors.New("dynamo: time outside sampled span")

	// ErrDegenerateNeighborhood indicates too few or collinear neighbor candidates.
	ErrDegenerateNeighborhood = errors.New("dynamo: degenerate neighborhood")

	// ErrSingularFit indicates the deformation gradient could not be formed.
	ErrSingularFit = errors.New("dynamo: singular deformation fit")
)

// ParticleError wraps a per-particle failure with its batch context.
type ParticleError struct {
	Index     int
	Direction Direction
	Wrapped   error
}

func (e *ParticleError) Error() string {
	return fmt.Sprintf("particle %d (%s): %v", e.Index, e.Direction, e.Wrapped)
}

func (e *ParticleError) Unwrap() error {
	return e.Wrapped
}

// IsPerParticle reports whether err is a recoverable geometric failure.
func IsPerParticle(err error) bool {
	return errors.Is(err, ErrDegenerateNeighborhood) || errors.Is(err, ErrSingularFit)
}
