package dynamo

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

type Direction int

const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// Sign is +1 for forward and -1 for backward traversal of snapshot indices.
func (d Direction) Sign() int {
	if d == Backward {
		return -1
	}
	return 1
}

// Window delimits an analysis by snapshot index. Initial is the earlier
// snapshot; backward analyses traverse it from Final to Initial.
type Window struct {
	Initial int
	Final   int
}

// Validate checks the window against a series of n snapshots.
func (w Window) Validate(n int) error {
	if w.Initial < 0 || w.Initial >= n {
		return fmt.Errorf("%w: initial index %d not in [0, %d]", ErrRange, w.Initial, n-1)
	}
	if w.Final < 0 || w.Final >= n {
		return fmt.Errorf("%w: final index %d not in [0, %d]", ErrRange, w.Final, n-1)
	}
	if w.Initial == w.Final {
		return fmt.Errorf("%w: initial and final index are both %d", ErrRange, w.Initial)
	}
	if w.Initial > w.Final {
		return fmt.Errorf("%w: initial index %d after final index %d", ErrRange, w.Initial, w.Final)
	}
	return nil
}

// Endpoints returns the start and end index for a traversal direction.
func (w Window) Endpoints(d Direction) (start, end int) {
	if d == Backward {
		return w.Final, w.Initial
	}
	return w.Initial, w.Final
}

// Field is a time-dependent velocity field in ambient 3D.
type Field interface {
	Velocity(t float64, x r3.Vec) (r3.Vec, error)
}

// Integrator advances a position by one step of size dt. dt may be negative.
type Integrator interface {
	Step(f Field, x r3.Vec, t, dt float64) (r3.Vec, error)
}

// IsFinite reports whether every component of v is finite.
func IsFinite(v r3.Vec) bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
