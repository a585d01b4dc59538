package ftle

import (
	"github.com/san-kum/meshftle/internal/dynamo"
	"github.com/san-kum/meshftle/internal/strain"
	"github.com/san-kum/meshftle/internal/trajectory"
	"gonum.org/v1/gonum/spatial/r3"
)

// ParticleResult is the outcome for one particle in one direction. When Err
// is set every value of the embedded analysis is NaN.
type ParticleResult struct {
	Index     int
	Seed      r3.Vec
	Neighbors []int
	strain.CauchyGreen
	Err error
}

func (p ParticleResult) Valid() bool { return p.Err == nil }

// Field holds one direction's results, indexed parallel to the seeds.
type Field struct {
	Direction dynamo.Direction
	Window    dynamo.Window
	// Interval is |t_final − t_initial|.
	Interval     float64
	Particles    []ParticleResult
	Trajectories []trajectory.Trajectory
}

func (f *Field) Len() int { return len(f.Particles) }

func (f *Field) FTLE() []float64 {
	out := make([]float64, len(f.Particles))
	for i, p := range f.Particles {
		out[i] = p.FTLE
	}
	return out
}

func (f *Field) Isotropy() []float64 {
	out := make([]float64, len(f.Particles))
	for i, p := range f.Particles {
		out[i] = p.Isotropy
	}
	return out
}

// Valid counts particles with a finished analysis.
func (f *Field) Valid() int {
	n := 0
	for _, p := range f.Particles {
		if p.Valid() {
			n++
		}
	}
	return n
}

func (f *Field) Failures() []ParticleResult {
	var out []ParticleResult
	for _, p := range f.Particles {
		if !p.Valid() {
			out = append(out, p)
		}
	}
	return out
}

// Result carries both directions of one computation.
type Result struct {
	Forward  Field
	Backward Field
}

// Unpack returns the six artifacts in the conventional order: forward FTLE,
// forward trajectories, forward isotropy, then the same for backward.
func (r *Result) Unpack() ([]float64, []trajectory.Trajectory, []float64, []float64, []trajectory.Trajectory, []float64) {
	return r.Forward.FTLE(), r.Forward.Trajectories, r.Forward.Isotropy(),
		r.Backward.FTLE(), r.Backward.Trajectories, r.Backward.Isotropy()
}

func invalid(idx int, seed r3.Vec, nbrs []int, dir dynamo.Direction, err error) ParticleResult {
	return ParticleResult{
		Index:       idx,
		Seed:        seed,
		Neighbors:   nbrs,
		CauchyGreen: strain.Invalid(),
		Err:         &dynamo.ParticleError{Index: idx, Direction: dir, Wrapped: err},
	}
}
