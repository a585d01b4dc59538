// Package trajectory advects particles across a window of mesh snapshots.
package trajectory

import (
	"context"
	"fmt"

	"github.com/san-kum/meshftle/internal/dynamo"
	"github.com/san-kum/meshftle/internal/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

type Mode string

const (
	// Advect integrates the interpolated velocity field.
	Advect Mode = "advect"
	// Lagrangian carries each seed with the tracked nodes around it.
	Lagrangian Mode = "lagrangian"
)

func ParseMode(name string) (Mode, error) {
	switch m := Mode(name); m {
	case Advect, Lagrangian:
		return m, nil
	case "":
		return Advect, nil
	default:
		return "", fmt.Errorf("unknown tracking mode: %s", name)
	}
}

// Trajectory is one particle's position at every sampled step of a window,
// in traversal order.
type Trajectory struct {
	Particle  int
	Direction dynamo.Direction
	Steps     []int
	Times     []float64
	Positions []r3.Vec
}

func (t Trajectory) Start() r3.Vec { return t.Positions[0] }
func (t Trajectory) End() r3.Vec   { return t.Positions[len(t.Positions)-1] }

type Config struct {
	// SubSteps splits every sampled interval into equal integration steps.
	SubSteps int
	Mode     Mode
	Workers  int
}

// Tracker produces trajectories. It holds no per-call state and may be
// shared between goroutines.
type Tracker struct {
	series     *mesh.Series
	field      dynamo.Field
	integrator dynamo.Integrator
	cfg        Config
}

func New(series *mesh.Series, field dynamo.Field, integrator dynamo.Integrator, cfg Config) *Tracker {
	if cfg.SubSteps < 1 {
		cfg.SubSteps = 1
	}
	if cfg.Mode == "" {
		cfg.Mode = Advect
	}
	return &Tracker{series: series, field: field, integrator: integrator, cfg: cfg}
}

// Integrate advects every seed from snapshot start to snapshot end. Forward
// requires start < end and backward start > end; both run the same ODE, the
// backward one with decreasing time.
func (tr *Tracker) Integrate(ctx context.Context, seeds []r3.Vec, start, end int, dir dynamo.Direction) ([]Trajectory, error) {
	if err := tr.checkRange(start, end, dir); err != nil {
		return nil, err
	}

	out := make([]Trajectory, len(seeds))
	errs := make([]error, len(seeds))

	dynamo.ParallelFor(len(seeds), 8, tr.cfg.Workers, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				continue
			}
			out[i], errs[i] = tr.track(i, seeds[i], start, end, dir)
		}
	})

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (tr *Tracker) checkRange(start, end int, dir dynamo.Direction) error {
	n := tr.series.Len()
	if start < 0 || start >= n || end < 0 || end >= n {
		return fmt.Errorf("%w: steps %d..%d outside [0, %d]", dynamo.ErrRange, start, end, n-1)
	}
	if start == end {
		return fmt.Errorf("%w: start and end step are both %d", dynamo.ErrRange, start)
	}
	if (dir == dynamo.Forward) != (start < end) {
		return fmt.Errorf("%w: %s traversal cannot go from step %d to %d", dynamo.ErrRange, dir, start, end)
	}
	return nil
}

func (tr *Tracker) track(idx int, seed r3.Vec, start, end int, dir dynamo.Direction) (Trajectory, error) {
	sign := dir.Sign()
	n := (end-start)*sign + 1

	traj := Trajectory{
		Particle:  idx,
		Direction: dir,
		Steps:     make([]int, 0, n),
		Times:     make([]float64, 0, n),
		Positions: make([]r3.Vec, 0, n),
	}
	record := func(k int, p r3.Vec) {
		traj.Steps = append(traj.Steps, k)
		traj.Times = append(traj.Times, tr.series.Time(k))
		traj.Positions = append(traj.Positions, p)
	}

	if tr.cfg.Mode == Lagrangian {
		c := NewCarrier(tr.series, start, seed)
		record(start, seed)
		for k := start + sign; ; k += sign {
			record(k, c.At(tr.series, k))
			if k == end {
				break
			}
		}
		return traj, nil
	}

	x := seed
	record(start, x)
	for k := start; k != end; k += sign {
		t0, t1 := tr.series.Time(k), tr.series.Time(k+sign)
		h := (t1 - t0) / float64(tr.cfg.SubSteps)
		for s := 0; s < tr.cfg.SubSteps; s++ {
			var err error
			x, err = tr.integrator.Step(tr.field, x, t0+float64(s)*h, h)
			if err != nil {
				return Trajectory{}, fmt.Errorf("particle %d, step %d: %w", idx, k, err)
			}
		}
		record(k+sign, x)
	}
	return traj, nil
}

// Reseed maps seeds given at snapshot from to their Lagrangian images at
// snapshot to.
func (tr *Tracker) Reseed(seeds []r3.Vec, from, to int) []r3.Vec {
	out := make([]r3.Vec, len(seeds))
	dynamo.ParallelFor(len(seeds), 32, tr.cfg.Workers, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			out[i] = NewCarrier(tr.series, from, seeds[i]).At(tr.series, to)
		}
	})
	return out
}
