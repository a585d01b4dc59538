package ftle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/san-kum/meshftle/internal/dynamo"
	"github.com/san-kum/meshftle/internal/flow"
	"github.com/san-kum/meshftle/internal/integrators"
	"github.com/san-kum/meshftle/internal/mesh"
	"github.com/san-kum/meshftle/internal/neighborhood"
	"github.com/san-kum/meshftle/internal/strain"
	"github.com/san-kum/meshftle/internal/trajectory"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"
)

// Compute runs the forward and backward analyses of seeds over window.
//
// Forward seeds are advected from Initial to Final and their neighborhoods
// and frames are taken at Initial. Backward seeds are the Lagrangian images
// of the seeds on the Final snapshot, advected back to Initial. Both
// directions run concurrently and the result is identical for any worker
// count.
func Compute(ctx context.Context, series *mesh.Series, seeds []r3.Vec, window dynamo.Window, opts Options) (*Result, error) {
	if series == nil {
		return nil, fmt.Errorf("%w: no mesh series", dynamo.ErrDataIntegrity)
	}
	if err := window.Validate(series.Len()); err != nil {
		return nil, err
	}
	if len(seeds) == 0 {
		return nil, fmt.Errorf("%w: no particles", dynamo.ErrDataIntegrity)
	}
	for i, p := range seeds {
		if !dynamo.IsFinite(p) {
			return nil, fmt.Errorf("%w: particle %d has a non-finite coordinate", dynamo.ErrDataIntegrity, i)
		}
	}

	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	integ, err := integrators.New(opts.Integrator)
	if err != nil {
		return nil, err
	}

	field := flow.New(series, flow.WithScheme(opts.Scheme), flow.WithNeighbors(opts.InterpNeighbors))
	r := &runner{
		series:  series,
		window:  window,
		opts:    opts,
		tracker: trajectory.New(series, field, integ, trajectory.Config{SubSteps: opts.SubSteps, Mode: opts.Mode, Workers: opts.Workers}),
		log:     opts.Logger,
	}

	r.log.Info("computing ftle",
		"particles", len(seeds),
		"initial", window.Initial,
		"final", window.Final,
		"neighborhood", opts.Neighborhood,
		"integrator", opts.Integrator,
		"scheme", opts.Scheme,
		"mode", opts.Mode,
	)
	began := time.Now()

	res := &Result{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		f, err := r.direction(gctx, seeds, dynamo.Forward)
		res.Forward = f
		return err
	})
	g.Go(func() error {
		back := r.tracker.Reseed(seeds, window.Initial, window.Final)
		f, err := r.direction(gctx, back, dynamo.Backward)
		res.Backward = f
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.log.Info("ftle done",
		"forward_valid", res.Forward.Valid(),
		"backward_valid", res.Backward.Valid(),
		"elapsed", time.Since(began),
	)
	return res, nil
}

// Arrays is the plain-array form of a computation: per-step triangles,
// positions and velocities, the sample times, the seeds and the window.
type Arrays struct {
	Triangles    [][][3]int
	Positions    [][][3]float64
	Velocities   [][][3]float64
	Times        []float64
	Particles    [][3]float64
	Initial      int
	Final        int
	Neighborhood int
}

// ComputeArrays validates the arrays into a series and runs Compute with
// opts, using in.Neighborhood as the neighborhood size.
func ComputeArrays(ctx context.Context, in Arrays, opts Options) (*Result, error) {
	series, err := mesh.FromArrays(in.Triangles, in.Positions, in.Velocities, in.Times)
	if err != nil {
		return nil, err
	}
	seeds := make([]r3.Vec, len(in.Particles))
	for i, p := range in.Particles {
		seeds[i] = r3.Vec{X: p[0], Y: p[1], Z: p[2]}
	}
	opts.Neighborhood = in.Neighborhood
	return Compute(ctx, series, seeds, dynamo.Window{Initial: in.Initial, Final: in.Final}, opts)
}

type runner struct {
	series  *mesh.Series
	window  dynamo.Window
	opts    Options
	tracker *trajectory.Tracker
	log     *slog.Logger
}

func (r *runner) direction(ctx context.Context, seeds []r3.Vec, dir dynamo.Direction) (Field, error) {
	start, end := r.window.Endpoints(dir)
	out := Field{
		Direction: dir,
		Window:    r.window,
		Interval:  math.Abs(r.series.Time(end) - r.series.Time(start)),
	}

	trajs, err := r.tracker.Integrate(ctx, seeds, start, end, dir)
	if err != nil {
		return out, fmt.Errorf("%s advection: %w", dir, err)
	}
	out.Trajectories = trajs

	ends := make([]r3.Vec, len(trajs))
	for i, tr := range trajs {
		ends[i] = tr.End()
	}

	nbs := neighborhood.Builder{
		Size:         r.opts.Neighborhood,
		CollinearTol: r.opts.CollinearTol,
		Workers:      r.opts.Workers,
	}.Build(seeds)

	n := len(seeds)
	out.Particles = make([]ParticleResult, n)
	var done atomic.Int64
	dynamo.ParallelFor(n, 8, r.opts.Workers, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			if ctx.Err() != nil {
				return
			}
			out.Particles[i] = r.particle(i, seeds, ends, nbs[i], start, end, dir)
			if r.opts.Progress != nil {
				r.opts.Progress(dir, int(done.Add(1)), n)
			}
		}
	})
	if err := ctx.Err(); err != nil {
		return out, err
	}

	failures := out.Failures()
	if len(failures) > 0 {
		if r.opts.Policy == Abort {
			return out, failures[0].Err
		}
		r.log.Warn("particles marked invalid", "direction", dir, "count", len(failures))
		for _, f := range failures {
			r.log.Debug("particle failed", "direction", dir, "particle", f.Index, "err", f.Err)
		}
	}
	return out, nil
}

func (r *runner) particle(i int, seeds, ends []r3.Vec, nb neighborhood.Neighborhood, start, end int, dir dynamo.Direction) ParticleResult {
	if nb.Err != nil {
		return invalid(i, seeds[i], nb.Indices, dir, nb.Err)
	}

	from := gather(seeds, nb.Indices)
	to := gather(ends, nb.Indices)

	f0, err := r.frame(start, seeds[i], from)
	if err != nil {
		return invalid(i, seeds[i], nb.Indices, dir, err)
	}
	f1, err := r.frame(end, ends[i], to)
	if err != nil {
		return invalid(i, seeds[i], nb.Indices, dir, err)
	}

	j, err := strain.EstimateGradient(
		strain.Configuration{Frame: f0, Points: from},
		strain.Configuration{Frame: f1, Points: to},
		r.opts.SingularTol,
	)
	if err != nil {
		return invalid(i, seeds[i], nb.Indices, dir, err)
	}
	cg, err := strain.Analyze(j, r.series.Time(end)-r.series.Time(start))
	if err != nil {
		return invalid(i, seeds[i], nb.Indices, dir, err)
	}
	return ParticleResult{Index: i, Seed: seeds[i], Neighbors: nb.Indices, CauchyGreen: cg}
}

// frame is the surface tangent frame at p, or a plane fitted through the
// neighbors when the surface gives none.
func (r *runner) frame(k int, p r3.Vec, nbrs []r3.Vec) (mesh.Frame, error) {
	f, err := r.series.TangentFrame(k, p)
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, dynamo.ErrSingularFit) {
		return mesh.Frame{}, err
	}
	return mesh.PlaneFrame(p, nbrs, r3.Vec{})
}

func gather(pts []r3.Vec, idx []int) []r3.Vec {
	out := make([]r3.Vec, len(idx))
	for j, n := range idx {
		out[j] = pts[n]
	}
	return out
}
