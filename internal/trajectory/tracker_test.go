package trajectory

import (
	"context"
	"math"
	"testing"

	"github.com/san-kum/meshftle/internal/dynamo"
	"github.com/san-kum/meshftle/internal/flow"
	"github.com/san-kum/meshftle/internal/integrators"
	"github.com/san-kum/meshftle/internal/mesh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

// moving builds a 4×4 planar grid whose nodes follow pos(t, p0) with velocity vel(t, p0).
func moving(t *testing.T, times []float64, pos, vel func(t float64, p0 r3.Vec) r3.Vec) *mesh.Series {
	t.Helper()
	const n = 4
	snaps := make([]mesh.Snapshot, len(times))
	for k, tk := range times {
		var snap mesh.Snapshot
		for j := 0; j < n; j++ {
			for i := 0; i < n; i++ {
				p0 := r3.Vec{X: float64(i), Y: float64(j)}
				snap.Positions = append(snap.Positions, pos(tk, p0))
				snap.Velocities = append(snap.Velocities, vel(tk, p0))
			}
		}
		for j := 0; j < n-1; j++ {
			for i := 0; i < n-1; i++ {
				a := j*n + i
				snap.Triangles = append(snap.Triangles, mesh.Triangle{a, a + 1, a + n + 1}, mesh.Triangle{a, a + n + 1, a + n})
			}
		}
		snaps[k] = snap
	}
	s, err := mesh.NewSeries(snaps, times, len(times))
	require.NoError(t, err)
	return s
}

func translating(t *testing.T) (*mesh.Series, r3.Vec) {
	u := r3.Vec{X: 0.5, Y: -0.25}
	s := moving(t, []float64{0, 0.5, 1, 1.5},
		func(tk float64, p0 r3.Vec) r3.Vec { return r3.Add(p0, r3.Scale(tk, u)) },
		func(float64, r3.Vec) r3.Vec { return u },
	)
	return s, u
}

func newTracker(s *mesh.Series, scheme flow.Scheme, cfg Config) *Tracker {
	integ, _ := integrators.New("rk4")
	return New(s, flow.New(s, flow.WithScheme(scheme)), integ, cfg)
}

func TestIntegrate_Translation(t *testing.T) {
	s, u := translating(t)
	seeds := []r3.Vec{{X: 1.2, Y: 0.7}, {X: 2, Y: 2}}

	for _, mode := range []Mode{Advect, Lagrangian} {
		tr := newTracker(s, flow.IDW, Config{SubSteps: 3, Mode: mode})
		trajs, err := tr.Integrate(context.Background(), seeds, 0, 3, dynamo.Forward)
		require.NoError(t, err)
		require.Len(t, trajs, 2)

		for i, traj := range trajs {
			assert.Equal(t, i, traj.Particle)
			assert.Equal(t, []int{0, 1, 2, 3}, traj.Steps)
			assert.Equal(t, []float64{0, 0.5, 1, 1.5}, traj.Times)
			assert.Equal(t, seeds[i], traj.Start())
			want := r3.Add(seeds[i], r3.Scale(1.5, u))
			assert.InDelta(t, want.X, traj.End().X, 1e-12, "mode %s", mode)
			assert.InDelta(t, want.Y, traj.End().Y, 1e-12, "mode %s", mode)
		}
	}
}

func TestIntegrate_LagrangianKeepsNormalOffset(t *testing.T) {
	s, u := translating(t)
	tr := newTracker(s, flow.IDW, Config{Mode: Lagrangian})
	seed := r3.Vec{X: 1.3, Y: 1.2, Z: 0.4}

	got, err := tr.Integrate(context.Background(), []r3.Vec{seed}, 0, 3, dynamo.Forward)
	require.NoError(t, err)
	for k, p := range got[0].Positions {
		want := r3.Add(seed, r3.Scale(s.Time(k), u))
		assert.InDelta(t, want.X, p.X, 1e-12, "step %d", k)
		assert.InDelta(t, want.Y, p.Y, 1e-12, "step %d", k)
		assert.InDelta(t, 0.4, p.Z, 1e-12, "step %d", k)
	}

	c := NewCarrier(s, 0, seed)
	assert.InDelta(t, 0.4, math.Abs(c.Offset), 1e-12)
	back := c.At(s, 0)
	assert.InDelta(t, 0, r3.Norm(r3.Sub(back, seed)), 1e-12)
}

func TestIntegrate_BackwardRetraces(t *testing.T) {
	s, u := translating(t)
	tr := newTracker(s, flow.IDW, Config{SubSteps: 2})

	end := []r3.Vec{r3.Add(r3.Vec{X: 1, Y: 1}, r3.Scale(1.5, u))}
	trajs, err := tr.Integrate(context.Background(), end, 3, 0, dynamo.Backward)
	require.NoError(t, err)

	traj := trajs[0]
	assert.Equal(t, dynamo.Backward, traj.Direction)
	assert.Equal(t, []int{3, 2, 1, 0}, traj.Steps)
	assert.InDelta(t, 1, traj.End().X, 1e-12)
	assert.InDelta(t, 1, traj.End().Y, 1e-12)
}

func TestIntegrate_ExponentialStretch(t *testing.T) {
	const a = 0.2
	s := moving(t, []float64{0, 0.5, 1, 1.5, 2},
		func(tk float64, p0 r3.Vec) r3.Vec { return r3.Scale(math.Exp(a*tk), p0) },
		func(tk float64, p0 r3.Vec) r3.Vec { return r3.Scale(a*math.Exp(a*tk), p0) },
	)
	tr := newTracker(s, flow.Barycentric, Config{SubSteps: 4})

	seed := r3.Vec{X: 1.5, Y: 1.25}
	trajs, err := tr.Integrate(context.Background(), []r3.Vec{seed}, 0, 4, dynamo.Forward)
	require.NoError(t, err)

	want := r3.Scale(math.Exp(2*a), seed)
	assert.InDelta(t, want.X, trajs[0].End().X, 1e-7)
	assert.InDelta(t, want.Y, trajs[0].End().Y, 1e-7)
}

func TestIntegrate_ZeroFlowIsStationary(t *testing.T) {
	s := moving(t, []float64{0, 1, 2},
		func(_ float64, p0 r3.Vec) r3.Vec { return p0 },
		func(float64, r3.Vec) r3.Vec { return r3.Vec{} },
	)
	tr := newTracker(s, flow.IDW, Config{SubSteps: 5})

	seed := r3.Vec{X: 0.3, Y: 2.9}
	trajs, err := tr.Integrate(context.Background(), []r3.Vec{seed}, 0, 2, dynamo.Forward)
	require.NoError(t, err)
	for _, p := range trajs[0].Positions {
		assert.Equal(t, seed, p)
	}
}

func TestIntegrate_RangeErrors(t *testing.T) {
	s, _ := translating(t)
	tr := newTracker(s, flow.IDW, Config{})
	seeds := []r3.Vec{{X: 1, Y: 1}}

	tests := []struct {
		name       string
		start, end int
		dir        dynamo.Direction
	}{
		{"equal", 1, 1, dynamo.Forward},
		{"negative", -1, 2, dynamo.Forward},
		{"past end", 0, 4, dynamo.Forward},
		{"forward reversed", 3, 0, dynamo.Forward},
		{"backward reversed", 0, 3, dynamo.Backward},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tr.Integrate(context.Background(), seeds, tt.start, tt.end, tt.dir)
			assert.ErrorIs(t, err, dynamo.ErrRange)
		})
	}
}

func TestIntegrate_Canceled(t *testing.T) {
	s, _ := translating(t)
	tr := newTracker(s, flow.IDW, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := tr.Integrate(ctx, []r3.Vec{{X: 1, Y: 1}}, 0, 3, dynamo.Forward)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReseed(t *testing.T) {
	s, u := translating(t)
	tr := newTracker(s, flow.IDW, Config{})

	seeds := []r3.Vec{{X: 1, Y: 2}, {X: 0.25, Y: 0.5}}
	out := tr.Reseed(seeds, 0, 3)
	for i := range seeds {
		want := r3.Add(seeds[i], r3.Scale(1.5, u))
		assert.InDelta(t, want.X, out[i].X, 1e-12)
		assert.InDelta(t, want.Y, out[i].Y, 1e-12)
	}
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, Advect, m)

	m, err = ParseMode("lagrangian")
	require.NoError(t, err)
	assert.Equal(t, Lagrangian, m)

	_, err = ParseMode("eulerian")
	assert.Error(t, err)
}
