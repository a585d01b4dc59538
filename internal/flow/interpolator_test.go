package flow

import (
	"testing"

	"github.com/san-kum/meshftle/internal/dynamo"
	"github.com/san-kum/meshftle/internal/mesh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

// planar builds an n×n grid whose node velocities are v(x) at each step.
func planar(t *testing.T, n int, times []float64, v func(k int, p r3.Vec) r3.Vec) *mesh.Series {
	t.Helper()
	snaps := make([]mesh.Snapshot, len(times))
	for k := range times {
		var snap mesh.Snapshot
		for j := 0; j < n; j++ {
			for i := 0; i < n; i++ {
				p := r3.Vec{X: float64(i), Y: float64(j)}
				snap.Positions = append(snap.Positions, p)
				snap.Velocities = append(snap.Velocities, v(k, p))
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

func TestParseScheme(t *testing.T) {
	for _, name := range []string{"nearest", "idw", "barycentric"} {
		s, err := ParseScheme(name)
		require.NoError(t, err)
		assert.Equal(t, Scheme(name), s)
	}
	s, err := ParseScheme("")
	require.NoError(t, err)
	assert.Equal(t, IDW, s)

	_, err = ParseScheme("spline")
	assert.Error(t, err)
}

func TestVelocity_UniformField(t *testing.T) {
	u := r3.Vec{X: 0.3, Y: -0.1, Z: 0.05}
	s := planar(t, 4, []float64{0, 1}, func(int, r3.Vec) r3.Vec { return u })

	for _, scheme := range []Scheme{Nearest, IDW, Barycentric} {
		in := New(s, WithScheme(scheme))
		v, err := in.Velocity(0.4, r3.Vec{X: 1.3, Y: 2.2})
		require.NoError(t, err)
		assert.InDelta(t, u.X, v.X, 1e-14, "scheme %s", scheme)
		assert.InDelta(t, u.Y, v.Y, 1e-14, "scheme %s", scheme)
		assert.InDelta(t, u.Z, v.Z, 1e-14, "scheme %s", scheme)
	}
}

func TestVelocity_LinearInTime(t *testing.T) {
	s := planar(t, 3, []float64{0, 2}, func(k int, _ r3.Vec) r3.Vec {
		return r3.Vec{X: float64(k)}
	})
	in := New(s)

	v, err := in.Velocity(0.5, r3.Vec{X: 1, Y: 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.25, v.X, 1e-14)

	v, err = in.Velocity(2, r3.Vec{X: 1, Y: 1})
	require.NoError(t, err)
	assert.InDelta(t, 1, v.X, 1e-14)
}

func TestVelocity_BarycentricExactForLinearField(t *testing.T) {
	field := func(_ int, p r3.Vec) r3.Vec { return r3.Vec{X: 2 * p.X, Y: -p.Y + 0.5*p.X} }
	s := planar(t, 4, []float64{0, 1}, field)
	in := New(s, WithScheme(Barycentric))

	p := r3.Vec{X: 1.37, Y: 0.61}
	v, err := in.Velocity(0.5, p)
	require.NoError(t, err)
	want := field(0, p)
	assert.InDelta(t, want.X, v.X, 1e-12)
	assert.InDelta(t, want.Y, v.Y, 1e-12)
}

func TestVelocity_SnapsToNode(t *testing.T) {
	s := planar(t, 3, []float64{0, 1}, func(_ int, p r3.Vec) r3.Vec { return p })
	in := New(s, WithScheme(IDW), WithNeighbors(6))

	v := in.VelocityAtStep(0, r3.Vec{X: 2, Y: 1})
	assert.Equal(t, r3.Vec{X: 2, Y: 1}, v)
}

func TestVelocity_IDWBetweenNodes(t *testing.T) {
	s := planar(t, 3, []float64{0, 1}, func(_ int, p r3.Vec) r3.Vec { return r3.Vec{X: p.X} })
	in := New(s, WithNeighbors(2))

	// Equidistant from nodes at x=0 and x=1 on the bottom row.
	v := in.VelocityAtStep(0, r3.Vec{X: 0.5})
	assert.InDelta(t, 0.5, v.X, 1e-14)
}

func TestVelocity_OutOfRange(t *testing.T) {
	s := planar(t, 2, []float64{1, 2}, func(int, r3.Vec) r3.Vec { return r3.Vec{} })
	in := New(s)

	_, err := in.Velocity(0.5, r3.Vec{})
	assert.ErrorIs(t, err, dynamo.ErrOutOfRange)
	_, err = in.Velocity(2.5, r3.Vec{})
	assert.ErrorIs(t, err, dynamo.ErrOutOfRange)
}
