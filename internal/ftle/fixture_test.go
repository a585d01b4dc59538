package ftle_test

import (
	"math"

	"github.com/san-kum/meshftle/internal/mesh"
	"gonum.org/v1/gonum/spatial/r3"

	. "github.com/onsi/gomega"
)

type motion struct {
	pos func(t float64, p0 r3.Vec) r3.Vec
	vel func(t float64, p0 r3.Vec) r3.Vec
}

var times = []float64{0, 0.5, 1, 1.5, 2}

// surface is an 11×11 grid over the unit square whose nodes follow m.
func surface(m motion) *mesh.Series {
	const n, h = 11, 0.1
	snaps := make([]mesh.Snapshot, len(times))
	for k, tk := range times {
		var snap mesh.Snapshot
		for j := 0; j < n; j++ {
			for i := 0; i < n; i++ {
				p0 := r3.Vec{X: float64(i) * h, Y: float64(j) * h}
				snap.Positions = append(snap.Positions, m.pos(tk, p0))
				snap.Velocities = append(snap.Velocities, m.vel(tk, p0))
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
	Expect(err).NotTo(HaveOccurred())
	return s
}

// seeds is a 5×5 block of particles off the mesh nodes.
func seeds() []r3.Vec {
	var out []r3.Vec
	for j := 0; j < 5; j++ {
		for i := 0; i < 5; i++ {
			out = append(out, r3.Vec{X: 0.33 + 0.1*float64(i), Y: 0.31 + 0.1*float64(j)})
		}
	}
	return out
}

var static = motion{
	pos: func(_ float64, p r3.Vec) r3.Vec { return p },
	vel: func(float64, r3.Vec) r3.Vec { return r3.Vec{} },
}

// stretch scales x by exp(alpha·t) and y by exp(beta·t).
func stretch(alpha, beta float64) motion {
	return motion{
		pos: func(t float64, p r3.Vec) r3.Vec {
			return r3.Vec{X: p.X * math.Exp(alpha*t), Y: p.Y * math.Exp(beta*t)}
		},
		vel: func(t float64, p r3.Vec) r3.Vec {
			return r3.Vec{X: alpha * p.X * math.Exp(alpha*t), Y: beta * p.Y * math.Exp(beta*t)}
		},
	}
}

// spin rotates about the unit axis u through c at angular rate omega.
func spin(u, c r3.Vec, omega float64) motion {
	rot := func(t float64, p r3.Vec) r3.Vec {
		return r3.Add(c, r3.NewRotation(omega*t, u).Rotate(r3.Sub(p, c)))
	}
	return motion{
		pos: rot,
		vel: func(t float64, p r3.Vec) r3.Vec {
			return r3.Scale(omega, r3.Cross(u, r3.Sub(rot(t, p), c)))
		},
	}
}
