package models

import (
	"math"

	"github.com/san-kum/meshftle/internal/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// Grid returns an n×n node grid in the z=0 plane, spacing h, centered on the
// origin, with two counter-clockwise triangles per cell.
func Grid(n int, h float64) ([]r3.Vec, []mesh.Triangle) {
	if n < 2 {
		n = 2
	}
	off := float64(n-1) * h / 2
	pts := make([]r3.Vec, 0, n*n)
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			pts = append(pts, r3.Vec{X: float64(i)*h - off, Y: float64(j)*h - off})
		}
	}
	tris := make([]mesh.Triangle, 0, 2*(n-1)*(n-1))
	for j := 0; j < n-1; j++ {
		for i := 0; i < n-1; i++ {
			a := j*n + i
			tris = append(tris, mesh.Triangle{a, a + 1, a + n + 1}, mesh.Triangle{a, a + n + 1, a + n})
		}
	}
	return pts, tris
}

// PlanarStretch scales x by exp(Alpha·t) and y by exp(Beta·t). Forward FTLE
// is max(Alpha, Beta) everywhere.
type PlanarStretch struct {
	N       int
	Spacing float64
	Alpha   float64
	Beta    float64
}

func NewPlanarStretch() *PlanarStretch {
	return &PlanarStretch{N: 21, Spacing: 0.05, Alpha: 0.4, Beta: -0.2}
}

func (p *PlanarStretch) Reference() ([]r3.Vec, []mesh.Triangle) { return Grid(p.N, p.Spacing) }

func (p *PlanarStretch) Position(t float64, p0 r3.Vec) r3.Vec {
	return r3.Vec{X: p0.X * math.Exp(p.Alpha*t), Y: p0.Y * math.Exp(p.Beta*t), Z: p0.Z}
}

func (p *PlanarStretch) Velocity(t float64, p0 r3.Vec) r3.Vec {
	return r3.Vec{X: p.Alpha * p0.X * math.Exp(p.Alpha*t), Y: p.Beta * p0.Y * math.Exp(p.Beta*t)}
}

// PlanarShear is simple shear, x += Rate·t·y.
type PlanarShear struct {
	N       int
	Spacing float64
	Rate    float64
}

func NewPlanarShear() *PlanarShear {
	return &PlanarShear{N: 21, Spacing: 0.05, Rate: 0.8}
}

func (p *PlanarShear) Reference() ([]r3.Vec, []mesh.Triangle) { return Grid(p.N, p.Spacing) }

func (p *PlanarShear) Position(t float64, p0 r3.Vec) r3.Vec {
	return r3.Vec{X: p0.X + p.Rate*t*p0.Y, Y: p0.Y, Z: p0.Z}
}

func (p *PlanarShear) Velocity(_ float64, p0 r3.Vec) r3.Vec {
	return r3.Vec{X: p.Rate * p0.Y}
}

// Static never moves.
type Static struct {
	N       int
	Spacing float64
}

func (s *Static) Reference() ([]r3.Vec, []mesh.Triangle) { return Grid(s.N, s.Spacing) }

func (s *Static) Position(_ float64, p0 r3.Vec) r3.Vec { return p0 }

func (s *Static) Velocity(float64, r3.Vec) r3.Vec { return r3.Vec{} }
