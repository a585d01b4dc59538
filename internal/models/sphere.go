package models

import (
	"math"

	"github.com/san-kum/meshftle/internal/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// Icosphere returns a unit sphere refined from an icosahedron. Each level
// splits every triangle in four; faces wind outward.
func Icosphere(subdivisions int) ([]r3.Vec, []mesh.Triangle) {
	g := (1 + math.Sqrt(5)) / 2
	pts := []r3.Vec{
		{X: -1, Y: g}, {X: 1, Y: g}, {X: -1, Y: -g}, {X: 1, Y: -g},
		{Y: -1, Z: g}, {Y: 1, Z: g}, {Y: -1, Z: -g}, {Y: 1, Z: -g},
		{X: g, Z: -1}, {X: g, Z: 1}, {X: -g, Z: -1}, {X: -g, Z: 1},
	}
	for i := range pts {
		pts[i] = r3.Unit(pts[i])
	}
	tris := []mesh.Triangle{
		{0, 11, 5}, {0, 5, 1}, {0, 1, 7}, {0, 7, 10}, {0, 10, 11},
		{1, 5, 9}, {5, 11, 4}, {11, 10, 2}, {10, 7, 6}, {7, 1, 8},
		{3, 9, 4}, {3, 4, 2}, {3, 2, 6}, {3, 6, 8}, {3, 8, 9},
		{4, 9, 5}, {2, 4, 11}, {6, 2, 10}, {8, 6, 7}, {9, 8, 1},
	}

	for level := 0; level < subdivisions; level++ {
		mid := make(map[[2]int]int)
		midpoint := func(a, b int) int {
			key := [2]int{min(a, b), max(a, b)}
			if i, ok := mid[key]; ok {
				return i
			}
			pts = append(pts, r3.Unit(r3.Add(pts[a], pts[b])))
			mid[key] = len(pts) - 1
			return len(pts) - 1
		}

		next := make([]mesh.Triangle, 0, 4*len(tris))
		for _, t := range tris {
			ab := midpoint(t[0], t[1])
			bc := midpoint(t[1], t[2])
			ca := midpoint(t[2], t[0])
			next = append(next,
				mesh.Triangle{t[0], ab, ca},
				mesh.Triangle{t[1], bc, ab},
				mesh.Triangle{t[2], ca, bc},
				mesh.Triangle{ab, bc, ca},
			)
		}
		tris = next
	}
	return pts, tris
}

func scaled(r float64, pts []r3.Vec) []r3.Vec {
	out := make([]r3.Vec, len(pts))
	for i, p := range pts {
		out[i] = r3.Scale(r, p)
	}
	return out
}

// GrowingSphere inflates a sphere linearly: R(t) = Radius·(1 + Rate·t).
// Every particle sees FTLE ln(1 + Rate·T)/T over [0, T].
type GrowingSphere struct {
	Radius       float64
	Rate         float64
	Subdivisions int
}

func NewGrowingSphere() *GrowingSphere {
	return &GrowingSphere{Radius: 1, Rate: 0.5, Subdivisions: 2}
}

func (g *GrowingSphere) Reference() ([]r3.Vec, []mesh.Triangle) {
	pts, tris := Icosphere(g.Subdivisions)
	return scaled(g.Radius, pts), tris
}

func (g *GrowingSphere) Position(t float64, p0 r3.Vec) r3.Vec {
	return r3.Scale(1+g.Rate*t, p0)
}

func (g *GrowingSphere) Velocity(_ float64, p0 r3.Vec) r3.Vec {
	return r3.Scale(g.Rate, p0)
}

// RotatingSphere spins a sphere rigidly about Axis through the origin.
type RotatingSphere struct {
	Radius       float64
	Omega        float64
	Axis         r3.Vec
	Subdivisions int
}

func NewRotatingSphere() *RotatingSphere {
	return &RotatingSphere{Radius: 1, Omega: 1, Axis: r3.Vec{Z: 1}, Subdivisions: 2}
}

func (r *RotatingSphere) Reference() ([]r3.Vec, []mesh.Triangle) {
	pts, tris := Icosphere(r.Subdivisions)
	return scaled(r.Radius, pts), tris
}

func (r *RotatingSphere) Position(t float64, p0 r3.Vec) r3.Vec {
	return r3.NewRotation(r.Omega*t, r3.Unit(r.Axis)).Rotate(p0)
}

func (r *RotatingSphere) Velocity(t float64, p0 r3.Vec) r3.Vec {
	return r3.Scale(r.Omega, r3.Cross(r3.Unit(r.Axis), r.Position(t, p0)))
}

// DifferentialSphere rotates each latitude about z at its own rate,
// Omega + Shear·z/Radius, so neighboring bands shear past each other.
type DifferentialSphere struct {
	Radius       float64
	Omega        float64
	Shear        float64
	Subdivisions int
}

func NewDifferentialSphere() *DifferentialSphere {
	return &DifferentialSphere{Radius: 1, Omega: 1, Shear: 0.8, Subdivisions: 2}
}

func (d *DifferentialSphere) Reference() ([]r3.Vec, []mesh.Triangle) {
	pts, tris := Icosphere(d.Subdivisions)
	return scaled(d.Radius, pts), tris
}

func (d *DifferentialSphere) rate(p0 r3.Vec) float64 {
	return d.Omega + d.Shear*p0.Z/d.Radius
}

func (d *DifferentialSphere) Position(t float64, p0 r3.Vec) r3.Vec {
	a := d.rate(p0) * t
	s, c := math.Sincos(a)
	return r3.Vec{X: c*p0.X - s*p0.Y, Y: s*p0.X + c*p0.Y, Z: p0.Z}
}

func (d *DifferentialSphere) Velocity(t float64, p0 r3.Vec) r3.Vec {
	p := d.Position(t, p0)
	w := d.rate(p0)
	return r3.Vec{X: -w * p.Y, Y: w * p.X}
}
