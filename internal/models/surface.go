package models

import (
	"fmt"
	"sort"

	"github.com/san-kum/meshftle/internal/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// Surface is a synthetic moving mesh: a fixed reference triangulation whose
// nodes follow a closed-form motion.
type Surface interface {
	Reference() ([]r3.Vec, []mesh.Triangle)
	Position(t float64, p0 r3.Vec) r3.Vec
	Velocity(t float64, p0 r3.Vec) r3.Vec
}

// Sample evaluates s at times 0, dt, ..., (steps-1)·dt.
func Sample(s Surface, steps int, dt float64) (*mesh.Series, error) {
	if steps < 1 || dt <= 0 {
		return nil, fmt.Errorf("invalid sampling: %d steps of %g", steps, dt)
	}
	ref, tris := s.Reference()

	snaps := make([]mesh.Snapshot, steps)
	times := make([]float64, steps)
	for k := range snaps {
		t := float64(k) * dt
		times[k] = t
		snap := mesh.Snapshot{
			Triangles:  tris,
			Positions:  make([]r3.Vec, len(ref)),
			Velocities: make([]r3.Vec, len(ref)),
		}
		for i, p0 := range ref {
			snap.Positions[i] = s.Position(t, p0)
			snap.Velocities[i] = s.Velocity(t, p0)
		}
		snaps[k] = snap
	}
	return mesh.NewSeries(snaps, times, steps)
}

// Params collects the knobs of every model; each model reads the ones it uses.
type Params struct {
	Radius       float64 `yaml:"radius" json:"radius"`
	Subdivisions int     `yaml:"subdivisions" json:"subdivisions"`
	Rate         float64 `yaml:"rate" json:"rate"`
	Omega        float64 `yaml:"omega" json:"omega"`
	Shear        float64 `yaml:"shear" json:"shear"`
	Alpha        float64 `yaml:"alpha" json:"alpha"`
	Beta         float64 `yaml:"beta" json:"beta"`
	GridSize     int     `yaml:"grid_size" json:"grid_size"`
	Spacing      float64 `yaml:"spacing" json:"spacing"`
}

func DefaultParams() Params {
	return Params{
		Radius:       1,
		Subdivisions: 2,
		Rate:         0.5,
		Omega:        1,
		Shear:        0.8,
		Alpha:        0.4,
		Beta:         -0.2,
		GridSize:     21,
		Spacing:      0.05,
	}
}

var registry = map[string]func(Params) Surface{
	"growing_sphere":  func(p Params) Surface { return &GrowingSphere{Radius: p.Radius, Rate: p.Rate, Subdivisions: p.Subdivisions} },
	"rotating_sphere": func(p Params) Surface { return &RotatingSphere{Radius: p.Radius, Omega: p.Omega, Axis: r3.Vec{Z: 1}, Subdivisions: p.Subdivisions} },
	"differential_sphere": func(p Params) Surface {
		return &DifferentialSphere{Radius: p.Radius, Omega: p.Omega, Shear: p.Shear, Subdivisions: p.Subdivisions}
	},
	"planar_stretch": func(p Params) Surface { return &PlanarStretch{N: p.GridSize, Spacing: p.Spacing, Alpha: p.Alpha, Beta: p.Beta} },
	"planar_shear":   func(p Params) Surface { return &PlanarShear{N: p.GridSize, Spacing: p.Spacing, Rate: p.Shear} },
	"static":         func(p Params) Surface { return &Static{N: p.GridSize, Spacing: p.Spacing} },
}

func New(name string, p Params) (Surface, error) {
	mk, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown model: %s", name)
	}
	return mk(p), nil
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NodeSeeds places one particle on every node of step k.
func NodeSeeds(s *mesh.Series, k int) []r3.Vec {
	return s.Positions(k)
}

// CentroidSeeds places one particle at the centroid of every triangle of step k.
func CentroidSeeds(s *mesh.Series, k int) []r3.Vec {
	tris := s.Triangles(k)
	out := make([]r3.Vec, len(tris))
	for j, tri := range tris {
		c := r3.Add(r3.Add(s.Position(k, tri[0]), s.Position(k, tri[1])), s.Position(k, tri[2]))
		out[j] = r3.Scale(1.0/3, c)
	}
	return out
}
