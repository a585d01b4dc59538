package viz

import (
	"math"

	"github.com/san-kum/meshftle/internal/trajectory"
	"gonum.org/v1/gonum/spatial/r3"
)

// MapView projects 3D points orthographically onto a Canvas. Azimuth turns
// about z, then Elevation tilts about the screen's horizontal axis; both are
// radians. Zero angles look down the z axis.
type MapView struct {
	Width, Height int
	Azimuth       float64
	Elevation     float64
}

func (m MapView) project(p r3.Vec) (float64, float64) {
	sa, ca := math.Sincos(m.Azimuth)
	x := ca*p.X - sa*p.Y
	y := sa*p.X + ca*p.Y
	se, ce := math.Sincos(m.Elevation)
	return x, ce*y - se*p.Z
}

type frame struct {
	minX, minY, scale float64
	w, h              int
}

func (m MapView) fit(pts []r3.Vec) frame {
	f := frame{w: m.Width * 2, h: m.Height * 4}
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	f.minX, f.minY = math.Inf(1), math.Inf(1)
	for _, p := range pts {
		x, y := m.project(p)
		f.minX = math.Min(f.minX, x)
		maxX = math.Max(maxX, x)
		f.minY = math.Min(f.minY, y)
		maxY = math.Max(maxY, y)
	}
	span := math.Max(maxX-f.minX, maxY-f.minY)
	if span <= 0 || math.IsInf(span, 0) || math.IsNaN(span) {
		span = 1
	}
	f.scale = float64(min(f.w, f.h)-1) / span
	return f
}

func (f frame) pixel(x, y float64) (int, int) {
	// Screen y grows downward.
	return int(math.Round((x - f.minX) * f.scale)), f.h - 1 - int(math.Round((y-f.minY)*f.scale))
}

// Pixels returns the sub-pixel position of every point in the frame fitted
// to all of them, as drawn by Points.
func (m MapView) Pixels(pts []r3.Vec) [][2]int {
	f := m.fit(pts)
	out := make([][2]int, len(pts))
	for i, p := range pts {
		x, y := f.pixel(m.project(p))
		out[i] = [2]int{x, y}
	}
	return out
}

// Points plots every point.
func (m MapView) Points(pts []r3.Vec) *Canvas {
	c := NewCanvas(m.Width, m.Height)
	f := m.fit(pts)
	for _, p := range pts {
		c.Set(f.pixel(m.project(p)))
	}
	return c
}

// Trajectories draws each trajectory as a polyline.
func (m MapView) Trajectories(trs []trajectory.Trajectory) *Canvas {
	var all []r3.Vec
	for _, tr := range trs {
		all = append(all, tr.Positions...)
	}
	c := NewCanvas(m.Width, m.Height)
	f := m.fit(all)
	for _, tr := range trs {
		for k := 1; k < len(tr.Positions); k++ {
			x0, y0 := f.pixel(m.project(tr.Positions[k-1]))
			x1, y1 := f.pixel(m.project(tr.Positions[k]))
			c.DrawLine(x0, y0, x1, y1)
		}
		if len(tr.Positions) == 1 {
			c.Set(f.pixel(m.project(tr.Positions[0])))
		}
	}
	return c
}
