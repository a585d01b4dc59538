package trajectory

import (
	"math"

	"github.com/san-kum/meshftle/internal/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	carrierNeighbors = 4
	snapTol          = 1e-12
)

// Carrier expresses a point as a fixed blend of tracked nodes. Because node
// identity persists across snapshots, applying the same blend to the node
// positions of another snapshot gives the Lagrangian image of the point.
type Carrier struct {
	Nodes   []int
	Weights []float64
	// Offset is the signed distance of the point from the plane of its
	// triangle, along the triangle's normal. It is zero for node blends.
	Offset float64
}

// NewCarrier anchors p to the nodes of step k: a single node when p sits on
// one, the vertices of the containing triangle when there is one, and an
// inverse-distance blend of the nearest nodes otherwise.
func NewCarrier(s *mesh.Series, k int, p r3.Vec) Carrier {
	nearest := s.NearestNodes(k, p, carrierNeighbors)
	if len(nearest) == 0 {
		return Carrier{}
	}
	if nearest[0].Dist <= snapTol {
		return Carrier{Nodes: []int{nearest[0].Index}, Weights: []float64{1}}
	}

	if loc, ok := s.Locate(k, p, carrierNeighbors); ok {
		c := Carrier{
			Nodes:   []int{loc.Nodes[0], loc.Nodes[1], loc.Nodes[2]},
			Weights: []float64{loc.Weights[0], loc.Weights[1], loc.Weights[2]},
		}
		if n, ok := c.normal(s, k); ok {
			c.Offset = r3.Dot(r3.Sub(p, c.blend(s, k)), n)
		}
		return c
	}

	c := Carrier{
		Nodes:   make([]int, len(nearest)),
		Weights: make([]float64, len(nearest)),
	}
	wsum := 0.0
	for i, nd := range nearest {
		w := 1 / math.Pow(nd.Dist, 2)
		c.Nodes[i] = nd.Index
		c.Weights[i] = w
		wsum += w
	}
	for i := range c.Weights {
		c.Weights[i] /= wsum
	}
	return c
}

// At returns the carried point at step k. A point off its triangle's plane
// keeps its offset along the triangle's current normal.
func (c Carrier) At(s *mesh.Series, k int) r3.Vec {
	p := c.blend(s, k)
	if c.Offset != 0 {
		if n, ok := c.normal(s, k); ok {
			p = r3.Add(p, r3.Scale(c.Offset, n))
		}
	}
	return p
}

func (c Carrier) blend(s *mesh.Series, k int) r3.Vec {
	var p r3.Vec
	for i, n := range c.Nodes {
		p = r3.Add(p, r3.Scale(c.Weights[i], s.Position(k, n)))
	}
	return p
}

// normal is the unit normal of the carrying triangle at step k.
func (c Carrier) normal(s *mesh.Series, k int) (r3.Vec, bool) {
	if len(c.Nodes) != 3 {
		return r3.Vec{}, false
	}
	a := s.Position(k, c.Nodes[0])
	n := r3.Cross(r3.Sub(s.Position(k, c.Nodes[1]), a), r3.Sub(s.Position(k, c.Nodes[2]), a))
	l := r3.Norm(n)
	if l == 0 {
		return r3.Vec{}, false
	}
	return r3.Scale(1/l, n), true
}
