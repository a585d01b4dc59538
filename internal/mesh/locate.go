package mesh

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

// nodePoint is a tracked node as seen by the kd-tree.
type nodePoint struct {
	r3.Vec
	Index int
}

func coord(v r3.Vec, d kdtree.Dim) float64 {
	switch d {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

func (p nodePoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(nodePoint)
	return coord(p.Vec, d) - coord(q.Vec, d)
}

func (p nodePoint) Dims() int { return 3 }

// Distance is the squared Euclidean distance, as kdtree expects.
func (p nodePoint) Distance(c kdtree.Comparable) float64 {
	q := c.(nodePoint)
	return r3.Norm2(r3.Sub(p.Vec, q.Vec))
}

type nodePoints []nodePoint

func (p nodePoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p nodePoints) Len() int                              { return len(p) }
func (p nodePoints) Pivot(d kdtree.Dim) int                { return nodePlane{Dim: d, nodePoints: p}.Pivot() }
func (p nodePoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

type nodePlane struct {
	kdtree.Dim
	nodePoints
}

func (p nodePlane) Less(i, j int) bool {
	a, b := coord(p.nodePoints[i].Vec, p.Dim), coord(p.nodePoints[j].Vec, p.Dim)
	if a != b {
		return a < b
	}
	return p.nodePoints[i].Index < p.nodePoints[j].Index
}

// Pivot uses median of medians so tree shape never depends on a random source.
func (p nodePlane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }

func (p nodePlane) Slice(start, end int) kdtree.SortSlicer {
	p.nodePoints = p.nodePoints[start:end]
	return p
}

func (p nodePlane) Swap(i, j int) {
	p.nodePoints[i], p.nodePoints[j] = p.nodePoints[j], p.nodePoints[i]
}

// PointIndex answers nearest-point queries over a fixed point set.
type PointIndex struct {
	tree *kdtree.Tree
	n    int
}

func NewPointIndex(pts []r3.Vec) *PointIndex {
	np := make(nodePoints, len(pts))
	for i, p := range pts {
		np[i] = nodePoint{Vec: p, Index: i}
	}
	return &PointIndex{tree: kdtree.New(np, false), n: len(pts)}
}

func (ix *PointIndex) Len() int { return ix.n }

// NodeDist is a point index and its Euclidean distance to a query point.
type NodeDist struct {
	Index int
	Dist  float64
}

// Nearest returns up to n points closest to p, ordered by distance and then
// by ascending index.
func (ix *PointIndex) Nearest(p r3.Vec, n int) []NodeDist {
	if n <= 0 || ix.n == 0 {
		return nil
	}
	if n > ix.n {
		n = ix.n
	}
	q := nodePoint{Vec: p, Index: -1}

	nk := kdtree.NewNKeeper(n)
	ix.tree.NearestSet(nk, q)
	radius := 0.0
	for _, c := range nk.Heap {
		if c.Comparable != nil && c.Dist > radius {
			radius = c.Dist
		}
	}

	// Collect everything at the cut-off distance so ties resolve by index.
	dk := kdtree.NewDistKeeper(radius)
	ix.tree.NearestSet(dk, q)

	found := make([]NodeDist, 0, len(dk.Heap))
	for _, c := range dk.Heap {
		if c.Comparable == nil {
			continue
		}
		found = append(found, NodeDist{Index: c.Comparable.(nodePoint).Index, Dist: math.Sqrt(c.Dist)})
	}
	sortNodeDists(found)
	if len(found) > n {
		found = found[:n]
	}
	return found
}

// NearestNodes returns up to n nodes of step k closest to p, ordered by
// distance and then by ascending node index.
func (s *Series) NearestNodes(k int, p r3.Vec, n int) []NodeDist {
	return s.index[k].Nearest(p, n)
}

func sortNodeDists(nd []NodeDist) {
	sort.Slice(nd, func(i, j int) bool {
		if nd[i].Dist != nd[j].Dist {
			return nd[i].Dist < nd[j].Dist
		}
		return nd[i].Index < nd[j].Index
	})
}

// Nearest returns the closest node of step k to p.
func (s *Series) Nearest(k int, p r3.Vec) (NodeDist, bool) {
	nd := s.NearestNodes(k, p, 1)
	if len(nd) == 0 {
		return NodeDist{}, false
	}
	return nd[0], true
}

// IncidentTriangles returns the indices of the triangles of step k that use node i.
func (s *Series) IncidentTriangles(k, i int) []int {
	return append([]int(nil), s.incident[k][i]...)
}

// Location is a point expressed in barycentric coordinates of a triangle.
type Location struct {
	Triangle int
	Nodes    [3]int
	Weights  [3]float64
	// Offset is the distance from the point to the triangle's plane.
	Offset float64
}

const insideTol = 1e-9

// Locate finds the triangle of step k containing the projection of p,
// searching the triangles incident to the candidates nearest nodes.
// Among containing triangles the one closest to p wins; ties go to the
// lowest triangle index.
func (s *Series) Locate(k int, p r3.Vec, candidates int) (Location, bool) {
	if candidates < 1 {
		candidates = 1
	}
	snap := s.snapshots[k]

	seen := make(map[int]struct{})
	tris := make([]int, 0, 8*candidates)
	for _, nd := range s.NearestNodes(k, p, candidates) {
		for _, j := range s.incident[k][nd.Index] {
			if _, ok := seen[j]; ok {
				continue
			}
			seen[j] = struct{}{}
			tris = append(tris, j)
		}
	}
	sort.Ints(tris)

	var (
		best  Location
		found bool
	)
	for _, j := range tris {
		tri := snap.Triangles[j]
		w, off, ok := barycentric(p, snap.Positions[tri[0]], snap.Positions[tri[1]], snap.Positions[tri[2]])
		if !ok {
			continue
		}
		if w[0] < -insideTol || w[1] < -insideTol || w[2] < -insideTol {
			continue
		}
		if !found || off < best.Offset {
			best = Location{Triangle: j, Nodes: [3]int(tri), Weights: w, Offset: off}
			found = true
		}
	}
	return best, found
}

// barycentric returns the coordinates of the projection of p onto the plane
// of triangle abc, and the distance from p to that plane.
func barycentric(p, a, b, c r3.Vec) ([3]float64, float64, bool) {
	v0 := r3.Sub(b, a)
	v1 := r3.Sub(c, a)
	v2 := r3.Sub(p, a)

	d00 := r3.Dot(v0, v0)
	d01 := r3.Dot(v0, v1)
	d11 := r3.Dot(v1, v1)
	d20 := r3.Dot(v2, v0)
	d21 := r3.Dot(v2, v1)

	denom := d00*d11 - d01*d01
	if denom <= 1e-300 || denom <= 1e-14*d00*d11 {
		return [3]float64{}, 0, false
	}

	v := (d11*d20 - d01*d21) / denom
	w := (d00*d21 - d01*d20) / denom
	u := 1 - v - w

	n := r3.Cross(v0, v1)
	off := math.Abs(r3.Dot(v2, n)) / r3.Norm(n)
	return [3]float64{u, v, w}, off, true
}
