package mesh

import (
	"fmt"
	"math"

	"github.com/san-kum/meshftle/internal/dynamo"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Frame is an orthonormal tangent basis (E1, E2) and unit Normal at Origin.
type Frame struct {
	Origin r3.Vec
	E1     r3.Vec
	E2     r3.Vec
	Normal r3.Vec
}

// Project returns the in-plane coordinates of p relative to the frame origin.
func (f Frame) Project(p r3.Vec) [2]float64 {
	d := r3.Sub(p, f.Origin)
	return [2]float64{r3.Dot(d, f.E1), r3.Dot(d, f.E2)}
}

// FrameFromNormal builds the tangent basis for normal n by Gram-Schmidt
// against the coordinate axis least aligned with n.
func FrameFromNormal(origin, n r3.Vec) (Frame, error) {
	norm := r3.Norm(n)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return Frame{}, fmt.Errorf("%w: zero surface normal", dynamo.ErrSingularFit)
	}
	n = r3.Scale(1/norm, n)

	var ref r3.Vec
	ax, ay, az := math.Abs(n.X), math.Abs(n.Y), math.Abs(n.Z)
	switch {
	case ax <= ay && ax <= az:
		ref = r3.Vec{X: 1}
	case ay <= az:
		ref = r3.Vec{Y: 1}
	default:
		ref = r3.Vec{Z: 1}
	}

	e1 := r3.Sub(ref, r3.Scale(r3.Dot(ref, n), n))
	e1 = r3.Unit(e1)
	e2 := r3.Cross(n, e1)

	return Frame{Origin: origin, E1: e1, E2: e2, Normal: n}, nil
}

// TangentFrame estimates the tangent plane of step k at p. The normal is the
// area-weighted mean of the triangles incident to the node nearest p, or the
// normal of the nearest triangle when that node has none.
func (s *Series) TangentFrame(k int, p r3.Vec) (Frame, error) {
	nd, ok := s.Nearest(k, p)
	if !ok {
		return Frame{}, fmt.Errorf("%w: step %d has no nodes", dynamo.ErrSingularFit, k)
	}

	snap := s.snapshots[k]
	var n r3.Vec
	if inc := s.incident[k][nd.Index]; len(inc) > 0 {
		for _, j := range inc {
			// |cross| is twice the area, so summing raw crosses area-weights.
			n = r3.Add(n, triangleCross(snap, j))
		}
	} else {
		j, ok := s.nearestTriangle(k, p)
		if !ok {
			return Frame{}, fmt.Errorf("%w: step %d has no triangles", dynamo.ErrSingularFit, k)
		}
		n = triangleCross(snap, j)
	}

	return FrameFromNormal(p, n)
}

func triangleCross(snap Snapshot, j int) r3.Vec {
	tri := snap.Triangles[j]
	a, b, c := snap.Positions[tri[0]], snap.Positions[tri[1]], snap.Positions[tri[2]]
	return r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
}

func (s *Series) nearestTriangle(k int, p r3.Vec) (int, bool) {
	snap := s.snapshots[k]
	best, bestDist := -1, math.Inf(1)
	for j, tri := range snap.Triangles {
		c := r3.Scale(1.0/3, r3.Add(r3.Add(snap.Positions[tri[0]], snap.Positions[tri[1]]), snap.Positions[tri[2]]))
		if d := r3.Norm2(r3.Sub(c, p)); d < bestDist {
			best, bestDist = j, d
		}
	}
	return best, best >= 0
}

// PlaneFrame fits a tangent plane to a point cloud: the normal is the right
// singular vector of the centered coordinates with the smallest singular
// value. The sign of the normal follows hint when hint is non-zero.
func PlaneFrame(origin r3.Vec, pts []r3.Vec, hint r3.Vec) (Frame, error) {
	if len(pts) < 3 {
		return Frame{}, fmt.Errorf("%w: %d points cannot define a plane", dynamo.ErrSingularFit, len(pts))
	}

	var mean r3.Vec
	for _, p := range pts {
		mean = r3.Add(mean, p)
	}
	mean = r3.Scale(1/float64(len(pts)), mean)

	a := mat.NewDense(len(pts), 3, nil)
	for i, p := range pts {
		d := r3.Sub(p, mean)
		a.SetRow(i, []float64{d.X, d.Y, d.Z})
	}

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDFullV) {
		return Frame{}, fmt.Errorf("%w: plane fit did not converge", dynamo.ErrSingularFit)
	}
	sv := svd.Values(nil)
	if len(sv) < 2 || sv[0] == 0 || sv[1] <= 1e-10*sv[0] {
		return Frame{}, fmt.Errorf("%w: points are collinear", dynamo.ErrSingularFit)
	}

	var v mat.Dense
	svd.VTo(&v)
	n := r3.Vec{X: v.At(0, 2), Y: v.At(1, 2), Z: v.At(2, 2)}
	if r3.Dot(n, hint) < 0 {
		n = r3.Scale(-1, n)
	}
	return FrameFromNormal(origin, n)
}
