// Package neighborhood selects the tracked points whose relative motion
// probes the local deformation around each particle.
package neighborhood

import (
	"fmt"

	"github.com/san-kum/meshftle/internal/dynamo"
	"github.com/san-kum/meshftle/internal/mesh"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// MinSize is the smallest neighborhood that can span a plane.
	MinSize = 3

	DefaultCollinearTol = 1e-8
)

// Neighborhood lists, for one particle, the indices of the other particles
// used as deformation probes, nearest first.
type Neighborhood struct {
	Particle int
	Indices  []int
	Err      error
}

type Builder struct {
	// Size is the requested number of neighbors.
	Size int
	// CollinearTol bounds the ratio of the second to the first singular value
	// of the centered neighbor coordinates.
	CollinearTol float64
	Workers      int
}

// Build selects Size nearest other points for every point, by Euclidean
// distance with ties broken by ascending index. A neighborhood that cannot
// support a plane fit carries dynamo.ErrDegenerateNeighborhood in Err.
func (b Builder) Build(points []r3.Vec) []Neighborhood {
	out := make([]Neighborhood, len(points))
	tol := b.CollinearTol
	if tol <= 0 {
		tol = DefaultCollinearTol
	}

	if b.Size < MinSize {
		for i := range out {
			out[i] = Neighborhood{
				Particle: i,
				Err:      fmt.Errorf("%w: neighborhood size %d below %d", dynamo.ErrDegenerateNeighborhood, b.Size, MinSize),
			}
		}
		return out
	}

	index := mesh.NewPointIndex(points)
	dynamo.ParallelFor(len(points), 16, b.Workers, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			out[i] = b.build(index, points, i, tol)
		}
	})
	return out
}

func (b Builder) build(index *mesh.PointIndex, points []r3.Vec, i int, tol float64) Neighborhood {
	nb := Neighborhood{Particle: i}

	// One extra so the particle itself can be dropped.
	found := index.Nearest(points[i], b.Size+1)
	nb.Indices = make([]int, 0, b.Size)
	for _, nd := range found {
		if nd.Index == i {
			continue
		}
		if len(nb.Indices) == b.Size {
			break
		}
		nb.Indices = append(nb.Indices, nd.Index)
	}

	if len(nb.Indices) < MinSize {
		nb.Err = fmt.Errorf("%w: only %d candidates", dynamo.ErrDegenerateNeighborhood, len(nb.Indices))
		return nb
	}
	if collinear(points, nb.Indices, tol) {
		nb.Err = fmt.Errorf("%w: candidates are collinear", dynamo.ErrDegenerateNeighborhood)
	}
	return nb
}

// collinear reports whether the centered coordinates of the selected points
// lack a second direction of spread.
func collinear(points []r3.Vec, idx []int, tol float64) bool {
	var mean r3.Vec
	for _, j := range idx {
		mean = r3.Add(mean, points[j])
	}
	mean = r3.Scale(1/float64(len(idx)), mean)

	a := mat.NewDense(len(idx), 3, nil)
	for row, j := range idx {
		d := r3.Sub(points[j], mean)
		a.SetRow(row, []float64{d.X, d.Y, d.Z})
	}

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDNone) {
		return true
	}
	sv := svd.Values(nil)
	return sv[0] == 0 || sv[1] <= tol*sv[0]
}
