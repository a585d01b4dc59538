package strain

import (
	"fmt"

	"github.com/san-kum/meshftle/internal/dynamo"
	"github.com/san-kum/meshftle/internal/mesh"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultSingularTol bounds σmin/σmax of the reference offset matrix.
const DefaultSingularTol = 1e-8

// Mat2 is a row-major 2×2 matrix.
type Mat2 [2][2]float64

func Identity() Mat2 { return Mat2{{1, 0}, {0, 1}} }

// Configuration is a particle and its neighbors at one snapshot, with the
// tangent frame the offsets are measured in. Frame.Origin is the particle.
type Configuration struct {
	Frame  mesh.Frame
	Points []r3.Vec
}

// EstimateGradient fits J minimising Σ|J·xᵢ − yᵢ|², where xᵢ and yᵢ are the
// in-plane offsets of neighbor i from the particle in from and to.
func EstimateGradient(from, to Configuration, tol float64) (Mat2, error) {
	k := len(from.Points)
	if k != len(to.Points) {
		return Mat2{}, fmt.Errorf("%w: %d reference points but %d target points", dynamo.ErrSingularFit, k, len(to.Points))
	}
	if k < 2 {
		return Mat2{}, fmt.Errorf("%w: %d points cannot determine a 2×2 map", dynamo.ErrSingularFit, k)
	}
	if tol <= 0 {
		tol = DefaultSingularTol
	}

	a := mat.NewDense(k, 2, nil)
	b := mat.NewDense(k, 2, nil)
	for i := 0; i < k; i++ {
		x := from.Frame.Project(from.Points[i])
		y := to.Frame.Project(to.Points[i])
		a.SetRow(i, x[:])
		b.SetRow(i, y[:])
	}

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDNone) {
		return Mat2{}, fmt.Errorf("%w: SVD of reference offsets failed", dynamo.ErrSingularFit)
	}
	sv := svd.Values(nil)
	if sv[0] == 0 || sv[1] < tol*sv[0] {
		return Mat2{}, fmt.Errorf("%w: reference offsets ill-conditioned (σ = %.3g, %.3g)", dynamo.ErrSingularFit, sv[0], sv[1])
	}

	// a·Jᵀ ≈ b
	var jt mat.Dense
	if err := jt.Solve(a, b); err != nil {
		return Mat2{}, fmt.Errorf("%w: %v", dynamo.ErrSingularFit, err)
	}

	return Mat2{
		{jt.At(0, 0), jt.At(1, 0)},
		{jt.At(0, 1), jt.At(1, 1)},
	}, nil
}
