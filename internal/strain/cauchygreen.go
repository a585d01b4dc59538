package strain

import (
	"fmt"
	"math"

	"github.com/san-kum/meshftle/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// ZeroTol is the largest eigenvalue below which C is treated as zero.
const ZeroTol = 1e-14

// CauchyGreen is the strain analysis of one particle for one direction.
type CauchyGreen struct {
	J       Mat2
	C       Mat2
	Lambda1 float64
	Lambda2 float64
	// V1 and V2 are the unit eigenvectors of Lambda1 and Lambda2.
	V1       [2]float64
	V2       [2]float64
	FTLE     float64
	Isotropy float64
}

// Invalid is the value recorded for a particle whose analysis failed.
func Invalid() CauchyGreen {
	nan := math.NaN()
	return CauchyGreen{
		J:        Mat2{{nan, nan}, {nan, nan}},
		C:        Mat2{{nan, nan}, {nan, nan}},
		Lambda1:  nan,
		Lambda2:  nan,
		V1:       [2]float64{nan, nan},
		V2:       [2]float64{nan, nan},
		FTLE:     nan,
		Isotropy: nan,
	}
}

// Analyze forms C = JᵀJ over an interval of length |dt| and derives its
// eigen-decomposition, FTLE and isotropy. Isotropy is NaN when λ2 is
// numerically zero.
func Analyze(j Mat2, dt float64) (CauchyGreen, error) {
	dt = math.Abs(dt)
	if dt == 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return CauchyGreen{}, fmt.Errorf("%w: interval length %g", dynamo.ErrRange, dt)
	}

	var c Mat2
	for r := 0; r < 2; r++ {
		for s := 0; s < 2; s++ {
			c[r][s] = j[0][r]*j[0][s] + j[1][r]*j[1][s]
		}
	}
	if math.IsNaN(c[0][0]+c[0][1]+c[1][1]) || math.IsInf(c[0][0]+c[1][1], 0) {
		return CauchyGreen{}, fmt.Errorf("%w: non-finite deformation gradient", dynamo.ErrSingularFit)
	}

	sym := mat.NewSymDense(2, []float64{c[0][0], c[0][1], c[0][1], c[1][1]})
	var es mat.EigenSym
	if !es.Factorize(sym, true) {
		return CauchyGreen{}, fmt.Errorf("%w: eigen-decomposition of C failed", dynamo.ErrSingularFit)
	}
	vals := es.Values(nil)
	var vecs mat.Dense
	es.VectorsTo(&vecs)

	res := CauchyGreen{
		J:       j,
		C:       c,
		Lambda1: math.Max(vals[0], 0),
		Lambda2: math.Max(vals[1], 0),
		V1:      [2]float64{vecs.At(0, 0), vecs.At(1, 0)},
		V2:      [2]float64{vecs.At(0, 1), vecs.At(1, 1)},
	}
	res.FTLE = math.Log(math.Sqrt(res.Lambda2)) / dt
	if res.Lambda2 < ZeroTol {
		res.Isotropy = math.NaN()
	} else {
		res.Isotropy = math.Sqrt(res.Lambda1 / res.Lambda2)
	}
	return res, nil
}
