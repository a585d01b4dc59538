package integrators

import (
	"github.com/san-kum/meshftle/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

// Heun is the explicit trapezoidal (RK2) method.
type Heun struct{}

func NewHeun() *Heun {
	return &Heun{}
}

func (h *Heun) Step(f dynamo.Field, x r3.Vec, t, dt float64) (r3.Vec, error) {
	k1, err := f.Velocity(t, x)
	if err != nil {
		return x, err
	}
	k2, err := f.Velocity(t+dt, r3.Add(x, r3.Scale(dt, k1)))
	if err != nil {
		return x, err
	}
	return r3.Add(x, r3.Scale(dt/2, r3.Add(k1, k2))), nil
}
