package integrators

import (
	"github.com/san-kum/meshftle/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(f dynamo.Field, x r3.Vec, t, dt float64) (r3.Vec, error) {
	v, err := f.Velocity(t, x)
	if err != nil {
		return x, err
	}
	return r3.Add(x, r3.Scale(dt, v)), nil
}
