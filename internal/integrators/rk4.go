package integrators

import (
	"github.com/san-kum/meshftle/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

type RK4 struct{}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) Step(f dynamo.Field, x r3.Vec, t, dt float64) (r3.Vec, error) {
	k1, err := f.Velocity(t, x)
	if err != nil {
		return x, err
	}
	k2, err := f.Velocity(t+dt*0.5, r3.Add(x, r3.Scale(dt*0.5, k1)))
	if err != nil {
		return x, err
	}
	k3, err := f.Velocity(t+dt*0.5, r3.Add(x, r3.Scale(dt*0.5, k2)))
	if err != nil {
		return x, err
	}
	k4, err := f.Velocity(t+dt, r3.Add(x, r3.Scale(dt, k3)))
	if err != nil {
		return x, err
	}

	sum := r3.Add(r3.Add(k1, r3.Scale(2, k2)), r3.Add(r3.Scale(2, k3), k4))
	return r3.Add(x, r3.Scale(dt/6.0, sum)), nil
}
