package integrators

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/meshftle/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

// rotation is solid-body rotation about z with unit angular speed.
type rotation struct{}

func (rotation) Velocity(t float64, x r3.Vec) (r3.Vec, error) {
	return r3.Vec{X: -x.Y, Y: x.X}, nil
}

// bounded fails outside [0, 1] like a sampled series would.
type bounded struct{}

func (bounded) Velocity(t float64, x r3.Vec) (r3.Vec, error) {
	if t < 0 || t > 1 {
		return r3.Vec{}, dynamo.ErrOutOfRange
	}
	return r3.Vec{X: 1}, nil
}

func integrate(t *testing.T, integ dynamo.Integrator, steps int, dt float64) r3.Vec {
	t.Helper()
	x := r3.Vec{X: 1}
	for i := 0; i < steps; i++ {
		var err error
		x, err = integ.Step(rotation{}, x, float64(i)*dt, dt)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	return x
}

func TestRK4Accuracy(t *testing.T) {
	x := integrate(t, NewRK4(), 100, 0.01)

	if math.Abs(x.X-math.Cos(1)) > 1e-8 {
		t.Errorf("x error too large: got %.10f, expected %.10f", x.X, math.Cos(1))
	}
	if math.Abs(x.Y-math.Sin(1)) > 1e-8 {
		t.Errorf("y error too large: got %.10f, expected %.10f", x.Y, math.Sin(1))
	}
}

func TestIntegratorOrder(t *testing.T) {
	errFor := func(integ dynamo.Integrator) float64 {
		x := integrate(t, integ, 100, 0.01)
		return math.Hypot(x.X-math.Cos(1), x.Y-math.Sin(1))
	}

	euler, heun, rk4 := errFor(NewEuler()), errFor(NewHeun()), errFor(NewRK4())
	if !(rk4 < heun && heun < euler) {
		t.Errorf("expected rk4 < heun < euler, got %.3e, %.3e, %.3e", rk4, heun, euler)
	}
}

func TestBackwardStepRetracesForward(t *testing.T) {
	integ := NewRK4()
	x0 := r3.Vec{X: 0.3, Y: -0.7, Z: 2}

	x1, err := integ.Step(rotation{}, x0, 0, 0.1)
	if err != nil {
		t.Fatal(err)
	}
	back, err := integ.Step(rotation{}, x1, 0.1, -0.1)
	if err != nil {
		t.Fatal(err)
	}

	if d := r3.Norm(r3.Sub(back, x0)); d > 1e-6 {
		t.Errorf("backward step missed start by %.3e", d)
	}
	if back.Z != 2 {
		t.Errorf("z drifted to %f", back.Z)
	}
}

func TestStepPropagatesFieldError(t *testing.T) {
	for _, name := range Names() {
		integ, err := New(name)
		if err != nil {
			t.Fatal(err)
		}
		x := r3.Vec{X: 5}
		got, err := integ.Step(bounded{}, x, 1.05, 0.1)
		if !errors.Is(err, dynamo.ErrOutOfRange) {
			t.Errorf("%s: expected ErrOutOfRange, got %v", name, err)
		}
		if got != x {
			t.Errorf("%s: position changed on error", name)
		}
	}
}

func TestNew(t *testing.T) {
	integ, err := New("")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := integ.(*RK4); !ok {
		t.Errorf("default integrator is %T, want *RK4", integ)
	}
	if _, err := New("verlet"); err == nil {
		t.Error("expected unknown integrator error")
	}
}
