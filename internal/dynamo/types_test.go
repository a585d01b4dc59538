package dynamo

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestWindow_Validate(t *testing.T) {
	tests := []struct {
		name string
		w    Window
		ok   bool
	}{
		{"valid", Window{0, 3}, true},
		{"full span", Window{0, 4}, true},
		{"equal", Window{2, 2}, false},
		{"reversed", Window{3, 1}, false},
		{"negative", Window{-1, 2}, false},
		{"past end", Window{0, 5}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.w.Validate(5)
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrRange) {
				t.Errorf("expected ErrRange, got %v", err)
			}
		})
	}
}

func TestWindow_Endpoints(t *testing.T) {
	w := Window{Initial: 1, Final: 4}

	s, e := w.Endpoints(Forward)
	if s != 1 || e != 4 {
		t.Errorf("forward endpoints = (%d, %d), want (1, 4)", s, e)
	}

	s, e = w.Endpoints(Backward)
	if s != 4 || e != 1 {
		t.Errorf("backward endpoints = (%d, %d), want (4, 1)", s, e)
	}
}

func TestIsFinite(t *testing.T) {
	if !IsFinite(r3.Vec{X: 1, Y: 2, Z: 3}) {
		t.Error("expected finite vector")
	}
	if IsFinite(r3.Vec{X: math.NaN()}) {
		t.Error("NaN should not be finite")
	}
	if IsFinite(r3.Vec{Z: math.Inf(-1)}) {
		t.Error("-Inf should not be finite")
	}
}

func TestParticleError_Unwrap(t *testing.T) {
	err := &ParticleError{Index: 7, Direction: Backward, Wrapped: ErrSingularFit}

	if !errors.Is(err, ErrSingularFit) {
		t.Error("expected errors.Is to see ErrSingularFit")
	}
	if !IsPerParticle(err) {
		t.Error("singular fit should be a per-particle failure")
	}
	if IsPerParticle(ErrRange) {
		t.Error("range errors are structural")
	}
	if err.Error() != "particle 7 (backward): dynamo: singular deformation fit" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestParallelFor_VisitsEachIndexOnce(t *testing.T) {
	for _, n := range []int{0, 1, 7, 100, 1001} {
		hits := make([]int, n)
		ParallelFor(n, 4, 8, func(start, end int) {
			for i := start; i < end; i++ {
				hits[i]++
			}
		})
		for i, h := range hits {
			if h != 1 {
				t.Fatalf("n=%d: index %d visited %d times", n, i, h)
			}
		}
	}
}
