package mesh

import (
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/meshftle/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

type Triangle [3]int

// Snapshot is the mesh state at one sampled time.
type Snapshot struct {
	Triangles  []Triangle
	Positions  []r3.Vec
	Velocities []r3.Vec
}

func (s Snapshot) clone() Snapshot {
	return Snapshot{
		Triangles:  append([]Triangle(nil), s.Triangles...),
		Positions:  append([]r3.Vec(nil), s.Positions...),
		Velocities: append([]r3.Vec(nil), s.Velocities...),
	}
}

// Series is an immutable sequence of snapshots and their physical times.
type Series struct {
	snapshots []Snapshot
	times     []float64
	nodes     int
	index     []*PointIndex
	incident  [][][]int
}

// NewSeries validates and copies the snapshots. declared is the number of
// time samples the producer claims to have written.
func NewSeries(snapshots []Snapshot, times []float64, declared int) (*Series, error) {
	if declared < 1 {
		return nil, fmt.Errorf("%w: declared %d time samples", dynamo.ErrDataIntegrity, declared)
	}
	if len(snapshots) != declared {
		return nil, fmt.Errorf("%w: %d snapshots for %d declared time samples", dynamo.ErrDataIntegrity, len(snapshots), declared)
	}
	if len(times) != declared {
		return nil, fmt.Errorf("%w: %d time values for %d declared time samples", dynamo.ErrDataIntegrity, len(times), declared)
	}

	for k, t := range times {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil, fmt.Errorf("%w: time value %d is not finite", dynamo.ErrDataIntegrity, k)
		}
		if k > 0 && t <= times[k-1] {
			return nil, fmt.Errorf("%w: time values not strictly increasing at step %d (%g <= %g)", dynamo.ErrDataIntegrity, k, t, times[k-1])
		}
	}

	nodes := len(snapshots[0].Positions)
	for k, snap := range snapshots {
		if err := validateSnapshot(snap, nodes); err != nil {
			return nil, fmt.Errorf("%w: step %d: %v", dynamo.ErrDataIntegrity, k, err)
		}
	}

	s := &Series{
		snapshots: make([]Snapshot, declared),
		times:     append([]float64(nil), times...),
		nodes:     nodes,
		index:     make([]*PointIndex, declared),
		incident:  make([][][]int, declared),
	}
	for k, snap := range snapshots {
		s.snapshots[k] = snap.clone()
		s.index[k] = NewPointIndex(s.snapshots[k].Positions)
		s.incident[k] = buildIncidence(s.snapshots[k].Triangles, nodes)
	}

	return s, nil
}

func validateSnapshot(snap Snapshot, nodes int) error {
	if len(snap.Positions) != nodes {
		return fmt.Errorf("node count %d differs from initial node count %d", len(snap.Positions), nodes)
	}
	if len(snap.Velocities) != len(snap.Positions) {
		return fmt.Errorf("%d velocities for %d positions", len(snap.Velocities), len(snap.Positions))
	}
	for i, p := range snap.Positions {
		if !dynamo.IsFinite(p) {
			return fmt.Errorf("position %d is not finite", i)
		}
	}
	for i, v := range snap.Velocities {
		if !dynamo.IsFinite(v) {
			return fmt.Errorf("velocity %d is not finite", i)
		}
	}
	for j, tri := range snap.Triangles {
		for _, idx := range tri {
			if idx < 0 || idx >= nodes {
				return fmt.Errorf("triangle %d references node %d, node count is %d", j, idx, nodes)
			}
		}
		if tri[0] == tri[1] || tri[1] == tri[2] || tri[0] == tri[2] {
			return fmt.Errorf("triangle %d repeats a node: %v", j, tri)
		}
	}
	return nil
}

func buildIncidence(tris []Triangle, nodes int) [][]int {
	inc := make([][]int, nodes)
	for j, tri := range tris {
		for _, idx := range tri {
			inc[idx] = append(inc[idx], j)
		}
	}
	return inc
}

// FromArrays builds a series from the raw nested arrays a loader produces.
// The declared sample count is len(times).
func FromArrays(triangles [][][3]int, positions, velocities [][][3]float64, times []float64) (*Series, error) {
	n := len(times)
	if len(triangles) != n || len(positions) != n || len(velocities) != n {
		return nil, fmt.Errorf("%w: %d triangle sets, %d position sets, %d velocity sets for %d time values",
			dynamo.ErrDataIntegrity, len(triangles), len(positions), len(velocities), n)
	}

	snaps := make([]Snapshot, n)
	for k := 0; k < n; k++ {
		snap := Snapshot{
			Triangles:  make([]Triangle, len(triangles[k])),
			Positions:  make([]r3.Vec, len(positions[k])),
			Velocities: make([]r3.Vec, len(velocities[k])),
		}
		for j, tri := range triangles[k] {
			snap.Triangles[j] = Triangle(tri)
		}
		for i, p := range positions[k] {
			snap.Positions[i] = r3.Vec{X: p[0], Y: p[1], Z: p[2]}
		}
		for i, v := range velocities[k] {
			snap.Velocities[i] = r3.Vec{X: v[0], Y: v[1], Z: v[2]}
		}
		snaps[k] = snap
	}

	return NewSeries(snaps, times, n)
}

func (s *Series) Len() int       { return len(s.snapshots) }
func (s *Series) NodeCount() int { return s.nodes }

func (s *Series) Time(k int) float64 { return s.times[k] }

// Times returns a copy of the sampled time values.
func (s *Series) Times() []float64 {
	return append([]float64(nil), s.times...)
}

// Span returns the first and last sampled time.
func (s *Series) Span() (float64, float64) {
	return s.times[0], s.times[len(s.times)-1]
}

func (s *Series) Position(k, i int) r3.Vec { return s.snapshots[k].Positions[i] }
func (s *Series) Velocity(k, i int) r3.Vec { return s.snapshots[k].Velocities[i] }

// Positions returns a copy of the node positions at step k.
func (s *Series) Positions(k int) []r3.Vec {
	return append([]r3.Vec(nil), s.snapshots[k].Positions...)
}

// Triangles returns a copy of the connectivity at step k.
func (s *Series) Triangles(k int) []Triangle {
	return append([]Triangle(nil), s.snapshots[k].Triangles...)
}

// Bracket locates t between two sampled times. It returns the bracketing
// steps k0 <= k1 and the fraction of the way from times[k0] to times[k1].
// Times within a tiny tolerance of the span are clamped onto it.
func (s *Series) Bracket(t float64) (k0, k1 int, frac float64, err error) {
	first, last := s.Span()
	tol := 1e-12 * math.Max(last-first, 1)
	if math.IsNaN(t) || t < first-tol || t > last+tol {
		return 0, 0, 0, fmt.Errorf("%w: t=%g outside [%g, %g]", dynamo.ErrOutOfRange, t, first, last)
	}
	if len(s.times) == 1 || t <= first {
		return 0, 0, 0, nil
	}
	if t >= last {
		n := len(s.times) - 1
		return n, n, 0, nil
	}

	// first index with times[k] > t
	k1 = sort.Search(len(s.times), func(i int) bool { return s.times[i] > t })
	k0 = k1 - 1
	frac = (t - s.times[k0]) / (s.times[k1] - s.times[k0])
	return k0, k1, frac, nil
}
