// Package flow estimates the velocity field between sampled snapshots.
package flow

import (
	"fmt"
	"math"

	"github.com/san-kum/meshftle/internal/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

type Scheme string

const (
	// Nearest takes the velocity of the closest tracked node.
	Nearest Scheme = "nearest"
	// IDW blends the closest nodes by inverse squared distance.
	IDW Scheme = "idw"
	// Barycentric blends the vertices of the containing triangle and
	// falls back to IDW off the mesh.
	Barycentric Scheme = "barycentric"
)

const (
	DefaultNeighbors = 4
	DefaultPower     = 2.0

	// Locations closer than this to a node take that node's velocity.
	snapTol = 1e-12
)

func ParseScheme(name string) (Scheme, error) {
	switch s := Scheme(name); s {
	case Nearest, IDW, Barycentric:
		return s, nil
	case "":
		return IDW, nil
	default:
		return "", fmt.Errorf("unknown interpolation scheme: %s", name)
	}
}

// Interpolator returns velocities at arbitrary times and locations. It reads
// the series only and is safe for concurrent use.
type Interpolator struct {
	series    *mesh.Series
	scheme    Scheme
	neighbors int
	power     float64
}

type Option func(*Interpolator)

func WithScheme(s Scheme) Option { return func(in *Interpolator) { in.scheme = s } }

func WithNeighbors(n int) Option {
	return func(in *Interpolator) {
		if n > 0 {
			in.neighbors = n
		}
	}
}

func WithPower(p float64) Option {
	return func(in *Interpolator) {
		if p > 0 {
			in.power = p
		}
	}
}

func New(series *mesh.Series, opts ...Option) *Interpolator {
	in := &Interpolator{
		series:    series,
		scheme:    IDW,
		neighbors: DefaultNeighbors,
		power:     DefaultPower,
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

func (in *Interpolator) Scheme() Scheme { return in.scheme }

// Velocity blends the spatial estimates of the two snapshots bracketing t
// linearly in time. It fails with dynamo.ErrOutOfRange outside the series span.
func (in *Interpolator) Velocity(t float64, x r3.Vec) (r3.Vec, error) {
	k0, k1, frac, err := in.series.Bracket(t)
	if err != nil {
		return r3.Vec{}, err
	}

	v0 := in.VelocityAtStep(k0, x)
	if k0 == k1 || frac == 0 {
		return v0, nil
	}
	v1 := in.VelocityAtStep(k1, x)
	return r3.Add(r3.Scale(1-frac, v0), r3.Scale(frac, v1)), nil
}

// VelocityAtStep estimates the velocity at x from snapshot k alone.
func (in *Interpolator) VelocityAtStep(k int, x r3.Vec) r3.Vec {
	switch in.scheme {
	case Nearest:
		nd, ok := in.series.Nearest(k, x)
		if !ok {
			return r3.Vec{}
		}
		return in.series.Velocity(k, nd.Index)
	case Barycentric:
		if loc, ok := in.series.Locate(k, x, in.neighbors); ok {
			var v r3.Vec
			for i, n := range loc.Nodes {
				v = r3.Add(v, r3.Scale(loc.Weights[i], in.series.Velocity(k, n)))
			}
			return v
		}
		return in.idw(k, x)
	default:
		return in.idw(k, x)
	}
}

func (in *Interpolator) idw(k int, x r3.Vec) r3.Vec {
	nodes := in.series.NearestNodes(k, x, in.neighbors)
	if len(nodes) == 0 {
		return r3.Vec{}
	}
	if nodes[0].Dist <= snapTol {
		return in.series.Velocity(k, nodes[0].Index)
	}

	var (
		v    r3.Vec
		wsum float64
	)
	for _, nd := range nodes {
		w := 1 / math.Pow(nd.Dist, in.power)
		v = r3.Add(v, r3.Scale(w, in.series.Velocity(k, nd.Index)))
		wsum += w
	}
	return r3.Scale(1/wsum, v)
}
