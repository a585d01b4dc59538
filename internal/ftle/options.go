package ftle

import (
	"fmt"
	"log/slog"

	"github.com/san-kum/meshftle/internal/dynamo"
	"github.com/san-kum/meshftle/internal/flow"
	"github.com/san-kum/meshftle/internal/integrators"
	"github.com/san-kum/meshftle/internal/neighborhood"
	"github.com/san-kum/meshftle/internal/strain"
	"github.com/san-kum/meshftle/internal/trajectory"
)

// FailurePolicy decides what a per-particle geometric failure does to the batch.
type FailurePolicy string

const (
	// MarkInvalid records the failure and NaN values and carries on.
	MarkInvalid FailurePolicy = "mark"
	// Abort fails the whole computation on the lowest failing particle.
	Abort FailurePolicy = "abort"
)

func ParsePolicy(name string) (FailurePolicy, error) {
	switch p := FailurePolicy(name); p {
	case MarkInvalid, Abort:
		return p, nil
	case "":
		return MarkInvalid, nil
	default:
		return "", fmt.Errorf("unknown failure policy: %s", name)
	}
}

const DefaultNeighborhood = 10

type Options struct {
	// Neighborhood is the number of neighbors used per particle (≥ 3).
	Neighborhood int
	// SubSteps splits each sampled interval for advection.
	SubSteps   int
	Integrator string
	Scheme     flow.Scheme
	// InterpNeighbors is the node count blended by the idw scheme.
	InterpNeighbors int
	Mode            trajectory.Mode
	Policy          FailurePolicy
	Workers         int

	CollinearTol float64
	SingularTol  float64

	// Progress, when set, is called after each particle of each direction.
	// It is called from several goroutines at once.
	Progress func(dir dynamo.Direction, done, total int)
	Logger   *slog.Logger
}

func DefaultOptions() Options {
	return Options{
		Neighborhood:    DefaultNeighborhood,
		SubSteps:        1,
		Integrator:      integrators.Default,
		Scheme:          flow.IDW,
		InterpNeighbors: flow.DefaultNeighbors,
		Mode:            trajectory.Advect,
		Policy:          MarkInvalid,
		CollinearTol:    neighborhood.DefaultCollinearTol,
		SingularTol:     strain.DefaultSingularTol,
	}
}

// withDefaults fills zero values. Neighborhood is left alone: a size below
// three is a per-particle failure, not a configuration error.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.SubSteps < 1 {
		o.SubSteps = d.SubSteps
	}
	if o.Integrator == "" {
		o.Integrator = d.Integrator
	}
	if o.Scheme == "" {
		o.Scheme = d.Scheme
	}
	if o.InterpNeighbors < 1 {
		o.InterpNeighbors = d.InterpNeighbors
	}
	if o.Mode == "" {
		o.Mode = d.Mode
	}
	if o.Policy == "" {
		o.Policy = d.Policy
	}
	if o.Workers < 1 {
		o.Workers = dynamo.DefaultWorkers()
	}
	if o.CollinearTol <= 0 {
		o.CollinearTol = d.CollinearTol
	}
	if o.SingularTol <= 0 {
		o.SingularTol = d.SingularTol
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

func (o Options) validate() error {
	if _, err := flow.ParseScheme(string(o.Scheme)); err != nil {
		return err
	}
	if _, err := trajectory.ParseMode(string(o.Mode)); err != nil {
		return err
	}
	if _, err := ParsePolicy(string(o.Policy)); err != nil {
		return err
	}
	return nil
}
