package ftle

import (
	"context"
	"time"

	"github.com/san-kum/meshftle/internal/dynamo"
	"github.com/san-kum/meshftle/internal/mesh"
)

// RunInfo describes a computation for the collaborators that store or
// display it.
type RunInfo struct {
	ID           string    `json:"id"`
	Model        string    `json:"model"`
	CreatedAt    time.Time `json:"created_at"`
	Particles    int       `json:"particles"`
	Nodes        int       `json:"nodes"`
	Steps        int       `json:"steps"`
	Initial      int       `json:"initial"`
	Final        int       `json:"final"`
	InitialTime  float64   `json:"initial_time"`
	FinalTime    float64   `json:"final_time"`
	Neighborhood int       `json:"neighborhood"`
	SubSteps     int       `json:"substeps"`
	Integrator   string    `json:"integrator"`
	Scheme       string    `json:"scheme"`
	Mode         string    `json:"mode"`
	Policy       string    `json:"policy"`
}

func NewRunInfo(model string, series *mesh.Series, particles int, w dynamo.Window, opts Options) RunInfo {
	opts = opts.withDefaults()
	now := time.Now()
	return RunInfo{
		ID:           model + "_" + now.Format("20060102_150405"),
		Model:        model,
		CreatedAt:    now,
		Particles:    particles,
		Nodes:        series.NodeCount(),
		Steps:        series.Len(),
		Initial:      w.Initial,
		Final:        w.Final,
		InitialTime:  series.Time(w.Initial),
		FinalTime:    series.Time(w.Final),
		Neighborhood: opts.Neighborhood,
		SubSteps:     opts.SubSteps,
		Integrator:   opts.Integrator,
		Scheme:       string(opts.Scheme),
		Mode:         string(opts.Mode),
		Policy:       string(opts.Policy),
	}
}

// Sink receives finished results. Storage and plotting live behind it.
type Sink interface {
	Consume(ctx context.Context, info RunInfo, res *Result) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, info RunInfo, res *Result) error

func (f SinkFunc) Consume(ctx context.Context, info RunInfo, res *Result) error {
	return f(ctx, info, res)
}

// Sinks fans a result out to several sinks, stopping at the first error.
type Sinks []Sink

func (s Sinks) Consume(ctx context.Context, info RunInfo, res *Result) error {
	for _, sk := range s {
		if err := sk.Consume(ctx, info, res); err != nil {
			return err
		}
	}
	return nil
}
