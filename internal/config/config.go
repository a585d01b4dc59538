package config

import (
	"fmt"
	"os"

	"github.com/san-kum/meshftle/internal/dynamo"
	"github.com/san-kum/meshftle/internal/flow"
	"github.com/san-kum/meshftle/internal/ftle"
	"github.com/san-kum/meshftle/internal/mesh"
	"github.com/san-kum/meshftle/internal/models"
	"github.com/san-kum/meshftle/internal/trajectory"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"
)

const (
	DefaultModel    = "growing_sphere"
	DefaultSteps    = 23
	DefaultDt       = 0.1
	DefaultFinal    = 22
	DefaultSeeds    = "nodes"
	DefaultSubSteps = 1
)

type Config struct {
	Model   string  `yaml:"model"`
	Dataset string  `yaml:"dataset,omitempty"`
	Steps   int     `yaml:"steps"`
	Dt      float64 `yaml:"dt"`
	Initial int     `yaml:"initial"`
	Final   int     `yaml:"final"`
	// Seeds is where particles start: "nodes" or "centroids" of the initial step.
	Seeds        string        `yaml:"seeds"`
	Neighborhood int           `yaml:"neighborhood"`
	SubSteps     int           `yaml:"substeps"`
	Integrator   string        `yaml:"integrator"`
	Scheme       string        `yaml:"scheme"`
	Mode         string        `yaml:"mode"`
	Policy       string        `yaml:"policy"`
	Workers      int           `yaml:"workers"`
	Params       models.Params `yaml:"params"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:        DefaultModel,
		Steps:        DefaultSteps,
		Dt:           DefaultDt,
		Initial:      0,
		Final:        DefaultFinal,
		Seeds:        DefaultSeeds,
		Neighborhood: ftle.DefaultNeighborhood,
		SubSteps:     DefaultSubSteps,
		Integrator:   "rk4",
		Scheme:       string(flow.IDW),
		Mode:         string(trajectory.Advect),
		Policy:       string(ftle.MarkInvalid),
		Params:       models.DefaultParams(),
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Window() dynamo.Window {
	return dynamo.Window{Initial: c.Initial, Final: c.Final}
}

// Options translates the configuration into engine options.
func (c *Config) Options() (ftle.Options, error) {
	opts := ftle.DefaultOptions()
	scheme, err := flow.ParseScheme(c.Scheme)
	if err != nil {
		return opts, err
	}
	mode, err := trajectory.ParseMode(c.Mode)
	if err != nil {
		return opts, err
	}
	policy, err := ftle.ParsePolicy(c.Policy)
	if err != nil {
		return opts, err
	}

	opts.Neighborhood = c.Neighborhood
	opts.SubSteps = c.SubSteps
	opts.Integrator = c.Integrator
	opts.Scheme = scheme
	opts.Mode = mode
	opts.Policy = policy
	opts.Workers = c.Workers
	return opts, nil
}

// Surface builds the synthetic model named by Model.
func (c *Config) Surface() (models.Surface, error) {
	return models.New(c.Model, c.Params)
}

// SeedPoints places particles on the initial step of s.
func (c *Config) SeedPoints(s *mesh.Series) ([]r3.Vec, error) {
	k := c.Initial
	if k < 0 || k >= s.Len() {
		return nil, fmt.Errorf("%w: initial step %d of %d", dynamo.ErrRange, k, s.Len())
	}
	switch c.Seeds {
	case "nodes", "":
		return models.NodeSeeds(s, k), nil
	case "centroids":
		return models.CentroidSeeds(s, k), nil
	default:
		return nil, fmt.Errorf("unknown seed placement: %s", c.Seeds)
	}
}

func (c *Config) Validate() error {
	if c.Dataset == "" {
		if c.Steps < 2 {
			return fmt.Errorf("steps must be at least 2, got %d", c.Steps)
		}
		if c.Dt <= 0 {
			return fmt.Errorf("dt must be positive, got %g", c.Dt)
		}
	}
	if c.SubSteps < 1 {
		return fmt.Errorf("substeps must be at least 1, got %d", c.SubSteps)
	}
	switch c.Seeds {
	case "nodes", "centroids", "":
	default:
		return fmt.Errorf("unknown seed placement: %s", c.Seeds)
	}
	_, err := c.Options()
	return err
}
