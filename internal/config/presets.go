package config

import "sort"

func preset(model string, steps int, dt float64, tweak func(*Config)) *Config {
	cfg := DefaultConfig()
	cfg.Model = model
	cfg.Steps = steps
	cfg.Dt = dt
	cfg.Final = steps - 1
	if tweak != nil {
		tweak(cfg)
	}
	return cfg
}

var Presets = map[string]map[string]*Config{
	"growing_sphere": {
		"default": preset("growing_sphere", 23, 0.1, nil),
		"fast": preset("growing_sphere", 23, 0.1, func(c *Config) {
			c.Params.Rate = 1.5
		}),
		"fine": preset("growing_sphere", 23, 0.1, func(c *Config) {
			c.Params.Subdivisions = 3
			c.Neighborhood = 12
		}),
	},
	"rotating_sphere": {
		"slow": preset("rotating_sphere", 21, 0.1, func(c *Config) {
			c.Params.Omega = 0.5
		}),
		"fast": preset("rotating_sphere", 41, 0.05, func(c *Config) {
			c.Params.Omega = 3
			c.SubSteps = 4
		}),
	},
	"differential_sphere": {
		"default": preset("differential_sphere", 31, 0.1, func(c *Config) {
			c.Scheme = "barycentric"
			c.SubSteps = 2
		}),
		"strong": preset("differential_sphere", 31, 0.1, func(c *Config) {
			c.Params.Shear = 2
			c.Scheme = "barycentric"
			c.SubSteps = 4
		}),
		"carried": preset("differential_sphere", 31, 0.1, func(c *Config) {
			c.Mode = "lagrangian"
		}),
	},
	"planar_stretch": {
		"saddle": preset("planar_stretch", 11, 0.1, func(c *Config) {
			c.Mode = "lagrangian"
		}),
		"isotropic": preset("planar_stretch", 11, 0.1, func(c *Config) {
			c.Params.Alpha = 0.3
			c.Params.Beta = 0.3
			c.Mode = "lagrangian"
		}),
	},
	"planar_shear": {
		"simple": preset("planar_shear", 11, 0.1, func(c *Config) {
			c.Scheme = "barycentric"
			c.Seeds = "centroids"
		}),
	},
	"static": {
		"still": preset("static", 5, 0.25, nil),
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(model, name string) *Config {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	cfg, ok := modelPresets[name]
	if !ok {
		return nil
	}
	cp := *cfg
	return &cp
}

func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
