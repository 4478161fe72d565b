package config

import "sort"

func preset(model string, edit func(c *Config)) *Config {
	c := DefaultConfig()
	c.Model = model
	edit(c)
	return c
}

var Presets = map[string]map[string]*Config{
	"gbm": {
		"market": preset("gbm", func(c *Config) {
			c.Params = map[string]float64{"mu": 0.05, "sigma": 0.2}
			c.T1, c.Samples, c.Batch = 1, 253, 64
			c.Dt = 1.0 / 252
		}),
		"volatile": preset("gbm", func(c *Config) {
			c.Params = map[string]float64{"mu": 0.1, "sigma": 1}
			c.Adaptive = true
			c.Dt, c.DtMin = 0.01, 1e-5
			c.Rtol, c.Atol = 1e-3, 1e-4
		}),
		"posterior": preset("gbm", func(c *Config) {
			c.Params = map[string]float64{"mu": 0.5, "sigma": 0.3, "prior_mu": 0.2}
			c.Logqp = true
			c.Dt = 1e-2
		}),
	},
	"scalar-gbm": {
		"basket": preset("scalar-gbm", func(c *Config) {
			c.Params = map[string]float64{"mu": 0.05, "sigma": 0.25, "dim": 3}
			c.Method = "milstein"
			c.Dt = 1e-2
		}),
	},
	"ou": {
		"stationary": preset("ou", func(c *Config) {
			c.Params = map[string]float64{"theta": 2, "mean": 0, "sigma": 1}
			c.Init = []float64{3, -3}
			c.T1, c.Samples, c.Batch = 5, 201, 256
			c.Dt = 1e-2
		}),
		"stiff": preset("ou", func(c *Config) {
			c.Params = map[string]float64{"theta": 50, "sigma": 0.5}
			c.Adaptive = true
			c.Dt, c.DtMin = 0.1, 1e-6
		}),
	},
	"linear2d": {
		"spiral": preset("linear2d", func(c *Config) {
			c.Method = "euler"
			c.Params = map[string]float64{"damping": 0.3, "rotation": 3}
			c.Init = []float64{1, 0}
			c.T1, c.Samples = 10, 501
			c.Dt = 1e-3
		}),
		"posterior": preset("linear2d", func(c *Config) {
			c.Method = "euler"
			c.Logqp = true
			c.Init = []float64{1, -1}
			c.Dt = 1e-2
		}),
	},
	"decay": {
		"quiet": preset("decay", func(c *Config) {
			c.Params = map[string]float64{"rate": 1, "noise": 0.01}
			c.Brownian = "zero"
		}),
		"noisy": preset("decay", func(c *Config) {
			c.Params = map[string]float64{"rate": 1, "noise": 0.5}
			c.Method = "milstein"
			c.Brownian = "path"
		}),
	},
	"doublewell": {
		"hopping": preset("doublewell", func(c *Config) {
			c.Params = map[string]float64{"noise": 0.7}
			c.T1, c.Samples, c.Batch = 20, 401, 32
			c.Dt = 1e-2
		}),
		"posterior": preset("doublewell", func(c *Config) {
			c.Method = "euler"
			c.Logqp = true
			c.Init = []float64{0}
			c.T1, c.Samples = 5, 101
			c.Dt = 1e-2
		}),
	},
	"lorenz": {
		"attractor": preset("lorenz", func(c *Config) {
			c.Params = map[string]float64{"noise": 0.5}
			c.T1, c.Samples, c.Batch = 10, 1001, 8
			c.Dt = 1e-3
		}),
		"adaptive": preset("lorenz", func(c *Config) {
			c.Adaptive = true
			c.Rtol, c.Atol = 1e-3, 1e-3
			c.Dt, c.DtMin = 1e-2, 1e-6
			c.T1, c.Samples, c.Batch = 5, 501, 8
		}),
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(model, preset string) *Config {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	cfg, ok := modelPresets[preset]
	if !ok {
		return nil
	}
	return cfg.Clone()
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
