package config

import (
	"sort"

	"github.com/san-kum/parlab/internal/bilateral"
)

// Presets are named parameter sets per exercise. Applying one only touches
// the fields it is about.
var Presets = map[string]map[string]func(*Config){
	"bilateral": {
		"default": func(c *Config) {
			c.Bilateral.Params = bilateral.DefaultParams()
		},
		"soft": func(c *Config) {
			c.Bilateral.Params = bilateral.Params{SigmaDomain: 5, SigmaRange: 0.5}
		},
		"edges": func(c *Config) {
			c.Bilateral.Params = bilateral.Params{SigmaDomain: 2, SigmaRange: 0.05}
		},
		"quick": func(c *Config) {
			c.Bilateral.Iterations = 4
			c.Bilateral.Size = "640x360"
		},
	},
	"nbody": {
		"small": func(c *Config) {
			c.NBody.Bodies = 64
			c.NBody.Steps = 200
		},
		"large": func(c *Config) {
			c.NBody.Bodies = 4096
			c.NBody.Steps = 8
		},
		"binary": func(c *Config) {
			c.NBody.Bodies = 2
			c.NBody.Steps = 1000
			c.NBody.Dt = 0.01
		},
	},
}

// ApplyPreset applies a named preset to c and reports whether it exists.
func ApplyPreset(c *Config, exercise, preset string) bool {
	apply, ok := Presets[exercise][preset]
	if !ok {
		return false
	}
	apply(c)
	return true
}

// GetPreset returns the defaults with the preset applied, or nil.
func GetPreset(exercise, preset string) *Config {
	cfg := DefaultConfig()
	if !ApplyPreset(cfg, exercise, preset) {
		return nil
	}
	return cfg
}

func ListPresets(exercise string) []string {
	exPresets, ok := Presets[exercise]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(exPresets))
	for name := range exPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
