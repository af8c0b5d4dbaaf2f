package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/parlab/internal/bilateral"
	"github.com/san-kum/parlab/internal/compute"
)

const (
	DefaultImage      = "1080p.bmp"
	DefaultOutput     = "output.bmp"
	DefaultIterations = 32
	DefaultTolerance  = 1
	DefaultBodies     = 1024
	DefaultSteps      = 32
	DefaultDt         = 0.001
	DefaultSoftening  = 0.01
	DefaultG          = 1.0
	DefaultSeed       = 42
	DefaultForceTol   = 1e-9
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid value")

type Config struct {
	Device    int             `yaml:"device"`
	Bilateral BilateralConfig `yaml:"bilateral"`
	NBody     NBodyConfig     `yaml:"nbody"`
}

type BilateralConfig struct {
	Image      string            `yaml:"image"`
	Pattern    string            `yaml:"pattern"`
	Size       string            `yaml:"size"`
	Output     string            `yaml:"output"`
	Params     bilateral.Params  `yaml:",inline"`
	Iterations int               `yaml:"iterations"`
	Tolerance  int               `yaml:"tolerance"`
	WorkGroup  compute.WorkGroup `yaml:"work_group"`
}

type NBodyConfig struct {
	Bodies     int     `yaml:"bodies"`
	Steps      int     `yaml:"steps"`
	Dt         float64 `yaml:"dt"`
	G          float64 `yaml:"g"`
	Softening  float64 `yaml:"softening"`
	Seed       int64   `yaml:"seed"`
	Tolerance  float64 `yaml:"tolerance"`
	Iterations int     `yaml:"iterations"`
}

func DefaultConfig() *Config {
	return &Config{
		Bilateral: BilateralConfig{
			Image:      DefaultImage,
			Size:       "1920x1080",
			Output:     DefaultOutput,
			Params:     bilateral.DefaultParams(),
			Iterations: DefaultIterations,
			Tolerance:  DefaultTolerance,
		},
		NBody: NBodyConfig{
			Bodies:     DefaultBodies,
			Steps:      DefaultSteps,
			Dt:         DefaultDt,
			G:          DefaultG,
			Softening:  DefaultSoftening,
			Seed:       DefaultSeed,
			Tolerance:  DefaultForceTol,
			Iterations: 1,
		},
	}
}

// Load reads a yaml file over the defaults, so a file only needs the keys it
// changes.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
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

func (c *Config) Validate() error {
	if c.Device < 0 {
		return fmt.Errorf("%w: device index %d", ErrInvalid, c.Device)
	}
	if err := c.Bilateral.Validate(); err != nil {
		return err
	}
	return c.NBody.Validate()
}

func (b *BilateralConfig) Validate() error {
	if err := b.Params.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if b.Iterations < 1 {
		return fmt.Errorf("%w: iterations %d", ErrInvalid, b.Iterations)
	}
	if b.Tolerance < 0 {
		return fmt.Errorf("%w: tolerance %d", ErrInvalid, b.Tolerance)
	}
	if err := b.WorkGroup.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

func (n *NBodyConfig) Validate() error {
	switch {
	case n.Bodies < 2:
		return fmt.Errorf("%w: bodies %d", ErrInvalid, n.Bodies)
	case n.Steps < 1:
		return fmt.Errorf("%w: steps %d", ErrInvalid, n.Steps)
	case n.Iterations < 1:
		return fmt.Errorf("%w: iterations %d", ErrInvalid, n.Iterations)
	case n.Dt <= 0:
		return fmt.Errorf("%w: dt %g", ErrInvalid, n.Dt)
	case n.Softening < 0:
		return fmt.Errorf("%w: softening %g", ErrInvalid, n.Softening)
	case n.Tolerance < 0:
		return fmt.Errorf("%w: tolerance %g", ErrInvalid, n.Tolerance)
	}
	return nil
}
