// Package config loads run configuration for the kiln CLI from YAML.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kiln-ml/kiln/internal/kernel"
)

// Validation errors.
var (
	ErrUnknownKernel = errors.New("config: unknown kernel type")
	ErrUnknownDist   = errors.New("config: unknown dataset distribution")
)

// Dataset describes the synthetic dataset to generate for a bench run.
type Dataset struct {
	Rows  int    `yaml:"rows"`
	Width int    `yaml:"width"`
	Seed  int64  `yaml:"seed"`
	Dist  string `yaml:"dist"` // "uniform" (default) or "normal"
}

// Kernel selects and parameterizes the built-in kernel program.
type Kernel struct {
	Type   string    `yaml:"type"` // "euclidean", "affine" or "sqnorm"
	Center []float64 `yaml:"center,omitempty"`
	Scale  float64   `yaml:"scale,omitempty"`
	Offset float64   `yaml:"offset,omitempty"`
}

// Config is the full bench run configuration. Zero fields fall back to
// the library defaults at evaluation time.
type Config struct {
	Workers        int     `yaml:"workers"`
	Chunks         int     `yaml:"chunks"`
	SmallThreshold int     `yaml:"small_threshold"`
	Dataset        Dataset `yaml:"dataset"`
	Kernel         Kernel  `yaml:"kernel"`
}

// Default returns the configuration used when no file is given:
// 100k 3-D uniform points against the Euclidean-distance kernel.
func Default() *Config {
	return &Config{
		Dataset: Dataset{Rows: 100000, Width: 3, Seed: 1, Dist: "uniform"},
		Kernel:  Kernel{Type: "euclidean", Center: []float64{0.5, 0.5, 0.5}},
	}
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes YAML into a Config, filling unset dataset fields from
// the defaults.
func Parse(raw []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if cfg.Dataset.Dist == "" {
		cfg.Dataset.Dist = "uniform"
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Dataset.Dist {
	case "uniform", "normal":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDist, c.Dataset.Dist)
	}
	switch c.Kernel.Type {
	case "euclidean", "affine", "sqnorm":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKernel, c.Kernel.Type)
	}
	return nil
}

// BuildKernel constructs the configured kernel program.
func (c *Config) BuildKernel() (kernel.Program, error) {
	switch c.Kernel.Type {
	case "euclidean":
		center := c.Kernel.Center
		if len(center) == 0 {
			center = make([]float64, c.Dataset.Width)
		}
		if len(center) != c.Dataset.Width {
			return kernel.Program{}, fmt.Errorf("config: center width %d, dataset width %d",
				len(center), c.Dataset.Width)
		}
		return kernel.EuclideanDistance(center), nil
	case "affine":
		scale := c.Kernel.Scale
		if scale == 0 {
			scale = 1
		}
		return kernel.Affine(c.Dataset.Width, scale, c.Kernel.Offset), nil
	case "sqnorm":
		return kernel.SquaredNorm(c.Dataset.Width), nil
	default:
		return kernel.Program{}, fmt.Errorf("%w: %q", ErrUnknownKernel, c.Kernel.Type)
	}
}
