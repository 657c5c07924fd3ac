package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.New("invalid configuration")

// Config carries every threshold used by the remesher and the assembler.
type Config struct {
	// ContactThreshold is the length below which EOL edges collapse and
	// EOL altitudes split.
	ContactThreshold  float64 `yaml:"contact_threshold"`
	BoundaryThreshold float64 `yaml:"boundary_threshold"`
	// BoundaryAngle is the near-parallel band around the border, in radians
	BoundaryAngle float64 `yaml:"boundary_angle"`

	FlatAngleCorner float64 `yaml:"flat_angle_corner"`
	FlatAngleEdge   float64 `yaml:"flat_angle_edge"`
	FixedDamping    float64 `yaml:"fixed_damping"`

	BarycentricEpsilon float64 `yaml:"barycentric_epsilon"`
	DegenerateArea     float64 `yaml:"degenerate_area"`

	MaxCleanupIterations int `yaml:"max_cleanup_iterations"`
	MaxFlipPasses        int `yaml:"max_flip_passes"`

	Logging LoggingConfig `yaml:"logging"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		ContactThreshold:     0.025,
		BoundaryThreshold:    0.025,
		BoundaryAngle:        math.Pi / 5,
		FlatAngleCorner:      0.5,
		FlatAngleEdge:        0.1,
		FixedDamping:         0.01,
		BarycentricEpsilon:   1e-3,
		DegenerateArea:       1e-6,
		MaxCleanupIterations: 100,
		MaxFlipPasses:        32,
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML file over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	positive := []struct {
		name  string
		value float64
	}{
		{"contact_threshold", c.ContactThreshold},
		{"boundary_threshold", c.BoundaryThreshold},
		{"boundary_angle", c.BoundaryAngle},
		{"flat_angle_corner", c.FlatAngleCorner},
		{"flat_angle_edge", c.FlatAngleEdge},
		{"barycentric_epsilon", c.BarycentricEpsilon},
		{"degenerate_area", c.DegenerateArea},
	}
	for _, p := range positive {
		if !(p.value > 0) {
			return fmt.Errorf("%s must be positive, got %v: %w", p.name, p.value, ErrInvalid)
		}
	}
	if c.FixedDamping < 0 || c.FixedDamping >= 1 {
		return fmt.Errorf("fixed_damping must be in [0, 1), got %v: %w", c.FixedDamping, ErrInvalid)
	}
	if c.MaxCleanupIterations <= 0 {
		return fmt.Errorf("max_cleanup_iterations must be positive, got %d: %w", c.MaxCleanupIterations, ErrInvalid)
	}
	if c.MaxFlipPasses <= 0 {
		return fmt.Errorf("max_flip_passes must be positive, got %d: %w", c.MaxFlipPasses, ErrInvalid)
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %v: %w", err, ErrInvalid)
	}
	return nil
}

// Logger builds the zap logger described by the logging section.
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}

	config := zap.NewProductionConfig()
	if c.Logging.Development {
		config = zap.NewDevelopmentConfig()
	}
	config.Level = zap.NewAtomicLevelAt(level)

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
