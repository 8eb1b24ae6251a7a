package cmdmetrics

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nvasko/cmdmetrics/core"
)

// Config holds all configuration for a CommandListener. It is assembled once,
// validated in NewCommandListener, and never mutated afterwards.
type Config struct {
	// MetricName is the name of the timer metric recorded per command.
	MetricName string `yaml:"metricName"`

	// MetricDescription describes the timer metric.
	MetricDescription string `yaml:"metricDescription"`

	// CacheMaxSize bounds the number of in-flight commands whose context is
	// retained between start and completion. Must be positive.
	CacheMaxSize int `yaml:"cacheMaxSize"`

	// OverflowLogInterval throttles the cache-full warning to one log line
	// per N rejected admissions. Zero or negative disables the warning
	// entirely; rejections are then dropped silently.
	OverflowLogInterval int `yaml:"overflowLogInterval"`

	// FallbackName is substituted when a completion has no cached context.
	FallbackName string `yaml:"fallbackName"`

	// Logger receives the throttled overflow warnings. Not configurable
	// through YAML.
	Logger core.Logger `yaml:"-"`
}

// DefaultConfig returns a configuration with the library defaults.
func DefaultConfig() *Config {
	return &Config{
		MetricName:          "client.commands",
		MetricDescription:   "Timer of client commands",
		CacheMaxSize:        1000,
		OverflowLogInterval: 100,
		FallbackName:        "unknown",
		Logger:              &core.NoOpLogger{},
	}
}

// Validate reports the first constraint violation, wrapped so callers can
// test for it with core.IsConfigurationError.
func (c *Config) Validate() error {
	if c.MetricName == "" {
		return fmt.Errorf("%w: metric name must not be empty", core.ErrInvalidConfiguration)
	}
	if c.CacheMaxSize < 1 {
		return fmt.Errorf("%w: cache max size must be set to a positive value, got %d",
			core.ErrInvalidConfiguration, c.CacheMaxSize)
	}
	return nil
}

// Option is a functional option for configuring the listener.
// Options are applied in order and can return an error if the value is invalid.
type Option func(*Config) error

// WithMetricName sets the name of the recorded timer metric.
func WithMetricName(name string) Option {
	return func(c *Config) error {
		if name == "" {
			return fmt.Errorf("%w: metric name must not be empty", core.ErrInvalidConfiguration)
		}
		c.MetricName = name
		return nil
	}
}

// WithMetricDescription sets the description of the recorded timer metric.
func WithMetricDescription(description string) Option {
	return func(c *Config) error {
		c.MetricDescription = description
		return nil
	}
}

// WithCacheMaxSize sets the in-flight cache capacity.
func WithCacheMaxSize(maxSize int) Option {
	return func(c *Config) error {
		c.CacheMaxSize = maxSize
		return nil
	}
}

// WithOverflowLogInterval sets how many rejected admissions pass between
// cache-full warnings. Zero or negative disables the warning.
func WithOverflowLogInterval(interval int) Option {
	return func(c *Config) error {
		c.OverflowLogInterval = interval
		return nil
	}
}

// WithFallbackName sets the value substituted when a completion event has no
// cached context.
func WithFallbackName(name string) Option {
	return func(c *Config) error {
		if name == "" {
			return fmt.Errorf("%w: fallback name must not be empty", core.ErrInvalidConfiguration)
		}
		c.FallbackName = name
		return nil
	}
}

// WithLogger sets the logger that receives overflow warnings.
func WithLogger(logger core.Logger) Option {
	return func(c *Config) error {
		if logger != nil {
			c.Logger = logger
		}
		return nil
	}
}

// WithConfig replaces the whole configuration with a loaded one. The logger
// is kept unless the loaded config carries its own.
func WithConfig(loaded *Config) Option {
	return func(c *Config) error {
		if loaded == nil {
			return fmt.Errorf("%w: config must not be nil", core.ErrMissingConfiguration)
		}
		logger := c.Logger
		*c = *loaded
		if c.Logger == nil {
			c.Logger = logger
		}
		return nil
	}
}

// LoadConfig reads a YAML configuration file. Environment variables referenced
// as ${VAR} are expanded before parsing. Keys absent from the file keep their
// defaults, so overflowLogInterval: 0 is an explicit "disable the warning"
// rather than a missing value.
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	expanded := os.ExpandEnv(string(b))
	c := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), c); err != nil {
		return nil, err
	}
	return c, nil
}
