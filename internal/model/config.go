package model

import (
	"fmt"
	"time"
)

// Checker kinds understood by the check package.
const (
	CheckerMangle  = "mangle"
	CheckerCommand = "command"
	CheckerHTTP    = "http"
)

// Config holds every tunable of a repair run.
type Config struct {
	Run       RunConfig       `yaml:"run" mapstructure:"run"`
	Checker   CheckerConfig   `yaml:"checker" mapstructure:"checker"`
	Interpret InterpretConfig `yaml:"interpret" mapstructure:"interpret"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Metrics   MetricsConfig   `yaml:"metrics" mapstructure:"metrics"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// RunConfig controls the repair loop.
type RunConfig struct {
	MaxIterations int    `yaml:"max_iterations" mapstructure:"max_iterations"`
	OutputDir     string `yaml:"output_dir" mapstructure:"output_dir"`
	RunID         string `yaml:"run_id,omitempty" mapstructure:"run_id"` // empty: random uuid per run
}

// CheckerConfig selects and tunes the conformance checker.
type CheckerConfig struct {
	Kind    string        `yaml:"kind" mapstructure:"kind"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// command checker: argv with {data} and {shapes} placeholders
	Command []string `yaml:"command,omitempty" mapstructure:"command"`

	// http checker
	Endpoint          string  `yaml:"endpoint,omitempty" mapstructure:"endpoint"`
	Retries           int     `yaml:"retries" mapstructure:"retries"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
	HTTPProxy         string  `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy        string  `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// InterpretConfig tunes report interpretation.
type InterpretConfig struct {
	// AllowWarnings maps reports that contain only warning or info
	// severities to StatusWarning instead of StatusViolation.
	AllowWarnings bool `yaml:"allow_warnings" mapstructure:"allow_warnings"`
}

// CacheConfig controls the check-result cache.
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// MetricsConfig controls metric export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty" mapstructure:"textfile"`
}

// BatchConfig controls the batch command.
type BatchConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // console or json
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Run: RunConfig{
			MaxIterations: 3,
			OutputDir:     "runs",
		},
		Checker: CheckerConfig{
			Kind:              CheckerMangle,
			Timeout:           2 * time.Minute,
			Command:           []string{"pyshacl", "-s", "{shapes}", "-i", "rdfs", "{data}"},
			Retries:           3,
			RequestsPerSecond: 5,
			Burst:             5,
		},
		Cache: CacheConfig{
			Enabled:   false,
			Dir:       ".kgrepair/cache",
			MemoryTTL: 10 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		Batch: BatchConfig{
			Workers: 4,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Run.MaxIterations < 1 {
		return fmt.Errorf("run.max_iterations must be >= 1, got %d", c.Run.MaxIterations)
	}
	if c.Run.OutputDir == "" {
		return fmt.Errorf("run.output_dir is required")
	}
	switch c.Checker.Kind {
	case CheckerMangle:
	case CheckerCommand:
		if len(c.Checker.Command) == 0 {
			return fmt.Errorf("checker.command is required for the command checker")
		}
	case CheckerHTTP:
		if c.Checker.Endpoint == "" {
			return fmt.Errorf("checker.endpoint is required for the http checker")
		}
	default:
		return fmt.Errorf("unknown checker kind %q", c.Checker.Kind)
	}
	if c.Checker.Timeout <= 0 {
		return fmt.Errorf("checker.timeout must be positive")
	}
	return nil
}
