// Package config provides configuration parsing and validation for picmp.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/postalsys/picmp/internal/icmp"
	"github.com/postalsys/picmp/internal/logging"
)

// Config represents the complete prober configuration.
type Config struct {
	Probe   ProbeConfig   `yaml:"probe"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ProbeConfig controls a probe batch.
type ProbeConfig struct {
	Count         int           `yaml:"count"`          // probes per batch
	Interval      time.Duration `yaml:"interval"`       // pause between probes
	Timeout       time.Duration `yaml:"timeout"`        // reply wait per probe
	FixedSequence bool          `yaml:"fixed_sequence"` // send seq 1 on every probe
}

// LogConfig defines logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// MetricsConfig defines the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Path    string `yaml:"path"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Probe: ProbeConfig{
			Count:    4,
			Interval: 100 * time.Millisecond,
			Timeout:  icmp.DefaultConfig().Timeout,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: "127.0.0.1:9108",
			Path:    "/metrics",
		},
	}
}

// Load reads and parses a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse parses configuration from YAML bytes on top of Default.
func Parse(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// envVarRegex matches ${VAR} or $VAR patterns
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// expandEnvVars replaces environment variable references with their values.
// ${VAR:-default} falls back to default when VAR is unset; unknown
// references are left as written.
func expandEnvVars(s string) string {
	return envVarRegex.ReplaceAllStringFunc(s, func(match string) string {
		var name string
		if strings.HasPrefix(match, "${") {
			name = match[2 : len(match)-1]
		} else {
			name = match[1:]
		}

		if varName, defaultVal, ok := strings.Cut(name, ":-"); ok {
			if val, ok := os.LookupEnv(varName); ok {
				return val
			}
			return defaultVal
		}

		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return match
	})
}

// Validate checks the configuration for errors. All problems are reported
// together.
func (c *Config) Validate() error {
	var errs []string

	if c.Probe.Count < 1 {
		errs = append(errs, "probe.count must be at least 1")
	}
	if c.Probe.Interval < 0 {
		errs = append(errs, "probe.interval must not be negative")
	}
	if err := c.ICMP().Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("probe.%v", err))
	}

	if !logging.ValidLevel(c.Log.Level) {
		errs = append(errs, fmt.Sprintf("invalid log.level: %s (must be debug, info, warn, or error)", c.Log.Level))
	}
	if !logging.ValidFormat(c.Log.Format) {
		errs = append(errs, fmt.Sprintf("invalid log.format: %s (must be text or json)", c.Log.Format))
	}

	if c.Metrics.Enabled {
		if c.Metrics.Address == "" {
			errs = append(errs, "metrics.address is required when enabled")
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			errs = append(errs, fmt.Sprintf("metrics.path must start with /: %q", c.Metrics.Path))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// ICMP returns the probe session settings.
func (c *Config) ICMP() icmp.Config {
	return icmp.Config{
		Timeout:       c.Probe.Timeout,
		FixedSequence: c.Probe.FixedSequence,
	}
}

// String returns the config as YAML.
func (c *Config) String() string {
	data, _ := yaml.Marshal(c)
	return string(data)
}
