package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/pagewatch/pagewatch/internal/constants"
)

// Load reads and parses a TOML configuration file, applies defaults and
// expands environment variable references.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	expandEnvVars(&cfg)

	return &cfg, nil
}

// Validate checks the configuration and returns all problems found.
func (c *Config) Validate() []error {
	var errors []error

	if c.State.Dir == "" {
		errors = append(errors, fmt.Errorf("state.dir is required"))
	}
	if c.Tasks.Dir == "" {
		errors = append(errors, fmt.Errorf("tasks.dir is required"))
	}

	if c.Logging.Level != "" {
		validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
		if !validLevels[strings.ToLower(c.Logging.Level)] {
			errors = append(errors, fmt.Errorf("invalid logging.level: %s (expected: debug, info, warn, error)", c.Logging.Level))
		}
	}
	if c.Logging.Format != "" {
		validFormats := map[string]bool{"json": true, "text": true}
		if !validFormats[strings.ToLower(c.Logging.Format)] {
			errors = append(errors, fmt.Errorf("invalid logging.format: %s (expected: json, text)", c.Logging.Format))
		}
	}

	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		errors = append(errors, fmt.Errorf("invalid scheduler.timezone: %s", c.Scheduler.Timezone))
	}
	if c.Scheduler.HeartbeatIntervalSeconds <= 0 {
		errors = append(errors, fmt.Errorf("scheduler.heartbeat_interval_seconds must be positive"))
	}

	if c.Pipeline.MaxRetries < 1 {
		errors = append(errors, fmt.Errorf("pipeline.max_retries must be at least 1"))
	}
	if c.Pipeline.RetryDelaySeconds < 0 {
		errors = append(errors, fmt.Errorf("pipeline.retry_delay_seconds cannot be negative"))
	}
	if c.Pipeline.FetchTimeoutSecs <= 0 {
		errors = append(errors, fmt.Errorf("pipeline.fetch_timeout_seconds must be positive"))
	}
	if c.Pipeline.MaxResponseSize <= 0 {
		errors = append(errors, fmt.Errorf("pipeline.max_response_size must be positive"))
	}

	if c.Metrics.Enabled && c.Metrics.ListenAddr == "" {
		errors = append(errors, fmt.Errorf("metrics.listen_addr is required when metrics are enabled"))
	}

	return errors
}

// Location resolves the scheduler timezone. Validate must have passed.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// PidFilePath returns the path of the daemon pid file under the state dir.
func (c *Config) PidFilePath() string {
	return filepath.Join(c.State.Dir, constants.PidFileName)
}

// ResultLogPath returns the path of the append-only result log under the
// state dir.
func (c *Config) ResultLogPath() string {
	return filepath.Join(c.State.Dir, constants.ResultLogName)
}

// expandEnvVars expands ${VAR} and ${VAR:default} references and a leading
// "~/" in every path-like string value.
func expandEnvVars(c *Config) {
	c.State.Dir = expandHome(expandEnv(c.State.Dir))
	c.Tasks.Dir = expandHome(expandEnv(c.Tasks.Dir))
	c.Logging.Output = expandHome(expandEnv(c.Logging.Output))
	c.Metrics.ListenAddr = expandEnv(c.Metrics.ListenAddr)
}

// expandEnv expands a single ${VAR} or ${VAR:default} reference.
func expandEnv(value string) string {
	if !strings.HasPrefix(value, "${") || !strings.HasSuffix(value, "}") {
		return value
	}

	inner := value[2 : len(value)-1]
	name, def, hasDefault := strings.Cut(inner, ":")
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	if hasDefault {
		return def
	}
	return ""
}

// expandHome expands a leading "~/" to the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
