// Package config provides configuration loading and validation for pagewatch.
// It supports TOML configuration files with environment variable expansion,
// default values, and validation.
//
// Configuration structure:
//   - [logging]: diagnostic log level, format, and output
//   - [state]: directory holding the pid file and the result log
//   - [tasks]: directory holding task definition files
//   - [scheduler]: timezone and heartbeat interval
//   - [pipeline]: extraction retry policy and fetch limits
//   - [metrics]: optional Prometheus listener
//   - [watch]: automatic reload on task directory changes
//
// String values can reference environment variables using ${VAR} or
// ${VAR:default} syntax.
package config

// Config represents the main daemon configuration.
type Config struct {
	Logging   LoggingConfig   `toml:"logging"`
	State     StateConfig     `toml:"state"`
	Tasks     TasksConfig     `toml:"tasks"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Pipeline  PipelineConfig  `toml:"pipeline"`
	Metrics   MetricsConfig   `toml:"metrics"`
	Watch     WatchConfig     `toml:"watch"`
}

// LoggingConfig controls the diagnostic log.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Output string `toml:"output"`
}

// StateConfig locates the daemon's durable state: the pid file and the
// append-only result log.
type StateConfig struct {
	Dir string `toml:"dir"`
}

// TasksConfig locates the task definition files.
type TasksConfig struct {
	Dir string `toml:"dir"`
}

// SchedulerConfig controls trigger registration and the heartbeat loop.
type SchedulerConfig struct {
	Timezone                 string `toml:"timezone"`
	HeartbeatIntervalSeconds int    `toml:"heartbeat_interval_seconds"`
}

// PipelineConfig controls the execution pipeline's retry policy and the
// content fetch stage.
type PipelineConfig struct {
	MaxRetries        int    `toml:"max_retries"`
	RetryDelaySeconds int    `toml:"retry_delay_seconds"`
	FetchTimeoutSecs  int    `toml:"fetch_timeout_seconds"`
	UserAgent         string `toml:"user_agent"`
	MaxResponseSize   int64  `toml:"max_response_size"`
}

// MetricsConfig controls the optional Prometheus endpoint.
type MetricsConfig struct {
	Enabled    bool   `toml:"enabled"`
	ListenAddr string `toml:"listen_addr"`
}

// WatchConfig controls automatic reload when task definition files change.
type WatchConfig struct {
	Enabled    bool `toml:"enabled"`
	DebounceMs int  `toml:"debounce_ms"`
}
