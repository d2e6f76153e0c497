package config

const (
	defaultMaxRetries      = 3
	defaultRetryDelaySecs  = 10
	defaultFetchTimeout    = 30
	defaultHeartbeatSecs   = 60
	defaultMaxResponseSize = 5 * 1024 * 1024
	defaultUserAgent       = "pagewatch/1.0"
	defaultWatchDebounceMs = 500
)

// applyDefaults fills zero values with sensible defaults. Required fields
// (state.dir, tasks.dir) are left empty for Validate to flag.
func applyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stderr"
	}

	if cfg.Scheduler.Timezone == "" {
		cfg.Scheduler.Timezone = "Local"
	}
	if cfg.Scheduler.HeartbeatIntervalSeconds == 0 {
		cfg.Scheduler.HeartbeatIntervalSeconds = defaultHeartbeatSecs
	}

	if cfg.Pipeline.MaxRetries == 0 {
		cfg.Pipeline.MaxRetries = defaultMaxRetries
	}
	if cfg.Pipeline.RetryDelaySeconds == 0 {
		cfg.Pipeline.RetryDelaySeconds = defaultRetryDelaySecs
	}
	if cfg.Pipeline.FetchTimeoutSecs == 0 {
		cfg.Pipeline.FetchTimeoutSecs = defaultFetchTimeout
	}
	if cfg.Pipeline.UserAgent == "" {
		cfg.Pipeline.UserAgent = defaultUserAgent
	}
	if cfg.Pipeline.MaxResponseSize == 0 {
		cfg.Pipeline.MaxResponseSize = defaultMaxResponseSize
	}

	if cfg.Metrics.ListenAddr == "" {
		cfg.Metrics.ListenAddr = "127.0.0.1:9190"
	}

	if cfg.Watch.DebounceMs == 0 {
		cfg.Watch.DebounceMs = defaultWatchDebounceMs
	}
}
