package models

// -----------------------------------------------------------------------------
// Application configuration (loaded from YAML, secrets overridable via env)
// -----------------------------------------------------------------------------

type MConfig struct {
	// App (Flattened)
	Name     string `yaml:"name"`
	LogLevel string `yaml:"log_level"`

	// HTTP server
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// gRPC control endpoint
	ControlPort int `yaml:"control_port"`

	Feed       MFeedConfig       `yaml:"feed"`
	Dispatcher MDispatcherConfig `yaml:"dispatcher"`
	Aggregator MAggregatorConfig `yaml:"aggregator"`
	Anomaly    MAnomalyConfig    `yaml:"anomaly"`
	Storage    MStorageConfig    `yaml:"storage"`
	Redis      MRedisConfig      `yaml:"redis"`
}

// -----------------------------------------------------------------------------

type MFeedConfig struct {
	// Base combined-stream URL, e.g. wss://stream.binance.com:9443
	WSBaseURL string   `yaml:"ws_base_url" env:"FEED_WS_BASE_URL"`
	Symbols   []string `yaml:"symbols"`

	// Handshake bound for a single dial attempt.
	ConnectTimeoutSeconds int `yaml:"connect_timeout_seconds"`

	// Constant delay between reconnect attempts. Not exponential.
	ReconnectDelaySeconds int `yaml:"reconnect_delay_seconds"`

	// Consecutive failed attempts before the feed reports degraded health.
	MaxReconnectAttempts int `yaml:"max_reconnect_attempts"`
}

// -----------------------------------------------------------------------------

type MDispatcherConfig struct {
	// Depth of each consumer queue. Full queue drops the oldest event.
	QueueSize int `yaml:"queue_size"`
}

// -----------------------------------------------------------------------------

type MAggregatorConfig struct {
	WindowSeconds        int `yaml:"window_seconds"`
	LateToleranceSeconds int `yaml:"late_tolerance_seconds"`
}

// -----------------------------------------------------------------------------

type MAnomalyConfig struct {
	// 24h percent-change thresholds for the price spike rule.
	PriceSpikeMediumPct float64 `yaml:"price_spike_medium_pct"`
	PriceSpikeHighPct   float64 `yaml:"price_spike_high_pct"`

	// Absolute 24h volume thresholds for the volume surge rule.
	VolumeSurgeMedium float64 `yaml:"volume_surge_medium"`
	VolumeSurgeHigh   float64 `yaml:"volume_surge_high"`

	// Minimum spacing between alerts for the same (symbol, type).
	// Zero keeps the legacy behavior of re-alerting on every tick.
	CooldownSeconds int `yaml:"cooldown_seconds"`

	// Samples kept per symbol for the rolling average volume.
	VolumeHistorySize int `yaml:"volume_history_size"`
}

// -----------------------------------------------------------------------------

type MStorageConfig struct {
	DBType             string `yaml:"db_type"` // "postgres" or "sqlite"
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string" env:"STORAGE_DSN"`

	// Rows older than this are pruned by CleanupOldData. Zero disables pruning.
	DataRetentionDays int `yaml:"data_retention_days"`

	// How many raw ticks are buffered before a bulk insert.
	TickBatchSize int `yaml:"tick_batch_size"`

	// Upper bound on how long a partial batch may wait before flushing.
	TickFlushSeconds int `yaml:"tick_flush_seconds"`
}

// -----------------------------------------------------------------------------

type MRedisConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Addr       string `yaml:"addr" env:"REDIS_ADDR"`
	Password   string `yaml:"password" env:"REDIS_PASSWORD"`
	DB         int    `yaml:"db"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}
