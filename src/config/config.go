package config

import (
	"fmt"
	"os"
	"strings"

	"crypto-analytics/src/models"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from a YAML file. Connection
// secrets (DSN, Redis address) may be overridden through the environment;
// a .env file is honored when present.
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Unmarshal data into the models struct
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	// 3. Apply environment overrides on top of the file values
	_ = godotenv.Load()
	if err := env.Parse(&modelConfig); err != nil {
		return nil, fmt.Errorf("failed to apply env overrides: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.applyDefaults()

	// 4. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// applyDefaults fills zero values that have a sensible reference behavior.
func (c *Config) applyDefaults() {
	if c.Feed.ConnectTimeoutSeconds <= 0 {
		c.Feed.ConnectTimeoutSeconds = 10
	}
	if c.Feed.ReconnectDelaySeconds <= 0 {
		c.Feed.ReconnectDelaySeconds = 5
	}
	if c.Feed.MaxReconnectAttempts <= 0 {
		c.Feed.MaxReconnectAttempts = 10
	}
	if c.Dispatcher.QueueSize <= 0 {
		c.Dispatcher.QueueSize = 256
	}
	if c.Aggregator.WindowSeconds <= 0 {
		c.Aggregator.WindowSeconds = 300
	}
	if c.Aggregator.LateToleranceSeconds <= 0 {
		c.Aggregator.LateToleranceSeconds = 600
	}
	if c.Anomaly.PriceSpikeMediumPct <= 0 {
		c.Anomaly.PriceSpikeMediumPct = 5
	}
	if c.Anomaly.PriceSpikeHighPct <= 0 {
		c.Anomaly.PriceSpikeHighPct = 10
	}
	if c.Anomaly.VolumeSurgeMedium <= 0 {
		c.Anomaly.VolumeSurgeMedium = 5e8
	}
	if c.Anomaly.VolumeSurgeHigh <= 0 {
		c.Anomaly.VolumeSurgeHigh = 1e9
	}
	if c.Anomaly.VolumeHistorySize <= 0 {
		c.Anomaly.VolumeHistorySize = 100
	}
	if c.Storage.TickBatchSize <= 0 {
		c.Storage.TickBatchSize = 500
	}
	if c.Storage.TickFlushSeconds <= 0 {
		c.Storage.TickFlushSeconds = 10
	}
	if c.Redis.TTLSeconds <= 0 {
		c.Redis.TTLSeconds = 300
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	// Validate App configuration (Flattened)
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Validate Server configuration (Flattened)
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}
	if c.ControlPort != 0 && (c.ControlPort <= 1024 || c.ControlPort > 65535) {
		return fmt.Errorf("invalid control port number: %d", c.ControlPort)
	}

	// Validate Feed configuration
	if c.Feed.WSBaseURL == "" {
		return fmt.Errorf("feed ws_base_url cannot be empty")
	}
	if !strings.HasPrefix(c.Feed.WSBaseURL, "ws://") && !strings.HasPrefix(c.Feed.WSBaseURL, "wss://") {
		return fmt.Errorf("feed ws_base_url must use ws:// or wss:// scheme")
	}
	if len(c.Feed.Symbols) == 0 {
		return fmt.Errorf("at least one tracked symbol must be configured")
	}
	for i, sym := range c.Feed.Symbols {
		if sym == "" {
			return fmt.Errorf("tracked symbol %d cannot be empty", i)
		}
	}

	// Validate Aggregator configuration
	if c.Aggregator.WindowSeconds <= 0 {
		return fmt.Errorf("aggregator window must be greater than 0")
	}
	if c.Aggregator.LateToleranceSeconds < 0 {
		return fmt.Errorf("late tolerance cannot be negative")
	}

	// Validate Anomaly configuration
	if c.Anomaly.PriceSpikeHighPct < c.Anomaly.PriceSpikeMediumPct {
		return fmt.Errorf("price spike high threshold must not be below the medium threshold")
	}
	if c.Anomaly.VolumeSurgeHigh < c.Anomaly.VolumeSurgeMedium {
		return fmt.Errorf("volume surge high threshold must not be below the medium threshold")
	}
	if c.Anomaly.CooldownSeconds < 0 {
		return fmt.Errorf("alert cooldown cannot be negative")
	}

	// Validate Storage configuration
	if c.Storage.DBType == "" {
		return fmt.Errorf("database type cannot be empty")
	}
	if c.Storage.DBType == "sqlite" && c.Storage.DBPath == "" {
		return fmt.Errorf("database path cannot be empty for sqlite")
	}
	if c.Storage.DBType == "postgres" && c.Storage.DBConnectionString == "" {
		return fmt.Errorf("connection string cannot be empty for postgres")
	}

	// Validate Redis configuration
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis addr cannot be empty when redis is enabled")
	}

	return nil
}

// -----------------------------------------------------------------------------

// TrackedSymbols returns the configured symbols normalized to upper case.
func (c *Config) TrackedSymbols() []string {
	out := make([]string, 0, len(c.Feed.Symbols))
	for _, sym := range c.Feed.Symbols {
		out = append(out, strings.ToUpper(sym))
	}
	return out
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
