package config

import (
	"fmt"
	"os"

	"trade-deck/src/helpers"
	"trade-deck/src/models"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig

	// Path is the file the config was loaded from, used when persisting
	// runtime overrides. Not serialized.
	Path string
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from YAML file
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

	config := &Config{MConfig: &modelConfig, Path: configPath}
	config.applyDefaults()

	// 3. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, &helpers.ConfigurationError{TradeDeckError: helpers.TradeDeckError{
			Message: "config validation failed",
			Cause:   err,
		}}
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// applyDefaults fills optional fields the YAML may omit.
func (c *Config) applyDefaults() {
	if c.Upstream.ReconnectBaseDelayMs == 0 {
		c.Upstream.ReconnectBaseDelayMs = 1000
	}
	if c.Upstream.ReconnectMaxAttempts == 0 {
		c.Upstream.ReconnectMaxAttempts = 5
	}
	if c.Upstream.RequestTimeoutSeconds == 0 {
		c.Upstream.RequestTimeoutSeconds = 30
	}
	if c.Storage.RetentionDays == 0 {
		c.Storage.RetentionDays = 7
	}
	if c.Trading.DefaultLeverage == 0 {
		c.Trading.DefaultLeverage = 1
	}
	if c.Trading.CrossReservePct == 0 {
		c.Trading.CrossReservePct = 0.1
	}
	if c.Indicator.SMAPeriod == 0 {
		c.Indicator.SMAPeriod = 20
	}
	if c.Indicator.EMAPeriod == 0 {
		c.Indicator.EMAPeriod = 20
	}
	if c.Indicator.BollingerPeriod == 0 {
		c.Indicator.BollingerPeriod = 20
	}
	if c.Indicator.BollingerStdDevs == 0 {
		c.Indicator.BollingerStdDevs = 2
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

	// Validate Upstream configuration
	if c.Upstream.WebsocketURL == "" {
		return fmt.Errorf("upstream websocket URL cannot be empty")
	}
	if c.Upstream.RestBaseURL == "" {
		return fmt.Errorf("upstream REST base URL cannot be empty")
	}
	if c.Upstream.ReconnectBaseDelayMs < 0 {
		return fmt.Errorf("reconnect base delay cannot be negative")
	}
	if c.Upstream.ReconnectMaxAttempts < 0 {
		return fmt.Errorf("reconnect max attempts cannot be negative")
	}

	// Validate Storage configuration
	if c.Storage.DBType == "" {
		return fmt.Errorf("database type cannot be empty")
	}
	if c.Storage.DBType == "sqlite" && c.Storage.DBPath == "" {
		return fmt.Errorf("database path cannot be empty for sqlite")
	}

	// Validate Network configuration
	if c.Network.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}
	if c.Network.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}

	// Validate Trading configuration
	if c.Trading.Symbol == "" {
		return fmt.Errorf("trading symbol cannot be empty")
	}
	if c.Trading.DefaultLeverage < 1 {
		return fmt.Errorf("leverage must be at least 1")
	}
	if c.Trading.CrossReservePct < 0 || c.Trading.CrossReservePct >= 1 {
		return fmt.Errorf("cross reserve percentage must be in [0, 1)")
	}

	// Validate Indicator configuration
	if c.Indicator.SMAPeriod < 1 || c.Indicator.EMAPeriod < 1 || c.Indicator.BollingerPeriod < 1 {
		return fmt.Errorf("indicator periods must be at least 1")
	}
	if c.Indicator.BollingerStdDevs <= 0 {
		return fmt.Errorf("bollinger std dev multiplier must be greater than 0")
	}

	// Validate Timeframes
	for i, tf := range c.Timeframes {
		if tf == "" {
			return fmt.Errorf("timeframe %d cannot be empty", i)
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
