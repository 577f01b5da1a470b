package infra

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Broker modes.
const (
	BrokerModeLive  = "live"
	BrokerModePaper = "paper"
)

// Config holds the full application configuration. Credentials can be
// overridden with environment variables after the file is loaded.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Trading struct {
		Symbol      string `yaml:"symbol"`
		MaxQuantity int64  `yaml:"max_quantity"`
	} `yaml:"trading"`

	Broker struct {
		Mode            string `yaml:"mode"` // "live" or "paper"
		RestURL         string `yaml:"rest_url"`
		MarketStreamURL string `yaml:"market_stream_url"`
		OrderStreamURL  string `yaml:"order_stream_url"`
		KeyID           string `yaml:"key_id"`
		SecretKey       string `yaml:"secret_key"`
	} `yaml:"broker"`

	Metrics struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"metrics"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// DefaultConfig returns the configuration used when no file is present:
// paper trading of SNAP with a 500 share cap.
func DefaultConfig() *Config {
	var cfg Config
	cfg.App.Name = "hftish"
	cfg.Trading.Symbol = "SNAP"
	cfg.Trading.MaxQuantity = 500
	cfg.Broker.Mode = BrokerModePaper
	cfg.Metrics.ListenAddr = "localhost:9191"
	cfg.Logging.Level = "info"
	return &cfg
}

// LoadConfig reads and parses a YAML config file, applies environment
// overrides, and validates the result. An empty path yields DefaultConfig
// with env overrides applied.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	overrideWithEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.Trading.Symbol == "" {
		return fmt.Errorf("trading symbol is required")
	}
	if c.Trading.MaxQuantity <= 0 {
		return fmt.Errorf("max quantity must be positive")
	}

	switch c.Broker.Mode {
	case BrokerModePaper:
		// No endpoints required.
	case BrokerModeLive:
		if !strings.HasPrefix(c.Broker.RestURL, "http://") && !strings.HasPrefix(c.Broker.RestURL, "https://") {
			return fmt.Errorf("invalid broker REST URL: %s", c.Broker.RestURL)
		}
		for _, u := range []string{c.Broker.MarketStreamURL, c.Broker.OrderStreamURL} {
			if !strings.HasPrefix(u, "ws://") && !strings.HasPrefix(u, "wss://") {
				return fmt.Errorf("invalid broker stream URL: %s", u)
			}
		}
		if c.Broker.KeyID == "" || c.Broker.SecretKey == "" {
			return fmt.Errorf("live mode requires broker credentials")
		}
	default:
		return fmt.Errorf("unknown broker mode: %s", c.Broker.Mode)
	}

	if c.Metrics.ListenAddr == "" {
		return fmt.Errorf("metrics listen address is required")
	}
	return nil
}

// overrideWithEnv lets environment variables take precedence over the file
// so credentials need not live on disk.
func overrideWithEnv(cfg *Config) {
	if key := os.Getenv("HFTISH_API_KEY"); key != "" {
		cfg.Broker.KeyID = key
	}
	if secret := os.Getenv("HFTISH_API_SECRET"); secret != "" {
		cfg.Broker.SecretKey = secret
	}
}
