package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config represents the complete optfolio configuration
type Config struct {
	Account   AccountConfig   `json:"account" yaml:"account"`
	Trading   TradingConfig   `json:"trading" yaml:"trading"`
	Pricing   PricingConfig   `json:"pricing" yaml:"pricing"`
	Journal   JournalConfig   `json:"journal" yaml:"journal"`
	Server    ServerConfig    `json:"server" yaml:"server"`
	Scheduler SchedulerConfig `json:"scheduler" yaml:"scheduler"`
	Log       LogConfig       `json:"log" yaml:"log"`
}

// AccountConfig seeds the balances of a new journal
type AccountConfig struct {
	Currency       string  `json:"currency" yaml:"currency"`
	Cash           float64 `json:"cash" yaml:"cash"`
	PortfolioValue float64 `json:"portfolio_value" yaml:"portfolio_value"`
}

type TradingConfig struct {
	DefaultCommission float64 `json:"default_commission" yaml:"default_commission"`
}

// PricingConfig selects the price oracle
type PricingConfig struct {
	Source       string             `json:"source" yaml:"source"` // "static" or "mock"
	Prices       map[string]float64 `json:"prices,omitempty" yaml:"prices,omitempty"`
	DefaultPrice float64            `json:"default_price" yaml:"default_price"`
	Timeout      string             `json:"timeout" yaml:"timeout"` // e.g. "2s"
	Seed         int64              `json:"seed,omitempty" yaml:"seed,omitempty"`
}

// ParseTimeout converts the timeout string to time.Duration
func (p PricingConfig) ParseTimeout() (time.Duration, error) {
	if p.Timeout == "" {
		return 0, nil
	}
	return time.ParseDuration(p.Timeout)
}

// JournalConfig contains persistence parameters
type JournalConfig struct {
	Type   string `json:"type" yaml:"type"` // "sqlite" or "memory"
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

type ServerConfig struct {
	Port           int      `json:"port" yaml:"port"`
	DevMode        bool     `json:"dev_mode" yaml:"dev_mode"`
	AllowedOrigins []string `json:"allowed_origins,omitempty" yaml:"allowed_origins,omitempty"`
}

// SchedulerConfig drives the expiry sweep. ExpirySpec is a cron expression with
// a leading seconds field.
type SchedulerConfig struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	ExpirySpec string `json:"expiry_spec" yaml:"expiry_spec"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Pretty bool   `json:"pretty" yaml:"pretty"`
}

// LoadFromFile loads configuration from a file (JSON or YAML based on extension)
func LoadFromFile(path string) (*Config, error) {
	cfg, err := decode(path)
	if err != nil {
		return nil, err
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Load reads path (or the defaults when path is empty), applies .env and
// environment overrides, then validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = decode(path); err != nil {
			return nil, err
		}
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func decode(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}
	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	// Determine format by extension
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Account.Currency != "USD" {
		return fmt.Errorf("account.currency must be USD")
	}
	if !nonNegative(c.Account.Cash) {
		return fmt.Errorf("account.cash cannot be negative")
	}
	if !nonNegative(c.Account.PortfolioValue) {
		return fmt.Errorf("account.portfolio_value cannot be negative")
	}
	if !nonNegative(c.Trading.DefaultCommission) {
		return fmt.Errorf("trading.default_commission cannot be negative")
	}
	if c.Pricing.Source != "static" && c.Pricing.Source != "mock" {
		return fmt.Errorf("pricing.source must be 'static' or 'mock'")
	}
	if !positive(c.Pricing.DefaultPrice) {
		return fmt.Errorf("pricing.default_price must be positive")
	}
	for sym, p := range c.Pricing.Prices {
		if !positive(p) {
			return fmt.Errorf("pricing.prices[%s] must be positive", sym)
		}
	}
	if _, err := c.Pricing.ParseTimeout(); err != nil {
		return fmt.Errorf("pricing.timeout: %w", err)
	}
	if c.Journal.Type != "sqlite" && c.Journal.Type != "memory" {
		return fmt.Errorf("journal.type must be 'sqlite' or 'memory'")
	}
	if c.Journal.Type == "sqlite" && c.Journal.DBPath == "" {
		return fmt.Errorf("journal db_path required for SQLite type")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Scheduler.Enabled {
		if _, err := cronParser.Parse(c.Scheduler.ExpirySpec); err != nil {
			return fmt.Errorf("scheduler.expiry_spec: %w", err)
		}
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

func nonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0)
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

// cronParser accepts the same six-field expressions as the scheduler.
var cronParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			Currency: "USD",
			Cash:     100000,
		},
		Trading: TradingConfig{
			DefaultCommission: 1.0,
		},
		Pricing: PricingConfig{
			Source:       "mock",
			DefaultPrice: 100,
			Timeout:      "2s",
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./optfolio.db",
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Scheduler: SchedulerConfig{
			Enabled: true,
			// weekdays, 16:05 after the close
			ExpirySpec: "0 5 16 * * 1-5",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
