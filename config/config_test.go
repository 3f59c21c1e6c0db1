package config

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NotNil(t, cfg)
	assert.Equal(t, "USD", cfg.Account.Currency)
	assert.Equal(t, 100000.0, cfg.Account.Cash)
	assert.Equal(t, 1.0, cfg.Trading.DefaultCommission)
	assert.Equal(t, "sqlite", cfg.Journal.Type)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	mod := func(f func(c *Config)) *Config {
		c := Default()
		f(c)
		return c
	}
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid config",
			config:  Default(),
			wantErr: false,
		},
		{
			name:    "wrong currency",
			config:  mod(func(c *Config) { c.Account.Currency = "EUR" }),
			wantErr: true,
			errMsg:  "account.currency must be USD",
		},
		{
			name:    "negative cash",
			config:  mod(func(c *Config) { c.Account.Cash = -1000 }),
			wantErr: true,
			errMsg:  "account.cash cannot be negative",
		},
		{
			name:    "negative commission",
			config:  mod(func(c *Config) { c.Trading.DefaultCommission = -1 }),
			wantErr: true,
			errMsg:  "trading.default_commission cannot be negative",
		},
		{
			name:    "NaN commission",
			config:  mod(func(c *Config) { c.Trading.DefaultCommission = math.NaN() }),
			wantErr: true,
			errMsg:  "trading.default_commission cannot be negative",
		},
		{
			name:   "zero commission",
			config: mod(func(c *Config) { c.Trading.DefaultCommission = 0 }),
		},
		{
			name:    "infinite default price",
			config:  mod(func(c *Config) { c.Pricing.DefaultPrice = math.Inf(1) }),
			wantErr: true,
			errMsg:  "pricing.default_price must be positive",
		},
		{
			name:    "unknown price source",
			config:  mod(func(c *Config) { c.Pricing.Source = "broker" }),
			wantErr: true,
			errMsg:  "pricing.source must be 'static' or 'mock'",
		},
		{
			name:    "zero default price",
			config:  mod(func(c *Config) { c.Pricing.DefaultPrice = 0 }),
			wantErr: true,
			errMsg:  "pricing.default_price must be positive",
		},
		{
			name:    "bad static price",
			config:  mod(func(c *Config) { c.Pricing.Prices = map[string]float64{"AAPL": -1} }),
			wantErr: true,
			errMsg:  "pricing.prices[AAPL] must be positive",
		},
		{
			name:    "bad timeout",
			config:  mod(func(c *Config) { c.Pricing.Timeout = "soon" }),
			wantErr: true,
			errMsg:  "pricing.timeout",
		},
		{
			name:    "sqlite without path",
			config:  mod(func(c *Config) { c.Journal.DBPath = "" }),
			wantErr: true,
			errMsg:  "journal db_path required for SQLite type",
		},
		{
			name:    "memory journal needs no path",
			config:  mod(func(c *Config) { c.Journal = JournalConfig{Type: "memory"} }),
			wantErr: false,
		},
		{
			name:    "port out of range",
			config:  mod(func(c *Config) { c.Server.Port = 70000 }),
			wantErr: true,
			errMsg:  "server.port must be between 1 and 65535",
		},
		{
			name:    "bad cron spec",
			config:  mod(func(c *Config) { c.Scheduler.ExpirySpec = "every day" }),
			wantErr: true,
			errMsg:  "scheduler.expiry_spec",
		},
		{
			name: "disabled scheduler ignores expression",
			config: mod(func(c *Config) {
				c.Scheduler.Enabled = false
				c.Scheduler.ExpirySpec = ""
			}),
			wantErr: false,
		},
		{
			name:    "bad log level",
			config:  mod(func(c *Config) { c.Log.Level = "loud" }),
			wantErr: true,
			errMsg:  "log.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name     string
		filename string
	}{
		{"JSON format", "config.json"},
		{"YAML format", "config.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(tmpDir, tt.filename)

			original := Default()
			original.Account.Cash = 50000
			original.Pricing.Source = "static"
			original.Pricing.Prices = map[string]float64{"AAPL": 182.5}

			err := original.SaveToFile(path)
			require.NoError(t, err)

			loaded, err := LoadFromFile(path)
			require.NoError(t, err)

			assert.Equal(t, original.Account.Cash, loaded.Account.Cash)
			assert.Equal(t, original.Pricing.Source, loaded.Pricing.Source)
			assert.Equal(t, 182.5, loaded.Pricing.Prices["AAPL"])
			assert.Equal(t, original.Scheduler.ExpirySpec, loaded.Scheduler.ExpirySpec)
		})
	}
}

func TestLoadFromFilePartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("account:\n  cash: 2500\n"), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2500.0, cfg.Account.Cash)
	// untouched sections keep their defaults
	assert.Equal(t, "USD", cfg.Account.Currency)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadInvalidFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "invalid.json")

	err := os.WriteFile(path, []byte("invalid json {{{"), 0644)
	require.NoError(t, err)

	_, err = LoadFromFile(path)
	assert.Error(t, err)

	_, err = LoadFromFile(filepath.Join(tmpDir, "missing.yaml"))
	assert.Error(t, err)
}

func TestParseTimeout(t *testing.T) {
	d, err := PricingConfig{Timeout: "250ms"}.ParseTimeout()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, d)

	d, err = PricingConfig{}.ParseTimeout()
	require.NoError(t, err)
	assert.Zero(t, d)
}

func TestApplyEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(
		"OPTFOLIO_DB=/tmp/book.db\nOPTFOLIO_PORT=9100\nOPTFOLIO_DEFAULT_COMMISSION=0.65\nOPTFOLIO_DEV_MODE=true\n"), 0644))

	cfg := Default()
	cfg.Journal.Type = "memory"
	require.NoError(t, ApplyEnv(cfg, path))

	assert.Equal(t, "sqlite", cfg.Journal.Type)
	assert.Equal(t, "/tmp/book.db", cfg.Journal.DBPath)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 0.65, cfg.Trading.DefaultCommission)
	assert.True(t, cfg.Server.DevMode)

	_, present := os.LookupEnv(EnvPort)
	assert.False(t, present, "env file must not leak into the process")
}

func TestApplyEnvProcessWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("OPTFOLIO_LOG_LEVEL=debug\n"), 0644))
	t.Setenv(EnvLogLevel, "warn")

	cfg := Default()
	require.NoError(t, ApplyEnv(cfg, path))
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestApplyEnvBadValue(t *testing.T) {
	t.Setenv(EnvPort, "eighty")
	err := ApplyEnv(Default())
	assert.Error(t, err)
}

func TestPricingOracle(t *testing.T) {
	ctx := context.Background()

	static := PricingConfig{Source: "static", Prices: map[string]float64{"AAPL": 190}}.Oracle()
	p, err := static.Lookup(ctx, "aapl")
	require.NoError(t, err)
	assert.Equal(t, 190.0, p)
	_, err = static.Lookup(ctx, "MSFT")
	assert.Error(t, err)

	mock := PricingConfig{Source: "mock", Prices: map[string]float64{"AAPL": 190}}.Oracle()
	p, err = mock.Lookup(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 190.0, p)
	p, err = mock.Lookup(ctx, "MSFT")
	require.NoError(t, err)
	assert.Equal(t, 358.75, p)
}
