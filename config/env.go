package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables that override file settings.
const (
	EnvDB                = "OPTFOLIO_DB"
	EnvLogLevel          = "OPTFOLIO_LOG_LEVEL"
	EnvPort              = "OPTFOLIO_PORT"
	EnvDefaultCommission = "OPTFOLIO_DEFAULT_COMMISSION"
	EnvDevMode           = "OPTFOLIO_DEV_MODE"
)

// ApplyEnv overlays environment settings on c. Values come from the process
// environment first, then from the given .env files (./.env when none are
// named and it exists). The process environment is never modified.
func ApplyEnv(c *Config, files ...string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err == nil {
			files = []string{".env"}
		}
	}
	dotenv := map[string]string{}
	if len(files) > 0 {
		m, err := godotenv.Read(files...)
		if err != nil {
			return fmt.Errorf("read env file: %w", err)
		}
		dotenv = m
	}
	getEnv := func(key string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return dotenv[key]
	}

	if v := getEnv(EnvDB); v != "" {
		c.Journal.Type = "sqlite"
		c.Journal.DBPath = v
	}
	if v := getEnv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := getEnv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPort, err)
		}
		c.Server.Port = port
	}
	if v := getEnv(EnvDefaultCommission); v != "" {
		comm, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvDefaultCommission, err)
		}
		c.Trading.DefaultCommission = comm
	}
	if v := getEnv(EnvDevMode); v != "" {
		dev, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvDevMode, err)
		}
		c.Server.DevMode = dev
	}
	return nil
}
