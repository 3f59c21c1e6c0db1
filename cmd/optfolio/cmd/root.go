package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/optfolio/account"
	"github.com/rustyeddy/optfolio/config"
	"github.com/rustyeddy/optfolio/internal/logger"
	"github.com/rustyeddy/optfolio/internal/metrics"
	"github.com/rustyeddy/optfolio/journal"
	"github.com/rustyeddy/optfolio/trading"
)

var rootCmd = &cobra.Command{
	Use:   "optfolio",
	Short: "An options portfolio ledger",
	Long: `Optfolio records stock and option trades and keeps the books on them.

It tracks:
  - Cash, collateral locked by cash-secured puts, and premium collected
  - The lifecycle of every option: close, roll, assignment, expiration
  - Per-symbol positions with cost basis and P/L
  - A durable SQLite journal with CSV and Org exports

Every change is previewed against the current balances before it is written.`,
	SilenceUsage: true,
}

var (
	cfgFile  string
	dbPath   string
	logLevel string
	pretty   bool
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to SQLite journal (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn, error or disabled")
	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", false, "human-readable log output")
}

// app is everything a command needs once configuration is resolved.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	journal journal.Journal
	sqlite  *journal.SQLite // nil for the memory journal
	engine  *trading.Engine
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.Journal.Type = "sqlite"
		cfg.Journal.DBPath = dbPath
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if pretty {
		cfg.Log.Pretty = true
	}
	return cfg, cfg.Validate()
}

func openApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Pretty,
		Output: cmd.ErrOrStderr(),
	})
	logger.SetGlobalLogger(log)

	a := &app{cfg: cfg, log: log, journal: journal.Discard{}}
	if cfg.Journal.Type == "sqlite" {
		a.sqlite, err = journal.NewSQLite(cfg.Journal.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		a.journal = a.sqlite
	}

	timeout, _ := cfg.Pricing.ParseTimeout()
	a.engine, err = trading.Open(ctx, trading.Config{
		Journal:           a.journal,
		Oracle:            cfg.Pricing.Oracle(),
		PriceTimeout:      timeout,
		DefaultPrice:      cfg.Pricing.DefaultPrice,
		DefaultCommission: &cfg.Trading.DefaultCommission,
		Log:               log,
		Observer:          metrics.Recorder{},
	}, account.Balances{
		Cash:           cfg.Account.Cash,
		PortfolioValue: cfg.Account.PortfolioValue,
	})
	if err != nil {
		_ = a.journal.Close()
		return nil, err
	}
	metrics.SetBalances(a.engine.Balances())
	return a, nil
}

func (a *app) Close() error {
	return a.journal.Close()
}

// withApp opens the journal and engine for the duration of fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}
