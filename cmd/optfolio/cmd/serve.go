package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/optfolio/internal/scheduler"
	"github.com/rustyeddy/optfolio/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the expiry scheduler",
	Long: `Serve the ledger over a JSON API with Prometheus metrics at /metrics.

When the scheduler is enabled, open options past their expiration are
expired on the configured cron schedule.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var servePort int

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		port := a.cfg.Server.Port
		if servePort > 0 {
			port = servePort
		}

		srvCfg := server.Config{
			Port:           port,
			Log:            a.log,
			Engine:         a.engine,
			DevMode:        a.cfg.Server.DevMode,
			AllowedOrigins: a.cfg.Server.AllowedOrigins,
		}
		if a.sqlite != nil {
			srvCfg.History = a.sqlite
		}
		srv := server.New(srvCfg)

		sched := scheduler.New(a.log)
		if a.cfg.Scheduler.Enabled {
			job := scheduler.NewExpiryJob(a.engine, a.log)
			if err := sched.AddJob(a.cfg.Scheduler.ExpirySpec, job); err != nil {
				return err
			}
			// catch up on anything that expired while we were down
			if err := sched.RunNow(job); err != nil {
				a.log.Warn().Err(err).Msg("Initial expiry sweep failed")
			}
			sched.Start()
			defer sched.Stop()
		}

		errCh := make(chan error, 1)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case err := <-errCh:
			return err
		case <-quit:
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}
