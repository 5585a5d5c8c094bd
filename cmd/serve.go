package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/askdb/askdb/internal/api"
	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/credentials"
	"github.com/askdb/askdb/internal/gateway"
	"github.com/askdb/askdb/internal/logging"
	"github.com/askdb/askdb/internal/nlsql"
	"github.com/askdb/askdb/internal/pool"
	"github.com/askdb/askdb/internal/telemetry"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the query gateway server",
	Long:  `Start the HTTP gateway. Tenant databases are reached through shared connection pools created on first use.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Secret references in the config may point at ENV vars from a .env file.
		_ = godotenv.Load()

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		level := cfg.Logging.Level
		if logLevel != "" {
			level = logLevel
		}
		logger, err := logging.Setup(level, cfg.Logging.Directory)
		if err != nil {
			return fmt.Errorf("setting up logging: %w", err)
		}

		var sink telemetry.Sink = telemetry.NopSink{}
		if cfg.Telemetry.Endpoint != "" {
			sink = telemetry.NewHTTPSink(cfg.Telemetry.Endpoint, cfg.Telemetry.Token, logger)
		}

		resolver, err := credentials.New(&cfg.Credentials)
		if err != nil {
			return fmt.Errorf("configuring credentials: %w", err)
		}

		registry := pool.NewRegistry(pool.Config{
			MaxConns:         cfg.Database.MaxConns,
			ConnectTimeout:   time.Duration(cfg.Database.ConnectTimeoutSeconds) * time.Second,
			IdleTimeout:      time.Duration(cfg.Database.IdleTimeoutSeconds) * time.Second,
			StatementTimeout: time.Duration(cfg.Database.StatementTimeoutSeconds) * time.Second,
		}, logger, sink)
		defer registry.Close()

		completer := nlsql.NewHTTPCompleter(cfg.Generation)
		orch := nlsql.NewOrchestrator(completer, logger)
		gw := gateway.New(resolver, registry, orch, logger)

		port := cfg.Server.Port
		if servePort != 0 {
			port = servePort
		}
		srv := api.New(gw, logger, port,
			api.WithAuthSecret(cfg.Server.AuthSecret),
			api.WithRateLimit(cfg.Server.RateLimit.RequestsPerSecond, cfg.Server.RateLimit.Burst),
			api.WithTelemetry(sink),
		)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		select {
		case err := <-errCh:
			if err != nil && err != http.ErrServerClosed {
				return err
			}
		case <-ctx.Done():
			logger.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown: %w", err)
			}
			if err := sink.Flush(shutdownCtx); err != nil {
				logger.Warn("flushing telemetry", "error", err)
			}
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port override for the gateway server")
	rootCmd.AddCommand(serveCmd)
}
