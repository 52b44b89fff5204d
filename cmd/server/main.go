// Package main runs the validator as a long-lived service:
// - Scheduler: a validation cycle every --check-interval
// - HTTP: /health, /status, /quality, /metrics and the /ws event stream
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"forecast-guard/internal/bootstrap"
	"forecast-guard/internal/config"
	"forecast-guard/internal/events"
	"forecast-guard/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	v := config.New()
	flags := pflag.NewFlagSet("server", pflag.ContinueOnError)
	flags.String("postgres-dsn", "", "PostgreSQL connection string")
	flags.String("clickhouse-dsn", "", "ClickHouse connection string")
	flags.String("redis-addr", "", "Redis address for the update queue")
	flags.Bool("use-memory", false, "Use in-memory stores seeded with demo fixtures")
	flags.String("http-addr", ":9090", "HTTP listen address")
	flags.Duration("check-interval", time.Hour, "Validation cycle interval")
	flags.Bool("auto-repair", false, "Swap inverted bounds during scheduled cycles")
	flags.Int("window-days", 30, "Quality window in days (0 = all)")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.Bool("json", false, "Emit logs as JSON")

	if err := config.BindFlags(v, flags, map[string]string{
		config.KeyPostgresDSN:   "postgres-dsn",
		config.KeyClickhouseDSN: "clickhouse-dsn",
		config.KeyRedisAddr:     "redis-addr",
		config.KeyUseMemory:     "use-memory",
		config.KeyHTTPAddr:      "http-addr",
		config.KeyCheckInterval: "check-interval",
		config.KeyAutoRepair:    "auto-repair",
		config.KeyWindowDays:    "window-days",
		config.KeyLogLevel:      "log-level",
		config.KeyLogJSON:       "json",
	}); err != nil {
		return err
	}
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	logging.Setup(cfg.LogLevel, cfg.LogJSON)
	logger := logging.For("server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := events.NewHub(nil).WithLogger(logging.For("events"))
	defer hub.Close()

	deps, err := bootstrap.Open(ctx, cfg, bootstrap.Options{
		Logger: logger,
		Hub:    hub,
	})
	if err != nil {
		return fmt.Errorf("open backends: %w", err)
	}
	defer deps.Close()

	logger.Info().
		Str("http_addr", cfg.HTTPAddr).
		Dur("check_interval", cfg.CheckInterval).
		Bool("auto_repair", cfg.AutoRepair).
		Bool("memory", cfg.UseMemory).
		Msg("starting forecast validator")

	srv := NewServer(cfg, deps.Service, hub, logger)
	if err := srv.Run(ctx); err != nil {
		return err
	}

	logger.Info().Msg("shutdown complete")
	return nil
}
