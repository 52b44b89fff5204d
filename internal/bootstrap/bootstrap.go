// Package bootstrap opens the stores, queue and service described by a
// config.Config. Both binaries share it.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"forecast-guard/internal/config"
	"forecast-guard/internal/events"
	"forecast-guard/internal/queue"
	"forecast-guard/internal/repair"
	"forecast-guard/internal/storage"
	chstore "forecast-guard/internal/storage/clickhouse"
	"forecast-guard/internal/storage/memory"
	"forecast-guard/internal/storage/migrations"
	pgstore "forecast-guard/internal/storage/postgres"
	"forecast-guard/internal/validation"
)

// ErrNoDatabases is returned when neither memory mode nor both DSNs are configured.
var ErrNoDatabases = errors.New("--postgres-dsn and --clickhouse-dsn are required unless --use-memory is set")

// Deps holds everything a command needs.
type Deps struct {
	Config  *config.Config
	Store   storage.ForecastStore
	Runs    storage.ValidationRunStore
	Queue   queue.Queue // nil when no queue is configured
	Repair  *repair.Engine
	Service *validation.Service

	closers []func()
}

// Options adjusts what Open builds.
type Options struct {
	Logger zerolog.Logger
	Hub    *events.Hub // nil disables events
	DryRun bool
	Now    func() time.Time
}

// Open connects to the configured backends. In memory mode the store is
// seeded with validation.Fixtures.
func Open(ctx context.Context, cfg *config.Config, opts Options) (*Deps, error) {
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	d := &Deps{Config: cfg}

	var err error
	if cfg.UseMemory {
		err = d.openMemory(ctx, opts.Now)
	} else {
		err = d.openDatabases(ctx, cfg)
	}
	if err != nil {
		d.Close()
		return nil, err
	}

	d.Repair = repair.NewEngine(d.Store).
		WithDryRun(opts.DryRun).
		WithLogger(opts.Logger.With().Str("component", "repair").Logger()).
		WithClock(opts.Now)
	if cfg.RepairWritesPerSecond > 0 {
		burst := int(cfg.RepairWritesPerSecond)
		if burst < 1 {
			burst = 1
		}
		d.Repair = d.Repair.WithLimiter(rate.NewLimiter(rate.Limit(cfg.RepairWritesPerSecond), burst))
	}

	svcOpts := validation.Options{
		Store:      d.Store,
		Runs:       d.Runs,
		Repairer:   d.Repair,
		WindowDays: cfg.WindowDays,
		Logger:     opts.Logger.With().Str("component", "validation").Logger(),
		Now:        opts.Now,
	}
	if opts.Hub != nil {
		svcOpts.Hub = opts.Hub
	}
	if d.Queue != nil {
		svcOpts.Queue = d.Queue
	}
	d.Service = validation.New(svcOpts)

	return d, nil
}

func (d *Deps) openMemory(ctx context.Context, now func() time.Time) error {
	store := memory.NewForecastStore()
	if err := validation.LoadFixtures(ctx, store, now()); err != nil {
		return err
	}
	d.Store = store
	d.Runs = memory.NewValidationRunStore()
	d.Queue = queue.NewMemoryQueue(queue.Options{
		Capacity: d.Config.QueueCapacity,
		TTL:      d.Config.QueueTTL,
	})
	return nil
}

func (d *Deps) openDatabases(ctx context.Context, cfg *config.Config) error {
	if !cfg.HasDatabases() {
		return ErrNoDatabases
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	d.closers = append(d.closers, pool.Close)
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		return fmt.Errorf("postgres migrations: %w", err)
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
	if err != nil {
		return fmt.Errorf("clickhouse migrations: %w", err)
	}
	d.closers = append(d.closers, func() { _ = conn.Close() })

	d.Store = pgstore.NewForecastStore(pool)
	d.Runs = chstore.NewValidationRunStore(conn)

	if cfg.RedisAddr != "" {
		q, err := queue.NewRedisQueue(cfg.RedisAddr, cfg.RedisDB, cfg.QueueKey, queue.Options{
			Capacity: cfg.QueueCapacity,
			TTL:      cfg.QueueTTL,
		})
		if err != nil {
			return fmt.Errorf("open update queue: %w", err)
		}
		d.closers = append(d.closers, func() { _ = q.Close() })
		d.Queue = q
	}
	return nil
}

// Close releases connections in reverse order of opening.
func (d *Deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
	d.closers = nil
}
