// Package util contains the wiring shared by the commands.
package util

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgx-contrib/pgxtrace"
	otlpruntime "go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/mpapenbr/racetiming-analytics/log"
	"github.com/mpapenbr/racetiming-analytics/pkg/config"
	"github.com/mpapenbr/racetiming-analytics/pkg/db/postgres"
	"github.com/mpapenbr/racetiming-analytics/pkg/notify"
	"github.com/mpapenbr/racetiming-analytics/pkg/storage"
	"github.com/mpapenbr/racetiming-analytics/pkg/utils"
)

func Layout() storage.Layout {
	return storage.NewLayout(config.BaseDir, config.PDFDir, config.RawDir, config.CleanDir)
}

// StartTelemetry sets up telemetry if enabled.
// The returned value is nil if telemetry is disabled or could not be set up.
func StartTelemetry(ctx context.Context) *config.Telemetry {
	if !config.EnableTelemetry {
		return nil
	}
	log.Info("Enabling telemetry")
	telemetry, err := config.SetupTelemetry(ctx)
	if err != nil {
		log.Warn("Could not setup telemetry", log.ErrorField(err))
		return nil
	}
	err = otlpruntime.Start(otlpruntime.WithMinimumReadMemStatsInterval(time.Second))
	if err != nil {
		log.Warn("Could not start runtime metrics", log.ErrorField(err))
	}
	return telemetry
}

func waitTimeout() time.Duration {
	timeout, err := time.ParseDuration(config.WaitForServices)
	if err != nil {
		log.Warn("Invalid duration value. Setting default 60s", log.ErrorField(err))
		timeout = 60 * time.Second
	}
	return timeout
}

// WaitForServices waits until all addresses accept tcp connections.
// Empty addresses are ignored.
func WaitForServices(addrs ...string) error {
	timeout := waitTimeout()
	wg := sync.WaitGroup{}
	errs := make([]error, len(addrs))
	for i, addr := range addrs {
		if addr == "" {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = utils.WaitForTCP(addr, timeout)
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

// NewSQLLogger creates the logger for database statements.
// It uses its own level (SQLLogLevel).
func NewSQLLogger() *log.Logger {
	level, err := log.ParseLevel(config.SQLLogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	opts := []log.Option{log.WithCaller(true), log.AddCallerSkip(1)}
	if config.LogFormat == "json" {
		return log.New(os.Stderr, level, opts...).Named("sql")
	}
	return log.DevLogger(os.Stderr, level, opts...).Named("sql")
}

// NewPool waits for the database and connects to it.
// Statements are logged at debug level and traced if telemetry is active.
func NewPool(ctx context.Context, telemetry *config.Telemetry) (*pgxpool.Pool, error) {
	addr := utils.ExtractFromDBURL(config.DB)
	if addr == "" {
		return nil, fmt.Errorf("invalid database url")
	}
	if err := WaitForServices(addr); err != nil {
		return nil, fmt.Errorf("database not ready: %w", err)
	}
	pgTracer := pgxtrace.CompositeQueryTracer{
		postgres.NewMyTracer(NewSQLLogger(), log.DebugLevel),
	}
	if telemetry != nil {
		pgTracer = append(pgTracer, postgres.NewOtlpTracer())
	}
	return postgres.InitWithUrl(ctx, config.DB, postgres.WithTracer(pgTracer))
}

// NewNotifier connects to NATS if NatsURL is set.
// The returned func releases the connection.
func NewNotifier() (notify.Notifier, func(), error) {
	if config.NatsURL == "" {
		return notify.Noop{}, func() {}, nil
	}
	if err := WaitForServices(utils.ExtractFromNatsURL(config.NatsURL)); err != nil {
		return nil, nil, fmt.Errorf("nats not ready: %w", err)
	}
	nc, err := notify.Connect(config.NatsURL)
	if err != nil {
		return nil, nil, err
	}
	closer := func() {
		if err := nc.Drain(); err != nil {
			log.Warn("nats drain", log.ErrorField(err))
		}
	}
	return notify.NewNatsNotifier(nc, notify.WithLogger(log.Default().Named("notify"))),
		closer, nil
}
