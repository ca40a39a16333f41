package postgres

import (
	"context"
	"fmt"

	"github.com/exaring/otelpgx"
	pgxuuid "github.com/jackc/pgx-gofrs-uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mpapenbr/racetiming-analytics/log"
)

type PoolConfigOption func(cfg *pgxpool.Config)

func WithTracer(tracer pgx.QueryTracer) PoolConfigOption {
	return func(cfg *pgxpool.Config) {
		cfg.ConnConfig.Tracer = tracer
	}
}

// InitWithUrl creates the pool and checks the connection.
func InitWithUrl(ctx context.Context, url string, opts ...PoolConfigOption) (
	*pgxpool.Pool, error,
) {
	dbConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	dbConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxuuid.Register(conn.TypeMap())
		return nil
	}
	for _, opt := range opts {
		opt(dbConfig)
	}

	pool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// NewOtlpTracer creates spans for queries.
func NewOtlpTracer() pgx.QueryTracer {
	return otelpgx.NewTracer()
}

type myQueryTracer struct {
	l     *log.Logger
	level log.Level
}

// NewMyTracer logs each query with its arguments on the given level.
func NewMyTracer(l *log.Logger, level log.Level) pgx.QueryTracer {
	return &myQueryTracer{l: l, level: level}
}

func (tracer *myQueryTracer) TraceQueryStart(
	ctx context.Context,
	_ *pgx.Conn,
	data pgx.TraceQueryStartData,
) context.Context {
	tracer.l.Log(tracer.level, "executing",
		log.String("sql", data.SQL),
		log.Any("args", data.Args))
	return ctx
}

func (tracer *myQueryTracer) TraceQueryEnd(
	_ context.Context,
	_ *pgx.Conn,
	data pgx.TraceQueryEndData,
) {
	if data.Err != nil {
		tracer.l.Log(tracer.level, "query failed", log.ErrorField(data.Err))
	}
}
