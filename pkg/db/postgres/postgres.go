package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgx-contrib/pgxtrace"

	"github.com/mpapenbr/iracelog-stewarding-go/log"
)

type PoolConfigOption func(cfg *pgxpool.Config)

// WithTracer logs every executed statement with the given level
func WithTracer(logger *log.Logger, level log.Level) PoolConfigOption {
	return addTracer(&queryLogger{l: logger, level: level})
}

// WithOtlpTracer creates spans for executed statements
func WithOtlpTracer() PoolConfigOption {
	return addTracer(otelpgx.NewTracer())
}

func addTracer(tracer pgx.QueryTracer) PoolConfigOption {
	return func(cfg *pgxpool.Config) {
		if c, ok := cfg.ConnConfig.Tracer.(pgxtrace.CompositeQueryTracer); ok {
			cfg.ConnConfig.Tracer = append(c, tracer)
			return
		}
		cfg.ConnConfig.Tracer = pgxtrace.CompositeQueryTracer{tracer}
	}
}

func WithMaxConns(n int32) PoolConfigOption {
	return func(cfg *pgxpool.Config) {
		cfg.MaxConns = n
	}
}

// InitWithURL creates a connection pool and checks the connection
//
//nolint:whitespace // editor/linter issue
func InitWithURL(
	ctx context.Context, url string, opts ...PoolConfigOption,
) (*pgxpool.Pool, error) {
	dbConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}
	for _, opt := range opts {
		opt(dbConfig)
	}

	pool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create the database pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to get a valid database connection: %w", err)
	}
	return pool, nil
}

type queryLogger struct {
	l     *log.Logger
	level log.Level
}

type queryStartKey struct{}

//nolint:whitespace // can't make the linters happy
func (q *queryLogger) TraceQueryStart(
	ctx context.Context,
	_ *pgx.Conn,
	data pgx.TraceQueryStartData,
) context.Context {
	if !q.l.Enabled(q.level) {
		return ctx
	}
	q.l.Log(q.level, "Executing",
		log.String("sql", data.SQL), log.Any("args", data.Args))
	return context.WithValue(ctx, queryStartKey{}, time.Now())
}

//nolint:whitespace // can't make the linters happy
func (q *queryLogger) TraceQueryEnd(
	ctx context.Context,
	_ *pgx.Conn,
	data pgx.TraceQueryEndData,
) {
	start, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok {
		return
	}
	fields := []log.Field{
		log.String("tag", data.CommandTag.String()),
		log.Duration("duration", time.Since(start)),
	}
	if data.Err != nil {
		fields = append(fields, log.ErrorField(data.Err))
	}
	q.l.Log(q.level, "Executed", fields...)
}
