package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"

	"github.com/bastionpay/bastion/internal/config"
	loggerPkg "github.com/bastionpay/bastion/internal/logger"
)

type Database struct {
	Pool *pgxpool.Pool
	log  *zerolog.Logger
}

// zerologTracer adapts the pgx tracelog interface onto zerolog.
type zerologTracer struct {
	log zerolog.Logger
}

func (t *zerologTracer) Log(ctx context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
	var event *zerolog.Event
	switch level {
	case tracelog.LogLevelTrace, tracelog.LogLevelDebug:
		event = t.log.Debug()
	case tracelog.LogLevelInfo:
		event = t.log.Debug()
	case tracelog.LogLevelWarn:
		event = t.log.Warn()
	case tracelog.LogLevelError:
		event = t.log.Error()
	default:
		event = t.log.Info()
	}
	for k, v := range data {
		event = event.Interface(k, v)
	}
	event.Msg(msg)
}

func New(cfg *config.Config, log *zerolog.Logger, ls *loggerPkg.LoggerService) (*Database, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolCfg.MaxConns = int32(cfg.Database.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.Database.MaxIdleConns)
	poolCfg.MaxConnLifetime = time.Duration(cfg.Database.ConnMaxLifetime) * time.Second
	poolCfg.MaxConnIdleTime = time.Duration(cfg.Database.ConnMaxIdleTime) * time.Second

	pgxLogLevel := zerolog.WarnLevel
	if !cfg.Observability.IsProduction() {
		pgxLogLevel = zerolog.DebugLevel
	}
	poolCfg.ConnConfig.Tracer = &tracelog.TraceLog{
		Logger:   &zerologTracer{log: loggerPkg.NewPgxLogger(pgxLogLevel)},
		LogLevel: tracelog.LogLevel(loggerPkg.GetPgxTraceLogLevel(pgxLogLevel)),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().
		Str("host", cfg.Database.Host).
		Str("database", cfg.Database.Name).
		Msg("Connected to PostgreSQL successfully")

	return &Database{Pool: pool, log: log}, nil
}

func (d *Database) Ping(ctx context.Context) error {
	return d.Pool.Ping(ctx)
}

func (d *Database) Close() {
	d.log.Info().Msg("Closing database connection pool")
	d.Pool.Close()
}
