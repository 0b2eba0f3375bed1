package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

const (
	connectTimeout = 5 * time.Second
	healthTimeout  = 2 * time.Second
)

// DB is the Postgres pool behind the key-value table and the health check
type DB struct {
	*pgxpool.Pool
	logger *logrus.Logger
}

// Config is the pool shape. Zero fields take the defaults below.
type Config struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

func (c Config) apply(pc *pgxpool.Config) {
	pc.MaxConns = orDefault(c.MaxConns, 10)
	pc.MinConns = min(orDefault(c.MinConns, 1), pc.MaxConns)
	pc.MaxConnLifetime = orDefault(c.MaxConnLifetime, time.Hour)
	pc.MaxConnIdleTime = orDefault(c.MaxConnIdleTime, 30*time.Minute)
}

func orDefault[T int32 | time.Duration](v, d T) T {
	if v <= 0 {
		return d
	}
	return v
}

// New opens the pool and pings it once
func New(ctx context.Context, cfg Config, logger *logrus.Logger) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	cfg.apply(poolConfig)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"host":      poolConfig.ConnConfig.Host,
		"database":  poolConfig.ConnConfig.Database,
		"max_conns": poolConfig.MaxConns,
	}).Info("Connected to database")

	return &DB{Pool: pool, logger: logger}, nil
}

// Migrate applies pending migrations from the embedded set
func (db *DB) Migrate(ctx context.Context) error {
	return NewMigrator(db.Pool, db.logger).Up(ctx)
}

func (db *DB) Close() {
	if db.Pool == nil {
		return
	}
	db.Pool.Close()
	db.logger.Debug("Database pool closed")
}

// Health pings with a short deadline
func (db *DB) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	return db.Ping(ctx)
}
