package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgExecutor is the subset of pgxpool.Pool used by PostgresBackend
type PgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresBackend stores records in the "KeyValue" table created by the migrate command
type PostgresBackend struct {
	db PgExecutor
}

// NewPostgresBackend wraps a pool
func NewPostgresBackend(db PgExecutor) *PostgresBackend {
	return &PostgresBackend{db: db}
}

func (b *PostgresBackend) Load(ctx context.Context, key string) ([]byte, int64, error) {
	var value string
	var version int64
	err := b.db.QueryRow(ctx, `
		SELECT value, version FROM "KeyValue" WHERE key = $1
	`, key).Scan(&value, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, 0, ErrNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("load %s: %w", key, err)
	}
	return []byte(value), version, nil
}

func (b *PostgresBackend) Store(ctx context.Context, key string, data []byte, expectedVersion int64) (int64, error) {
	var tag pgconn.CommandTag
	var err error
	if expectedVersion == 0 {
		tag, err = b.db.Exec(ctx, `
			INSERT INTO "KeyValue" (key, value, version, "updatedAt")
			VALUES ($1, $2, 1, NOW())
			ON CONFLICT (key) DO NOTHING
		`, key, string(data))
	} else {
		tag, err = b.db.Exec(ctx, `
			UPDATE "KeyValue"
			SET value = $2, version = version + 1, "updatedAt" = NOW()
			WHERE key = $1 AND version = $3
		`, key, string(data), expectedVersion)
	}
	if err != nil {
		return 0, fmt.Errorf("store %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return 0, ErrVersionConflict
	}
	return expectedVersion + 1, nil
}

func (b *PostgresBackend) Delete(ctx context.Context, key string) error {
	if _, err := b.db.Exec(ctx, `DELETE FROM "KeyValue" WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
