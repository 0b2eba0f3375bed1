package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Executor is the part of pgxpool.Pool the migrator needs
type Executor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Migrator handles database migrations
type Migrator struct {
	db     Executor
	files  fs.FS
	logger *logrus.Logger
}

// NewMigrator creates a migrator over the embedded migrations
func NewMigrator(db Executor, logger *logrus.Logger) *Migrator {
	return &Migrator{db: db, files: migrationsFS, logger: logger}
}

// migration is one versioned pair of up/down files
type migration struct {
	Version string
	Up      string
	Down    string
}

// migrations lists the embedded migrations ordered by version
func migrations(files fs.FS) ([]migration, error) {
	entries, err := fs.ReadDir(files, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	byVersion := make(map[string]*migration)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		// "001" from "001_create_key_value.up.sql"
		version := strings.SplitN(name, "_", 2)[0]
		m, ok := byVersion[version]
		if !ok {
			m = &migration{Version: version}
			byVersion[version] = m
		}
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			m.Up = name
		case strings.HasSuffix(name, ".down.sql"):
			m.Down = name
		}
	}

	out := make([]migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.Up == "" {
			return nil, fmt.Errorf("migration %s has no up file", m.Version)
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// Up runs all pending migrations
func (m *Migrator) Up(ctx context.Context) error {
	if err := m.createMigrationsTable(ctx); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	all, err := migrations(m.files)
	if err != nil {
		return err
	}

	for _, mig := range all {
		log := m.logger.WithField("migration", mig.Up)

		applied, err := m.isMigrationApplied(ctx, mig.Version)
		if err != nil {
			return fmt.Errorf("failed to check migration status: %w", err)
		}
		if applied {
			log.Debug("Migration already applied, skipping")
			continue
		}

		content, err := fs.ReadFile(m.files, "migrations/"+mig.Up)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", mig.Up, err)
		}

		log.Info("Applying migration")
		if _, err := m.db.Exec(ctx, string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", mig.Up, err)
		}

		if err := m.recordMigration(ctx, mig.Version); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", mig.Up, err)
		}
	}

	m.logger.WithField("count", len(all)).Info("All migrations applied")
	return nil
}

// Down rolls back the last migration
func (m *Migrator) Down(ctx context.Context) error {
	var version string
	err := m.db.QueryRow(ctx, `
		SELECT version FROM schema_migrations
		ORDER BY version DESC
		LIMIT 1
	`).Scan(&version)
	if err != nil {
		return fmt.Errorf("failed to get last migration: %w", err)
	}

	all, err := migrations(m.files)
	if err != nil {
		return err
	}

	var downFile string
	for _, mig := range all {
		if mig.Version == version {
			downFile = mig.Down
			break
		}
	}
	if downFile == "" {
		return fmt.Errorf("down migration file not found for version %s", version)
	}

	content, err := fs.ReadFile(m.files, "migrations/"+downFile)
	if err != nil {
		return fmt.Errorf("failed to read migration file %s: %w", downFile, err)
	}

	m.logger.WithField("migration", downFile).Info("Rolling back migration")
	if _, err := m.db.Exec(ctx, string(content)); err != nil {
		return fmt.Errorf("failed to execute migration %s: %w", downFile, err)
	}

	if _, err := m.db.Exec(ctx, "DELETE FROM schema_migrations WHERE version = $1", version); err != nil {
		return fmt.Errorf("failed to remove migration record: %w", err)
	}
	return nil
}

func (m *Migrator) createMigrationsTable(ctx context.Context) error {
	_, err := m.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT NOW() NOT NULL
		)
	`)
	return err
}

func (m *Migrator) isMigrationApplied(ctx context.Context, version string) (bool, error) {
	var count int
	err := m.db.QueryRow(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE version = $1", version).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (m *Migrator) recordMigration(ctx context.Context, version string) error {
	_, err := m.db.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", version)
	return err
}
