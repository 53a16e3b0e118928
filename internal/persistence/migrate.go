package persistence

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"enhancer/internal/logger"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const downMarker = "-- +migrate Down"

// Migration is one numbered schema change. Files are named NNN_description.sql and may
// carry a "-- +migrate Down" section used by Rollback.
type Migration struct {
	Version     int
	Description string
	UpSQL       string
	DownSQL     string
}

// MigrationStatus reports whether a migration has been applied
type MigrationStatus struct {
	Version     int
	Description string
	Applied     bool
}

// MigrationManager applies the embedded migrations to a PostgresStore
type MigrationManager struct {
	store *PostgresStore
	log   *slog.Logger
}

// NewMigrationManager creates a new migration manager
func NewMigrationManager(store *PostgresStore) *MigrationManager {
	return &MigrationManager{
		store: store,
		log:   logger.With("component", "migrations"),
	}
}

// Migrate runs all pending migrations, each in its own transaction
func (m *MigrationManager) Migrate(ctx context.Context) (int, error) {
	if err := m.ensureMigrationsTable(ctx); err != nil {
		return 0, fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	available, err := LoadMigrations()
	if err != nil {
		return 0, err
	}

	count := 0
	for _, migration := range available {
		if applied[migration.Version] {
			continue
		}
		if err := m.apply(ctx, migration); err != nil {
			return count, fmt.Errorf("failed to apply migration %d: %w", migration.Version, err)
		}
		count++
	}

	if count == 0 {
		m.log.Info("No pending migrations")
	} else {
		m.log.Info("Migration completed successfully", "applied", count)
	}
	return count, nil
}

// Status lists every embedded migration with its applied flag
func (m *MigrationManager) Status(ctx context.Context) ([]MigrationStatus, error) {
	if err := m.ensureMigrationsTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return nil, err
	}

	available, err := LoadMigrations()
	if err != nil {
		return nil, err
	}

	status := make([]MigrationStatus, 0, len(available))
	for _, migration := range available {
		status = append(status, MigrationStatus{
			Version:     migration.Version,
			Description: migration.Description,
			Applied:     applied[migration.Version],
		})
	}
	return status, nil
}

// Rollback reverts the most recently applied migration using its Down section.
func (m *MigrationManager) Rollback(ctx context.Context) (int, error) {
	if err := m.ensureMigrationsTable(ctx); err != nil {
		return 0, fmt.Errorf("failed to create migrations table: %w", err)
	}

	var last int
	err := m.store.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&last)
	if err != nil {
		return 0, err
	}
	if last == 0 {
		return 0, fmt.Errorf("no migrations to rollback")
	}

	available, err := LoadMigrations()
	if err != nil {
		return 0, err
	}
	var target *Migration
	for i := range available {
		if available[i].Version == last {
			target = &available[i]
		}
	}
	if target == nil {
		return 0, fmt.Errorf("applied migration %d is not embedded in this binary", last)
	}

	m.log.Warn("Rolling back migration", "version", last, "description", target.Description)

	tx, err := m.store.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if target.DownSQL != "" {
		if _, err := tx.ExecContext(ctx, target.DownSQL); err != nil {
			return 0, fmt.Errorf("failed to execute down migration: %w", err)
		}
	} else {
		m.log.Warn("Migration has no down section; only its record is removed", "version", last)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM schema_migrations WHERE version = $1`, last); err != nil {
		return 0, fmt.Errorf("failed to remove migration record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit rollback: %w", err)
	}

	return last, nil
}

func (m *MigrationManager) ensureMigrationsTable(ctx context.Context) error {
	_, err := m.store.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

func (m *MigrationManager) appliedVersions(ctx context.Context) (map[int]bool, error) {
	rows, err := m.store.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func (m *MigrationManager) apply(ctx context.Context, migration Migration) error {
	m.log.Info("Applying migration", "version", migration.Version, "description", migration.Description)

	tx, err := m.store.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, migration.UpSQL); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO schema_migrations (version, description)
		VALUES ($1, $2)
		ON CONFLICT (version) DO NOTHING
	`, migration.Version, migration.Description)
	if err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	return tx.Commit()
}

// LoadMigrations parses the embedded migration files, sorted by version
func LoadMigrations() ([]Migration, error) {
	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var migrations []Migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		// "001_create_articles.sql" -> 1, "create articles"
		parts := strings.SplitN(entry.Name(), "_", 2)
		if len(parts) < 2 {
			return nil, fmt.Errorf("migration file %s has no version prefix", entry.Name())
		}
		version, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("migration file %s has invalid version: %w", entry.Name(), err)
		}

		content, err := migrationFiles.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file %s: %w", entry.Name(), err)
		}
		up, down := splitMigration(string(content))

		migrations = append(migrations, Migration{
			Version:     version,
			Description: strings.ReplaceAll(strings.TrimSuffix(parts[1], ".sql"), "_", " "),
			UpSQL:       up,
			DownSQL:     down,
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

func splitMigration(content string) (up, down string) {
	up, down, _ = strings.Cut(content, downMarker)
	up = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(up), "-- +migrate Up"))
	return up, strings.TrimSpace(down)
}
