package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/kyleking/query-runner/internal/logging"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	Up          string
	Down        string
}

// MigrationManager handles database schema migrations
type MigrationManager struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewMigrationManager creates a new migration manager
func NewMigrationManager(db *sql.DB, logger *logging.Logger) *MigrationManager {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &MigrationManager{db: db, logger: logger}
}

// GetMigrations returns all available migrations in order
func (m *MigrationManager) GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Initial workspace schema",
			Up: `
				CREATE TABLE IF NOT EXISTS user_queries (
					id VARCHAR PRIMARY KEY,
					ordinal INTEGER NOT NULL,
					title VARCHAR NOT NULL,
					description TEXT NOT NULL,
					query_text TEXT NOT NULL,
					created_at TIMESTAMP
				);

				CREATE TABLE IF NOT EXISTS favorites (
					ordinal INTEGER PRIMARY KEY,
					title VARCHAR NOT NULL,
					origin VARCHAR NOT NULL,
					query_id VARCHAR NOT NULL DEFAULT '',
					description TEXT NOT NULL,
					query_text TEXT NOT NULL
				);

				CREATE TABLE IF NOT EXISTS history_entries (
					ordinal INTEGER PRIMARY KEY,
					title VARCHAR NOT NULL,
					query_text TEXT NOT NULL,
					executed_at TIMESTAMP NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_history_entries_title ON history_entries(title);
			`,
			Down: `
				DROP INDEX IF EXISTS idx_history_entries_title;
				DROP TABLE IF EXISTS history_entries;
				DROP TABLE IF EXISTS favorites;
				DROP TABLE IF EXISTS user_queries;
			`,
		},
		{
			Version:     2,
			Description: "Session settings",
			Up: `
				CREATE TABLE IF NOT EXISTS session_settings (
					key VARCHAR PRIMARY KEY,
					value VARCHAR NOT NULL
				);
			`,
			Down: `
				DROP TABLE IF EXISTS session_settings;
			`,
		},
	}
}

// LatestVersion returns the highest migration version
func (m *MigrationManager) LatestVersion() int {
	latest := 0
	for _, migration := range m.GetMigrations() {
		if migration.Version > latest {
			latest = migration.Version
		}
	}

	return latest
}

// InitializeMigrationTable creates the migration tracking table
func (m *MigrationManager) InitializeMigrationTable(ctx context.Context) error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		description VARCHAR NOT NULL,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`

	_, err := m.db.ExecContext(ctx, createTableSQL)
	if err != nil {
		return fmt.Errorf("failed to create migration table: %w", err)
	}

	return nil
}

// GetAppliedMigrations returns a list of applied migration versions
func (m *MigrationManager) GetAppliedMigrations(ctx context.Context) ([]int, error) {
	query, args, err := sqb.Select("version").From("schema_migrations").OrderBy("version").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build migrations query: %w", err)
	}

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}

	defer rows.Close()

	var versions []int

	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}

		versions = append(versions, version)
	}

	return versions, rows.Err()
}

// CurrentVersion returns the highest applied version, or 0 for a fresh database
func (m *MigrationManager) CurrentVersion(ctx context.Context) (int, error) {
	versions, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return 0, err
	}

	current := 0
	for _, v := range versions {
		if v > current {
			current = v
		}
	}

	return current, nil
}

// NeedsMigration reports whether migrations are pending along with the current and latest versions
func (m *MigrationManager) NeedsMigration(ctx context.Context) (bool, int, int, error) {
	if err := m.InitializeMigrationTable(ctx); err != nil {
		return false, 0, 0, err
	}

	current, err := m.CurrentVersion(ctx)
	if err != nil {
		return false, 0, 0, err
	}

	latest := m.LatestVersion()

	return current < latest, current, latest, nil
}

// ApplyMigration applies a single migration inside a transaction
func (m *MigrationManager) ApplyMigration(ctx context.Context, migration Migration) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, migration.Up); err != nil {
		return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
	}

	query, args, err := sqb.Insert("schema_migrations").
		Columns("version", "description").
		Values(migration.Version, migration.Description).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build migration record: %w", err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
	}

	return tx.Commit()
}

// RollbackMigration rolls back a single migration
func (m *MigrationManager) RollbackMigration(ctx context.Context, migration Migration) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, migration.Down); err != nil {
		return fmt.Errorf("failed to rollback migration %d: %w", migration.Version, err)
	}

	query, args, err := sqb.Delete("schema_migrations").Where("version = ?", migration.Version).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build migration delete: %w", err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to remove migration record %d: %w", migration.Version, err)
	}

	return tx.Commit()
}

// MigrateUp applies all pending migrations
func (m *MigrationManager) MigrateUp(ctx context.Context) error {
	if err := m.InitializeMigrationTable(ctx); err != nil {
		return err
	}

	appliedVersions, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	appliedMap := make(map[int]bool)
	for _, version := range appliedVersions {
		appliedMap[version] = true
	}

	migrations := m.GetMigrations()
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	for _, migration := range migrations {
		if appliedMap[migration.Version] {
			continue
		}

		m.logger.WithFields(map[string]any{
			"version":     migration.Version,
			"description": migration.Description,
		}).Info("applying migration")

		if err := m.ApplyMigration(ctx, migration); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

// MigrateDown rolls back migrations above targetVersion, newest first
func (m *MigrationManager) MigrateDown(ctx context.Context, targetVersion int) error {
	appliedVersions, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	migrationMap := make(map[int]Migration)
	for _, migration := range m.GetMigrations() {
		migrationMap[migration.Version] = migration
	}

	sort.Sort(sort.Reverse(sort.IntSlice(appliedVersions)))

	for _, version := range appliedVersions {
		if version <= targetVersion {
			break
		}

		migration, exists := migrationMap[version]
		if !exists {
			return fmt.Errorf("migration %d not found", version)
		}

		m.logger.WithField("version", version).Info("rolling back migration")

		if err := m.RollbackMigration(ctx, migration); err != nil {
			return fmt.Errorf("failed to rollback migration %d: %w", version, err)
		}
	}

	return nil
}

// MigrationStatus represents the status of a migration
type MigrationStatus struct {
	Version     int       `json:"version"`
	Description string    `json:"description"`
	Applied     bool      `json:"applied"`
	AppliedAt   time.Time `json:"applied_at,omitempty"`
}

// GetMigrationStatus returns the status of every known migration
func (m *MigrationManager) GetMigrationStatus(ctx context.Context) ([]MigrationStatus, error) {
	if err := m.InitializeMigrationTable(ctx); err != nil {
		return nil, err
	}

	query, args, err := sqb.Select("version", "applied_at").From("schema_migrations").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build migration status query: %w", err)
	}

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query migration status: %w", err)
	}

	defer rows.Close()

	appliedAt := make(map[int]time.Time)

	for rows.Next() {
		var version int

		var at time.Time
		if err := rows.Scan(&version, &at); err != nil {
			return nil, fmt.Errorf("failed to scan migration status: %w", err)
		}

		appliedAt[version] = at
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	migrations := m.GetMigrations()
	status := make([]MigrationStatus, 0, len(migrations))

	for _, migration := range migrations {
		at, applied := appliedAt[migration.Version]
		status = append(status, MigrationStatus{
			Version:     migration.Version,
			Description: migration.Description,
			Applied:     applied,
			AppliedAt:   at,
		})
	}

	return status, nil
}
