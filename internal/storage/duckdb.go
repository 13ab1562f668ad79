package storage

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strconv"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb" // DuckDB driver

	"github.com/kyleking/query-runner/internal/catalog"
	"github.com/kyleking/query-runner/internal/errors"
	"github.com/kyleking/query-runner/internal/history"
	"github.com/kyleking/query-runner/internal/logging"
	"github.com/kyleking/query-runner/internal/workspace"
)

// sqb builds statements with question-mark placeholders, as DuckDB expects
var sqb = sq.StatementBuilder.PlaceholderFormat(sq.Question)

const (
	settingSelectedTitle = "selected_title"
	settingDark          = "dark"
	topTitlesLimit       = 5
)

var (
	userQueryColumns = []string{"id", "ordinal", "title", "description", "query_text", "created_at"}
	favoriteColumns  = []string{"ordinal", "title", "origin", "query_id", "description", "query_text"}
	historyColumns   = []string{"ordinal", "title", "query_text", "executed_at"}
)

// DuckDBRepository implements the Repository interface using DuckDB
type DuckDBRepository struct {
	db           *sql.DB
	path         string
	queryTimeout time.Duration
	logger       *logging.Logger
}

// Option configures a DuckDBRepository
type Option func(*DuckDBRepository)

// WithQueryTimeout bounds every repository call; zero disables the bound
func WithQueryTimeout(d time.Duration) Option {
	return func(r *DuckDBRepository) { r.queryTimeout = d }
}

// WithLogger attaches a logger
func WithLogger(logger *logging.Logger) Option {
	return func(r *DuckDBRepository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewDuckDBRepository opens (creating if needed) the database file at dbPath
func NewDuckDBRepository(dbPath string, opts ...Option) (*DuckDBRepository, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeFileSystem, "failed to create database directory")
	}

	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to open database")
	}

	// DuckDB allows a single writer per file
	db.SetMaxOpenConns(1)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to ping database").
			WithSuggestion("Check that no other process holds the database file open")
	}

	return NewWithDB(db, dbPath, opts...), nil
}

// NewWithDB wraps an already opened database handle
func NewWithDB(db *sql.DB, path string, opts ...Option) *DuckDBRepository {
	r := &DuckDBRepository{
		db:     db,
		path:   path,
		logger: logging.NewNopLogger(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Path returns the database file location
func (r *DuckDBRepository) Path() string {
	return r.path
}

func (r *DuckDBRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.queryTimeout > 0 {
		return context.WithTimeout(ctx, r.queryTimeout)
	}

	return ctx, func() {}
}

// Initialize creates the database schema using migrations
func (r *DuckDBRepository) Initialize(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	manager := NewMigrationManager(r.db, r.logger)

	needsMigration, current, latest, err := manager.NeedsMigration(ctx)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeDatabase, "failed to check migration status")
	}

	if !needsMigration {
		return nil
	}

	r.logger.WithFields(map[string]any{"from": current, "to": latest}).Info("database schema update required")

	if err := manager.MigrateUp(ctx); err != nil {
		return errors.Wrap(err, errors.ErrTypeDatabase, "failed to migrate database")
	}

	return nil
}

// SaveWorkspace replaces every persisted row with the snapshot in one transaction
func (r *DuckDBRepository) SaveWorkspace(ctx context.Context, snap workspace.Snapshot) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeDatabase, "failed to begin transaction")
	}

	defer func() { _ = tx.Rollback() }()

	if err := clearTables(ctx, tx); err != nil {
		return err
	}

	statements := make([]sq.InsertBuilder, 0, 4)

	if len(snap.UserQueries) > 0 {
		insert := sqb.Insert("user_queries").Columns(userQueryColumns...)
		for i, q := range snap.UserQueries {
			var created any
			if !q.CreatedAt.IsZero() {
				created = q.CreatedAt.UTC()
			}

			insert = insert.Values(q.ID, i, q.Title, q.Description, q.Text, created)
		}

		statements = append(statements, insert)
	}

	if len(snap.Favorites) > 0 {
		insert := sqb.Insert("favorites").Columns(favoriteColumns...)
		for i, q := range snap.Favorites {
			insert = insert.Values(i, q.Title, string(q.Origin), q.ID, q.Description, q.Text)
		}

		statements = append(statements, insert)
	}

	if len(snap.History) > 0 {
		insert := sqb.Insert("history_entries").Columns(historyColumns...)
		for i, e := range snap.History {
			insert = insert.Values(i, e.Title, e.Text, e.Timestamp.UTC())
		}

		statements = append(statements, insert)
	}

	statements = append(statements, sqb.Insert("session_settings").
		Columns("key", "value").
		Values(settingSelectedTitle, snap.SelectedTitle).
		Values(settingDark, strconv.FormatBool(snap.Dark)))

	for _, stmt := range statements {
		query, args, err := stmt.ToSql()
		if err != nil {
			return errors.Wrap(err, errors.ErrTypeInternal, "failed to build insert")
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return errors.Wrap(err, errors.ErrTypeDatabase, "failed to save workspace")
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrTypeDatabase, "failed to commit workspace")
	}

	r.logger.WithFields(map[string]any{
		"user_queries": len(snap.UserQueries),
		"favorites":    len(snap.Favorites),
		"history":      len(snap.History),
	}).Debug("workspace saved")

	return nil
}

// LoadWorkspace reads the persisted snapshot. The editor buffer is not stored here.
func (r *DuckDBRepository) LoadWorkspace(ctx context.Context) (workspace.Snapshot, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var snap workspace.Snapshot

	users, err := r.loadUserQueries(ctx)
	if err != nil {
		return snap, err
	}

	favs, err := r.loadFavorites(ctx)
	if err != nil {
		return snap, err
	}

	entries, err := r.loadHistory(ctx)
	if err != nil {
		return snap, err
	}

	settings, err := r.loadSettings(ctx)
	if err != nil {
		return snap, err
	}

	snap.UserQueries = users
	snap.Favorites = favs
	snap.History = entries
	snap.SelectedTitle = settings[settingSelectedTitle]
	snap.Dark, _ = strconv.ParseBool(settings[settingDark])

	return snap, nil
}

func (r *DuckDBRepository) loadUserQueries(ctx context.Context) ([]catalog.QueryDefinition, error) {
	query, args, err := sqb.Select("id", "title", "description", "query_text", "created_at").
		From("user_queries").
		OrderBy("ordinal").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeInternal, "failed to build user query select")
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to query user queries")
	}
	defer rows.Close()

	var defs []catalog.QueryDefinition

	for rows.Next() {
		var (
			def     catalog.QueryDefinition
			created sql.NullTime
		)

		if err := rows.Scan(&def.ID, &def.Title, &def.Description, &def.Text, &created); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to scan user query")
		}

		def.Origin = catalog.OriginUser
		if created.Valid {
			def.CreatedAt = created.Time
		}

		defs = append(defs, def)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to iterate user queries")
	}

	return defs, nil
}

func (r *DuckDBRepository) loadFavorites(ctx context.Context) ([]catalog.QueryDefinition, error) {
	query, args, err := sqb.Select("title", "origin", "query_id", "description", "query_text").
		From("favorites").
		OrderBy("ordinal").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeInternal, "failed to build favorites select")
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to query favorites")
	}
	defer rows.Close()

	var favs []catalog.QueryDefinition

	for rows.Next() {
		var (
			def    catalog.QueryDefinition
			origin string
		)

		if err := rows.Scan(&def.Title, &origin, &def.ID, &def.Description, &def.Text); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to scan favorite")
		}

		def.Origin = catalog.Origin(origin)
		favs = append(favs, def)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to iterate favorites")
	}

	return favs, nil
}

func (r *DuckDBRepository) loadHistory(ctx context.Context) ([]history.Entry, error) {
	query, args, err := sqb.Select("title", "query_text", "executed_at").
		From("history_entries").
		OrderBy("ordinal").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeInternal, "failed to build history select")
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to query history")
	}
	defer rows.Close()

	var entries []history.Entry

	for rows.Next() {
		var entry history.Entry
		if err := rows.Scan(&entry.Title, &entry.Text, &entry.Timestamp); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to scan history entry")
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to iterate history")
	}

	return entries, nil
}

func (r *DuckDBRepository) loadSettings(ctx context.Context) (map[string]string, error) {
	query, args, err := sqb.Select("key", "value").From("session_settings").ToSql()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeInternal, "failed to build settings select")
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to query settings")
	}
	defer rows.Close()

	settings := make(map[string]string)

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to scan setting")
		}

		settings[key] = value
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to iterate settings")
	}

	return settings, nil
}

// GetStats returns database statistics
func (r *DuckDBRepository) GetStats(ctx context.Context) (*Stats, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	stats := &Stats{TopTitles: make(map[string]int)}

	counts := []struct {
		table string
		dest  *int
	}{
		{"user_queries", &stats.UserQueries},
		{"favorites", &stats.Favorites},
		{"history_entries", &stats.HistoryEntries},
	}

	for _, c := range counts {
		if err := r.scalar(ctx, sqb.Select("COUNT(*)").From(c.table), c.dest); err != nil {
			return nil, errors.Wrapf(err, errors.ErrTypeDatabase, "failed to count %s", c.table)
		}
	}

	var lastExecuted sql.NullTime
	if err := r.scalar(ctx, sqb.Select("MAX(executed_at)").From("history_entries"), &lastExecuted); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to get last execution time")
	}

	if lastExecuted.Valid {
		stats.LastExecuted = lastExecuted.Time
	}

	if err := r.scalar(ctx, sqb.Select("COALESCE(MAX(version), 0)").From("schema_migrations"), &stats.SchemaVersion); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to get schema version")
	}

	query, args, err := sqb.Select("title", "COUNT(*) AS runs").
		From("history_entries").
		GroupBy("title").
		OrderBy("runs DESC", "title").
		Limit(topTitlesLimit).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeInternal, "failed to build title breakdown")
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to get title breakdown")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			title string
			runs  int
		)

		if err := rows.Scan(&title, &runs); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to scan title breakdown")
		}

		stats.TopTitles[title] = runs
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to iterate title breakdown")
	}

	if info, err := os.Stat(r.path); err == nil {
		stats.DatabaseSizeMB = float64(info.Size()) / (1024 * 1024)
	}

	return stats, nil
}

func (r *DuckDBRepository) scalar(ctx context.Context, b sq.SelectBuilder, dest any) error {
	query, args, err := b.ToSql()
	if err != nil {
		return err
	}

	return r.db.QueryRowContext(ctx, query, args...).Scan(dest)
}

// Clear removes all persisted workspace data
func (r *DuckDBRepository) Clear(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeDatabase, "failed to begin transaction")
	}

	defer func() { _ = tx.Rollback() }()

	if err := clearTables(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrTypeDatabase, "failed to commit clear")
	}

	return nil
}

func clearTables(ctx context.Context, tx *sql.Tx) error {
	for _, table := range []string{"favorites", "history_entries", "user_queries", "session_settings"} {
		query, args, err := sqb.Delete(table).ToSql()
		if err != nil {
			return errors.Wrap(err, errors.ErrTypeInternal, "failed to build delete")
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return errors.Wrapf(err, errors.ErrTypeDatabase, "failed to clear %s", table)
		}
	}

	return nil
}

// Close closes the database connection
func (r *DuckDBRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}

	return nil
}
