package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kyleking/query-runner/internal/config"
	"github.com/kyleking/query-runner/internal/logging"
	"github.com/kyleking/query-runner/internal/storage"
	"github.com/kyleking/query-runner/internal/testutil"
	"github.com/kyleking/query-runner/internal/workspace"
)

// memRepository keeps one snapshot in memory
type memRepository struct {
	mu      sync.Mutex
	snap    workspace.Snapshot
	saves   int
	cleared bool
	closed   int
	closeErr error
	stats    *storage.Stats
}

func (m *memRepository) Initialize(context.Context) error { return nil }

func (m *memRepository) LoadWorkspace(context.Context) (workspace.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.snap, nil
}

func (m *memRepository) SaveWorkspace(_ context.Context, snap workspace.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.snap = snap
	m.saves++

	return nil
}

func (m *memRepository) GetStats(context.Context) (*storage.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stats != nil {
		return m.stats, nil
	}

	return &storage.Stats{
		UserQueries:    len(m.snap.UserQueries),
		Favorites:      len(m.snap.Favorites),
		HistoryEntries: len(m.snap.History),
		SchemaVersion:  2,
	}, nil
}

func (m *memRepository) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.snap = workspace.Snapshot{}
	m.cleared = true

	return nil
}

func (m *memRepository) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed++

	return m.closeErr
}

func (m *memRepository) snapshot() workspace.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.snap
}

// useMemRepository routes persistence to an in-memory repository for the test
func useMemRepository(t *testing.T) *memRepository {
	t.Helper()

	repo := &memRepository{}
	prev := openRepository
	openRepository = func(context.Context, *config.Config, *logging.Logger) (storage.Repository, error) {
		return repo, nil
	}

	t.Cleanup(func() { openRepository = prev })

	return repo
}

// isolateEnv points every path the app touches at temporary directories
func isolateEnv(t *testing.T) string {
	t.Helper()

	exportDir := t.TempDir()

	t.Setenv("QUERY_RUNNER_CONFIG", filepath.Join(t.TempDir(), "missing.json"))
	t.Setenv("QUERY_RUNNER_CACHE_DIR", t.TempDir())
	t.Setenv("QUERY_RUNNER_EXPORT_DIR", exportDir)
	t.Setenv("QUERY_RUNNER_DB_PATH", filepath.Join(t.TempDir(), "workspace.duckdb"))
	t.Setenv("QUERY_RUNNER_LATENCY", "1ms")
	t.Setenv("QUERY_RUNNER_LOG_LEVEL", "error")
	t.Setenv("HOME", t.TempDir())

	return exportDir
}

// runApp executes the CLI with args and returns stdout
func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer

	app := NewApp()
	app.Writer = &out
	app.ErrWriter = &errOut

	ctx, cancel := context.WithTimeout(context.Background(), testutil.TestTimeout)
	defer cancel()

	err := app.Run(ctx, append([]string{"query-runner"}, args...))

	return out.String(), err
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Workspace.Latency = "1ms"
	cfg.Workspace.ExportDir = t.TempDir()
	cfg.Cache.Directory = t.TempDir()
	cfg.Database.Path = filepath.Join(t.TempDir(), "workspace.duckdb")
	cfg.Database.Persist = false

	return cfg
}

func testContext(cfg *config.Config) context.Context {
	ctx := context.WithValue(context.Background(), configKey, cfg)
	return context.WithValue(ctx, loggerKey, logging.NewNopLogger())
}

func newTestSession(t *testing.T, out *bytes.Buffer, onComplete func(workspace.Completion)) (*session, context.Context) {
	t.Helper()

	ctx := testContext(testConfig(t))

	s, err := openSession(ctx, sessionOptions{out: out, onComplete: onComplete})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.close() })

	return s, ctx
}
