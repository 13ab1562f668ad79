package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleking/query-runner/internal/catalog"
	"github.com/kyleking/query-runner/internal/history"
	"github.com/kyleking/query-runner/internal/testutil"
	"github.com/kyleking/query-runner/internal/workspace"
)

func testSnapshot() workspace.Snapshot {
	users := testutil.NewTestQueries(2)

	return workspace.Snapshot{
		UserQueries: users,
		Favorites: []catalog.QueryDefinition{
			users[1],
			testutil.NewTestQuery(testutil.AsPredefined(), testutil.WithTitle("Select All Customers"),
				testutil.WithText("SELECT * FROM customers;")),
		},
		History: []history.Entry{
			testutil.NewTestHistoryEntry("Test Query 1", "SELECT 1;", 2),
			testutil.NewTestHistoryEntry(history.CustomQueryTitle, "SELECT now();", 1),
			testutil.NewTestHistoryEntry("Test Query 1", "SELECT 1;", 0),
		},
		SelectedTitle: "Test Query 0",
		Dark:          true,
	}
}

func TestDuckDBRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping DuckDB test in short mode")
	}

	repo := NewTestDB(t)
	ctx := context.Background()

	t.Run("empty database loads empty snapshot", func(t *testing.T) {
		snap, err := repo.LoadWorkspace(ctx)
		require.NoError(t, err)
		assert.True(t, snap.IsEmpty())
		assert.False(t, snap.Dark)
	})

	want := testSnapshot()

	t.Run("save and load", func(t *testing.T) {
		require.NoError(t, repo.SaveWorkspace(ctx, want))

		got, err := repo.LoadWorkspace(ctx)
		require.NoError(t, err)

		require.Len(t, got.UserQueries, 2)
		for i := range want.UserQueries {
			assert.Equal(t, want.UserQueries[i].ID, got.UserQueries[i].ID)
			assert.Equal(t, want.UserQueries[i].Title, got.UserQueries[i].Title)
			assert.Equal(t, want.UserQueries[i].Text, got.UserQueries[i].Text)
			assert.Equal(t, catalog.OriginUser, got.UserQueries[i].Origin)
			assert.True(t, want.UserQueries[i].CreatedAt.Equal(got.UserQueries[i].CreatedAt))
		}

		require.Len(t, got.Favorites, 2)
		assert.Equal(t, want.Favorites[0].ID, got.Favorites[0].ID)
		assert.Equal(t, catalog.OriginPredefined, got.Favorites[1].Origin)
		assert.Empty(t, got.Favorites[1].ID)

		require.Len(t, got.History, 3)
		for i := range want.History {
			assert.Equal(t, want.History[i].Title, got.History[i].Title)
			assert.True(t, want.History[i].Timestamp.Equal(got.History[i].Timestamp))
		}

		assert.Equal(t, "Test Query 0", got.SelectedTitle)
		assert.True(t, got.Dark)
	})

	t.Run("save replaces previous rows", func(t *testing.T) {
		smaller := workspace.Snapshot{UserQueries: testutil.NewTestQueries(1)}
		require.NoError(t, repo.SaveWorkspace(ctx, smaller))

		got, err := repo.LoadWorkspace(ctx)
		require.NoError(t, err)
		assert.Len(t, got.UserQueries, 1)
		assert.Empty(t, got.Favorites)
		assert.Empty(t, got.History)
		assert.False(t, got.Dark)
	})

	t.Run("stats", func(t *testing.T) {
		require.NoError(t, repo.SaveWorkspace(ctx, want))

		stats, err := repo.GetStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, stats.UserQueries)
		assert.Equal(t, 2, stats.Favorites)
		assert.Equal(t, 3, stats.HistoryEntries)
		assert.Equal(t, 2, stats.TopTitles["Test Query 1"])
		assert.Equal(t, 1, stats.TopTitles[history.CustomQueryTitle])
		assert.Equal(t, NewMigrationManager(repo.db, nil).LatestVersion(), stats.SchemaVersion)
		assert.True(t, stats.LastExecuted.Equal(want.History[0].Timestamp))
	})

	t.Run("clear", func(t *testing.T) {
		require.NoError(t, repo.Clear(ctx))

		stats, err := repo.GetStats(ctx)
		require.NoError(t, err)
		assert.Zero(t, stats.UserQueries)
		assert.Zero(t, stats.Favorites)
		assert.Zero(t, stats.HistoryEntries)
		assert.True(t, stats.LastExecuted.IsZero())
	})
}

func TestDuckDBSeededHelper(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping DuckDB test in short mode")
	}

	repo := NewTestDBWithSnapshot(t, testSnapshot())

	snap, err := repo.LoadWorkspace(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.UserQueries, 2)
}

func TestInitializeIsIdempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping DuckDB test in short mode")
	}

	repo := NewTestDB(t)
	require.NoError(t, repo.Initialize(context.Background()))
}
