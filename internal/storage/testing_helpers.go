package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kyleking/query-runner/internal/workspace"
)

// NewTestDB creates a temporary initialized database that is closed when the test ends
func NewTestDB(t *testing.T) *DuckDBRepository {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.duckdb")

	repo, err := NewDuckDBRepository(dbPath)
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}

	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("failed to close test repository: %v", err)
		}
	})

	if err := repo.Initialize(context.Background()); err != nil {
		t.Fatalf("failed to initialize test repository: %v", err)
	}

	return repo
}

// NewTestDBWithSnapshot creates a temporary database pre-seeded with snap
func NewTestDBWithSnapshot(t *testing.T, snap workspace.Snapshot) *DuckDBRepository {
	t.Helper()

	repo := NewTestDB(t)
	if err := repo.SaveWorkspace(context.Background(), snap); err != nil {
		t.Fatalf("failed to seed test repository: %v", err)
	}

	return repo
}
