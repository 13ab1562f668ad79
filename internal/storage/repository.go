package storage

import (
	"context"
	"time"

	"github.com/kyleking/query-runner/internal/workspace"
)

// Repository persists the user-owned part of a workspace between sessions
type Repository interface {
	Initialize(ctx context.Context) error
	LoadWorkspace(ctx context.Context) (workspace.Snapshot, error)
	SaveWorkspace(ctx context.Context, snap workspace.Snapshot) error
	GetStats(ctx context.Context) (*Stats, error)
	Clear(ctx context.Context) error
	Close() error
}

// Stats represents database statistics
type Stats struct {
	UserQueries    int            `json:"user_queries"`
	Favorites      int            `json:"favorites"`
	HistoryEntries int            `json:"history_entries"`
	LastExecuted   time.Time      `json:"last_executed"`
	SchemaVersion  int            `json:"schema_version"`
	DatabaseSizeMB float64        `json:"database_size_mb"`
	TopTitles      map[string]int `json:"top_titles"`
}
