package workspace

import (
	"github.com/kyleking/query-runner/internal/catalog"
	"github.com/kyleking/query-runner/internal/history"
)

// Snapshot is the persistable part of a session. Predefined entries are not
// included; they are rebuilt from the catalog seed on start.
type Snapshot struct {
	UserQueries   []catalog.QueryDefinition
	Favorites     []catalog.QueryDefinition
	History       []history.Entry
	Buffer        string
	SelectedTitle string
	Dark          bool
}

// IsEmpty reports whether the snapshot holds nothing worth restoring
func (s Snapshot) IsEmpty() bool {
	return len(s.UserQueries) == 0 && len(s.Favorites) == 0 && len(s.History) == 0 &&
		s.Buffer == "" && s.SelectedTitle == ""
}

// Snapshot captures the session for persistence
func (w *Workspace) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	snap := Snapshot{
		UserQueries: w.catalog.ListUser(),
		Favorites:   w.favorites.List(),
		History:     w.history.List(),
		Buffer:      w.buffer,
		Dark:        w.theme.IsDark(),
	}

	if w.selected != nil {
		snap.SelectedTitle = w.selected.Title
	}

	return snap
}

// Restore replaces user queries, favorites and history with the snapshot's.
// A remembered selection is reapplied when its title still resolves, and a
// non-empty saved buffer takes precedence over the selection's text.
func (w *Workspace) Restore(snap Snapshot) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.catalog.SetUser(snap.UserQueries)
	w.favorites.Replace(snap.Favorites)
	w.history.Replace(snap.History)
	w.theme.Set(snap.Dark)

	if snap.SelectedTitle != "" {
		if q, ok := w.lookupLocked(snap.SelectedTitle); ok {
			w.selectLocked(q)
		}
	}

	if snap.Buffer != "" {
		w.buffer = snap.Buffer
	}

	w.logger.WithFields(map[string]any{
		"user_queries": len(snap.UserQueries),
		"favorites":    len(snap.Favorites),
		"history":      len(snap.History),
	}).Debug("workspace restored")
}
