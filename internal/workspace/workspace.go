// Package workspace is the session coordinator: it owns the editor buffer, the
// selected query and the current result, and is the only path through which
// the catalog, favorites and history are changed.
package workspace

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kyleking/query-runner/internal/catalog"
	"github.com/kyleking/query-runner/internal/clipboard"
	"github.com/kyleking/query-runner/internal/errors"
	"github.com/kyleking/query-runner/internal/export"
	"github.com/kyleking/query-runner/internal/favorites"
	"github.com/kyleking/query-runner/internal/history"
	"github.com/kyleking/query-runner/internal/logging"
	"github.com/kyleking/query-runner/internal/search"
	"github.com/kyleking/query-runner/internal/simulator"
	"github.com/kyleking/query-runner/internal/theme"
	"github.com/kyleking/query-runner/internal/types"
)

// Options wires the collaborators of a Workspace. Nil fields get defaults.
type Options struct {
	Catalog   *catalog.Catalog
	Simulator *simulator.Simulator
	Favorites *favorites.Set
	History   *history.Log
	Clipboard clipboard.Writer
	Ack       *clipboard.Ack
	Sink      export.Sink
	Theme     *theme.Theme
	Logger    *logging.Logger
	Clock     func() time.Time

	// DefaultQuery is the title selected at start, with its result preloaded.
	// When it is empty or unknown the first predefined entry is used.
	DefaultQuery string

	// OnComplete runs after each execution has been applied, outside the lock
	OnComplete func(Completion)
}

// Completion describes an applied execution
type Completion struct {
	ID      uint64
	Outcome simulator.Outcome
	// Pending is the number of executions still in flight after this one
	Pending int
}

// State is a point-in-time copy of the session
type State struct {
	View         View
	Buffer       string
	Selected     *catalog.QueryDefinition
	Result       *types.ResultTable
	Executing    bool
	Pending      int
	LastDuration *time.Duration
	Needle       string
	EditorTheme  string
	CopyAck      clipboard.AckState
}

// SelectedTitle returns the selected query's title, or "" when nothing is selected
func (s State) SelectedTitle() string {
	if s.Selected == nil {
		return ""
	}

	return s.Selected.Title
}

// Stats summarizes the session contents
type Stats struct {
	Predefined int
	User       int
	Favorites  int
	History    int
	Pending    int
	Canned     int
}

// Workspace serializes every mutation behind one mutex. Executions complete
// on their own goroutines and apply their result last-write-wins.
type Workspace struct {
	mu sync.Mutex

	catalog   *catalog.Catalog
	favorites *favorites.Set
	history   *history.Log
	sim       *simulator.Simulator
	clip      clipboard.Writer
	ack       *clipboard.Ack
	sink      export.Sink
	theme     *theme.Theme
	logger    *logging.Logger
	now       func() time.Time
	onDone    func(Completion)

	view         View
	buffer       string
	selected     *catalog.QueryDefinition
	result       *types.ResultTable
	lastDuration *time.Duration
	needle       string
	pending      int
	nextID       uint64

	inflight sync.WaitGroup
}

// New builds a workspace with the default query selected and its result loaded
func New(opts Options) (*Workspace, error) {
	w := &Workspace{
		catalog:   opts.Catalog,
		favorites: opts.Favorites,
		history:   opts.History,
		sim:       opts.Simulator,
		clip:      opts.Clipboard,
		ack:       opts.Ack,
		sink:      opts.Sink,
		theme:     opts.Theme,
		logger:    opts.Logger,
		now:       opts.Clock,
		onDone:    opts.OnComplete,
		view:      ViewPredefined,
	}

	if w.catalog == nil {
		c, err := catalog.Default()
		if err != nil {
			return nil, err
		}

		w.catalog = c
	}

	if w.sim == nil {
		sim, err := simulator.Default()
		if err != nil {
			return nil, err
		}

		w.sim = sim
	}

	if w.favorites == nil {
		w.favorites = favorites.New()
	}

	if w.history == nil {
		w.history = history.New()
	}

	if w.ack == nil {
		w.ack = clipboard.NewAck(clipboard.DefaultAckDuration)
	}

	if w.sink == nil {
		w.sink = export.NewMemorySink()
	}

	if w.theme == nil {
		w.theme = theme.New(false)
	}

	if w.logger == nil {
		w.logger = logging.NewNopLogger()
	}

	if w.now == nil {
		w.now = time.Now
	}

	initial, ok := w.catalog.FindByTitle(opts.DefaultQuery)
	if !ok {
		initial = w.catalog.ListPredefined()[0]
	}

	table, _ := w.sim.Lookup(initial.Title)
	w.selected = &initial
	w.buffer = initial.Text
	w.result = &table

	return w, nil
}

// Catalog exposes the read side of the catalog
func (w *Workspace) Catalog() *catalog.Catalog {
	return w.catalog
}

// Theme returns the theme collaborator
func (w *Workspace) Theme() *theme.Theme {
	return w.theme
}

// State returns a copy of the session state
func (w *Workspace) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()

	st := State{
		View:        w.view,
		Buffer:      w.buffer,
		Executing:   w.pending > 0,
		Pending:     w.pending,
		Needle:      w.needle,
		EditorTheme: w.theme.EditorTheme(),
		CopyAck:     w.ack.State(),
	}

	if w.selected != nil {
		sel := *w.selected
		st.Selected = &sel
	}

	if w.result != nil {
		res := w.result.Clone()
		st.Result = &res
	}

	if w.lastDuration != nil {
		d := *w.lastDuration
		st.LastDuration = &d
	}

	return st
}

// IsExecuting reports whether any execution is pending
func (w *Workspace) IsExecuting() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.pending > 0
}

// Buffer returns the editor buffer
func (w *Workspace) Buffer() string {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.buffer
}

// SelectQuery makes q the active query and loads its text into the buffer
func (w *Workspace) SelectQuery(q catalog.QueryDefinition) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.selectLocked(q)
}

// SelectByTitle selects a catalog entry, or a favorite whose source is gone
func (w *Workspace) SelectByTitle(title string) (catalog.QueryDefinition, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	q, ok := w.lookupLocked(title)
	if !ok {
		return catalog.QueryDefinition{}, errors.NewNotFoundError("query", title).
			WithSuggestion("Run 'list' to see available titles")
	}

	w.selectLocked(q)

	return q, nil
}

// ClearSelection drops the active query; later executions are recorded as custom
func (w *Workspace) ClearSelection() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.selected = nil
}

// EditBuffer replaces the editor buffer
func (w *Workspace) EditBuffer(text string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buffer = text
}

// AppendBuffer adds a line to the editor buffer
func (w *Workspace) AppendBuffer(line string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.buffer == "" {
		w.buffer = line
		return
	}

	w.buffer += "\n" + line
}

// RecallHistory loads the text of history entry i into the buffer.
// The selection is left unchanged.
func (w *Workspace) RecallHistory(i int) (history.Entry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	entry, ok := w.history.At(i)
	if !ok {
		return history.Entry{}, errors.NewNotFoundError("history entry", fmt.Sprint(i))
	}

	w.buffer = entry.Text

	return entry, nil
}

// SetSearchNeedle sets the text used to filter the visible list
func (w *Workspace) SetSearchNeedle(needle string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.needle = needle
}

// SetActiveView switches the visible catalog tab
func (w *Workspace) SetActiveView(v View) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.view = v
}

// Listing is the filtered content of the active view
type Listing struct {
	View    View
	Needle  string
	Queries []catalog.QueryDefinition
	History []history.Entry
}

// Visible returns the active view's items narrowed by the search needle
func (w *Workspace) Visible() Listing {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.listingLocked(w.view)
}

// ListView returns a view's items narrowed by the search needle
func (w *Workspace) ListView(v View) Listing {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.listingLocked(v)
}

func (w *Workspace) listingLocked(v View) Listing {
	listing := Listing{View: v, Needle: w.needle}

	switch v {
	case ViewFavorites:
		listing.Queries = search.Filter(w.favorites.List(), w.needle)
	case ViewHistory:
		listing.History = search.Filter(w.history.List(), w.needle)
	default:
		listing.Queries = search.Filter(w.catalog.All(), w.needle)
	}

	return listing
}

// Favorites returns every favorite, ignoring the search needle
func (w *Workspace) Favorites() []catalog.QueryDefinition {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.favorites.List()
}

// IsFavorite reports whether a favorite with the given title exists
func (w *Workspace) IsFavorite(title string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.favorites.ContainsTitle(title)
}

// ToggleFavorite flips the favorite mark of the titled query and reports the new value
func (w *Workspace) ToggleFavorite(title string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	q, ok := w.lookupLocked(title)
	if !ok {
		return false, errors.NewNotFoundError("query", title)
	}

	marked := w.favorites.Toggle(q)
	w.logger.WithFields(map[string]any{"title": title, "favorite": marked}).Debug("favorite toggled")

	return marked, nil
}

// AddUserQuery appends a user entry. On a validation error nothing changes.
func (w *Workspace) AddUserQuery(title, description, text string) (catalog.QueryDefinition, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	def, err := w.catalog.Add(title, description, text)
	if err != nil {
		return catalog.QueryDefinition{}, err
	}

	w.logger.WithFields(map[string]any{"id": def.ID, "title": def.Title}).Info("user query added")

	return def, nil
}

// DeleteUserQuery removes a user entry and every favorite pointing at it.
// Unknown ids are ignored. A deleted selection is cleared but the buffer stays.
// It reports whether anything went, including favorites whose source is already gone.
func (w *Workspace) DeleteUserQuery(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	removed, ok := w.catalog.Remove(id)
	dropped := w.favorites.RemoveByIdentity(id)

	if w.selected != nil && w.selected.ID != "" && w.selected.ID == id {
		w.selected = nil
	}

	if ok || dropped > 0 {
		w.logger.WithFields(map[string]any{
			"id":        id,
			"title":     removed.Title,
			"favorites": dropped,
		}).Info("user query deleted")
	}

	return ok || dropped > 0
}

// UpdateUserQuery rewrites a user query in place and refreshes the favorites
// and selection that refer to it, so none of them keep the old body.
func (w *Workspace) UpdateUserQuery(id, title, description, text string) (catalog.QueryDefinition, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, fav := range w.favorites.List() {
		if fav.Title == title && fav.ID != id {
			return catalog.QueryDefinition{}, errors.NewValidationError(
				fmt.Sprintf("a favorite titled %q already exists", title), "title")
		}
	}

	def, err := w.catalog.Replace(id, title, description, text)
	if err != nil {
		return catalog.QueryDefinition{}, err
	}

	refreshed := w.favorites.Refresh(def)

	// The buffer is left alone so unsaved edits survive.
	if w.selected != nil && w.selected.ID == id {
		sel := def
		w.selected = &sel
	}

	w.logger.WithFields(map[string]any{
		"id":        id,
		"title":     def.Title,
		"favorites": refreshed,
	}).Info("user query updated")

	return def, nil
}

// SaveCurrentAsFavorite stores the editor buffer as a new user query and
// favorites it. Either both changes apply or neither does.
func (w *Workspace) SaveCurrentAsFavorite(title, description string) (catalog.QueryDefinition, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.catalog.CheckAdd(title, description, w.buffer); err != nil {
		return catalog.QueryDefinition{}, err
	}

	if w.favorites.ContainsTitle(title) {
		return catalog.QueryDefinition{}, errors.NewValidationError(
			fmt.Sprintf("a favorite titled %q already exists", title), "title")
	}

	def, err := w.catalog.Add(title, description, w.buffer)
	if err != nil {
		return catalog.QueryDefinition{}, err
	}

	w.favorites.Add(def)
	w.logger.WithFields(map[string]any{"id": def.ID, "title": def.Title}).Info("saved buffer as favorite")

	return def, nil
}

// Execution is the handle of one started run
type Execution struct {
	ID    uint64
	Title string
	Entry history.Entry

	done    chan struct{}
	outcome simulator.Outcome
}

// Done is closed once the outcome has been applied to the workspace
func (e *Execution) Done() <-chan struct{} {
	return e.done
}

// Wait blocks until the execution is applied or ctx ends
func (e *Execution) Wait(ctx context.Context) (simulator.Outcome, error) {
	select {
	case <-e.done:
		return e.outcome, nil
	case <-ctx.Done():
		return simulator.Outcome{}, ctx.Err()
	}
}

// Execute records the buffer in history and starts a simulated run keyed by
// the selected title. It returns immediately; overlapping runs each apply
// their result when they finish, so the last to finish wins.
func (w *Workspace) Execute() *Execution {
	w.mu.Lock()

	title := ""
	if w.selected != nil {
		title = w.selected.Title
	}

	entry := w.history.Record(w.buffer, title)

	w.nextID++
	exec := &Execution{
		ID:    w.nextID,
		Title: entry.Title,
		Entry: entry,
		done:  make(chan struct{}),
	}

	w.pending++
	w.inflight.Add(1)
	results := w.sim.Execute(title)
	w.mu.Unlock()

	w.logger.WithFields(map[string]any{"execution": exec.ID, "title": exec.Title}).Debug("execute")

	go w.await(exec, results)

	return exec
}

func (w *Workspace) await(exec *Execution, results <-chan simulator.Outcome) {
	defer w.inflight.Done()

	outcome := <-results

	w.mu.Lock()
	table := outcome.Table.Clone()
	elapsed := outcome.Elapsed
	w.result = &table
	w.lastDuration = &elapsed
	w.pending--
	pending := w.pending
	onDone := w.onDone
	w.mu.Unlock()

	exec.outcome = outcome
	close(exec.done)

	w.logger.WithFields(map[string]any{
		"execution":  exec.ID,
		"rows":       table.RowCount(),
		"elapsed_ms": elapsed.Milliseconds(),
	}).Debug("execution applied")

	if onDone != nil {
		onDone(Completion{ID: exec.ID, Outcome: outcome, Pending: pending})
	}
}

// Drain blocks until every started execution has been applied
func (w *Workspace) Drain() {
	w.inflight.Wait()
}

// ExportCSV hands the current result to the sink. An absent or empty result
// is a silent no-op reported by exported == false.
func (w *Workspace) ExportCSV(ctx context.Context) (location string, exported bool, err error) {
	w.mu.Lock()
	var table types.ResultTable
	if w.result != nil {
		table = w.result.Clone()
	}
	w.mu.Unlock()

	if table.IsEmpty() {
		return "", false, nil
	}

	location, err = w.sink.Save(ctx, export.Filename(w.now()), export.ToCSV(table))
	if err != nil {
		return "", false, err
	}

	w.logger.WithFields(map[string]any{"location": location, "rows": table.RowCount()}).Info("results exported")

	return location, true, nil
}

// CopyEditorBuffer writes the buffer to the clipboard and raises the
// transient acknowledgment, which reflects success or failure.
func (w *Workspace) CopyEditorBuffer(ctx context.Context) (clipboard.AckState, error) {
	w.mu.Lock()
	buffer := w.buffer
	clip := w.clip
	w.mu.Unlock()

	var err error
	if clip == nil {
		err = errors.New(errors.ErrTypeClipboard, "no clipboard available")
	} else {
		err = clip.Copy(ctx, buffer)
	}

	state := w.ack.Signal(err)
	if err != nil {
		w.logger.WithError(err).Warn("copy to clipboard failed")
	}

	return state, err
}

// Stats counts the session contents
func (w *Workspace) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	return Stats{
		Predefined: len(w.catalog.ListPredefined()),
		User:       len(w.catalog.ListUser()),
		Favorites:  w.favorites.Len(),
		History:    w.history.Len(),
		Pending:    w.pending,
		Canned:     w.sim.Titles(),
	}
}

func (w *Workspace) selectLocked(q catalog.QueryDefinition) {
	w.selected = &q
	w.buffer = q.Text
}

func (w *Workspace) lookupLocked(title string) (catalog.QueryDefinition, bool) {
	if q, ok := w.catalog.FindByTitle(title); ok {
		return q, true
	}

	for _, fav := range w.favorites.List() {
		if fav.Title == title {
			return fav, true
		}
	}

	return catalog.QueryDefinition{}, false
}
