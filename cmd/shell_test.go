package cmd

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleking/query-runner/internal/formatter"
	"github.com/kyleking/query-runner/internal/testutil"
	"github.com/kyleking/query-runner/internal/workspace"
)

// syncBuffer is written from execution goroutines
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

func (b *syncBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buf.Reset()
}

func newTestShell(t *testing.T) (*shell, *syncBuffer, context.Context) {
	t.Helper()

	out := &syncBuffer{}
	sh := &shell{format: formatter.FormatTable, out: out, errOut: out}

	ctx := testContext(testConfig(t))

	s, err := openSession(ctx, sessionOptions{out: out, onComplete: sh.completed})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.close() })

	sh.s = s

	drafts, fc, err := s.drafts()
	require.NoError(t, err)
	t.Cleanup(func() { _ = fc.Close() })

	sh.drafts = drafts

	return sh, out, ctx
}

func TestShellEditAndRun(t *testing.T) {
	sh, out, ctx := newTestShell(t)

	assert.False(t, sh.handle(ctx, ".select Select All Customers"))
	assert.Contains(t, out.String(), `Selected "Select All Customers"`)
	assert.Equal(t, shellPrompt, sh.prompt())

	sh.handle(ctx, "WHERE city = 'Austin'")
	assert.Equal(t, "SELECT * FROM customers;\nWHERE city = 'Austin'", sh.s.ws.Buffer())
	assert.Equal(t, shellPromptEdits, sh.prompt())

	out.Reset()
	sh.handle(ctx, ".run")
	sh.handle(ctx, ".wait")

	text := out.String()
	assert.Contains(t, text, "Executing Select All Customers (#1)")
	assert.Contains(t, text, "Results (4 rows)")
	assert.Contains(t, text, "Query executed in")

	hist := sh.s.ws.ListView(workspace.ViewHistory).History
	require.Len(t, hist, 1)
	assert.Equal(t, "SELECT * FROM customers;\nWHERE city = 'Austin'", hist[0].Text)
}

func TestShellCustomQueryAndRecall(t *testing.T) {
	sh, _, ctx := newTestShell(t)

	sh.s.ws.ClearSelection()
	sh.handle(ctx, ".edit SELECT 42;")
	sh.handle(ctx, ".run")
	sh.handle(ctx, ".wait")

	hist := sh.s.ws.ListView(workspace.ViewHistory).History
	require.Len(t, hist, 1)
	assert.Equal(t, "Custom Query", hist[0].Title)

	sh.handle(ctx, ".edit")
	assert.Empty(t, sh.s.ws.Buffer())

	sh.handle(ctx, ".recall 0")
	assert.Equal(t, "SELECT 42;", sh.s.ws.Buffer())
	assert.Nil(t, sh.s.ws.State().Selected)
}

func TestShellViewsAndSearch(t *testing.T) {
	sh, out, ctx := newTestShell(t)

	sh.handle(ctx, ".search revenue")
	assert.Contains(t, out.String(), "Top Products by Revenue")
	assert.NotContains(t, out.String(), "Inventory Status Report")

	out.Reset()
	sh.handle(ctx, ".search")
	assert.Contains(t, out.String(), "Search cleared")
	assert.Contains(t, out.String(), "Inventory Status Report")

	out.Reset()
	sh.handle(ctx, ".view favorites")
	sh.handle(ctx, ".ls")
	assert.Contains(t, out.String(), "Viewing Favorites")
	assert.Contains(t, out.String(), "No queries found.")

	out.Reset()
	sh.handle(ctx, ".view weekly")
	assert.Contains(t, out.String(), "Error:")
	assert.Equal(t, workspace.ViewFavorites, sh.s.ws.State().View)
}

func TestShellFavoritesAndSave(t *testing.T) {
	sh, out, ctx := newTestShell(t)

	sh.handle(ctx, ".fav")
	assert.True(t, sh.s.ws.IsFavorite("Customer Order History"))

	sh.handle(ctx, ".edit SELECT * FROM orders WHERE status = 'Pending';")
	sh.handle(ctx, ".save Pending Orders | Orders not yet shipped")
	assert.Contains(t, out.String(), `Saved "Pending Orders" as favorite`)
	assert.True(t, sh.s.ws.IsFavorite("Pending Orders"))

	out.Reset()
	sh.handle(ctx, ".save Pending Orders | again")
	assert.Contains(t, out.String(), "Error:")
	assert.Len(t, sh.s.ws.Catalog().ListUser(), 1)

	out.Reset()
	sh.handle(ctx, ".add Only Title")
	assert.Contains(t, out.String(), "Error:")
	assert.Len(t, sh.s.ws.Catalog().ListUser(), 1)

	id := sh.s.ws.Catalog().ListUser()[0].ID
	sh.handle(ctx, ".delete "+id)
	assert.False(t, sh.s.ws.IsFavorite("Pending Orders"))
	assert.Empty(t, sh.s.ws.Catalog().ListUser())
}

func TestShellExportAndResult(t *testing.T) {
	sh, out, ctx := newTestShell(t)

	sh.handle(ctx, ".export")
	assert.Contains(t, out.String(), "Exported to ")

	out.Reset()
	sh.handle(ctx, ".select Select All Customers")
	sh.handle(ctx, ".result")
	assert.Contains(t, out.String(), "Results (5 rows)", "selection does not replace the current result")
}

func TestShellThemeAndState(t *testing.T) {
	sh, out, ctx := newTestShell(t)

	sh.handle(ctx, ".theme")
	assert.Contains(t, out.String(), "Theme: dark (editor: dracula)")

	out.Reset()
	sh.handle(ctx, ".state")

	text := out.String()
	assert.Contains(t, text, "View: Predefined")
	assert.Contains(t, text, "Selected: Customer Order History")
	assert.Contains(t, text, "Status: idle")
	assert.Contains(t, text, "Copy: Copy")
}

func TestShellUnknownAndQuit(t *testing.T) {
	sh, out, ctx := newTestShell(t)

	assert.False(t, sh.handle(ctx, ".frobnicate"))
	assert.Contains(t, out.String(), "unknown command: .frobnicate")
	assert.Contains(t, out.String(), "hint: Type .help for commands")

	assert.False(t, sh.handle(ctx, "   "))
	assert.True(t, sh.handle(ctx, ".quit"))
	assert.True(t, sh.handle(ctx, ".exit"))
}

func TestShellDraftRoundTrip(t *testing.T) {
	sh, out, ctx := newTestShell(t)

	sh.handle(ctx, ".edit SELECT draft;")
	require.NoError(t, sh.finish(ctx))

	text, found, err := sh.drafts.Load(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "SELECT draft;", text)

	sh.s.ws.EditBuffer("something else")
	sh.restoreDraft(ctx)
	assert.Equal(t, "SELECT draft;", sh.s.ws.Buffer())
	assert.Contains(t, out.String(), "Restored draft")
}

func TestShellCompletionCallback(t *testing.T) {
	sh, out, _ := newTestShell(t)

	exec := sh.s.ws.Execute()

	ctx, cancel := context.WithTimeout(context.Background(), testutil.ShortTestTimeout)
	defer cancel()

	_, err := exec.Wait(ctx)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return bytes.Contains([]byte(out.String()), []byte("Customer Order History: Results (5 rows)"))
	}, time.Second, 5*time.Millisecond)
}

func TestSplitTitleDescription(t *testing.T) {
	tests := []struct {
		in, title, desc string
	}{
		{"A | B", "A", "B"},
		{"A|B|C", "A", "B|C"},
		{"Only", "Only", ""},
		{"", "", ""},
	}

	for _, tt := range tests {
		title, desc := splitTitleDescription(tt.in)
		assert.Equal(t, tt.title, title)
		assert.Equal(t, tt.desc, desc)
	}
}
