package formatter

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleking/query-runner/internal/catalog"
	"github.com/kyleking/query-runner/internal/history"
	"github.com/kyleking/query-runner/internal/storage"
	"github.com/kyleking/query-runner/internal/testutil"
	"github.com/kyleking/query-runner/internal/types"
	"github.com/kyleking/query-runner/internal/workspace"
)

func newTestFormatter() *Formatter {
	return NewFormatter(
		WithTerminal(false, 120),
		WithClock(func() time.Time { return testutil.TestTime }),
	)
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    OutputFormat
		wantErr bool
	}{
		{"", FormatTable, false},
		{"table", FormatTable, false},
		{"Markdown", FormatMarkdown, false},
		{"md", FormatMarkdown, false},
		{"json", FormatJSON, false},
		{"yaml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSummaries(t *testing.T) {
	assert.Equal(t, "Results (2 rows)", ResultSummary(testutil.NewTestTable()))
	assert.Equal(t, "Results (0 rows)", ResultSummary(types.EmptyTable()))
	assert.Equal(t, "Query executed in 800ms", ExecutionSummary(800*time.Millisecond))
	assert.Equal(t, "Query executed in 0ms", ExecutionSummary(300*time.Microsecond))
}

func TestRenderResult(t *testing.T) {
	table := testutil.NewTestTable(
		testutil.WithColumns("order_id", "status", "phone"),
		testutil.WithRow(1089, "Delivered", nil),
		testutil.WithRow(956, "Shipped", "555-0142"),
	)

	f := newTestFormatter()

	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, f.RenderResult(&buf, table, FormatTable))

		out := buf.String()
		assert.Contains(t, out, "order_id")
		assert.NotContains(t, out, "ORDER_ID")
		assert.Contains(t, out, "Delivered")
		assert.Contains(t, out, "NULL")
		assert.Contains(t, out, "Results (2 rows)")
	})

	t.Run("dark table keeps column case", func(t *testing.T) {
		dark := NewFormatter(WithTerminal(true, 120), WithDark(true))

		var buf bytes.Buffer
		require.NoError(t, dark.RenderResult(&buf, table, FormatTable))

		out := buf.String()
		assert.Contains(t, out, "order_id")
		assert.NotContains(t, out, "ORDER_ID")
	})

	t.Run("markdown", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, f.RenderResult(&buf, table, FormatMarkdown))

		out := buf.String()
		assert.Contains(t, out, "| ")
		assert.Contains(t, out, "Shipped")
		assert.Contains(t, out, "Results (2 rows)")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, f.RenderResult(&buf, table, FormatJSON))

		var decoded types.ResultTable
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, table.Columns, decoded.Columns)
		assert.Len(t, decoded.Rows, 2)
		assert.Nil(t, decoded.Rows[0]["phone"])
	})

	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, f.RenderResult(&buf, types.EmptyTable(), FormatTable))
		assert.Equal(t, "(no results)\n", buf.String())
	})
}

func TestRenderQueries(t *testing.T) {
	f := newTestFormatter()
	queries := []catalog.QueryDefinition{
		testutil.NewTestQuery(testutil.AsPredefined(), testutil.WithTitle("Select All Customers")),
		testutil.NewTestQuery(testutil.WithID("1b9d6bcd-bbfd-4b2d-9b5d-ab8dfbbd4bed"), testutil.WithTitle("Mine")),
	}

	var buf bytes.Buffer
	require.NoError(t, f.RenderQueries(&buf, queries, func(title string) bool { return title == "Mine" }))

	out := buf.String()
	assert.Contains(t, out, "Select All Customers")
	assert.Contains(t, out, "1b9d6bcd")
	assert.Contains(t, out, favoriteMark)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	for _, line := range lines {
		if strings.Contains(line, "Select All Customers") {
			assert.NotContains(t, line, favoriteMark)
		}
	}

	buf.Reset()
	require.NoError(t, f.RenderQueries(&buf, nil, nil))
	assert.Equal(t, "No queries found.\n", buf.String())
}

func TestRenderHistory(t *testing.T) {
	f := newTestFormatter()
	entries := []history.Entry{
		{Title: "Custom Query", Text: "SELECT *\nFROM orders;", Timestamp: testutil.TestTime.Add(-5 * time.Minute)},
		{Title: "Select All Customers", Text: "SELECT * FROM customers;", Timestamp: testutil.TestTime.Add(-3 * time.Hour)},
	}

	var buf bytes.Buffer
	require.NoError(t, f.RenderHistory(&buf, entries))

	out := buf.String()
	assert.Contains(t, out, "5 minutes ago")
	assert.Contains(t, out, "3 hours ago")
	assert.Contains(t, out, "SELECT * ...")

	buf.Reset()
	require.NoError(t, f.RenderHistory(&buf, nil))
	assert.Equal(t, "No queries executed yet.\n", buf.String())
}

func TestQueryDetail(t *testing.T) {
	f := newTestFormatter()
	q := testutil.NewTestQuery(
		testutil.WithID("abc"),
		testutil.WithText("SELECT 1\nFROM dual;"),
		testutil.WithCreatedAt(testutil.TestTime.Add(-48*time.Hour)),
	)

	out := f.QueryDetail(q, true)
	assert.True(t, strings.HasPrefix(out, testutil.TestQueryTitle+"  "+favoriteMark))
	assert.Contains(t, out, "Origin: user (id: abc)")
	assert.Contains(t, out, "Created: 2 days ago")
	assert.Contains(t, out, "\n  SELECT 1\n  FROM dual;")

	q.Description = ""
	assert.Contains(t, f.QueryDetail(q, false), "Description: -")
}

func TestRenderStats(t *testing.T) {
	f := newTestFormatter()
	session := workspace.Stats{Predefined: 5, User: 1, Favorites: 2, History: 3}

	var buf bytes.Buffer
	require.NoError(t, f.RenderStats(&buf, session, nil))
	assert.Contains(t, buf.String(), "Predefined queries")
	assert.NotContains(t, buf.String(), "Most run")

	buf.Reset()

	stored := &storage.Stats{
		HistoryEntries: 3,
		SchemaVersion:  2,
		LastExecuted:   testutil.TestTime.Add(-30 * time.Second),
		TopTitles:      map[string]int{"B": 1, "A": 1, "Custom Query": 2},
	}
	require.NoError(t, f.RenderStats(&buf, session, stored))

	out := buf.String()
	assert.Contains(t, out, "just now")
	assert.Contains(t, out, "Most run:\n  Custom Query (2)\n  A (1)\n  B (1)\n")
}

func TestHumanizeAge(t *testing.T) {
	f := newTestFormatter()
	now := testutil.TestTime

	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{"zero", time.Time{}, "?"},
		{"seconds", now.Add(-10 * time.Second), "just now"},
		{"one minute", now.Add(-90 * time.Second), "1 minute ago"},
		{"one hour", now.Add(-70 * time.Minute), "1 hour ago"},
		{"one day", now.Add(-25 * time.Hour), "1 day ago"},
		{"old", time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC), "2023-01-02"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.humanizeAge(tt.at))
		})
	}
}
