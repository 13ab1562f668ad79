package testutil

import (
	"fmt"
	"time"

	"github.com/kyleking/query-runner/internal/catalog"
	"github.com/kyleking/query-runner/internal/history"
	"github.com/kyleking/query-runner/internal/types"
)

// QueryOption is a functional option for configuring test query definitions
type QueryOption func(*catalog.QueryDefinition)

// WithTitle sets the query title
func WithTitle(title string) QueryOption {
	return func(q *catalog.QueryDefinition) {
		q.Title = title
	}
}

// WithDescription sets the query description
func WithDescription(desc string) QueryOption {
	return func(q *catalog.QueryDefinition) {
		q.Description = desc
	}
}

// WithText sets the SQL body
func WithText(text string) QueryOption {
	return func(q *catalog.QueryDefinition) {
		q.Text = text
	}
}

// WithID sets the identifier and marks the entry as user-created
func WithID(id string) QueryOption {
	return func(q *catalog.QueryDefinition) {
		q.ID = id
		q.Origin = catalog.OriginUser
	}
}

// AsPredefined clears the identifier and marks the entry as built-in
func AsPredefined() QueryOption {
	return func(q *catalog.QueryDefinition) {
		q.ID = ""
		q.Origin = catalog.OriginPredefined
	}
}

// WithCreatedAt sets the creation timestamp
func WithCreatedAt(t time.Time) QueryOption {
	return func(q *catalog.QueryDefinition) {
		q.CreatedAt = t
	}
}

// NewTestQuery creates a user query definition with sensible defaults
// and applies any provided options.
func NewTestQuery(opts ...QueryOption) catalog.QueryDefinition {
	q := catalog.QueryDefinition{
		ID:          TestQueryID,
		Origin:      catalog.OriginUser,
		Title:       TestQueryTitle,
		Description: TestQueryDescription,
		Text:        TestQueryText,
		CreatedAt:   TestTime,
	}

	for _, opt := range opts {
		opt(&q)
	}

	return q
}

// NewTestQueries creates count user queries with distinct ids and titles
func NewTestQueries(count int) []catalog.QueryDefinition {
	queries := make([]catalog.QueryDefinition, count)
	for i := range count {
		queries[i] = NewTestQuery(
			WithID(fmt.Sprintf("query-%d", i)),
			WithTitle(fmt.Sprintf("Test Query %d", i)),
			WithText(fmt.Sprintf("SELECT %d;", i)),
		)
	}

	return queries
}

// NewTestHistoryEntry creates a history entry at TestTime offset by the given minutes
func NewTestHistoryEntry(title, text string, minutes int) history.Entry {
	return history.Entry{
		Title:     title,
		Text:      text,
		Timestamp: TestTime.Add(time.Duration(minutes) * time.Minute),
	}
}

// TableOption is a functional option for configuring test result tables
type TableOption func(*types.ResultTable)

// WithColumns replaces the column list and clears the rows
func WithColumns(columns ...string) TableOption {
	return func(t *types.ResultTable) {
		t.Columns = columns
		t.Rows = []types.Row{}
	}
}

// WithRow appends a row whose values follow the column order
func WithRow(values ...any) TableOption {
	return func(t *types.ResultTable) {
		row := make(types.Row, len(t.Columns))
		for i, col := range t.Columns {
			if i < len(values) {
				row[col] = values[i]
			} else {
				row[col] = nil
			}
		}

		t.Rows = append(t.Rows, row)
	}
}

// NewTestTable creates a two-column table with two rows unless options replace it
func NewTestTable(opts ...TableOption) types.ResultTable {
	table := types.ResultTable{
		Columns: []string{"id", "name"},
		Rows: []types.Row{
			{"id": 1, "name": "Ada"},
			{"id": 2, "name": "Grace"},
		},
	}

	for _, opt := range opts {
		opt(&table)
	}

	return table
}
