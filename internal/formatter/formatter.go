package formatter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cli/go-gh/v2/pkg/term"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/kyleking/query-runner/internal/errors"
	"github.com/kyleking/query-runner/internal/types"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatTable    OutputFormat = "table"
	FormatMarkdown OutputFormat = "markdown"
	FormatJSON     OutputFormat = "json"
)

const nullDisplay = "NULL"

// ParseFormat maps a flag value onto an OutputFormat. Empty selects the table format.
func ParseFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	case string(FormatJSON):
		return FormatJSON, nil
	}

	return "", errors.NewValidationError("unknown output format "+s, "format").
		WithSuggestion("use one of: table, markdown, json")
}

// Formatter renders workspace data for a terminal
type Formatter struct {
	dark  bool
	isTTY bool
	width int
	now   func() time.Time
}

// Option configures a Formatter
type Option func(*Formatter)

// WithDark selects the colored table style on terminals
func WithDark(dark bool) Option {
	return func(f *Formatter) { f.dark = dark }
}

// WithTerminal overrides terminal detection
func WithTerminal(isTTY bool, width int) Option {
	return func(f *Formatter) {
		f.isTTY = isTTY
		f.width = width
	}
}

// WithClock sets the reference time for relative ages
func WithClock(now func() time.Time) Option {
	return func(f *Formatter) { f.now = now }
}

// NewFormatter creates a new formatter instance. Terminal settings come from
// the environment unless WithTerminal is given.
func NewFormatter(opts ...Option) *Formatter {
	t := term.FromEnv()

	f := &Formatter{
		isTTY: t.IsTerminalOutput(),
		width: 80,
		now:   time.Now,
	}

	if w, _, err := t.Size(); err == nil && w > 0 {
		f.width = w
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// IsTTY reports whether output is going to a terminal
func (f *Formatter) IsTTY() bool {
	return f.isTTY
}

// ResultSummary returns the row count line shown under a result grid
func ResultSummary(t types.ResultTable) string {
	return fmt.Sprintf("Results (%d rows)", t.RowCount())
}

// ExecutionSummary returns the elapsed time line shown after a run
func ExecutionSummary(d time.Duration) string {
	return fmt.Sprintf("Query executed in %dms", d.Milliseconds())
}

// RenderResult writes a result table in the requested format
func (f *Formatter) RenderResult(w io.Writer, t types.ResultTable, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return f.renderJSON(w, t)
	case FormatMarkdown:
		return f.renderMarkdown(w, t)
	default:
		return f.renderTable(w, t)
	}
}

func (f *Formatter) renderTable(w io.Writer, t types.ResultTable) error {
	if t.IsEmpty() {
		_, err := fmt.Fprintln(w, "(no results)")
		return err
	}

	tw := f.newTable(w, t)
	tw.Render()

	_, err := fmt.Fprintln(w, ResultSummary(t))

	return err
}

func (f *Formatter) renderMarkdown(w io.Writer, t types.ResultTable) error {
	if t.IsEmpty() {
		_, err := fmt.Fprintln(w, "_no results_")
		return err
	}

	tw := f.newTable(w, t)
	tw.RenderMarkdown()

	_, err := fmt.Fprintf(w, "\n%s\n", ResultSummary(t))

	return err
}

func (f *Formatter) renderJSON(w io.Writer, t types.ResultTable) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(t); err != nil {
		return errors.Wrap(err, errors.ErrTypeInternal, "failed to encode results")
	}

	return nil
}

func (f *Formatter) newTable(w io.Writer, t types.ResultTable) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(f.tableStyle())

	header := make(table.Row, len(t.Columns))
	for i, col := range t.Columns {
		header[i] = col
	}

	tw.AppendHeader(header)

	for _, record := range t.Rows {
		row := make(table.Row, len(t.Columns))
		for i, col := range t.Columns {
			row[i] = displayValue(record[col])
		}

		tw.AppendRow(row)
	}

	return tw
}

// tableStyle keeps column names as the query returned them
func (f *Formatter) tableStyle() table.Style {
	style := table.StyleLight
	if f.dark && f.isTTY {
		style = table.StyleColoredDark
	}

	style.Format.Header = text.FormatDefault
	style.Format.Footer = text.FormatDefault

	return style
}

func displayValue(v any) string {
	if v == nil {
		return nullDisplay
	}

	return types.FormatScalar(v)
}

// humanizeAge converts a time to a human-readable age string
func (f *Formatter) humanizeAge(t time.Time) string {
	if t.IsZero() {
		return "?"
	}

	d := f.now().Sub(t)

	switch {
	case d < time.Minute:
		return "just now"
	case d < 2*time.Minute:
		return "1 minute ago"
	case d < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(d.Minutes()))
	case d < 2*time.Hour:
		return "1 hour ago"
	case d < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(d.Hours()))
	}

	days := int(d.Hours() / 24)
	if days == 1 {
		return "1 day ago"
	}

	if days < 30 {
		return fmt.Sprintf("%d days ago", days)
	}

	return t.Format("2006-01-02")
}

func firstLine(s string, limit int) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i] + " ..."
	}

	if limit > 3 && len(s) > limit {
		s = s[:limit-3] + "..."
	}

	return s
}
