package formatter

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/cli/go-gh/v2/pkg/tableprinter"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/kyleking/query-runner/internal/catalog"
	"github.com/kyleking/query-runner/internal/history"
	"github.com/kyleking/query-runner/internal/storage"
	"github.com/kyleking/query-runner/internal/workspace"
)

const favoriteMark = "★"

// RenderQueries writes one row per query. isFavorite may be nil.
func (f *Formatter) RenderQueries(w io.Writer, queries []catalog.QueryDefinition, isFavorite func(title string) bool) error {
	if len(queries) == 0 {
		_, err := fmt.Fprintln(w, "No queries found.")
		return err
	}

	tp := tableprinter.New(w, f.isTTY, f.width)
	tp.AddHeader([]string{"", "TITLE", "ORIGIN", "ID", "DESCRIPTION"})

	for _, q := range queries {
		mark := ""
		if isFavorite != nil && isFavorite(q.Title) {
			mark = favoriteMark
		}

		tp.AddField(mark)
		tp.AddField(q.Title)
		tp.AddField(string(q.Origin))
		tp.AddField(q.ShortID())
		tp.AddField(q.Description)
		tp.EndRow()
	}

	return tp.Render()
}

// RenderHistory writes history entries newest first, numbered for recall
func (f *Formatter) RenderHistory(w io.Writer, entries []history.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No queries executed yet.")
		return err
	}

	tp := tableprinter.New(w, f.isTTY, f.width)
	tp.AddHeader([]string{"#", "TITLE", "WHEN", "SQL"})

	for i, e := range entries {
		tp.AddField(strconv.Itoa(i))
		tp.AddField(e.Title)
		tp.AddField(f.humanizeAge(e.Timestamp))
		tp.AddField(firstLine(e.Text, 60))
		tp.EndRow()
	}

	return tp.Render()
}

// QueryDetail formats a single query for the info command
func (f *Formatter) QueryDetail(q catalog.QueryDefinition, favorite bool) string {
	var lines []string

	header := q.Title
	if favorite {
		header += "  " + favoriteMark
	}

	lines = append(lines, header)

	origin := string(q.Origin)
	if q.ID != "" {
		origin += " (id: " + q.ID + ")"
	}

	lines = append(lines, "Origin: "+origin)

	description := q.Description
	if description == "" {
		description = "-"
	}

	lines = append(lines, "Description: "+description)

	if !q.CreatedAt.IsZero() {
		lines = append(lines, "Created: "+f.humanizeAge(q.CreatedAt))
	}

	lines = append(lines, "SQL:")

	for _, l := range strings.Split(strings.TrimRight(q.Text, "\n"), "\n") {
		lines = append(lines, "  "+l)
	}

	return strings.Join(lines, "\n")
}

// RenderStats writes session counters and, when given, persisted counters
func (f *Formatter) RenderStats(w io.Writer, session workspace.Stats, stored *storage.Stats) error {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(f.tableStyle())
	tw.AppendHeader(table.Row{"Metric", "Value"})
	tw.AppendRows([]table.Row{
		{"Predefined queries", session.Predefined},
		{"User queries", session.User},
		{"Favorites", session.Favorites},
		{"History entries", session.History},
		{"Pending executions", session.Pending},
		{"Canned results", session.Canned},
	})

	if stored != nil {
		tw.AppendSeparator()
		tw.AppendRows([]table.Row{
			{"Stored user queries", stored.UserQueries},
			{"Stored favorites", stored.Favorites},
			{"Stored history entries", stored.HistoryEntries},
			{"Last executed", f.humanizeAge(stored.LastExecuted)},
			{"Schema version", stored.SchemaVersion},
			{"Database size", fmt.Sprintf("%.2f MB", stored.DatabaseSizeMB)},
		})
	}

	tw.Render()

	if stored == nil || len(stored.TopTitles) == 0 {
		return nil
	}

	type titleCount struct {
		title string
		runs  int
	}

	top := make([]titleCount, 0, len(stored.TopTitles))
	for title, runs := range stored.TopTitles {
		top = append(top, titleCount{title, runs})
	}

	sort.Slice(top, func(i, j int) bool {
		if top[i].runs != top[j].runs {
			return top[i].runs > top[j].runs
		}

		return top[i].title < top[j].title
	})

	if _, err := fmt.Fprintln(w, "\nMost run:"); err != nil {
		return err
	}

	for _, tc := range top {
		if _, err := fmt.Fprintf(w, "  %s (%d)\n", tc.title, tc.runs); err != nil {
			return err
		}
	}

	return nil
}
