// Package export serializes result tables to CSV text and delivers it to a sink.
//
// The format is deliberately naive: string cells are wrapped in double quotes
// without escaping, other scalars are written as their literal text and nil is
// an empty token. Lines are joined by "\n" with no trailing newline.
package export

import (
	"strings"

	"github.com/kyleking/query-runner/internal/types"
)

// ToCSV renders table as CSV. A table with no rows yields the empty string.
func ToCSV(table types.ResultTable) string {
	if table.IsEmpty() {
		return ""
	}

	var b strings.Builder

	b.WriteString(strings.Join(table.Columns, ","))

	for _, row := range table.Rows {
		b.WriteByte('\n')

		for i, col := range table.Columns {
			if i > 0 {
				b.WriteByte(',')
			}

			b.WriteString(formatCell(row[col]))
		}
	}

	return b.String()
}

func formatCell(v any) string {
	if s, ok := v.(string); ok {
		return `"` + s + `"`
	}

	return types.FormatScalar(v)
}
