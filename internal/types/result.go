// Package types holds the tabular result model shared by the simulator,
// the exporter and the formatters.
package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Row maps a column name to a scalar value: string, a number, bool, or nil.
type Row map[string]any

// ResultTable is an ordered set of columns and the records produced for them.
// Once returned by the simulator a table is treated as immutable.
type ResultTable struct {
	Columns []string `json:"columns" yaml:"columns"`
	Rows    []Row    `json:"rows"    yaml:"rows"`
}

// EmptyTable returns a table with no columns and no rows
func EmptyTable() ResultTable {
	return ResultTable{Columns: []string{}, Rows: []Row{}}
}

// RowCount returns the number of records
func (t ResultTable) RowCount() int {
	return len(t.Rows)
}

// IsEmpty reports whether the table has no records
func (t ResultTable) IsEmpty() bool {
	return len(t.Rows) == 0
}

// Validate checks that column names are unique and every record carries
// exactly the listed columns.
func (t ResultTable) Validate() error {
	seen := make(map[string]struct{}, len(t.Columns))
	for _, col := range t.Columns {
		if _, dup := seen[col]; dup {
			return fmt.Errorf("duplicate column %q", col)
		}

		seen[col] = struct{}{}
	}

	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("row %d has %d values, expected %d", i, len(row), len(t.Columns))
		}

		for _, col := range t.Columns {
			if _, ok := row[col]; !ok {
				return fmt.Errorf("row %d is missing column %q", i, col)
			}
		}

		for key, value := range row {
			if !IsScalar(value) {
				return fmt.Errorf("row %d column %q holds non-scalar %T", i, key, value)
			}
		}
	}

	return nil
}

// Clone returns a deep copy so callers cannot alias a stored table
func (t ResultTable) Clone() ResultTable {
	out := ResultTable{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([]Row, len(t.Rows)),
	}

	for i, row := range t.Rows {
		copied := make(Row, len(row))
		for k, v := range row {
			copied[k] = v
		}

		out.Rows[i] = copied
	}

	return out
}

// Values returns the row's values in column order
func (t ResultTable) Values(row Row) []any {
	values := make([]any, len(t.Columns))
	for i, col := range t.Columns {
		values[i] = row[col]
	}

	return values
}

// IsScalar reports whether v is a value a result cell may hold
func IsScalar(v any) bool {
	switch v.(type) {
	case nil, string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	default:
		return false
	}
}

// FormatScalar renders a non-string cell the way a script runtime prints numbers:
// integral floats drop the fraction, nil renders empty.
func FormatScalar(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return formatNumber(val, 64)
	case float32:
		return formatNumber(float64(val), 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// formatNumber switches to exponent notation outside [1e-6, 1e21) and
// prints negative zero as 0.
func formatNumber(v float64, bitSize int) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	case v == 0:
		return "0"
	}

	abs := math.Abs(v)
	if abs >= 1e21 || abs < 1e-6 {
		out := strconv.FormatFloat(v, 'e', -1, bitSize)
		mantissa, exp, _ := strings.Cut(out, "e")
		sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")

		return mantissa + "e" + sign + digits
	}

	return strconv.FormatFloat(v, 'f', -1, bitSize)
}
