package export

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleking/query-runner/internal/types"
)

func TestToCSV(t *testing.T) {
	tests := []struct {
		name     string
		table    types.ResultTable
		expected string
	}{
		{
			name: "string cells are quoted without escaping",
			table: types.ResultTable{
				Columns: []string{"a", "b"},
				Rows:    []types.Row{{"a": "x,y", "b": 1}},
			},
			expected: "a,b\n\"x,y\",1",
		},
		{
			name: "embedded quotes pass through",
			table: types.ResultTable{
				Columns: []string{"q"},
				Rows:    []types.Row{{"q": `say "hi"`}},
			},
			expected: "q\n\"say \"hi\"\"",
		},
		{
			name: "nil is an empty token",
			table: types.ResultTable{
				Columns: []string{"a", "b", "c"},
				Rows:    []types.Row{{"a": nil, "b": 2.5, "c": true}},
			},
			expected: "a,b,c\n,2.5,true",
		},
		{
			name: "column order drives cell order",
			table: types.ResultTable{
				Columns: []string{"z", "a"},
				Rows:    []types.Row{{"a": 1, "z": 2}, {"a": 3, "z": 4}},
			},
			expected: "z,a\n2,1\n4,3",
		},
		{
			name:     "no rows yields empty string",
			table:    types.ResultTable{Columns: []string{"a"}, Rows: []types.Row{}},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ToCSV(tt.table))
		})
	}
}

func TestToCSVCustomerOrderHistory(t *testing.T) {
	table := types.ResultTable{
		Columns: []string{"order_id", "order_date", "total_amount", "status", "total_items"},
		Rows: []types.Row{
			{"order_id": 1089, "order_date": "2023-11-15", "total_amount": 325.5, "status": "Delivered", "total_items": 3},
			{"order_id": 731, "order_date": "2023-05-03", "total_amount": 275.0, "status": "Delivered", "total_items": 3},
		},
	}

	expected := "order_id,order_date,total_amount,status,total_items\n" +
		"1089,\"2023-11-15\",325.5,\"Delivered\",3\n" +
		"731,\"2023-05-03\",275,\"Delivered\",3"

	assert.Equal(t, expected, ToCSV(table))
}

func TestToCSVRoundTrip(t *testing.T) {
	table := types.ResultTable{
		Columns: []string{"id", "name", "score"},
		Rows: []types.Row{
			{"id": 1, "name": "Ada", "score": 9.5},
			{"id": 2, "name": "Grace", "score": 10},
		},
	}

	records, err := csv.NewReader(strings.NewReader(ToCSV(table))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, table.Columns, records[0])

	for i, row := range table.Rows {
		record := records[i+1]
		for j, col := range table.Columns {
			want := row[col]
			if s, ok := want.(string); ok {
				assert.Equal(t, s, record[j])
				continue
			}

			got, err := strconv.ParseFloat(record[j], 64)
			require.NoError(t, err)
			assert.InDelta(t, want, got, 1e-9)
		}
	}
}

func TestFilename(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	assert.Equal(t, "query_results_1700000000123.csv", Filename(at))
}

func TestFileSinkNeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFileSink(filepath.Join(dir, "exports"))
	require.NoError(t, err)

	ctx := context.Background()

	first, err := sink.Save(ctx, "query_results_1.csv", "a")
	require.NoError(t, err)
	second, err := sink.Save(ctx, "query_results_1.csv", "b")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, "query_results_1_1.csv", filepath.Base(second))

	content, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, "a", string(content))

	content, err = os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, "b", string(content))
}

func TestFileSinkHonoursContext(t *testing.T) {
	sink, err := NewFileSink(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = sink.Save(ctx, "x.csv", "data")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemorySink(t *testing.T) {
	sink := NewMemorySink()

	name, err := sink.Save(context.Background(), "a.csv", "x")
	require.NoError(t, err)
	assert.Equal(t, "a.csv", name)
	assert.Equal(t, "x", sink.Files["a.csv"])
	assert.Equal(t, []string{"a.csv"}, sink.Order)
}
