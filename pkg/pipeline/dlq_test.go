package pipeline

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDLQWriter_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "contractors-errors.jsonl")

	w, err := NewDLQWriter(path, "registry.csv", "run-1")
	require.NoError(t, err)

	require.NoError(t, w.WriteError(ErrorRecord{
		Row:     3,
		Line:    4,
		Type:    ErrorTypeShortRow,
		Message: "column 2 (license_status) out of range: row has 2 fields",
		Raw:     "1003,Bad",
	}))
	require.NoError(t, w.WriteError(ErrorRecord{Row: 7, Line: 8, Type: ErrorTypeShortRow}))
	assert.Equal(t, 2, w.Count())
	require.NoError(t, w.Close())
	require.NoError(t, w.Close(), "close is idempotent")
	assert.Error(t, w.Write(DLQRecord{}))

	records, err := ReadDLQ(path)
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, 3, first.Row)
	assert.Equal(t, 4, first.Line)
	assert.Equal(t, "1003,Bad", first.Raw)
	assert.Equal(t, "short_row", first.ErrorType)
	assert.Equal(t, "registry.csv", first.SourceFile)
	assert.Equal(t, "run-1", first.RunID)
	assert.False(t, first.Timestamp.IsZero())

	summary, err := SummarizeDLQ(path)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalRecords)
	assert.Equal(t, map[string]int{"short_row": 2}, summary.ErrorTypes)
}
