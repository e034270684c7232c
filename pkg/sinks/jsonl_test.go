package sinks

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLSink_ActiveOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "contractors.jsonl")
	s := NewJSONLSink(path)

	feed(t, s,
		contractor("1001", "Acme & Sons <AZ>", "Active", "Phoenix"),
		contractor("1002", "Old Co", "Expired", "Tucson"),
		contractor("1003", "Lower Co", "active", "Mesa"),
		contractor("1004", "Beta", "Active", "Flagstaff"),
	)
	assert.Equal(t, 2, s.Count())
	assert.Equal(t, []string{path}, s.Artifacts())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []map[string]string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec map[string]string
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		lines = append(lines, rec)
	}
	require.NoError(t, sc.Err())
	require.Len(t, lines, 2)

	for _, rec := range lines {
		assert.Equal(t, "Active", rec["licenseStatus"])
		assert.Len(t, rec, 13)
		assert.NotContains(t, rec, "state")
	}
	assert.Equal(t, "1001", lines[0]["licenseNumber"])
	assert.Equal(t, "1004", lines[1]["licenseNumber"])

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"businessName":"Acme & Sons <AZ>"`)
}

func TestJSONLSink_EmptyRunStillCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contractors.jsonl")
	feed(t, NewJSONLSink(path), contractor("1002", "Old Co", "Expired", "Tucson"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, raw)
}
