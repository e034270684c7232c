package parser

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVSource_ReadsHeaderAndRows(t *testing.T) {
	input := "License Number,Business Name,City\r\n" +
		"ROC1,\"Acme, Inc\",Phoenix\r\n" +
		"\r\n" +
		"ROC2,Beta LLC,Tucson"

	src, err := NewCSVSource(strings.NewReader(input), DefaultConfig())
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, Row{"License Number", "Business Name", "City"}, src.Header())

	lines, err := ReadAll(src)
	require.NoError(t, err)
	require.Len(t, lines, 3)

	assert.Equal(t, 2, lines[0].Number)
	assert.Equal(t, `ROC1,"Acme, Inc",Phoenix`, lines[0].Raw)
	assert.Equal(t, Row{"ROC1", "Acme, Inc", "Phoenix"}, lines[0].Fields)

	assert.Equal(t, 3, lines[1].Number)
	assert.Equal(t, Row{""}, lines[1].Fields)

	assert.Equal(t, 4, lines[2].Number)
	assert.Equal(t, Row{"ROC2", "Beta LLC", "Tucson"}, lines[2].Fields)

	assert.Equal(t, int64(len(input)), src.BytesRead())

	_, err = src.Next()
	assert.Equal(t, io.EOF, err)
}

func TestCSVSource_StripsBOM(t *testing.T) {
	src, err := NewCSVSource(strings.NewReader("\ufeffLicense Number,City\nROC1,Mesa\n"), DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, "License Number", src.Header()[0])
}

func TestCSVSource_EmptyInput(t *testing.T) {
	for _, input := range []string{"", "\n", "   \r\n"} {
		_, err := NewCSVSource(strings.NewReader(input), DefaultConfig())
		assert.ErrorIs(t, err, ErrEmptyInput, "input=%q", input)
	}
}

func TestCSVSource_HeaderOnly(t *testing.T) {
	src, err := NewCSVSource(strings.NewReader("License Number\n"), DefaultConfig())
	require.NoError(t, err)

	lines, err := ReadAll(src)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestCSVSource_LongLine(t *testing.T) {
	long := strings.Repeat("x", 200*1024)
	src, err := NewCSVSource(strings.NewReader("a,b\n"+long+",y\n"), DefaultConfig())
	require.NoError(t, err)

	line, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, Row{long, "y"}, line.Fields)
}

func TestOpen_CSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.csv")
	require.NoError(t, os.WriteFile(path, []byte("License Number,City\nROC1,Mesa\n"), 0o644))

	src, err := Open(path, DefaultConfig())
	require.NoError(t, err)
	defer src.Close()

	lines, err := ReadAll(src)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, Row{"ROC1", "Mesa"}, lines[0].Fields)
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.csv"), DefaultConfig())
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatXLSX, DetectFormat("/data/registry.XLSX"))
	assert.Equal(t, FormatCSV, DetectFormat("registry.csv"))
	assert.Equal(t, FormatCSV, DetectFormat("registry.txt"))
	assert.Equal(t, FormatXLSX, ParseFormat("excel"))
	assert.Equal(t, FormatUnknown, ParseFormat("xml"))
	assert.Equal(t, "csv", FormatCSV.String())
}
