// Package parser turns registry exports into ordered rows of field values.
//
// Delimited text is read one physical line at a time and split by
// LineScanner; XLSX workbooks are read row by row from their first sheet.
// Both are exposed through the Source interface so the driver does not care
// where a row came from.
package parser

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Row is the ordered list of trimmed field values of one input line.
type Row []string

// Line is one data row read from a Source.
type Line struct {
	// Number is the 1-based physical line (or sheet row) number; the header is line 1.
	Number int

	// Raw is the untouched line text, kept for diagnostics.
	Raw string

	// Fields are the parsed values.
	Fields Row
}

// Source streams rows from a registry export.
// Implementations read the header once when they are created.
type Source interface {
	// Header returns the header row.
	Header() Row

	// Next returns the next data row, or io.EOF after the last one.
	Next() (Line, error)

	// BytesRead reports how many input bytes have been consumed so far.
	// Sources that cannot tell return 0.
	BytesRead() int64

	// Close releases the underlying file.
	Close() error
}

// Format represents a supported input format.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatCSV
	FormatXLSX
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatXLSX:
		return "xlsx"
	default:
		return "unknown"
	}
}

// ParseFormat parses a format string.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "csv", "txt", "tsv":
		return FormatCSV
	case "xlsx", "excel":
		return FormatXLSX
	default:
		return FormatUnknown
	}
}

// DetectFormat picks the format from the file extension.
// Anything that is not a workbook is treated as delimited text.
func DetectFormat(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return FormatXLSX
	}
	return FormatCSV
}

// Config holds parser configuration.
type Config struct {
	// Delimiter is the field delimiter (default: comma).
	Delimiter byte

	// UnescapeQuotes turns "" inside a quoted field into a literal quote.
	// When false, quote characters are dropped and never unescaped, which is
	// what existing consumers of the registry artifacts expect.
	UnescapeQuotes bool

	// BufferSize is the size of the read buffer in bytes.
	BufferSize int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Delimiter:  ',',
		BufferSize: 64 * 1024,
	}
}

// Open opens the export at path and reads its header.
func Open(path string, cfg Config) (Source, error) {
	switch DetectFormat(path) {
	case FormatXLSX:
		return OpenXLSX(path)
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		src, err := NewCSVSource(f, cfg)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		src.closer = f
		return src, nil
	}
}

// ReadAll drains a source. Intended for small inputs and tests.
func ReadAll(src Source) ([]Line, error) {
	var lines []Line
	for {
		line, err := src.Next()
		if err == io.EOF {
			return lines, nil
		}
		if err != nil {
			return lines, err
		}
		lines = append(lines, line)
	}
}
