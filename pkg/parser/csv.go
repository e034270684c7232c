package parser

import (
	"bufio"
	"io"
	"strings"
)

const utf8BOM = "\ufeff"

// CSVSource reads delimited text line by line.
// Quoted fields cannot span lines: every physical line is one row.
type CSVSource struct {
	reader  *bufio.Reader
	closer  io.Closer
	scanner *LineScanner

	header    Row
	lineNum   int
	bytesRead int64
}

// NewCSVSource reads the header line from r and returns a source positioned
// at the first data row.
func NewCSVSource(r io.Reader, cfg Config) (*CSVSource, error) {
	bufSize := cfg.BufferSize
	if bufSize <= 0 {
		bufSize = DefaultConfig().BufferSize
	}

	s := &CSVSource{
		reader:  bufio.NewReaderSize(r, bufSize),
		scanner: NewLineScanner(cfg),
	}

	headerLine, err := s.readLine()
	if err == io.EOF {
		return nil, ErrEmptyInput
	}
	if err != nil {
		return nil, err
	}

	headerLine = strings.TrimPrefix(headerLine, utf8BOM)
	if strings.TrimSpace(headerLine) == "" {
		return nil, ErrEmptyInput
	}
	s.lineNum = 1
	s.header = s.scanner.ScanLine(headerLine)
	return s, nil
}

// Header implements Source.
func (s *CSVSource) Header() Row {
	return s.header
}

// Next implements Source.
func (s *CSVSource) Next() (Line, error) {
	raw, err := s.readLine()
	if err != nil {
		return Line{}, err
	}
	s.lineNum++
	return Line{
		Number: s.lineNum,
		Raw:    raw,
		Fields: s.scanner.ScanLine(raw),
	}, nil
}

// readLine returns the next line without its line ending.
// A final line without a trailing newline is still returned; io.EOF is
// only reported once nothing is left.
func (s *CSVSource) readLine() (string, error) {
	line, err := s.reader.ReadString('\n')
	s.bytesRead += int64(len(line))
	if err != nil && err != io.EOF {
		return "", err
	}
	if err == io.EOF && line == "" {
		return "", io.EOF
	}
	return trimLineEnding(line), nil
}

// BytesRead implements Source.
func (s *CSVSource) BytesRead() int64 {
	return s.bytesRead
}

// Close implements Source.
func (s *CSVSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
