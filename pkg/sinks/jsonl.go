package sinks

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/registryflow/registryflow/internal/model"
)

// JSONLSink writes one JSON object per line for every active record.
type JSONLSink struct {
	path  string
	file  *os.File
	buf   *bufio.Writer
	enc   *json.Encoder
	count int
}

// NewJSONLSink creates a sink writing to path.
func NewJSONLSink(path string) *JSONLSink {
	return &JSONLSink{path: path}
}

// Name implements pipeline.Sink.
func (s *JSONLSink) Name() string { return "jsonl" }

// Open creates (or truncates) the output file.
func (s *JSONLSink) Open(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	f, err := os.Create(s.path)
	if err != nil {
		return err
	}

	s.file = f
	s.buf = bufio.NewWriterSize(f, 256*1024)
	s.enc = json.NewEncoder(s.buf)
	s.enc.SetEscapeHTML(false)
	return nil
}

// Write encodes c followed by a newline. Inactive records are skipped.
func (s *JSONLSink) Write(ctx context.Context, c *model.Contractor) error {
	if !c.IsActive() {
		return nil
	}
	if err := s.enc.Encode(c); err != nil {
		return err
	}
	s.count++
	return nil
}

// Close flushes the buffer and closes the file.
func (s *JSONLSink) Close(ctx context.Context) error {
	if s.file == nil {
		return nil
	}

	flushErr := s.buf.Flush()
	closeErr := s.file.Close()
	s.file = nil
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

// Artifacts implements pipeline.Sink.
func (s *JSONLSink) Artifacts() []string {
	if s.enc == nil {
		return nil
	}
	return []string{s.path}
}

// Count returns the number of lines written.
func (s *JSONLSink) Count() int { return s.count }
