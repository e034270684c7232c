package pipeline

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DLQRecord is one rejected row as written to the errors file.
type DLQRecord struct {
	Row  int    `json:"row"`
	Line int    `json:"line"`
	Raw  string `json:"raw"`

	ErrorType    string `json:"error_type"`
	ErrorMessage string `json:"error_message"`

	SourceFile string    `json:"source_file"`
	RunID      string    `json:"run_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// DLQWriter appends rejected rows to a JSON-lines file so they can be fixed
// and re-run. The file is truncated when the writer is created.
type DLQWriter struct {
	mu sync.Mutex

	path   string
	file   *os.File
	buf    *bufio.Writer
	enc    *json.Encoder
	source string
	runID  string

	count  int
	closed bool
}

// NewDLQWriter creates the errors file at path.
func NewDLQWriter(path, sourceFile, runID string) (*DLQWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create DLQ directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open DLQ file: %w", err)
	}

	buf := bufio.NewWriter(file)
	return &DLQWriter{
		path:   path,
		file:   file,
		buf:    buf,
		enc:    json.NewEncoder(buf),
		source: sourceFile,
		runID:  runID,
	}, nil
}

// Write appends one record.
func (w *DLQWriter) Write(record DLQRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("DLQ writer is closed")
	}

	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}
	if record.SourceFile == "" {
		record.SourceFile = w.source
	}
	if record.RunID == "" {
		record.RunID = w.runID
	}

	if err := w.enc.Encode(record); err != nil {
		return fmt.Errorf("failed to write DLQ record: %w", err)
	}
	w.count++
	return nil
}

// WriteError converts an ErrorRecord and appends it.
func (w *DLQWriter) WriteError(rec ErrorRecord) error {
	return w.Write(DLQRecord{
		Row:          rec.Row,
		Line:         rec.Line,
		Raw:          rec.Raw,
		ErrorType:    rec.Type.String(),
		ErrorMessage: rec.Message,
	})
}

// Path returns the file the writer appends to.
func (w *DLQWriter) Path() string {
	return w.path
}

// Count returns the number of records written.
func (w *DLQWriter) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Close flushes and closes the file.
func (w *DLQWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.buf.Flush(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

// ReadDLQ loads every record of an errors file.
func ReadDLQ(path string) ([]DLQRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []DLQRecord
	dec := json.NewDecoder(f)
	for dec.More() {
		var rec DLQRecord
		if err := dec.Decode(&rec); err != nil {
			return records, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// DLQSummary counts records of an errors file by type.
type DLQSummary struct {
	TotalRecords int
	ErrorTypes   map[string]int
}

// SummarizeDLQ reads an errors file and counts its records.
func SummarizeDLQ(path string) (*DLQSummary, error) {
	records, err := ReadDLQ(path)
	if err != nil {
		return nil, err
	}

	summary := &DLQSummary{ErrorTypes: make(map[string]int)}
	for _, rec := range records {
		summary.TotalRecords++
		summary.ErrorTypes[rec.ErrorType]++
	}
	return summary, nil
}
