package sinks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/compress"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"

	"github.com/registryflow/registryflow/internal/model"
)

// CompressionType represents Parquet compression options.
type CompressionType uint8

const (
	CompressionNone CompressionType = iota
	CompressionSnappy
	CompressionGzip
	CompressionZstd
	CompressionLZ4
)

// String returns the compression type name.
func (c CompressionType) String() string {
	switch c {
	case CompressionSnappy:
		return "snappy"
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return "none"
	}
}

// ParseCompression parses a compression type string.
func ParseCompression(s string) CompressionType {
	switch strings.ToLower(s) {
	case "snappy":
		return CompressionSnappy
	case "gzip":
		return CompressionGzip
	case "zstd":
		return CompressionZstd
	case "lz4":
		return CompressionLZ4
	default:
		return CompressionNone
	}
}

func (c CompressionType) codec() compress.Compression {
	switch c {
	case CompressionSnappy:
		return compress.Codecs.Snappy
	case CompressionGzip:
		return compress.Codecs.Gzip
	case CompressionZstd:
		return compress.Codecs.Zstd
	case CompressionLZ4:
		return compress.Codecs.Lz4
	default:
		return compress.Codecs.Uncompressed
	}
}

// ParquetConfig configures a ParquetSink.
type ParquetConfig struct {
	// BatchSize is the number of rows per record batch.
	BatchSize int

	Compression CompressionType

	// RunID and Source are stored in the schema metadata.
	RunID  string
	Source string
}

// parquetColumns counts the canonical fields followed by state.
const parquetColumns = int(model.FieldCount) + 1

// contractorSchema returns the Arrow schema for contractor rows.
func contractorSchema(cfg ParquetConfig) *arrow.Schema {
	fields := make([]arrow.Field, 0, parquetColumns)
	for _, f := range model.Fields() {
		fields = append(fields, arrow.Field{
			Name:     f.String(),
			Type:     arrow.BinaryTypes.String,
			Nullable: f != model.FieldLicenseNumber,
		})
	}
	fields = append(fields, arrow.Field{Name: "state", Type: arrow.BinaryTypes.String, Nullable: false})

	source := cfg.Source
	if source != "" {
		source = filepath.Base(source)
	}
	md := arrow.NewMetadata(
		[]string{"registryflow.run_id", "registryflow.source"},
		[]string{cfg.RunID, source},
	)
	return arrow.NewSchema(fields, &md)
}

// ParquetSink writes every valid record to a Parquet file through Arrow
// record batches.
type ParquetSink struct {
	path string
	cfg  ParquetConfig

	file     *os.File
	schema   *arrow.Schema
	writer   *pqarrow.FileWriter
	builders []*array.StringBuilder

	rowCount    int
	rowsWritten int64
}

// NewParquetSink creates a sink writing to path.
func NewParquetSink(path string, cfg ParquetConfig) *ParquetSink {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultOptions().BatchSize
	}
	return &ParquetSink{path: path, cfg: cfg}
}

// Name implements pipeline.Sink.
func (s *ParquetSink) Name() string { return "parquet" }

// Open creates the file and the Arrow writer.
func (s *ParquetSink) Open(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	f, err := os.Create(s.path)
	if err != nil {
		return err
	}

	s.schema = contractorSchema(s.cfg)
	writerProps := parquet.NewWriterProperties(
		parquet.WithCompression(s.cfg.Compression.codec()),
		parquet.WithDictionaryDefault(true),
		parquet.WithDataPageSize(1024*1024),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	w, err := pqarrow.NewFileWriter(s.schema, f, writerProps, arrowProps)
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}

	alloc := memory.NewGoAllocator()
	s.builders = make([]*array.StringBuilder, parquetColumns)
	for i := range s.builders {
		s.builders[i] = array.NewStringBuilder(alloc)
		s.builders[i].Reserve(s.cfg.BatchSize)
	}

	s.file = f
	s.writer = w
	return nil
}

// Write appends c to the current batch.
func (s *ParquetSink) Write(ctx context.Context, c *model.Contractor) error {
	for i, f := range model.Fields() {
		if v := c.Get(f); v != "" || f == model.FieldLicenseNumber {
			s.builders[i].Append(v)
		} else {
			s.builders[i].AppendNull()
		}
	}
	state := c.State
	if state == "" {
		state = model.DefaultState
	}
	s.builders[len(s.builders)-1].Append(state)

	s.rowCount++
	if s.rowCount >= s.cfg.BatchSize {
		return s.flushBatch()
	}
	return nil
}

func (s *ParquetSink) flushBatch() error {
	if s.rowCount == 0 {
		return nil
	}

	cols := make([]arrow.Array, len(s.builders))
	for i, b := range s.builders {
		cols[i] = b.NewArray()
	}
	defer func() {
		for _, col := range cols {
			col.Release()
		}
	}()

	batch := array.NewRecord(s.schema, cols, int64(s.rowCount))
	defer batch.Release()

	if err := s.writer.Write(batch); err != nil {
		return fmt.Errorf("failed to write record batch: %w", err)
	}

	s.rowsWritten += int64(s.rowCount)
	s.rowCount = 0
	return nil
}

// Close flushes the last batch and finalizes the file footer.
func (s *ParquetSink) Close(ctx context.Context) error {
	if s.writer == nil {
		return nil
	}

	flushErr := s.flushBatch()
	closeErr := s.writer.Close()
	s.writer = nil
	for _, b := range s.builders {
		b.Release()
	}

	// The parquet writer may already have closed the file.
	if err := s.file.Close(); err != nil && !errors.Is(err, os.ErrClosed) && closeErr == nil {
		closeErr = err
	}

	if flushErr != nil {
		return flushErr
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close parquet writer: %w", closeErr)
	}
	return nil
}

// Artifacts implements pipeline.Sink.
func (s *ParquetSink) Artifacts() []string {
	if s.file == nil {
		return nil
	}
	return []string{s.path}
}

// RowsWritten returns the total number of rows written.
func (s *ParquetSink) RowsWritten() int64 {
	return s.rowsWritten
}
