package sinks

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/registryflow/registryflow/internal/model"
	rferrors "github.com/registryflow/registryflow/pkg/errors"
	"github.com/registryflow/registryflow/pkg/pipeline"
)

const snapshotSchema = `
CREATE TABLE contractors (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	license_number TEXT UNIQUE NOT NULL,
	business_name TEXT,
	license_class TEXT,
	license_type TEXT,
	license_status TEXT,
	license_issued TEXT,
	license_expiration TEXT,
	qualifying_party TEXT,
	dba_name TEXT,
	address TEXT,
	city TEXT,
	zip_code TEXT,
	phone TEXT,
	state TEXT DEFAULT 'AZ',
	created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX idx_contractors_license_status ON contractors(license_status);
CREATE INDEX idx_contractors_license_class ON contractors(license_class);
CREATE INDEX idx_contractors_city ON contractors(city);
CREATE INDEX idx_contractors_business_name ON contractors(business_name);
`

// SnapshotSink loads every valid record into a fresh SQLite database.
//
// Records are buffered and committed BatchSize at a time, one transaction
// per batch. A duplicate license number is resolved by the conflict
// strategy: KeepFirst leaves the stored row alone, Replace overwrites it.
type SnapshotSink struct {
	path      string
	batchSize int
	conflict  pipeline.DeduplicationStrategy
	logger    *zap.Logger

	db         *sql.DB
	insertSQL  string
	batch      []model.Contractor
	inserted   int
	duplicates int
	batches    int
}

// NewSnapshotSink creates a sink writing the database at path.
func NewSnapshotSink(path string, batchSize int, conflict pipeline.DeduplicationStrategy, logger *zap.Logger) *SnapshotSink {
	if batchSize <= 0 {
		batchSize = DefaultOptions().BatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotSink{
		path:      path,
		batchSize: batchSize,
		conflict:  conflict,
		logger:    logger,
		insertSQL: buildInsertSQL(conflict),
		batch:     make([]model.Contractor, 0, batchSize),
	}
}

// Name implements pipeline.Sink.
func (s *SnapshotSink) Name() string { return "sqlite" }

// Open deletes any previous database and creates the schema.
func (s *SnapshotSink) Open(ctx context.Context) error {
	for _, p := range []string{s.path, s.path + "-journal", s.path + "-wal", s.path + "-shm"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove previous snapshot: %w", err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range strings.Split(snapshotSchema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return fmt.Errorf("create schema: %w", err)
		}
	}

	s.db = db
	return nil
}

// Write buffers c and commits when the batch is full. A cancelled context
// is honored only at batch boundaries, after the batch is committed.
func (s *SnapshotSink) Write(ctx context.Context, c *model.Contractor) error {
	s.batch = append(s.batch, *c)
	if len(s.batch) < s.batchSize {
		return nil
	}

	if err := s.flush(context.WithoutCancel(ctx)); err != nil {
		return err
	}
	return ctx.Err()
}

func (s *SnapshotSink) flush(ctx context.Context) error {
	if len(s.batch) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return rferrors.Wrap(err, rferrors.CodeTransactionFailed, "begin batch")
	}

	stmt, err := tx.PrepareContext(ctx, s.insertSQL)
	if err != nil {
		tx.Rollback()
		return rferrors.Wrap(err, rferrors.CodeTransactionFailed, "prepare insert")
	}
	defer stmt.Close()

	inserted, duplicates := 0, 0
	args := make([]any, model.FieldCount)
	for i := range s.batch {
		c := &s.batch[i]
		for f := range args {
			args[f] = nullable(c.Get(model.Field(f)))
		}

		res, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			tx.Rollback()
			return rferrors.Wrap(err, rferrors.CodeTransactionFailed, "insert "+c.LicenseNumber)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			duplicates++
		} else {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return rferrors.Wrap(err, rferrors.CodeTransactionFailed, "commit batch")
	}

	s.inserted += inserted
	s.duplicates += duplicates
	s.batches++
	s.logger.Debug("batch committed",
		zap.Int("batch", s.batches),
		zap.Int("rows", len(s.batch)),
		zap.Int("duplicates", duplicates),
	)
	s.batch = s.batch[:0]
	return nil
}

// Close commits the partial batch and closes the database.
func (s *SnapshotSink) Close(ctx context.Context) error {
	if s.db == nil {
		return nil
	}

	flushErr := s.flush(ctx)
	closeErr := s.db.Close()
	s.db = nil

	s.logger.Info("snapshot written",
		zap.String("path", s.path),
		zap.Int("inserted", s.inserted),
		zap.Int("duplicates", s.duplicates),
	)

	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

// Artifacts implements pipeline.Sink.
func (s *SnapshotSink) Artifacts() []string {
	return []string{s.path}
}

// Inserted returns how many rows were written. Under Replace, overwrites
// count as writes.
func (s *SnapshotSink) Inserted() int { return s.inserted }

// Duplicates returns how many records were dropped as duplicates.
func (s *SnapshotSink) Duplicates() int { return s.duplicates }

func buildInsertSQL(conflict pipeline.DeduplicationStrategy) string {
	fields := model.Fields()
	cols := make([]string, len(fields))
	marks := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.String()
		marks[i] = "?"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO contractors (%s) VALUES (%s) ON CONFLICT(license_number) ",
		strings.Join(cols, ", "), strings.Join(marks, ", "))

	if conflict != pipeline.DeduplicationReplace {
		sb.WriteString("DO NOTHING")
		return sb.String()
	}

	sb.WriteString("DO UPDATE SET ")
	for i, col := range cols[1:] {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s = excluded.%s", col, col)
	}
	return sb.String()
}

// nullable stores empty strings as NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
