// Package inspect summarises conversion artifacts.
//
// Parquet artifacts are queried in place with DuckDB. JSONL records are
// decoded in Go and loaded into an in-memory DuckDB table, so no json
// extension is needed. SQLite snapshots are opened through the same
// driver the snapshot sink writes with. Every path runs the same
// aggregate queries.
package inspect

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb"
	_ "modernc.org/sqlite"

	"github.com/registryflow/registryflow/internal/model"
	rferrors "github.com/registryflow/registryflow/pkg/errors"
)

// DefaultTop is the number of classes and cities listed by default.
const DefaultTop = 5

// Count is one value with its frequency.
type Count struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// Summary describes the contents of one artifact.
type Summary struct {
	Path       string  `json:"path"`
	Format     string  `json:"format"`
	Rows       int64   `json:"rows"`
	Active     int64   `json:"active"`
	Classes    int64   `json:"classes"`
	Cities     int64   `json:"cities"`
	TopClasses []Count `json:"top_classes"`
	TopCities  []Count `json:"top_cities"`
}

// columns names the status, class and city columns of a relation.
type columns struct {
	status string
	class  string
	city   string
}

var tabularColumns = columns{status: "license_status", class: "license_class", city: "city"}

// Inspect summarises the artifact at path, choosing the backend by extension:
// .jsonl and .parquet go through DuckDB, .db through SQLite.
func Inspect(ctx context.Context, path string, top int) (*Summary, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, rferrors.FileNotFound(path)
		}
		return nil, rferrors.Wrap(err, rferrors.CodeFilePermission, "cannot stat artifact")
	}
	if top <= 0 {
		top = DefaultTop
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return inspectJSONL(ctx, path, top)
	case ".parquet":
		return inspectDuckDB(ctx, path, "parquet",
			fmt.Sprintf("read_parquet('%s')", escapePath(path)),
			tabularColumns, top)
	case ".db", ".sqlite":
		return inspectSQLite(ctx, path, top)
	default:
		return nil, rferrors.New(rferrors.CodeInvalidFormat, "unsupported artifact").
			WithContext("path", path)
	}
}

func inspectDuckDB(ctx context.Context, path, format, relation string, cols columns, top int) (*Summary, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	defer db.Close()

	return summarize(ctx, db, path, format, relation, cols, top)
}

func inspectJSONL(ctx context.Context, path string, top int) (*Summary, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	defer db.Close()
	// The in-memory database lives as long as its connection.
	db.SetMaxOpenConns(1)

	if err := loadJSONL(ctx, db, path); err != nil {
		return nil, err
	}
	return summarize(ctx, db, path, "jsonl", "contractors", tabularColumns, top)
}

// loadJSONL decodes every record in path and inserts it into a fresh
// contractors table with snake_case columns.
func loadJSONL(ctx context.Context, db *sql.DB, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return rferrors.Wrap(err, rferrors.CodeFilePermission, "open artifact")
	}
	defer f.Close()

	fields := model.Fields()
	names := make([]string, len(fields))
	defs := make([]string, len(fields))
	marks := make([]string, len(fields))
	for i, fld := range fields {
		names[i] = fld.String()
		defs[i] = fld.String() + " VARCHAR"
		marks[i] = "?"
	}

	if _, err := db.ExecContext(ctx, "CREATE TABLE contractors ("+strings.Join(defs, ", ")+")"); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO contractors (%s) VALUES (%s)",
		strings.Join(names, ", "), strings.Join(marks, ", ")))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	dec := json.NewDecoder(bufio.NewReader(f))
	args := make([]any, len(fields))
	for line := 1; ; line++ {
		var c model.Contractor
		if err := dec.Decode(&c); err == io.EOF {
			break
		} else if err != nil {
			return rferrors.Wrapf(err, rferrors.CodeInvalidFormat, "decode record %d", line)
		}
		for i, fld := range fields {
			args[i] = c.Get(fld)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert record %d: %w", line, err)
		}
	}

	return tx.Commit()
}

func inspectSQLite(ctx context.Context, path string, top int) (*Summary, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer db.Close()

	return summarize(ctx, db, path, "sqlite", "contractors", tabularColumns, top)
}

func summarize(ctx context.Context, db *sql.DB, path, format, relation string, cols columns, top int) (*Summary, error) {
	s := &Summary{Path: path, Format: format}

	query := fmt.Sprintf(`SELECT
		COUNT(*),
		COUNT(*) FILTER (WHERE %[1]s = 'Active'),
		COUNT(DISTINCT NULLIF(%[2]s, '')),
		COUNT(DISTINCT NULLIF(%[3]s, ''))
	FROM %[4]s`, cols.status, cols.class, cols.city, relation)
	if err := db.QueryRowContext(ctx, query).Scan(&s.Rows, &s.Active, &s.Classes, &s.Cities); err != nil {
		return nil, rferrors.Wrap(err, rferrors.CodeInvalidFormat, "summarize "+format)
	}

	var err error
	if s.TopClasses, err = topValues(ctx, db, relation, cols.class, top); err != nil {
		return nil, err
	}
	if s.TopCities, err = topValues(ctx, db, relation, cols.city, top); err != nil {
		return nil, err
	}
	return s, nil
}

func topValues(ctx context.Context, db *sql.DB, relation, column string, top int) ([]Count, error) {
	query := fmt.Sprintf(`SELECT %[1]s AS v, COUNT(*) AS n
		FROM %[2]s
		WHERE %[1]s IS NOT NULL AND %[1]s <> ''
		GROUP BY v
		ORDER BY n DESC, v
		LIMIT %[3]d`, column, relation, top)

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, rferrors.Wrapf(err, rferrors.CodeInvalidFormat, "top values of %s", column)
	}
	defer rows.Close()

	var out []Count
	for rows.Next() {
		var c Count
		if err := rows.Scan(&c.Value, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func escapePath(path string) string {
	return strings.ReplaceAll(path, "'", "''")
}
