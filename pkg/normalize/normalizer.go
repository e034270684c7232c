package normalize

import (
	"errors"
	"fmt"

	"github.com/registryflow/registryflow/internal/model"
	"github.com/registryflow/registryflow/pkg/parser"
)

var (
	// ErrMissingLicenseColumn is returned when the header has no license number column.
	ErrMissingLicenseColumn = errors.New("normalize: header has no license number column")

	// ErrShortRow is returned when a mapped column lies beyond the end of a row.
	ErrShortRow = errors.New("normalize: row has fewer fields than the header")
)

// RowError describes a row that could not be mapped.
type RowError struct {
	Field  model.Field
	Column int
	Fields int
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("column %d (%s) out of range: row has %d fields", e.Column, e.Field, e.Fields)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// Normalizer turns rows into contractor records.
type Normalizer struct {
	index HeaderIndex
}

// New creates a Normalizer for the given header index.
func New(index HeaderIndex) (*Normalizer, error) {
	if !index.Has(model.FieldLicenseNumber) {
		return nil, ErrMissingLicenseColumn
	}
	return &Normalizer{index: index}, nil
}

// FromHeader builds the header index and the normalizer in one step.
func FromHeader(header parser.Row) (*Normalizer, error) {
	return New(NewHeaderIndex(header))
}

// Index returns the header index in use.
func (n *Normalizer) Index() HeaderIndex {
	return n.index
}

// Normalize maps row onto a contractor record.
//
// A blank line, or a row whose license number is blank, is rejected
// silently: ok is false and err is nil. A row too short to hold any
// mapped column, the license number included, returns a *RowError
// wrapping ErrShortRow.
func (n *Normalizer) Normalize(row parser.Row) (c model.Contractor, ok bool, err error) {
	if isBlank(row) {
		return c, false, nil
	}
	licenseCol := n.index[model.FieldLicenseNumber]
	if licenseCol >= len(row) {
		return c, false, shortRow(model.FieldLicenseNumber, licenseCol, row)
	}
	if row[licenseCol] == "" {
		return c, false, nil
	}

	for f, col := range n.index {
		if col < 0 {
			continue
		}
		if col >= len(row) {
			return model.Contractor{}, false, shortRow(model.Field(f), col, row)
		}
		c.Set(model.Field(f), row[col])
	}

	c.State = model.DefaultState
	return c, true, nil
}

func shortRow(f model.Field, col int, row parser.Row) *RowError {
	return &RowError{Field: f, Column: col, Fields: len(row), Err: ErrShortRow}
}

// isBlank reports whether row came from an empty line.
func isBlank(row parser.Row) bool {
	return len(row) == 0 || (len(row) == 1 && row[0] == "")
}
