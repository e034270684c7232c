package pipeline

import (
	"errors"
	"fmt"

	"github.com/registryflow/registryflow/pkg/normalize"
)

// ErrorType categorizes row-level failures.
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeShortRow
	ErrorTypeMalformedRow
	ErrorTypeReadFailed
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeShortRow:
		return "short_row"
	case ErrorTypeMalformedRow:
		return "malformed_row"
	case ErrorTypeReadFailed:
		return "read_failed"
	default:
		return "unknown"
	}
}

// ClassifyRowError maps an error returned while handling a row to its type.
func ClassifyRowError(err error) ErrorType {
	var rowErr *normalize.RowError
	switch {
	case errors.Is(err, normalize.ErrShortRow):
		return ErrorTypeShortRow
	case errors.As(err, &rowErr):
		return ErrorTypeMalformedRow
	default:
		return ErrorTypeUnknown
	}
}

// ErrorRecord is one row that could not be turned into a record.
type ErrorRecord struct {
	// Row is the 1-based ordinal of the data row (the header is not counted).
	Row int

	// Line is the physical line number in the input file.
	Line int

	Type    ErrorType
	Message string

	// Raw is the original line text.
	Raw string
}

// String renders the record the way it appears in the run report.
func (r ErrorRecord) String() string {
	return fmt.Sprintf("row %d: %s", r.Row, r.Message)
}
