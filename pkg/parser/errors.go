package parser

import "errors"

var (
	// ErrUnsupportedFormat is returned when the input format is not supported.
	ErrUnsupportedFormat = errors.New("parser: unsupported format")

	// ErrEmptyInput is returned when the input has no header line.
	ErrEmptyInput = errors.New("parser: input has no header line")

	// ErrNoSheets is returned when a workbook has no worksheet.
	ErrNoSheets = errors.New("parser: workbook has no sheets")
)
