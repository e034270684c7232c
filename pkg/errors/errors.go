// Package errors provides coded errors for registryflow.
// Codes let the CLI map failures to exit statuses and let callers
// distinguish startup, row-level and sink-level failures.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
)

// Code identifies an error class for programmatic handling.
type Code string

const (
	// Input errors (1xx)
	CodeFileNotFound   Code = "E101"
	CodeFilePermission Code = "E102"
	CodeInvalidFormat  Code = "E103"
	CodeMissingColumn  Code = "E104"
	CodeEmptyInput     Code = "E105"

	// Row errors (2xx)
	CodeRowMapping Code = "E201"

	// Sink errors (3xx)
	CodeWriteFailed       Code = "E301"
	CodeTransactionFailed Code = "E302"
	CodePublishFailed     Code = "E303"

	// System errors (4xx)
	CodeCanceled Code = "E401"
	CodeConfig   Code = "E402"

	CodeUnknown Code = "E999"
)

// RegistryError is the structured error type used across the pipeline.
type RegistryError struct {
	Code       Code
	Message    string
	Cause      error
	Context    map[string]interface{}
	StackTrace []Frame
}

// Frame represents a stack frame.
type Frame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface.
func (e *RegistryError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		sb.WriteString(")")
	}

	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}

	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *RegistryError) Unwrap() error {
	return e.Cause
}

// Is matches another RegistryError with the same code.
func (e *RegistryError) Is(target error) bool {
	if t, ok := target.(*RegistryError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithContext adds context to the error.
func (e *RegistryError) WithContext(key string, value interface{}) *RegistryError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new RegistryError.
func New(code Code, message string) *RegistryError {
	return &RegistryError{
		Code:       code,
		Message:    message,
		StackTrace: captureStack(2),
	}
}

// Wrap wraps an existing error with a code and message. Wrap(nil, ...) is nil.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}

	return &RegistryError{
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: captureStack(2),
	}
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, code Code, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &RegistryError{
		Code:       code,
		Message:    fmt.Sprintf(format, args...),
		Cause:      err,
		StackTrace: captureStack(2),
	}
}

func captureStack(skip int) []Frame {
	var frames []Frame
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip+1, pcs)
	pcs = pcs[:n]

	cf := runtime.CallersFrames(pcs)
	for {
		frame, more := cf.Next()
		frames = append(frames, Frame{
			Function: frame.Function,
			File:     frame.File,
			Line:     frame.Line,
		})
		if !more || len(frames) >= 10 {
			break
		}
	}
	return frames
}

// FormatStack returns a formatted stack trace.
func (e *RegistryError) FormatStack() string {
	var sb strings.Builder
	for _, f := range e.StackTrace {
		sb.WriteString(fmt.Sprintf("  at %s\n    %s:%d\n", f.Function, f.File, f.Line))
	}
	return sb.String()
}

// --- Convenience constructors ---

// FileNotFound creates a file not found error.
func FileNotFound(path string) *RegistryError {
	return New(CodeFileNotFound, "file not found").WithContext("path", path)
}

// MissingColumn creates a missing column error.
func MissingColumn(column string, available []string) *RegistryError {
	return New(CodeMissingColumn, "required column not found").
		WithContext("column", column).
		WithContext("available", available)
}

// Canceled creates a cancellation error.
func Canceled(operation string) *RegistryError {
	return New(CodeCanceled, "operation canceled").
		WithContext("operation", operation)
}

// --- Error checking utilities ---

// IsCode checks if an error carries a specific code.
func IsCode(err error, code Code) bool {
	var rErr *RegistryError
	if errors.As(err, &rErr) {
		return rErr.Code == code
	}
	return false
}

// GetCode extracts the error code from an error.
func GetCode(err error) Code {
	var rErr *RegistryError
	if errors.As(err, &rErr) {
		return rErr.Code
	}
	return CodeUnknown
}

// ExitCode maps an error to a process exit status.
// 0 for nil, 2 for startup/input problems, 3 for sink failures, 130 for
// cancellation and 1 for everything else.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch GetCode(err) {
	case CodeFileNotFound, CodeFilePermission, CodeInvalidFormat, CodeMissingColumn, CodeEmptyInput, CodeConfig:
		return 2
	case CodeWriteFailed, CodeTransactionFailed, CodePublishFailed:
		return 3
	case CodeCanceled:
		return 130
	default:
		return 1
	}
}

// MultiError collects multiple errors.
type MultiError struct {
	Errors []error
}

// Error implements the error interface.
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d errors occurred:\n", len(m.Errors)))
	for i, err := range m.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// Add adds an error to the collection.
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// Combined returns nil if no errors, the single error if one, or the MultiError.
func (m *MultiError) Combined() error {
	switch len(m.Errors) {
	case 0:
		return nil
	case 1:
		return m.Errors[0]
	default:
		return m
	}
}
