package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryError_Error(t *testing.T) {
	err := FileNotFound("/tmp/registry.csv")
	assert.Equal(t, "[E101] file not found (path=/tmp/registry.csv)", err.Error())

	wrapped := Wrap(errors.New("disk full"), CodeWriteFailed, "jsonl write")
	assert.Equal(t, "[E301] jsonl write: disk full", wrapped.Error())
}

func TestRegistryError_ContextIsSorted(t *testing.T) {
	err := New(CodeMissingColumn, "required column not found").
		WithContext("column", "license number").
		WithContext("available", 3)
	assert.Equal(t, "[E104] required column not found (available=3, column=license number)", err.Error())
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, CodeWriteFailed, "noop"))
	assert.Nil(t, Wrapf(nil, CodeWriteFailed, "noop %d", 1))
}

func TestGetCodeThroughWrapping(t *testing.T) {
	base := Wrap(errors.New("locked"), CodeTransactionFailed, "commit batch")
	outer := fmt.Errorf("sqlite pass: %w", base)

	assert.Equal(t, CodeTransactionFailed, GetCode(outer))
	assert.True(t, IsCode(outer, CodeTransactionFailed))
	assert.True(t, errors.Is(outer, New(CodeTransactionFailed, "")))
	assert.Equal(t, CodeUnknown, GetCode(errors.New("plain")))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{FileNotFound("x"), 2},
		{New(CodeConfig, "bad batch size"), 2},
		{Wrap(errors.New("io"), CodeWriteFailed, "write"), 3},
		{Canceled("convert"), 130},
		{errors.New("other"), 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ExitCode(tt.err), "err=%v", tt.err)
	}
}

func TestFormatStack(t *testing.T) {
	err := New(CodeConfig, "bad config")
	require.NotEmpty(t, err.StackTrace)

	stack := err.FormatStack()
	assert.Contains(t, stack, "TestFormatStack")
	assert.Contains(t, stack, "errors_test.go:")
	assert.True(t, strings.HasPrefix(stack, "  at "))
}

func TestMultiError(t *testing.T) {
	var m MultiError
	require.NoError(t, m.Combined())

	first := Wrap(errors.New("a"), CodeWriteFailed, "jsonl")
	m.Add(first)
	m.Add(nil)
	assert.Equal(t, first, m.Combined())

	m.Add(errors.New("b"))
	combined := m.Combined()
	require.Error(t, combined)
	assert.Contains(t, combined.Error(), "2 errors occurred")
	assert.True(t, IsCode(combined, CodeWriteFailed))
}
