package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rferrors "github.com/registryflow/registryflow/pkg/errors"
)

func TestValidateInputFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.csv")
	require.NoError(t, os.WriteFile(path, []byte("License Number\n"), 0o644))

	size, err := ValidateInputFile(path)
	require.NoError(t, err)
	assert.Equal(t, int64(15), size)

	_, err = ValidateInputFile(filepath.Join(dir, "missing.csv"))
	assert.True(t, rferrors.IsCode(err, rferrors.CodeFileNotFound))
	assert.Contains(t, err.Error(), "file not found")

	_, err = ValidateInputFile(dir)
	assert.True(t, rferrors.IsCode(err, rferrors.CodeInvalidFormat))

	_, err = ValidateInputFile("")
	assert.True(t, rferrors.IsCode(err, rferrors.CodeInvalidFormat))
}

func TestValidateOutputDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "nested")
	require.NoError(t, ValidateOutputDir(dir))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "probe file is removed")

	file := filepath.Join(t.TempDir(), "plain")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	assert.True(t, rferrors.IsCode(ValidateOutputDir(file), rferrors.CodeInvalidFormat))
}

func TestValidateCompression(t *testing.T) {
	assert.NoError(t, ValidateCompression("SNAPPY"))
	assert.True(t, rferrors.IsCode(ValidateCompression("brotli"), rferrors.CodeConfig))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", TruncateString("short", 10))
	assert.Equal(t, "abcd...", TruncateString("abcdefghij", 7))
	assert.Equal(t, "...", TruncateString("abcdef", 2))
}
