// Package validation checks inputs and destinations before a run starts,
// so that startup problems fail fast with a coded error and no sink ever
// opens against a bad path.
package validation

import (
	"os"
	"path/filepath"
	"strings"

	rferrors "github.com/registryflow/registryflow/pkg/errors"
)

// MaxPathLength is the maximum allowed path length.
const MaxPathLength = 4096

// ValidateFilePath cleans path and makes it absolute.
func ValidateFilePath(path string) (string, error) {
	if path == "" {
		return "", rferrors.New(rferrors.CodeInvalidFormat, "empty file path")
	}
	if len(path) > MaxPathLength {
		return "", rferrors.New(rferrors.CodeInvalidFormat, "path too long").
			WithContext("maxLength", MaxPathLength)
	}

	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", rferrors.Wrap(err, rferrors.CodeInvalidFormat, "invalid path")
	}
	return abs, nil
}

// ValidateInputFile checks that path is a readable regular file and
// returns its size.
func ValidateInputFile(path string) (int64, error) {
	cleanPath, err := ValidateFilePath(path)
	if err != nil {
		return 0, err
	}

	info, err := os.Stat(cleanPath)
	if os.IsNotExist(err) {
		return 0, rferrors.FileNotFound(path)
	}
	if os.IsPermission(err) {
		return 0, rferrors.Wrap(err, rferrors.CodeFilePermission, "permission denied")
	}
	if err != nil {
		return 0, rferrors.Wrap(err, rferrors.CodeFileNotFound, "cannot access file")
	}

	if info.IsDir() {
		return 0, rferrors.New(rferrors.CodeInvalidFormat, "path is a directory, expected file").
			WithContext("path", path)
	}

	file, err := os.Open(cleanPath)
	if err != nil {
		if os.IsPermission(err) {
			return 0, rferrors.Wrap(err, rferrors.CodeFilePermission, "permission denied")
		}
		return 0, rferrors.Wrap(err, rferrors.CodeFileNotFound, "cannot open file")
	}
	file.Close()

	return info.Size(), nil
}

// ValidateOutputDir creates dir if needed and proves it is writable by
// creating and removing a probe file.
func ValidateOutputDir(dir string) error {
	cleanDir, err := ValidateFilePath(dir)
	if err != nil {
		return err
	}

	if info, err := os.Stat(cleanDir); err == nil && !info.IsDir() {
		return rferrors.New(rferrors.CodeInvalidFormat, "output path is not a directory").
			WithContext("directory", dir)
	}

	if err := os.MkdirAll(cleanDir, 0o755); err != nil {
		return rferrors.Wrap(err, rferrors.CodeFilePermission, "cannot create output directory")
	}

	probe, err := os.CreateTemp(cleanDir, ".registryflow-probe-*")
	if err != nil {
		return rferrors.Wrap(err, rferrors.CodeFilePermission, "output directory is not writable")
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)
	return nil
}

// ValidateCompression validates a parquet compression name.
func ValidateCompression(compression string) error {
	switch strings.ToLower(compression) {
	case "none", "snappy", "gzip", "zstd", "lz4":
		return nil
	default:
		return rferrors.New(rferrors.CodeConfig, "unsupported compression").
			WithContext("compression", compression).
			WithContext("supported", "none, snappy, gzip, zstd, lz4")
	}
}

// TruncateString truncates a string to maxLen, adding "..." if truncated.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return s[:maxLen-3] + "..."
}
