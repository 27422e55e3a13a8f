package ingest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrPathOutsideBase is returned when an input path escapes the allowed base directory
var ErrPathOutsideBase = errors.New("path is outside allowed base directory")

// ValidatePath checks that inputPath resolves inside allowedBaseDir and returns the resolved path.
// Symlinks are resolved on both sides before comparison.
func ValidatePath(inputPath, allowedBaseDir string) (string, error) {
	if allowedBaseDir == "" {
		return "", fmt.Errorf("%w: no base directory configured", ErrPathOutsideBase)
	}

	absInput, err := filepath.Abs(inputPath)
	if err != nil {
		return "", fmt.Errorf("invalid input path: %w", err)
	}
	absBase, err := filepath.Abs(allowedBaseDir)
	if err != nil {
		return "", fmt.Errorf("invalid base directory: %w", err)
	}

	resolvedInput, err := filepath.EvalSymlinks(absInput)
	if err != nil {
		return "", fmt.Errorf("cannot resolve input path: %w", err)
	}
	resolvedBase, err := filepath.EvalSymlinks(absBase)
	if err != nil {
		return "", fmt.Errorf("cannot resolve base directory: %w", err)
	}

	rel, err := filepath.Rel(resolvedBase, resolvedInput)
	if err != nil {
		return "", fmt.Errorf("cannot compute relative path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathOutsideBase, rel)
	}

	return resolvedInput, nil
}

// ValidatePathExists checks that the path exists and is a regular file
func ValidatePathExists(resolvedPath string) error {
	info, err := os.Stat(resolvedPath)
	if err != nil {
		return fmt.Errorf("file does not exist: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", resolvedPath)
	}
	return nil
}
