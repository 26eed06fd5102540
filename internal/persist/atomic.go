package persist

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// AtomicWriteFile safely writes data by using a temporary file and an atomic
// rename, so a crash mid-write never leaves a truncated file behind.
func AtomicWriteFile(filename string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Create temp file in the same directory to guarantee atomic rename works.
	tempFile, err := os.CreateTemp(dir, ".tmp-analysis-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	var success bool
	defer func() {
		if !success {
			if err := os.Remove(tempFile.Name()); err != nil {
				slog.Warn("failed to remove temporary file", "path", tempFile.Name(), "error", err)
			}
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file %q: %w", tempFile.Name(), err)
	}
	if err := os.Chmod(tempFile.Name(), perm); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}

	if err := os.Rename(tempFile.Name(), filename); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	success = true
	return nil
}
