package output

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/autoapi/internal/logfields"
)

// Outcome is what happened to one destination.
type Outcome string

const (
	// Written means the file was created or replaced.
	Written Outcome = "written"
	// Unchanged means the file already held identical content.
	Unchanged Outcome = "unchanged"
	// Kept means the file existed and override was off.
	Kept Outcome = "kept_existing"
)

// Writer places files atomically: content goes to a temporary file in the
// destination directory which is then renamed over the destination.
type Writer struct {
	logger *slog.Logger
}

// NewWriter creates a Writer.
func NewWriter(logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{logger: logger}
}

// Write stores content at path. With override false an existing file is left
// alone. Parent directories are created as needed.
func (w *Writer) Write(path string, content []byte, override bool) (Outcome, error) {
	// #nosec G304 -- path is derived from the configured output root.
	existing, err := os.ReadFile(path)
	switch {
	case err == nil && !override:
		w.logger.Debug("Keeping existing file", logfields.OutputPath(path))
		return Kept, nil
	case err == nil && bytes.Equal(existing, content):
		return Unchanged, nil
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("read existing file: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".autoapi-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", fmt.Errorf("write temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", fmt.Errorf("close temporary file: %w", err)
	}
	// #nosec G302 -- generated documentation is meant to be world readable.
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return "", fmt.Errorf("chmod temporary file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return "", fmt.Errorf("place output file: %w", err)
	}

	w.logger.Debug("Wrote file", logfields.OutputPath(path), slog.Int("bytes", len(content)))
	return Written, nil
}
