// Package workspace manages the output directory that holds one generated
// source file per iteration.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrWriteFailure wraps any failure to create or write a source file.
var ErrWriteFailure = errors.New("failed to write file")

// Workspace is the directory generated sources are written into. The
// compiler runs with it as its working directory, so build products land
// next to the sources.
type Workspace struct {
	dir string
	ext string
}

// New creates a Workspace rooted at dir for files with extension ext
// (including the dot). Nothing touches the disk until Reset.
func New(dir, ext string) (*Workspace, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("workspace: resolve %s: %w", dir, err)
	}
	return &Workspace{dir: abs, ext: ext}, nil
}

// Dir returns the absolute directory path.
func (w *Workspace) Dir() string { return w.dir }

// Reset deletes the directory and everything in it, then recreates it
// empty. It reports whether something was deleted.
func (w *Workspace) Reset() (bool, error) {
	existed := false
	if _, err := os.Stat(w.dir); err == nil {
		existed = true
		if err := os.RemoveAll(w.dir); err != nil {
			return existed, fmt.Errorf("workspace: remove %s: %w", w.dir, err)
		}
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return existed, fmt.Errorf("workspace: create %s: %w", w.dir, err)
	}
	return existed, nil
}

// SourceName returns the file name used for iteration n, e.g. main_3.rs.
func (w *Workspace) SourceName(iteration int) string {
	return fmt.Sprintf("main_%d%s", iteration, w.ext)
}

// SourcePath returns the absolute path of the source for iteration n.
func (w *Workspace) SourcePath(iteration int) string {
	return filepath.Join(w.dir, w.SourceName(iteration))
}

// WriteSource writes code, newline-terminated, as the source for
// iteration n and returns its path. Files from earlier iterations are
// left in place.
func (w *Workspace) WriteSource(iteration int, code string) (string, error) {
	path := w.SourcePath(iteration)
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrWriteFailure, path, err)
	}
	if err := os.WriteFile(path, []byte(code+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrWriteFailure, path, err)
	}
	return path, nil
}

// Sources lists the generated source files currently in the directory.
func (w *Workspace) Sources() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(w.dir, "main_*"+w.ext))
	if err != nil {
		return nil, fmt.Errorf("workspace: glob: %w", err)
	}
	return matches, nil
}
