package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResetWipesExistingFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "generated_code")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main_7.rs"), []byte("old"), 0o644))

	w, err := New(dir, ".rs")
	require.NoError(t, err)

	existed, err := w.Reset()
	require.NoError(t, err)
	assert.True(t, existed)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestResetCreatesMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	w, err := New(dir, ".rs")
	require.NoError(t, err)

	existed, err := w.Reset()
	require.NoError(t, err)
	assert.False(t, existed)
	assert.DirExists(t, dir)
}

func TestWriteSource(t *testing.T) {
	w, err := New(t.TempDir(), ".rs")
	require.NoError(t, err)

	p1, err := w.WriteSource(1, "fn main() {}")
	require.NoError(t, err)
	p2, err := w.WriteSource(2, "fn main() { }")
	require.NoError(t, err)

	assert.Equal(t, "main_1.rs", filepath.Base(p1))
	assert.Equal(t, "main_2.rs", filepath.Base(p2))

	data, err := os.ReadFile(p1)
	require.NoError(t, err)
	assert.Equal(t, "fn main() {}\n", string(data))

	sources, err := w.Sources()
	require.NoError(t, err)
	assert.Len(t, sources, 2)
}

func TestWriteSourceFailure(t *testing.T) {
	parent := t.TempDir()
	blocker := filepath.Join(parent, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	// A regular file where the directory should be.
	w, err := New(filepath.Join(blocker, "out"), ".rs")
	require.NoError(t, err)

	_, err = w.WriteSource(1, "fn main() {}")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrWriteFailure))
}
