package output

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/decaf/manifest"
)

// writeTestZip creates a zip file with the given entries for copy tests.
func writeTestZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)

	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}

	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

// readZip returns all entries of a zip file keyed by name.
func readZip(t *testing.T, path string) map[string]string {
	t.Helper()

	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	entries := make(map[string]string)
	for _, f := range r.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		entries[f.Name] = string(data)
	}

	return entries
}

func TestLocal_FolderResults(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	sink := NewLocal(root)

	require.NoError(t, sink.SaveFolder(ctx, "myapp"))
	assert.DirExists(t, filepath.Join(root, "myapp"))

	err := sink.SaveClassFile(ctx, "myapp", "com.example.Foo", "com/example/Foo.java", "class Foo {}", nil)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "myapp", "com", "example", "Foo.java"))
	require.NoError(t, err)
	assert.Equal(t, "class Foo {}", string(data))
}

func TestLocal_CopyFile(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	sink := NewLocal(root)

	source := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(source, []byte("keep me"), 0o644))

	require.NoError(t, sink.CopyFile(ctx, source, "myapp", "notes.txt"))

	data, err := os.ReadFile(filepath.Join(root, "myapp", "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(data))

	t.Run("missing source fails", func(t *testing.T) {
		err := sink.CopyFile(ctx, filepath.Join(root, "nope"), "myapp", "nope")
		assert.Error(t, err)
	})
}

func TestLocal_ArchiveRoundTrip(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	sink := NewLocal(root)

	source := filepath.Join(t.TempDir(), "lib.jar")
	writeTestZip(t, source, map[string]string{"res/config.properties": "answer=42"})

	mf := manifest.New()
	mf.Main.Set("Created-By", "decaf")

	require.NoError(t, sink.CreateArchive(ctx, "out", "app.jar", mf))
	require.NoError(t, sink.SaveDirEntry(ctx, "out", "app.jar", "com/example"))
	require.NoError(t, sink.SaveClassEntry(ctx, "out", "app.jar", "com.example.Foo", "com/example/Foo.java", "class Foo {}", nil))
	require.NoError(t, sink.CopyEntry(ctx, source, "out", "app.jar", "res/config.properties"))
	require.NoError(t, sink.CloseArchive(ctx, "out", "app.jar"))

	entries := readZip(t, filepath.Join(root, "out", "app.jar"))

	assert.Equal(t, "class Foo {}", entries["com/example/Foo.java"])
	assert.Equal(t, "answer=42", entries["res/config.properties"])
	assert.Contains(t, entries, "com/example/")

	parsed, err := manifest.Parse(strings.NewReader(entries[manifest.EntryName]))
	require.NoError(t, err)
	createdBy, ok := parsed.Main.Get("Created-By")
	require.True(t, ok)
	assert.Equal(t, "decaf", createdBy)
}

func TestLocal_DuplicateEntriesSkipped(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	sink := NewLocal(root)

	require.NoError(t, sink.CreateArchive(ctx, "out", "app.jar", nil))
	require.NoError(t, sink.SaveClassEntry(ctx, "out", "app.jar", "a.B", "a/B.java", "first", nil))
	require.NoError(t, sink.SaveClassEntry(ctx, "out", "app.jar", "a.B", "a/B.java", "second", nil))
	require.NoError(t, sink.CloseArchive(ctx, "out", "app.jar"))

	entries := readZip(t, filepath.Join(root, "out", "app.jar"))
	assert.Len(t, entries, 1)
	assert.Equal(t, "first", entries["a/B.java"])
}

func TestLocal_ArchiveLifecycleErrors(t *testing.T) {
	ctx := context.Background()
	sink := NewLocal(t.TempDir())

	t.Run("entry writes require an open archive", func(t *testing.T) {
		err := sink.SaveClassEntry(ctx, "out", "app.jar", "a.B", "a/B.java", "x", nil)
		assert.ErrorIs(t, err, ErrArchiveNotOpen)

		err = sink.SaveDirEntry(ctx, "out", "app.jar", "a")
		assert.ErrorIs(t, err, ErrArchiveNotOpen)

		err = sink.CloseArchive(ctx, "out", "app.jar")
		assert.ErrorIs(t, err, ErrArchiveNotOpen)
	})

	t.Run("double create fails", func(t *testing.T) {
		require.NoError(t, sink.CreateArchive(ctx, "out", "dup.jar", nil))
		err := sink.CreateArchive(ctx, "out", "dup.jar", nil)
		assert.ErrorContains(t, err, "already open")
		require.NoError(t, sink.CloseArchive(ctx, "out", "dup.jar"))
	})

	t.Run("close is not idempotent", func(t *testing.T) {
		require.NoError(t, sink.CreateArchive(ctx, "out", "once.jar", nil))
		require.NoError(t, sink.CloseArchive(ctx, "out", "once.jar"))
		assert.ErrorIs(t, sink.CloseArchive(ctx, "out", "once.jar"), ErrArchiveNotOpen)
	})

	t.Run("copy of a missing entry fails", func(t *testing.T) {
		source := filepath.Join(t.TempDir(), "lib.jar")
		writeTestZip(t, source, map[string]string{"present.txt": "x"})

		require.NoError(t, sink.CreateArchive(ctx, "out", "copy.jar", nil))
		err := sink.CopyEntry(ctx, source, "out", "copy.jar", "absent.txt")
		assert.ErrorContains(t, err, "not found")
		require.NoError(t, sink.CloseArchive(ctx, "out", "copy.jar"))
	})
}
