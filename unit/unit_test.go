package unit

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/decaf/output"
)

type fakeLoader struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (l *fakeLoader) LoadAbstractMetadata(_ *Context, text string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.texts = append(l.texts, text)

	return l.err
}

func (l *fakeLoader) loaded() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]string(nil), l.texts...)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "folder", Folder.String())
	assert.Equal(t, "jar", Jar.String())
	assert.Equal(t, "zip", Zip.String())
	assert.Equal(t, "kind(99)", Kind(99).String())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "pending", StatePending.String())
	assert.Equal(t, "saving", StateSaving.String())
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "state(99)", State(99).String())
}

func TestUnit_Accessors(t *testing.T) {
	dctx := NewContext()
	reg := NewRegistry(dctx)

	u := reg.ArchiveUnit(Jar, "out", "app.jar", true)

	assert.Equal(t, Jar, u.Kind())
	assert.True(t, u.Own())
	assert.Equal(t, "out", u.ArchivePath())
	assert.Equal(t, "app.jar", u.Name())
	assert.Equal(t, StatePending, u.State())
	assert.Nil(t, u.Manifest())

	u.AddClass(Class{QualifiedName: "A", EntryName: "A.class", Own: true})
	u.AddDirEntry("com/")
	u.AddOtherEntry("/src/app.jar", "res/x.txt")

	assert.Len(t, u.Classes(), 1)
	assert.Equal(t, []string{"com/"}, u.DirEntries())
	assert.Len(t, u.OtherEntries(), 1)

	// accessors return copies
	u.Classes()[0].QualifiedName = "mutated"
	assert.Equal(t, "A", u.Classes()[0].QualifiedName)
}

func TestUnit_MetadataInterception(t *testing.T) {
	t.Run("from a folder file", func(t *testing.T) {
		loader := &fakeLoader{}
		dctx := NewContext(func(o *ContextOptions) {
			o.Metadata = loader
		})
		reg := NewRegistry(dctx)

		dir := t.TempDir()
		metaPath := filepath.Join(dir, MetadataEntryName)
		require.NoError(t, os.WriteFile(metaPath, []byte("com/example/A.m (I)V 1:arg"), 0o644))

		u := reg.FolderUnit(dir, true)
		u.AddOtherEntry(metaPath, MetadataEntryName)

		assert.Equal(t, []string{"com/example/A.m (I)V 1:arg"}, loader.loaded())
		assert.Empty(t, u.OtherEntries())
	})

	t.Run("from an archive entry", func(t *testing.T) {
		loader := &fakeLoader{}
		dctx := NewContext(func(o *ContextOptions) {
			o.Metadata = loader
		})
		reg := NewRegistry(dctx)

		source := filepath.Join(t.TempDir(), "app-orig.jar")
		writeZip(t, source, map[string]string{
			MetadataEntryName: "lib/Iface.call ()V",
			"res/keep.txt":    "keep",
		})

		u := reg.ArchiveUnit(Jar, "out", "app.jar", true)
		u.AddOtherEntry(source, MetadataEntryName)
		u.AddOtherEntry(source, "res/keep.txt")

		assert.Equal(t, []string{"lib/Iface.call ()V"}, loader.loaded())
		assert.Equal(t, []string{"res/keep.txt"}, u.OtherEntries())
	})

	t.Run("nested metadata entries are intercepted too", func(t *testing.T) {
		loader := &fakeLoader{}
		dctx := NewContext(func(o *ContextOptions) {
			o.Metadata = loader
		})
		reg := NewRegistry(dctx)

		source := filepath.Join(t.TempDir(), "app-orig.jar")
		nested := "META-INF/" + MetadataEntryName
		writeZip(t, source, map[string]string{nested: "nested"})

		u := reg.ArchiveUnit(Jar, "out", "app.jar", true)
		u.AddOtherEntry(source, nested)

		assert.Equal(t, []string{"nested"}, loader.loaded())
		assert.Empty(t, u.OtherEntries())
	})

	t.Run("loader failures are not fatal", func(t *testing.T) {
		loader := &fakeLoader{err: errors.New("bad syntax")}
		dctx := NewContext(func(o *ContextOptions) {
			o.Metadata = loader
		})
		reg := NewRegistry(dctx)

		dir := t.TempDir()
		metaPath := filepath.Join(dir, MetadataEntryName)
		require.NoError(t, os.WriteFile(metaPath, []byte("x"), 0o644))

		u := reg.FolderUnit(dir, true)
		u.AddOtherEntry(metaPath, MetadataEntryName)

		assert.Empty(t, u.OtherEntries())
	})

	t.Run("without a loader the entry is still consumed", func(t *testing.T) {
		dctx := NewContext()
		reg := NewRegistry(dctx)

		u := reg.FolderUnit(t.TempDir(), true)
		u.AddOtherEntry("/nowhere/"+MetadataEntryName, MetadataEntryName)

		assert.Empty(t, u.OtherEntries())
	})
}

func TestUnit_SkipExtraEntries(t *testing.T) {
	loader := &fakeLoader{}
	dctx := NewContext(func(o *ContextOptions) {
		o.SkipExtraEntries = true
		o.Metadata = loader
	})
	reg := NewRegistry(dctx)

	dir := t.TempDir()
	metaPath := filepath.Join(dir, MetadataEntryName)
	require.NoError(t, os.WriteFile(metaPath, []byte("meta"), 0o644))

	u := reg.FolderUnit(dir, true)
	u.AddOtherEntry(filepath.Join(dir, "readme.txt"), "readme.txt")
	u.AddOtherEntry(metaPath, MetadataEntryName)
	u.AddDirEntry("com/")

	// passthrough entries are dropped, metadata is still consumed
	assert.Empty(t, u.OtherEntries())
	assert.Equal(t, []string{"meta"}, loader.loaded())
	assert.Equal(t, []string{"com/"}, u.DirEntries())
}

func TestUnit_SaveStateMachine(t *testing.T) {
	ctx := context.Background()
	dctx := NewContext()
	sink := output.NewMemory()
	reg := NewRegistry(dctx)
	saver := NewSaver(dctx, &fakeProvider{}, sink)

	u := reg.FolderUnit("myapp", true)
	require.Equal(t, StatePending, u.State())

	require.NoError(t, saver.Save(ctx, u))
	require.Equal(t, StateClosed, u.State())

	err := saver.Save(ctx, u)
	require.ErrorIs(t, err, ErrUnitNotPending)
	assert.Contains(t, err.Error(), "closed")

	// the failed double save must not disturb the final state
	assert.Equal(t, StateClosed, u.State())
}
