// Package unit models compilation units, the saveable halves of a
// decompilation run: folders and archives whose decompiled classes,
// directory entries and passthrough files are written out together. A
// Registry keeps the units of a run in insertion order and a Saver writes
// them to an output sink, decompiling the classes of archive units on a
// bounded worker group.
package unit

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/hupe1980/decaf/manifest"
	"github.com/hupe1980/decaf/output"
)

// Kind tells how a unit's results are packaged.
type Kind int

const (
	// Folder units write plain files below a directory.
	Folder Kind = iota
	// Jar units write a jar archive whose manifest, when present, becomes
	// the first entry.
	Jar
	// Zip units write a plain zip archive.
	Zip
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case Folder:
		return "folder"
	case Jar:
		return "jar"
	case Zip:
		return "zip"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// State tracks a unit through its save lifecycle.
type State int32

const (
	// StatePending means the unit has not been saved yet.
	StatePending State = iota
	// StateSaving means a save is in progress.
	StateSaving
	// StateClosed means the unit was saved successfully.
	StateClosed
	// StateFailed means the save failed.
	StateFailed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateSaving:
		return "saving"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Class is one compiled class scheduled for decompilation.
type Class struct {
	// QualifiedName is the JVM-internal name, such as "com/example/Foo".
	QualifiedName string

	// Source is the path of the file or archive the class was loaded from.
	Source string

	// EntryName is the class's original entry name inside its unit, such
	// as "com/example/Foo.class".
	EntryName string

	// Own reports whether the class belongs to the unit itself rather than
	// a referenced library. Only own classes are decompiled.
	Own bool
}

type otherEntry struct {
	source string
	name   string
}

// Unit is one compilation unit: a folder or archive whose results are
// written together. Units are assembled on a single goroutine before
// saving; only the save state is safe to read concurrently.
type Unit struct {
	dctx *Context

	kind        Kind
	own         bool
	archivePath string
	name        string

	manifest *manifest.Manifest

	classes      []Class
	dirEntries   []string
	otherEntries []otherEntry

	state atomic.Int32
}

// Kind returns how the unit is packaged.
func (u *Unit) Kind() Kind {
	return u.kind
}

// Own reports whether the unit belongs to the input set itself. Units
// registered for reference libraries are never saved.
func (u *Unit) Own() bool {
	return u.own
}

// ArchivePath returns the output path the unit is written below.
func (u *Unit) ArchivePath() string {
	return u.archivePath
}

// Name returns the archive file name. It is empty for folder units.
func (u *Unit) Name() string {
	return u.name
}

// State returns the unit's save state.
func (u *Unit) State() State {
	return State(u.state.Load())
}

// Manifest returns the manifest carried over from the source archive.
func (u *Unit) Manifest() *manifest.Manifest {
	return u.manifest
}

// SetManifest records the manifest to write into the output archive. A jar
// unit without a manifest is written without a manifest entry.
func (u *Unit) SetManifest(mf *manifest.Manifest) {
	u.manifest = mf
}

// AddClass schedules a class for decompilation.
func (u *Unit) AddClass(cl Class) {
	u.classes = append(u.classes, cl)
}

// Classes returns the scheduled classes in registration order.
func (u *Unit) Classes() []Class {
	return slices.Clone(u.classes)
}

// AddDirEntry schedules a directory entry for archive units.
func (u *Unit) AddDirEntry(name string) {
	u.dirEntries = append(u.dirEntries, name)
}

// DirEntries returns the scheduled directory entries.
func (u *Unit) DirEntries() []string {
	return slices.Clone(u.dirEntries)
}

// AddOtherEntry schedules a passthrough entry for copying from source. An
// entry named like the abstract parameter metadata file is consumed
// instead of copied: its text is handed to the context's MetadataLoader.
// With SkipExtraEntries set, all other passthrough entries are dropped.
func (u *Unit) AddOtherEntry(source, name string) {
	if strings.HasSuffix(name, MetadataEntryName) {
		u.loadAbstractMetadata(source, name)
		return
	}
	if u.dctx.SkipExtraEntries {
		return
	}

	u.otherEntries = append(u.otherEntries, otherEntry{source: source, name: name})
}

// OtherEntries returns the names of the scheduled passthrough entries.
func (u *Unit) OtherEntries() []string {
	names := make([]string, len(u.otherEntries))
	for i, e := range u.otherEntries {
		names[i] = e.name
	}

	return names
}

// loadAbstractMetadata reads a metadata entry, from disk for folder units
// and from the source archive otherwise, and feeds it to the metadata
// loader. Failures are logged and never abort registration.
func (u *Unit) loadAbstractMetadata(source, name string) {
	if u.dctx.Metadata == nil {
		return
	}

	var (
		data []byte
		err  error
	)
	if u.kind == Folder {
		data, err = os.ReadFile(source)
	} else {
		data, err = output.ReadArchiveEntry(source, name)
	}
	if err != nil {
		u.dctx.Logger.Warn("cannot read abstract parameter metadata",
			slog.String("source", source),
			slog.String("entry", name),
			slog.Any("error", err),
		)
		return
	}

	if err := u.dctx.Metadata.LoadAbstractMetadata(u.dctx, string(data)); err != nil {
		u.dctx.Logger.Warn("cannot load abstract parameter metadata",
			slog.String("source", source),
			slog.String("entry", name),
			slog.Any("error", err),
		)
	}
}

// beginSave moves the unit from pending to saving.
func (u *Unit) beginSave() error {
	if !u.state.CompareAndSwap(int32(StatePending), int32(StateSaving)) {
		return fmt.Errorf("%w: unit %s is %s", ErrUnitNotPending, unitKey(u.archivePath, u.name), u.State())
	}

	return nil
}

func (u *Unit) finishSave(state State) {
	u.state.Store(int32(state))
}

// unitKey addresses a unit by its output location.
func unitKey(archivePath, name string) string {
	if name == "" {
		return archivePath
	}

	return archivePath + "/" + name
}
