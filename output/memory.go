package output

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"

	"github.com/klauspost/compress/zip"

	"github.com/hupe1980/decaf/manifest"
)

// Memory is an in-memory Writer for tests and in-process consumers. It
// behaves like the filesystem sink, reading copy sources for real, but
// keeps folders, files and finished archives in memory for inspection.
// Safe for concurrent use.
type Memory struct {
	mu sync.Mutex

	folders  []string
	files    map[string]string
	copies   map[string]string
	mappings map[string][]int
	archives map[string]*memoryArchive
}

type memoryArchive struct {
	buf    *ArchiveBuffer
	data   []byte
	closed bool
}

// NewMemory creates an empty in-memory sink.
func NewMemory() *Memory {
	return &Memory{
		files:    make(map[string]string),
		copies:   make(map[string]string),
		mappings: make(map[string][]int),
		archives: make(map[string]*memoryArchive),
	}
}

// SaveFolder records the directory for a folder unit.
func (m *Memory) SaveFolder(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !slices.Contains(m.folders, path) {
		m.folders = append(m.folders, path)
	}

	return nil
}

// CopyFile reads source and stores its contents under path and entryName.
func (m *Memory) CopyFile(_ context.Context, source, path, entryName string) error {
	data, err := os.ReadFile(source)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", source, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := entryKey(path, entryName)
	m.files[key] = string(data)
	m.copies[key] = source

	return nil
}

// SaveClassFile stores decompiled source, remembering the line mapping
// when one is given.
func (m *Memory) SaveClassFile(_ context.Context, path, _, entryName, content string, mapping []int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := entryKey(path, entryName)
	m.files[key] = content
	if mapping != nil {
		m.mappings[key] = slices.Clone(mapping)
	}

	return nil
}

// CreateArchive opens a fresh in-memory archive.
func (m *Memory) CreateArchive(_ context.Context, path, archiveName string, mf *manifest.Manifest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := entryKey(path, archiveName)
	if _, ok := m.archives[key]; ok {
		return fmt.Errorf("archive %s is already open", key)
	}

	buf, err := NewArchiveBuffer(mf)
	if err != nil {
		return err
	}
	m.archives[key] = &memoryArchive{buf: buf}

	return nil
}

// SaveDirEntry writes a directory entry. Duplicates are skipped.
func (m *Memory) SaveDirEntry(_ context.Context, path, archiveName, entryName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	arch, err := m.archive(path, archiveName)
	if err != nil {
		return err
	}

	_, err = arch.buf.AddDir(entryName)

	return err
}

// CopyEntry reads an entry from the source archive and writes it.
// Duplicates are skipped.
func (m *Memory) CopyEntry(_ context.Context, source, path, archiveName, entryName string) error {
	data, err := ReadArchiveEntry(source, entryName)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	arch, err := m.archive(path, archiveName)
	if err != nil {
		return err
	}

	added, err := arch.buf.Add(entryName, data)
	if err != nil {
		return err
	}
	if added {
		m.copies[entryKey(entryKey(path, archiveName), entryName)] = source
	}

	return nil
}

// SaveClassEntry writes decompiled source as an archive entry, remembering
// the line mapping when one is given. Duplicates are skipped.
func (m *Memory) SaveClassEntry(_ context.Context, path, archiveName, _, entryName, content string, mapping []int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	arch, err := m.archive(path, archiveName)
	if err != nil {
		return err
	}

	added, err := arch.buf.Add(entryName, []byte(content))
	if err != nil {
		return err
	}
	if added && mapping != nil {
		m.mappings[entryKey(entryKey(path, archiveName), entryName)] = slices.Clone(mapping)
	}

	return nil
}

// CloseArchive finalizes an in-memory archive; its bytes stay inspectable.
func (m *Memory) CloseArchive(_ context.Context, path, archiveName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	arch, err := m.archive(path, archiveName)
	if err != nil {
		return err
	}
	if arch.closed {
		return nil
	}

	if err := arch.buf.Close(); err != nil {
		return err
	}
	arch.data = arch.buf.Bytes()
	arch.closed = true

	return nil
}

// Folders returns the recorded folder paths in save order.
func (m *Memory) Folders() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.folders)
}

// File returns the contents stored for a file.
func (m *Memory) File(path, entryName string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	content, ok := m.files[entryKey(path, entryName)]

	return content, ok
}

// Files returns the number of stored files.
func (m *Memory) Files() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.files)
}

// CopySource returns the source a file was copied from.
func (m *Memory) CopySource(path, entryName string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	source, ok := m.copies[entryKey(path, entryName)]

	return source, ok
}

// Mapping returns the line mapping recorded for a class file.
func (m *Memory) Mapping(path, entryName string) ([]int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mapping, ok := m.mappings[entryKey(path, entryName)]

	return slices.Clone(mapping), ok
}

// ArchiveMapping returns the line mapping recorded for an archive entry.
func (m *Memory) ArchiveMapping(path, archiveName, entryName string) ([]int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mapping, ok := m.mappings[entryKey(entryKey(path, archiveName), entryName)]

	return slices.Clone(mapping), ok
}

// ArchiveClosed reports whether the archive was finalized.
func (m *Memory) ArchiveClosed(path, archiveName string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	arch, ok := m.archives[entryKey(path, archiveName)]

	return ok && arch.closed
}

// ArchiveEntryNames returns the entry names of an archive in write order.
func (m *Memory) ArchiveEntryNames(path, archiveName string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	arch, ok := m.archives[entryKey(path, archiveName)]
	if !ok {
		return nil
	}

	return arch.buf.Names()
}

// ArchiveBytes returns the finished zip bytes of a closed archive.
func (m *Memory) ArchiveBytes(path, archiveName string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	arch, ok := m.archives[entryKey(path, archiveName)]
	if !ok || !arch.closed {
		return nil, false
	}

	return arch.data, true
}

// ArchiveEntry returns the contents of one entry of a closed archive.
func (m *Memory) ArchiveEntry(path, archiveName, entryName string) ([]byte, bool) {
	data, ok := m.ArchiveBytes(path, archiveName)
	if !ok {
		return nil, false
	}

	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, false
	}

	for _, f := range r.File {
		if f.Name != entryName {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, false
		}
		defer rc.Close()

		content, err := io.ReadAll(rc)
		if err != nil {
			return nil, false
		}

		return content, true
	}

	return nil, false
}

// archive must be called with the mutex held.
func (m *Memory) archive(path, archiveName string) (*memoryArchive, error) {
	arch, ok := m.archives[entryKey(path, archiveName)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrArchiveNotOpen, entryKey(path, archiveName))
	}

	return arch, nil
}

var _ Writer = (*Memory)(nil)
