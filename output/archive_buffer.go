package output

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zip"

	"github.com/hupe1980/decaf/manifest"
)

// ArchiveBuffer accumulates a zip archive in memory. Sinks that cannot
// stream an archive to its final location, such as object stores, write
// entries into a buffer and upload the finished bytes once after Close.
//
// An ArchiveBuffer is not safe for concurrent use; callers serialize
// access.
type ArchiveBuffer struct {
	buf    bytes.Buffer
	zw     *zip.Writer
	names  []string
	seen   map[string]struct{}
	closed bool
}

// NewArchiveBuffer creates an empty archive. When mf is non-nil, the
// manifest is written as the first entry.
func NewArchiveBuffer(mf *manifest.Manifest) (*ArchiveBuffer, error) {
	b := &ArchiveBuffer{seen: make(map[string]struct{})}
	b.zw = zip.NewWriter(&b.buf)

	if mf != nil {
		w, err := b.zw.Create(manifest.EntryName)
		if err != nil {
			return nil, fmt.Errorf("failed to create manifest entry: %w", err)
		}
		if _, err := mf.WriteTo(w); err != nil {
			return nil, fmt.Errorf("failed to write manifest: %w", err)
		}

		b.names = append(b.names, manifest.EntryName)
		b.seen[manifest.EntryName] = struct{}{}
	}

	return b, nil
}

// Add writes a file entry. It reports false without touching the archive
// when an entry of that name was already written.
func (b *ArchiveBuffer) Add(name string, data []byte) (bool, error) {
	if b.closed {
		return false, errors.New("archive buffer is closed")
	}
	if _, ok := b.seen[name]; ok {
		return false, nil
	}

	w, err := b.zw.Create(name)
	if err != nil {
		return false, fmt.Errorf("failed to create entry %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return false, fmt.Errorf("failed to write entry %s: %w", name, err)
	}

	b.names = append(b.names, name)
	b.seen[name] = struct{}{}

	return true, nil
}

// AddDir writes a directory entry, appending the trailing slash when
// missing. It reports false when the entry already exists.
func (b *ArchiveBuffer) AddDir(name string) (bool, error) {
	if b.closed {
		return false, errors.New("archive buffer is closed")
	}

	if name == "" || name[len(name)-1] != '/' {
		name += "/"
	}
	if _, ok := b.seen[name]; ok {
		return false, nil
	}

	if _, err := b.zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store}); err != nil {
		return false, fmt.Errorf("failed to create directory entry %s: %w", name, err)
	}

	b.names = append(b.names, name)
	b.seen[name] = struct{}{}

	return true, nil
}

// Names returns the entry names in write order.
func (b *ArchiveBuffer) Names() []string {
	out := make([]string, len(b.names))
	copy(out, b.names)

	return out
}

// Len returns the number of entries written so far.
func (b *ArchiveBuffer) Len() int {
	return len(b.names)
}

// Close finalizes the zip stream. No entries can be added afterwards.
func (b *ArchiveBuffer) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true

	if err := b.zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}

	return nil
}

// Bytes returns the finished archive. It is only valid after Close.
func (b *ArchiveBuffer) Bytes() []byte {
	return b.buf.Bytes()
}
