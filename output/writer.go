// Package output defines the sink interface the save pipeline writes
// decompiled results to, plus ready-made sinks for the local filesystem and
// for in-memory capture. Object store sinks live in the s3 and minio
// subpackages.
package output

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zip"

	"github.com/hupe1980/decaf/manifest"
)

// ErrArchiveNotOpen is returned when an archive entry is written before
// CreateArchive or after CloseArchive.
var ErrArchiveNotOpen = errors.New("archive is not open")

// ErrBucketNotFound is returned by object storage sinks when the target
// bucket does not exist.
//
// Implementations return an error that satisfies
// errors.Is(err, ErrBucketNotFound).
var ErrBucketNotFound = errors.New("bucket not found")

// Writer receives decompiled output. Folder results arrive through
// SaveFolder, CopyFile and SaveClassFile; archive results are bracketed by
// CreateArchive and CloseArchive, with one call per entry in between.
//
// Archives are addressed by the pair (path, archiveName). Entry writes for
// an archive may come from multiple goroutines at once; implementations
// must serialize access to the underlying archive.
type Writer interface {
	// SaveFolder creates the directory for a folder unit.
	SaveFolder(ctx context.Context, path string) error

	// CopyFile copies the file source into path under entryName.
	CopyFile(ctx context.Context, source, path, entryName string) error

	// SaveClassFile writes decompiled source as a file. The mapping pairs
	// original and decompiled line numbers; sinks may ignore it.
	SaveClassFile(ctx context.Context, path, qualifiedName, entryName, content string, mapping []int) error

	// CreateArchive opens a fresh archive. A nil manifest means the archive
	// starts without a manifest entry.
	CreateArchive(ctx context.Context, path, archiveName string, mf *manifest.Manifest) error

	// SaveDirEntry writes a directory entry into an open archive.
	SaveDirEntry(ctx context.Context, path, archiveName, entryName string) error

	// CopyEntry copies an entry from the source archive into an open
	// archive.
	CopyEntry(ctx context.Context, source, path, archiveName, entryName string) error

	// SaveClassEntry writes decompiled source as an archive entry. The
	// mapping pairs original and decompiled line numbers; sinks may ignore
	// it.
	SaveClassEntry(ctx context.Context, path, archiveName, qualifiedName, entryName, content string, mapping []int) error

	// CloseArchive finalizes an open archive.
	CloseArchive(ctx context.Context, path, archiveName string) error
}

// entryKey addresses an archive or file inside a sink.
func entryKey(path, name string) string {
	if path == "" {
		return name
	}

	return path + "/" + name
}

// ReadArchiveEntry returns the contents of one entry of the zip or jar
// archive at source.
func ReadArchiveEntry(source, entryName string) ([]byte, error) {
	r, err := zip.OpenReader(source)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", source, err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name != entryName {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open entry %s in %s: %w", entryName, source, err)
		}
		defer rc.Close()

		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("failed to read entry %s in %s: %w", entryName, source, err)
		}

		return data, nil
	}

	return nil, fmt.Errorf("entry %s not found in %s", entryName, source)
}
