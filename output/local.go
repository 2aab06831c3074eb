package output

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zip"

	"github.com/hupe1980/decaf/manifest"
)

// LocalOptions configures the filesystem sink.
type LocalOptions struct {
	// Logger receives duplicate-entry warnings. Defaults to a discard
	// logger.
	Logger *slog.Logger
}

// Local writes results below a root directory. Archives are streamed to
// disk as they are written. Safe for concurrent use.
type Local struct {
	root   string
	logger *slog.Logger

	mu       sync.Mutex
	archives map[string]*localArchive
}

type localArchive struct {
	file *os.File
	zw   *zip.Writer
	seen map[string]struct{}
}

// NewLocal creates a sink rooted at root. The directory itself is created
// on the first save into it.
func NewLocal(root string, optFns ...func(o *LocalOptions)) *Local {
	opts := LocalOptions{}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Local{
		root:     root,
		logger:   opts.Logger,
		archives: make(map[string]*localArchive),
	}
}

// SaveFolder creates the directory for a folder unit.
func (l *Local) SaveFolder(_ context.Context, path string) error {
	if err := os.MkdirAll(l.abs(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}

	return nil
}

// CopyFile copies source into path under entryName.
func (l *Local) CopyFile(_ context.Context, source, path, entryName string) error {
	dst := l.abs(path, entryName)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", entryName, err)
	}

	in, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", source, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", source, err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", dst, err)
	}

	return nil
}

// SaveClassFile writes decompiled source as a file. The line mapping is
// ignored.
func (l *Local) SaveClassFile(_ context.Context, path, _, entryName, content string, _ []int) error {
	dst := l.abs(path, entryName)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", entryName, err)
	}

	if err := os.WriteFile(dst, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}

	return nil
}

// CreateArchive opens a fresh archive file, writing the manifest as its
// first entry when mf is non-nil.
func (l *Local) CreateArchive(_ context.Context, path, archiveName string, mf *manifest.Manifest) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := entryKey(path, archiveName)
	if _, ok := l.archives[key]; ok {
		return fmt.Errorf("archive %s is already open", key)
	}

	if err := os.MkdirAll(l.abs(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}

	f, err := os.Create(l.abs(path, archiveName))
	if err != nil {
		return fmt.Errorf("failed to create archive %s: %w", key, err)
	}

	arch := &localArchive{
		file: f,
		zw:   zip.NewWriter(f),
		seen: make(map[string]struct{}),
	}

	if mf != nil {
		w, err := arch.zw.Create(manifest.EntryName)
		if err == nil {
			_, err = mf.WriteTo(w)
		}
		if err != nil {
			arch.zw.Close()
			f.Close()
			return fmt.Errorf("failed to write manifest to %s: %w", key, err)
		}
		arch.seen[manifest.EntryName] = struct{}{}
	}

	l.archives[key] = arch

	return nil
}

// SaveDirEntry writes a directory entry into an open archive.
func (l *Local) SaveDirEntry(_ context.Context, path, archiveName, entryName string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	arch, err := l.archive(path, archiveName)
	if err != nil {
		return err
	}

	if entryName == "" || entryName[len(entryName)-1] != '/' {
		entryName += "/"
	}
	if !arch.mark(entryName) {
		l.warnDuplicate(path, archiveName, entryName)
		return nil
	}

	if _, err := arch.zw.CreateHeader(&zip.FileHeader{Name: entryName, Method: zip.Store}); err != nil {
		return fmt.Errorf("failed to write directory entry %s: %w", entryName, err)
	}

	return nil
}

// CopyEntry copies an entry from the source archive into an open archive.
func (l *Local) CopyEntry(_ context.Context, source, path, archiveName, entryName string) error {
	data, err := ReadArchiveEntry(source, entryName)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	arch, err := l.archive(path, archiveName)
	if err != nil {
		return err
	}
	if !arch.mark(entryName) {
		l.warnDuplicate(path, archiveName, entryName)
		return nil
	}

	return arch.write(entryName, data)
}

// SaveClassEntry writes decompiled source as an archive entry. The line
// mapping is ignored.
func (l *Local) SaveClassEntry(_ context.Context, path, archiveName, _, entryName, content string, _ []int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	arch, err := l.archive(path, archiveName)
	if err != nil {
		return err
	}
	if !arch.mark(entryName) {
		l.warnDuplicate(path, archiveName, entryName)
		return nil
	}

	return arch.write(entryName, []byte(content))
}

// CloseArchive finalizes an open archive and releases its file handle.
func (l *Local) CloseArchive(_ context.Context, path, archiveName string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := entryKey(path, archiveName)
	arch, ok := l.archives[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrArchiveNotOpen, key)
	}
	delete(l.archives, key)

	if err := arch.zw.Close(); err != nil {
		arch.file.Close()
		return fmt.Errorf("failed to finalize archive %s: %w", key, err)
	}
	if err := arch.file.Close(); err != nil {
		return fmt.Errorf("failed to close archive %s: %w", key, err)
	}

	return nil
}

// abs resolves a slash-separated result path below the sink root.
func (l *Local) abs(parts ...string) string {
	resolved := l.root
	for _, p := range parts {
		resolved = filepath.Join(resolved, filepath.FromSlash(p))
	}

	return resolved
}

// archive must be called with the mutex held.
func (l *Local) archive(path, archiveName string) (*localArchive, error) {
	arch, ok := l.archives[entryKey(path, archiveName)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrArchiveNotOpen, entryKey(path, archiveName))
	}

	return arch, nil
}

func (l *Local) warnDuplicate(path, archiveName, entryName string) {
	l.logger.Warn("duplicate archive entry skipped",
		slog.String("archive", entryKey(path, archiveName)),
		slog.String("entry", entryName),
	)
}

// mark records the entry name, reporting false when already present.
func (a *localArchive) mark(entryName string) bool {
	if _, ok := a.seen[entryName]; ok {
		return false
	}
	a.seen[entryName] = struct{}{}

	return true
}

func (a *localArchive) write(entryName string, data []byte) error {
	w, err := a.zw.Create(entryName)
	if err != nil {
		return fmt.Errorf("failed to create entry %s: %w", entryName, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write entry %s: %w", entryName, err)
	}

	return nil
}

var _ Writer = (*Local)(nil)
