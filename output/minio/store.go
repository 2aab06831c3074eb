package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"sync"

	"github.com/minio/minio-go/v7"

	"github.com/hupe1980/decaf/manifest"
	"github.com/hupe1980/decaf/output"
)

// StoreOptions configures a MinIO store.
type StoreOptions struct {
	// Prefix is prepended to all object keys, e.g. "decompiled/".
	Prefix string

	// Logger receives sink diagnostics. Defaults to a discard logger.
	Logger *slog.Logger
}

// Store implements output.Writer for MinIO and S3-compatible storage.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
	logger *slog.Logger

	mu       sync.Mutex
	archives map[string]*output.ArchiveBuffer
}

var _ output.Writer = (*Store)(nil)

// NewStore creates a store writing to bucket through client.
func NewStore(client *minio.Client, bucket string, optFns ...func(o *StoreOptions)) *Store {
	opts := StoreOptions{}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Store{
		client:   client,
		bucket:   bucket,
		prefix:   opts.Prefix,
		logger:   opts.Logger,
		archives: make(map[string]*output.ArchiveBuffer),
	}
}

// SaveFolder is a no-op: object keys carry their own hierarchy.
func (s *Store) SaveFolder(_ context.Context, _ string) error {
	return nil
}

// CopyFile uploads the file source under the folder's key.
func (s *Store) CopyFile(ctx context.Context, source, path, entryName string) error {
	data, err := os.ReadFile(source)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", source, err)
	}

	return s.putObject(ctx, s.key(path, entryName), data)
}

// SaveClassFile uploads decompiled source under the folder's key. The line
// mapping is not stored.
func (s *Store) SaveClassFile(ctx context.Context, path, _, entryName, content string, _ []int) error {
	return s.putObject(ctx, s.key(path, entryName), []byte(content))
}

// CreateArchive opens an in-memory archive that is uploaded on
// CloseArchive.
func (s *Store) CreateArchive(_ context.Context, path, archiveName string, mf *manifest.Manifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := s.key(path, archiveName)
	if _, ok := s.archives[key]; ok {
		return fmt.Errorf("archive %s is already open", key)
	}

	buf, err := output.NewArchiveBuffer(mf)
	if err != nil {
		return err
	}
	s.archives[key] = buf

	return nil
}

// SaveDirEntry writes a directory entry into an open archive.
func (s *Store) SaveDirEntry(_ context.Context, path, archiveName, entryName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf, err := s.archive(path, archiveName)
	if err != nil {
		return err
	}

	_, err = buf.AddDir(entryName)

	return err
}

// CopyEntry copies an entry from the source archive into an open archive.
// Duplicate entries are skipped.
func (s *Store) CopyEntry(_ context.Context, source, path, archiveName, entryName string) error {
	data, err := output.ReadArchiveEntry(source, entryName)
	if err != nil {
		return err
	}

	return s.addEntry(path, archiveName, entryName, data)
}

// SaveClassEntry writes decompiled source into an open archive. Duplicate
// entries are skipped; the line mapping is ignored.
func (s *Store) SaveClassEntry(_ context.Context, path, archiveName, _, entryName, content string, _ []int) error {
	return s.addEntry(path, archiveName, entryName, []byte(content))
}

// CloseArchive finalizes the archive and uploads it as one object.
func (s *Store) CloseArchive(ctx context.Context, path, archiveName string) error {
	s.mu.Lock()
	key := s.key(path, archiveName)
	buf, ok := s.archives[key]
	delete(s.archives, key)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", output.ErrArchiveNotOpen, key)
	}

	if err := buf.Close(); err != nil {
		return err
	}

	return s.putObject(ctx, key, buf.Bytes())
}

func (s *Store) key(parts ...string) string {
	return path.Join(append([]string{s.prefix}, parts...)...)
}

// archive returns the open archive buffer for the key. The caller holds
// the lock.
func (s *Store) archive(path, archiveName string) (*output.ArchiveBuffer, error) {
	buf, ok := s.archives[s.key(path, archiveName)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", output.ErrArchiveNotOpen, s.key(path, archiveName))
	}

	return buf, nil
}

func (s *Store) addEntry(path, archiveName, entryName string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf, err := s.archive(path, archiveName)
	if err != nil {
		return err
	}

	added, err := buf.Add(entryName, data)
	if err != nil {
		return err
	}
	if !added {
		s.logger.Warn("duplicate archive entry",
			slog.String("archive", s.key(path, archiveName)),
			slog.String("entry", entryName),
		)
	}

	return nil
}

func (s *Store) putObject(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
	if err != nil {
		return s.wrapErr(err)
	}

	return nil
}

func (s *Store) wrapErr(err error) error {
	errResp := minio.ToErrorResponse(err)
	if errResp.Code == "NoSuchBucket" {
		return fmt.Errorf("bucket %s: %w", s.bucket, output.ErrBucketNotFound)
	}

	return err
}
