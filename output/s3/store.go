package s3

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"log/slog"
	"os"
	"path"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"golang.org/x/time/rate"

	"github.com/hupe1980/decaf/manifest"
	"github.com/hupe1980/decaf/output"
)

// Client is the subset of the S3 API the store uses. *s3.Client satisfies
// it, and it satisfies manager.UploadAPIClient.
type Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	CreateMultipartUpload(ctx context.Context, input *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	UploadPart(ctx context.Context, input *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error)
	CompleteMultipartUpload(ctx context.Context, input *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUpload(ctx context.Context, input *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
}

const (
	// defaultPartSize is larger than the SDK default of 5MB for better
	// throughput on big archives.
	defaultPartSize = 8 * 1024 * 1024

	defaultConcurrency = 5
)

// StoreOptions configures an S3 store.
type StoreOptions struct {
	// Prefix is prepended to all object keys, e.g. "decompiled/".
	Prefix string

	// PartSize is the part size for multipart archive uploads. Defaults
	// to 8MB.
	PartSize int64

	// Concurrency is the number of concurrent part uploads. Defaults to 5.
	Concurrency int

	// UploadLimitBytesPerSec caps the upload throughput. 0 means
	// unlimited.
	UploadLimitBytesPerSec int64

	// EnableChecksum enables CRC32C integrity validation. Defaults to
	// true.
	EnableChecksum bool

	// Logger receives sink diagnostics. Defaults to a discard logger.
	Logger *slog.Logger
}

// Store implements output.Writer for S3.
type Store struct {
	client   Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
	checksum bool
	limiter  *rate.Limiter
	logger   *slog.Logger

	mu       sync.Mutex
	archives map[string]*output.ArchiveBuffer
}

var _ output.Writer = (*Store)(nil)

// NewStore creates a store writing to bucket through client.
func NewStore(client Client, bucket string, optFns ...func(o *StoreOptions)) *Store {
	opts := StoreOptions{
		PartSize:       defaultPartSize,
		Concurrency:    defaultConcurrency,
		EnableChecksum: true,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	var limiter *rate.Limiter
	if opts.UploadLimitBytesPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.UploadLimitBytesPerSec), int(opts.UploadLimitBytesPerSec))
	}

	return &Store{
		client: client,
		uploader: manager.NewUploader(client, func(u *manager.Uploader) {
			u.PartSize = opts.PartSize
			u.Concurrency = opts.Concurrency
		}),
		bucket:   bucket,
		prefix:   opts.Prefix,
		checksum: opts.EnableChecksum,
		limiter:  limiter,
		logger:   opts.Logger,
		archives: make(map[string]*output.ArchiveBuffer),
	}
}

// NewDefaultStore creates a store using the default AWS configuration
// chain (environment, shared config files, instance roles).
func NewDefaultStore(ctx context.Context, bucket string, optFns ...func(o *StoreOptions)) (*Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return NewStore(s3.NewFromConfig(cfg), bucket, optFns...), nil
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

	return s.uploadArchive(ctx, key, buf.Bytes())
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

// putObject uploads a small object with CRC32C integrity validation.
func (s *Store) putObject(ctx context.Context, key string, data []byte) error {
	if err := s.waitQuota(ctx, len(data)); err != nil {
		return err
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if s.checksum {
		input.ChecksumCRC32C = aws.String(crc32cBase64(data))
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return s.wrapErr(err)
	}

	return nil
}

// uploadArchive uploads archive bytes, switching to multipart uploads
// above the configured part size.
func (s *Store) uploadArchive(ctx context.Context, key string, data []byte) error {
	if err := s.waitQuota(ctx, len(data)); err != nil {
		return err
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if s.checksum {
		input.ChecksumAlgorithm = types.ChecksumAlgorithmCrc32c
	}

	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return s.wrapErr(err)
	}

	return nil
}

// waitQuota blocks until the limiter allows n more upload bytes.
func (s *Store) waitQuota(ctx context.Context, n int) error {
	if s.limiter == nil {
		return nil
	}

	burst := s.limiter.Burst()
	for n > 0 {
		chunk := min(n, burst)
		if err := s.limiter.WaitN(ctx, chunk); err != nil {
			return err
		}
		n -= chunk
	}

	return nil
}

func (s *Store) wrapErr(err error) error {
	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return fmt.Errorf("bucket %s: %w", s.bucket, output.ErrBucketNotFound)
	}

	var nf *types.NotFound
	if errors.As(err, &nf) {
		return fmt.Errorf("bucket %s: %w", s.bucket, output.ErrBucketNotFound)
	}

	return err
}

// crc32cTable is pre-computed for the CRC32-Castagnoli polynomial.
var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// crc32cBase64 computes the CRC32C checksum of data in the base64 form S3
// expects.
func crc32cBase64(data []byte) string {
	sum := crc32.Checksum(data, crc32cTable)
	b := []byte{byte(sum >> 24), byte(sum >> 16), byte(sum >> 8), byte(sum)}

	return base64.StdEncoding.EncodeToString(b)
}
