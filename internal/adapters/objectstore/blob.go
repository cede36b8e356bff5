package objectstore

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // file:// buckets, e.g. a mounted volume
	_ "gocloud.dev/blob/gcsblob"  // gs:// buckets
	_ "gocloud.dev/blob/memblob"  // mem:// buckets
	_ "gocloud.dev/blob/s3blob"   // s3:// buckets and S3-compatible endpoints
	"gocloud.dev/gcerrors"
)

const defaultTimeout = 10 * time.Second

// BlobStore reads objects from a gocloud bucket. Credentials come from the
// driver's usual environment (AWS profile, GCP application default, ...).
type BlobStore struct {
	bucket  *blob.Bucket
	prefix  string
	timeout time.Duration
}

// OpenBucket opens the bucket named by url, e.g. "s3://models?region=eu-west-1",
// "gs://models" or "file:///srv/models".
func OpenBucket(ctx context.Context, url string, opts ...Option) (*BlobStore, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("%w: empty bucket url", ErrUnavailable)
	}
	bucket, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrUnavailable, url, err)
	}
	return NewBlobStore(bucket, opts...), nil
}

// NewBlobStore wraps an open bucket. The store owns bucket from then on.
func NewBlobStore(bucket *blob.Bucket, opts ...Option) *BlobStore {
	s := &BlobStore{bucket: bucket, timeout: defaultTimeout}
	for _, opt := range opts {
		opt(s)
	}
	if s.prefix != "" {
		s.bucket = blob.PrefixedBucket(bucket, s.prefix)
	}
	return s
}

func checkKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}

func classify(op, key string, err error) error {
	switch gcerrors.Code(err) {
	case gcerrors.NotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	case gcerrors.PermissionDenied:
		return fmt.Errorf("%w: %w: %s %s: %w", ErrUnavailable, ErrUnauthorized, op, key, err)
	default:
		return fmt.Errorf("%w: %s %s: %w", ErrUnavailable, op, key, err)
	}
}

// Exists checks key with one attributes lookup.
func (s *BlobStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := checkKey(key); err != nil {
		return false, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ok, err := s.bucket.Exists(ctx, key)
	if err != nil {
		return false, classify("exists", key, err)
	}
	return ok, nil
}

// Open streams key. The timeout covers the whole body read.
func (s *BlobStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	r, err := s.bucket.NewReader(ctx, key, nil)
	if err != nil {
		cancel()
		return nil, classify("open", key, err)
	}
	return &cancelOnClose{ReadCloser: r, cancel: cancel}, nil
}

// Put writes data under key. The resolver never writes; seeding and
// mirroring tools do.
func (s *BlobStore) Put(ctx context.Context, key string, data []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := s.bucket.WriteAll(ctx, key, data, nil); err != nil {
		return classify("put", key, err)
	}
	return nil
}

// Close releases the bucket.
func (s *BlobStore) Close() error {
	return s.bucket.Close()
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	defer c.cancel()
	return c.ReadCloser.Close()
}

var _ Store = (*BlobStore)(nil)
