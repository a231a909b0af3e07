package storage

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Metadata is attached to every stored blob.
type Metadata struct {
	OriginalName string
	MimeType     string
	Size         int64
	UploadedBy   string
}

// BlobInfo describes a stored blob without transferring its body.
type BlobInfo struct {
	Key      string
	Size     int64
	MimeType string
	Metadata map[string]string
}

// Bucket is the narrow port the store needs from its backend. The MinIO
// client satisfies it through the adapter in minio.go; tests use an
// in-memory fake.
type Bucket interface {
	// Ensure prepares the backing bucket, creating it when missing.
	Ensure(ctx context.Context) error
	// Put streams r fully into the bucket under key. The write is committed
	// when Put returns nil.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string, meta map[string]string) error
	// Stat returns blob metadata, or ErrNotFound.
	Stat(ctx context.Context, key string) (BlobInfo, error)
	// Open returns a reader over the blob body, or ErrNotFound.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Remove deletes the blob. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}

const (
	initAttempts  = 5
	initBaseDelay = 100 * time.Millisecond
)

// Store is the process-wide binary object store. It is shared by all
// request handlers; each operation is independently atomic from the
// backend's perspective so no caller-side locking is needed.
type Store struct {
	bucket Bucket
	log    *zap.SugaredLogger

	mu    sync.Mutex
	ready bool
}

// NewStore wraps bucket. The store stays uninitialized until Initialize
// succeeds; operations trigger initialization lazily.
func NewStore(bucket Bucket, log *zap.SugaredLogger) *Store {
	return &Store{bucket: bucket, log: log}
}

// Initialize prepares the backing bucket. It is idempotent and safe to call
// from concurrent requests; when the backend is unreachable it returns the
// error and remains retryable.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}
	if err := s.bucket.Ensure(ctx); err != nil {
		return err
	}
	s.ready = true
	return nil
}

// Ready reports whether initialization has completed.
func (s *Store) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// ensureReady initializes the store with bounded exponential backoff and
// returns ErrUnavailable once the attempt budget is exhausted.
func (s *Store) ensureReady(ctx context.Context) error {
	var lastErr error
	delay := initBaseDelay
	for attempt := 0; attempt < initAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ErrUnavailable
			}
			delay *= 2
		}
		if lastErr = s.Initialize(ctx); lastErr == nil {
			return nil
		}
	}
	if s.log != nil {
		s.log.Errorf("blob store initialization failed after %d attempts: %v", initAttempts, lastErr)
	}
	return ErrUnavailable
}

// Put streams r into the store under a fresh key and returns the key once
// the write is fully committed. On failure no partial blob remains
// retrievable.
func (s *Store) Put(ctx context.Context, r io.Reader, meta Metadata) (string, error) {
	if err := s.ensureReady(ctx); err != nil {
		return "", err
	}

	key := uuid.New().String()
	contentType := meta.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	attrs := map[string]string{
		"original-name": meta.OriginalName,
		"uploaded-by":   meta.UploadedBy,
	}
	if err := s.bucket.Put(ctx, key, r, meta.Size, contentType, attrs); err != nil {
		// The backend may have partially written the object; remove it so a
		// failed Put leaves nothing retrievable.
		if rmErr := s.bucket.Remove(context.WithoutCancel(ctx), key); rmErr != nil && s.log != nil {
			s.log.Warnf("blob store: cleanup after failed put %s: %v", key, rmErr)
		}
		return "", &WriteError{Key: key, Err: err}
	}
	return key, nil
}

// Get looks up blob metadata without transferring the body. Returns
// ErrNotFound when the key does not resolve.
func (s *Store) Get(ctx context.Context, key string) (BlobInfo, error) {
	if err := s.ensureReady(ctx); err != nil {
		return BlobInfo{}, err
	}
	return s.bucket.Stat(ctx, key)
}

// StreamTo copies the full blob body to w. Returns ErrNotFound for missing
// blobs and a ReadError on mid-stream failure, in which case w may hold a
// partial write.
func (s *Store) StreamTo(ctx context.Context, key string, w io.Writer) error {
	if err := s.ensureReady(ctx); err != nil {
		return err
	}
	rc, err := s.bucket.Open(ctx, key)
	if err != nil {
		return err
	}
	defer rc.Close()
	if _, err := io.Copy(w, rc); err != nil {
		return &ReadError{Key: key, Err: err}
	}
	return nil
}

// Delete removes the blob. Deleting a key that does not exist is a no-op:
// callers only need to know the blob is gone.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.ensureReady(ctx); err != nil {
		return err
	}
	return s.bucket.Remove(ctx, key)
}
