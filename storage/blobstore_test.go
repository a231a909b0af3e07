package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBucket is an in-memory Bucket used to exercise the store without a
// storage service.
type fakeBucket struct {
	mu         sync.Mutex
	objects    map[string]fakeObject
	ensureErr  error
	ensureHits int
	putErr     error
	openErr    error
}

type fakeObject struct {
	data        []byte
	contentType string
	meta        map[string]string
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: map[string]fakeObject{}}
}

func (f *fakeBucket) Ensure(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensureHits++
	return f.ensureErr
}

func (f *fakeBucket) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string, meta map[string]string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		// Simulate a backend that wrote partial data before failing.
		f.objects[key] = fakeObject{data: data[:len(data)/2], contentType: contentType, meta: meta}
		return f.putErr
	}
	f.objects[key] = fakeObject{data: data, contentType: contentType, meta: meta}
	return nil
}

func (f *fakeBucket) Stat(ctx context.Context, key string) (BlobInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[key]
	if !ok {
		return BlobInfo{}, ErrNotFound
	}
	return BlobInfo{Key: key, Size: int64(len(obj.data)), MimeType: obj.contentType, Metadata: obj.meta}, nil
}

func (f *fakeBucket) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return io.NopCloser(&failingReader{err: f.openErr}), nil
	}
	obj, ok := f.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (f *fakeBucket) Remove(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

// failingReader yields a few bytes then fails, mimicking a mid-stream error.
type failingReader struct {
	err  error
	done bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.done {
		return 0, r.err
	}
	r.done = true
	n := copy(p, []byte("partial"))
	return n, nil
}

func TestPutGetRoundTrip(t *testing.T) {
	bucket := newFakeBucket()
	store := NewStore(bucket, nil)

	payload := []byte("laboratory results, 1024 bytes of truth")
	key, err := store.Put(context.Background(), bytes.NewReader(payload), Metadata{
		OriginalName: "results.csv",
		MimeType:     "text/csv",
		Size:         int64(len(payload)),
		UploadedBy:   "7",
	})
	require.NoError(t, err)
	require.NotEmpty(t, key)

	info, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), info.Size)
	assert.Equal(t, "text/csv", info.MimeType)
	assert.Equal(t, "results.csv", info.Metadata["original-name"])

	var sink bytes.Buffer
	require.NoError(t, store.StreamTo(context.Background(), key, &sink))
	assert.Equal(t, payload, sink.Bytes())
}

func TestPutFailureLeavesNoBlob(t *testing.T) {
	bucket := newFakeBucket()
	bucket.putErr = errors.New("connection reset")
	store := NewStore(bucket, nil)

	_, err := store.Put(context.Background(), strings.NewReader("doomed payload"), Metadata{Size: 14})
	require.Error(t, err)

	var writeErr *WriteError
	require.ErrorAs(t, err, &writeErr)

	// The partially written object must have been cleaned up.
	bucket.mu.Lock()
	defer bucket.mu.Unlock()
	assert.Empty(t, bucket.objects)
}

func TestGetNotFound(t *testing.T) {
	store := NewStore(newFakeBucket(), nil)
	_, err := store.Get(context.Background(), "no-such-key")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStreamToNotFound(t *testing.T) {
	store := NewStore(newFakeBucket(), nil)
	err := store.StreamTo(context.Background(), "no-such-key", io.Discard)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStreamToMidStreamError(t *testing.T) {
	bucket := newFakeBucket()
	bucket.openErr = errors.New("broken pipe")
	store := NewStore(bucket, nil)

	var sink bytes.Buffer
	err := store.StreamTo(context.Background(), "any", &sink)
	var readErr *ReadError
	require.ErrorAs(t, err, &readErr)
	// Partial bytes may already be in the sink; that is the documented contract.
	assert.Equal(t, "partial", sink.String())
}

func TestDeleteMissingBlobIsNoop(t *testing.T) {
	store := NewStore(newFakeBucket(), nil)
	assert.NoError(t, store.Delete(context.Background(), "already-gone"))
}

func TestInitializeIdempotent(t *testing.T) {
	bucket := newFakeBucket()
	store := NewStore(bucket, nil)

	require.NoError(t, store.Initialize(context.Background()))
	require.NoError(t, store.Initialize(context.Background()))
	assert.Equal(t, 1, bucket.ensureHits)
	assert.True(t, store.Ready())
}

func TestInitializeRetryableAfterFailure(t *testing.T) {
	bucket := newFakeBucket()
	bucket.ensureErr = errors.New("dial tcp: refused")
	store := NewStore(bucket, nil)

	require.Error(t, store.Initialize(context.Background()))
	assert.False(t, store.Ready())

	bucket.mu.Lock()
	bucket.ensureErr = nil
	bucket.mu.Unlock()
	require.NoError(t, store.Initialize(context.Background()))
	assert.True(t, store.Ready())
}

func TestConcurrentFirstPuts(t *testing.T) {
	bucket := newFakeBucket()
	store := NewStore(bucket, nil)

	var wg sync.WaitGroup
	keys := make([]string, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			payload := strings.Repeat("x", 16+i)
			keys[i], errs[i] = store.Put(context.Background(), strings.NewReader(payload), Metadata{Size: int64(len(payload))})
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	require.NotEqual(t, keys[0], keys[1])
	for i, key := range keys {
		var sink bytes.Buffer
		require.NoError(t, store.StreamTo(context.Background(), key, &sink))
		assert.Len(t, sink.String(), 16+i)
	}
}

func TestEnsureReadyBoundedRetry(t *testing.T) {
	bucket := newFakeBucket()
	bucket.ensureErr = errors.New("dial tcp: refused")
	store := NewStore(bucket, nil)

	_, err := store.Put(context.Background(), strings.NewReader("x"), Metadata{Size: 1})
	assert.ErrorIs(t, err, ErrUnavailable)

	bucket.mu.Lock()
	hits := bucket.ensureHits
	bucket.mu.Unlock()
	assert.Equal(t, initAttempts, hits)
}
