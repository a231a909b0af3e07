package controllers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labworks/labops/middleware"
	"github.com/labworks/labops/models"
	"github.com/labworks/labops/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// memBucket is an in-memory storage.Bucket for handler tests.
type memBucket struct {
	mu      sync.Mutex
	objects map[string]memObject
}

type memObject struct {
	data        []byte
	contentType string
	meta        map[string]string
}

func newMemBucket() *memBucket {
	return &memBucket{objects: map[string]memObject{}}
}

func (m *memBucket) Ensure(ctx context.Context) error { return nil }

func (m *memBucket) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string, meta map[string]string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memObject{data: data, contentType: contentType, meta: meta}
	return nil
}

func (m *memBucket) Stat(ctx context.Context, key string) (storage.BlobInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	if !ok {
		return storage.BlobInfo{}, storage.ErrNotFound
	}
	return storage.BlobInfo{Key: key, Size: int64(len(obj.data)), MimeType: obj.contentType, Metadata: obj.meta}, nil
}

func (m *memBucket) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (m *memBucket) Remove(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func multipartUpload(t *testing.T, fields map[string]string, fileField, fileName string, content []byte) (*bytes.Buffer, string) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileField != "" {
		fw, err := w.CreateFormFile(fileField, fileName)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func uploadRouter(rc *ReportController) *gin.Engine {
	r := gin.New()
	r.POST("/reports", func(c *gin.Context) {
		c.Set("user_id", uint(7))
		rc.Upload(c)
	})
	return r
}

func TestUploadRejectsMissingFile(t *testing.T) {
	rc := &ReportController{stagingDir: t.TempDir()}
	body, contentType := multipartUpload(t, map[string]string{
		"title": "Q1 Audit", "type": "regulatory", "format": "pdf",
	}, "", "", nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/reports", body)
	req.Header.Set("Content-Type", contentType)
	uploadRouter(rc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "40050")
}

func TestUploadRejectsMissingFields(t *testing.T) {
	rc := &ReportController{stagingDir: t.TempDir()}
	body, contentType := multipartUpload(t, map[string]string{
		"title": "Q1 Audit", "type": "regulatory",
	}, "file", "audit.pdf", []byte("pdf-bytes"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/reports", body)
	req.Header.Set("Content-Type", contentType)
	uploadRouter(rc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "40051")
}

func TestUploadRejectsInvalidTypeBeforeFormat(t *testing.T) {
	rc := &ReportController{stagingDir: t.TempDir()}
	// Both type and format are invalid; type must win.
	body, contentType := multipartUpload(t, map[string]string{
		"title": "Q1 Audit", "type": "financial", "format": "exe",
	}, "file", "audit.pdf", []byte("pdf-bytes"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/reports", body)
	req.Header.Set("Content-Type", contentType)
	uploadRouter(rc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "40052")
}

func TestUploadRejectsInvalidFormat(t *testing.T) {
	rc := &ReportController{stagingDir: t.TempDir()}
	body, contentType := multipartUpload(t, map[string]string{
		"title": "Q1 Audit", "type": "regulatory", "format": "exe",
	}, "file", "audit.pdf", []byte("pdf-bytes"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/reports", body)
	req.Header.Set("Content-Type", contentType)
	uploadRouter(rc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "40053")
}

func TestUploadValidationLeavesStoreUntouched(t *testing.T) {
	bucket := newMemBucket()
	rc := &ReportController{store: storage.NewStore(bucket, nil), stagingDir: t.TempDir()}

	body, contentType := multipartUpload(t, map[string]string{
		"title": "Q1 Audit", "type": "financial", "format": "pdf",
	}, "file", "audit.pdf", []byte("pdf-bytes"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/reports", body)
	req.Header.Set("Content-Type", contentType)
	uploadRouter(rc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, bucket.objects)
	assert.False(t, rc.store.Ready())
}

func TestUploadValidationLeavesNoStagedFile(t *testing.T) {
	staging := t.TempDir()
	rc := &ReportController{stagingDir: staging}

	body, contentType := multipartUpload(t, map[string]string{
		"title": "Q1 Audit", "type": "regulatory", "format": "exe",
	}, "file", "audit.pdf", []byte("pdf-bytes"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/reports", body)
	req.Header.Set("Content-Type", contentType)
	uploadRouter(rc).ServeHTTP(w, req)

	entries, err := os.ReadDir(staging)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func streamRouter(rc *ReportController, report *models.Report) *gin.Engine {
	r := gin.New()
	r.GET("/stream", func(c *gin.Context) {
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.FileName))
		rc.streamReport(c, report)
	})
	return r
}

func TestStreamLegacyFile(t *testing.T) {
	legacy := t.TempDir()
	payload := bytes.Repeat([]byte("x"), 1024)
	require.NoError(t, os.WriteFile(filepath.Join(legacy, "q1.csv"), payload, 0o644))

	rc := &ReportController{legacyDir: legacy}
	report := &models.Report{FileName: "q1.csv", FileSize: 1024}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stream", nil)
	streamRouter(rc, report).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/octet-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "1024", w.Header().Get("Content-Length"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "q1.csv")
	assert.Equal(t, payload, w.Body.Bytes())
}

func TestStreamLegacyFileMissing(t *testing.T) {
	rc := &ReportController{legacyDir: t.TempDir()}
	report := &models.Report{FileName: "gone.csv", FileSize: 10}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stream", nil)
	streamRouter(rc, report).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "gone.csv")
}

func TestStreamBlobRoundTrip(t *testing.T) {
	bucket := newMemBucket()
	store := storage.NewStore(bucket, nil)
	payload := []byte("blob body bytes")
	key, err := store.Put(context.Background(), bytes.NewReader(payload), storage.Metadata{
		OriginalName: "audit.pdf",
		MimeType:     "application/pdf",
		Size:         int64(len(payload)),
	})
	require.NoError(t, err)

	rc := &ReportController{store: store, legacyDir: t.TempDir()}
	report := &models.Report{FileName: "audit.pdf", FileSize: int64(len(payload)), StorageRef: key}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stream", nil)
	streamRouter(rc, report).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, fmt.Sprint(len(payload)), w.Header().Get("Content-Length"))
	assert.Equal(t, payload, w.Body.Bytes())
}

func TestStreamBlobMissing(t *testing.T) {
	rc := &ReportController{store: storage.NewStore(newMemBucket(), nil), legacyDir: t.TempDir()}
	report := &models.Report{FileName: "audit.pdf", StorageRef: "no-such-key"}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stream", nil)
	streamRouter(rc, report).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// lostBucket answers Stat from the underlying bucket but the blob is gone by
// the time the body is opened.
type lostBucket struct{ *memBucket }

func (b *lostBucket) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return nil, storage.ErrNotFound
}

// brokenOpenBucket fails every body open with a backend error.
type brokenOpenBucket struct{ *memBucket }

func (b *brokenOpenBucket) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return nil, errors.New("connection reset by storage backend")
}

func TestStreamBlobLostAfterStat(t *testing.T) {
	bucket := newMemBucket()
	store := storage.NewStore(&lostBucket{bucket}, nil)
	payload := bytes.Repeat([]byte("y"), 4096)
	key, err := store.Put(context.Background(), bytes.NewReader(payload), storage.Metadata{
		MimeType: "application/pdf",
		Size:     int64(len(payload)),
	})
	require.NoError(t, err)

	rc := &ReportController{store: store, legacyDir: t.TempDir()}
	report := &models.Report{FileName: "audit.pdf", FileSize: 4096, StorageRef: key}

	// A recorder does not enforce Content-Length, a real server does. The
	// error payload must not go out under the 4096-byte length announced for
	// the file or the client reads it as a truncated download.
	srv := httptest.NewServer(streamRouter(rc, report))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/stream")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "40450")
	assert.NotEqual(t, int64(4096), resp.ContentLength)
}

func TestStreamBlobOpenFailureBeforeBody(t *testing.T) {
	bucket := newMemBucket()
	store := storage.NewStore(&brokenOpenBucket{bucket}, nil)
	payload := bytes.Repeat([]byte("y"), 2048)
	key, err := store.Put(context.Background(), bytes.NewReader(payload), storage.Metadata{Size: int64(len(payload))})
	require.NoError(t, err)

	rc := &ReportController{store: store, legacyDir: t.TempDir()}
	report := &models.Report{FileName: "audit.pdf", FileSize: 2048, StorageRef: key}

	srv := httptest.NewServer(streamRouter(rc, report))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/stream")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, string(body), "50055")
	assert.NotEqual(t, int64(2048), resp.ContentLength)
}

func TestUploadOversizedChunkedBody(t *testing.T) {
	rc := &ReportController{stagingDir: t.TempDir()}
	body, contentType := multipartUpload(t, map[string]string{
		"title": "Q1 Audit", "type": "regulatory", "format": "pdf",
	}, "file", "audit.pdf", bytes.Repeat([]byte("z"), 4096))

	r := gin.New()
	r.POST("/reports", middleware.MaxBodySize(1024), func(c *gin.Context) {
		c.Set("user_id", uint(7))
		rc.Upload(c)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/reports", body)
	req.Header.Set("Content-Type", contentType)
	// Without a declared length the cap only trips during form parsing.
	req.ContentLength = -1
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "41301")
}

func TestStreamBlobDefaultsContentType(t *testing.T) {
	bucket := newMemBucket()
	store := storage.NewStore(bucket, nil)
	key, err := store.Put(context.Background(), bytes.NewReader([]byte("data")), storage.Metadata{Size: 4})
	require.NoError(t, err)

	rc := &ReportController{store: store, legacyDir: t.TempDir()}
	report := &models.Report{FileName: "raw.bin", StorageRef: key}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stream", nil)
	streamRouter(rc, report).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/octet-stream", w.Header().Get("Content-Type"))
}
