package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig carries connection settings for the object storage backend.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// MinioBucket implements Bucket over a MinIO/S3 compatible endpoint.
type MinioBucket struct {
	client *minio.Client
	bucket string
	region string
}

// NewMinioBucket builds the client. Connectivity is not checked here; the
// store's Ensure/retry path owns that so the process can boot before the
// storage service is reachable.
func NewMinioBucket(cfg MinioConfig) (*MinioBucket, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is not configured")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}
	return &MinioBucket{client: client, bucket: cfg.Bucket, region: cfg.Region}, nil
}

// Ensure creates the bucket when it does not exist yet.
func (m *MinioBucket) Ensure(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", m.bucket, err)
	}
	if !exists {
		if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{Region: m.region}); err != nil {
			return fmt.Errorf("create bucket %s: %w", m.bucket, err)
		}
	}
	return nil
}

// Put streams r into the bucket under key.
func (m *MinioBucket) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string, meta map[string]string) error {
	_, err := m.client.PutObject(ctx, m.bucket, key, r, size, minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: meta,
	})
	return err
}

// Stat returns blob metadata, mapping missing keys to ErrNotFound.
func (m *MinioBucket) Stat(ctx context.Context, key string) (BlobInfo, error) {
	info, err := m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return BlobInfo{}, ErrNotFound
		}
		return BlobInfo{}, err
	}
	return BlobInfo{
		Key:      key,
		Size:     info.Size,
		MimeType: info.ContentType,
		Metadata: info.UserMetadata,
	}, nil
}

// Open returns a reader over the blob body. A HEAD runs first so missing
// keys surface as ErrNotFound instead of a failure on first read.
func (m *MinioBucket) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if _, err := m.Stat(ctx, key); err != nil {
		return nil, err
	}
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// Remove deletes the blob. MinIO treats removing a missing key as success,
// which matches the store's delete policy.
func (m *MinioBucket) Remove(ctx context.Context, key string) error {
	return m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{})
}

func isNoSuchKey(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket"
}
