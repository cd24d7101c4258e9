package storage

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"time"

	"github.com/heinscr/books-library/application/ports"
	"github.com/heinscr/books-library/domain"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// MinioConfig holds connection settings for a local MinIO server
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// MinioStore implements ports.ObjectStore for MinIO/S3 compatible storage.
// It backs the local development server.
type MinioStore struct {
	client *minio.Client
	bucket string
	logger *zap.Logger
}

var _ ports.ObjectStore = (*MinioStore)(nil)

// NewMinioStore connects to MinIO and ensures the bucket exists.
func NewMinioStore(cfg MinioConfig, logger *zap.Logger) (*MinioStore, error) {
	client, err := newMinioClient(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
		logger.Info("Created bucket", zap.String("bucket", cfg.Bucket))
	}
	return &MinioStore{client: client, bucket: cfg.Bucket, logger: logger}, nil
}

// A fixed region keeps presigning offline; otherwise minio-go asks the
// server for the bucket location first.
func newMinioClient(cfg MinioConfig) (*minio.Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}
	return client, nil
}

// Bucket returns the upload bucket
func (m *MinioStore) Bucket() string {
	return m.bucket
}

// PresignGet generates a pre-signed GET URL.
func (m *MinioStore) PresignGet(ctx context.Context, loc domain.Locator, ttl time.Duration) (string, error) {
	u, err := m.client.PresignedGetObject(ctx, loc.Bucket, loc.Key, ttl, nil)
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}
	return u.String(), nil
}

// PresignPut generates a pre-signed PUT URL with the content type and tags
// signed in.
func (m *MinioStore) PresignPut(ctx context.Context, key string, ttl time.Duration, contentType string, tags map[string]string) (*ports.PresignedRequest, error) {
	tagging := EncodeTags(tags)
	headers := uploadHeaders(contentType, tagging)

	signed := http.Header{}
	for k, v := range headers {
		signed.Set(k, v)
	}

	u, err := m.client.PresignHeader(ctx, http.MethodPut, m.bucket, key, ttl, url.Values{}, signed)
	if err != nil {
		return nil, fmt.Errorf("presign put: %w", err)
	}
	return &ports.PresignedRequest{URL: u.String(), Method: http.MethodPut, Headers: headers}, nil
}

// Delete removes an object.
func (m *MinioStore) Delete(ctx context.Context, loc domain.Locator) error {
	if err := m.client.RemoveObject(ctx, loc.Bucket, loc.Key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// Tags returns the object's tags
func (m *MinioStore) Tags(ctx context.Context, loc domain.Locator) (map[string]string, error) {
	t, err := m.client.GetObjectTagging(ctx, loc.Bucket, loc.Key, minio.GetObjectTaggingOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchTagSet" {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("get object tagging: %w", err)
	}
	return t.ToMap(), nil
}

// List streams every object under prefix
func (m *MinioStore) List(ctx context.Context, prefix string) iter.Seq2[ports.ObjectInfo, error] {
	return func(yield func(ports.ObjectInfo, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
			if obj.Err != nil {
				yield(ports.ObjectInfo{}, fmt.Errorf("list objects: %w", obj.Err))
				return
			}
			if !yield(ports.ObjectInfo{Key: obj.Key, Size: obj.Size, LastModified: obj.LastModified}, nil) {
				return
			}
		}
	}
}
