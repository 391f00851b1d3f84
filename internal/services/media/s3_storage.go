package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"

	s3infra "github.com/keito-ux/advent-calendar-bolt/internal/infra/s3"
)

// Object keys embed a timestamp and random suffix, so every upload is a new
// immutable object and CDNs may cache it forever.
const immutableCacheControl = "public, max-age=31536000, immutable"

// S3Storage writes calendar images to a MinIO or S3 bucket. A nil client
// makes every write fail, which keeps the API up when storage is down.
type S3Storage struct {
	client *minio.Client
	bucket string

	mu    sync.Mutex
	ready bool
}

func NewS3Storage(client *minio.Client, bucket string) *S3Storage {
	return &S3Storage{client: client, bucket: strings.TrimSpace(bucket)}
}

// EnsureBucket creates the bucket and its public read policy. A failed
// attempt is retried on the next upload.
func (s *S3Storage) EnsureBucket(ctx context.Context) error {
	if s.client == nil {
		return fmt.Errorf("s3 client is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}
	if err := s3infra.EnsurePublicBucket(ctx, s.client, s.bucket, objectRoot); err != nil {
		return err
	}
	s.ready = true
	return nil
}

func (s *S3Storage) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if s.client == nil {
		return fmt.Errorf("s3 client is nil")
	}
	if key == "" || body == nil || size <= 0 {
		return ErrValidation
	}

	_, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: immutableCacheControl,
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Objects that are already gone count as deleted so the
// cleanup queue does not retry them.
func (s *S3Storage) Delete(ctx context.Context, key string) error {
	if s.client == nil {
		return fmt.Errorf("s3 client is nil")
	}
	if key == "" {
		return nil
	}

	err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	if err == nil {
		return nil
	}
	if resp := minio.ToErrorResponse(err); resp.StatusCode == http.StatusNotFound || resp.Code == "NoSuchKey" {
		return nil
	}
	return fmt.Errorf("delete object %s: %w", key, err)
}
