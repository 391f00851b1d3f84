package s3

import (
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func NewClient(cfg Config) (*minio.Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	return client, nil
}

// PublicReadPolicy grants anonymous GetObject on every key under prefix.
// Calendar images are served straight from the bucket.
func PublicReadPolicy(bucket, prefix string) string {
	prefix = strings.Trim(prefix, "/")
	resource := fmt.Sprintf("arn:aws:s3:::%s/*", bucket)
	if prefix != "" {
		resource = fmt.Sprintf("arn:aws:s3:::%s/%s/*", bucket, prefix)
	}
	return fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["%s"]}]}`, resource)
}

// EnsurePublicBucket creates the bucket when missing and applies the
// anonymous read policy for prefix.
func EnsurePublicBucket(ctx context.Context, client *minio.Client, bucket, prefix string) error {
	if client == nil {
		return fmt.Errorf("s3 client is nil")
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return fmt.Errorf("s3 bucket is empty")
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket %q: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("make bucket %q: %w", bucket, err)
		}
	}

	if err := client.SetBucketPolicy(ctx, bucket, PublicReadPolicy(bucket, prefix)); err != nil {
		return fmt.Errorf("set bucket policy %q: %w", bucket, err)
	}
	return nil
}
