package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSBucket uploads objects to a Google Cloud Storage bucket.
type GCSBucket struct {
	client *storage.Client
	bucket string
}

// NewGCSBucket creates a GCSBucket for cfg.Bucket. A credentials file or
// endpoint in cfg is passed through to the underlying client.
func NewGCSBucket(ctx context.Context, cfg Config, opts ...option.ClientOption) (*GCSBucket, error) {
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to create GCS client: %w", err)
	}
	return NewGCSBucketWithClient(client, cfg.Bucket), nil
}

// NewGCSBucketWithClient wraps an existing client. The bucket takes ownership
// of the client and closes it in Close.
func NewGCSBucketWithClient(client *storage.Client, bucket string) *GCSBucket {
	return &GCSBucket{client: client, bucket: bucket}
}

func (b *GCSBucket) Name() string { return b.bucket }

// Upload writes content to GCS at the requested object name.
func (b *GCSBucket) Upload(ctx context.Context, req *UploadRequest) (*UploadResult, error) {
	obj := b.client.Bucket(b.bucket).Object(req.ObjectName)
	w := obj.NewWriter(ctx)
	w.ContentType = req.ContentType

	n, err := io.Copy(w, req.Content)
	if err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("storage: upload write failed for %q: %w", req.ObjectName, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("storage: upload close failed for %q: %w", req.ObjectName, err)
	}

	return &UploadResult{
		ObjectName: req.ObjectName,
		Size:       n,
	}, nil
}

// List walks every object in the bucket.
func (b *GCSBucket) List(ctx context.Context) ([]string, error) {
	var names []string

	it := b.client.Bucket(b.bucket).Objects(ctx, nil)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("storage: failed to list bucket %q: %w", b.bucket, err)
		}
		names = append(names, attrs.Name)
	}

	return names, nil
}

func (b *GCSBucket) Close() error {
	return b.client.Close()
}
