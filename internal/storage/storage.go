// Package storage provides an abstraction over object-storage buckets. A
// Bucket can accept uploads and enumerate the names of the objects it holds.
// The GCS implementation is the production backend; S3 covers S3-compatible
// stores and the local implementation backs dry runs and tests.
package storage

import (
	"context"
	"fmt"
	"io"
)

// Provider names a storage backend.
type Provider string

const (
	ProviderGCS   Provider = "gcs"
	ProviderS3    Provider = "s3"
	ProviderLocal Provider = "local"
)

// Bucket persists objects to a single named bucket.
type Bucket interface {
	// Name returns the bucket name as configured.
	Name() string

	Upload(ctx context.Context, req *UploadRequest) (*UploadResult, error)

	// List returns the names of every object currently in the bucket. The
	// order is backend defined.
	List(ctx context.Context) ([]string, error)

	Close() error
}

type UploadRequest struct {
	// ObjectName is the object path within the configured bucket.
	ObjectName string

	// Content is the data to be uploaded.
	Content io.Reader

	// ContentType is the MIME type of the content, e.g. "text/plain".
	ContentType string
}

// UploadResult is the outcome of a successful upload.
type UploadResult struct {
	// ObjectName is the object path within the configured bucket.
	ObjectName string

	// Size is the number of bytes written.
	Size int64
}

// Config carries everything needed to open a Bucket. Credentials are passed
// explicitly rather than read from process-wide state by the backends.
type Config struct {
	Provider Provider
	Bucket   string

	// CredentialsFile is a service account key for GCS. When empty,
	// Application Default Credentials are used.
	CredentialsFile string

	// Endpoint overrides the service endpoint, e.g. for MinIO or a GCS
	// emulator.
	Endpoint string

	// Region, AccessKey and SecretKey configure the S3 backend. When the keys
	// are empty the default AWS credential chain applies.
	Region    string
	AccessKey string
	SecretKey string

	// Dir is the root directory of the local backend. The bucket is a
	// subdirectory of Dir.
	Dir string
}

// Open returns the Bucket described by cfg.
func Open(ctx context.Context, cfg Config) (Bucket, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage: bucket name is required")
	}

	switch cfg.Provider {
	case ProviderGCS, "":
		return NewGCSBucket(ctx, cfg)
	case ProviderS3:
		return NewS3Bucket(ctx, cfg)
	case ProviderLocal:
		return NewLocalBucket(cfg.Dir, cfg.Bucket)
	default:
		return nil, fmt.Errorf("storage: unknown provider %q", cfg.Provider)
	}
}
