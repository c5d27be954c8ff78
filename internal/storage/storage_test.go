package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("requires a bucket name", func(t *testing.T) {
		_, err := Open(ctx, Config{Provider: ProviderLocal, Dir: t.TempDir()})
		assert.EqualError(t, err, "storage: bucket name is required")
	})

	t.Run("rejects an unknown provider", func(t *testing.T) {
		_, err := Open(ctx, Config{Provider: "azure", Bucket: "b"})
		assert.EqualError(t, err, `storage: unknown provider "azure"`)
	})

	t.Run("opens a local bucket", func(t *testing.T) {
		b, err := Open(ctx, Config{Provider: ProviderLocal, Bucket: "test-bucket", Dir: t.TempDir()})
		require.NoError(t, err)
		defer b.Close()

		assert.IsType(t, &LocalBucket{}, b)
		assert.Equal(t, "test-bucket", b.Name())
	})

	t.Run("opens an S3 bucket with static credentials", func(t *testing.T) {
		b, err := Open(ctx, Config{
			Provider:  ProviderS3,
			Bucket:    "test-bucket",
			Endpoint:  "http://127.0.0.1:9000",
			AccessKey: "minio",
			SecretKey: "minio123",
		})
		require.NoError(t, err)
		defer b.Close()

		s3b, ok := b.(*S3Bucket)
		require.True(t, ok)
		assert.Equal(t, "test-bucket", s3b.Name())
		assert.Equal(t, "us-east-1", s3b.client.Options().Region)
		assert.True(t, s3b.client.Options().UsePathStyle)
	})
}
