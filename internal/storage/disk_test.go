package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBucket_UploadAndList(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	b, err := NewLocalBucket(dir, "test-bucket")
	require.NoError(t, err)
	assert.Equal(t, "test-bucket", b.Name())

	res, err := b.Upload(ctx, &UploadRequest{
		ObjectName:  "b",
		Content:     strings.NewReader("mydata"),
		ContentType: "text/plain",
	})
	require.NoError(t, err)
	assert.Equal(t, "b", res.ObjectName)
	assert.EqualValues(t, 6, res.Size)

	_, err = b.Upload(ctx, &UploadRequest{ObjectName: "nested/a", Content: strings.NewReader("x")})
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(dir, "test-bucket", "b"))
	require.NoError(t, err)
	assert.Equal(t, "mydata", string(got))

	names, err := b.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "nested/a"}, names)
}

func TestLocalBucket_ListEmpty(t *testing.T) {
	b, err := NewLocalBucket(t.TempDir(), "empty")
	require.NoError(t, err)

	names, err := b.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestLocalBucket_UploadCancelled(t *testing.T) {
	b, err := NewLocalBucket(t.TempDir(), "test-bucket")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = b.Upload(ctx, &UploadRequest{ObjectName: "a", Content: strings.NewReader("x")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocalBucket_UploadOutsideBucket(t *testing.T) {
	dir := t.TempDir()
	b, err := NewLocalBucket(dir, "test-bucket")
	require.NoError(t, err)

	for _, name := range []string{"../escaped", "a/../../escaped", ".."} {
		_, err := b.Upload(context.Background(), &UploadRequest{ObjectName: name, Content: strings.NewReader("x")})
		assert.EqualError(t, err, fmt.Sprintf("storage: object name %q escapes bucket \"test-bucket\"", name))
	}
	assert.NoFileExists(t, filepath.Join(dir, "escaped"))

	// Dot segments that stay inside the bucket are fine.
	_, err = b.Upload(context.Background(), &UploadRequest{ObjectName: "a/../kept", Content: strings.NewReader("x")})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "test-bucket", "kept"))
}
