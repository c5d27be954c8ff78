package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/fsouza/fake-gcs-server/fakestorage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeGCSBucket(t *testing.T, name string) *GCSBucket {
	t.Helper()

	server, err := fakestorage.NewServerWithOptions(fakestorage.Options{NoListener: true})
	require.NoError(t, err)
	t.Cleanup(server.Stop)

	server.CreateBucketWithOpts(fakestorage.CreateBucketOpts{Name: name})

	return NewGCSBucketWithClient(server.Client(), name)
}

func TestGCSBucket_UploadAndList(t *testing.T) {
	ctx := context.Background()
	b := newFakeGCSBucket(t, "test-bucket")
	assert.Equal(t, "test-bucket", b.Name())

	for _, name := range []string{"first", "second"} {
		res, err := b.Upload(ctx, &UploadRequest{
			ObjectName:  name,
			Content:     strings.NewReader("mydata"),
			ContentType: "text/plain",
		})
		require.NoError(t, err)
		assert.Equal(t, name, res.ObjectName)
		assert.EqualValues(t, 6, res.Size)
	}

	names, err := b.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"first", "second"}, names)
}

func TestGCSBucket_ListMissingBucket(t *testing.T) {
	b := newFakeGCSBucket(t, "test-bucket")
	missing := NewGCSBucketWithClient(b.client, "does-not-exist")

	_, err := missing.List(context.Background())
	assert.Error(t, err)
}
