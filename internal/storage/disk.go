package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LocalBucket stores objects in a directory on the local filesystem. The
// bucket is the directory baseDir/bucket; object names map to relative paths
// beneath it.
type LocalBucket struct {
	root   string
	bucket string
}

// NewLocalBucket creates a LocalBucket rooted at baseDir/bucket. The directory
// is created if it does not already exist. An empty baseDir means the current
// working directory.
func NewLocalBucket(baseDir, bucket string) (*LocalBucket, error) {
	root := filepath.Join(baseDir, bucket)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: failed to create local bucket directory %q: %w", root, err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to resolve absolute path for %q: %w", root, err)
	}
	return &LocalBucket{root: abs, bucket: bucket}, nil
}

func (b *LocalBucket) Name() string { return b.bucket }

// Upload writes content to root/objectName, creating any intermediate
// directories as needed.
func (b *LocalBucket) Upload(ctx context.Context, req *UploadRequest) (*UploadResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dest := filepath.Join(b.root, filepath.FromSlash(req.ObjectName))
	if rel, err := filepath.Rel(b.root, dest); err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("storage: object name %q escapes bucket %q", req.ObjectName, b.bucket)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, fmt.Errorf("storage: failed to create directory for %q: %w", req.ObjectName, err)
	}

	f, err := os.Create(dest)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to create file %q: %w", dest, err)
	}
	defer f.Close()

	n, err := io.Copy(f, req.Content)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to write file %q: %w", dest, err)
	}

	return &UploadResult{
		ObjectName: req.ObjectName,
		Size:       n,
	}, nil
}

// List returns object names in lexical order, using forward slashes
// regardless of platform.
func (b *LocalBucket) List(ctx context.Context) ([]string, error) {
	var names []string

	err := filepath.WalkDir(b.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(b.root, path)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: failed to list bucket %q: %w", b.bucket, err)
	}

	sort.Strings(names)
	return names, nil
}

func (b *LocalBucket) Close() error { return nil }
