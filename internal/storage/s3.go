package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const defaultS3Region = "us-east-1"

// S3Bucket uploads objects to an S3 or S3-compatible bucket.
type S3Bucket struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
}

// NewS3Bucket creates an S3Bucket for cfg.Bucket. When cfg.Endpoint is set
// the client addresses it with path-style requests, which is what MinIO and
// most other S3-compatible stores expect.
func NewS3Bucket(ctx context.Context, cfg Config) (*S3Bucket, error) {
	region := cfg.Region
	if region == "" {
		region = defaultS3Region
	}

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
			// S3-compatible stores often reject the default trailing checksums.
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
			o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
		}
	})

	return &S3Bucket{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   cfg.Bucket,
	}, nil
}

func (b *S3Bucket) Name() string { return b.bucket }

// Upload streams content to the bucket. The manager splits large bodies into
// a multipart upload.
func (b *S3Bucket) Upload(ctx context.Context, req *UploadRequest) (*UploadResult, error) {
	body := &countingReader{r: req.Content}

	input := &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(req.ObjectName),
		Body:   body,
	}
	if req.ContentType != "" {
		input.ContentType = aws.String(req.ContentType)
	}

	if _, err := b.uploader.Upload(ctx, input); err != nil {
		return nil, fmt.Errorf("storage: upload failed for %q: %w", req.ObjectName, err)
	}

	return &UploadResult{
		ObjectName: req.ObjectName,
		Size:       body.n,
	}, nil
}

func (b *S3Bucket) List(ctx context.Context) ([]string, error) {
	var names []string

	p := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
	})
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("storage: failed to list bucket %q: %w", b.bucket, err)
		}
		for _, item := range out.Contents {
			names = append(names, aws.ToString(item.Key))
		}
	}

	return names, nil
}

// Close is a no-op; the S3 client holds no resources that need releasing.
func (b *S3Bucket) Close() error { return nil }

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
