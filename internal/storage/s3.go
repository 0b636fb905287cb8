package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// putObjectAPI is the part of the S3 client the uploader needs.
type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader puts thumbnails in a bucket under the "thumbnails/" prefix.
type S3Uploader struct {
	client    putObjectAPI
	bucket    string
	publicURL string
}

// NewS3Uploader builds a client from the default AWS configuration chain.
// publicURL is the base objects are served from; empty means the bucket's
// virtual-hosted S3 URL.
func NewS3Uploader(ctx context.Context, bucket, publicURL string) (*S3Uploader, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("error loading aws config: %w", err)
	}
	if publicURL == "" {
		publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, cfg.Region)
	}
	return &S3Uploader{
		client:    s3.NewFromConfig(cfg),
		bucket:    bucket,
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}, nil
}

func (u *S3Uploader) Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	if err := checkImage(contentType); err != nil {
		return "", err
	}

	key := objectKey("thumbnails", name)
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("error uploading %s to s3: %w", name, err)
	}

	return u.publicURL + "/" + key, nil
}
