package aws

import (
	"context"
	"fmt"
	"io"
	"strings"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// NewS3Client creates a new S3 client from AWS config. Path-style addressing
// is forced when a custom endpoint is configured.
func NewS3Client(cfg sdkaws.Config) *s3.Client {
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if CustomEndpoint() != "" {
			o.UsePathStyle = true
		}
	})
}

// ObjectUploader is the subset of the upload manager used by UploadObject.
type ObjectUploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// NewUploader wraps an S3 client in a multipart-capable upload manager.
func NewUploader(client *s3.Client) *manager.Uploader {
	return manager.NewUploader(client)
}

// UploadObject streams body to bucket/key.
func UploadObject(ctx context.Context, uploader ObjectUploader, bucket, key, contentType string, body io.Reader) error {
	input := &s3.PutObjectInput{
		Bucket: sdkaws.String(bucket),
		Key:    sdkaws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = sdkaws.String(contentType)
	}
	if _, err := uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("failed to upload object %s: %w", key, err)
	}
	return nil
}

// PublicObjectURL builds the URL an uploaded object is served from.
func PublicObjectURL(cdnDomain, endpoint, bucket, key string) string {
	switch {
	case cdnDomain != "":
		return fmt.Sprintf("https://%s/%s", strings.TrimRight(cdnDomain, "/"), key)
	case endpoint != "":
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(endpoint, "/"), bucket, key)
	default:
		return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", bucket, key)
	}
}
