package storage_test

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gigconnectportfolio/gigconnect-order-service/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjectUploader struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeObjectUploader) Upload(_ context.Context, in *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	return &manager.UploadOutput{}, nil
}

func TestS3Uploader_DataURL(t *testing.T) {
	fake := &fakeObjectUploader{}
	u := storage.NewS3Uploader(fake, storage.S3Config{Bucket: "gig-deliveries", Prefix: "deliveries", CDNDomain: "cdn.example.com"})

	file := "data:application/zip;base64," + base64.StdEncoding.EncodeToString([]byte("PK\x03\x04work"))
	res, err := u.Upload(context.Background(), file, "abc123.zip")
	require.NoError(t, err)

	assert.Equal(t, "deliveries/abc123.zip", res.PublicID)
	assert.Equal(t, "https://cdn.example.com/deliveries/abc123.zip", res.SecureURL)
	assert.Equal(t, "gig-deliveries", *fake.input.Bucket)
	assert.Equal(t, "application/zip", *fake.input.ContentType)
	assert.Equal(t, []byte("PK\x03\x04work"), fake.body)
}

func TestS3Uploader_RandomNameWhenEmpty(t *testing.T) {
	fake := &fakeObjectUploader{}
	u := storage.NewS3Uploader(fake, storage.S3Config{Bucket: "b", Prefix: "deliveries"})

	res, err := u.Upload(context.Background(), base64.StdEncoding.EncodeToString([]byte("hello world")), "")
	require.NoError(t, err)
	assert.Len(t, res.PublicID, len("deliveries/")+32)
	assert.Equal(t, "https://b.s3.amazonaws.com/"+res.PublicID, res.SecureURL)
}

func TestS3Uploader_InvalidPayload(t *testing.T) {
	u := storage.NewS3Uploader(&fakeObjectUploader{}, storage.S3Config{Bucket: "b"})

	_, err := u.Upload(context.Background(), "%%% not base64 %%%", "")
	assert.ErrorIs(t, err, storage.ErrInvalidFile)
}

func TestS3Uploader_UploadError(t *testing.T) {
	u := storage.NewS3Uploader(&fakeObjectUploader{err: errors.New("access denied")}, storage.S3Config{Bucket: "b"})

	_, err := u.Upload(context.Background(), base64.StdEncoding.EncodeToString([]byte("x")), "f.txt")
	assert.Error(t, err)
}

func TestDecodeFile_DetectsContentType(t *testing.T) {
	data, ct, err := storage.DecodeFile(base64.StdEncoding.EncodeToString([]byte("plain text body")))
	require.NoError(t, err)
	assert.Equal(t, "plain text body", string(data))
	assert.Equal(t, "text/plain; charset=utf-8", ct)
}
