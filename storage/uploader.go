package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	aws_pkg "github.com/gigconnectportfolio/gigconnect-order-service/pkg/aws"
	"github.com/google/uuid"
)

var ErrInvalidFile = errors.New("file is not valid base64 data")

// UploadResult identifies a stored delivery artifact.
type UploadResult struct {
	PublicID  string `json:"publicId"`
	SecureURL string `json:"secureUrl"`
}

// Uploader stores delivery files. name is optional; a random key is used
// when it is empty.
type Uploader interface {
	Upload(ctx context.Context, file string, name string) (*UploadResult, error)
}

type S3Config struct {
	Bucket    string
	Prefix    string
	CDNDomain string
	Endpoint  string
}

type S3Uploader struct {
	uploader aws_pkg.ObjectUploader
	cfg      S3Config
}

func NewS3Uploader(uploader aws_pkg.ObjectUploader, cfg S3Config) *S3Uploader {
	return &S3Uploader{uploader: uploader, cfg: cfg}
}

func (u *S3Uploader) Upload(ctx context.Context, file string, name string) (*UploadResult, error) {
	if u.cfg.Bucket == "" {
		return nil, errors.New("delivery bucket not configured")
	}

	data, contentType, err := DecodeFile(file)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = RandomName()
	}
	key := path.Join(u.cfg.Prefix, path.Base(name))

	if err := aws_pkg.UploadObject(ctx, u.uploader, u.cfg.Bucket, key, contentType, bytes.NewReader(data)); err != nil {
		return nil, err
	}

	return &UploadResult{
		PublicID:  key,
		SecureURL: aws_pkg.PublicObjectURL(u.cfg.CDNDomain, u.cfg.Endpoint, u.cfg.Bucket, key),
	}, nil
}

// DecodeFile accepts a data URL ("data:<mime>;base64,<payload>") or a bare
// base64 payload and returns the bytes with their content type.
func DecodeFile(file string) ([]byte, string, error) {
	payload := strings.TrimSpace(file)
	contentType := ""

	if strings.HasPrefix(payload, "data:") {
		header, body, ok := strings.Cut(payload, ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return nil, "", ErrInvalidFile
		}
		contentType = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		payload = body
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		if data, err = base64.RawStdEncoding.DecodeString(payload); err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrInvalidFile, err)
		}
	}
	if len(data) == 0 {
		return nil, "", ErrInvalidFile
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, nil
}

// RandomName returns a 32 character hex object name.
func RandomName() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
