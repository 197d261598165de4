// AngelaMos | 2026
// storage.go

package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"

	"github.com/diplomate/backend/internal/config"
)

// Uploader stores a blob and returns its public URL. Paths are
// caller-chosen; the bucket is assumed public-read for proof images.
type Uploader interface {
	Upload(
		ctx context.Context,
		path string,
		r io.Reader,
		contentType string,
	) (string, error)
	Delete(ctx context.Context, path string) error
}

type ossUploader struct {
	bucket        *oss.Bucket
	publicBaseURL string
}

func NewOSSUploader(cfg config.StorageConfig) (Uploader, error) {
	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("create oss client: %w", err)
	}

	bucket, err := client.Bucket(cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("open oss bucket %q: %w", cfg.Bucket, err)
	}

	baseURL := cfg.PublicBaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.%s", cfg.Bucket, cfg.Endpoint)
	}

	return &ossUploader{
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

func (u *ossUploader) Upload(
	ctx context.Context,
	path string,
	r io.Reader,
	contentType string,
) (string, error) {
	opts := []oss.Option{
		oss.WithContext(ctx),
		oss.ContentType(contentType),
	}

	if err := u.bucket.PutObject(path, r, opts...); err != nil {
		return "", fmt.Errorf("put object %q: %w", path, err)
	}

	return u.publicBaseURL + "/" + strings.TrimLeft(path, "/"), nil
}

func (u *ossUploader) Delete(ctx context.Context, path string) error {
	opts := []oss.Option{oss.WithContext(ctx)}

	if err := u.bucket.DeleteObject(path, opts...); err != nil {
		return fmt.Errorf("delete object %q: %w", path, err)
	}

	return nil
}
