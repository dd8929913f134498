package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/docspace/backend/internal/config"
	"github.com/docspace/backend/pkg/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOClient implements BlobStore against a MinIO/S3-compatible endpoint.
// Every call is bounded by the configured operation timeout so a hanging
// store can never stall a request indefinitely.
type MinIOClient struct {
	client    *minio.Client
	bucket    string
	opTimeout time.Duration
}

func NewMinIOClient(cfg config.MinIOConfig) (*MinIOClient, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	timeout := cfg.OpTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &MinIOClient{
		client:    client,
		bucket:    cfg.Bucket,
		opTimeout: timeout,
	}, nil
}

func (m *MinIOClient) Put(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, m.opTimeout)
	defer cancel()

	_, err := m.client.PutObject(ctx, m.bucket, objectKey, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		logger.Error("blob_put_failed", err, map[string]interface{}{
			"object_key":   objectKey,
			"size":         size,
			"content_type": contentType,
			"bucket":       m.bucket,
		})
		return err
	}

	logger.Info("blob_put_success", map[string]interface{}{
		"object_key": objectKey,
		"size":       size,
		"bucket":     m.bucket,
	})
	return nil
}

func (m *MinIOClient) Delete(ctx context.Context, objectKey string) error {
	ctx, cancel := context.WithTimeout(ctx, m.opTimeout)
	defer cancel()

	err := m.client.RemoveObject(ctx, m.bucket, objectKey, minio.RemoveObjectOptions{})
	if err != nil {
		logger.Error("blob_delete_failed", err, map[string]interface{}{
			"object_key": objectKey,
			"bucket":     m.bucket,
		})
		return err
	}

	logger.Info("blob_delete_success", map[string]interface{}{
		"object_key": objectKey,
		"bucket":     m.bucket,
	})
	return nil
}

func (m *MinIOClient) PresignedGetURL(ctx context.Context, objectKey string, expiry time.Duration, downloadName string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.opTimeout)
	defer cancel()

	query := make(url.Values)
	if downloadName != "" {
		query.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", downloadName))
	}

	urlValue, err := m.client.PresignedGetObject(ctx, m.bucket, objectKey, expiry, query)
	if err != nil {
		logger.Error("blob_presign_failed", err, map[string]interface{}{
			"object_key": objectKey,
			"bucket":     m.bucket,
		})
		return "", err
	}
	return urlValue.String(), nil
}

func (m *MinIOClient) EnsureBucket(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, m.opTimeout)
	defer cancel()

	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed creating bucket %s: %w", m.bucket, err)
	}
	return nil
}
