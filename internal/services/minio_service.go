package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
)

// MinioService wraps the object store used for export archives.
type MinioService interface {
	EnsureBucketExists(ctx context.Context, bucket string) error
	UploadObject(ctx context.Context, bucket, objectName string, data []byte, contentType string) error
	GetPresignedURL(ctx context.Context, bucket, objectName string, expiry time.Duration) (string, error)
	DeleteObject(ctx context.Context, bucket, objectName string) error
}

type minioService struct {
	client *minio.Client
}

func NewMinioService(client *minio.Client) MinioService {
	return &minioService{client: client}
}

func (s *minioService) EnsureBucketExists(ctx context.Context, bucket string) error {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", bucket, err)
	}
	return nil
}

func (s *minioService) UploadObject(ctx context.Context, bucket, objectName string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, bucket, objectName, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("upload %s/%s: %w", bucket, objectName, err)
	}
	return nil
}

func (s *minioService) GetPresignedURL(ctx context.Context, bucket, objectName string, expiry time.Duration) (string, error) {
	url, err := s.client.PresignedGetObject(ctx, bucket, objectName, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("presign %s/%s: %w", bucket, objectName, err)
	}
	return url.String(), nil
}

func (s *minioService) DeleteObject(ctx context.Context, bucket, objectName string) error {
	if err := s.client.RemoveObject(ctx, bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete %s/%s: %w", bucket, objectName, err)
	}
	return nil
}
