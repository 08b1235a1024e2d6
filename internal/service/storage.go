package service

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/bookgrid/account-service/internal/config"
	"github.com/bookgrid/account-service/pkg/logger"
)

const PhotosBucket = "user-photos"

// StorageService persists user photos in MinIO. It is an opaque collaborator:
// callers hand over a payload and an owner and get back an object path.
type StorageService struct {
	client *minio.Client
}

func NewStorageService(cfg *config.Config) (*StorageService, error) {
	endpoint := fmt.Sprintf("%s:%s", cfg.MinioHost, cfg.MinioPort)

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioUser, cfg.MinioPass, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx := context.Background()
	if err := initializeBucket(ctx, client, PhotosBucket); err != nil {
		return nil, fmt.Errorf("failed to initialize bucket %s: %w", PhotosBucket, err)
	}

	logger.Info("MinIO client initialized: " + endpoint)

	return &StorageService{client: client}, nil
}

func initializeBucket(ctx context.Context, client *minio.Client, bucketName string) error {
	exists, err := client.BucketExists(ctx, bucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		if err := client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

// SavePhoto stores the payload under users/<owner>/<unix-millis>.<ext> and
// returns that object path.
func (s *StorageService) SavePhoto(ctx context.Context, ownerID uuid.UUID, filename string, reader io.Reader, size int64, contentType string) (string, error) {
	objectName := photoObjectName(ownerID, filename, time.Now())

	_, err := s.client.PutObject(ctx, PhotosBucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to save photo: %w", err)
	}

	return objectName, nil
}

func (s *StorageService) GetPhoto(ctx context.Context, objectName string) (*minio.Object, error) {
	return s.client.GetObject(ctx, PhotosBucket, objectName, minio.GetObjectOptions{})
}

func (s *StorageService) DeletePhoto(ctx context.Context, objectName string) error {
	return s.client.RemoveObject(ctx, PhotosBucket, objectName, minio.RemoveObjectOptions{})
}

func (s *StorageService) PresignedPhotoURL(ctx context.Context, objectName string, expiry time.Duration) (*url.URL, error) {
	return s.client.PresignedGetObject(ctx, PhotosBucket, objectName, expiry, nil)
}

func photoObjectName(ownerID uuid.UUID, filename string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("users/%s/%d%s", ownerID, now.UnixMilli(), ext)
}
