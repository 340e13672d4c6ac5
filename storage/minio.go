package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"melodygram/config"
	"melodygram/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var (
	minioClient *minio.Client
	minioCfg    *config.Config
)

// InitMinio initializes the MinIO client and ensures the bucket exists.
func InitMinio(cfg *config.Config) error {
	logger.Info("Connecting to MinIO",
		logger.String("endpoint", cfg.MinioEndpoint),
		logger.String("bucket", cfg.MinioBucket))

	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		err = client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{
			Region: cfg.MinioRegion,
		})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		logger.Info("Created bucket", logger.String("bucket", cfg.MinioBucket))
	}

	minioClient = client
	minioCfg = cfg
	logger.Info("MinIO client initialized")
	return nil
}

// GetMinioClient returns the MinIO client instance.
func GetMinioClient() *minio.Client {
	return minioClient
}

// UploadClip uploads a clipped audio file and returns its public URL.
// The avatar API fetches the clip by URL, so the object must land somewhere
// publicly reachable; MinioPublicURL points at the bucket's public base.
func UploadClip(ctx context.Context, localPath, objectName string) (string, error) {
	if minioClient == nil {
		return "", fmt.Errorf("MinIO client not initialized")
	}

	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open clip file: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat clip file: %w", err)
	}

	contentType := "audio/mpeg"
	if strings.EqualFold(filepath.Ext(localPath), ".wav") {
		contentType = "audio/wav"
	}

	_, err = minioClient.PutObject(ctx, minioCfg.MinioBucket, objectName, f, stat.Size(), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload clip: %w", err)
	}

	publicURL := PublicURL(objectName)
	logger.Info("Uploaded clip",
		logger.String("object", objectName),
		logger.Int64("size", stat.Size()),
		logger.String("url", publicURL))
	return publicURL, nil
}

// PublicURL builds the public URL for an object in the configured bucket.
func PublicURL(objectName string) string {
	return strings.TrimSuffix(minioCfg.MinioPublicURL, "/") + "/" + strings.TrimPrefix(objectName, "/")
}
