package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"

	"go-album-center/internal/config"
	"go-album-center/internal/utils"
)

const minioPrefix = "media"

// MinioStorage implements Blob on a MinIO bucket.
type MinioStorage struct {
	client *minio.Client
	bucket string
}

// NewMinioStorage connects and creates the bucket when it is missing.
func NewMinioStorage(ctx context.Context, cfg config.MinioConfig, log zerolog.Logger) (*MinioStorage, error) {
	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		if u.Scheme == "https" {
			useSSL = true
		}
	}

	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
		log.Info().Str("bucket", cfg.Bucket).Msg("bucket created")
	}

	log.Info().Str("endpoint", cfg.Endpoint).Str("bucket", cfg.Bucket).Msg("minio connected")
	return &MinioStorage{client: cli, bucket: cfg.Bucket}, nil
}

func (s *MinioStorage) Provider() StorageProvider { return Minio }

func (s *MinioStorage) Write(ctx context.Context, id uint, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, objectKey(minioPrefix, id),
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: utils.SniffMimeType(data)})
	if err != nil {
		return storageError("write", id, err)
	}
	return nil
}

func (s *MinioStorage) Read(ctx context.Context, id uint) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, objectKey(minioPrefix, id), minio.GetObjectOptions{})
	if err != nil {
		return nil, s.readError(id, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, s.readError(id, err)
	}
	return data, nil
}

func (s *MinioStorage) readError(id uint, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return ErrBlobNotFound
	}
	return storageError("read", id, err)
}

func (s *MinioStorage) Delete(ctx context.Context, id uint) error {
	err := s.client.RemoveObject(ctx, s.bucket, objectKey(minioPrefix, id), minio.RemoveObjectOptions{})
	if err != nil && minio.ToErrorResponse(err).Code != "NoSuchKey" {
		return storageError("delete", id, err)
	}
	return nil
}
