package storage

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"go-album-center/internal/config"
)

const s3Prefix = "media"

// S3Storage implements Blob for AWS S3 and S3-compatible endpoints
type S3Storage struct {
	client *s3.Client
	bucket string
}

// NewS3Storage creates a new S3 storage instance
func NewS3Storage(cfg config.S3Config) (*S3Storage, error) {
	awsCfg := aws.Config{
		Region: cfg.Region,
		Credentials: credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		),
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})

	return &S3Storage{client: client, bucket: cfg.BucketName}, nil
}

func (s *S3Storage) Provider() StorageProvider { return S3 }

func (s *S3Storage) Write(ctx context.Context, id uint, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Body:   bytes.NewReader(data),
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(s3Prefix, id)),
	})
	if err != nil {
		return storageError("write", id, err)
	}
	return nil
}

func (s *S3Storage) Read(ctx context.Context, id uint) ([]byte, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(s3Prefix, id)),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return nil, ErrBlobNotFound
		}
		return nil, storageError("read", id, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, storageError("read", id, err)
	}
	return data, nil
}

// Delete succeeds for missing keys, as S3 does.
func (s *S3Storage) Delete(ctx context.Context, id uint) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(s3Prefix, id)),
	})
	if err != nil {
		return storageError("delete", id, err)
	}
	return nil
}
