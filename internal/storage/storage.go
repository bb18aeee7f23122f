// Package storage keeps media content bytes outside the database, keyed by
// media id.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"go-album-center/internal/apperr"
	"go-album-center/internal/config"
)

// StorageProvider represents the type of storage being used
type StorageProvider string

const (
	Local     StorageProvider = "local"
	S3        StorageProvider = "s3"
	SeaweedFS StorageProvider = "seaweedfs"
	Minio     StorageProvider = "minio"
)

// ErrBlobNotFound is returned by Read for ids without content. It also
// matches apperr.ErrNotFound.
var ErrBlobNotFound = fmt.Errorf("%w: blob", apperr.ErrNotFound)

// Blob stores media content. Delete of a missing blob succeeds.
type Blob interface {
	Write(ctx context.Context, id uint, data []byte) error
	Read(ctx context.Context, id uint) ([]byte, error)
	Delete(ctx context.Context, id uint) error
	Provider() StorageProvider
}

// New builds the configured provider. Remote providers sit behind a circuit
// breaker.
func New(ctx context.Context, cfg config.StorageConfig, log zerolog.Logger) (Blob, error) {
	var (
		blob Blob
		err  error
	)
	switch StorageProvider(cfg.Provider) {
	case Local, "":
		return NewLocal(cfg.Path)
	case S3:
		blob, err = NewS3Storage(cfg.S3)
	case SeaweedFS:
		blob, err = NewSeaweedFSStorage(cfg.SeaweedFS)
	case Minio:
		blob, err = NewMinioStorage(ctx, cfg.Minio, log)
	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage provider %s: %w", cfg.Provider, err)
	}
	return NewBreaker(blob, cfg.Breaker, log), nil
}

func objectKey(prefix string, id uint) string {
	key := strconv.FormatUint(uint64(id), 10)
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}

func storageError(op string, id uint, err error) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	return apperr.Storage(fmt.Sprintf("%s blob %d", op, id), err)
}
