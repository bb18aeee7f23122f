package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/linxGnu/goseaweedfs"

	"go-album-center/internal/config"
)

// SeaweedFSStorage implements Blob on a SeaweedFS filer
type SeaweedFSStorage struct {
	client *goseaweedfs.Filer
	prefix string
}

// NewSeaweedFSStorage creates a new SeaweedFS storage instance
func NewSeaweedFSStorage(cfg config.SeaweedFSConfig) (*SeaweedFSStorage, error) {
	client, err := goseaweedfs.NewFiler(cfg.FilerURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create SeaweedFS client: %v", err)
	}
	return &SeaweedFSStorage{client: client, prefix: cfg.Prefix}, nil
}

func (s *SeaweedFSStorage) Provider() StorageProvider { return SeaweedFS }

// The filer API is synchronous; ctx is only checked before each call.
func (s *SeaweedFSStorage) Write(ctx context.Context, id uint, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.client.Upload(bytes.NewReader(data), int64(len(data)), objectKey(s.prefix, id), "default", "")
	if err != nil {
		return storageError("write", id, err)
	}
	return nil
}

func (s *SeaweedFSStorage) Read(ctx context.Context, id uint) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, status, err := s.client.Get(objectKey(s.prefix, id), url.Values{}, nil)
	if status == http.StatusNotFound {
		return nil, ErrBlobNotFound
	}
	if err != nil {
		return nil, storageError("read", id, err)
	}
	return data, nil
}

func (s *SeaweedFSStorage) Delete(ctx context.Context, id uint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.client.Delete(objectKey(s.prefix, id), url.Values{})
	if err == nil {
		return nil
	}
	if _, status, _ := s.client.Get(objectKey(s.prefix, id), url.Values{}, nil); status == http.StatusNotFound {
		return nil
	}
	return storageError("delete", id, err)
}
