package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"go-album-center/internal/utils"
)

// LocalStorage keeps one file per media under a root directory.
type LocalStorage struct {
	root string
}

func NewLocal(root string) (*LocalStorage, error) {
	if root == "" {
		return nil, errors.New("local storage path is empty")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStorage{root: root}, nil
}

func (s *LocalStorage) Provider() StorageProvider { return Local }

func (s *LocalStorage) path(id uint) string {
	return filepath.Join(s.root, strconv.FormatUint(uint64(id), 10))
}

func (s *LocalStorage) Write(_ context.Context, id uint, data []byte) error {
	if _, err := utils.SaveFile(data, strconv.FormatUint(uint64(id), 10), s.root); err != nil {
		return storageError("write", id, err)
	}
	return nil
}

func (s *LocalStorage) Read(_ context.Context, id uint) ([]byte, error) {
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrBlobNotFound
	}
	if err != nil {
		return nil, storageError("read", id, err)
	}
	return data, nil
}

func (s *LocalStorage) Delete(_ context.Context, id uint) error {
	err := os.Remove(s.path(id))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return storageError("delete", id, err)
	}
	return nil
}
