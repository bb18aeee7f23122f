package utils

import (
	"os"
	"path/filepath"
)

// SaveFile writes file under storagePath, creating directories as needed,
// and returns the full path.
func SaveFile(file []byte, filename string, storagePath string) (string, error) {
	filePath := filepath.Join(storagePath, filename)
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return "", err
	}

	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, file, 0644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, filePath); err != nil {
		os.Remove(tmp)
		return "", err
	}
	return filePath, nil
}
