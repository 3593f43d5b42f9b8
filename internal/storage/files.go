package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// FileStore persists uploaded attachment content under a base directory.
// Stored names are generated, never taken from the upload, so a hostile
// filename cannot escape the directory.
type FileStore struct {
	baseDir string
}

// NewFileStore ensures the base directory exists.
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

// Store writes the content to disk and returns the relative stored path.
func (fs *FileStore) Store(fileName string, content io.Reader) (string, int64, error) {
	ext := filepath.Ext(fileName)
	stored := uuid.NewString() + strings.ToLower(ext)
	target := filepath.Join(fs.baseDir, stored)

	out, err := os.Create(target)
	if err != nil {
		return "", 0, fmt.Errorf("create attachment file: %w", err)
	}
	defer out.Close()

	size, err := io.Copy(out, content)
	if err != nil {
		os.Remove(target)
		return "", 0, fmt.Errorf("write attachment file: %w", err)
	}
	return stored, size, nil
}

// Open returns a reader for a previously stored path.
func (fs *FileStore) Open(storedPath string) (io.ReadCloser, error) {
	clean := filepath.Base(storedPath)
	return os.Open(filepath.Join(fs.baseDir, clean))
}
