package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore removes image files stored under a local uploads directory.
// This is the legacy storage path from before covers moved to the object
// store; only cleanup is still reachable from production code.
type FileStore struct {
	basePath string
}

// NewFileStore creates the base directory if missing.
func NewFileStore(basePath string) (*FileStore, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, fmt.Errorf("storage base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FileStore{basePath: basePath}, nil
}

// Remove deletes a stored file by its relative path. Missing files are not
// an error; paths escaping the base directory are rejected.
func (f *FileStore) Remove(relPath string) error {
	target, err := f.resolve(relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

func (f *FileStore) resolve(relPath string) (string, error) {
	relPath = strings.TrimSpace(relPath)
	if relPath == "" {
		return "", fmt.Errorf("file path is required")
	}
	target := filepath.Join(f.basePath, filepath.FromSlash(relPath))
	base, err := filepath.Abs(f.basePath)
	if err != nil {
		return "", fmt.Errorf("resolve base path: %w", err)
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("resolve file path: %w", err)
	}
	if abs != base && !strings.HasPrefix(abs, base+string(os.PathSeparator)) {
		return "", fmt.Errorf("file path escapes storage dir")
	}
	return abs, nil
}
