package output

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrStorage covers write and existence-check failures in the
// persistence backend.
var ErrStorage = errors.New("storage error")

// Storage is the persistence collaborator. Callers serialize writes; no
// concurrent writers are assumed.
type Storage interface {
	Exists(path string) (bool, error)
	WriteBinary(path string, data []byte) (string, error)
}

// FSStorage writes to the local filesystem.
type FSStorage struct{}

func NewFSStorage() *FSStorage {
	return &FSStorage{}
}

func (s *FSStorage) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("%w: stat %s: %v", ErrStorage, path, err)
}

func (s *FSStorage) WriteBinary(path string, data []byte) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("%w: create directory for %s: %v", ErrStorage, path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("%w: write %s: %v", ErrStorage, path, err)
	}
	return path, nil
}
