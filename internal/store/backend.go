package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/renameio/v2"
)

// Backend is the durable byte-stream holding the encoded collection.
type Backend interface {
	// Read returns the whole stored document.
	// Returns an error matching fs.ErrNotExist if nothing was stored yet.
	Read() ([]byte, error)

	// Replace stores data so that readers observe either the previous or the new
	// content, never a partial write.
	Replace(data []byte) error

	// Lock acquires the exclusive writer lock and returns its release function.
	Lock() (func() error, error)

	// Location names the storage for logs and errors.
	Location() string
}

// FileBackend stores the collection in a single file, replaced atomically
// through a temporary file and rename. Writers from other processes are
// excluded through an advisory lock on "<path>.lock".
type FileBackend struct {
	path string
	perm os.FileMode
	lock *flock.Flock
}

// NewFileBackend creates a FileBackend for path, creating its directory if needed.
func NewFileBackend(path string) (*FileBackend, error) {
	if path == "" {
		return nil, fmt.Errorf("file backend: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("file backend: create directory: %w", err)
	}
	return &FileBackend{
		path: path,
		perm: 0o644,
		lock: flock.New(path + ".lock"),
	}, nil
}

func (b *FileBackend) Read() ([]byte, error) {
	return os.ReadFile(b.path)
}

func (b *FileBackend) Replace(data []byte) error {
	return renameio.WriteFile(b.path, data, b.perm)
}

func (b *FileBackend) Lock() (func() error, error) {
	if err := b.lock.Lock(); err != nil {
		return nil, fmt.Errorf("acquire %s: %w", b.lock.Path(), err)
	}
	return b.lock.Unlock, nil
}

func (b *FileBackend) Location() string {
	return b.path
}
