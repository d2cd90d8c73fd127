package store

import (
	"fmt"
	"io/fs"
	"sync"
)

// inMemory implements Backend on a byte slice held in process memory.
type inMemory struct {
	mu      sync.RWMutex
	writeMu sync.Mutex
	data    []byte
	stored  bool
}

// NewInMemoryBackend creates an empty Backend that never touches the disk.
func NewInMemoryBackend() Backend {
	return &inMemory{}
}

// Read returns a copy of the stored document.
func (m *inMemory) Read() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.stored {
		return nil, fmt.Errorf("in-memory backend: %w", fs.ErrNotExist)
	}
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out, nil
}

// Replace swaps the stored document.
func (m *inMemory) Replace(data []byte) error {
	buf := make([]byte, len(data))
	copy(buf, data)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = buf
	m.stored = true
	return nil
}

// Lock holds the writer mutex until the returned function is called.
func (m *inMemory) Lock() (func() error, error) {
	m.writeMu.Lock()
	return func() error {
		m.writeMu.Unlock()
		return nil
	}, nil
}

func (m *inMemory) Location() string {
	return "memory"
}
