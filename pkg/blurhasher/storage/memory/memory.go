package memory

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/tendant/simple-blurhash/pkg/blurhasher/storage"
)

// Backend is an in-memory implementation of storage.Store
type Backend struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// New creates a new in-memory storage backend
func New() *Backend {
	return &Backend{
		objects: make(map[string][]byte),
	}
}

// Put stores content in memory
func (b *Backend) Put(ctx context.Context, objectKey string, reader io.Reader) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[objectKey] = data
	return nil
}

// Open returns a reader over a copy-free view of the stored bytes
func (b *Backend) Open(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[objectKey]
	if !exists {
		return nil, storage.ErrObjectNotFound
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}
