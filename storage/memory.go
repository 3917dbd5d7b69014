package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/ruteri/contract-spec-publisher/interfaces"
)

type memoryKey struct {
	hash interfaces.ContentHash
	kind interfaces.ObjectKind
}

// MemoryBackend keeps objects in process memory. It backs memory:// URIs,
// used for dry runs and tests.
type MemoryBackend struct {
	name string

	mu      sync.RWMutex
	objects map[memoryKey][]byte
}

// NewMemoryBackend returns an empty backend.
func NewMemoryBackend(name string) *MemoryBackend {
	return &MemoryBackend{
		name:    name,
		objects: make(map[memoryKey][]byte),
	}
}

func (b *MemoryBackend) Fetch(ctx context.Context, hash interfaces.ContentHash, kind interfaces.ObjectKind) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	data, ok := b.objects[memoryKey{hash, kind}]
	if !ok {
		return nil, interfaces.ErrContentNotFound
	}
	return append([]byte(nil), data...), nil
}

func (b *MemoryBackend) Store(ctx context.Context, hash interfaces.ContentHash, kind interfaces.ObjectKind, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[memoryKey{hash, kind}] = append([]byte(nil), data...)
	return nil
}

func (b *MemoryBackend) Exists(ctx context.Context, hash interfaces.ContentHash, kind interfaces.ObjectKind) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.objects[memoryKey{hash, kind}]
	return ok, nil
}

// Len returns the number of stored objects.
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.objects)
}

func (b *MemoryBackend) Available(ctx context.Context) bool { return true }

func (b *MemoryBackend) Name() string { return fmt.Sprintf("memory-%s", b.name) }

func (b *MemoryBackend) LocationURI() string { return fmt.Sprintf("memory://%s", b.name) }
