package memory

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/medrec/clinic-api/internal/store"
)

type blobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func newBlobStore() *blobStore {
	return &blobStore{blobs: make(map[string][]byte)}
}

func (b *blobStore) Put(_ context.Context, id string, r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blobs[id] = data
	return int64(len(data)), nil
}

func (b *blobStore) Get(_ context.Context, id string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	data, ok := b.blobs[id]
	if !ok {
		return nil, store.ErrNoDocuments
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *blobStore) Delete(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.blobs[id]; !ok {
		return store.ErrNoDocuments
	}
	delete(b.blobs, id)
	return nil
}

func (b *blobStore) Size(_ context.Context, id string) (int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	data, ok := b.blobs[id]
	if !ok {
		return 0, store.ErrNoDocuments
	}
	return int64(len(data)), nil
}
