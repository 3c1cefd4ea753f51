package storage

import (
	"context"
	"sync"

	"vidmint/internal/services"
)

// Memory is an in-process content addresser for offline runs and tests.
type Memory struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	uploads int
}

// NewMemory returns an empty in-memory addresser.
func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

// Upload stores a copy of data under its local CID.
func (m *Memory) Upload(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", services.Wrap(services.ErrStorage, stepName, "upload", "", err)
	}
	id, err := LocalCID(data)
	if err != nil {
		return "", services.Wrap(services.ErrStorage, stepName, "upload", "", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[id] = append([]byte(nil), data...)
	m.uploads++
	return id, nil
}

// Get returns the stored blob for id.
func (m *Memory) Get(id string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[id]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}

// Uploads reports how many Upload calls succeeded.
func (m *Memory) Uploads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.uploads
}
