package assets

import (
	"context"
	"io"
	"sync"
)

// Memory keeps assets in process. It backs local development and tests;
// URLs are served by the site under /assets/.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]Object
}

// Object is a stored blob.
type Object struct {
	Data        []byte
	ContentType string
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string]Object)}
}

// Put implements Store.
func (m *Memory) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	m.objects[key] = Object{Data: data, ContentType: contentType}
	m.mu.Unlock()
	return "/assets/" + key, nil
}

// Delete implements Store.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

// Get returns a stored object.
func (m *Memory) Get(key string) (Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	return obj, ok
}
