package storage

import (
	"context"
	"errors"
	"strings"
	"sync"

	catalogapp "github.com/ecommerce/backend/internal/application/catalog"
)

var _ catalogapp.ObjectStorage = (*MemoryObjectStorage)(nil)

// MemoryObjectStorage keeps objects in process memory.
// Used when S3 storage is disabled (development) and in tests.
type MemoryObjectStorage struct {
	baseURL string
	mu      sync.RWMutex
	objects map[string]memoryObject
}

type memoryObject struct {
	data        []byte
	contentType string
}

// NewMemoryObjectStorage creates an empty store whose URLs start with baseURL
func NewMemoryObjectStorage(baseURL string) *MemoryObjectStorage {
	if baseURL == "" {
		baseURL = "http://localhost:8080/static"
	}
	return &MemoryObjectStorage{
		baseURL: strings.TrimRight(baseURL, "/"),
		objects: make(map[string]memoryObject),
	}
}

// Upload stores a copy of data and returns its URL
func (s *MemoryObjectStorage) Upload(_ context.Context, storageKey string, data []byte, contentType string) (string, error) {
	if storageKey == "" {
		return "", errors.New("storage key is required")
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	s.mu.Lock()
	s.objects[storageKey] = memoryObject{data: buf, contentType: contentType}
	s.mu.Unlock()

	return s.baseURL + "/" + storageKey, nil
}

// DeleteObject removes an object; missing keys are ignored
func (s *MemoryObjectStorage) DeleteObject(_ context.Context, storageKey string) error {
	if storageKey == "" {
		return errors.New("storage key is required")
	}
	s.mu.Lock()
	delete(s.objects, storageKey)
	s.mu.Unlock()
	return nil
}

// KeyFromURL extracts the storage key from a URL produced by Upload
func (s *MemoryObjectStorage) KeyFromURL(publicURL string) string {
	prefix := s.baseURL + "/"
	if !strings.HasPrefix(publicURL, prefix) {
		return ""
	}
	return strings.TrimPrefix(publicURL, prefix)
}

// Get returns the stored bytes and content type
func (s *MemoryObjectStorage) Get(storageKey string) ([]byte, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[storageKey]
	return obj.data, obj.contentType, ok
}
