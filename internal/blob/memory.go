package blob

import (
	"context"
	"slices"
	"sync"
)

type memoryEntry struct {
	info Info
	data []byte
}

// MemoryStore keeps packages in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	maxBytes int64
	objs     map[string]memoryEntry
}

// NewMemory returns an in-memory store. maxBytes <= 0 disables the size limit.
func NewMemory(maxBytes int64) *MemoryStore {
	return &MemoryStore{maxBytes: maxBytes, objs: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Put(_ context.Context, data []byte, contentType string) (Info, error) {
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return Info{}, ErrTooLarge
	}
	locator := Locator(data)

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.objs[locator]; ok {
		return existing.info, nil
	}
	info := Info{Locator: locator, Size: int64(len(data)), ContentType: contentType}
	s.objs[locator] = memoryEntry{info: info, data: slices.Clone(data)}
	return info, nil
}

func (s *MemoryStore) Get(_ context.Context, locator string) (Info, []byte, error) {
	if _, err := ParseLocator(locator); err != nil {
		return Info{}, nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.objs[locator]
	if !ok {
		return Info{}, nil, ErrNotFound
	}
	return e.info, slices.Clone(e.data), nil
}

func (s *MemoryStore) Exists(_ context.Context, locator string) (bool, error) {
	if _, err := ParseLocator(locator); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objs[locator]
	return ok, nil
}
