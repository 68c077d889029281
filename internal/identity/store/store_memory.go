// Package store persists the package key to passport id mapping.
//
// Every implementation serializes allocation behind one point (a mutex, a
// Lua script or an advisory lock) so ids are issued sequentially from 1 and a
// key is mapped at most once.
package store

import (
	"context"
	"sync"

	id "provenant/pkg/domain"
	"provenant/pkg/platform/sentinel"
)

// InMemoryStore keeps the mapping in process memory.
type InMemoryStore struct {
	mu    sync.Mutex
	last  id.PassportID
	byKey map[string]id.PassportID
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{byKey: make(map[string]id.PassportID)}
}

// Allocate maps key to the next id. Returns sentinel.ErrAlreadyUsed if the key
// is already mapped.
func (s *InMemoryStore) Allocate(_ context.Context, key string) (id.PassportID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byKey[key]; exists {
		return id.NoPassport, sentinel.ErrAlreadyUsed
	}
	s.last++
	s.byKey[key] = s.last
	return s.last, nil
}

// Resolve returns the id mapped to key or sentinel.ErrNotFound.
func (s *InMemoryStore) Resolve(_ context.Context, key string) (id.PassportID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	passportID, ok := s.byKey[key]
	if !ok {
		return id.NoPassport, sentinel.ErrNotFound
	}
	return passportID, nil
}
