// Package store persists validators.
package store

import (
	"context"
	"sort"
	"sync"

	"provenant/internal/validator/models"
	id "provenant/pkg/domain"
	"provenant/pkg/platform/sentinel"
)

// InMemoryStore keeps validators in process memory.
type InMemoryStore struct {
	mu         sync.RWMutex
	validators map[id.Identity]*models.Validator
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{validators: make(map[id.Identity]*models.Validator)}
}

// Create returns sentinel.ErrAlreadyUsed when the identity is registered.
func (s *InMemoryStore) Create(_ context.Context, v *models.Validator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.validators[v.Identity]; ok {
		return sentinel.ErrAlreadyUsed
	}
	stored := *v
	s.validators[v.Identity] = &stored
	return nil
}

func (s *InMemoryStore) FindByIdentity(_ context.Context, identity id.Identity) (*models.Validator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.validators[identity]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *v
	return &out, nil
}

// IncrementValidationCount bumps the counter and returns the new value.
func (s *InMemoryStore) IncrementValidationCount(_ context.Context, identity id.Identity) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.validators[identity]
	if !ok {
		return 0, sentinel.ErrNotFound
	}
	v.ValidationCount++
	return v.ValidationCount, nil
}

// List returns validators ordered by registration time.
func (s *InMemoryStore) List(_ context.Context) ([]models.Validator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Validator, 0, len(s.validators))
	for _, v := range s.validators {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RegisteredAt.Equal(out[j].RegisteredAt) {
			return out[i].Identity < out[j].Identity
		}
		return out[i].RegisteredAt.Before(out[j].RegisteredAt)
	})
	return out, nil
}
