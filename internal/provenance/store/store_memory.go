// Package store persists provenance records. Appends are never updated or
// removed; each passport's sequence keeps insertion order.
package store

import (
	"context"
	"slices"
	"sync"

	"provenant/internal/provenance/models"
	id "provenant/pkg/domain"
)

// InMemoryStore keeps provenance records in process memory.
type InMemoryStore struct {
	mu        sync.RWMutex
	seq       uint64
	materials map[id.PassportID][]models.MaterialBatch
	events    map[id.PassportID][]models.ProcessEvent
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		materials: make(map[id.PassportID][]models.MaterialBatch),
		events:    make(map[id.PassportID][]models.ProcessEvent),
	}
}

func (s *InMemoryStore) AppendMaterial(_ context.Context, batch models.MaterialBatch) (models.MaterialBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	batch.Seq = s.seq
	s.materials[batch.PassportID] = append(s.materials[batch.PassportID], batch)
	return batch, nil
}

func (s *InMemoryStore) AppendEvent(_ context.Context, event models.ProcessEvent) (models.ProcessEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	event.Seq = s.seq
	s.events[event.PassportID] = append(s.events[event.PassportID], event)
	return event, nil
}

func (s *InMemoryStore) ListMaterials(_ context.Context, passportID id.PassportID) ([]models.MaterialBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.materials[passportID]), nil
}

func (s *InMemoryStore) ListEvents(_ context.Context, passportID id.PassportID) ([]models.ProcessEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.events[passportID]), nil
}
