package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	audit "provenant/pkg/platform/audit"
)

type entityKey struct {
	kind audit.EntityKind
	id   string
}

type InMemoryStore struct {
	mu     sync.RWMutex
	events map[entityKey][]audit.Event
	all    []audit.Event

	published map[uuid.UUID]struct{}
	cursor    int
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		events:    make(map[entityKey][]audit.Event),
		published: make(map[uuid.UUID]struct{}),
	}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[entityKey][]audit.Event)
	s.all = nil
	s.published = make(map[uuid.UUID]struct{})
	s.cursor = 0
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := entityKey{kind: event.EntityKind, id: event.EntityID}
	s.events[key] = append(s.events[key], event)
	s.all = append(s.all, event)
	return nil
}

func (s *InMemoryStore) ListByEntity(_ context.Context, kind audit.EntityKind, entityID string) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events[entityKey{kind: kind, id: entityID}]...), nil
}

// ListRecent returns the most recent events across all entities, oldest first.
func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := len(s.all) - limit
	if start < 0 {
		start = 0
	}
	return append([]audit.Event{}, s.all[start:]...), nil
}

// FetchUnpublished returns up to limit events not yet marked published, in
// append order.
func (s *InMemoryStore) FetchUnpublished(_ context.Context, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]audit.Event, 0, limit)
	for _, e := range s.all[s.cursor:] {
		if len(out) == limit {
			break
		}
		if _, done := s.published[e.ID]; done {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// MarkPublished records that the events were delivered downstream.
func (s *InMemoryStore) MarkPublished(_ context.Context, ids []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, eventID := range ids {
		s.published[eventID] = struct{}{}
	}
	for s.cursor < len(s.all) {
		if _, done := s.published[s.all[s.cursor].ID]; !done {
			break
		}
		s.cursor++
	}
	return nil
}
