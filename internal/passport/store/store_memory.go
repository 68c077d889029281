// Package store persists passports.
//
// Execute holds the passport's lock (a sharded mutex in memory, a row lock in
// PostgreSQL) across validate and mutate so each check-then-write is atomic
// per passport. Indices are maintained by the store.
package store

import (
	"context"
	"slices"
	"sync"

	"provenant/internal/passport/models"
	id "provenant/pkg/domain"
	"provenant/pkg/platform/sentinel"
)

const numShards = 64

// InMemoryStore keeps passports in process memory.
type InMemoryStore struct {
	shards [numShards]sync.Mutex

	mu        sync.RWMutex
	passports map[id.PassportID]*models.Passport
	byKey     map[string]id.PassportID
	byOwner   map[id.Identity][]id.PassportID
	byLab     map[id.Identity][]id.PassportID
	byGrade   map[string][]id.PassportID
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		passports: make(map[id.PassportID]*models.Passport),
		byKey:     make(map[string]id.PassportID),
		byOwner:   make(map[id.Identity][]id.PassportID),
		byLab:     make(map[id.Identity][]id.PassportID),
		byGrade:   make(map[string][]id.PassportID),
	}
}

func (s *InMemoryStore) lockFor(passportID id.PassportID) *sync.Mutex {
	return &s.shards[uint64(passportID)%numShards]
}

// Create stores a new passport. Returns sentinel.ErrAlreadyUsed if the id or
// package key is taken.
func (s *InMemoryStore) Create(_ context.Context, p *models.Passport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.passports[p.ID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	if _, exists := s.byKey[p.PackageKey]; exists {
		return sentinel.ErrAlreadyUsed
	}
	stored := p.Clone()
	s.passports[p.ID] = stored
	s.byKey[stored.PackageKey] = stored.ID
	s.byOwner[stored.Owner] = append(s.byOwner[stored.Owner], stored.ID)
	if !stored.LabIdentity.IsNil() {
		s.byLab[stored.LabIdentity] = append(s.byLab[stored.LabIdentity], stored.ID)
	}
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, passportID id.PassportID) (*models.Passport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.passports[passportID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return p.Clone(), nil
}

// Execute runs validate then mutate on a working copy under the passport's
// lock and commits the copy only if validate succeeded. A nil mutate makes
// Execute a guarded read that still serializes with writers.
func (s *InMemoryStore) Execute(ctx context.Context, passportID id.PassportID, validate func(*models.Passport) error, mutate func(*models.Passport)) (*models.Passport, error) {
	lock := s.lockFor(passportID)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	current, ok := s.passports[passportID]
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	working := current.Clone()
	if err := validate(working); err != nil {
		return nil, err
	}
	if mutate == nil {
		return working, nil
	}
	mutate(working)

	s.mu.Lock()
	s.passports[passportID] = working
	s.reindex(current, working)
	s.mu.Unlock()

	return working.Clone(), nil
}

// reindex moves the id between index sets when owner or grade changed.
// Caller holds s.mu.
func (s *InMemoryStore) reindex(before, after *models.Passport) {
	if before.Owner != after.Owner {
		s.byOwner[before.Owner] = remove(s.byOwner[before.Owner], after.ID)
		if len(s.byOwner[before.Owner]) == 0 {
			delete(s.byOwner, before.Owner)
		}
		s.byOwner[after.Owner] = append(s.byOwner[after.Owner], after.ID)
	}
	if !before.IsFinalized && after.IsFinalized {
		s.byGrade[after.FinalGrade] = append(s.byGrade[after.FinalGrade], after.ID)
	}
}

func remove(ids []id.PassportID, target id.PassportID) []id.PassportID {
	return slices.DeleteFunc(slices.Clone(ids), func(v id.PassportID) bool { return v == target })
}

func (s *InMemoryStore) ListByOwner(_ context.Context, owner id.Identity) ([]id.PassportID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.byOwner[owner]), nil
}

func (s *InMemoryStore) ListByLab(_ context.Context, lab id.Identity) ([]id.PassportID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.byLab[lab]), nil
}

func (s *InMemoryStore) ListByGrade(_ context.Context, grade string) ([]id.PassportID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.byGrade[grade]), nil
}
