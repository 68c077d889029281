// Package store persists validation records, lab test results and the
// authorized lab roster.
package store

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"provenant/internal/validation/models"
	id "provenant/pkg/domain"
	"provenant/pkg/platform/sentinel"
)

// InMemoryRecordStore keeps validation records in process memory.
type InMemoryRecordStore struct {
	mu      sync.RWMutex
	seq     uint64
	records map[id.PassportID][]models.ValidationRecord
}

func NewInMemoryRecords() *InMemoryRecordStore {
	return &InMemoryRecordStore{records: make(map[id.PassportID][]models.ValidationRecord)}
}

func (s *InMemoryRecordStore) Append(_ context.Context, r models.ValidationRecord) (models.ValidationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	r.Seq = s.seq
	r.Signature = slices.Clone(r.Signature)
	s.records[r.PassportID] = append(s.records[r.PassportID], r)
	return r, nil
}

func (s *InMemoryRecordStore) ListByPassport(_ context.Context, passportID id.PassportID) ([]models.ValidationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := slices.Clone(s.records[passportID])
	for i := range out {
		out[i].Signature = slices.Clone(out[i].Signature)
	}
	return out, nil
}

// InMemoryTestResultStore keeps test results in process memory.
type InMemoryTestResultStore struct {
	mu         sync.RWMutex
	results    map[id.TestResultID]*models.TestResult
	byPassport map[id.PassportID][]id.TestResultID
}

func NewInMemoryTestResults() *InMemoryTestResultStore {
	return &InMemoryTestResultStore{
		results:    make(map[id.TestResultID]*models.TestResult),
		byPassport: make(map[id.PassportID][]id.TestResultID),
	}
}

func (s *InMemoryTestResultStore) Create(_ context.Context, r *models.TestResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.results[r.ID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.results[r.ID] = r.Clone()
	s.byPassport[r.PassportID] = append(s.byPassport[r.PassportID], r.ID)
	return nil
}

func (s *InMemoryTestResultStore) FindByID(_ context.Context, testID id.TestResultID) (*models.TestResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[testID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return r.Clone(), nil
}

// Execute runs validate and mutate on a copy under the store lock and keeps
// the copy only when validate succeeds.
func (s *InMemoryTestResultStore) Execute(ctx context.Context, testID id.TestResultID, validate func(*models.TestResult) error, mutate func(*models.TestResult)) (*models.TestResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	current, ok := s.results[testID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	working := current.Clone()
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)
	s.results[testID] = working
	return working.Clone(), nil
}

func (s *InMemoryTestResultStore) ListByPassport(_ context.Context, passportID id.PassportID) ([]models.TestResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byPassport[passportID]
	out := make([]models.TestResult, 0, len(ids))
	for _, testID := range ids {
		out = append(out, *s.results[testID].Clone())
	}
	return out, nil
}

// InMemoryLabStore keeps the authorized lab roster in process memory.
type InMemoryLabStore struct {
	mu   sync.RWMutex
	labs map[id.Identity]models.Lab
}

func NewInMemoryLabs() *InMemoryLabStore {
	return &InMemoryLabStore{labs: make(map[id.Identity]models.Lab)}
}

// Authorize returns sentinel.ErrAlreadyUsed when the lab is already authorized.
func (s *InMemoryLabStore) Authorize(_ context.Context, lab models.Lab) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.labs[lab.Identity]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.labs[lab.Identity] = lab
	return nil
}

// Revoke returns sentinel.ErrNotFound when the lab is not authorized.
func (s *InMemoryLabStore) Revoke(_ context.Context, identity id.Identity, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.labs[identity]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.labs, identity)
	return nil
}

func (s *InMemoryLabStore) IsAuthorized(_ context.Context, identity id.Identity) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.labs[identity]
	return ok, nil
}

func (s *InMemoryLabStore) List(_ context.Context) ([]models.Lab, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Lab, 0, len(s.labs))
	for _, lab := range s.labs {
		out = append(out, lab)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AuthorizedAt.Equal(out[j].AuthorizedAt) {
			return out[i].Identity < out[j].Identity
		}
		return out[i].AuthorizedAt.Before(out[j].AuthorizedAt)
	})
	return out, nil
}
