package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"provenant/internal/provenance/models"
	id "provenant/pkg/domain"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
}

func (s *InMemoryStoreSuite) TestUnknownPassportListsAreEmpty() {
	materials, err := s.store.ListMaterials(context.Background(), 1)
	s.Require().NoError(err)
	s.Empty(materials)

	events, err := s.store.ListEvents(context.Background(), 1)
	s.Require().NoError(err)
	s.Empty(events)
}

func (s *InMemoryStoreSuite) TestListReturnsCopy() {
	ctx := context.Background()
	_, err := s.store.AppendMaterial(ctx, models.MaterialBatch{PassportID: 1, BatchNumber: "B-1"})
	s.Require().NoError(err)

	listed, err := s.store.ListMaterials(ctx, 1)
	s.Require().NoError(err)
	listed[0].BatchNumber = "tampered"

	again, err := s.store.ListMaterials(ctx, 1)
	s.Require().NoError(err)
	s.Equal("B-1", again[0].BatchNumber)
}

func (s *InMemoryStoreSuite) TestConcurrentAppendsKeepPerPassportOrder() {
	ctx := context.Background()
	const perPassport = 50

	var wg sync.WaitGroup
	for p := id.PassportID(1); p <= 4; p++ {
		wg.Add(1)
		go func(passportID id.PassportID) {
			defer wg.Done()
			for i := range perPassport {
				_, err := s.store.AppendEvent(ctx, models.ProcessEvent{
					PassportID: passportID,
					EventKind:  fmt.Sprintf("step-%03d", i),
				})
				s.NoError(err)
			}
		}(p)
	}
	wg.Wait()

	for p := id.PassportID(1); p <= 4; p++ {
		events, err := s.store.ListEvents(ctx, p)
		s.Require().NoError(err)
		s.Require().Len(events, perPassport)
		for i, e := range events {
			s.Equal(fmt.Sprintf("step-%03d", i), e.EventKind)
			if i > 0 {
				s.Greater(e.Seq, events[i-1].Seq)
			}
		}
	}
}
