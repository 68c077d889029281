package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	identityservice "provenant/internal/identity/service"
	identitystore "provenant/internal/identity/store"
	"provenant/internal/passport/metrics"
	"provenant/internal/passport/models"
	"provenant/internal/passport/store"
	id "provenant/pkg/domain"
	dErrors "provenant/pkg/domain-errors"
	audit "provenant/pkg/platform/audit"
	"provenant/pkg/platform/audit/mocks"
	"provenant/pkg/platform/audit/publisher"
	auditmemory "provenant/pkg/platform/audit/store/memory"
	"provenant/pkg/requestcontext"
)

const (
	alice = id.Identity("0xalice")
	bob   = id.Identity("0xbob")
	lab   = id.Identity("0xlab")
)

type stubGate struct {
	mu  sync.Mutex
	err error
}

func (g *stubGate) CheckFinalize(context.Context, id.PassportID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}

type PassportServiceSuite struct {
	suite.Suite
	ctx     context.Context
	now     time.Time
	store   *store.InMemoryStore
	ledger  *identityservice.Ledger
	events  *auditmemory.InMemoryStore
	gate    *stubGate
	metrics *metrics.Metrics
	service *Service
}

func TestPassportServiceSuite(t *testing.T) {
	suite.Run(t, new(PassportServiceSuite))
}

func (s *PassportServiceSuite) SetupTest() {
	s.now = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.store = store.NewInMemory()
	s.events = auditmemory.NewInMemoryStore()
	s.gate = &stubGate{}
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.ledger = identityservice.New(identitystore.NewInMemory())
	s.service = New(s.store, s.ledger,
		WithEmitter(publisher.NewPublisher(s.events)),
		WithFinalizeGate(s.gate),
		WithMetrics(s.metrics),
	)
}

func (s *PassportServiceSuite) create(key string) *models.Passport {
	p, err := s.service.Create(s.ctx, models.CreateRequest{
		PackageKey:  key,
		MaterialID:  "MIX-A",
		DataLocator: "locA",
	}, alice)
	s.Require().NoError(err)
	return p
}

func (s *PassportServiceSuite) actions(passportID id.PassportID) []audit.Action {
	events, err := s.events.ListByEntity(s.ctx, audit.EntityPassport, passportID.String())
	s.Require().NoError(err)
	out := make([]audit.Action, len(events))
	for i, e := range events {
		out[i] = e.Action
	}
	return out
}

func (s *PassportServiceSuite) requireCode(err error, code dErrors.Code) {
	s.T().Helper()
	s.Require().Error(err)
	s.Equal(code, dErrors.CodeOf(err), "error: %v", err)
}

func (s *PassportServiceSuite) TestCreate() {
	s.Run("initial state", func() {
		s.SetupTest()
		p, err := s.service.Create(s.ctx, models.CreateRequest{
			PackageKey:  "PROD-001",
			MaterialID:  "MIX-A",
			DataLocator: "locA",
			LabIdentity: lab,
		}, alice)
		s.Require().NoError(err)

		s.Equal(id.PassportID(1), p.ID)
		s.Equal(uint64(1), p.Version)
		s.True(p.IsActive)
		s.False(p.IsFinalized)
		s.Equal(alice, p.Owner)
		s.Equal(alice, p.Creator)
		s.Equal(lab, p.LabIdentity)
		s.Equal(s.now, p.CreatedAt)
		s.Empty(p.FinalGrade)
		s.Empty(p.CertificationHash)
		s.Equal([]audit.Action{audit.ActionPassportCreated}, s.actions(p.ID))
		s.Equal(float64(1), testutil.ToFloat64(s.metrics.Created))
	})

	s.Run("duplicate package key", func() {
		s.SetupTest()
		s.create("PROD-001")
		_, err := s.service.Create(s.ctx, models.CreateRequest{PackageKey: "PROD-001", DataLocator: "locB"}, bob)
		s.requireCode(err, dErrors.CodeDuplicateKey)
	})

	s.Run("invalid arguments", func() {
		s.SetupTest()
		_, err := s.service.Create(s.ctx, models.CreateRequest{PackageKey: "", DataLocator: "loc"}, alice)
		s.requireCode(err, dErrors.CodeInvalidInput)
		_, err = s.service.Create(s.ctx, models.CreateRequest{PackageKey: "K", DataLocator: " "}, alice)
		s.requireCode(err, dErrors.CodeInvalidInput)
		_, err = s.service.Create(s.ctx, models.CreateRequest{PackageKey: "K", DataLocator: "loc"}, "")
		s.requireCode(err, dErrors.CodeUnauthorized)

		// rejected creations do not consume ids
		p := s.create("K")
		s.Equal(id.PassportID(1), p.ID)
	})

	s.Run("rejected creation leaves the package key unmapped", func() {
		s.SetupTest()
		_, err := s.service.Create(s.ctx, models.CreateRequest{
			PackageKey:  "PROD-001",
			MaterialID:  strings.Repeat("m", 300),
			DataLocator: "locA",
			LabIdentity: lab,
		}, alice)
		s.requireCode(err, dErrors.CodeInvalidInput)

		_, err = s.ledger.Resolve(s.ctx, "PROD-001")
		s.requireCode(err, dErrors.CodeNotFound)
		_, err = s.service.GetByKey(s.ctx, "PROD-001")
		s.requireCode(err, dErrors.CodeNotFound)
		owned, err := s.service.ListByOwner(s.ctx, alice)
		s.Require().NoError(err)
		s.Empty(owned)
		produced, err := s.service.ListByLab(s.ctx, lab)
		s.Require().NoError(err)
		s.Empty(produced)
		s.Empty(s.actions(1))

		p, err := s.service.Create(s.ctx, models.CreateRequest{
			PackageKey:  "PROD-001",
			MaterialID:  "MIX-A",
			DataLocator: "locA",
			LabIdentity: lab,
		}, alice)
		s.Require().NoError(err)
		s.Equal(id.PassportID(1), p.ID)
		owned, err = s.service.ListByOwner(s.ctx, alice)
		s.Require().NoError(err)
		s.Equal([]id.PassportID{1}, owned)
	})

	s.Run("concurrent creation with one key succeeds once", func() {
		s.SetupTest()
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
		)
		for range 25 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.service.Create(s.ctx, models.CreateRequest{PackageKey: "RACE", DataLocator: "loc"}, alice)
				if err == nil {
					mu.Lock()
					successes++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		s.Equal(1, successes)
	})
}

func (s *PassportServiceSuite) TestUpdateDataLocator() {
	s.Run("owner updates bump the version once per success", func() {
		s.SetupTest()
		p := s.create("PROD-001")

		updated, err := s.service.UpdateDataLocator(s.ctx, p.ID, "locB", alice)
		s.Require().NoError(err)
		s.Equal(uint64(2), updated.Version)
		s.Equal("locB", updated.DataLocator)

		_, err = s.service.UpdateDataLocator(s.ctx, p.ID, "locC", bob)
		s.requireCode(err, dErrors.CodeForbidden)

		_, err = s.service.UpdateDataLocator(s.ctx, p.ID, "", alice)
		s.requireCode(err, dErrors.CodeInvalidInput)

		for i := range 5 {
			_, err = s.service.UpdateDataLocator(s.ctx, p.ID, fmt.Sprintf("loc-%d", i), alice)
			s.Require().NoError(err)
		}
		got, err := s.service.Get(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Equal(uint64(1+6), got.Version)
	})

	s.Run("unknown passport", func() {
		s.SetupTest()
		_, err := s.service.UpdateDataLocator(s.ctx, 42, "loc", alice)
		s.requireCode(err, dErrors.CodeNotFound)
		_, err = s.service.UpdateDataLocator(s.ctx, id.NoPassport, "loc", alice)
		s.requireCode(err, dErrors.CodeNotFound)
	})

	s.Run("inactive passport", func() {
		s.SetupTest()
		p := s.create("PROD-001")
		_, err := s.service.Deactivate(s.ctx, p.ID, alice)
		s.Require().NoError(err)
		_, err = s.service.UpdateDataLocator(s.ctx, p.ID, "locB", alice)
		s.requireCode(err, dErrors.CodeInactive)
	})
}

func (s *PassportServiceSuite) TestSetDerivedHashIsWriteOnce() {
	p := s.create("PROD-001")

	_, err := s.service.SetDerivedHash(s.ctx, p.ID, models.SlotDesignIntent, "0xfirst", alice)
	s.Require().NoError(err)
	_, err = s.service.SetDerivedHash(s.ctx, p.ID, models.SlotDesignIntent, "0xsecond", alice)
	s.requireCode(err, dErrors.CodeAlreadySet)

	_, err = s.service.SetDerivedHash(s.ctx, p.ID, models.SlotMixDesign, "0xmix", alice)
	s.Require().NoError(err, "slots are independent")
	_, err = s.service.SetDerivedHash(s.ctx, p.ID, "colour", "0x1", alice)
	s.requireCode(err, dErrors.CodeInvalidInput)
	_, err = s.service.SetDerivedHash(s.ctx, p.ID, models.SlotLabReport, "0x1", bob)
	s.requireCode(err, dErrors.CodeForbidden)

	got, err := s.service.Get(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal("0xfirst", got.DerivedHashes[models.SlotDesignIntent])
	s.Equal("0xmix", got.DerivedHashes[models.SlotMixDesign])
	s.Empty(got.DerivedHashes[models.SlotLabReport])
}

func (s *PassportServiceSuite) TestAppendMaterialCertHash() {
	p := s.create("PROD-001")
	for _, h := range []string{"0xa", "0xb", "0xc"} {
		_, err := s.service.AppendMaterialCertHash(s.ctx, p.ID, h, alice)
		s.Require().NoError(err)
	}
	_, err := s.service.AppendMaterialCertHash(s.ctx, p.ID, "0xd", bob)
	s.requireCode(err, dErrors.CodeForbidden)

	got, err := s.service.Get(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal([]string{"0xa", "0xb", "0xc"}, got.MaterialCertHashes)
}

func (s *PassportServiceSuite) TestFinalize() {
	s.Run("finalization freezes every mutable field", func() {
		s.SetupTest()
		p := s.create("PROD-001")
		_, err := s.service.SetDerivedHash(s.ctx, p.ID, models.SlotDesignIntent, "0xdesign", alice)
		s.Require().NoError(err)
		_, err = s.service.AppendMaterialCertHash(s.ctx, p.ID, "0xcert-a", alice)
		s.Require().NoError(err)

		finalized, err := s.service.Finalize(s.ctx, p.ID, "M40", "0xcert", alice)
		s.Require().NoError(err)
		s.True(finalized.IsFinalized)
		s.Equal("M40", finalized.FinalGrade)
		s.Equal("0xcert", finalized.CertificationHash)

		before, err := s.service.Get(s.ctx, p.ID)
		s.Require().NoError(err)

		_, err = s.service.UpdateDataLocator(s.ctx, p.ID, "locD", alice)
		s.requireCode(err, dErrors.CodeLocked)
		_, err = s.service.SetDerivedHash(s.ctx, p.ID, models.SlotMixDesign, "0xmix", alice)
		s.requireCode(err, dErrors.CodeLocked)
		_, err = s.service.AppendMaterialCertHash(s.ctx, p.ID, "0xcert-b", alice)
		s.requireCode(err, dErrors.CodeLocked)
		_, err = s.service.Finalize(s.ctx, p.ID, "M50", "0xother", alice)
		s.requireCode(err, dErrors.CodeLocked)
		_, err = s.service.Deactivate(s.ctx, p.ID, alice)
		s.requireCode(err, dErrors.CodeLocked)

		after, err := s.service.Get(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Equal(before, after)

		graded, err := s.service.ListByGrade(s.ctx, "M40")
		s.Require().NoError(err)
		s.Equal([]id.PassportID{p.ID}, graded)
	})

	s.Run("gate refusal leaves the passport open", func() {
		s.SetupTest()
		p := s.create("PROD-001")
		s.gate.err = dErrors.New(dErrors.CodeConsensusNotReached, "2 of 3 validations")

		_, err := s.service.Finalize(s.ctx, p.ID, "M40", "0xcert", alice)
		s.requireCode(err, dErrors.CodeConsensusNotReached)

		got, err := s.service.Get(s.ctx, p.ID)
		s.Require().NoError(err)
		s.False(got.IsFinalized)
		s.Empty(got.FinalGrade)

		s.gate.err = nil
		_, err = s.service.Finalize(s.ctx, p.ID, "M40", "0xcert", alice)
		s.Require().NoError(err)
	})

	s.Run("passport checks run before the gate", func() {
		s.SetupTest()
		p := s.create("PROD-001")
		s.gate.err = dErrors.New(dErrors.CodeConsensusNotReached, "no votes")

		_, err := s.service.Finalize(s.ctx, p.ID, "M40", "0xcert", bob)
		s.requireCode(err, dErrors.CodeForbidden)
		_, err = s.service.Finalize(s.ctx, p.ID, "", "0xcert", alice)
		s.requireCode(err, dErrors.CodeInvalidInput)
	})

	s.Run("deactivated passport cannot be finalized", func() {
		s.SetupTest()
		p := s.create("PROD-001")
		_, err := s.service.Deactivate(s.ctx, p.ID, alice)
		s.Require().NoError(err)
		_, err = s.service.Finalize(s.ctx, p.ID, "M40", "0xcert", alice)
		s.requireCode(err, dErrors.CodeInactive)
	})
}

func (s *PassportServiceSuite) TestDeactivateIsOneWay() {
	p := s.create("PROD-001")

	_, err := s.service.Deactivate(s.ctx, p.ID, bob)
	s.requireCode(err, dErrors.CodeForbidden)

	got, err := s.service.Deactivate(s.ctx, p.ID, alice)
	s.Require().NoError(err)
	s.False(got.IsActive)

	_, err = s.service.Deactivate(s.ctx, p.ID, alice)
	s.requireCode(err, dErrors.CodeAlreadyInactive)

	read, err := s.service.Get(s.ctx, p.ID)
	s.Require().NoError(err, "queries still work on inactive passports")
	s.False(read.IsActive)
}

func (s *PassportServiceSuite) TestTransfer() {
	p := s.create("PROD-001")
	other := s.create("PROD-002")

	_, err := s.service.Transfer(s.ctx, p.ID, bob, bob)
	s.requireCode(err, dErrors.CodeForbidden)

	moved, err := s.service.Transfer(s.ctx, p.ID, bob, alice)
	s.Require().NoError(err)
	s.Equal(bob, moved.Owner)
	s.Equal(alice, moved.Creator)

	aliceOwns, err := s.service.ListByOwner(s.ctx, alice)
	s.Require().NoError(err)
	s.Equal([]id.PassportID{other.ID}, aliceOwns)
	bobOwns, err := s.service.ListByOwner(s.ctx, bob)
	s.Require().NoError(err)
	s.Equal([]id.PassportID{p.ID}, bobOwns)

	_, err = s.service.UpdateDataLocator(s.ctx, p.ID, "locB", alice)
	s.requireCode(err, dErrors.CodeForbidden)
	_, err = s.service.UpdateDataLocator(s.ctx, p.ID, "locB", bob)
	s.Require().NoError(err)

	_, err = s.service.Transfer(s.ctx, 99, bob, alice)
	s.requireCode(err, dErrors.CodeNotFound)
}

func (s *PassportServiceSuite) TestQueries() {
	p := s.create("PROD-001")

	got, err := s.service.GetByKey(s.ctx, "PROD-001")
	s.Require().NoError(err)
	s.Equal(p.ID, got.ID)

	_, err = s.service.GetByKey(s.ctx, "PROD-404")
	s.requireCode(err, dErrors.CodeNotFound)
	_, err = s.service.Get(s.ctx, 404)
	s.requireCode(err, dErrors.CodeNotFound)

	empty, err := s.service.ListByLab(s.ctx, lab)
	s.Require().NoError(err)
	s.NotNil(empty)
	s.Empty(empty)

	_, err = s.service.ListByOwner(s.ctx, "")
	s.requireCode(err, dErrors.CodeInvalidInput)
}

func (s *PassportServiceSuite) TestGuardSerializesWithWriters() {
	p := s.create("PROD-001")

	var seen models.Passport
	err := s.service.Guard(s.ctx, p.ID, func(_ context.Context, current models.Passport) error {
		seen = current
		return nil
	})
	s.Require().NoError(err)
	s.Equal(p.ID, seen.ID)

	refuse := errors.New("refused")
	err = s.service.Guard(s.ctx, p.ID, func(context.Context, models.Passport) error { return refuse })
	s.Require().Error(err)
	s.ErrorIs(err, refuse)

	err = s.service.Guard(s.ctx, 77, func(context.Context, models.Passport) error { return nil })
	s.requireCode(err, dErrors.CodeNotFound)
}

func (s *PassportServiceSuite) TestNotificationFailureDoesNotUndoChange() {
	ctrl := gomock.NewController(s.T())
	emitter := mocks.NewMockEmitter(ctrl)
	svc := New(store.NewInMemory(), identityservice.New(identitystore.NewInMemory()), WithEmitter(emitter))

	emitter.EXPECT().
		Emit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e audit.Event) error {
			s.Equal(audit.ActionPassportCreated, e.Action)
			s.Equal("1", e.EntityID)
			s.Equal(string(alice), e.ActorID)
			return errors.New("outbox unavailable")
		})

	p, err := svc.Create(s.ctx, models.CreateRequest{PackageKey: "K", DataLocator: "loc"}, alice)
	s.Require().NoError(err)

	got, err := svc.Get(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal("K", got.PackageKey)
}

func (s *PassportServiceSuite) TestNotificationsFollowOperations() {
	p := s.create("PROD-001")
	_, err := s.service.UpdateDataLocator(s.ctx, p.ID, "locB", alice)
	s.Require().NoError(err)
	_, err = s.service.UpdateDataLocator(s.ctx, p.ID, "locC", bob)
	s.Require().Error(err)
	_, err = s.service.Finalize(s.ctx, p.ID, "M40", "0xcert", alice)
	s.Require().NoError(err)

	s.Equal([]audit.Action{
		audit.ActionPassportCreated,
		audit.ActionLocatorUpdated,
		audit.ActionPassportFinalized,
	}, s.actions(p.ID), "failed operations emit nothing")
}
