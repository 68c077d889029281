package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	identityservice "provenant/internal/identity/service"
	identitystore "provenant/internal/identity/store"
	passportmodels "provenant/internal/passport/models"
	passportservice "provenant/internal/passport/service"
	passportstore "provenant/internal/passport/store"
	"provenant/internal/validation/attestation"
	"provenant/internal/validation/models"
	"provenant/internal/validation/store"
	id "provenant/pkg/domain"
	dErrors "provenant/pkg/domain-errors"
	audit "provenant/pkg/platform/audit"
	"provenant/pkg/platform/audit/publisher"
	auditmemory "provenant/pkg/platform/audit/store/memory"
	"provenant/pkg/requestcontext"
)

const (
	admin = id.Identity("0xadmin")
	labA  = id.Identity("0xlab-a")
	labB  = id.Identity("0xlab-b")
	labC  = id.Identity("0xlab-c")
)

type LabTestsSuite struct {
	suite.Suite
	ctx       context.Context
	now       time.Time
	events    *auditmemory.InMemoryStore
	passports *passportservice.Service
	labs      *LabTests
	passport  id.PassportID
}

func TestLabTestsSuite(t *testing.T) {
	suite.Run(t, new(LabTestsSuite))
}

func (s *LabTestsSuite) SetupTest() {
	s.now = time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.events = auditmemory.NewInMemoryStore()

	var gate lateGate
	s.passports = passportservice.New(passportstore.NewInMemory(), identityservice.New(identitystore.NewInMemory()),
		passportservice.WithFinalizeGate(&gate))
	s.labs = NewLabTests(store.NewInMemoryTestResults(), store.NewInMemoryLabs(), s.passports,
		WithAdmin(admin),
		WithLabEmitter(publisher.NewPublisher(s.events)),
	)
	gate.Gate = attestation.NewGate(attestation.NewLabTestAttestation(s.labs))

	p, err := s.passports.Create(s.ctx, passportmodels.CreateRequest{PackageKey: "PROD-001", DataLocator: "loc"}, owner)
	s.Require().NoError(err)
	s.passport = p.ID

	for _, lab := range []id.Identity{labA, labB, labC} {
		_, err := s.labs.AuthorizeLab(s.ctx, lab, admin)
		s.Require().NoError(err)
	}
}

func (s *LabTestsSuite) submit(lab id.Identity) *models.TestResult {
	s.T().Helper()
	r, err := s.labs.SubmitTestResult(s.ctx, s.passport, models.TestResultRequest{
		Kind:          "Compression",
		DataLocator:   "loc",
		TestDate:      s.now.AddDate(0, 0, -2),
		CuringAgeDays: 7,
		ResultSummary: "53.6 MPa",
	}, lab)
	s.Require().NoError(err)
	return r
}

func (s *LabTestsSuite) TestPeerReviewFlow() {
	r := s.submit(labA)
	s.Equal(models.StatusPending, r.Status)

	_, err := s.labs.ValidateTestResult(s.ctx, r.ID, models.StatusValidated, labA)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	reviewed, err := s.labs.ValidateTestResult(s.ctx, r.ID, models.StatusValidated, labB)
	s.Require().NoError(err)
	s.Equal(models.StatusValidated, reviewed.Status)
	s.Equal(labB, reviewed.ValidatorIdentity)
	s.Require().NotNil(reviewed.ValidatedAt)

	_, err = s.labs.UpdateTestResult(s.ctx, r.ID, "loc2", "54 MPa", labA)
	s.True(dErrors.HasCode(err, dErrors.CodeLocked))

	got, err := s.labs.GetTestResult(s.ctx, r.ID)
	s.Require().NoError(err)
	s.Equal("loc", got.DataLocator)

	notes, err := s.events.ListByEntity(s.ctx, audit.EntityTestResult, r.ID.String())
	s.Require().NoError(err)
	s.Len(notes, 2)
}

func (s *LabTestsSuite) TestSubmitRejections() {
	req := models.TestResultRequest{Kind: "compression", DataLocator: "loc", TestDate: s.now}

	_, err := s.labs.SubmitTestResult(s.ctx, 99, req, labA)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.labs.SubmitTestResult(s.ctx, s.passport, req, "0xnot-a-lab")
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	future := req
	future.TestDate = s.now.Add(time.Minute)
	_, err = s.labs.SubmitTestResult(s.ctx, s.passport, future, labA)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

	negative := req
	negative.CuringAgeDays = -3
	_, err = s.labs.SubmitTestResult(s.ctx, s.passport, negative, labA)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

	results, err := s.labs.TestResults(s.ctx, s.passport)
	s.Require().NoError(err)
	s.Empty(results)
}

func (s *LabTestsSuite) TestReviewRejections() {
	r := s.submit(labA)

	_, err := s.labs.ValidateTestResult(s.ctx, id.NewTestResultID(), models.StatusValidated, labB)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.labs.ValidateTestResult(s.ctx, r.ID, models.StatusValidated, "0xnot-a-lab")
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	_, err = s.labs.ValidateTestResult(s.ctx, r.ID, models.StatusPending, labB)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = s.labs.ValidateTestResult(s.ctx, r.ID, models.StatusRejected, labB)
	s.Require().NoError(err)
	_, err = s.labs.ValidateTestResult(s.ctx, r.ID, models.StatusValidated, labC)
	s.True(dErrors.HasCode(err, dErrors.CodeLocked))
}

func (s *LabTestsSuite) TestDisputeSettledByThirdLab() {
	r := s.submit(labA)

	disputed, err := s.labs.ValidateTestResult(s.ctx, r.ID, models.StatusDisputed, labB)
	s.Require().NoError(err)
	s.Equal(models.StatusDisputed, disputed.Status)

	_, err = s.labs.UpdateTestResult(s.ctx, r.ID, "loc2", "", labA)
	s.True(dErrors.HasCode(err, dErrors.CodeLocked))

	_, err = s.labs.ValidateTestResult(s.ctx, r.ID, models.StatusValidated, labB)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	settled, err := s.labs.ValidateTestResult(s.ctx, r.ID, models.StatusValidated, labC)
	s.Require().NoError(err)
	s.Equal(models.StatusValidated, settled.Status)
	s.Equal(labC, settled.ValidatorIdentity)
}

func (s *LabTestsSuite) TestUpdateWhilePending() {
	r := s.submit(labA)

	_, err := s.labs.UpdateTestResult(s.ctx, r.ID, "loc2", "54.0 MPa", labB)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	updated, err := s.labs.UpdateTestResult(s.ctx, r.ID, "loc2", "54.0 MPa", labA)
	s.Require().NoError(err)
	s.Equal("loc2", updated.DataLocator)
	s.Equal("54.0 MPa", updated.ResultSummary)
	s.Equal(models.StatusPending, updated.Status)
}

func (s *LabTestsSuite) TestLabRoster() {
	_, err := s.labs.AuthorizeLab(s.ctx, "0xlab-d", labA)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	_, err = s.labs.AuthorizeLab(s.ctx, labA, admin)
	s.True(dErrors.HasCode(err, dErrors.CodeAlreadyRegistered))

	s.Require().NoError(s.labs.RevokeLab(s.ctx, labC, admin))
	s.True(dErrors.HasCode(s.labs.RevokeLab(s.ctx, labC, admin), dErrors.CodeNotFound))

	ok, err := s.labs.IsAuthorizedLab(s.ctx, labC)
	s.Require().NoError(err)
	s.False(ok)

	_, err = s.labs.SubmitTestResult(s.ctx, s.passport, models.TestResultRequest{Kind: "other", DataLocator: "loc", TestDate: s.now}, labC)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	labs, err := s.labs.Labs(s.ctx)
	s.Require().NoError(err)
	s.Len(labs, 2)

	_, err = s.labs.AuthorizeLab(s.ctx, labC, admin)
	s.Require().NoError(err, "a revoked lab can be authorized again")

	noAdmin := NewLabTests(store.NewInMemoryTestResults(), store.NewInMemoryLabs(), s.passports)
	_, err = noAdmin.AuthorizeLab(s.ctx, labA, "")
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *LabTestsSuite) TestLabGateFinalization() {
	_, err := s.passports.Finalize(s.ctx, s.passport, "M40", "0xcert", owner)
	s.True(dErrors.HasCode(err, dErrors.CodeConsensusNotReached))

	r := s.submit(labA)
	_, err = s.labs.ValidateTestResult(s.ctx, r.ID, models.StatusDisputed, labB)
	s.Require().NoError(err)
	_, err = s.passports.Finalize(s.ctx, s.passport, "M40", "0xcert", owner)
	s.True(dErrors.HasCode(err, dErrors.CodeConsensusNotReached), "a disputed test does not count")

	_, err = s.labs.ValidateTestResult(s.ctx, r.ID, models.StatusValidated, labC)
	s.Require().NoError(err)
	_, err = s.passports.Finalize(s.ctx, s.passport, "M40", "0xcert", owner)
	s.Require().NoError(err)
}
