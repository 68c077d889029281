package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"provenant/internal/validation/handler/mocks"
	"provenant/internal/validation/models"
	id "provenant/pkg/domain"
	dErrors "provenant/pkg/domain-errors"
	"provenant/pkg/requestcontext"
	"provenant/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mock_services.go -package=mocks Ledger,LabTests

const caller = id.Identity("0xcaller")

type ValidationHandlerSuite struct {
	suite.Suite
	ledger *mocks.MockLedger
	labs   *mocks.MockLabTests
	router http.Handler
}

func TestValidationHandlerSuite(t *testing.T) {
	suite.Run(t, new(ValidationHandlerSuite))
}

func (s *ValidationHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.ledger = mocks.NewMockLedger(ctrl)
	s.labs = mocks.NewMockLabTests(ctrl)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(requestcontext.WithCaller(r.Context(), caller)))
		})
	})
	New(s.ledger, s.labs, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	s.router = r
}

func (s *ValidationHandlerSuite) do(req *http.Request) *httptest.ResponseRecorder {
	return testutil.DoRequest(s.router, req)
}

func (s *ValidationHandlerSuite) TestSubmitValidation() {
	s.Run("submits as the caller", func() {
		s.ledger.EXPECT().Submit(gomock.Any(), id.PassportID(7), caller, models.SubmitRequest{
			Passed:        true,
			ReportLocator: "keccak256:report",
			Signature:     []byte{0xde, 0xad},
		}).Return(&models.ValidationRecord{Seq: 1, PassportID: 7, ValidatorIdentity: caller, Passed: true}, nil)

		rec := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/passports/7/validations", SubmitValidationRequest{
			Passed: true, ReportLocator: "keccak256:report", Signature: []byte{0xde, 0xad},
		}))
		s.Equal(http.StatusCreated, rec.Code)
	})

	s.Run("unregistered validator", func() {
		s.ledger.EXPECT().Submit(gomock.Any(), id.PassportID(7), caller, gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeUnauthorized, "caller is not an authorized validator"))

		rec := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/passports/7/validations", SubmitValidationRequest{Passed: true}))
		s.Equal(http.StatusUnauthorized, rec.Code)
	})
}

func (s *ValidationHandlerSuite) TestConsensus() {
	s.ledger.EXPECT().Status(gomock.Any(), id.PassportID(7)).Return(models.ConsensusStatus{
		PassportID: 7, Total: 4, Passed: 3, Validators: 4, Required: 3, Reached: true,
	}, nil)

	rec := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/passports/7/consensus"))
	s.Require().Equal(http.StatusOK, rec.Code)
	got := testutil.UnmarshalResponse[models.ConsensusStatus](s.T(), rec)
	s.True(got.Reached)
	s.Equal(3, got.Passed)
}

func (s *ValidationHandlerSuite) TestTestResults() {
	testID := id.NewTestResultID()
	testDate := time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)

	s.Run("submit", func() {
		s.labs.EXPECT().SubmitTestResult(gomock.Any(), id.PassportID(7), models.TestResultRequest{
			Kind:          "CompressionTest",
			DataLocator:   "keccak256:cube",
			TestDate:      testDate,
			CuringAgeDays: 28,
			ResultSummary: "42.1 MPa",
		}, caller).Return(&models.TestResult{ID: testID, PassportID: 7, Status: models.StatusPending}, nil)

		rec := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/passports/7/test-results", SubmitTestResultRequest{
			Kind: "CompressionTest", DataLocator: "keccak256:cube", TestDate: testDate, CuringAgeDays: 28, ResultSummary: "42.1 MPa",
		}))
		s.Equal(http.StatusCreated, rec.Code)
	})

	s.Run("review parses the outcome", func() {
		s.labs.EXPECT().ValidateTestResult(gomock.Any(), testID, models.StatusDisputed, caller).
			Return(&models.TestResult{ID: testID, Status: models.StatusDisputed}, nil)

		rec := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/test-results/"+testID.String()+"/review",
			ReviewTestResultRequest{Outcome: "Disputed"}))
		s.Equal(http.StatusOK, rec.Code)

		rec = s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/test-results/"+testID.String()+"/review",
			ReviewTestResultRequest{Outcome: "pending"}))
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("self review is forbidden", func() {
		s.labs.EXPECT().ValidateTestResult(gomock.Any(), testID, models.StatusValidated, caller).
			Return(nil, dErrors.New(dErrors.CodeForbidden, "a lab cannot review its own test result"))

		rec := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/test-results/"+testID.String()+"/review",
			ReviewTestResultRequest{Outcome: "validated"}))
		testutil.AssertError(s.T(), rec, http.StatusForbidden, "forbidden")
	})

	s.Run("update after review is locked", func() {
		s.labs.EXPECT().UpdateTestResult(gomock.Any(), testID, "keccak256:v2", "", caller).
			Return(nil, dErrors.New(dErrors.CodeLocked, "test result has been reviewed"))

		rec := s.do(testutil.NewJSONRequest(s.T(), http.MethodPut, "/test-results/"+testID.String(),
			UpdateTestResultRequest{DataLocator: "keccak256:v2"}))
		testutil.AssertError(s.T(), rec, http.StatusLocked, "locked")
	})

	s.Run("malformed test id", func() {
		rec := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/test-results/not-a-uuid"))
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *ValidationHandlerSuite) TestLabRoster() {
	s.labs.EXPECT().AuthorizeLab(gomock.Any(), id.Identity("0xlab"), caller).
		Return(&models.Lab{Identity: "0xlab", AuthorizedBy: caller}, nil)
	rec := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/labs", AuthorizeLabRequest{Identity: "0xLab"}))
	s.Equal(http.StatusCreated, rec.Code)

	s.labs.EXPECT().RevokeLab(gomock.Any(), id.Identity("0xlab"), caller).Return(nil)
	rec = s.do(testutil.NewRequest(s.T(), http.MethodDelete, "/labs/0xlab"))
	s.Equal(http.StatusNoContent, rec.Code)

	s.labs.EXPECT().RevokeLab(gomock.Any(), id.Identity("0xother"), caller).
		Return(dErrors.New(dErrors.CodeForbidden, "only the registry admin manages labs"))
	rec = s.do(testutil.NewRequest(s.T(), http.MethodDelete, "/labs/0xother"))
	s.Equal(http.StatusForbidden, rec.Code)
}
