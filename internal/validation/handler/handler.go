package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"provenant/internal/validation/models"
	id "provenant/pkg/domain"
	dErrors "provenant/pkg/domain-errors"
	"provenant/pkg/platform/httputil"
	request "provenant/pkg/platform/middleware/request"
	"provenant/pkg/requestcontext"
)

// Ledger defines the validator consensus operations exposed over HTTP.
type Ledger interface {
	Submit(ctx context.Context, passportID id.PassportID, validator id.Identity, req models.SubmitRequest) (*models.ValidationRecord, error)
	Status(ctx context.Context, passportID id.PassportID) (models.ConsensusStatus, error)
	Records(ctx context.Context, passportID id.PassportID) ([]models.ValidationRecord, error)
}

// LabTests defines the lab roster and test result operations exposed over HTTP.
type LabTests interface {
	AuthorizeLab(ctx context.Context, lab, caller id.Identity) (*models.Lab, error)
	RevokeLab(ctx context.Context, lab, caller id.Identity) error
	Labs(ctx context.Context) ([]models.Lab, error)
	SubmitTestResult(ctx context.Context, passportID id.PassportID, req models.TestResultRequest, caller id.Identity) (*models.TestResult, error)
	ValidateTestResult(ctx context.Context, testID id.TestResultID, outcome models.TestStatus, caller id.Identity) (*models.TestResult, error)
	UpdateTestResult(ctx context.Context, testID id.TestResultID, locator, summary string, caller id.Identity) (*models.TestResult, error)
	GetTestResult(ctx context.Context, testID id.TestResultID) (*models.TestResult, error)
	TestResults(ctx context.Context, passportID id.PassportID) ([]models.TestResult, error)
}

// Handler serves validation submissions, consensus status, lab test results
// and the lab roster.
type Handler struct {
	ledger Ledger
	labs   LabTests
	logger *slog.Logger
}

func New(ledger Ledger, labs LabTests, logger *slog.Logger) *Handler {
	return &Handler{ledger: ledger, labs: labs, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/passports/{id}/validations", h.handleSubmit)
	r.Get("/passports/{id}/validations", h.handleRecords)
	r.Get("/passports/{id}/consensus", h.handleConsensus)

	r.Post("/passports/{id}/test-results", h.handleSubmitTestResult)
	r.Get("/passports/{id}/test-results", h.handleListTestResults)
	r.Get("/test-results/{testID}", h.handleGetTestResult)
	r.Put("/test-results/{testID}", h.handleUpdateTestResult)
	r.Post("/test-results/{testID}/review", h.handleReviewTestResult)

	r.Post("/labs", h.handleAuthorizeLab)
	r.Get("/labs", h.handleListLabs)
	r.Delete("/labs/{identity}", h.handleRevokeLab)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	passportID, ok := passportParam(w, r)
	if !ok {
		return
	}
	var req SubmitValidationRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	record, err := h.ledger.Submit(ctx, passportID, requestcontext.Caller(ctx), models.SubmitRequest{
		Passed:        req.Passed,
		ReportLocator: req.ReportLocator,
		Signature:     req.Signature,
	})
	if err != nil {
		h.fail(ctx, w, "failed to submit validation", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, record)
}

func (h *Handler) handleRecords(w http.ResponseWriter, r *http.Request) {
	passportID, ok := passportParam(w, r)
	if !ok {
		return
	}
	records, err := h.ledger.Records(r.Context(), passportID)
	if err != nil {
		h.fail(r.Context(), w, "failed to list validations", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"validations": records})
}

func (h *Handler) handleConsensus(w http.ResponseWriter, r *http.Request) {
	passportID, ok := passportParam(w, r)
	if !ok {
		return
	}
	status, err := h.ledger.Status(r.Context(), passportID)
	if err != nil {
		h.fail(r.Context(), w, "failed to read consensus", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, status)
}

func (h *Handler) handleSubmitTestResult(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	passportID, ok := passportParam(w, r)
	if !ok {
		return
	}
	var req SubmitTestResultRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	result, err := h.labs.SubmitTestResult(ctx, passportID, models.TestResultRequest{
		Kind:          req.Kind,
		DataLocator:   req.DataLocator,
		TestDate:      req.TestDate,
		CuringAgeDays: req.CuringAgeDays,
		ResultSummary: req.ResultSummary,
	}, requestcontext.Caller(ctx))
	if err != nil {
		h.fail(ctx, w, "failed to submit test result", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, result)
}

func (h *Handler) handleListTestResults(w http.ResponseWriter, r *http.Request) {
	passportID, ok := passportParam(w, r)
	if !ok {
		return
	}
	results, err := h.labs.TestResults(r.Context(), passportID)
	if err != nil {
		h.fail(r.Context(), w, "failed to list test results", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"test_results": results})
}

func (h *Handler) handleGetTestResult(w http.ResponseWriter, r *http.Request) {
	testID, ok := testParam(w, r)
	if !ok {
		return
	}
	result, err := h.labs.GetTestResult(r.Context(), testID)
	if err != nil {
		h.fail(r.Context(), w, "failed to get test result", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleUpdateTestResult(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	testID, ok := testParam(w, r)
	if !ok {
		return
	}
	var req UpdateTestResultRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	result, err := h.labs.UpdateTestResult(ctx, testID, req.DataLocator, req.ResultSummary, requestcontext.Caller(ctx))
	if err != nil {
		h.fail(ctx, w, "failed to update test result", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleReviewTestResult(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	testID, ok := testParam(w, r)
	if !ok {
		return
	}
	var req ReviewTestResultRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	outcome, err := models.ParseOutcome(req.Outcome)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	result, err := h.labs.ValidateTestResult(ctx, testID, outcome, requestcontext.Caller(ctx))
	if err != nil {
		h.fail(ctx, w, "failed to review test result", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleAuthorizeLab(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req AuthorizeLabRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	lab, err := id.ParseIdentity(req.Identity)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	authorized, err := h.labs.AuthorizeLab(ctx, lab, requestcontext.Caller(ctx))
	if err != nil {
		h.fail(ctx, w, "failed to authorize lab", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, authorized)
}

func (h *Handler) handleRevokeLab(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lab, err := id.ParseIdentity(chi.URLParam(r, "identity"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.labs.RevokeLab(ctx, lab, requestcontext.Caller(ctx)); err != nil {
		h.fail(ctx, w, "failed to revoke lab", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListLabs(w http.ResponseWriter, r *http.Request) {
	labs, err := h.labs.Labs(r.Context())
	if err != nil {
		h.fail(r.Context(), w, "failed to list labs", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"labs": labs})
}

func passportParam(w http.ResponseWriter, r *http.Request) (id.PassportID, bool) {
	passportID, err := id.ParsePassportID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.NoPassport, false
	}
	return passportID, true
}

func testParam(w http.ResponseWriter, r *http.Request) (id.TestResultID, bool) {
	testID, err := id.ParseTestResultID(chi.URLParam(r, "testID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.TestResultID{}, false
	}
	return testID, true
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, "error", err, "request_id", request.GetRequestID(ctx))
	} else {
		h.logger.DebugContext(ctx, msg, "error", err, "request_id", request.GetRequestID(ctx))
	}
	httputil.WriteError(w, err)
}
