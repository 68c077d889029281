package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"provenant/internal/validator/models"
	id "provenant/pkg/domain"
	dErrors "provenant/pkg/domain-errors"
	"provenant/pkg/platform/httputil"
	"provenant/pkg/requestcontext"
)

// Service defines the validator registry operations exposed over HTTP.
type Service interface {
	Register(ctx context.Context, identity id.Identity, organization, certificationNumber string) (*models.Validator, error)
	Get(ctx context.Context, identity id.Identity) (*models.Validator, error)
	List(ctx context.Context) ([]models.Validator, error)
}

type Handler struct {
	validators Service
	logger     *slog.Logger
}

func New(validators Service, logger *slog.Logger) *Handler {
	return &Handler{validators: validators, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/validators", h.handleRegister)
	r.Get("/validators", h.handleList)
	r.Get("/validators/{identity}", h.handleGet)
}

// RegisterValidatorRequest registers the authenticated caller as a validator.
type RegisterValidatorRequest struct {
	OrganizationName    string `json:"organization_name"`
	CertificationNumber string `json:"certification_number"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := requestcontext.Caller(ctx)
	if caller.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required"))
		return
	}
	var req RegisterValidatorRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	v, err := h.validators.Register(ctx, caller, req.OrganizationName, req.CertificationNumber)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "failed to register validator", "validator", caller, "error", err)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, v)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	identity, err := id.ParseIdentity(chi.URLParam(r, "identity"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	v, err := h.validators.Get(r.Context(), identity)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, v)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	validators, err := h.validators.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"validators": validators})
}
