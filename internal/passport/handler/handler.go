package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"provenant/internal/passport/models"
	id "provenant/pkg/domain"
	dErrors "provenant/pkg/domain-errors"
	"provenant/pkg/platform/httputil"
	request "provenant/pkg/platform/middleware/request"
	"provenant/pkg/requestcontext"
)

// Service defines the passport operations exposed over HTTP.
type Service interface {
	Create(ctx context.Context, req models.CreateRequest, creator id.Identity) (*models.Passport, error)
	Get(ctx context.Context, passportID id.PassportID) (*models.Passport, error)
	GetByKey(ctx context.Context, packageKey string) (*models.Passport, error)
	UpdateDataLocator(ctx context.Context, passportID id.PassportID, locator string, caller id.Identity) (*models.Passport, error)
	SetDerivedHash(ctx context.Context, passportID id.PassportID, slot models.DerivedHashSlot, hash string, caller id.Identity) (*models.Passport, error)
	AppendMaterialCertHash(ctx context.Context, passportID id.PassportID, hash string, caller id.Identity) (*models.Passport, error)
	Deactivate(ctx context.Context, passportID id.PassportID, caller id.Identity) (*models.Passport, error)
	Finalize(ctx context.Context, passportID id.PassportID, grade, certificationHash string, caller id.Identity) (*models.Passport, error)
	Transfer(ctx context.Context, passportID id.PassportID, newOwner, caller id.Identity) (*models.Passport, error)
	ListByOwner(ctx context.Context, owner id.Identity) ([]id.PassportID, error)
	ListByLab(ctx context.Context, lab id.Identity) ([]id.PassportID, error)
	ListByGrade(ctx context.Context, grade string) ([]id.PassportID, error)
}

// Handler serves the passport endpoints.
type Handler struct {
	passports Service
	logger    *slog.Logger
}

func New(passports Service, logger *slog.Logger) *Handler {
	return &Handler{passports: passports, logger: logger}
}

// Register adds the passport routes. The router is expected to authenticate
// callers before these handlers run.
func (h *Handler) Register(r chi.Router) {
	r.Post("/passports", h.handleCreate)
	r.Get("/passports", h.handleList)
	r.Get("/passports/by-key/{key}", h.handleGetByKey)
	r.Get("/passports/{id}", h.handleGet)
	r.Put("/passports/{id}/locator", h.handleUpdateLocator)
	r.Put("/passports/{id}/derived-hashes/{slot}", h.handleSetDerivedHash)
	r.Post("/passports/{id}/cert-hashes", h.handleAppendCertHash)
	r.Post("/passports/{id}/deactivate", h.handleDeactivate)
	r.Post("/passports/{id}/finalize", h.handleFinalize)
	r.Post("/passports/{id}/transfer", h.handleTransfer)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req CreatePassportRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, "invalid create passport request", err)
		return
	}
	create, err := req.toModel()
	if err != nil {
		h.fail(w, r, "invalid create passport request", err)
		return
	}
	p, err := h.passports.Create(ctx, create, requestcontext.Caller(ctx))
	if err != nil {
		h.fail(w, r, "failed to create passport", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, p)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	passportID, err := id.ParsePassportID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	p, err := h.passports.Get(r.Context(), passportID)
	if err != nil {
		h.fail(w, r, "failed to get passport", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) handleGetByKey(w http.ResponseWriter, r *http.Request) {
	p, err := h.passports.GetByKey(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		h.fail(w, r, "failed to resolve package key", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

// handleList filters by exactly one of owner, lab or grade.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var (
		ids []id.PassportID
		err error
	)
	switch {
	case q.Get("owner") != "":
		var owner id.Identity
		if owner, err = id.ParseIdentity(q.Get("owner")); err == nil {
			ids, err = h.passports.ListByOwner(ctx, owner)
		}
	case q.Get("lab") != "":
		var lab id.Identity
		if lab, err = id.ParseIdentity(q.Get("lab")); err == nil {
			ids, err = h.passports.ListByLab(ctx, lab)
		}
	case q.Get("grade") != "":
		ids, err = h.passports.ListByGrade(ctx, q.Get("grade"))
	default:
		err = dErrors.New(dErrors.CodeBadRequest, "one of owner, lab or grade is required")
	}
	if err != nil {
		h.fail(w, r, "failed to list passports", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, PassportListResponse{PassportIDs: ids})
}

func (h *Handler) handleUpdateLocator(w http.ResponseWriter, r *http.Request) {
	var req UpdateLocatorRequest
	h.mutate(w, r, &req, func(ctx context.Context, passportID id.PassportID, caller id.Identity) (*models.Passport, error) {
		return h.passports.UpdateDataLocator(ctx, passportID, req.DataLocator, caller)
	})
}

func (h *Handler) handleSetDerivedHash(w http.ResponseWriter, r *http.Request) {
	var req HashRequest
	h.mutate(w, r, &req, func(ctx context.Context, passportID id.PassportID, caller id.Identity) (*models.Passport, error) {
		slot, err := models.ParseDerivedHashSlot(chi.URLParam(r, "slot"))
		if err != nil {
			return nil, err
		}
		return h.passports.SetDerivedHash(ctx, passportID, slot, req.Hash, caller)
	})
}

func (h *Handler) handleAppendCertHash(w http.ResponseWriter, r *http.Request) {
	var req HashRequest
	h.mutate(w, r, &req, func(ctx context.Context, passportID id.PassportID, caller id.Identity) (*models.Passport, error) {
		return h.passports.AppendMaterialCertHash(ctx, passportID, req.Hash, caller)
	})
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, nil, func(ctx context.Context, passportID id.PassportID, caller id.Identity) (*models.Passport, error) {
		return h.passports.Deactivate(ctx, passportID, caller)
	})
}

func (h *Handler) handleFinalize(w http.ResponseWriter, r *http.Request) {
	var req FinalizeRequest
	h.mutate(w, r, &req, func(ctx context.Context, passportID id.PassportID, caller id.Identity) (*models.Passport, error) {
		return h.passports.Finalize(ctx, passportID, req.Grade, req.CertificationHash, caller)
	})
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	h.mutate(w, r, &req, func(ctx context.Context, passportID id.PassportID, caller id.Identity) (*models.Passport, error) {
		newOwner, err := id.ParseIdentity(req.NewOwner)
		if err != nil {
			return nil, err
		}
		return h.passports.Transfer(ctx, passportID, newOwner, caller)
	})
}

// mutate parses the path id and optional body, then runs op as the caller.
func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, body any, op func(context.Context, id.PassportID, id.Identity) (*models.Passport, error)) {
	ctx := r.Context()
	passportID, err := id.ParsePassportID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if body != nil {
		if err := httputil.DecodeJSON(r, body); err != nil {
			h.fail(w, r, "invalid passport request", err)
			return
		}
	}
	p, err := op(ctx, passportID, requestcontext.Caller(ctx))
	if err != nil {
		h.fail(w, r, "passport operation failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	ctx := r.Context()
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, "error", err, "request_id", request.GetRequestID(ctx))
	} else {
		h.logger.WarnContext(ctx, msg, "error", err, "request_id", request.GetRequestID(ctx))
	}
	httputil.WriteError(w, err)
}
