package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"provenant/internal/provenance/models"
	id "provenant/pkg/domain"
	dErrors "provenant/pkg/domain-errors"
	"provenant/pkg/platform/httputil"
	"provenant/pkg/requestcontext"
)

// Service defines the provenance log operations exposed over HTTP.
type Service interface {
	AddMaterialBatch(ctx context.Context, passportID id.PassportID, req models.MaterialBatchRequest, caller id.Identity) (*models.MaterialBatch, error)
	RecordProcessEvent(ctx context.Context, passportID id.PassportID, req models.ProcessEventRequest, caller id.Identity) (*models.ProcessEvent, error)
	History(ctx context.Context, passportID id.PassportID) ([]models.ProcessEvent, error)
	Materials(ctx context.Context, passportID id.PassportID) ([]models.MaterialBatch, error)
}

type Handler struct {
	provenance Service
	logger     *slog.Logger
}

func New(provenance Service, logger *slog.Logger) *Handler {
	return &Handler{provenance: provenance, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/passports/{id}/materials", h.handleAddMaterial)
	r.Get("/passports/{id}/materials", h.handleMaterials)
	r.Post("/passports/{id}/events", h.handleRecordEvent)
	r.Get("/passports/{id}/events", h.handleHistory)
}

type MaterialBatchRequest struct {
	BatchNumber     string     `json:"batch_number"`
	MaterialType    string     `json:"material_type"`
	SupplierName    string     `json:"supplier_name"`
	CertificateHash string     `json:"certificate_hash"`
	ExpiryAt        *time.Time `json:"expiry_at,omitempty"`
}

type ProcessEventRequest struct {
	EventKind      string `json:"event_kind"`
	DataLocator    string `json:"data_locator"`
	ParametersHash string `json:"parameters_hash"`
}

func (h *Handler) handleAddMaterial(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	passportID, ok := h.passportID(w, r)
	if !ok {
		return
	}
	var req MaterialBatchRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	batch, err := h.provenance.AddMaterialBatch(ctx, passportID, models.MaterialBatchRequest{
		BatchNumber:     req.BatchNumber,
		MaterialType:    req.MaterialType,
		SupplierName:    req.SupplierName,
		CertificateHash: req.CertificateHash,
		ExpiryAt:        req.ExpiryAt,
	}, requestcontext.Caller(ctx))
	if err != nil {
		h.fail(ctx, w, "failed to add material batch", passportID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, batch)
}

func (h *Handler) handleRecordEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	passportID, ok := h.passportID(w, r)
	if !ok {
		return
	}
	var req ProcessEventRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	event, err := h.provenance.RecordProcessEvent(ctx, passportID, models.ProcessEventRequest{
		EventKind:      req.EventKind,
		DataLocator:    req.DataLocator,
		ParametersHash: req.ParametersHash,
	}, requestcontext.Caller(ctx))
	if err != nil {
		h.fail(ctx, w, "failed to record process event", passportID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, event)
}

func (h *Handler) handleMaterials(w http.ResponseWriter, r *http.Request) {
	passportID, ok := h.passportID(w, r)
	if !ok {
		return
	}
	batches, err := h.provenance.Materials(r.Context(), passportID)
	if err != nil {
		h.fail(r.Context(), w, "failed to list material batches", passportID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"materials": batches})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	passportID, ok := h.passportID(w, r)
	if !ok {
		return
	}
	events, err := h.provenance.History(r.Context(), passportID)
	if err != nil {
		h.fail(r.Context(), w, "failed to list process events", passportID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (h *Handler) passportID(w http.ResponseWriter, r *http.Request) (id.PassportID, bool) {
	passportID, err := id.ParsePassportID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.NoPassport, false
	}
	return passportID, true
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, passportID id.PassportID, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, "passport_id", passportID, "error", err)
	}
	httputil.WriteError(w, err)
}
