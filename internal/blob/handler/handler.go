package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"provenant/internal/blob"
	"provenant/pkg/platform/httputil"
)

// Handler uploads and serves off-chain packages.
type Handler struct {
	store    blob.Store
	maxBytes int64
	logger   *slog.Logger
}

func New(store blob.Store, maxBytes int64, logger *slog.Logger) *Handler {
	return &Handler{store: store, maxBytes: maxBytes, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/packages", h.handlePut)
	r.Get("/packages/{locator}", h.handleGet)
}

// handlePut stores the raw request body and returns its locator.
func (h *Handler) handlePut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body := io.Reader(r.Body)
	if h.maxBytes > 0 {
		body = io.LimitReader(r.Body, h.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "bad_request", Description: "failed to read body"})
		return
	}
	if len(data) == 0 {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "bad_request", Description: "package body is required"})
		return
	}
	info, err := h.store.Put(ctx, data, r.Header.Get("Content-Type"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.logger.InfoContext(ctx, "package stored", "locator", info.Locator, "size", info.Size)
	httputil.WriteJSON(w, http.StatusCreated, info)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	info, data, err := h.store.Get(r.Context(), chi.URLParam(r, "locator"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, blob.ErrNotFound):
		httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: "not_found", Description: "package not found"})
	case errors.Is(err, blob.ErrInvalidLocator):
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid_input", Description: "invalid package locator"})
	case errors.Is(err, blob.ErrTooLarge):
		httputil.WriteJSON(w, http.StatusRequestEntityTooLarge, httputil.ErrorResponse{Error: "invalid_input", Description: "package exceeds size limit"})
	default:
		h.logger.ErrorContext(r.Context(), "package store failure", "error", err)
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: "internal_error"})
	}
}
