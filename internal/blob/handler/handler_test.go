package handler

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"provenant/internal/blob"
	"provenant/pkg/testutil"
)

func newRouter(maxBytes int64) http.Handler {
	r := chi.NewRouter()
	New(blob.NewMemory(maxBytes), maxBytes, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	return r
}

func TestUploadAndFetch(t *testing.T) {
	router := newRouter(1 << 10)
	payload := []byte("G1 X10 Y20 E0.5")

	req := httptest.NewRequest(http.MethodPost, "/packages", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "text/x-gcode")
	rec := testutil.DoRequest(router, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	info := testutil.UnmarshalResponse[blob.Info](t, rec)
	assert.Equal(t, blob.Locator(payload), info.Locator)

	rec = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/packages/"+info.Locator))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/x-gcode", rec.Header().Get("Content-Type"))
	assert.Equal(t, payload, rec.Body.Bytes())
}

func TestUploadErrors(t *testing.T) {
	router := newRouter(8)

	rec := testutil.DoRequest(router, httptest.NewRequest(http.MethodPost, "/packages", bytes.NewReader(make([]byte, 9))))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = testutil.DoRequest(router, httptest.NewRequest(http.MethodPost, "/packages", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/packages/"+blob.Locator([]byte("nope"))))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/packages/sha1:abc"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
