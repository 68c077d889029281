package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"provenant/internal/validator/models"
	"provenant/internal/validator/service"
	"provenant/internal/validator/store"
	id "provenant/pkg/domain"
	"provenant/pkg/requestcontext"
	"provenant/pkg/testutil"
)

func newRouter() http.Handler {
	svc := service.New(store.NewInMemory())
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, _ := id.OptionalIdentity(r.Header.Get("X-Test-Caller"))
			next.ServeHTTP(w, r.WithContext(requestcontext.WithCaller(r.Context(), caller)))
		})
	})
	New(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	return r
}

func register(t *testing.T, router http.Handler, caller string, body RegisterValidatorRequest) int {
	t.Helper()
	req := testutil.NewJSONRequest(t, http.MethodPost, "/validators", body)
	req.Header.Set("X-Test-Caller", caller)
	return testutil.DoRequest(router, req).Code
}

func TestRegisterValidator(t *testing.T) {
	router := newRouter()
	body := RegisterValidatorRequest{OrganizationName: "Structural Labs", CertificationNumber: "CERT-7"}

	assert.Equal(t, http.StatusCreated, register(t, router, "0xV1", body))
	assert.Equal(t, http.StatusConflict, register(t, router, "0xv1", body), "identities compare case-insensitively")
	assert.Equal(t, http.StatusUnauthorized, register(t, router, "", body))
	assert.Equal(t, http.StatusBadRequest, register(t, router, "0xv2", RegisterValidatorRequest{}))

	rec := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/validators/0xv1"))
	require.Equal(t, http.StatusOK, rec.Code)
	v := testutil.UnmarshalResponse[models.Validator](t, rec)
	assert.Equal(t, models.DefaultReputation, v.ReputationScore)
	assert.True(t, v.IsActive)

	rec = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/validators/0xnobody"))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/validators"))
	require.Equal(t, http.StatusOK, rec.Code)
	list := testutil.UnmarshalResponse[struct {
		Validators []models.Validator `json:"validators"`
	}](t, rec)
	assert.Len(t, list.Validators, 1)
}
