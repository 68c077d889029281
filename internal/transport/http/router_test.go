package httptransport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwttoken "provenant/internal/jwt_token"
	"provenant/internal/platform/metrics"
	"provenant/pkg/requestcontext"
	"provenant/pkg/testutil"
)

type whoami struct{}

func (whoami) Register(r chi.Router) {
	r.Get("/whoami", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(requestcontext.Caller(r.Context())))
	})
}

func newTestRouter(t *testing.T, checks map[string]HealthCheck) (http.Handler, *jwttoken.JWTService, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	tokens := jwttoken.NewJWTService("test-key", "provenant", "provenant-api")
	router := NewRouter(Config{
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		Latency:        metrics.NewHTTP(reg),
		Gatherer:       reg,
		Tokens:         jwttoken.NewJWTServiceAdapter(tokens),
		AllowedOrigins: []string{"*"},
		HealthChecks:   checks,
		Modules:        []Module{whoami{}},
	})
	return router, tokens, reg
}

func TestAuthenticatedRoutes(t *testing.T) {
	router, tokens, _ := newTestRouter(t, nil)

	rec := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/whoami"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := tokens.GenerateToken("0xAlice", time.Hour)
	require.NoError(t, err)
	req := testutil.NewRequest(t, http.MethodGet, "/whoami")
	req.Header.Set("Authorization", "Bearer "+token)
	rec = testutil.DoRequest(router, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0xalice", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestHealth(t *testing.T) {
	router, _, _ := newTestRouter(t, map[string]HealthCheck{
		"postgres": func(context.Context) error { return nil },
	})
	rec := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/health"))
	assert.Equal(t, http.StatusOK, rec.Code)

	router, _, _ = newTestRouter(t, map[string]HealthCheck{
		"kafka": func(context.Context) error { return errors.New("no brokers") },
	})
	rec = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/health"))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "fail", testutil.UnmarshalResponse[healthResponse](t, rec).Checks["kafka"])
}

func TestMetricsExposeRouteLatency(t *testing.T) {
	router, _, _ := newTestRouter(t, nil)
	testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/whoami"))

	rec := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/metrics"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "provenant_http_requests_total")
}

func TestRateLimitRunsAfterAuth(t *testing.T) {
	reg := prometheus.NewRegistry()
	tokens := jwttoken.NewJWTService("test-key", "provenant", "provenant-api")
	var seen []string
	router := NewRouter(Config{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Latency:  metrics.NewHTTP(reg),
		Gatherer: reg,
		Tokens:   jwttoken.NewJWTServiceAdapter(tokens),
		RateLimit: func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = append(seen, string(requestcontext.Caller(r.Context())))
				w.WriteHeader(http.StatusTooManyRequests)
			})
		},
		Modules: []Module{whoami{}},
	})

	rec := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/whoami"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, seen)

	token, err := tokens.GenerateToken("0xBob", time.Hour)
	require.NoError(t, err)
	req := testutil.NewRequest(t, http.MethodGet, "/whoami")
	req.Header.Set("Authorization", "Bearer "+token)
	rec = testutil.DoRequest(router, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, []string{"0xbob"}, seen)

	rec = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/health"))
	assert.Equal(t, http.StatusOK, rec.Code, "health is not budgeted")
}
