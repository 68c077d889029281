package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"provenant/internal/ratelimit/models"
	"provenant/pkg/requestcontext"
	"provenant/pkg/testutil"
)

type call struct {
	subject string
	class   models.Class
}

type stubLimiter struct {
	result *models.Result
	err    error
	calls  []call
}

func (l *stubLimiter) Check(_ context.Context, subject string, class models.Class) (*models.Result, error) {
	l.calls = append(l.calls, call{subject: subject, class: class})
	return l.result, l.err
}

type MiddlewareSuite struct {
	suite.Suite
	limiter *stubLimiter
	reached bool
	handler http.Handler
}

func TestMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(MiddlewareSuite))
}

func (s *MiddlewareSuite) SetupTest() {
	s.limiter = &stubLimiter{}
	s.reached = false
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.reached = true
		w.WriteHeader(http.StatusOK)
	})
	s.handler = New(s.limiter, logger).RateLimit(next)
}

func (s *MiddlewareSuite) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *MiddlewareSuite) TestAllowedRequestCarriesHeaders() {
	reset := time.Unix(1_800_000_000, 0)
	s.limiter.result = &models.Result{Allowed: true, Limit: 10, Remaining: 9, ResetAt: reset}

	req := testutil.WithCaller(httptest.NewRequest(http.MethodGet, "/passports/1", nil), "0xABC")
	rec := s.serve(req)

	s.True(s.reached)
	s.Equal("10", rec.Header().Get("X-RateLimit-Limit"))
	s.Equal("9", rec.Header().Get("X-RateLimit-Remaining"))
	s.Equal("1800000000", rec.Header().Get("X-RateLimit-Reset"))
	s.Equal([]call{{subject: "0xabc", class: models.ClassRead}}, s.limiter.calls)
}

func (s *MiddlewareSuite) TestDeniedRequest() {
	s.limiter.result = &models.Result{Allowed: false, Limit: 1, RetryAfter: 42, ResetAt: time.Now()}

	req := httptest.NewRequest(http.MethodPost, "/passports", nil)
	req = req.WithContext(requestcontext.WithClientIP(req.Context(), "10.0.0.1"))
	rec := s.serve(req)

	s.False(s.reached)
	s.Equal(http.StatusTooManyRequests, rec.Code)
	s.Equal("42", rec.Header().Get("Retry-After"))
	var body models.ExceededResponse
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&body))
	s.Equal("rate_limit_exceeded", body.Error)
	s.Equal(42, body.RetryAfter)
	s.Equal([]call{{subject: "ip:10.0.0.1", class: models.ClassWrite}}, s.limiter.calls)
}

func (s *MiddlewareSuite) TestLimiterErrorFailsOpen() {
	s.limiter.err = errors.New("boom")
	rec := s.serve(httptest.NewRequest(http.MethodGet, "/validators", nil))
	s.True(s.reached)
	s.Equal(http.StatusOK, rec.Code)
	s.Empty(rec.Header().Get("X-RateLimit-Limit"))
}

func (s *MiddlewareSuite) TestDisabled() {
	limiter := &stubLimiter{}
	h := New(limiter, slog.New(slog.NewTextHandler(io.Discard, nil)), WithDisabled(true)).
		RateLimit(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/passports", nil))
	s.Equal(http.StatusNoContent, rec.Code)
	s.Empty(limiter.calls)
}

func TestClassFor(t *testing.T) {
	cases := map[string]struct {
		method, path string
		want         models.Class
	}{
		"get":        {http.MethodGet, "/passports/1", models.ClassRead},
		"head":       {http.MethodHead, "/health", models.ClassRead},
		"upload":     {http.MethodPost, "/packages", models.ClassUpload},
		"create":     {http.MethodPost, "/passports", models.ClassWrite},
		"put":        {http.MethodPut, "/passports/1/locator", models.ClassWrite},
		"revoke lab": {http.MethodDelete, "/labs/0xabc", models.ClassWrite},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			require.NotNil(t, req)
			assert.Equal(t, tc.want, ClassFor(req))
		})
	}
}
