package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"provenant/internal/platform/config"
	"provenant/pkg/testutil"
)

func loadConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	return cfg
}

func TestBuildInMemory(t *testing.T) {
	cfg := loadConfig(t)
	a, err := Build(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), prometheus.NewRegistry())
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.Nil(t, a.Relay, "relay stays off without brokers")

	rec := testutil.DoRequest(a.Router, testutil.NewRequest(t, http.MethodGet, "/health"))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = testutil.DoRequest(a.Router, testutil.NewRequest(t, http.MethodGet, "/passports/1"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBuildRejectsBadAdminIdentity(t *testing.T) {
	cfg := loadConfig(t)
	cfg.Auth.AdminIdentity = "not an identity"
	_, err := Build(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), prometheus.NewRegistry())
	assert.Error(t, err)
}

func TestLateGateBeforeWiring(t *testing.T) {
	g := &lateGate{}
	assert.Error(t, g.CheckFinalize(context.Background(), 1))
}
