// Package e2e drives the wired registry over HTTP with Gherkin scenarios.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"provenant/internal/app"
	jwttoken "provenant/internal/jwt_token"
	"provenant/internal/platform/config"
)

// AdminIdentity manages the authorized lab set in every scenario.
const AdminIdentity = "0xadmin"

// TestContext holds one scenario's registry and the last response.
type TestContext struct {
	base    config.Config
	app     *app.App
	server  *httptest.Server
	tokens  *jwttoken.JWTService
	client  *http.Client
	status  int
	body    []byte
	aliases map[string]string
}

func NewTestContext(base config.Config) *TestContext {
	return &TestContext{base: base, client: &http.Client{Timeout: 10 * time.Second}}
}

// StartRegistry boots an in-memory registry with the given finalize gate.
func (tc *TestContext) StartRegistry(gate string, required int) error {
	tc.Close()
	cfg := tc.base
	cfg.Policy.FinalizeGate = gate
	cfg.Policy.RequiredValidations = required
	cfg.Auth.AdminIdentity = AdminIdentity
	cfg.Storage.Driver = config.DriverMemory
	cfg.Storage.IdentityDriver = config.DriverMemory
	cfg.Blob.Driver = config.DriverMemory
	cfg.RateLimit.Driver = config.DriverMemory
	cfg.Kafka.Brokers = nil
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := app.Build(context.Background(), cfg, log, prometheus.NewRegistry())
	if err != nil {
		return fmt.Errorf("build registry: %w", err)
	}
	tc.app = a
	tc.server = httptest.NewServer(a.Router)
	tc.tokens = jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer, cfg.Auth.Audience)
	tc.aliases = map[string]string{}
	tc.status, tc.body = 0, nil
	return nil
}

func (tc *TestContext) Close() {
	if tc.server != nil {
		tc.server.Close()
		tc.server = nil
	}
	if tc.app != nil {
		tc.app.Close()
		tc.app = nil
	}
}

// Request sends body as JSON on behalf of identity. An empty identity sends
// no bearer token.
func (tc *TestContext) Request(method, path, identity string, body any) error {
	if tc.server == nil {
		return fmt.Errorf("registry is not running")
	}
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, tc.server.URL+tc.Expand(path), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if identity != "" {
		token, err := tc.tokens.GenerateToken(identity, time.Hour)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := tc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	tc.status = resp.StatusCode
	tc.body, err = io.ReadAll(resp.Body)
	return err
}

func (tc *TestContext) StatusCode() int { return tc.status }

func (tc *TestContext) ResponseBody() []byte { return tc.body }

// ResponseField reads a top level field of the last JSON response.
func (tc *TestContext) ResponseField(field string) (any, error) {
	var payload map[string]any
	if err := json.Unmarshal(tc.body, &payload); err != nil {
		return nil, fmt.Errorf("decode response %q: %w", tc.body, err)
	}
	v, ok := payload[field]
	if !ok {
		return nil, fmt.Errorf("field %q not in response %s", field, tc.body)
	}
	return v, nil
}

// Remember binds alias to value; paths may then reference it as {alias}.
func (tc *TestContext) Remember(alias, value string) {
	tc.aliases[alias] = value
}

func (tc *TestContext) Recall(alias string) (string, error) {
	v, ok := tc.aliases[alias]
	if !ok {
		return "", fmt.Errorf("nothing remembered as %q", alias)
	}
	return v, nil
}

// Expand substitutes remembered aliases in s.
func (tc *TestContext) Expand(s string) string {
	for alias, v := range tc.aliases {
		s = strings.ReplaceAll(s, "{"+alias+"}", v)
	}
	return s
}
