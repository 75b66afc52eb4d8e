package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smolkov/gridchat-server/internal/auth"
	"github.com/smolkov/gridchat-server/internal/config"
	"github.com/smolkov/gridchat-server/internal/core"
	"github.com/smolkov/gridchat-server/internal/log"
	"github.com/smolkov/gridchat-server/internal/store"
	"github.com/smolkov/gridchat-server/internal/store/sqlite"
)

// createTestStore creates an in-memory SQLite store with schema applied.
func createTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// createTestAuthService creates an auth service for testing.
func createTestAuthService(t *testing.T, st store.Store, jwtSecret string) *auth.Service {
	t.Helper()

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(jwtSecret),
		Issuer:   "test",
		Audience: "test",
		TTL:      24 * time.Hour,
	}

	return auth.NewService(st, jwtConfig)
}

type testEnv struct {
	ts    *httptest.Server
	store store.Store
	auth  *auth.Service
	hub   *core.Hub
}

func startTestServer(t *testing.T) *testEnv {
	t.Helper()

	st := createTestStore(t)
	authSvc := createTestAuthService(t, st, "test-secret")

	logger := log.New("error")
	hub := core.NewHub(st, NewVerifier(authSvc), nil, nil, logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	cfg := config.Default()
	cfg.Uploads.Dir = t.TempDir()
	cfg.RateLimit.Enabled = false

	server := NewServer(hub, st, authSvc, cfg, nil, logger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, store: st, auth: authSvc, hub: hub}
}

// registerUser registers a user over the REST API and returns the token.
func (e *testEnv) registerUser(t *testing.T, username, password string) string {
	t.Helper()

	body, _ := json.Marshal(RegisterRequest{Username: username, Password: password})
	resp, err := e.ts.Client().Post(e.ts.URL+"/api/register", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("register request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 201 {
		t.Fatalf("register %q: unexpected status %d", username, resp.StatusCode)
	}

	var auth AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	return auth.Token
}

// makeGroupWithChannel seeds a group and channel directly through the
// store and returns the group ID.
func (e *testEnv) makeGroupWithChannel(t *testing.T, ownerName, groupName, channel string) int64 {
	t.Helper()

	ctx := context.Background()
	owner, err := e.store.GetUserByUsername(ctx, ownerName)
	if err != nil {
		t.Fatalf("lookup owner: %v", err)
	}
	group, err := e.store.CreateGroup(ctx, groupName, owner.ID)
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	if _, err := e.store.CreateChannel(ctx, group.ID, channel); err != nil {
		t.Fatalf("create channel: %v", err)
	}
	return group.ID
}
