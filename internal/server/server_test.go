package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/user-service/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DBPath = filepath.Join(t.TempDir(), "server.db")
	cfg.JWTSecret = "server-test-secret-0123"
	cfg.BcryptCost = 4
	return cfg
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := New(context.Background(), testConfig(t), logger)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })
	return srv
}

func call(t *testing.T, h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestServer_UserLifecycle(t *testing.T) {
	h := newTestServer(t).Handler()

	rr := call(t, h, http.MethodPost, "/register", `{"name":"Ana","email":"a@x.com","password":"secret123"}`, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get("Content-Type"))

	rr = call(t, h, http.MethodPost, "/login", `{"email":"a@x.com","password":"secret123"}`, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &login))
	require.NotEmpty(t, login.Token)

	rr = call(t, h, http.MethodGet, "/me", "", login.Token)
	require.Equal(t, http.StatusOK, rr.Code)
	var me struct {
		ID    int64  `json:"id"`
		Email string `json:"email"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &me))
	assert.Equal(t, "a@x.com", me.Email)

	rr = call(t, h, http.MethodPatch, "/users/1", `{"name":"Ana Maria"}`, login.Token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = call(t, h, http.MethodGet, "/users", "", login.Token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Ana Maria")

	rr = call(t, h, http.MethodDelete, "/users/1", "", login.Token)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = call(t, h, http.MethodGet, "/users/1", "", login.Token)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestServer_PublicAndProtected(t *testing.T) {
	h := newTestServer(t).Handler()

	tests := []struct {
		method, path string
		wantStatus   int
	}{
		{http.MethodGet, "/", http.StatusOK},
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/users", http.StatusUnauthorized},
		{http.MethodGet, "/users/1", http.StatusUnauthorized},
		{http.MethodPut, "/users/1", http.StatusUnauthorized},
		{http.MethodPatch, "/users/1", http.StatusUnauthorized},
		{http.MethodDelete, "/users/1", http.StatusUnauthorized},
		{http.MethodGet, "/me", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rr := call(t, h, tt.method, tt.path, "", "")
			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}

func TestNew_FailsWhenRedisUnreachable(t *testing.T) {
	cfg := testConfig(t)
	// Reserve a port and close it so nothing is listening there.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	cfg.RedisAddr = ln.Addr().String()
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	srv, err := New(ctx, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
	assert.Nil(t, srv)
}

func TestNew_FailsOnBadDatabasePath(t *testing.T) {
	cfg := testConfig(t)
	cfg.DBPath = filepath.Join(t.TempDir(), "missing-dir", "users.db")

	srv, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
	assert.Nil(t, srv)
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	srv := newTestServer(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	// Serve closed the database.
	assert.Error(t, srv.db.Ping(context.Background()))
}
