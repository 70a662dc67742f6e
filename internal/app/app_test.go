package app

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig(t *testing.T) *Config {
	t.Helper()
	setRequiredEnv(t)
	t.Setenv("USER_BACKEND", BackendMemory)
	t.Setenv("TOKEN_BACKEND", BackendMemory)
	t.Setenv("BCRYPT_COST", "4")
	t.Setenv("HASH_POOL_SIZE", "2")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	return cfg
}

func TestNewWithMemoryBackends(t *testing.T) {
	cfg := memoryConfig(t)

	a, err := New(context.Background(), cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(a.Close)

	h := a.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register",
		strings.NewReader(`{"name":"Ann","email":"ann@example.com","password":"secret1"}`))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "authcore_register_success_total 1")
}

func TestNewWithRedisTokensAndQueueNotifier(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := memoryConfig(t)
	cfg.TokenBackend = BackendRedis
	cfg.Notifier = NotifierQueue
	cfg.RedisAddr = mr.Addr()

	a, err := New(context.Background(), cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(a.Close)
	require.NotNil(t, a.Engine)
}

func TestNewFailsWhenRedisIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := memoryConfig(t)
	cfg.TokenBackend = BackendRedis
	cfg.RedisAddr = addr

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := New(ctx, cfg, slog.New(slog.DiscardHandler))
	assert.Error(t, err)
}

func TestServerUsesConfiguredTimeouts(t *testing.T) {
	cfg := memoryConfig(t)
	a, err := New(context.Background(), cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(a.Close)

	srv := a.Server()
	assert.Equal(t, cfg.HTTPAddr, srv.Addr)
	assert.Equal(t, cfg.ReadTimeout, srv.ReadTimeout)
	assert.Equal(t, cfg.WriteTimeout, srv.WriteTimeout)
}

func TestRunSweeperStopsOnCancel(t *testing.T) {
	cfg := memoryConfig(t)
	a, err := New(context.Background(), cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(a.Close)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.RunSweeper(ctx, 5*time.Millisecond) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestNewWorkerBuildsFromConfig(t *testing.T) {
	cfg := memoryConfig(t)
	w, err := NewWorker(cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	assert.NotNil(t, w)
}
