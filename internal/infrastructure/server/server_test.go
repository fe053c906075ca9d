package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/GriffinCanCode/AgentDesk/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentDesk/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentDesk/backend/internal/infrastructure/storage"
)

func newTestServer(t *testing.T) (*Server, *config.Config) {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.Path = filepath.Join(t.TempDir(), "agentdesk.db")
	cfg.Server.Port = "0"
	cfg.Logging.Development = true

	srv, err := NewServer(cfg, logging.Nop())
	require.NoError(t, err)
	return srv, cfg
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
	return w
}

func TestRoutesMounted(t *testing.T) {
	srv, _ := newTestServer(t)
	t.Cleanup(func() { _ = srv.Shutdown() })

	assert.Equal(t, http.StatusOK, get(t, srv.Router(), "/health").Code)
	assert.Equal(t, http.StatusOK, get(t, srv.Router(), "/presets").Code)

	w := get(t, srv.Router(), "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "agentdesk_http_requests_total")

	// Plain GET without the upgrade headers is refused by the upgrader.
	assert.Equal(t, http.StatusBadRequest, get(t, srv.Router(), "/stream").Code)
}

func TestStartMarksStaleSessionsStopped(t *testing.T) {
	srv, cfg := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, srv.store.SaveSession(ctx, storage.SavedSession{ID: "old", Command: "bash", Status: storage.StatusRunning}))
	require.NoError(t, srv.Start(ctx, false))
	require.NoError(t, srv.Shutdown())

	store, err := storage.Open(cfg.Storage.Path, nil, storage.Options{})
	require.NoError(t, err)
	defer store.Close()

	saved, err := store.GetSavedSession(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, storage.StatusStopped, saved.Status)
}

func TestStartRestoresSavedSessions(t *testing.T) {
	if _, err := os.Stat("/dev/ptmx"); err != nil {
		t.Skip("pseudo-terminals not available")
	}
	cfg := config.Default()
	cfg.Storage.Path = filepath.Join(t.TempDir(), "agentdesk.db")
	cfg.Server.Port = "0"

	core, logs := observer.New(zapcore.InfoLevel)
	srv, err := NewServer(cfg, &logging.Logger{Logger: zap.New(core)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown() })

	ctx := context.Background()
	require.NoError(t, srv.store.SaveSession(ctx, storage.SavedSession{
		ID:      "keep",
		Command: "/bin/sh",
		Args:    []string{"-c", "cat"},
		Status:  storage.StatusRunning,
	}))
	require.NoError(t, srv.Start(ctx, true))

	assert.Equal(t, []string{"keep"}, srv.launcher.List())
	restored := logs.FilterMessage("Session restored").All()
	require.Len(t, restored, 1)
	assert.Equal(t, "keep", restored[0].ContextMap()["session_id"])
}

func TestRunStopsWhenContextEnds(t *testing.T) {
	srv, _ := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- srv.Run(ctx) }()

	cancel()
	assert.NoError(t, <-errc)
}
