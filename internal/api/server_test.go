package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamokeah/shamzam/internal/catalog"
	"github.com/adamokeah/shamzam/internal/codec"
	"github.com/adamokeah/shamzam/internal/conf"
	"github.com/adamokeah/shamzam/internal/errors"
	"github.com/adamokeah/shamzam/internal/observability"
	"github.com/adamokeah/shamzam/internal/reconcile"
	"github.com/adamokeah/shamzam/internal/service"
	"github.com/adamokeah/shamzam/internal/testutil"
)

// stubService serves a fixed catalog and fails listing when listErr is set.
type stubService struct {
	tracks  []catalog.TrackInfo
	listErr error
}

func (s *stubService) AddTrack(context.Context, string, string, codec.RawBytes) (uint, error) {
	return 1, nil
}

func (s *stubService) AddEncodedTrack(context.Context, string, string, string) (uint, error) {
	return 1, nil
}

func (s *stubService) ListTracks(context.Context) ([]catalog.TrackInfo, error) {
	return s.tracks, s.listErr
}

func (s *stubService) CountTracks(context.Context) (int64, error) {
	return int64(len(s.tracks)), nil
}

func (s *stubService) DeleteTrack(context.Context, service.DeleteRequest) (int64, error) {
	return 0, nil
}

func (s *stubService) Recognize(context.Context, codec.RawBytes) (reconcile.Outcome, error) {
	return reconcile.Outcome{Kind: reconcile.Unrecognized}, nil
}

func (s *stubService) Reset(context.Context) error { return nil }

func TestServerRoutes(t *testing.T) {
	t.Parallel()

	m, err := observability.NewMetrics()
	require.NoError(t, err)

	svc := &stubService{tracks: []catalog.TrackInfo{{ID: 1, Title: "Blinding Lights", Artist: "The Weeknd"}}}
	srv := New(Config{MaxUploadSize: 1 << 20}, svc, WithMetrics(m))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tracks", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "shamzam_http_requests_total")
	assert.Contains(t, rec.Body.String(), `route="/api/v1/tracks"`)
}

func TestServerRequestIDPropagates(t *testing.T) {
	t.Parallel()

	svc := &stubService{listErr: errors.Newf("database is locked").Category(errors.CategoryStorage).Build()}
	srv := New(Config{}, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tracks", http.NoBody)
	req.Header.Set(echo.HeaderXRequestID, "client-supplied")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "client-supplied", rec.Header().Get(echo.HeaderXRequestID))
	assert.Contains(t, rec.Body.String(), `"correlation_id":"client-supplied"`)
	assert.Contains(t, rec.Body.String(), `"error_kind":"storage"`)
}

func TestServerNoMetricsRoute(t *testing.T) {
	t.Parallel()

	srv := New(Config{}, &stubService{})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServerRun(t *testing.T) {
	t.Parallel()

	srv := New(Config{Listen: "127.0.0.1:0", ShutdownTimeout: time.Second}, &stubService{})

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	require.Eventually(t, func() bool { return srv.Addr() != nil }, testutil.DefaultTestTimeout, 10*time.Millisecond)

	resp, err := http.Get(fmt.Sprintf("http://%s/api/v1/health", srv.Addr()))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"healthy"`)

	cancel()
	assert.NoError(t, testutil.WaitForError(t, done, testutil.DefaultTestTimeout, "server did not shut down"))
}

func TestConfigFromSettings(t *testing.T) {
	t.Parallel()

	settings := &conf.Settings{}
	settings.Server.Listen = ":8080"
	settings.Server.AllowReset = true
	settings.Server.MaxUploadSize = 1024
	settings.Server.ShutdownTimeout = 3 * time.Second

	cfg := ConfigFromSettings(settings)
	assert.Equal(t, ":8080", cfg.Listen)
	assert.True(t, cfg.AllowReset)
	assert.Equal(t, int64(1024), cfg.MaxUploadSize)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
}
