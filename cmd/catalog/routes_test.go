package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookstudio/internal/catalog"
	"bookstudio/internal/config"
	"bookstudio/internal/persistence/chaos"
	"bookstudio/internal/persistence/memory"
)

func newTestApp(t *testing.T, mutate func(*config.Config)) *application {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(&cfg)
	}
	return &application{
		config:  cfg,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		service: catalog.NewService(memory.New(), catalog.WithJournal(memory.NewJournal())),
		metrics: newHTTPMetrics(prometheus.NewRegistry()),
	}
}

func serveRequest(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRoutes(t *testing.T) {
	app := newTestApp(t, func(c *config.Config) { c.Limiter.Enabled = false })
	h := app.routes(t.Context())

	rec := serveRequest(h, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"available","environment":"development","database":"memory"}`, rec.Body.String())

	rec = serveRequest(h, http.MethodGet, "/api/genres", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = serveRequest(h, http.MethodPost, "/api/genres", `{"name":"Poetry"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = serveRequest(h, http.MethodGet, "/nowhere", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"errorType":"not_found"`)

	rec = serveRequest(h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Regexp(t, `bookstudio_http_requests_total\{method="POST",route="/api/genres/?",status="201"\} 1`, rec.Body.String())
}

func TestRateLimit(t *testing.T) {
	app := newTestApp(t, func(c *config.Config) {
		c.Limiter = config.Limiter{Enabled: true, RPS: 0.001, Burst: 2}
	})
	h := app.routes(t.Context())

	for range 2 {
		rec := serveRequest(h, http.MethodGet, "/healthz", "")
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := serveRequest(h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Another client has its own bucket.
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.RemoteAddr = "203.0.113.9:5000"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRecoverPanic(t *testing.T) {
	app := newTestApp(t, nil)
	h := app.recoverPanic(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := serveRequest(h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "close", rec.Header().Get("Connection"))
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestOpenStoreSQLite(t *testing.T) {
	ctx := context.Background()
	store, journal, closeStore, err := openStore(ctx, config.Database{
		Driver: "sqlite", URL: t.TempDir() + "/catalog.db",
	})
	require.NoError(t, err)
	defer closeStore()

	svc := catalog.NewService(store, catalog.WithJournal(journal))
	info, err := svc.Genres().Create(ctx, catalog.Genre{Name: "Essay"})
	require.NoError(t, err)
	changes, err := svc.History(ctx, catalog.KindGenre, info.ID)
	require.NoError(t, err)
	assert.Len(t, changes, 1)
}

func TestOpenBlobs(t *testing.T) {
	b, err := openBlobs(context.Background(), config.Blob{Driver: "none"})
	require.NoError(t, err)
	assert.Nil(t, b)

	b, err = openBlobs(context.Background(), config.Blob{Driver: "fs", Root: t.TempDir()})
	require.NoError(t, err)
	assert.NotNil(t, b)
}

func TestInjectFaults(t *testing.T) {
	ctx := context.Background()
	store, err := injectFaults(memory.New(), []config.Fault{
		{Type: "failure", Kind: "genres", Ops: []string{"list"}, BlastRadius: 1},
	})
	require.NoError(t, err)

	svc := catalog.NewService(store)
	_, err = svc.Genres().Create(ctx, catalog.Genre{Name: "Essay"})
	require.NoError(t, err)

	_, err = svc.Genres().List(ctx)
	require.ErrorIs(t, err, chaos.ErrInjected)
	assert.Equal(t, catalog.OutcomeFault, catalog.Classify(err))

	_, err = svc.Nationalities().List(ctx)
	assert.NoError(t, err)
}

func TestInjectFaultsRejectsBadFaults(t *testing.T) {
	_, err := injectFaults(memory.New(), []config.Fault{
		{Type: "failure", Kind: "dragons", BlastRadius: 1},
		{Type: "latency", Kind: "books", Ops: []string{"delete"}, BlastRadius: 0.5},
		{Type: "flood", BlastRadius: 2},
	})
	require.Error(t, err)
	assert.ErrorContains(t, err, "fault 0")
	assert.ErrorContains(t, err, "dragons")
	assert.ErrorContains(t, err, `unknown operation "delete"`)
	assert.ErrorContains(t, err, "positive latency")
	assert.ErrorContains(t, err, `unknown fault type "flood"`)
	assert.ErrorContains(t, err, "blast radius 2")
}
