package main

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookstudio/internal/catalog"
	"bookstudio/internal/clients"
	"bookstudio/internal/persistence/memory"
)

func TestSeedIsRerunnable(t *testing.T) {
	ctx := context.Background()
	svc := catalog.NewService(memory.New())
	r := chi.NewRouter()
	r.Mount("/api", catalog.NewHandler(svc).Routes())
	ts := httptest.NewServer(r)
	defer ts.Close()

	c := clients.NewCatalogClient(ts.URL+"/api", ts.Client())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	require.NoError(t, seed(ctx, c, logger))
	require.NoError(t, seed(ctx, c, logger))

	books, err := svc.Books().List(ctx)
	require.NoError(t, err)
	assert.Len(t, books, 3)

	authors, err := svc.Authors().List(ctx)
	require.NoError(t, err)
	assert.Len(t, authors, 3)

	reservations, err := svc.Reservations().List(ctx)
	require.NoError(t, err)
	require.Len(t, reservations, 1)
	assert.Equal(t, "Ana Quispe", reservations[0].StudentName)

	opts, err := svc.FormOptions(ctx, catalog.KindBook)
	require.NoError(t, err)
	assert.Len(t, opts["courses"], 1)
}
