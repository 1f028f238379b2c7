package catalog_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookstudio/internal/blob"
	"bookstudio/internal/blob/fs"
	"bookstudio/internal/catalog"
)

func newPhotoFixture(t *testing.T) (*fixture, *fs.Store) {
	t.Helper()
	blobs, err := fs.New(t.TempDir())
	require.NoError(t, err)
	return newFixture(t, catalog.WithBlobStore(blobs)), blobs
}

func TestSetAuthorPhotoReplacesPrevious(t *testing.T) {
	ctx := context.Background()
	f, blobs := newPhotoFixture(t)

	first, err := f.svc.SetAuthorPhoto(ctx, f.author, "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(first.PhotoURL, fmt.Sprintf("authors/%d/", f.author)))
	assert.True(t, strings.HasSuffix(first.PhotoURL, ".png"))

	second, err := f.svc.SetAuthorPhoto(ctx, f.author, "image/jpeg; charset=binary", strings.NewReader("jpeg-bytes"))
	require.NoError(t, err)
	assert.NotEqual(t, first.PhotoURL, second.PhotoURL)

	_, err = blobs.Head(ctx, first.PhotoURL)
	assert.ErrorIs(t, err, blob.ErrNotFound)

	info, rc, err := f.svc.AuthorPhoto(ctx, f.author)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))
	assert.Equal(t, "image/jpeg", info.ContentType)

	changes, err := f.svc.History(ctx, catalog.KindAuthor, f.author)
	require.NoError(t, err)
	assert.Len(t, changes, 3)
}

func TestSetAuthorPhotoRejectsUnsupportedType(t *testing.T) {
	f, _ := newPhotoFixture(t)

	_, err := f.svc.SetAuthorPhoto(context.Background(), f.author, "application/pdf", strings.NewReader("%PDF"))
	assert.Equal(t, map[string]string{"photo": "must be a jpeg, png, webp or gif image"}, validationErrors(t, err))

	_, err = f.svc.SetAuthorPhoto(context.Background(), 999, "image/png", strings.NewReader("x"))
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestSetAuthorPhotoRejectsEmptyBody(t *testing.T) {
	ctx := context.Background()
	f, _ := newPhotoFixture(t)

	_, err := f.svc.SetAuthorPhoto(ctx, f.author, "image/png", strings.NewReader(""))
	assert.Equal(t, map[string]string{"photo": "must not be empty"}, validationErrors(t, err))

	author, err := f.svc.Authors().Get(ctx, f.author)
	require.NoError(t, err)
	assert.Empty(t, author.PhotoURL)
}

func TestAuthorUpdateDropsUnreferencedPhoto(t *testing.T) {
	ctx := context.Background()
	f, blobs := newPhotoFixture(t)

	withPhoto, err := f.svc.SetAuthorPhoto(ctx, f.author, "image/webp", strings.NewReader("webp-bytes"))
	require.NoError(t, err)
	_, err = blobs.Head(ctx, withPhoto.PhotoURL)
	require.NoError(t, err)

	in := catalog.Author{
		Name: withPhoto.Name, NationalityID: f.nationality, GenreID: f.genre,
		BirthDate: withPhoto.BirthDate, Biography: "Nobel laureate.", Status: catalog.StatusActive,
		PhotoURL: withPhoto.PhotoURL,
	}
	_, err = f.svc.Authors().Update(ctx, f.author, in)
	require.NoError(t, err)
	_, err = blobs.Head(ctx, withPhoto.PhotoURL)
	require.NoError(t, err, "an update keeping the reference keeps the photo")

	in.PhotoURL = ""
	updated, err := f.svc.Authors().Update(ctx, f.author, in)
	require.NoError(t, err)
	assert.Empty(t, updated.PhotoURL)
	_, err = blobs.Head(ctx, withPhoto.PhotoURL)
	assert.ErrorIs(t, err, blob.ErrNotFound)

	_, _, err = f.svc.AuthorPhoto(ctx, f.author)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestAuthorPhotoMissing(t *testing.T) {
	f, _ := newPhotoFixture(t)

	_, _, err := f.svc.AuthorPhoto(context.Background(), f.author)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestHandlerPhotoRoundTrip(t *testing.T) {
	f, _ := newPhotoFixture(t)
	ts := newTestServer(t, f.svc)
	url := fmt.Sprintf("%s/api/authors/%d/photo", ts.URL, f.author)

	req, err := http.NewRequest(http.MethodPut, url, bytes.NewReader([]byte("gif89a")))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "image/gif")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := do(t, http.MethodGet, url, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/gif", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get("ETag"))
	assert.Equal(t, "gif89a", string(body))

	// Served in-process so the oversized body is never half-written to a
	// closed connection.
	r := chi.NewRouter()
	r.Mount("/api", catalog.NewHandler(f.svc).Routes())
	big := bytes.Repeat([]byte{0xff}, 5<<20+1)
	req = httptest.NewRequest(http.MethodPut, fmt.Sprintf("/api/authors/%d/photo", f.author), bytes.NewReader(big))
	req.Header.Set("Content-Type", "image/jpeg")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
