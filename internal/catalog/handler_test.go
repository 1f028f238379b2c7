package catalog_test

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookstudio/internal/catalog"
	"bookstudio/internal/persistence/memory"
)

func newTestServer(t *testing.T, svc catalog.Service) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Mount("/api", catalog.NewHandler(svc).Routes())
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts
}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func do(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

type errorBody struct {
	Success    bool              `json:"success"`
	Message    string            `json:"message"`
	ErrorType  string            `json:"errorType"`
	StatusCode int               `json:"statusCode"`
	Errors     map[string]string `json:"errors"`
}

func TestHandlerEmptyCatalog(t *testing.T) {
	ts := newTestServer(t, catalog.NewService(memory.New()))

	resp, body := do(t, http.MethodGet, ts.URL+"/api/books", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, body)

	resp, _ = do(t, http.MethodGet, ts.URL+"/api/select-options?types=authors,genres", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, ts.URL+"/api/books/select-options", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestHandlerCreateAndRead(t *testing.T) {
	f := newFixture(t)
	ts := newTestServer(t, f.svc)

	resp, body := do(t, http.MethodPost, ts.URL+"/api/genres", `{"name":"Poetry"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var created struct {
		Success bool              `json:"success"`
		Data    catalog.NamedView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &created))
	assert.True(t, created.Success)
	assert.Equal(t, "Poetry", created.Data.Name)

	resp, body = do(t, http.MethodGet, fmt.Sprintf("%s/api/genres/%d", ts.URL, created.Data.ID), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got catalog.NamedView
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, created.Data, got)

	resp, body = do(t, http.MethodGet, ts.URL+"/api/genres", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rows []catalog.NamedView
	require.NoError(t, json.Unmarshal(body, &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, created.Data.ID, rows[0].ID)

	resp, body = do(t, http.MethodGet, fmt.Sprintf("%s/api/books/%d", ts.URL, f.book), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"release_date":"1963-10-01"`)
	assert.Contains(t, string(body), `"author_name":"Mario Vargas Llosa"`)
}

func TestHandlerUpdate(t *testing.T) {
	f := newFixture(t)
	ts := newTestServer(t, f.svc)

	payload := fmt.Sprintf(`{"title":"Revised","total_copies":3,"release_date":"1963-10-01",
		"author_id":%d,"publisher_id":%d,"genre_id":%d,"course_id":null,"status":"inactive"}`,
		f.author, f.publisher, f.genre)
	resp, body := do(t, http.MethodPut, fmt.Sprintf("%s/api/books/%d", ts.URL, f.book), payload)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var updated struct {
		Success bool             `json:"success"`
		Data    catalog.BookInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, "Revised", updated.Data.Title)
	assert.Equal(t, catalog.StatusInactive, updated.Data.Status)

	resp, _ = do(t, http.MethodPut, ts.URL+"/api/books/999", payload)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandlerErrors(t *testing.T) {
	f := newFixture(t)
	ts := newTestServer(t, f.svc)

	tests := []struct {
		name      string
		method    string
		path      string
		body      string
		status    int
		errorType string
	}{
		{"missing record", http.MethodGet, "/api/authors/999", "", http.StatusNotFound, "not_found"},
		{"bad id", http.MethodGet, "/api/authors/abc", "", http.StatusBadRequest, "bad_request"},
		{"zero id", http.MethodGet, "/api/authors/0", "", http.StatusBadRequest, "bad_request"},
		{"empty body", http.MethodPost, "/api/genres", "", http.StatusBadRequest, "bad_request"},
		{"malformed body", http.MethodPost, "/api/genres", `{"name":`, http.StatusBadRequest, "bad_request"},
		{"unknown field", http.MethodPost, "/api/genres", `{"name":"x","color":"red"}`, http.StatusBadRequest, "bad_request"},
		{"two values", http.MethodPost, "/api/genres", `{"name":"x"}{"name":"y"}`, http.StatusBadRequest, "bad_request"},
		{"bad date", http.MethodPost, "/api/authors", `{"name":"x","birth_date":"yesterday"}`, http.StatusBadRequest, "bad_request"},
		{"invalid", http.MethodPost, "/api/genres", `{"name":"   "}`, http.StatusUnprocessableEntity, "validation_failed"},
		{"unknown select view", http.MethodGet, "/api/select-options?types=genres,spaceships", "", http.StatusBadRequest, "bad_request"},
		{"missing types", http.MethodGet, "/api/select-options", "", http.StatusBadRequest, "bad_request"},
		{"history of missing record", http.MethodGet, "/api/genres/999/history", "", http.StatusNotFound, "not_found"},
		{"photos disabled", http.MethodGet, fmt.Sprintf("/api/authors/%d/photo", f.author), "", http.StatusServiceUnavailable, "unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, tt.method, ts.URL+tt.path, tt.body)
			require.Equal(t, tt.status, resp.StatusCode, string(body))

			var e errorBody
			require.NoError(t, json.Unmarshal(body, &e))
			assert.False(t, e.Success)
			assert.Equal(t, tt.status, e.StatusCode)
			assert.Equal(t, tt.errorType, e.ErrorType)
			assert.NotEmpty(t, e.Message)
		})
	}
}

func TestHandlerValidationBody(t *testing.T) {
	f := newFixture(t)
	ts := newTestServer(t, f.svc)

	payload := fmt.Sprintf(`{"title":"Orphan","total_copies":1,"release_date":"2001-01-01",
		"author_id":999,"publisher_id":%d,"genre_id":%d,"status":"active"}`, f.publisher, f.genre)
	resp, body := do(t, http.MethodPost, ts.URL+"/api/books", payload)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var e errorBody
	require.NoError(t, json.Unmarshal(body, &e))
	assert.Equal(t, "Book failed validation.", e.Message)
	assert.Equal(t, map[string]string{"author_id": "author not found"}, e.Errors)
}

func TestHandlerIntegrityFaultHidesDetails(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.Students().Insert(t.Context(), catalog.Student{
		DNI: "80000000", FirstName: "Ghost", LastName: "Student", Email: "ghost@uni.edu.pe",
		FacultyID: 404, Status: catalog.StatusActive,
	})
	require.NoError(t, err)
	ts := newTestServer(t, f.svc)

	resp, body := do(t, http.MethodGet, ts.URL+"/api/students", "")
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.NotContains(t, string(body), "faculty")

	var e errorBody
	require.NoError(t, json.Unmarshal(body, &e))
	assert.Equal(t, "server_error", e.ErrorType)
}

func TestHandlerSelectOptions(t *testing.T) {
	f := newFixture(t)
	ts := newTestServer(t, f.svc)

	resp, body := do(t, http.MethodGet, ts.URL+"/api/select-options?types=genres,%20faculties", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var opts catalog.Options
	require.NoError(t, json.Unmarshal(body, &opts))
	assert.Equal(t, catalog.Options{
		"genres":    {{ID: f.genre, Name: "Novel"}},
		"faculties": {{ID: f.faculty, Name: "Engineering"}},
	}, opts)

	resp, body = do(t, http.MethodGet, ts.URL+"/api/students/select-options", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	opts = nil
	require.NoError(t, json.Unmarshal(body, &opts))
	assert.Equal(t, catalog.Options{"faculties": {{ID: f.faculty, Name: "Engineering"}}}, opts)
}

func TestHandlerHistory(t *testing.T) {
	f := newFixture(t)
	ts := newTestServer(t, f.svc)

	resp, body := do(t, http.MethodGet, fmt.Sprintf("%s/api/students/%d/history", ts.URL, f.student), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var changes []catalog.Change
	require.NoError(t, json.NewDecoder(bytes.NewReader(body)).Decode(&changes))
	require.Len(t, changes, 1)
	assert.Equal(t, catalog.ActionCreated, changes[0].Action)
	assert.Equal(t, f.student, changes[0].EntityID)
}
