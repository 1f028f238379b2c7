// internal/clients/catalog_client.go
package clients

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"bookstudio/internal/catalog"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// APIError is a non-2xx response decoded from the server's error body.
type APIError struct {
	StatusCode int               `json:"statusCode"`
	Message    string            `json:"message"`
	ErrorType  string            `json:"errorType"`
	Errors     map[string]string `json:"errors,omitempty"`
}

func (e *APIError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("catalog api: %d %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("catalog api: %d %s %v", e.StatusCode, e.Message, e.Errors)
}

// IsNotFound reports whether err is a 404 from the catalog API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// CatalogClient talks to the catalog API mounted under baseURL (for example
// http://localhost:8080/api).
type CatalogClient struct {
	baseURL string
	http    *http.Client
}

func NewCatalogClient(baseURL string, httpClient *http.Client) *CatalogClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &CatalogClient{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// Collection is the typed client of one entity kind.
type Collection[In, Row, Info any] struct {
	c    *CatalogClient
	kind catalog.Kind
}

func (c *CatalogClient) Nationalities() Collection[catalog.Nationality, catalog.NamedView, catalog.NamedView] {
	return Collection[catalog.Nationality, catalog.NamedView, catalog.NamedView]{c, catalog.KindNationality}
}

func (c *CatalogClient) Genres() Collection[catalog.Genre, catalog.NamedView, catalog.NamedView] {
	return Collection[catalog.Genre, catalog.NamedView, catalog.NamedView]{c, catalog.KindGenre}
}

func (c *CatalogClient) Faculties() Collection[catalog.Faculty, catalog.NamedView, catalog.NamedView] {
	return Collection[catalog.Faculty, catalog.NamedView, catalog.NamedView]{c, catalog.KindFaculty}
}

func (c *CatalogClient) Publishers() Collection[catalog.Publisher, catalog.PublisherRow, catalog.PublisherInfo] {
	return Collection[catalog.Publisher, catalog.PublisherRow, catalog.PublisherInfo]{c, catalog.KindPublisher}
}

func (c *CatalogClient) Courses() Collection[catalog.Course, catalog.CourseRow, catalog.CourseInfo] {
	return Collection[catalog.Course, catalog.CourseRow, catalog.CourseInfo]{c, catalog.KindCourse}
}

func (c *CatalogClient) Authors() Collection[catalog.Author, catalog.AuthorRow, catalog.AuthorInfo] {
	return Collection[catalog.Author, catalog.AuthorRow, catalog.AuthorInfo]{c, catalog.KindAuthor}
}

func (c *CatalogClient) Books() Collection[catalog.Book, catalog.BookRow, catalog.BookInfo] {
	return Collection[catalog.Book, catalog.BookRow, catalog.BookInfo]{c, catalog.KindBook}
}

func (c *CatalogClient) Locations() Collection[catalog.Location, catalog.LocationRow, catalog.LocationInfo] {
	return Collection[catalog.Location, catalog.LocationRow, catalog.LocationInfo]{c, catalog.KindLocation}
}

func (c *CatalogClient) Students() Collection[catalog.Student, catalog.StudentRow, catalog.StudentInfo] {
	return Collection[catalog.Student, catalog.StudentRow, catalog.StudentInfo]{c, catalog.KindStudent}
}

func (c *CatalogClient) Reservations() Collection[catalog.Reservation, catalog.ReservationRow, catalog.ReservationInfo] {
	return Collection[catalog.Reservation, catalog.ReservationRow, catalog.ReservationInfo]{c, catalog.KindReservation}
}

// List returns every record, newest first. An empty collection is an empty
// slice.
func (col Collection[In, Row, Info]) List(ctx context.Context) ([]Row, error) {
	rows := []Row{}
	if err := col.c.do(ctx, http.MethodGet, "/"+string(col.kind), nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (col Collection[In, Row, Info]) Get(ctx context.Context, id int64) (Info, error) {
	var info Info
	err := col.c.do(ctx, http.MethodGet, fmt.Sprintf("/%s/%d", col.kind, id), nil, &info)
	return info, err
}

func (col Collection[In, Row, Info]) Create(ctx context.Context, in In) (Info, error) {
	var out struct {
		Data Info `json:"data"`
	}
	err := col.c.do(ctx, http.MethodPost, "/"+string(col.kind), in, &out)
	return out.Data, err
}

func (col Collection[In, Row, Info]) Update(ctx context.Context, id int64, in In) (Info, error) {
	var out struct {
		Data Info `json:"data"`
	}
	err := col.c.do(ctx, http.MethodPut, fmt.Sprintf("/%s/%d", col.kind, id), in, &out)
	return out.Data, err
}

// FormOptions fetches the select views the kind's form depends on.
func (col Collection[In, Row, Info]) FormOptions(ctx context.Context) (catalog.Options, error) {
	opts := catalog.Options{}
	err := col.c.do(ctx, http.MethodGet, fmt.Sprintf("/%s/select-options", col.kind), nil, &opts)
	return opts, err
}

func (col Collection[In, Row, Info]) History(ctx context.Context, id int64) ([]catalog.Change, error) {
	changes := []catalog.Change{}
	err := col.c.do(ctx, http.MethodGet, fmt.Sprintf("/%s/%d/history", col.kind, id), nil, &changes)
	return changes, err
}

// SelectOptions fetches the named select views in one request. When none of
// them has an entry the result is empty.
func (c *CatalogClient) SelectOptions(ctx context.Context, names ...string) (catalog.Options, error) {
	opts := catalog.Options{}
	path := "/select-options?types=" + url.QueryEscape(strings.Join(names, ","))
	err := c.do(ctx, http.MethodGet, path, nil, &opts)
	return opts, err
}

// SetAuthorPhoto uploads an author photo of the given media type.
func (c *CatalogClient) SetAuthorPhoto(ctx context.Context, id int64, contentType string, photo io.Reader) (catalog.AuthorInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, fmt.Sprintf("%s/authors/%d/photo", c.baseURL, id), photo)
	if err != nil {
		return catalog.AuthorInfo{}, err
	}
	req.Header.Set("Content-Type", contentType)

	var out struct {
		Data catalog.AuthorInfo `json:"data"`
	}
	err = c.send(req, &out)
	return out.Data, err
}

func (c *CatalogClient) do(ctx context.Context, method, path string, body, dst any) error {
	var rd io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, dst)
}

// send executes req and decodes a 2xx body into dst. 204 leaves dst as is.
func (c *CatalogClient) send(req *http.Request, dst any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		apiErr.StatusCode = resp.StatusCode
		return apiErr
	}
	if resp.StatusCode == http.StatusNoContent || dst == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s %s: %w", req.Method, req.URL.Path, err)
	}
	return nil
}
