// internal/catalog/handler.go
package catalog

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"bookstudio/internal/ctxlog"
)

const (
	maxBodyBytes  = 1 << 20
	maxPhotoBytes = 5 << 20
)

// envelope wraps successful mutation responses.
type envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// apiError is the body of every error response.
type apiError struct {
	Success    bool              `json:"success"`
	Message    string            `json:"message"`
	ErrorType  string            `json:"errorType"`
	StatusCode int               `json:"statusCode"`
	Errors     map[string]string `json:"errors,omitempty"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the catalog API. It is meant to be mounted under /api.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	mount(h, r, KindNationality, h.service.Nationalities(), nil)
	mount(h, r, KindGenre, h.service.Genres(), nil)
	mount(h, r, KindFaculty, h.service.Faculties(), nil)
	mount(h, r, KindPublisher, h.service.Publishers(), nil)
	mount(h, r, KindCourse, h.service.Courses(), nil)
	mount(h, r, KindAuthor, h.service.Authors(), func(r chi.Router) {
		r.Put("/{id}/photo", h.handlePutPhoto)
		r.Get("/{id}/photo", h.handleGetPhoto)
	})
	mount(h, r, KindBook, h.service.Books(), nil)
	mount(h, r, KindLocation, h.service.Locations(), nil)
	mount(h, r, KindStudent, h.service.Students(), nil)
	mount(h, r, KindReservation, h.service.Reservations(), nil)

	r.Get("/select-options", h.handleSelectOptions)
	return r
}

// mount registers the standard routes of one kind, plus any extra ones.
func mount[In, Row, Info any](h *Handler, r chi.Router, kind Kind, res Resource[In, Row, Info], extra func(chi.Router)) {
	r.Route("/"+string(kind), func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			rows, err := res.List(r.Context())
			if err != nil {
				h.fail(w, r, kind, err)
				return
			}
			if len(rows) == 0 {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			h.writeJSON(w, r, http.StatusOK, rows)
		})

		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			var in In
			if err := readJSON(w, r, &in); err != nil {
				h.badRequest(w, r, err)
				return
			}
			info, err := res.Create(r.Context(), in)
			if err != nil {
				h.fail(w, r, kind, err)
				return
			}
			h.writeJSON(w, r, http.StatusCreated, envelope{Success: true, Data: info})
		})

		r.Get("/select-options", func(w http.ResponseWriter, r *http.Request) {
			opts, err := h.service.FormOptions(r.Context(), kind)
			if err != nil {
				h.fail(w, r, kind, err)
				return
			}
			h.writeOptions(w, r, opts)
		})

		r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, err := readID(r)
			if err != nil {
				h.badRequest(w, r, err)
				return
			}
			info, err := res.Get(r.Context(), id)
			if err != nil {
				h.fail(w, r, kind, err)
				return
			}
			h.writeJSON(w, r, http.StatusOK, info)
		})

		r.Put("/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, err := readID(r)
			if err != nil {
				h.badRequest(w, r, err)
				return
			}
			var in In
			if err := readJSON(w, r, &in); err != nil {
				h.badRequest(w, r, err)
				return
			}
			info, err := res.Update(r.Context(), id, in)
			if err != nil {
				h.fail(w, r, kind, err)
				return
			}
			h.writeJSON(w, r, http.StatusOK, envelope{Success: true, Data: info})
		})

		r.Get("/{id}/history", func(w http.ResponseWriter, r *http.Request) {
			id, err := readID(r)
			if err != nil {
				h.badRequest(w, r, err)
				return
			}
			changes, err := h.service.History(r.Context(), kind, id)
			if err != nil {
				h.fail(w, r, kind, err)
				return
			}
			h.writeJSON(w, r, http.StatusOK, changes)
		})

		if extra != nil {
			extra(r)
		}
	})
}

func (h *Handler) handleSelectOptions(w http.ResponseWriter, r *http.Request) {
	var names []string
	for _, name := range strings.Split(r.URL.Query().Get("types"), ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		h.badRequest(w, r, errors.New("types query parameter is required"))
		return
	}
	opts, err := h.service.SelectOptions(r.Context(), names...)
	if err != nil {
		h.fail(w, r, "", err)
		return
	}
	h.writeOptions(w, r, opts)
}

func (h *Handler) writeOptions(w http.ResponseWriter, r *http.Request, opts Options) {
	if !opts.Present() {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.writeJSON(w, r, http.StatusOK, opts)
}

func (h *Handler) handlePutPhoto(w http.ResponseWriter, r *http.Request) {
	id, err := readID(r)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}
	body := http.MaxBytesReader(w, r.Body, maxPhotoBytes)
	info, err := h.service.SetAuthorPhoto(r.Context(), id, r.Header.Get("Content-Type"), body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.errorResponse(w, r, http.StatusRequestEntityTooLarge, "Photo exceeds the upload limit.", "payload_too_large", nil)
			return
		}
		h.fail(w, r, KindAuthor, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, envelope{Success: true, Data: info})
}

func (h *Handler) handleGetPhoto(w http.ResponseWriter, r *http.Request) {
	id, err := readID(r)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}
	info, rc, err := h.service.AuthorPhoto(r.Context(), id)
	if err != nil {
		h.fail(w, r, KindAuthor, err)
		return
	}
	defer rc.Close()

	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	}
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	if info.ETag != "" {
		w.Header().Set("ETag", strconv.Quote(info.ETag))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		ctxlog.FromContext(r.Context()).Warn("stream author photo", "id", id, "error", err)
	}
}

func readID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		return 0, errors.New("invalid id parameter")
	}
	return id, nil
}

// readJSON decodes exactly one JSON value, rejecting unknown fields.
func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := codec.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("body must not be empty")
		}
		return fmt.Errorf("malformed JSON body: %w", err)
	}
	if dec.More() {
		return errors.New("body must only contain a single JSON value")
	}
	return nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	js, err := codec.Marshal(data)
	if err != nil {
		ctxlog.FromContext(r.Context()).Error("encode response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(js, '\n'))
}

func (h *Handler) errorResponse(w http.ResponseWriter, r *http.Request, status int, message, errorType string, fields map[string]string) {
	h.writeJSON(w, r, status, apiError{
		Success:    false,
		Message:    message,
		ErrorType:  errorType,
		StatusCode: status,
		Errors:     fields,
	})
}

func (h *Handler) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	h.errorResponse(w, r, http.StatusBadRequest, err.Error(), "bad_request", nil)
}

// fail maps a service error to its response. Faults are logged; their
// details never reach the client.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, kind Kind, err error) {
	if errors.Is(err, ErrPhotosDisabled) {
		h.errorResponse(w, r, http.StatusServiceUnavailable, "Photo storage is not configured.", "unavailable", nil)
		return
	}

	subject := "Record"
	if kind != "" {
		subject = capitalize(kind.Singular())
	}
	switch outcome := Classify(err); outcome {
	case OutcomeNotFound:
		h.errorResponse(w, r, http.StatusNotFound, subject+" not found.", outcome.String(), nil)
	case OutcomeInvalid:
		var verr *ValidationError
		if errors.As(err, &verr) {
			h.errorResponse(w, r, http.StatusUnprocessableEntity, subject+" failed validation.", outcome.String(), verr.Errors)
			return
		}
		h.errorResponse(w, r, http.StatusBadRequest, err.Error(), "bad_request", nil)
	default:
		ctxlog.FromContext(r.Context()).Error("request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		h.errorResponse(w, r, http.StatusInternalServerError,
			"The server encountered a problem and could not process your request.", outcome.String(), nil)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
