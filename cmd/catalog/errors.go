package main

import (
	"net/http"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func (app *application) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	js, err := json.Marshal(data)
	if err != nil {
		app.logger.Error("encode response", "path", r.URL.Path, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(js, '\n'))
}

// errorResponse writes the same error body the catalog API uses.
func (app *application) errorResponse(w http.ResponseWriter, r *http.Request, status int, message, errorType string) {
	app.writeJSON(w, r, status, map[string]any{
		"success":    false,
		"message":    message,
		"errorType":  errorType,
		"statusCode": status,
	})
}

func (app *application) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	app.errorResponse(w, r, http.StatusInternalServerError,
		"The server encountered a problem and could not process your request.", "server_error")
}

func (app *application) rateLimitExceededResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusTooManyRequests, "Rate limit exceeded.", "rate_limited")
}
