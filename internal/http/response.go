// This file holds the JSON response builder and the error mapping.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"familyledger/internal/core"
	applog "familyledger/internal/log"
)

// JSONResponse provides a fluent API for building JSON responses.
type JSONResponse struct {
	statusCode int
	headers    map[string]string
	body       any
}

// NewJSONResponse creates a builder with a 200 status.
func NewJSONResponse() *JSONResponse {
	return &JSONResponse{statusCode: http.StatusOK, headers: make(map[string]string)}
}

func (b *JSONResponse) Status(code int) *JSONResponse {
	b.statusCode = code
	return b
}

func (b *JSONResponse) Header(name, value string) *JSONResponse {
	b.headers[name] = value
	return b
}

func (b *JSONResponse) Body(v any) *JSONResponse {
	b.body = v
	return b
}

// Write sends the built response. A body that fails to encode becomes a 500.
func (b *JSONResponse) Write(w http.ResponseWriter) {
	payload, err := json.Marshal(b.body)
	if err != nil {
		b.statusCode = http.StatusInternalServerError
		payload = []byte(`{"error":"failed to encode response"}`)
	}
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(payload)
	_, _ = w.Write([]byte("\n"))
}

type errorBody struct {
	Error string `json:"error"`
}

// statusFor maps engine errors onto HTTP statuses.
func statusFor(err error) int {
	var bad *badRequest
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, errUnauthenticated):
		return http.StatusUnauthorized
	case errors.As(err, &bad), errors.As(err, &maxBytes), core.IsValidation(err):
		return http.StatusBadRequest
	case core.IsNotFound(err):
		return http.StatusNotFound
	case core.IsConfiguration(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse creates the JSON error body for err. Internal failures
// are logged and reported generically; invariant violations keep their
// message so operators can find the batch.
func ErrorResponse(r *http.Request, err error) *JSONResponse {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			applog.FieldError, err, applog.FieldPath, r.URL.Path)
		if !core.IsInvariantViolation(err) {
			msg = "internal error"
		}
	}
	return NewJSONResponse().Status(status).Body(errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	NewJSONResponse().Status(status).Body(v).Write(w)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	ErrorResponse(r, err).Write(w)
}
