package helpers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	httperrors "github.com/tastebase/auth/internal/http/errors"
)

// maxBodyBytes caps request bodies at 1MB; every payload here is a small
// JSON document.
const maxBodyBytes = 1 << 20

// ReadJSON decodes the request body tolerantly (unknown fields pass).
// Validates Content-Type and caps the body. Returns false after having
// written the error response itself.
func ReadJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if !hasJSONContentType(r) {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("Content-Type must be application/json"))
		return false
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	err := json.NewDecoder(r.Body).Decode(v)
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return true
	case isBodyTooLarge(err):
		httperrors.WriteError(w, httperrors.ErrBodyTooLarge)
	default:
		httperrors.WriteError(w, httperrors.ErrInvalidJSON)
	}
	return false
}

func hasJSONContentType(r *http.Request) bool {
	return strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json")
}

func isBodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge)
}

// WriteJSON writes a standard JSON response.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// NoStore marks a response as uncacheable; token responses go through here.
func NoStore(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}
