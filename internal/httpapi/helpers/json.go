// Package helpers holds small request/response utilities shared by the
// gateway controllers.
package helpers

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strings"

	"github.com/oculab/glaucoma-dashboard/internal/httpapi/errors"
)

// WriteJSON writes v as a JSON response.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ReadJSON decodes the request body tolerantly (unknown fields allowed) with
// a 1MB cap. On failure it writes the error response and returns false.
func ReadJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := strings.ToLower(r.Header.Get("Content-Type"))
	if !strings.Contains(ct, "application/json") {
		errors.WriteError(w, errors.ErrInvalidJSON.WithDetail("Content-Type must be application/json"))
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil && err != io.EOF {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			errors.WriteError(w, errors.ErrBodyTooLarge)
			return false
		}
		errors.WriteError(w, errors.ErrInvalidJSON)
		return false
	}
	return true
}
