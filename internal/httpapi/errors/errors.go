// Package errors defines the HTTP error contract of the gateway: a stable
// {code, message, detail} JSON shape plus a catalog of predefined errors.
package errors

import (
	"encoding/json"
	"net/http"

	"github.com/oculab/glaucoma-dashboard/internal/upstream"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// WriteError writes err as the standard JSON error shape. Non-AppErrors
// degrade to a generic 500.
func WriteError(w http.ResponseWriter, err error) {
	appErr := FromError(err)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Code:    appErr.Code,
		Message: appErr.Message,
		Detail:  appErr.Detail,
	})
}

// FromUpstream maps a backend client error onto the gateway contract. API
// failures keep their status and detail; transport failures become 502.
func FromUpstream(err error) *AppError {
	if err == nil {
		return nil
	}
	switch e := err.(type) {
	case *upstream.APIError:
		return &AppError{
			Code:       "UPSTREAM_" + safeCode(e.Code),
			Message:    http.StatusText(e.Status),
			Detail:     e.Detail,
			HTTPStatus: e.Status,
			Err:        err,
		}
	case *upstream.NetworkError:
		return ErrUpstreamUnavailable.WithCause(err)
	default:
		return FromError(err)
	}
}

func safeCode(code string) string {
	out := make([]rune, 0, len(code))
	for _, r := range code {
		switch {
		case r >= 'a' && r <= 'z':
			out = append(out, r-'a'+'A')
		case (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "ERROR"
	}
	return string(out)
}
