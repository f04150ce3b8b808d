package upstream

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is an HTTP-status failure reported by the backend, distinct from
// transport failures (NetworkError).
type APIError struct {
	Status int
	Code   string
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("upstream: %d %s: %s", e.Status, e.Code, e.Detail)
	}
	return fmt.Sprintf("upstream: %d %s", e.Status, e.Code)
}

// NetworkError is a transport-level failure: the request never produced an
// HTTP status.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("upstream: %s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsUnauthorized reports whether err is a backend 401.
func IsUnauthorized(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == http.StatusUnauthorized
}

// IsNotFound reports whether err is a backend 404.
func IsNotFound(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == http.StatusNotFound
}
