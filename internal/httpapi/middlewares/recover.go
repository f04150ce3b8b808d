package middlewares

import (
	"net/http"

	"github.com/oculab/glaucoma-dashboard/internal/httpapi/errors"
	"github.com/oculab/glaucoma-dashboard/internal/observability/logger"
)

// WithRecover turns panics into a 500 response instead of crashing.
func WithRecover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.From(r.Context()).Error("panic recovered",
						logger.Op("recover"),
						logger.Any("panic", rec),
					)
					errors.WriteError(w, errors.ErrInternalServerError.WithDetail("panic recovered"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
