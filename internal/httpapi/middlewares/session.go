package middlewares

import (
	"net/http"
	"time"

	"github.com/oculab/glaucoma-dashboard/internal/httpapi/errors"
	"github.com/oculab/glaucoma-dashboard/internal/observability/logger"
	"github.com/oculab/glaucoma-dashboard/internal/session"
)

// refreshAhead is how close to access-token expiry a request triggers a
// proactive rotation.
const refreshAhead = 30 * time.Second

// CookieConfig describes the session cookie the gateway issues.
type CookieConfig struct {
	Name     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
	TTL      time.Duration
}

// WithSession resolves the session cookie to its Manager and injects it into
// the context. Requests without a cookie get a fresh sid set on the response;
// the session behind it starts unauthenticated.
func WithSession(reg *session.Registry, cookie CookieConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := ""
			if c, err := r.Cookie(cookie.Name); err == nil && c.Value != "" {
				sid = c.Value
			}
			if sid == "" {
				sid = session.NewSID()
				http.SetCookie(w, sessionCookie(cookie, sid))
			}

			mgr, err := reg.Resolve(r.Context(), sid)
			if err != nil {
				logger.From(r.Context()).Error("session resolve failed",
					logger.Component("httpapi"), logger.SessionID(sid), logger.Err(err))
				errors.WriteError(w, errors.ErrInternalServerError)
				return
			}

			// Rotate ahead of expiry so the handler's upstream calls don't eat
			// a 401 round trip. Failure falls through: the route gates decide.
			if mgr.ExpiresWithin(refreshAhead) {
				if _, err := mgr.Refresh(r.Context()); err != nil {
					logger.From(r.Context()).Debug("proactive refresh failed",
						logger.Component("httpapi"), logger.SessionID(sid), logger.Err(err))
				}
			}

			ctx := setSession(r.Context(), mgr)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SetSessionCookie issues the session cookie for sid on the response. Used
// when the sid rotates mid-request (login) and the middleware-minted cookie
// must be superseded.
func SetSessionCookie(w http.ResponseWriter, cfg CookieConfig, sid string) {
	http.SetCookie(w, sessionCookie(cfg, sid))
}

// ClearSessionCookie expires the session cookie on the response.
func ClearSessionCookie(w http.ResponseWriter, cookie CookieConfig) {
	c := sessionCookie(cookie, "")
	c.MaxAge = -1
	http.SetCookie(w, c)
}

func sessionCookie(cfg CookieConfig, value string) *http.Cookie {
	sameSite := cfg.SameSite
	if sameSite == 0 {
		sameSite = http.SameSiteLaxMode
	}
	c := &http.Cookie{
		Name:     cfg.Name,
		Value:    value,
		Path:     "/",
		Domain:   cfg.Domain,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: sameSite,
	}
	if cfg.TTL > 0 && value != "" {
		c.MaxAge = int(cfg.TTL.Seconds())
	}
	return c
}
