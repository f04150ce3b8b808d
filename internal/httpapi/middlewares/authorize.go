package middlewares

import (
	"encoding/json"
	"net/http"

	"github.com/oculab/glaucoma-dashboard/internal/view"
)

// deniedResponse tells the SPA where to send the user instead of the denied
// route. Authorization denials are routing decisions, not faults.
type deniedResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Decision string `json:"decision"`
	Redirect string `json:"redirect"`
}

// RequireAuthorized gates a route on the session snapshot plus an optional
// requirement. Unauthenticated callers get 401 pointing at the login page;
// authenticated-but-denied callers get 403 pointing at their own landing page.
func RequireAuthorized(req view.Requirement) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mgr := GetSession(r.Context())
			if mgr == nil {
				writeDenied(w, http.StatusUnauthorized, deniedResponse{
					Code:     "UNAUTHORIZED",
					Message:  "Authentication required.",
					Decision: view.DecisionRedirectToLogin.String(),
					Redirect: view.PathLogin,
				})
				return
			}
			sess := mgr.Session()

			switch d := view.AuthorizeRoute(sess, req); d {
			case view.DecisionRender:
				next.ServeHTTP(w, r)
			case view.DecisionWait:
				// The session middleware initializes before handing over, so
				// this only shows up when the route skipped WithSession.
				w.Header().Set("Retry-After", "1")
				writeDenied(w, http.StatusServiceUnavailable, deniedResponse{
					Code:     "SESSION_INITIALIZING",
					Message:  "Session is still initializing.",
					Decision: d.String(),
				})
			case view.DecisionRedirectToLogin:
				writeDenied(w, http.StatusUnauthorized, deniedResponse{
					Code:     "UNAUTHORIZED",
					Message:  "Authentication required.",
					Decision: d.String(),
					Redirect: view.PathLogin,
				})
			default:
				writeDenied(w, http.StatusForbidden, deniedResponse{
					Code:     "FORBIDDEN",
					Message:  "You do not have permission to view this resource.",
					Decision: d.String(),
					Redirect: view.FallbackPath(sess.Role),
				})
			}
		})
	}
}

func writeDenied(w http.ResponseWriter, status int, resp deniedResponse) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
