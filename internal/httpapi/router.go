// Package httpapi assembles the gateway's HTTP surface: router, middlewares
// and server lifecycle.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oculab/glaucoma-dashboard/internal/cache"
	"github.com/oculab/glaucoma-dashboard/internal/httpapi/controllers"
	httperrors "github.com/oculab/glaucoma-dashboard/internal/httpapi/errors"
	mw "github.com/oculab/glaucoma-dashboard/internal/httpapi/middlewares"
	"github.com/oculab/glaucoma-dashboard/internal/rate"
	"github.com/oculab/glaucoma-dashboard/internal/rbac"
	"github.com/oculab/glaucoma-dashboard/internal/session"
	"github.com/oculab/glaucoma-dashboard/internal/upstream"
	"github.com/oculab/glaucoma-dashboard/internal/view"
)

// RouterDeps carries everything the router needs.
type RouterDeps struct {
	Upstream *upstream.Client
	Sessions *session.Registry
	Cache    cache.Cache
	Cookie   mw.CookieConfig
	// LoginLimiter throttles credential guessing on the auth endpoints.
	// Nil disables throttling.
	LoginLimiter rate.Limiter
	// AllowedOrigins are the SPA origins permitted to call the API with
	// credentials. Empty disables CORS handling.
	AllowedOrigins []string
	Version        string
}

// NewRouter builds the gateway router. Route gating mirrors the SPA's page
// requirements, so a client that skips the composer's decisions still hits
// the same wall here.
func NewRouter(deps RouterDeps) http.Handler {
	authCtrl := controllers.NewAuthController(deps.Upstream, deps.Sessions, deps.Cookie)
	dashCtrl := controllers.NewDashboardController(deps.Upstream, deps.Cache)
	patientsCtrl := controllers.NewPatientsController(deps.Upstream)
	predictionsCtrl := controllers.NewPredictionsController(deps.Upstream)
	healthCtrl := controllers.NewHealthController(deps.Version)

	r := chi.NewRouter()
	r.Use(mw.WithRequestID())
	r.Use(mw.WithLogging())
	r.Use(mw.WithRecover())
	if len(deps.AllowedOrigins) > 0 {
		r.Use(mw.WithCORS(deps.AllowedOrigins))
	}

	// Probes and metrics stay outside the session layer.
	r.Get("/healthz", healthCtrl.Healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(mw.WithSession(deps.Sessions, deps.Cookie))

		r.Route("/auth", func(r chi.Router) {
			login := r
			if deps.LoginLimiter != nil {
				login = r.With(mw.WithRateLimit(deps.LoginLimiter))
			}
			login.Post("/login", authCtrl.Login)
			login.Post("/refresh", authCtrl.Refresh)
			r.Post("/logout", authCtrl.Logout)
			r.Get("/session", authCtrl.Session)
			r.With(authenticated()).Patch("/profile", authCtrl.UpdateProfile)
		})

		r.With(authenticated()).Get("/dashboard", dashCtrl.Dashboard)
		r.With(authenticated()).Get("/nav", dashCtrl.Navigation)

		r.Route("/patients", func(r chi.Router) {
			r.With(requires(rbac.PermPatientRead)).Get("/", patientsCtrl.List)
			r.With(requires(rbac.PermPatientCreate)).Post("/", patientsCtrl.Create)
			r.Route("/{patientID}", func(r chi.Router) {
				r.With(requires(rbac.PermPatientRead)).Get("/", patientsCtrl.Get)
				r.With(requires(rbac.PermPatientUpdate)).Put("/", patientsCtrl.Update)
				r.With(requires(rbac.PermPatientDelete)).Delete("/", patientsCtrl.Delete)
				r.With(requires(rbac.PermPredictionRead)).Get("/predictions", predictionsCtrl.History)
			})
		})

		r.Route("/predictions", func(r chi.Router) {
			r.With(requires(rbac.PermPredictionCreate)).Post("/", predictionsCtrl.Predict)
			r.With(requires(rbac.PermPredictionCreate)).Post("/batch", predictionsCtrl.PredictBatch)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrNotFound)
	})

	return r
}

func authenticated() func(http.Handler) http.Handler {
	return mw.RequireAuthorized(view.Requirement{})
}

func requires(p rbac.Permission) func(http.Handler) http.Handler {
	return mw.RequireAuthorized(view.Requirement{Permission: p})
}
