package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/oculab/glaucoma-dashboard/internal/cache"
	"github.com/oculab/glaucoma-dashboard/internal/httpapi/helpers"
	"github.com/oculab/glaucoma-dashboard/internal/httpapi/middlewares"
	"github.com/oculab/glaucoma-dashboard/internal/metrics"
	"github.com/oculab/glaucoma-dashboard/internal/observability/logger"
	"github.com/oculab/glaucoma-dashboard/internal/rbac"
	"github.com/oculab/glaucoma-dashboard/internal/session"
	"github.com/oculab/glaucoma-dashboard/internal/upstream"
	"github.com/oculab/glaucoma-dashboard/internal/view"
)

// DashboardController composes the role-scoped dashboard payload.
type DashboardController struct {
	upstream *upstream.Client
	cache    cache.Cache
}

// NewDashboardController creates the dashboard controller. The cache softens
// the stat fan-out; entries are short-lived and per-role.
func NewDashboardController(client *upstream.Client, c cache.Cache) *DashboardController {
	return &DashboardController{upstream: client, cache: c}
}

// Dashboard handles GET /api/dashboard.
func (c *DashboardController) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	mgr := middlewares.GetSession(ctx)
	sess := mgr.Session()

	stats := c.gatherStats(ctx, mgr)
	helpers.WriteJSON(w, http.StatusOK, view.Compose(sess.Role, stats))
}

const statsCacheTTL = 30 * time.Second

// Navigation handles GET /api/nav: just the sidebar for the current role.
func (c *DashboardController) Navigation(w http.ResponseWriter, r *http.Request) {
	mgr := middlewares.GetSession(r.Context())
	sess := mgr.Session()

	role := rbac.RoleNone
	if sess.IsAuthenticated {
		role = sess.Role.Normalize()
	}
	helpers.WriteJSON(w, http.StatusOK, view.Navigation(rbac.FeaturesFor(role)))
}

// gatherStats pulls live numbers from the backend. Every number is best
// effort: a failed fetch leaves its cards at zero rather than failing the
// whole dashboard. Results are cached per session, since the backend scopes
// counts to the caller's tenant and role.
func (c *DashboardController) gatherStats(ctx context.Context, mgr *session.Manager) view.Stats {
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("DashboardController.gatherStats"))
	key := "stats:" + mgr.SID()

	var stats view.Stats
	if c.cache != nil {
		if raw, ok := c.cache.Get(key); ok {
			if json.Unmarshal(raw, &stats) == nil {
				metrics.CacheHits.WithLabelValues("dashboard_stats", "hit").Inc()
				return stats
			}
		}
		metrics.CacheHits.WithLabelValues("dashboard_stats", "miss").Inc()
	}

	if agg, err := c.upstream.GetDashboardStats(ctx, mgr); err == nil {
		stats = view.Stats{
			TotalPatients:    agg.TotalPatients,
			TotalPredictions: agg.TotalPredictions,
			PredictionsToday: agg.PredictionsToday,
			PendingReviews:   agg.PendingReviews,
			HighRiskCases:    agg.HighRiskCases,
			ActiveUsers:      agg.ActiveUsers,
		}
	} else {
		// Older backends lack the stats endpoint; at least the patient count
		// can come from the list total.
		log.Debug("dashboard stats unavailable, falling back to patient count", logger.Err(err))
		if page, err := c.upstream.ListPatients(ctx, mgr, upstream.ListPatientsParams{PageSize: 1}); err == nil {
			stats.TotalPatients = page.Total
		} else {
			log.Debug("patient count unavailable", logger.Err(err))
		}
	}

	if c.cache != nil {
		if raw, err := json.Marshal(stats); err == nil {
			c.cache.Set(key, raw, statsCacheTTL)
		}
	}
	return stats
}
