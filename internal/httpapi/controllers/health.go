package controllers

import (
	"net/http"

	"github.com/oculab/glaucoma-dashboard/internal/httpapi/helpers"
)

// HealthController serves liveness and readiness probes.
type HealthController struct {
	version string
}

func NewHealthController(version string) *HealthController {
	return &HealthController{version: version}
}

// Healthz handles GET /healthz. The gateway holds no local state worth
// probing; alive means serving.
func (c *HealthController) Healthz(w http.ResponseWriter, r *http.Request) {
	if c.version != "" {
		w.Header().Set("X-Service-Version", c.version)
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
