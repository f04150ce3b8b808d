package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	httperrors "github.com/oculab/glaucoma-dashboard/internal/httpapi/errors"
	"github.com/oculab/glaucoma-dashboard/internal/httpapi/helpers"
	"github.com/oculab/glaucoma-dashboard/internal/httpapi/middlewares"
	"github.com/oculab/glaucoma-dashboard/internal/observability/logger"
	"github.com/oculab/glaucoma-dashboard/internal/upstream"
)

// PredictionsController proxies inference requests to the backend.
type PredictionsController struct {
	upstream *upstream.Client
}

func NewPredictionsController(client *upstream.Client) *PredictionsController {
	return &PredictionsController{upstream: client}
}

// Predict handles POST /api/predictions.
func (c *PredictionsController) Predict(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("PredictionsController.Predict"))

	var in upstream.PredictRequest
	if !helpers.ReadJSON(w, r, &in) {
		return
	}
	if in.PatientID == "" || in.ImageID == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("patient_id and image_id are required"))
		return
	}

	mgr := middlewares.GetSession(ctx)
	result, err := c.upstream.Predict(ctx, mgr, in)
	if err != nil {
		httperrors.WriteError(w, httperrors.FromUpstream(err))
		return
	}
	log.Info("prediction completed",
		logger.PatientID(in.PatientID),
		logger.String("risk_level", string(result.RiskLevel)),
		logger.Bool("cached", result.Cached),
	)
	helpers.WriteJSON(w, http.StatusOK, result)
}

// PredictBatch handles POST /api/predictions/batch.
func (c *PredictionsController) PredictBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("PredictionsController.PredictBatch"))

	var in upstream.BatchPredictRequest
	if !helpers.ReadJSON(w, r, &in) {
		return
	}
	if len(in.ImageIDs) == 0 {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("image_ids must not be empty"))
		return
	}

	mgr := middlewares.GetSession(ctx)
	result, err := c.upstream.PredictBatch(ctx, mgr, in)
	if err != nil {
		httperrors.WriteError(w, httperrors.FromUpstream(err))
		return
	}
	log.Info("batch prediction completed",
		logger.Int("total", result.TotalImages),
		logger.Int("failed", result.Failed),
	)
	helpers.WriteJSON(w, http.StatusOK, result)
}

// History handles GET /api/patients/{patientID}/predictions.
func (c *PredictionsController) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	mgr := middlewares.GetSession(ctx)

	q := r.URL.Query()
	page, err := c.upstream.PredictionHistory(ctx, mgr,
		chi.URLParam(r, "patientID"),
		atoiOrZero(q.Get("page")),
		atoiOrZero(q.Get("page_size")),
	)
	if err != nil {
		httperrors.WriteError(w, httperrors.FromUpstream(err))
		return
	}
	helpers.WriteJSON(w, http.StatusOK, page)
}
