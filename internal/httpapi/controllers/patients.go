package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	httperrors "github.com/oculab/glaucoma-dashboard/internal/httpapi/errors"
	"github.com/oculab/glaucoma-dashboard/internal/httpapi/helpers"
	"github.com/oculab/glaucoma-dashboard/internal/httpapi/middlewares"
	"github.com/oculab/glaucoma-dashboard/internal/observability/logger"
	"github.com/oculab/glaucoma-dashboard/internal/upstream"
)

// PatientsController proxies patient CRUD to the backend, with the session's
// credentials attached. Field-level validation belongs to the backend; the
// gateway only rejects requests it cannot even forward.
type PatientsController struct {
	upstream *upstream.Client
}

func NewPatientsController(client *upstream.Client) *PatientsController {
	return &PatientsController{upstream: client}
}

// List handles GET /api/patients.
func (c *PatientsController) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	mgr := middlewares.GetSession(ctx)

	q := r.URL.Query()
	params := upstream.ListPatientsParams{
		Page:        atoiOrZero(q.Get("page")),
		PageSize:    atoiOrZero(q.Get("page_size")),
		Search:      q.Get("search"),
		Gender:      q.Get("gender"),
		CreatedFrom: q.Get("created_from"),
		CreatedTo:   q.Get("created_to"),
	}

	page, err := c.upstream.ListPatients(ctx, mgr, params)
	if err != nil {
		httperrors.WriteError(w, httperrors.FromUpstream(err))
		return
	}
	helpers.WriteJSON(w, http.StatusOK, page)
}

// Get handles GET /api/patients/{patientID}.
func (c *PatientsController) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	mgr := middlewares.GetSession(ctx)

	patient, err := c.upstream.GetPatient(ctx, mgr, chi.URLParam(r, "patientID"))
	if err != nil {
		httperrors.WriteError(w, httperrors.FromUpstream(err))
		return
	}
	helpers.WriteJSON(w, http.StatusOK, patient)
}

// Create handles POST /api/patients.
func (c *PatientsController) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("PatientsController.Create"))

	var in upstream.PatientInput
	if !helpers.ReadJSON(w, r, &in) {
		return
	}
	if in.FirstName == "" || in.LastName == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("first_name and last_name are required"))
		return
	}

	mgr := middlewares.GetSession(ctx)
	patient, err := c.upstream.CreatePatient(ctx, mgr, in)
	if err != nil {
		httperrors.WriteError(w, httperrors.FromUpstream(err))
		return
	}
	log.Info("patient created", logger.PatientID(patient.PatientID))
	helpers.WriteJSON(w, http.StatusCreated, patient)
}

// Update handles PUT /api/patients/{patientID}.
func (c *PatientsController) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var in upstream.PatientInput
	if !helpers.ReadJSON(w, r, &in) {
		return
	}

	mgr := middlewares.GetSession(ctx)
	patient, err := c.upstream.UpdatePatient(ctx, mgr, chi.URLParam(r, "patientID"), in)
	if err != nil {
		httperrors.WriteError(w, httperrors.FromUpstream(err))
		return
	}
	helpers.WriteJSON(w, http.StatusOK, patient)
}

// Delete handles DELETE /api/patients/{patientID}.
func (c *PatientsController) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("PatientsController.Delete"))

	patientID := chi.URLParam(r, "patientID")
	mgr := middlewares.GetSession(ctx)
	if err := c.upstream.DeletePatient(ctx, mgr, patientID); err != nil {
		httperrors.WriteError(w, httperrors.FromUpstream(err))
		return
	}
	log.Info("patient deleted", logger.PatientID(patientID))
	w.WriteHeader(http.StatusNoContent)
}

func atoiOrZero(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
