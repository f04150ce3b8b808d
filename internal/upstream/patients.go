package upstream

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// Patient as the backend reports it.
type Patient struct {
	ID             int64          `json:"id"`
	PatientID      string         `json:"patient_id"`
	TenantID       int64          `json:"tenant_id"`
	FirstName      string         `json:"first_name"`
	LastName       string         `json:"last_name"`
	MRN            string         `json:"mrn"`
	DateOfBirth    string         `json:"date_of_birth,omitempty"`
	Gender         string         `json:"gender,omitempty"`
	Email          string         `json:"email,omitempty"`
	Phone          string         `json:"phone,omitempty"`
	Address        string         `json:"address,omitempty"`
	MedicalHistory map[string]any `json:"medical_history,omitempty"`
	RiskFactors    map[string]any `json:"risk_factors,omitempty"`
	IsActive       bool           `json:"is_active"`
	CreatedAt      string         `json:"created_at"`
	UpdatedAt      string         `json:"updated_at,omitempty"`
}

// PatientPage is one page of the patient list.
type PatientPage struct {
	Patients   []Patient `json:"patients"`
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalPages int       `json:"total_pages"`
}

// ListPatientsParams filters the patient list.
type ListPatientsParams struct {
	Page        int
	PageSize    int
	Search      string
	Gender      string
	CreatedFrom string
	CreatedTo   string
}

func (p ListPatientsParams) query() url.Values {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(p.PageSize))
	}
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	if p.Gender != "" {
		q.Set("gender", p.Gender)
	}
	if p.CreatedFrom != "" {
		q.Set("created_from", p.CreatedFrom)
	}
	if p.CreatedTo != "" {
		q.Set("created_to", p.CreatedTo)
	}
	return q
}

// PatientInput carries patient fields for create and update. On update, zero
// fields are omitted from the request.
type PatientInput struct {
	FirstName      string         `json:"first_name,omitempty"`
	LastName       string         `json:"last_name,omitempty"`
	MRN            string         `json:"mrn,omitempty"`
	DateOfBirth    string         `json:"date_of_birth,omitempty"`
	Gender         string         `json:"gender,omitempty"`
	Email          string         `json:"email,omitempty"`
	Phone          string         `json:"phone,omitempty"`
	Address        string         `json:"address,omitempty"`
	MedicalHistory map[string]any `json:"medical_history,omitempty"`
	RiskFactors    map[string]any `json:"risk_factors,omitempty"`
}

// ListPatients fetches a page of patients.
func (c *Client) ListPatients(ctx context.Context, ts TokenSource, params ListPatientsParams) (*PatientPage, error) {
	var out PatientPage
	err := c.call(ctx, ts, request{
		op:     "patients.list",
		method: "GET",
		path:   "/patients",
		query:  params.query(),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPatient fetches a single patient.
func (c *Client) GetPatient(ctx context.Context, ts TokenSource, patientID string) (*Patient, error) {
	var out Patient
	err := c.call(ctx, ts, request{
		op:     "patients.get",
		method: "GET",
		path:   "/patients/" + url.PathEscape(patientID),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CreatePatient registers a new patient.
func (c *Client) CreatePatient(ctx context.Context, ts TokenSource, in PatientInput) (*Patient, error) {
	var out Patient
	err := c.call(ctx, ts, request{
		op:     "patients.create",
		method: "POST",
		path:   "/patients",
		json:   in,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdatePatient applies a partial update.
func (c *Client) UpdatePatient(ctx context.Context, ts TokenSource, patientID string, in PatientInput) (*Patient, error) {
	var out Patient
	err := c.call(ctx, ts, request{
		op:     "patients.update",
		method: "PUT",
		path:   "/patients/" + url.PathEscape(patientID),
		json:   in,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeletePatient removes a patient.
func (c *Client) DeletePatient(ctx context.Context, ts TokenSource, patientID string) error {
	return c.call(ctx, ts, request{
		op:     "patients.delete",
		method: "DELETE",
		path:   "/patients/" + url.PathEscape(patientID),
	}, nil)
}

// PatientDisplayName is a convenience for logs and CLI output.
func PatientDisplayName(p *Patient) string {
	return fmt.Sprintf("%s %s (%s)", p.FirstName, p.LastName, p.MRN)
}
