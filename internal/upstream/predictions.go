package upstream

import (
	"context"
	"net/url"
	"strconv"
)

// RiskLevel buckets a prediction's severity.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// PredictionResult is a single inference outcome.
type PredictionResult struct {
	Status           string    `json:"status"`
	Prediction       int       `json:"prediction"`
	Label            string    `json:"label"`
	Probability      float64   `json:"probability"`
	Confidence       float64   `json:"confidence"`
	RiskLevel        RiskLevel `json:"risk_level"`
	Recommendations  []string  `json:"recommendations"`
	ProcessingTimeMs float64   `json:"processing_time_ms"`
	Timestamp        string    `json:"timestamp"`
	Cached           bool      `json:"cached"`
}

// BatchPredictionItem is one entry of a batch run; failed entries carry Error
// instead of result fields.
type BatchPredictionItem struct {
	Index           int       `json:"index"`
	Filename        string    `json:"filename"`
	Status          string    `json:"status"`
	Label           string    `json:"label,omitempty"`
	Probability     float64   `json:"probability,omitempty"`
	Confidence      float64   `json:"confidence,omitempty"`
	RiskLevel       RiskLevel `json:"risk_level,omitempty"`
	Recommendations []string  `json:"recommendations,omitempty"`
	Cached          bool      `json:"cached,omitempty"`
	Error           string    `json:"error,omitempty"`
}

// BatchPredictionResult aggregates a batch run.
type BatchPredictionResult struct {
	Status           string                `json:"status"`
	TotalImages      int                   `json:"total_images"`
	Successful       int                   `json:"successful"`
	Failed           int                   `json:"failed"`
	CacheHits        int                   `json:"cache_hits"`
	CacheMisses      int                   `json:"cache_misses"`
	CacheHitRate     float64               `json:"cache_hit_rate"`
	ProcessingTimeMs float64               `json:"processing_time_ms"`
	Timestamp        string                `json:"timestamp"`
	Results          []BatchPredictionItem `json:"results"`
}

// PredictRequest references an already-ingested fundus image.
type PredictRequest struct {
	PatientID string `json:"patient_id"`
	ImageID   string `json:"image_id"`
	UseCache  bool   `json:"use_cache"`
}

// BatchPredictRequest runs inference over several images at once.
type BatchPredictRequest struct {
	PatientID string   `json:"patient_id,omitempty"`
	ImageIDs  []string `json:"image_ids"`
	UseCache  bool     `json:"use_cache"`
}

// PredictionHistoryPage is a patient-scoped listing of past predictions.
type PredictionHistoryPage struct {
	Predictions []PredictionResult `json:"predictions"`
	Total       int                `json:"total"`
	Page        int                `json:"page"`
	PageSize    int                `json:"page_size"`
}

// Predict runs single-image inference.
func (c *Client) Predict(ctx context.Context, ts TokenSource, in PredictRequest) (*PredictionResult, error) {
	var out PredictionResult
	err := c.call(ctx, ts, request{
		op:     "predictions.predict",
		method: "POST",
		path:   "/predictions/predict",
		json:   in,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// PredictBatch runs inference over a set of images.
func (c *Client) PredictBatch(ctx context.Context, ts TokenSource, in BatchPredictRequest) (*BatchPredictionResult, error) {
	var out BatchPredictionResult
	err := c.call(ctx, ts, request{
		op:     "predictions.batch",
		method: "POST",
		path:   "/predictions/predict/batch",
		json:   in,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// PredictionHistory lists past predictions for a patient.
func (c *Client) PredictionHistory(ctx context.Context, ts TokenSource, patientID string, page, pageSize int) (*PredictionHistoryPage, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		q.Set("page_size", strconv.Itoa(pageSize))
	}
	var out PredictionHistoryPage
	err := c.call(ctx, ts, request{
		op:     "predictions.history",
		method: "GET",
		path:   "/patients/" + url.PathEscape(patientID) + "/predictions",
		query:  q,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
