package upstream

import "context"

// DashboardStats are the aggregate counts behind the dashboard cards, scoped
// by the backend to the caller's tenant and role.
type DashboardStats struct {
	TotalPatients    int `json:"total_patients"`
	TotalPredictions int `json:"total_predictions"`
	PredictionsToday int `json:"predictions_today"`
	PendingReviews   int `json:"pending_reviews"`
	HighRiskCases    int `json:"high_risk_cases"`
	ActiveUsers      int `json:"active_users"`
}

// GetDashboardStats fetches the caller's aggregate counts.
func (c *Client) GetDashboardStats(ctx context.Context, ts TokenSource) (*DashboardStats, error) {
	var out DashboardStats
	err := c.call(ctx, ts, request{
		op:     "dashboard.stats",
		method: "GET",
		path:   "/dashboard/stats",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
