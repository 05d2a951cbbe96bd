package client

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/your-username/click-lite-reports/internal/models"
)

// remoteReport is the backend's report payload, keyed by integer id
type remoteReport struct {
	ID            int64                 `json:"id,omitempty"`
	Name          string                `json:"name"`
	Description   string                `json:"description,omitempty"`
	Tags          []string              `json:"tags"`
	Queries       []models.QueryConfig  `json:"queries"`
	GlobalFilters []models.FilterConfig `json:"global_filters"`
	CreatedAt     time.Time             `json:"created_at,omitempty"`
	UpdatedAt     time.Time             `json:"updated_at,omitempty"`
}

func toRemote(r *models.ReportConfig) remoteReport {
	return remoteReport{
		ID:            r.RemoteID,
		Name:          r.Name,
		Description:   r.Description,
		Tags:          r.Tags,
		Queries:       r.Queries,
		GlobalFilters: r.GlobalFilters,
	}
}

func (r remoteReport) config() *models.ReportConfig {
	return &models.ReportConfig{
		ID:            strconv.FormatInt(r.ID, 10),
		RemoteID:      r.ID,
		Name:          r.Name,
		Description:   r.Description,
		Tags:          r.Tags,
		Queries:       r.Queries,
		GlobalFilters: r.GlobalFilters,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

// Preview runs a SQL preview on the backend. A failed query comes back as
// a result with Success false, not as an error.
func (c *Client) Preview(ctx context.Context, sql string, limit int) (*models.QueryResult, error) {
	var res models.QueryResult
	req := models.PreviewRequest{SQLQuery: sql, Limit: limit}
	if err := c.Do(ctx, http.MethodPost, "/api/reports/preview", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ListReports lists saved reports
func (c *Client) ListReports(ctx context.Context) ([]models.ReportSummary, error) {
	var out []models.ReportSummary
	if err := c.Do(ctx, http.MethodGet, "/api/reports", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetReport loads a saved report
func (c *Client) GetReport(ctx context.Context, id int64) (*models.ReportConfig, error) {
	var out remoteReport
	if err := c.Do(ctx, http.MethodGet, fmt.Sprintf("/api/reports/%d", id), nil, &out); err != nil {
		return nil, err
	}
	if out.ID == 0 {
		out.ID = id
	}
	return out.config(), nil
}

// CreateReport saves a new report and returns the backend id
func (c *Client) CreateReport(ctx context.Context, r *models.ReportConfig) (int64, error) {
	var out remoteReport
	if err := c.Do(ctx, http.MethodPost, "/api/reports", toRemote(r), &out); err != nil {
		return 0, err
	}
	if out.ID == 0 {
		return 0, fmt.Errorf("backend did not assign a report id")
	}
	return out.ID, nil
}

// UpdateReport overwrites a saved report
func (c *Client) UpdateReport(ctx context.Context, r *models.ReportConfig) error {
	if !r.Persisted() {
		return fmt.Errorf("report %q has not been saved yet", r.Name)
	}
	return c.Do(ctx, http.MethodPut, fmt.Sprintf("/api/reports/%d", r.RemoteID), toRemote(r), nil)
}

// ListDashboards lists dashboards
func (c *Client) ListDashboards(ctx context.Context) ([]models.Dashboard, error) {
	var out []models.Dashboard
	if err := c.Do(ctx, http.MethodGet, "/api/dashboards", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetDashboard loads one dashboard
func (c *Client) GetDashboard(ctx context.Context, id int64) (*models.Dashboard, error) {
	var out models.Dashboard
	if err := c.Do(ctx, http.MethodGet, fmt.Sprintf("/api/dashboards/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateDashboard creates a dashboard and returns it as stored
func (c *Client) CreateDashboard(ctx context.Context, d *models.Dashboard) (*models.Dashboard, error) {
	var out models.Dashboard
	if err := c.Do(ctx, http.MethodPost, "/api/dashboards", d, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateDashboard overwrites a dashboard
func (c *Client) UpdateDashboard(ctx context.Context, d *models.Dashboard) (*models.Dashboard, error) {
	var out models.Dashboard
	if err := c.Do(ctx, http.MethodPut, fmt.Sprintf("/api/dashboards/%d", d.ID), d, &out); err != nil {
		return nil, err
	}
	if out.ID == 0 {
		return d, nil
	}
	return &out, nil
}

// DeleteDashboard removes a dashboard
func (c *Client) DeleteDashboard(ctx context.Context, id int64) error {
	return c.Do(ctx, http.MethodDelete, fmt.Sprintf("/api/dashboards/%d", id), nil, nil)
}

// SetFavorite favorites or unfavorites a dashboard
func (c *Client) SetFavorite(ctx context.Context, id int64, favorite bool) error {
	method := http.MethodPost
	if !favorite {
		method = http.MethodDelete
	}
	return c.Do(ctx, method, fmt.Sprintf("/api/dashboards/%d/favorite", id), nil, nil)
}
