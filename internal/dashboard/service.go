package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/your-username/click-lite-reports/internal/client"
	"github.com/your-username/click-lite-reports/internal/filters"
	"github.com/your-username/click-lite-reports/internal/models"
	"github.com/your-username/click-lite-reports/internal/preview"
	"github.com/your-username/click-lite-reports/internal/visualization"
)

// Store is the backend API surface dashboards need
type Store interface {
	ListDashboards(ctx context.Context) ([]models.Dashboard, error)
	GetDashboard(ctx context.Context, id int64) (*models.Dashboard, error)
	CreateDashboard(ctx context.Context, d *models.Dashboard) (*models.Dashboard, error)
	UpdateDashboard(ctx context.Context, d *models.Dashboard) (*models.Dashboard, error)
	DeleteDashboard(ctx context.Context, id int64) error
	SetFavorite(ctx context.Context, id int64, favorite bool) error
	GetReport(ctx context.Context, id int64) (*models.ReportConfig, error)
}

// Runner executes preview requests
type Runner interface {
	Run(ctx context.Context, req preview.Request) (*models.QueryResult, error)
}

// Service handles dashboard operations
type Service struct {
	store       Store
	runner      Runner
	concurrency int
}

// Tile is one rendered report query on a dashboard
type Tile struct {
	ReportID   int64                `json:"report_id"`
	ReportName string               `json:"report_name"`
	QueryID    string               `json:"query_id"`
	QueryName  string               `json:"query_name"`
	Chart      *visualization.Chart `json:"chart,omitempty"`
	Error      string               `json:"error,omitempty"`
}

// Rendering is a dashboard with every tile evaluated
type Rendering struct {
	Dashboard  *models.Dashboard `json:"dashboard"`
	Tiles      []Tile            `json:"tiles"`
	RenderedAt time.Time         `json:"rendered_at"`
}

// NewService creates a new dashboard service
func NewService(store Store, runner Runner, concurrency int) *Service {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Service{store: store, runner: runner, concurrency: concurrency}
}

// ListDashboards returns favorites first, then by name
func (s *Service) ListDashboards(ctx context.Context) ([]models.Dashboard, error) {
	dashboards, err := s.store.ListDashboards(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list dashboards: %w", err)
	}
	sortDashboards(dashboards)
	return dashboards, nil
}

func (s *Service) GetDashboard(ctx context.Context, id int64) (*models.Dashboard, error) {
	d, err := s.store.GetDashboard(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get dashboard %d: %w", id, err)
	}
	return d, nil
}

// CreateDashboard creates a new dashboard
func (s *Service) CreateDashboard(ctx context.Context, d *models.Dashboard) (*models.Dashboard, error) {
	if err := validateDashboard(d); err != nil {
		return nil, fmt.Errorf("dashboard validation failed: %w", err)
	}

	created, err := s.store.CreateDashboard(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("failed to create dashboard: %w", err)
	}

	log.Info().
		Int64("dashboard_id", created.ID).
		Str("name", created.Name).
		Int("reports", len(created.ReportIDs)).
		Msg("Dashboard created")

	return created, nil
}

// UpdateDashboard updates an existing dashboard
func (s *Service) UpdateDashboard(ctx context.Context, d *models.Dashboard) (*models.Dashboard, error) {
	if d.ID <= 0 {
		return nil, fmt.Errorf("dashboard validation failed: id is required")
	}
	if err := validateDashboard(d); err != nil {
		return nil, fmt.Errorf("dashboard validation failed: %w", err)
	}

	updated, err := s.store.UpdateDashboard(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("failed to update dashboard %d: %w", d.ID, err)
	}

	log.Info().Int64("dashboard_id", d.ID).Msg("Dashboard updated")
	return updated, nil
}

// DeleteDashboard deletes a dashboard
func (s *Service) DeleteDashboard(ctx context.Context, id int64) error {
	if err := s.store.DeleteDashboard(ctx, id); err != nil {
		return fmt.Errorf("failed to delete dashboard %d: %w", id, err)
	}

	log.Info().Int64("dashboard_id", id).Msg("Dashboard deleted")
	return nil
}

// SetFavorite marks or unmarks a dashboard as favorite
func (s *Service) SetFavorite(ctx context.Context, id int64, favorite bool) error {
	if err := s.store.SetFavorite(ctx, id, favorite); err != nil {
		return fmt.Errorf("failed to set favorite on dashboard %d: %w", id, err)
	}
	return nil
}

// Render loads every report of a dashboard and previews each query with
// the given filter values. Tiles run concurrently; a failing tile carries
// its error while the rest still render. Auth failures and a cancelled
// context abort the render.
func (s *Service) Render(ctx context.Context, id int64, values filters.Values) (*Rendering, error) {
	d, err := s.GetDashboard(ctx, id)
	if err != nil {
		return nil, err
	}

	reports := make(map[int64]*models.ReportConfig, len(d.ReportIDs))
	for _, rid := range d.ReportIDs {
		r, err := s.store.GetReport(ctx, rid)
		if err != nil {
			return nil, fmt.Errorf("failed to load report %d: %w", rid, err)
		}
		reports[rid] = r
	}

	type job struct {
		report *models.ReportConfig
		query  models.QueryConfig
	}
	var jobs []job
	for _, tile := range tilesOf(d) {
		r, ok := reports[tile.ReportID]
		if !ok {
			continue
		}
		for _, q := range r.Queries {
			if tile.QueryID == "" || tile.QueryID == q.ID {
				jobs = append(jobs, job{report: r, query: q})
			}
		}
	}

	tiles := make([]Tile, len(jobs))
	errs := make([]error, len(jobs))
	sem := make(chan struct{}, s.concurrency)

	var wg sync.WaitGroup
	for i, j := range jobs {
		wg.Add(1)
		go func(i int, r *models.ReportConfig, q models.QueryConfig) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				errs[i] = ctx.Err()
				return
			}

			tiles[i], errs[i] = s.renderTile(ctx, d.ID, r, q, values)
		}(i, j.report, j.query)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("dashboard %d render aborted: %w", d.ID, err)
	}

	for _, err := range errs {
		if errors.Is(err, client.ErrUnauthorized) {
			return nil, err
		}
	}

	log.Debug().Int64("dashboard_id", d.ID).Int("tiles", len(tiles)).Msg("Dashboard rendered")
	return &Rendering{Dashboard: d, Tiles: tiles, RenderedAt: time.Now()}, nil
}

func (s *Service) renderTile(ctx context.Context, dashboardID int64, r *models.ReportConfig, q models.QueryConfig, values filters.Values) (Tile, error) {
	tile := Tile{ReportID: r.RemoteID, ReportName: r.Name, QueryID: q.ID, QueryName: q.Name}

	scope := append(append([]models.FilterConfig(nil), r.GlobalFilters...), q.Filters...)
	res, err := s.runner.Run(ctx, preview.Request{
		ScopeID: fmt.Sprintf("dashboard/%d/%d/%s", dashboardID, r.RemoteID, q.ID),
		SQL:     q.SQL,
		Filters: scope,
		Values:  values,
	})
	if err != nil {
		tile.Error = err.Error()
		return tile, err
	}

	chart, err := visualization.Render(q.Visualization, res)
	if err != nil {
		tile.Error = err.Error()
		return tile, nil
	}
	tile.Chart = chart
	return tile, nil
}

// tilesOf returns the layout, or one tile per report when none is stored
func tilesOf(d *models.Dashboard) []models.DashboardTile {
	if len(d.Layout) > 0 {
		return d.Layout
	}
	tiles := make([]models.DashboardTile, len(d.ReportIDs))
	for i, rid := range d.ReportIDs {
		tiles[i] = models.DashboardTile{ReportID: rid}
	}
	return tiles
}

func validateDashboard(d *models.Dashboard) error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("dashboard name is required")
	}

	seen := make(map[int64]bool, len(d.ReportIDs))
	for _, rid := range d.ReportIDs {
		if rid <= 0 {
			return fmt.Errorf("invalid report id: %d", rid)
		}
		if seen[rid] {
			return fmt.Errorf("duplicate report id: %d", rid)
		}
		seen[rid] = true
	}

	for _, tile := range d.Layout {
		if !seen[tile.ReportID] {
			return fmt.Errorf("layout references report %d which is not on the dashboard", tile.ReportID)
		}
	}
	return nil
}

func sortDashboards(ds []models.Dashboard) {
	sort.SliceStable(ds, func(i, j int) bool {
		if ds[i].IsFavorite != ds[j].IsFavorite {
			return ds[i].IsFavorite
		}
		return strings.ToLower(ds[i].Name) < strings.ToLower(ds[j].Name)
	})
}
