package report

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/your-username/click-lite-reports/internal/models"
)

// Store persists reports. Implemented by the backend API client.
type Store interface {
	ListReports(ctx context.Context) ([]models.ReportSummary, error)
	GetReport(ctx context.Context, id int64) (*models.ReportConfig, error)
	CreateReport(ctx context.Context, r *models.ReportConfig) (int64, error)
	UpdateReport(ctx context.Context, r *models.ReportConfig) error
}

// Service handles report persistence
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) List(ctx context.Context) ([]models.ReportSummary, error) {
	reports, err := s.store.ListReports(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return reports, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*models.ReportConfig, error) {
	r, err := s.store.GetReport(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get report %d: %w", id, err)
	}
	return r, nil
}

// Save validates r, then creates it on first save and updates it after.
// On create the backend id is written back to r.
func (s *Service) Save(ctx context.Context, r *models.ReportConfig) error {
	if err := Validate(r); err != nil {
		return err
	}
	r.UpdatedAt = time.Now()

	if r.Persisted() {
		if err := s.store.UpdateReport(ctx, r); err != nil {
			return fmt.Errorf("failed to update report %d: %w", r.RemoteID, err)
		}
		log.Info().Int64("report_id", r.RemoteID).Str("name", r.Name).Msg("Report updated")
		return nil
	}

	if r.CreatedAt.IsZero() {
		r.CreatedAt = r.UpdatedAt
	}
	id, err := s.store.CreateReport(ctx, r)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	r.RemoteID = id

	log.Info().
		Int64("report_id", id).
		Str("client_id", r.ID).
		Str("name", r.Name).
		Int("queries", len(r.Queries)).
		Msg("Report created")
	return nil
}
