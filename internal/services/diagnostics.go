package services

import (
	"context"
	"fmt"

	"github.com/gigline/backstage/internal/database"
	"github.com/gigline/backstage/internal/models"
)

type DiagnosticsService struct{}

func NewDiagnosticsService() *DiagnosticsService {
	return &DiagnosticsService{}
}

// Record stores one page-load sample
func (s *DiagnosticsService) Record(ctx context.Context, sample *models.PageDiagnostic) error {
	if sample.PagePath == "" {
		return fmt.Errorf("page_path is required")
	}
	if sample.LoadMs < 0 {
		return fmt.Errorf("load_ms must be non-negative")
	}
	if _, err := database.DB.NewInsert().Model(sample).Exec(ctx); err != nil {
		return fmt.Errorf("failed to record diagnostic: %w", err)
	}
	return nil
}

// List returns raw samples, optionally for one page, newest first
func (s *DiagnosticsService) List(ctx context.Context, pagePath string, limit int) ([]models.PageDiagnostic, error) {
	var samples []models.PageDiagnostic
	query := database.DB.NewSelect().
		Model(&samples).
		Order("pd.recorded_at DESC")

	if pagePath != "" {
		query.Where("pd.page_path = ?", pagePath)
	}
	if limit > 0 {
		query.Limit(limit)
	}

	if err := query.Scan(ctx); err != nil {
		return nil, err
	}
	return samples, nil
}

// Summary aggregates samples per page path, slowest average first
func (s *DiagnosticsService) Summary(ctx context.Context) ([]models.PageDiagnosticSummary, error) {
	var summaries []models.PageDiagnosticSummary
	err := database.DB.NewSelect().
		Model((*models.PageDiagnostic)(nil)).
		ColumnExpr("page_path").
		ColumnExpr("COUNT(*) AS samples").
		ColumnExpr("AVG(load_ms) AS avg_load_ms").
		ColumnExpr("MAX(load_ms) AS max_load_ms").
		Group("page_path").
		OrderExpr("avg_load_ms DESC").
		Scan(ctx, &summaries)
	if err != nil {
		return nil, err
	}
	return summaries, nil
}
