package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gigline/backstage/internal/database"
	"github.com/gigline/backstage/internal/models"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

type ErrorLogService struct{}

func NewErrorLogService() *ErrorLogService {
	return &ErrorLogService{}
}

// ErrorLogFilters defines the list filters exposed by the error-log tab
type ErrorLogFilters struct {
	Level    string
	PagePath string
	Since    *time.Time
	Limit    int
	Offset   int
}

// Ingest records one client-side error
func (s *ErrorLogService) Ingest(ctx context.Context, level, message string, stack *string, pagePath, userAgent string, metadata json.RawMessage) (*models.ErrorLog, error) {
	if level != models.ErrorLevelError && level != models.ErrorLevelWarn && level != models.ErrorLevelInfo {
		level = models.ErrorLevelError
	}

	entry := &models.ErrorLog{
		Level:     level,
		Message:   message,
		Stack:     stack,
		PagePath:  pagePath,
		UserAgent: userAgent,
		Metadata:  metadata,
	}
	if _, err := database.DB.NewInsert().Model(entry).Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to store error log: %w", err)
	}
	return entry, nil
}

// List returns matching logs newest first
func (s *ErrorLogService) List(ctx context.Context, filters ErrorLogFilters) ([]models.ErrorLog, int, error) {
	var logs []models.ErrorLog
	query := database.DB.NewSelect().
		Model(&logs).
		Order("el.occurred_at DESC")

	if filters.Level != "" {
		query.Where("el.level = ?", filters.Level)
	}
	if filters.PagePath != "" {
		query.Where("el.page_path = ?", filters.PagePath)
	}
	if filters.Since != nil {
		query.Where("el.occurred_at >= ?", filters.Since)
	}
	if filters.Limit > 0 {
		query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query.Offset(filters.Offset)
	}

	count, err := query.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}
	return logs, count, nil
}

// Delete removes one log entry
func (s *ErrorLogService) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := database.DB.NewDelete().
		Model((*models.ErrorLog)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// Export renders the filtered logs into a spreadsheet for offline triage
func (s *ErrorLogService) Export(ctx context.Context, filters ErrorLogFilters) (*excelize.File, error) {
	logs, _, err := s.List(ctx, filters)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheet := "Errors"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	headers := []string{"Occurred At", "Level", "Message", "Page", "User Agent", "Stack"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}

	for row, entry := range logs {
		stack := ""
		if entry.Stack != nil {
			stack = *entry.Stack
		}
		values := []interface{}{
			entry.OccurredAt.Format(time.RFC3339),
			entry.Level,
			entry.Message,
			entry.PagePath,
			entry.UserAgent,
			stack,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	return f, nil
}

// Prune deletes logs older than the retention window. Returns rows removed.
func (s *ErrorLogService) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	res, err := database.DB.NewDelete().
		Model((*models.ErrorLog)(nil)).
		Where("occurred_at < ?", cutoff).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to prune error logs: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected > 0 {
		log.Printf("Pruned %d error logs older than %v", affected, retention)
	}
	return affected, nil
}
