package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gigline/backstage/internal/database"
	"github.com/gigline/backstage/internal/models"
)

var (
	ErrRequestNotFound = errors.New("admin request not found")
	ErrRequestClosed   = errors.New("request already reviewed")
)

// TriageService handles the admin request queue shown in the triage tab.
type TriageService struct{}

func NewTriageService() *TriageService {
	return &TriageService{}
}

// Create files a new request from any dev user
func (s *TriageService) Create(ctx context.Context, requesterID int64, requestType, reason string) (*models.AdminRequest, error) {
	req := &models.AdminRequest{
		RequesterID: requesterID,
		RequestType: requestType,
		Reason:      reason,
		Status:      models.AdminRequestPending,
	}
	if _, err := database.DB.NewInsert().Model(req).Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to create admin request: %w", err)
	}
	return req, nil
}

// List returns requests, optionally filtered by status, newest first
func (s *TriageService) List(ctx context.Context, status string) ([]models.AdminRequest, error) {
	var requests []models.AdminRequest
	query := database.DB.NewSelect().
		Model(&requests).
		Relation("Requester").
		Order("ar.created_at DESC")

	if status != "" {
		query.Where("ar.status = ?", status)
	}

	if err := query.Scan(ctx); err != nil {
		return nil, err
	}
	return requests, nil
}

// Review moves a pending request to approved or rejected. Terminal states
// are immutable: the conditional update refuses to touch a reviewed row.
func (s *TriageService) Review(ctx context.Context, id, reviewerID int64, approve bool, note *string) (*models.AdminRequest, error) {
	status := models.AdminRequestRejected
	if approve {
		status = models.AdminRequestApproved
	}

	res, err := database.DB.NewUpdate().
		Model((*models.AdminRequest)(nil)).
		Set("status = ?", status).
		Set("reviewed_by = ?", reviewerID).
		Set("reviewed_at = ?", time.Now()).
		Set("review_note = ?", note).
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("id = ?", id).
		Where("status = ?", models.AdminRequestPending).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to review request: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		// Either missing or already reviewed; look to tell apart
		req := new(models.AdminRequest)
		err := database.DB.NewSelect().Model(req).Where("ar.id = ?", id).Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		if err != nil {
			return nil, err
		}
		return nil, ErrRequestClosed
	}

	req := new(models.AdminRequest)
	if err := database.DB.NewSelect().Model(req).Where("ar.id = ?", id).Scan(ctx); err != nil {
		return nil, err
	}
	return req, nil
}
