package services

import (
	"context"
	"fmt"
	"time"

	"github.com/gigline/backstage/internal/database"
	"github.com/gigline/backstage/internal/models"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type NoteService struct{}

func NewNoteService() *NoteService {
	return &NoteService{}
}

// NoteFilters defines available filters for listing notes
type NoteFilters struct {
	UserID   int64
	PagePath string
	Search   string
	Limit    int
	Offset   int
}

// SaveNote upserts a note so the toolbar's optimistic UI can fire the same
// call for create and edit
func (s *NoteService) SaveNote(ctx context.Context, note *models.DevNote) error {
	if note.ID == uuid.Nil {
		note.ID = uuid.New()
	}

	_, err := database.DB.NewInsert().
		Model(note).
		On("CONFLICT (id) DO UPDATE").
		Set("title = EXCLUDED.title").
		Set("content = EXCLUDED.content").
		Set("page_path = EXCLUDED.page_path").
		Set("pinned = EXCLUDED.pinned").
		Set("updated_at = ?", time.Now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to save note: %w", err)
	}
	return nil
}

// GetNoteByID loads one note
func (s *NoteService) GetNoteByID(ctx context.Context, id uuid.UUID) (*models.DevNote, error) {
	note := new(models.DevNote)
	err := database.DB.NewSelect().
		Model(note).
		Where("dn.id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return note, nil
}

// GetNotes retrieves a list of notes based on filters, pinned first
func (s *NoteService) GetNotes(ctx context.Context, filters NoteFilters) ([]models.DevNote, int, error) {
	var notes []models.DevNote
	query := database.DB.NewSelect().
		Model(&notes).
		Where("dn.user_id = ?", filters.UserID).
		Order("dn.pinned DESC").
		Order("dn.updated_at DESC")

	if filters.PagePath != "" {
		query.Where("dn.page_path = ?", filters.PagePath)
	}
	if filters.Search != "" {
		query.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("dn.title LIKE ?", "%"+filters.Search+"%").
				WhereOr("dn.content LIKE ?", "%"+filters.Search+"%")
		})
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

	return notes, count, nil
}

// DeleteNote removes a note, owner only
func (s *NoteService) DeleteNote(ctx context.Context, id uuid.UUID, userID int64) error {
	_, err := database.DB.NewDelete().
		Model((*models.DevNote)(nil)).
		Where("id = ?", id).
		Where("user_id = ?", userID). // Security: ensure user owns note
		Exec(ctx)
	return err
}
