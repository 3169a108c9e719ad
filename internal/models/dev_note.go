package models

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DevNote is a toolbar sticky note, scoped to its author and optionally
// anchored to the page it was written on.
type DevNote struct {
	bun.BaseModel `bun:"table:dev_notes,alias:dn"`

	ID       uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	UserID   int64     `bun:"user_id,notnull" json:"user_id"`
	PagePath string    `bun:"page_path" json:"page_path,omitempty"`
	Title    string    `bun:"title,notnull" json:"title"`
	Content  string    `bun:"content,notnull" json:"content"`
	Pinned   bool      `bun:"pinned,default:false" json:"pinned"`

	User      *DevUser  `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`
}

// Timestamp and ID hook
var _ bun.BeforeAppendModelHook = (*DevNote)(nil)

func (n *DevNote) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.InsertQuery:
		if n.ID == uuid.Nil {
			n.ID = uuid.New()
		}
		n.CreatedAt = time.Now()
		n.UpdatedAt = time.Now()
	case *bun.UpdateQuery:
		n.UpdatedAt = time.Now()
	}
	return nil
}
