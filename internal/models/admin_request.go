package models

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// Admin request lifecycle. Pending is the only mutable state; approved and
// rejected are terminal.
const (
	AdminRequestPending  = "pending"
	AdminRequestApproved = "approved"
	AdminRequestRejected = "rejected"
)

// Request types the triage tab knows about
const (
	AdminRequestTypeAccess  = "access"
	AdminRequestTypeRefund  = "refund"
	AdminRequestTypeFeature = "feature"
	AdminRequestTypeOther   = "other"
)

type AdminRequest struct {
	bun.BaseModel `bun:"table:admin_requests,alias:ar"`

	ID          int64  `bun:"id,pk,autoincrement" json:"id"`
	RequesterID int64  `bun:"requester_id,notnull" json:"requester_id"`
	RequestType string `bun:"request_type,notnull" json:"request_type"`
	Reason      string `bun:"reason,notnull" json:"reason"`
	Status      string `bun:"status,notnull,default:'pending'" json:"status"`

	ReviewedBy *int64     `bun:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time `bun:"reviewed_at" json:"reviewed_at,omitempty"`
	ReviewNote *string    `bun:"review_note" json:"review_note,omitempty"`

	Requester *DevUser  `bun:"rel:belongs-to,join:requester_id=id" json:"requester,omitempty"`
	CreatedAt time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`
}

func (r *AdminRequest) IsTerminal() bool {
	return r.Status == AdminRequestApproved || r.Status == AdminRequestRejected
}

var _ bun.BeforeAppendModelHook = (*AdminRequest)(nil)

func (r *AdminRequest) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.InsertQuery:
		r.CreatedAt = time.Now()
		r.UpdatedAt = time.Now()
		if r.Status == "" {
			r.Status = AdminRequestPending
		}
	case *bun.UpdateQuery:
		r.UpdatedAt = time.Now()
	}
	return nil
}
