package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Error levels accepted by the ingest endpoint
const (
	ErrorLevelError = "error"
	ErrorLevelWarn  = "warn"
	ErrorLevelInfo  = "info"
)

// ErrorLog is a client-side error reported by the toolbar. Rows are append
// only; the retention job prunes anything older than the configured window.
type ErrorLog struct {
	bun.BaseModel `bun:"table:error_logs,alias:el"`

	ID        uuid.UUID       `bun:"id,pk,type:uuid" json:"id"`
	Level     string          `bun:"level,notnull,default:'error'" json:"level"`
	Message   string          `bun:"message,notnull" json:"message"`
	Stack     *string         `bun:"stack" json:"stack,omitempty"`
	PagePath  string          `bun:"page_path" json:"page_path,omitempty"`
	UserAgent string          `bun:"user_agent" json:"user_agent,omitempty"`
	Metadata  json.RawMessage `bun:"metadata,type:jsonb,default:'{}'" json:"metadata"`
	OccurredAt time.Time      `bun:"occurred_at,nullzero,default:current_timestamp" json:"occurred_at"`
}

var _ bun.BeforeAppendModelHook = (*ErrorLog)(nil)

func (e *ErrorLog) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); !ok {
		return nil
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}
	if len(e.Metadata) == 0 {
		e.Metadata = json.RawMessage("{}")
	}
	return nil
}
