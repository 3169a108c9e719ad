package models

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// PageDiagnostic is one page-load sample reported by the diagnostics tab.
type PageDiagnostic struct {
	bun.BaseModel `bun:"table:page_diagnostics,alias:pd"`

	ID           int64     `bun:"id,pk,autoincrement" json:"id"`
	PagePath     string    `bun:"page_path,notnull" json:"page_path"`
	LoadMs       int       `bun:"load_ms,notnull" json:"load_ms"`
	QueryCount   int       `bun:"query_count,default:0" json:"query_count"`
	PayloadBytes int64     `bun:"payload_bytes,default:0" json:"payload_bytes"`
	UserAgent    string    `bun:"user_agent" json:"user_agent,omitempty"`
	RecordedAt   time.Time `bun:"recorded_at,nullzero,default:current_timestamp" json:"recorded_at"`
}

// PageDiagnosticSummary aggregates samples per page path.
type PageDiagnosticSummary struct {
	PagePath  string  `bun:"page_path" json:"page_path"`
	Samples   int     `bun:"samples" json:"samples"`
	AvgLoadMs float64 `bun:"avg_load_ms" json:"avg_load_ms"`
	MaxLoadMs int     `bun:"max_load_ms" json:"max_load_ms"`
}

var _ bun.BeforeAppendModelHook = (*PageDiagnostic)(nil)

func (d *PageDiagnostic) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); ok && d.RecordedAt.IsZero() {
		d.RecordedAt = time.Now()
	}
	return nil
}
