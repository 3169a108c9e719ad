package models

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

type FeatureFlag struct {
	bun.BaseModel `bun:"table:feature_flags,alias:ff"`

	ID          int64  `bun:"id,pk,autoincrement" json:"id"`
	Key         string `bun:"key,notnull,unique" json:"key"`
	Name        string `bun:"name,notnull" json:"name"`
	Description string `bun:"description" json:"description,omitempty"`
	Enabled     bool   `bun:"enabled,default:false" json:"enabled"`
	// Percentage of sessions the flag applies to when enabled, 0-100
	RolloutPercentage int       `bun:"rollout_percentage,default:100" json:"rollout_percentage"`
	UpdatedBy         *int64    `bun:"updated_by" json:"updated_by,omitempty"`
	CreatedAt         time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt         time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`
}

var _ bun.BeforeAppendModelHook = (*FeatureFlag)(nil)

func (f *FeatureFlag) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.InsertQuery:
		f.CreatedAt = time.Now()
		f.UpdatedAt = time.Now()
	case *bun.UpdateQuery:
		f.UpdatedAt = time.Now()
	}
	return nil
}
