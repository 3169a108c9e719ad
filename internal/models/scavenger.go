package models

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Reward types handed out by the claim paths. The current flow always grants
// guestlist entry for two; the legacy token flow rolled between a free ticket
// and a discount promo code.
const (
	RewardGuestlist2 = "guestlist_2"
	RewardFreeTicket = "free_ticket"
	RewardTwentyOff  = "20%_off"
)

// ScavengerLocation is a physical checkpoint. Its UUID doubles as the
// discovery secret embedded in the QR payload.
type ScavengerLocation struct {
	bun.BaseModel `bun:"table:scavenger_locations,alias:sl"`

	ID           uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	LocationName string    `bun:"location_name,notnull" json:"location_name"`
	IsActive     bool      `bun:"is_active,default:true" json:"is_active"`
	PromoCode    *string   `bun:"promo_code" json:"promo_code,omitempty"`

	// Legacy token-pool counters. The current flow ignores them.
	TokensTotal     int `bun:"tokens_total,default:0" json:"tokens_total"`
	TokensRemaining int `bun:"tokens_remaining,default:0" json:"tokens_remaining"`

	CreatedAt time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`
}

var _ bun.BeforeAppendModelHook = (*ScavengerLocation)(nil)

func (l *ScavengerLocation) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.InsertQuery:
		if l.ID == uuid.Nil {
			l.ID = uuid.New()
		}
		l.CreatedAt = time.Now()
		l.UpdatedAt = time.Now()
	case *bun.UpdateQuery:
		l.UpdatedAt = time.Now()
	}
	return nil
}

// Claim sources. QR claims are governed by first-discoverer-wins (a partial
// unique index on location_id); token claims by one-per-user-per-location.
const (
	ClaimSourceQR    = "qr"
	ClaimSourceToken = "token"
)

// ScavengerClaim records a successful discovery. The partial unique index on
// location_id (source = 'qr') is what makes first-discoverer-wins hold under
// concurrent claims; the service layer never updates or deletes these rows.
type ScavengerClaim struct {
	bun.BaseModel `bun:"table:scavenger_claims,alias:sc"`

	ID                int64     `bun:"id,pk,autoincrement" json:"id"`
	UserID            int64     `bun:"user_id,notnull" json:"user_id"`
	LocationID        uuid.UUID `bun:"location_id,notnull,type:uuid" json:"location_id"`
	Source            string    `bun:"source,notnull,default:'qr'" json:"source"`
	DeviceFingerprint string    `bun:"device_fingerprint,notnull" json:"-"`
	ClaimPosition     int       `bun:"claim_position,notnull" json:"claim_position"`
	RewardType        string    `bun:"reward_type,notnull" json:"reward_type"`
	PromoCode         *string   `bun:"promo_code" json:"promo_code,omitempty"`
	DisplayName       string    `bun:"display_name" json:"display_name"`
	ShowOnLeaderboard bool      `bun:"show_on_leaderboard,default:false" json:"show_on_leaderboard"`
	ClaimedAt         time.Time `bun:"claimed_at,nullzero,default:current_timestamp" json:"claimed_at"`

	Location *ScavengerLocation `bun:"rel:belongs-to,join:location_id=id" json:"location,omitempty"`
}

var _ bun.BeforeAppendModelHook = (*ScavengerClaim)(nil)

func (c *ScavengerClaim) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); ok {
		if c.Source == "" {
			c.Source = ClaimSourceQR
		}
		if c.ClaimedAt.IsZero() {
			c.ClaimedAt = time.Now()
		}
	}
	return nil
}

// ScavengerToken is a legacy pre-issued secret. The plaintext secret lives
// only in printed QR cards; the row stores a bcrypt hash. A token goes
// unclaimed -> claimed exactly once.
type ScavengerToken struct {
	bun.BaseModel `bun:"table:scavenger_tokens,alias:st"`

	ID              int64      `bun:"id,pk,autoincrement" json:"id"`
	LocationID      uuid.UUID  `bun:"location_id,notnull,type:uuid" json:"location_id"`
	TokenHash       string     `bun:"token_hash,notnull" json:"-"`
	IsClaimed       bool       `bun:"is_claimed,default:false" json:"is_claimed"`
	ClaimedByUserID *int64     `bun:"claimed_by_user_id" json:"claimed_by_user_id,omitempty"`
	ClaimedAt       *time.Time `bun:"claimed_at" json:"claimed_at,omitempty"`
	CreatedAt       time.Time  `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
}
