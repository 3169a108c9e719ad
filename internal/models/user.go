package models

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// Roles a dev user can hold. Admin unlocks the mutation endpoints
// (flags, triage, scavenger seeding).
const (
	RoleDeveloper = "developer"
	RoleAdmin     = "admin"
)

type DevUser struct {
	bun.BaseModel `bun:"table:dev_users,alias:u"`

	ID           int64      `bun:"id,pk,autoincrement" json:"id"`
	Username     string     `bun:"username,notnull,unique" json:"username"`
	Email        string     `bun:"email,notnull,unique" json:"email"`
	PasswordHash string     `bun:"password_hash,notnull" json:"-"`
	Role         string     `bun:"role,notnull,default:'developer'" json:"role"`
	IsActive     bool       `bun:"is_active,default:true" json:"is_active"`
	CreatedAt    time.Time  `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt    time.Time  `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`
	LastLoginAt  *time.Time `bun:"last_login_at" json:"last_login_at,omitempty"`
}

// DevUserResponse is the safe representation for API responses
type DevUserResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
}

func (u *DevUser) ToResponse() *DevUserResponse {
	return &DevUserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
}

func (u *DevUser) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Timestamp hook
var _ bun.BeforeAppendModelHook = (*DevUser)(nil)

func (u *DevUser) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.InsertQuery:
		u.CreatedAt = time.Now()
		u.UpdatedAt = time.Now()
	case *bun.UpdateQuery:
		u.UpdatedAt = time.Now()
	}
	return nil
}
