package models

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// Roles the simulation tab can impersonate on the storefront
const (
	SimRoleGuest     = "guest"
	SimRoleAttendee  = "attendee"
	SimRoleOrganizer = "organizer"
	SimRoleStaff     = "staff"
)

// RoleSimulation lets a developer browse the app as another role for a
// bounded window. One active simulation per user; expired rows are swept
// by the scheduler.
type RoleSimulation struct {
	bun.BaseModel `bun:"table:role_simulations,alias:rs"`

	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	UserID        int64     `bun:"user_id,notnull,unique" json:"user_id"`
	SimulatedRole string    `bun:"simulated_role,notnull" json:"simulated_role"`
	ExpiresAt     time.Time `bun:"expires_at,notnull" json:"expires_at"`
	CreatedAt     time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
}

func (s *RoleSimulation) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

var _ bun.BeforeAppendModelHook = (*RoleSimulation)(nil)

func (s *RoleSimulation) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); ok {
		s.CreatedAt = time.Now()
	}
	return nil
}
