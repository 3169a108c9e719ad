package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gigline/backstage/internal/database"
	"github.com/gigline/backstage/internal/models"
)

var ErrNoActiveSimulation = errors.New("no active role simulation")

// Roles the storefront understands; anything else is rejected at the edge
var simulatableRoles = map[string]bool{
	models.SimRoleGuest:     true,
	models.SimRoleAttendee:  true,
	models.SimRoleOrganizer: true,
	models.SimRoleStaff:     true,
}

type RoleService struct{}

func NewRoleService() *RoleService {
	return &RoleService{}
}

// Start begins (or replaces) the user's role simulation for ttl minutes
func (s *RoleService) Start(ctx context.Context, userID int64, role string, ttl time.Duration) (*models.RoleSimulation, error) {
	if !simulatableRoles[role] {
		return nil, fmt.Errorf("unknown role %q", role)
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}

	sim := &models.RoleSimulation{
		UserID:        userID,
		SimulatedRole: role,
		ExpiresAt:     time.Now().Add(ttl),
	}

	// One active simulation per user: replace on conflict
	_, err := database.DB.NewInsert().
		Model(sim).
		On("CONFLICT (user_id) DO UPDATE").
		Set("simulated_role = EXCLUDED.simulated_role").
		Set("expires_at = EXCLUDED.expires_at").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start simulation: %w", err)
	}

	// On the replace path the in-memory row has no ID and a stale
	// created_at, so hand back what is actually stored.
	stored := new(models.RoleSimulation)
	if err := database.DB.NewSelect().
		Model(stored).
		Where("rs.user_id = ?", userID).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to reload simulation: %w", err)
	}
	return stored, nil
}

// Current returns the user's active simulation; expired counts as absent
func (s *RoleService) Current(ctx context.Context, userID int64) (*models.RoleSimulation, error) {
	sim := new(models.RoleSimulation)
	err := database.DB.NewSelect().
		Model(sim).
		Where("rs.user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoActiveSimulation
		}
		return nil, err
	}
	if sim.Expired(time.Now()) {
		return nil, ErrNoActiveSimulation
	}
	return sim, nil
}

// Stop ends the user's simulation
func (s *RoleService) Stop(ctx context.Context, userID int64) error {
	res, err := database.DB.NewDelete().
		Model((*models.RoleSimulation)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNoActiveSimulation
	}
	return nil
}

// SweepExpired removes lapsed simulations; called by the scheduler
func (s *RoleService) SweepExpired(ctx context.Context) (int64, error) {
	res, err := database.DB.NewDelete().
		Model((*models.RoleSimulation)(nil)).
		Where("expires_at < ?", time.Now()).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep simulations: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected > 0 {
		log.Printf("Swept %d expired role simulations", affected)
	}
	return affected, nil
}
