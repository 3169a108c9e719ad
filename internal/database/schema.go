package database

import (
	"context"
	"fmt"

	"github.com/gigline/backstage/internal/models"
	"github.com/uptrace/bun"
)

// CreateSchema creates every table and index this service owns. Safe to run
// on every boot; everything is IF NOT EXISTS.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	tables := []interface{}{
		(*models.DevUser)(nil),
		(*models.ScavengerLocation)(nil),
		(*models.ScavengerClaim)(nil),
		(*models.ScavengerToken)(nil),
		(*models.FeatureFlag)(nil),
		(*models.DevNote)(nil),
		(*models.AdminRequest)(nil),
		(*models.ErrorLog)(nil),
		(*models.PageDiagnostic)(nil),
		(*models.RoleSimulation)(nil),
		(*models.MockBatch)(nil),
		(*models.MockEvent)(nil),
	}

	for _, model := range tables {
		if _, err := db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table for %T: %w", model, err)
		}
	}

	// First-discoverer-wins for QR claims. Partial so the legacy token path
	// can record several claims against one location's pool.
	if _, err := db.NewCreateIndex().
		Model((*models.ScavengerClaim)(nil)).
		Index("ux_scavenger_claims_qr_location").
		Column("location_id").
		Unique().
		IfNotExists().
		Where("source = 'qr'").
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create qr claim index: %w", err)
	}

	// One claim per user per location regardless of source
	if _, err := db.NewCreateIndex().
		Model((*models.ScavengerClaim)(nil)).
		Index("ux_scavenger_claims_user_location").
		Column("user_id", "location_id").
		Unique().
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create user claim index: %w", err)
	}

	return nil
}
