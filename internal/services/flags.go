package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gigline/backstage/internal/database"
	"github.com/gigline/backstage/internal/models"
	"github.com/gosimple/slug"
)

var (
	ErrFlagNotFound = errors.New("feature flag not found")
	ErrFlagExists   = errors.New("a flag with this key already exists")
)

type FlagService struct{}

func NewFlagService() *FlagService {
	return &FlagService{}
}

// FlagUpdate carries the mutable flag fields; nil means leave unchanged
type FlagUpdate struct {
	Enabled           *bool
	RolloutPercentage *int
	Description       *string
}

// List returns all flags, keys sorted
func (s *FlagService) List(ctx context.Context) ([]models.FeatureFlag, error) {
	var flags []models.FeatureFlag
	err := database.DB.NewSelect().
		Model(&flags).
		Order("ff.key ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return flags, nil
}

// Get returns one flag by key
func (s *FlagService) Get(ctx context.Context, key string) (*models.FeatureFlag, error) {
	flag := new(models.FeatureFlag)
	err := database.DB.NewSelect().
		Model(flag).
		Where("ff.key = ?", key).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFlagNotFound
		}
		return nil, err
	}
	return flag, nil
}

// Create registers a new flag. The key is slugged from the display name so
// "New Checkout Flow" becomes "new-checkout-flow".
func (s *FlagService) Create(ctx context.Context, name, description string, updatedBy int64) (*models.FeatureFlag, error) {
	key := slug.Make(name)
	if key == "" {
		return nil, fmt.Errorf("flag name produces an empty key")
	}

	flag := &models.FeatureFlag{
		Key:               key,
		Name:              name,
		Description:       description,
		Enabled:           false,
		RolloutPercentage: 100,
		UpdatedBy:         &updatedBy,
	}

	// The unique key column arbitrates duplicates, so two concurrent creates
	// of the same key cannot both succeed.
	res, err := database.DB.NewInsert().
		Model(flag).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create flag: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, ErrFlagExists
	}
	return flag, nil
}

// Update patches a flag in place
func (s *FlagService) Update(ctx context.Context, key string, patch FlagUpdate, updatedBy int64) (*models.FeatureFlag, error) {
	query := database.DB.NewUpdate().
		Model((*models.FeatureFlag)(nil)).
		Set("updated_by = ?", updatedBy).
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("key = ?", key)

	if patch.Enabled != nil {
		query = query.Set("enabled = ?", *patch.Enabled)
	}
	if patch.RolloutPercentage != nil {
		pct := *patch.RolloutPercentage
		if pct < 0 || pct > 100 {
			return nil, fmt.Errorf("rollout percentage must be 0-100")
		}
		query = query.Set("rollout_percentage = ?", pct)
	}
	if patch.Description != nil {
		query = query.Set("description = ?", *patch.Description)
	}

	res, err := query.Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to update flag: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, ErrFlagNotFound
	}

	return s.Get(ctx, key)
}

// Delete removes a flag by key
func (s *FlagService) Delete(ctx context.Context, key string) error {
	res, err := database.DB.NewDelete().
		Model((*models.FeatureFlag)(nil)).
		Where("key = ?", key).
		Exec(ctx)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrFlagNotFound
	}
	return nil
}
