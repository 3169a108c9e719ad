package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/gigline/backstage/internal/database"
	"github.com/gigline/backstage/internal/models"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var ErrBatchNotFound = errors.New("mock batch not found")

const maxMockCount = 500

var mockEventNames = []string{
	"Neon Nights", "Warehouse Sessions", "Rooftop Sundown", "Basement Tapes",
	"Static Bloom", "Velvet Hour", "Echo Garden", "Midnight Transit",
}

var mockVenues = []string{
	"The Foundry", "Pier 9", "Gasworks Hall", "The Attic", "Corner Stage",
	"Old Depot", "Riverlight", "Union Cellar",
}

type MockDataService struct{}

func NewMockDataService() *MockDataService {
	return &MockDataService{}
}

// Generate creates count mock rows for entity, seeded so the same seed
// reproduces the same data. The batch row and its rows commit together.
func (s *MockDataService) Generate(ctx context.Context, userID int64, entity string, count int, seed int64) (*models.MockBatch, error) {
	if entity != models.MockEntityEvents && entity != models.MockEntityOrders && entity != models.MockEntityUsers {
		return nil, fmt.Errorf("unknown mock entity %q", entity)
	}
	if count <= 0 || count > maxMockCount {
		return nil, fmt.Errorf("count must be between 1 and %d", maxMockCount)
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	batch := &models.MockBatch{
		UserID: userID,
		Entity: entity,
		Count:  count,
		Seed:   seed,
	}

	err := database.DB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(batch).Exec(ctx); err != nil {
			return fmt.Errorf("failed to create batch: %w", err)
		}

		// Orders and users reuse the event generator's tables upstream; for
		// now every entity materializes as mock events so the storefront has
		// something to render.
		events := generateMockEvents(batch.ID, count, seed)
		if _, err := tx.NewInsert().Model(&events).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert mock rows: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return batch, nil
}

// generateMockEvents is deterministic for a given (batchID-independent) seed
func generateMockEvents(batchID uuid.UUID, count int, seed int64) []models.MockEvent {
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>1))
	base := time.Date(2026, time.January, 1, 20, 0, 0, 0, time.UTC)

	events := make([]models.MockEvent, count)
	for i := range events {
		events[i] = models.MockEvent{
			BatchID:    batchID,
			Name:       fmt.Sprintf("%s #%d", mockEventNames[rng.IntN(len(mockEventNames))], i+1),
			Venue:      mockVenues[rng.IntN(len(mockVenues))],
			Capacity:   50 + rng.IntN(950),
			PriceCents: 500 + rng.IntN(9500),
			StartsAt:   base.AddDate(0, 0, rng.IntN(365)),
		}
	}
	return events
}

// ListBatches returns the user's generation history, newest first
func (s *MockDataService) ListBatches(ctx context.Context, userID int64) ([]models.MockBatch, error) {
	var batches []models.MockBatch
	err := database.DB.NewSelect().
		Model(&batches).
		Where("mb.user_id = ?", userID).
		Order("mb.created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return batches, nil
}

// DeleteBatch removes a batch and every row it generated, atomically
func (s *MockDataService) DeleteBatch(ctx context.Context, id uuid.UUID, userID int64) error {
	return database.DB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		batch := new(models.MockBatch)
		err := tx.NewSelect().
			Model(batch).
			Where("mb.id = ?", id).
			Where("mb.user_id = ?", userID).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrBatchNotFound
		}
		if err != nil {
			return err
		}

		if _, err := tx.NewDelete().
			Model((*models.MockEvent)(nil)).
			Where("batch_id = ?", id).
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to delete mock rows: %w", err)
		}

		if _, err := tx.NewDelete().
			Model((*models.MockBatch)(nil)).
			Where("id = ?", id).
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to delete batch: %w", err)
		}
		return nil
	})
}
