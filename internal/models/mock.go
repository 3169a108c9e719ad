package models

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Entities the mock generator can produce
const (
	MockEntityEvents = "events"
	MockEntityOrders = "orders"
	MockEntityUsers  = "users"
)

// MockBatch is the audit record for one generation run. Deleting a batch
// removes the rows it produced.
type MockBatch struct {
	bun.BaseModel `bun:"table:mock_batches,alias:mb"`

	ID        uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	UserID    int64     `bun:"user_id,notnull" json:"user_id"`
	Entity    string    `bun:"entity,notnull" json:"entity"`
	Count     int       `bun:"count,notnull" json:"count"`
	Seed      int64     `bun:"seed,notnull" json:"seed"`
	CreatedAt time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
}

var _ bun.BeforeAppendModelHook = (*MockBatch)(nil)

func (b *MockBatch) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); !ok {
		return nil
	}
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.CreatedAt = time.Now()
	return nil
}

// MockEvent is a generated ticketing event row, kept in its own table so
// mock data never mixes with production entities.
type MockEvent struct {
	bun.BaseModel `bun:"table:mock_events,alias:me"`

	ID         int64     `bun:"id,pk,autoincrement" json:"id"`
	BatchID    uuid.UUID `bun:"batch_id,notnull,type:uuid" json:"batch_id"`
	Name       string    `bun:"name,notnull" json:"name"`
	Venue      string    `bun:"venue,notnull" json:"venue"`
	Capacity   int       `bun:"capacity,notnull" json:"capacity"`
	PriceCents int       `bun:"price_cents,notnull" json:"price_cents"`
	StartsAt   time.Time `bun:"starts_at,notnull" json:"starts_at"`
	CreatedAt  time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
}
