// Package testutil wires an in-memory SQLite database behind the package
// globals so service and handler tests run without Postgres.
package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/gigline/backstage/internal/database"
	"github.com/gigline/backstage/internal/models"
	"github.com/gigline/backstage/internal/services"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"golang.org/x/crypto/bcrypt"
)

// SetupTestDB opens a fresh in-memory database, installs the schema and
// points database.DB at it for the duration of the test.
func SetupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// A single connection keeps the in-memory database alive and isolated
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	if err := database.CreateSchema(context.Background(), db); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	prev := database.DB
	database.DB = db
	t.Cleanup(func() {
		database.DB = prev
		db.Close()
	})

	return db
}

// CreateUser inserts a dev user with a bcrypt-hashed password
func CreateUser(t *testing.T, db *bun.DB, email, username, password, role string) *models.DevUser {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	user := &models.DevUser{
		Email:        email,
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
	}
	if _, err := db.NewInsert().Model(user).Exec(context.Background()); err != nil {
		t.Fatalf("Failed to insert user: %v", err)
	}
	return user
}

// CreateLocation inserts an active scavenger location
func CreateLocation(t *testing.T, db *bun.DB, name string, promo *string) *models.ScavengerLocation {
	t.Helper()

	location := &models.ScavengerLocation{
		ID:              uuid.New(),
		LocationName:    name,
		IsActive:        true,
		PromoCode:       promo,
		TokensTotal:     5,
		TokensRemaining: 5,
	}
	if _, err := db.NewInsert().Model(location).Exec(context.Background()); err != nil {
		t.Fatalf("Failed to insert location: %v", err)
	}
	return location
}

// CreateToken inserts an unclaimed legacy token for a location and returns
// the plaintext secret
func CreateToken(t *testing.T, db *bun.DB, locationID uuid.UUID, secret string) *models.ScavengerToken {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash token: %v", err)
	}

	token := &models.ScavengerToken{
		LocationID: locationID,
		TokenHash:  string(hash),
	}
	if _, err := db.NewInsert().Model(token).Exec(context.Background()); err != nil {
		t.Fatalf("Failed to insert token: %v", err)
	}
	return token
}

// FreshCode mints a valid encoded claim code for a location
func FreshCode(t *testing.T, cipher *services.CodeCipher, locationID uuid.UUID) string {
	t.Helper()

	code, err := cipher.Encode(services.CodePayload{
		UUID:      locationID.String(),
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		t.Fatalf("Failed to encode claim code: %v", err)
	}
	return code
}
