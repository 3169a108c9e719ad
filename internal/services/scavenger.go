package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"regexp"
	"strings"
	"time"

	"github.com/gigline/backstage/internal/database"
	"github.com/gigline/backstage/internal/models"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"
)

// Claim failure modes, each surfaced to the client as a distinct 400
var (
	ErrInvalidCode          = errors.New("invalid code format")
	ErrCodeExpired          = errors.New("code expired")
	ErrInvalidLocationID    = errors.New("invalid location code")
	ErrLocationNotFound     = errors.New("location not found or inactive")
	ErrAlreadyDiscovered    = errors.New("location already discovered by another explorer")
	ErrUserAlreadyClaimed   = errors.New("you have already discovered this location")
	ErrDeviceAlreadyClaimed = errors.New("this device has already discovered this location")
	ErrTokenNotFound        = errors.New("invalid or already used code")
	ErrTokenPoolExhausted   = errors.New("all rewards for this location are gone")
)

// Canonical UUID shape, checked before the uuid is ever used in a query
var uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

// RewardEmail is the message handed to the mail queue after a claim
type RewardEmail struct {
	To           string  `json:"to"`
	DisplayName  string  `json:"display_name"`
	LocationName string  `json:"location_name"`
	RewardType   string  `json:"reward_type"`
	PromoCode    *string `json:"promo_code,omitempty"`
}

// RewardMailer dispatches reward emails. Delivery is best-effort; the claim
// paths log failures and carry on.
type RewardMailer interface {
	EnqueueRewardEmail(email RewardEmail) error
}

type ScavengerService struct {
	cipher *CodeCipher
	maxAge time.Duration
	mailer RewardMailer // nil disables reward emails
}

func NewScavengerService(cipher *CodeCipher, maxAge time.Duration, mailer RewardMailer) *ScavengerService {
	return &ScavengerService{
		cipher: cipher,
		maxAge: maxAge,
		mailer: mailer,
	}
}

// ClaimInput carries everything the current claim path needs
type ClaimInput struct {
	EncodedToken      string
	UserID            int64
	UserEmail         string
	DisplayName       string
	ShowOnLeaderboard bool
	DeviceFingerprint string
}

// ClaimResult is the success payload for both claim paths
type ClaimResult struct {
	ClaimPosition int     `json:"claim_position"`
	LocationName  string  `json:"location_name"`
	RewardType    string  `json:"reward_type"`
	PromoCode     *string `json:"promo_code,omitempty"`
	Message       string  `json:"message"`
}

// Claim runs the current QR claim protocol: decode, freshness check, uuid
// validation, location lookup, then a single transaction that inserts the
// claim conditionally. First-discoverer-wins is enforced by the partial
// unique index on scavenger_claims, not by a check-then-insert sequence, so
// two simultaneous scans of the same poster cannot both succeed.
func (s *ScavengerService) Claim(ctx context.Context, in ClaimInput) (*ClaimResult, error) {
	payload, err := s.cipher.Decode(in.EncodedToken)
	if err != nil {
		return nil, ErrInvalidCode
	}

	// Freshness window: an intercepted QR payload dies after one minute
	age := time.Now().UnixMilli() - payload.Timestamp
	if age > s.maxAge.Milliseconds() {
		return nil, ErrCodeExpired
	}

	canonical := strings.ToLower(payload.UUID)
	if !uuidPattern.MatchString(canonical) {
		return nil, ErrInvalidLocationID
	}
	locationID, err := uuid.Parse(canonical)
	if err != nil {
		return nil, ErrInvalidLocationID
	}

	location := new(models.ScavengerLocation)
	err = database.DB.NewSelect().
		Model(location).
		Where("sl.id = ?", locationID).
		Where("sl.is_active = TRUE").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLocationNotFound
		}
		return nil, fmt.Errorf("failed to load location: %w", err)
	}

	var result *ClaimResult
	err = database.DB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// Pre-checks only pick the most specific rejection; the insert below
		// is still the authoritative gate. A prior claim by this user blocks
		// regardless of how it was made, so check across sources first.
		claimed, err := tx.NewSelect().
			Model((*models.ScavengerClaim)(nil)).
			Where("user_id = ?", in.UserID).
			Where("location_id = ?", locationID).
			Exists(ctx)
		if err != nil {
			return fmt.Errorf("failed to check user claim: %w", err)
		}
		if claimed {
			return ErrUserAlreadyClaimed
		}

		existing := new(models.ScavengerClaim)
		err = tx.NewSelect().
			Model(existing).
			Where("sc.location_id = ?", locationID).
			Where("sc.source = ?", models.ClaimSourceQR).
			Scan(ctx)
		if err == nil {
			if in.DeviceFingerprint != "" && existing.DeviceFingerprint == in.DeviceFingerprint {
				return ErrDeviceAlreadyClaimed
			}
			return ErrAlreadyDiscovered
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to check existing claim: %w", err)
		}

		position, err := tx.NewSelect().
			Model((*models.ScavengerClaim)(nil)).
			Where("source = ?", models.ClaimSourceQR).
			Count(ctx)
		if err != nil {
			return fmt.Errorf("failed to count claims: %w", err)
		}
		position++

		claim := &models.ScavengerClaim{
			UserID:            in.UserID,
			LocationID:        locationID,
			Source:            models.ClaimSourceQR,
			DeviceFingerprint: in.DeviceFingerprint,
			ClaimPosition:     position,
			RewardType:        models.RewardGuestlist2,
			DisplayName:       in.DisplayName,
			ShowOnLeaderboard: in.ShowOnLeaderboard,
		}

		res, err := tx.NewInsert().
			Model(claim).
			On("CONFLICT DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert claim: %w", err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			// Lost the race to a concurrent scan
			return ErrAlreadyDiscovered
		}

		result = &ClaimResult{
			ClaimPosition: position,
			LocationName:  location.LocationName,
			RewardType:    models.RewardGuestlist2,
			Message:       fmt.Sprintf("You discovered %s! You are explorer #%d - guestlist entry for two is yours.", location.LocationName, position),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.sendRewardEmail(RewardEmail{
		To:           in.UserEmail,
		DisplayName:  in.DisplayName,
		LocationName: location.LocationName,
		RewardType:   models.RewardGuestlist2,
	})

	return result, nil
}

// LegacyClaimInput carries the superseded token-pool claim parameters
type LegacyClaimInput struct {
	Secret            string
	UserID            int64
	UserEmail         string
	DisplayName       string
	DeviceFingerprint string
}

// ClaimLegacy runs the superseded token-pool protocol: bcrypt-compare the
// scanned secret against every unclaimed token, roll a probabilistic reward,
// mark the token claimed and decrement the pool. The whole sequence runs in
// one transaction; a failure anywhere rolls everything back instead of the
// old compensating-write dance.
func (s *ScavengerService) ClaimLegacy(ctx context.Context, in LegacyClaimInput) (*ClaimResult, error) {
	if in.Secret == "" {
		return nil, ErrInvalidCode
	}

	var result *ClaimResult
	var mail RewardEmail
	err := database.DB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// O(n) scan over unclaimed tokens. The pool is small (printed QR
		// cards), so this stays tolerable despite the bcrypt cost.
		var tokens []models.ScavengerToken
		if err := tx.NewSelect().
			Model(&tokens).
			Where("st.is_claimed = FALSE").
			Scan(ctx); err != nil {
			return fmt.Errorf("failed to load tokens: %w", err)
		}

		var token *models.ScavengerToken
		for i := range tokens {
			if bcrypt.CompareHashAndPassword([]byte(tokens[i].TokenHash), []byte(in.Secret)) == nil {
				token = &tokens[i]
				break
			}
		}
		if token == nil {
			return ErrTokenNotFound
		}

		location := new(models.ScavengerLocation)
		err := tx.NewSelect().
			Model(location).
			Where("sl.id = ?", token.LocationID).
			Where("sl.is_active = TRUE").
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrLocationNotFound
			}
			return fmt.Errorf("failed to load location: %w", err)
		}

		exists, err := tx.NewSelect().
			Model((*models.ScavengerClaim)(nil)).
			Where("user_id = ?", in.UserID).
			Where("location_id = ?", token.LocationID).
			Exists(ctx)
		if err != nil {
			return fmt.Errorf("failed to check user claim: %w", err)
		}
		if exists {
			return ErrUserAlreadyClaimed
		}

		// Conditional flip keeps the unclaimed -> claimed transition
		// exactly-once even if two requests matched the same token
		res, err := tx.NewUpdate().
			Model((*models.ScavengerToken)(nil)).
			Set("is_claimed = TRUE").
			Set("claimed_by_user_id = ?", in.UserID).
			Set("claimed_at = CURRENT_TIMESTAMP").
			Where("id = ?", token.ID).
			Where("is_claimed = FALSE").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to claim token: %w", err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return ErrTokenNotFound
		}

		res, err = tx.NewUpdate().
			Model((*models.ScavengerLocation)(nil)).
			Set("tokens_remaining = tokens_remaining - 1").
			Where("id = ?", token.LocationID).
			Where("tokens_remaining > 0").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to decrement token pool: %w", err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return ErrTokenPoolExhausted
		}

		// 1 in 5 wins a free ticket, the rest get the location's promo code
		rewardType := models.RewardTwentyOff
		var promo *string
		if rand.IntN(5) == 0 {
			rewardType = models.RewardFreeTicket
		} else {
			promo = location.PromoCode
		}

		position, err := tx.NewSelect().
			Model((*models.ScavengerClaim)(nil)).
			Where("location_id = ?", token.LocationID).
			Count(ctx)
		if err != nil {
			return fmt.Errorf("failed to count claims: %w", err)
		}
		position++

		claim := &models.ScavengerClaim{
			UserID:            in.UserID,
			LocationID:        token.LocationID,
			Source:            models.ClaimSourceToken,
			DeviceFingerprint: in.DeviceFingerprint,
			ClaimPosition:     position,
			RewardType:        rewardType,
			PromoCode:         promo,
			DisplayName:       in.DisplayName,
		}

		insertRes, err := tx.NewInsert().
			Model(claim).
			On("CONFLICT DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert claim: %w", err)
		}
		if affected, _ := insertRes.RowsAffected(); affected == 0 {
			return ErrUserAlreadyClaimed
		}

		result = &ClaimResult{
			ClaimPosition: position,
			LocationName:  location.LocationName,
			RewardType:    rewardType,
			PromoCode:     promo,
			Message:       fmt.Sprintf("You found %s! Your reward: %s.", location.LocationName, rewardType),
		}
		mail = RewardEmail{
			To:           in.UserEmail,
			DisplayName:  in.DisplayName,
			LocationName: location.LocationName,
			RewardType:   rewardType,
			PromoCode:    promo,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.sendRewardEmail(mail)

	return result, nil
}

// sendRewardEmail hands the message to the mail queue. Failures are logged
// and swallowed: the claim row is already committed and is authoritative.
func (s *ScavengerService) sendRewardEmail(email RewardEmail) {
	if s.mailer == nil || email.To == "" {
		return
	}
	if err := s.mailer.EnqueueRewardEmail(email); err != nil {
		log.Printf("Failed to enqueue reward email for %s: %v", email.To, err)
	}
}

// Leaderboard lists opted-in claims in discovery order
func (s *ScavengerService) Leaderboard(ctx context.Context) ([]models.ScavengerClaim, error) {
	var claims []models.ScavengerClaim
	err := database.DB.NewSelect().
		Model(&claims).
		Relation("Location").
		Where("sc.show_on_leaderboard = TRUE").
		Order("sc.claimed_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// ListLocations returns every checkpoint with its discovery state
func (s *ScavengerService) ListLocations(ctx context.Context) ([]models.ScavengerLocation, error) {
	var locations []models.ScavengerLocation
	err := database.DB.NewSelect().
		Model(&locations).
		Order("sl.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return locations, nil
}

// CreateLocation seeds a new checkpoint
func (s *ScavengerService) CreateLocation(ctx context.Context, name string, promoCode *string) (*models.ScavengerLocation, error) {
	location := &models.ScavengerLocation{
		LocationName: name,
		IsActive:     true,
		PromoCode:    promoCode,
	}
	if _, err := database.DB.NewInsert().Model(location).Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to create location: %w", err)
	}
	return location, nil
}

// MintCode produces a fresh QR payload for a location. The embedded
// timestamp starts the redeem window.
func (s *ScavengerService) MintCode(ctx context.Context, locationID uuid.UUID) (string, error) {
	exists, err := database.DB.NewSelect().
		Model((*models.ScavengerLocation)(nil)).
		Where("id = ?", locationID).
		Where("is_active = TRUE").
		Exists(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to check location: %w", err)
	}
	if !exists {
		return "", ErrLocationNotFound
	}

	return s.cipher.Encode(CodePayload{
		UUID:      locationID.String(),
		Timestamp: time.Now().UnixMilli(),
	})
}
