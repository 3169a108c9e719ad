package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gigline/backstage/internal/models"
	"github.com/gigline/backstage/internal/services"
	"github.com/gigline/backstage/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

// captureMailer records enqueued reward emails and can simulate a broker
// outage
type captureMailer struct {
	sent []services.RewardEmail
	err  error
}

func (m *captureMailer) EnqueueRewardEmail(email services.RewardEmail) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, email)
	return nil
}

func newScavengerFixture(t *testing.T) (*bun.DB, *services.CodeCipher, *services.ScavengerService, *captureMailer) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	cipher := services.NewCodeCipher("fixture-secret")
	mailer := &captureMailer{}
	svc := services.NewScavengerService(cipher, time.Minute, mailer)
	return db, cipher, svc, mailer
}

func TestClaimSuccess(t *testing.T) {
	db, cipher, svc, mailer := newScavengerFixture(t)
	user := testutil.CreateUser(t, db, "ada@gigline.dev", "ada", "pass", models.RoleDeveloper)
	location := testutil.CreateLocation(t, db, "Velvet Underground Stage", nil)

	result, err := svc.Claim(context.Background(), services.ClaimInput{
		EncodedToken:      testutil.FreshCode(t, cipher, location.ID),
		UserID:            user.ID,
		UserEmail:         user.Email,
		DisplayName:       "Ada",
		ShowOnLeaderboard: true,
		DeviceFingerprint: "device-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.ClaimPosition)
	assert.Equal(t, models.RewardGuestlist2, result.RewardType)
	assert.Equal(t, "Velvet Underground Stage", result.LocationName)

	var claims []models.ScavengerClaim
	require.NoError(t, db.NewSelect().Model(&claims).Scan(context.Background()))
	require.Len(t, claims, 1)
	assert.Equal(t, models.ClaimSourceQR, claims[0].Source)
	assert.Equal(t, user.ID, claims[0].UserID)
	assert.Equal(t, models.RewardGuestlist2, claims[0].RewardType)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "ada@gigline.dev", mailer.sent[0].To)
	assert.Equal(t, models.RewardGuestlist2, mailer.sent[0].RewardType)
}

func TestClaimSameUserReplayRejected(t *testing.T) {
	db, cipher, svc, _ := newScavengerFixture(t)
	user := testutil.CreateUser(t, db, "ada@gigline.dev", "ada", "pass", models.RoleDeveloper)
	location := testutil.CreateLocation(t, db, "Back Alley Mural", nil)

	in := services.ClaimInput{
		EncodedToken:      testutil.FreshCode(t, cipher, location.ID),
		UserID:            user.ID,
		UserEmail:         user.Email,
		DeviceFingerprint: "device-1",
	}
	_, err := svc.Claim(context.Background(), in)
	require.NoError(t, err)

	// Same user scanning a fresh code still bounces
	in.EncodedToken = testutil.FreshCode(t, cipher, location.ID)
	_, err = svc.Claim(context.Background(), in)
	assert.ErrorIs(t, err, services.ErrUserAlreadyClaimed)

	count, err := db.NewSelect().Model((*models.ScavengerClaim)(nil)).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestClaimFirstDiscovererWins(t *testing.T) {
	db, cipher, svc, _ := newScavengerFixture(t)
	first := testutil.CreateUser(t, db, "first@gigline.dev", "first", "pass", models.RoleDeveloper)
	second := testutil.CreateUser(t, db, "second@gigline.dev", "second", "pass", models.RoleDeveloper)
	location := testutil.CreateLocation(t, db, "Rooftop Soundcheck", nil)

	_, err := svc.Claim(context.Background(), services.ClaimInput{
		EncodedToken:      testutil.FreshCode(t, cipher, location.ID),
		UserID:            first.ID,
		DeviceFingerprint: "device-1",
	})
	require.NoError(t, err)

	_, err = svc.Claim(context.Background(), services.ClaimInput{
		EncodedToken:      testutil.FreshCode(t, cipher, location.ID),
		UserID:            second.ID,
		DeviceFingerprint: "device-2",
	})
	assert.ErrorIs(t, err, services.ErrAlreadyDiscovered)
}

func TestClaimSameDeviceDifferentUserRejected(t *testing.T) {
	db, cipher, svc, _ := newScavengerFixture(t)
	first := testutil.CreateUser(t, db, "first@gigline.dev", "first", "pass", models.RoleDeveloper)
	second := testutil.CreateUser(t, db, "second@gigline.dev", "second", "pass", models.RoleDeveloper)
	location := testutil.CreateLocation(t, db, "Green Room Door", nil)

	_, err := svc.Claim(context.Background(), services.ClaimInput{
		EncodedToken:      testutil.FreshCode(t, cipher, location.ID),
		UserID:            first.ID,
		DeviceFingerprint: "shared-device",
	})
	require.NoError(t, err)

	_, err = svc.Claim(context.Background(), services.ClaimInput{
		EncodedToken:      testutil.FreshCode(t, cipher, location.ID),
		UserID:            second.ID,
		DeviceFingerprint: "shared-device",
	})
	assert.ErrorIs(t, err, services.ErrDeviceAlreadyClaimed)
}

func TestClaimBlockedByOwnLegacyClaim(t *testing.T) {
	db, cipher, svc, _ := newScavengerFixture(t)
	holder := testutil.CreateUser(t, db, "holder@gigline.dev", "holder", "pass", models.RoleDeveloper)
	other := testutil.CreateUser(t, db, "other@gigline.dev", "other", "pass", models.RoleDeveloper)
	location := testutil.CreateLocation(t, db, "Catwalk Gate", nil)
	testutil.CreateToken(t, db, location.ID, "printed-secret-001")

	_, err := svc.ClaimLegacy(context.Background(), services.LegacyClaimInput{
		Secret: "printed-secret-001",
		UserID: holder.ID,
	})
	require.NoError(t, err)

	// The token claim counts as this user's discovery for QR too
	_, err = svc.Claim(context.Background(), services.ClaimInput{
		EncodedToken:      testutil.FreshCode(t, cipher, location.ID),
		UserID:            holder.ID,
		DeviceFingerprint: "device-1",
	})
	assert.ErrorIs(t, err, services.ErrUserAlreadyClaimed)

	// Someone else's token claim does not burn the QR discovery
	result, err := svc.Claim(context.Background(), services.ClaimInput{
		EncodedToken:      testutil.FreshCode(t, cipher, location.ID),
		UserID:            other.ID,
		DeviceFingerprint: "device-2",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.ClaimPosition)
}

func TestClaimExpiredCode(t *testing.T) {
	db, cipher, svc, _ := newScavengerFixture(t)
	user := testutil.CreateUser(t, db, "ada@gigline.dev", "ada", "pass", models.RoleDeveloper)
	location := testutil.CreateLocation(t, db, "Loading Dock", nil)

	stale, err := cipher.Encode(services.CodePayload{
		UUID:      location.ID.String(),
		Timestamp: time.Now().Add(-61 * time.Second).UnixMilli(),
	})
	require.NoError(t, err)

	_, err = svc.Claim(context.Background(), services.ClaimInput{
		EncodedToken: stale,
		UserID:       user.ID,
	})
	assert.ErrorIs(t, err, services.ErrCodeExpired)
}

func TestClaimMalformedCodes(t *testing.T) {
	db, cipher, svc, _ := newScavengerFixture(t)
	user := testutil.CreateUser(t, db, "ada@gigline.dev", "ada", "pass", models.RoleDeveloper)

	_, err := svc.Claim(context.Background(), services.ClaimInput{
		EncodedToken: "!!!garbage!!!",
		UserID:       user.ID,
	})
	assert.ErrorIs(t, err, services.ErrInvalidCode)

	// Well-formed envelope carrying a non-UUID payload
	notUUID, err := cipher.Encode(services.CodePayload{
		UUID:      "robert'); drop table",
		Timestamp: time.Now().UnixMilli(),
	})
	require.NoError(t, err)
	_, err = svc.Claim(context.Background(), services.ClaimInput{
		EncodedToken: notUUID,
		UserID:       user.ID,
	})
	assert.ErrorIs(t, err, services.ErrInvalidLocationID)
}

func TestClaimUppercaseUUIDCanonicalized(t *testing.T) {
	db, cipher, svc, _ := newScavengerFixture(t)
	user := testutil.CreateUser(t, db, "ada@gigline.dev", "ada", "pass", models.RoleDeveloper)
	location := testutil.CreateLocation(t, db, "Pit Barrier", nil)

	code, err := cipher.Encode(services.CodePayload{
		UUID:      strings.ToUpper(location.ID.String()),
		Timestamp: time.Now().UnixMilli(),
	})
	require.NoError(t, err)

	result, err := svc.Claim(context.Background(), services.ClaimInput{
		EncodedToken: code,
		UserID:       user.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.ClaimPosition)
}

func TestClaimUnknownOrInactiveLocation(t *testing.T) {
	db, cipher, svc, _ := newScavengerFixture(t)
	user := testutil.CreateUser(t, db, "ada@gigline.dev", "ada", "pass", models.RoleDeveloper)

	_, err := svc.Claim(context.Background(), services.ClaimInput{
		EncodedToken: testutil.FreshCode(t, cipher, uuid.New()),
		UserID:       user.ID,
	})
	assert.ErrorIs(t, err, services.ErrLocationNotFound)

	location := testutil.CreateLocation(t, db, "Retired Checkpoint", nil)
	_, err = db.NewUpdate().
		Model((*models.ScavengerLocation)(nil)).
		Set("is_active = FALSE").
		Where("id = ?", location.ID).
		Exec(context.Background())
	require.NoError(t, err)

	_, err = svc.Claim(context.Background(), services.ClaimInput{
		EncodedToken: testutil.FreshCode(t, cipher, location.ID),
		UserID:       user.ID,
	})
	assert.ErrorIs(t, err, services.ErrLocationNotFound)
}

func TestClaimSucceedsWhenMailerDown(t *testing.T) {
	db, cipher, svc, mailer := newScavengerFixture(t)
	mailer.err = errors.New("broker unreachable")
	user := testutil.CreateUser(t, db, "ada@gigline.dev", "ada", "pass", models.RoleDeveloper)
	location := testutil.CreateLocation(t, db, "Merch Table", nil)

	result, err := svc.Claim(context.Background(), services.ClaimInput{
		EncodedToken: testutil.FreshCode(t, cipher, location.ID),
		UserID:       user.ID,
		UserEmail:    user.Email,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.ClaimPosition)
}

func TestClaimWorksWithoutMailer(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cipher := services.NewCodeCipher("fixture-secret")
	svc := services.NewScavengerService(cipher, time.Minute, nil)
	user := testutil.CreateUser(t, db, "ada@gigline.dev", "ada", "pass", models.RoleDeveloper)
	location := testutil.CreateLocation(t, db, "Box Office", nil)

	_, err := svc.Claim(context.Background(), services.ClaimInput{
		EncodedToken: testutil.FreshCode(t, cipher, location.ID),
		UserID:       user.ID,
		UserEmail:    user.Email,
	})
	require.NoError(t, err)
}

func TestMintCodeRoundTrip(t *testing.T) {
	db, _, svc, _ := newScavengerFixture(t)
	user := testutil.CreateUser(t, db, "ada@gigline.dev", "ada", "pass", models.RoleDeveloper)
	location := testutil.CreateLocation(t, db, "Soundboard", nil)

	code, err := svc.MintCode(context.Background(), location.ID)
	require.NoError(t, err)

	result, err := svc.Claim(context.Background(), services.ClaimInput{
		EncodedToken: code,
		UserID:       user.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, location.LocationName, result.LocationName)

	_, err = svc.MintCode(context.Background(), uuid.New())
	assert.ErrorIs(t, err, services.ErrLocationNotFound)
}

func TestCreateLocationAssignsID(t *testing.T) {
	db, _, svc, _ := newScavengerFixture(t)
	promo := "GIGLINE20"

	location, err := svc.CreateLocation(context.Background(), "Backstage Corridor", &promo)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, location.ID)
	assert.False(t, location.CreatedAt.IsZero())

	second, err := svc.CreateLocation(context.Background(), "Side Entrance", nil)
	require.NoError(t, err)
	assert.NotEqual(t, location.ID, second.ID)

	// The generated ID is the one stored, so codes minted for it redeem
	code, err := svc.MintCode(context.Background(), location.ID)
	require.NoError(t, err)
	user := testutil.CreateUser(t, db, "ada@gigline.dev", "ada", "pass", models.RoleDeveloper)
	result, err := svc.Claim(context.Background(), services.ClaimInput{
		EncodedToken: code,
		UserID:       user.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Backstage Corridor", result.LocationName)
}

func TestClaimLegacySuccess(t *testing.T) {
	db, _, svc, mailer := newScavengerFixture(t)
	user := testutil.CreateUser(t, db, "ada@gigline.dev", "ada", "pass", models.RoleDeveloper)
	promo := "GIGLINE20"
	location := testutil.CreateLocation(t, db, "Warehouse Door 3", &promo)
	token := testutil.CreateToken(t, db, location.ID, "printed-secret-001")

	result, err := svc.ClaimLegacy(context.Background(), services.LegacyClaimInput{
		Secret:      "printed-secret-001",
		UserID:      user.ID,
		UserEmail:   user.Email,
		DisplayName: "Ada",
	})
	require.NoError(t, err)

	assert.Contains(t, []string{models.RewardFreeTicket, models.RewardTwentyOff}, result.RewardType)
	if result.RewardType == models.RewardTwentyOff {
		require.NotNil(t, result.PromoCode)
		assert.Equal(t, promo, *result.PromoCode)
	} else {
		assert.Nil(t, result.PromoCode)
	}

	reloaded := new(models.ScavengerToken)
	require.NoError(t, db.NewSelect().Model(reloaded).Where("st.id = ?", token.ID).Scan(context.Background()))
	assert.True(t, reloaded.IsClaimed)
	require.NotNil(t, reloaded.ClaimedByUserID)
	assert.Equal(t, user.ID, *reloaded.ClaimedByUserID)

	pool := new(models.ScavengerLocation)
	require.NoError(t, db.NewSelect().Model(pool).Where("sl.id = ?", location.ID).Scan(context.Background()))
	assert.Equal(t, 4, pool.TokensRemaining)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, result.RewardType, mailer.sent[0].RewardType)
}

func TestClaimLegacyUnknownSecret(t *testing.T) {
	db, _, svc, _ := newScavengerFixture(t)
	user := testutil.CreateUser(t, db, "ada@gigline.dev", "ada", "pass", models.RoleDeveloper)
	location := testutil.CreateLocation(t, db, "Warehouse Door 3", nil)
	testutil.CreateToken(t, db, location.ID, "printed-secret-001")

	_, err := svc.ClaimLegacy(context.Background(), services.LegacyClaimInput{
		Secret: "not-a-real-secret",
		UserID: user.ID,
	})
	assert.ErrorIs(t, err, services.ErrTokenNotFound)

	_, err = svc.ClaimLegacy(context.Background(), services.LegacyClaimInput{
		Secret: "",
		UserID: user.ID,
	})
	assert.ErrorIs(t, err, services.ErrInvalidCode)
}

func TestClaimLegacyOnePerUserPerLocation(t *testing.T) {
	db, _, svc, _ := newScavengerFixture(t)
	user := testutil.CreateUser(t, db, "ada@gigline.dev", "ada", "pass", models.RoleDeveloper)
	location := testutil.CreateLocation(t, db, "Warehouse Door 3", nil)
	testutil.CreateToken(t, db, location.ID, "printed-secret-001")
	testutil.CreateToken(t, db, location.ID, "printed-secret-002")

	_, err := svc.ClaimLegacy(context.Background(), services.LegacyClaimInput{
		Secret: "printed-secret-001",
		UserID: user.ID,
	})
	require.NoError(t, err)

	_, err = svc.ClaimLegacy(context.Background(), services.LegacyClaimInput{
		Secret: "printed-secret-002",
		UserID: user.ID,
	})
	assert.ErrorIs(t, err, services.ErrUserAlreadyClaimed)
}

func TestClaimLegacyPoolExhaustedRollsBack(t *testing.T) {
	db, _, svc, _ := newScavengerFixture(t)
	user := testutil.CreateUser(t, db, "ada@gigline.dev", "ada", "pass", models.RoleDeveloper)
	location := testutil.CreateLocation(t, db, "Warehouse Door 3", nil)
	token := testutil.CreateToken(t, db, location.ID, "printed-secret-001")

	_, err := db.NewUpdate().
		Model((*models.ScavengerLocation)(nil)).
		Set("tokens_remaining = 0").
		Where("id = ?", location.ID).
		Exec(context.Background())
	require.NoError(t, err)

	_, err = svc.ClaimLegacy(context.Background(), services.LegacyClaimInput{
		Secret: "printed-secret-001",
		UserID: user.ID,
	})
	assert.ErrorIs(t, err, services.ErrTokenPoolExhausted)

	// The token flip rolled back with the rest of the transaction
	reloaded := new(models.ScavengerToken)
	require.NoError(t, db.NewSelect().Model(reloaded).Where("st.id = ?", token.ID).Scan(context.Background()))
	assert.False(t, reloaded.IsClaimed)
}

func TestLeaderboardOnlyShowsOptedIn(t *testing.T) {
	db, cipher, svc, _ := newScavengerFixture(t)
	shown := testutil.CreateUser(t, db, "shown@gigline.dev", "shown", "pass", models.RoleDeveloper)
	hidden := testutil.CreateUser(t, db, "hidden@gigline.dev", "hidden", "pass", models.RoleDeveloper)
	locA := testutil.CreateLocation(t, db, "Stage Left", nil)
	locB := testutil.CreateLocation(t, db, "Stage Right", nil)

	_, err := svc.Claim(context.Background(), services.ClaimInput{
		EncodedToken:      testutil.FreshCode(t, cipher, locA.ID),
		UserID:            shown.ID,
		DisplayName:       "Shown",
		ShowOnLeaderboard: true,
	})
	require.NoError(t, err)
	_, err = svc.Claim(context.Background(), services.ClaimInput{
		EncodedToken:      testutil.FreshCode(t, cipher, locB.ID),
		UserID:            hidden.ID,
		DisplayName:       "Hidden",
		ShowOnLeaderboard: false,
	})
	require.NoError(t, err)

	entries, err := svc.Leaderboard(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Shown", entries[0].DisplayName)
}
