package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gigline/backstage/internal/models"
	"github.com/gigline/backstage/internal/routes"
	"github.com/gigline/backstage/internal/services"
	"github.com/gigline/backstage/internal/testutil"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type apiFixture struct {
	app    *fiber.App
	db     *bun.DB
	cipher *services.CodeCipher
	jwt    *services.JWTService
}

func setupAPI(t *testing.T) *apiFixture {
	t.Helper()

	db := testutil.SetupTestDB(t)
	jwtService := services.NewJWTService("test-jwt-secret", 24)
	authService := services.NewAuthService(jwtService)
	cipher := services.NewCodeCipher("test-code-secret")
	scavengerService := services.NewScavengerService(cipher, time.Minute, nil)

	app := fiber.New()
	routes.SetupRoutes(app, jwtService, authService, scavengerService)

	return &apiFixture{app: app, db: db, cipher: cipher, jwt: jwtService}
}

func (f *apiFixture) tokenFor(t *testing.T, user *models.DevUser) string {
	t.Helper()
	token, err := f.jwt.GenerateToken(user.ID, user.Email, user.Username, user.Role)
	require.NoError(t, err)
	return token
}

func (f *apiFixture) request(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := f.app.Test(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	return body
}

func TestClaimEndpoint(t *testing.T) {
	f := setupAPI(t)
	user := testutil.CreateUser(t, f.db, "ada@gigline.dev", "ada", "pass", models.RoleDeveloper)
	location := testutil.CreateLocation(t, f.db, "Velvet Underground Stage", nil)
	token := f.tokenFor(t, user)

	resp := f.request(t, http.MethodPost, "/api/scavenger/claim", token, fiber.Map{
		"token":               testutil.FreshCode(t, f.cipher, location.ID),
		"display_name":        "Ada",
		"show_on_leaderboard": true,
		"device_fingerprint":  "device-1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.EqualValues(t, 1, body["claim_position"])
	assert.Equal(t, models.RewardGuestlist2, body["reward_type"])
	assert.Equal(t, "Velvet Underground Stage", body["location_name"])
}

func TestClaimEndpointRequiresAuth(t *testing.T) {
	f := setupAPI(t)

	resp := f.request(t, http.MethodPost, "/api/scavenger/claim", "", fiber.Map{"token": "whatever"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = f.request(t, http.MethodPost, "/api/scavenger/claim", "not-a-jwt", fiber.Map{"token": "whatever"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestClaimEndpointValidation(t *testing.T) {
	f := setupAPI(t)
	user := testutil.CreateUser(t, f.db, "ada@gigline.dev", "ada", "pass", models.RoleDeveloper)
	token := f.tokenFor(t, user)

	resp := f.request(t, http.MethodPost, "/api/scavenger/claim", token, fiber.Map{})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "Token is required", body["message"])

	resp = f.request(t, http.MethodPost, "/api/scavenger/claim", token, fiber.Map{"token": "!!!garbage!!!"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body = decodeBody(t, resp)
	assert.Equal(t, "invalid code format", body["message"])
}

func TestClaimEndpointReplayMessages(t *testing.T) {
	f := setupAPI(t)
	first := testutil.CreateUser(t, f.db, "first@gigline.dev", "first", "pass", models.RoleDeveloper)
	second := testutil.CreateUser(t, f.db, "second@gigline.dev", "second", "pass", models.RoleDeveloper)
	location := testutil.CreateLocation(t, f.db, "Back Alley Mural", nil)

	resp := f.request(t, http.MethodPost, "/api/scavenger/claim", f.tokenFor(t, first), fiber.Map{
		"token":              testutil.FreshCode(t, f.cipher, location.ID),
		"device_fingerprint": "device-1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Second explorer, different device
	resp = f.request(t, http.MethodPost, "/api/scavenger/claim", f.tokenFor(t, second), fiber.Map{
		"token":              testutil.FreshCode(t, f.cipher, location.ID),
		"device_fingerprint": "device-2",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "location already discovered by another explorer", body["message"])

	// First explorer retries
	resp = f.request(t, http.MethodPost, "/api/scavenger/claim", f.tokenFor(t, first), fiber.Map{
		"token":              testutil.FreshCode(t, f.cipher, location.ID),
		"device_fingerprint": "device-1",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body = decodeBody(t, resp)
	assert.Equal(t, "you have already discovered this location", body["message"])
}

func TestClaimEndpointExpiredCode(t *testing.T) {
	f := setupAPI(t)
	user := testutil.CreateUser(t, f.db, "ada@gigline.dev", "ada", "pass", models.RoleDeveloper)
	location := testutil.CreateLocation(t, f.db, "Loading Dock", nil)

	stale, err := f.cipher.Encode(services.CodePayload{
		UUID:      location.ID.String(),
		Timestamp: time.Now().Add(-2 * time.Minute).UnixMilli(),
	})
	require.NoError(t, err)

	resp := f.request(t, http.MethodPost, "/api/scavenger/claim", f.tokenFor(t, user), fiber.Map{"token": stale})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "code expired", body["message"])
}

func TestMintCodeEndpointIsAdminOnly(t *testing.T) {
	f := setupAPI(t)
	dev := testutil.CreateUser(t, f.db, "dev@gigline.dev", "dev", "pass", models.RoleDeveloper)
	admin := testutil.CreateUser(t, f.db, "admin@gigline.dev", "admin", "pass", models.RoleAdmin)
	location := testutil.CreateLocation(t, f.db, "Soundboard", nil)
	path := fmt.Sprintf("/api/scavenger/locations/%s/code", location.ID)

	resp := f.request(t, http.MethodPost, path, f.tokenFor(t, dev), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = f.request(t, http.MethodPost, path, f.tokenFor(t, admin), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	minted, _ := body["token"].(string)
	require.NotEmpty(t, minted)

	// The minted code redeems immediately
	resp = f.request(t, http.MethodPost, "/api/scavenger/claim", f.tokenFor(t, dev), fiber.Map{"token": minted})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestLegacyClaimEndpoint(t *testing.T) {
	f := setupAPI(t)
	user := testutil.CreateUser(t, f.db, "ada@gigline.dev", "ada", "pass", models.RoleDeveloper)
	promo := "GIGLINE20"
	location := testutil.CreateLocation(t, f.db, "Warehouse Door 3", &promo)
	testutil.CreateToken(t, f.db, location.ID, "printed-secret-001")

	resp := f.request(t, http.MethodPost, "/api/scavenger/claim-legacy", f.tokenFor(t, user), fiber.Map{
		"code": "printed-secret-001",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Contains(t, []string{models.RewardFreeTicket, models.RewardTwentyOff}, body["reward_type"])

	resp = f.request(t, http.MethodPost, "/api/scavenger/claim-legacy", f.tokenFor(t, user), fiber.Map{
		"code": "printed-secret-001",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body = decodeBody(t, resp)
	assert.Equal(t, "invalid or already used code", body["message"])
}
