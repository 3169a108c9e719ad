package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/gigline/backstage/internal/middleware"
	"github.com/gigline/backstage/internal/services"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type ScavengerHandler struct {
	scavengerService *services.ScavengerService
}

func NewScavengerHandler(scavengerService *services.ScavengerService) *ScavengerHandler {
	return &ScavengerHandler{
		scavengerService: scavengerService,
	}
}

// ClaimPayload is the body of POST /api/scavenger/claim
type ClaimPayload struct {
	Token             string `json:"token"`
	UserEmail         string `json:"user_email"`
	DisplayName       string `json:"display_name"`
	ShowOnLeaderboard bool   `json:"show_on_leaderboard"`
	DeviceFingerprint string `json:"device_fingerprint,omitempty"`
}

// Claim handles POST /api/scavenger/claim
func (h *ScavengerHandler) Claim(c fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	var payload ClaimPayload
	if err := c.Bind().JSON(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Bad Request",
			"message": "Invalid request body",
		})
	}

	if payload.Token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Bad Request",
			"message": "Token is required",
		})
	}

	email := payload.UserEmail
	if email == "" {
		email = middleware.GetUserEmail(c)
	}

	result, err := h.scavengerService.Claim(c.Context(), services.ClaimInput{
		EncodedToken:      payload.Token,
		UserID:            userID,
		UserEmail:         email,
		DisplayName:       payload.DisplayName,
		ShowOnLeaderboard: payload.ShowOnLeaderboard,
		DeviceFingerprint: fingerprintFor(c, payload.DeviceFingerprint),
	})
	if err != nil {
		return claimError(c, err)
	}

	return c.JSON(result)
}

// LegacyClaimPayload is the body of POST /api/scavenger/claim-legacy
type LegacyClaimPayload struct {
	Code              string `json:"code"`
	UserEmail         string `json:"user_email"`
	DisplayName       string `json:"display_name"`
	DeviceFingerprint string `json:"device_fingerprint,omitempty"`
}

// ClaimLegacy handles POST /api/scavenger/claim-legacy
func (h *ScavengerHandler) ClaimLegacy(c fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	var payload LegacyClaimPayload
	if err := c.Bind().JSON(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Bad Request",
			"message": "Invalid request body",
		})
	}

	email := payload.UserEmail
	if email == "" {
		email = middleware.GetUserEmail(c)
	}

	result, err := h.scavengerService.ClaimLegacy(c.Context(), services.LegacyClaimInput{
		Secret:            payload.Code,
		UserID:            userID,
		UserEmail:         email,
		DisplayName:       payload.DisplayName,
		DeviceFingerprint: fingerprintFor(c, payload.DeviceFingerprint),
	})
	if err != nil {
		return claimError(c, err)
	}

	return c.JSON(result)
}

// Leaderboard handles GET /api/scavenger/leaderboard
func (h *ScavengerHandler) Leaderboard(c fiber.Ctx) error {
	claims, err := h.scavengerService.Leaderboard(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Internal Server Error",
			"message": "Failed to load leaderboard",
		})
	}
	return c.JSON(fiber.Map{"claims": claims, "total": len(claims)})
}

// ListLocations handles GET /api/scavenger/locations (admin)
func (h *ScavengerHandler) ListLocations(c fiber.Ctx) error {
	locations, err := h.scavengerService.ListLocations(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Internal Server Error",
			"message": "Failed to load locations",
		})
	}
	return c.JSON(fiber.Map{"locations": locations, "total": len(locations)})
}

// CreateLocation handles POST /api/scavenger/locations (admin)
func (h *ScavengerHandler) CreateLocation(c fiber.Ctx) error {
	var payload struct {
		LocationName string  `json:"location_name"`
		PromoCode    *string `json:"promo_code,omitempty"`
	}
	if err := c.Bind().JSON(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Bad Request",
			"message": "Invalid request body",
		})
	}
	if payload.LocationName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Bad Request",
			"message": "location_name is required",
		})
	}

	location, err := h.scavengerService.CreateLocation(c.Context(), payload.LocationName, payload.PromoCode)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Internal Server Error",
			"message": "Failed to create location",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(location)
}

// MintCode handles POST /api/scavenger/locations/:id/code (admin)
func (h *ScavengerHandler) MintCode(c fiber.Ctx) error {
	locationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Bad Request",
			"message": "Invalid location id",
		})
	}

	code, err := h.scavengerService.MintCode(c.Context(), locationID)
	if err != nil {
		if errors.Is(err, services.ErrLocationNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error":   "Not Found",
				"message": err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Internal Server Error",
			"message": "Failed to mint code",
		})
	}

	return c.JSON(fiber.Map{"token": code})
}

// fingerprintFor returns the client-supplied fingerprint or derives a coarse
// one from IP + User-Agent. The fingerprint only feeds replay messaging;
// the freshness window and unique indexes do the real gating.
func fingerprintFor(c fiber.Ctx, supplied string) string {
	if supplied != "" {
		return supplied
	}
	sum := sha256.Sum256([]byte(middleware.GetRealIP(c) + c.Get("User-Agent")))
	return hex.EncodeToString(sum[:])
}

// claimError translates the claim failure taxonomy into HTTP responses.
// Every recognized rejection is a 400 with its own message; anything else
// is a generic 500.
func claimError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidCode),
		errors.Is(err, services.ErrCodeExpired),
		errors.Is(err, services.ErrInvalidLocationID),
		errors.Is(err, services.ErrLocationNotFound),
		errors.Is(err, services.ErrAlreadyDiscovered),
		errors.Is(err, services.ErrUserAlreadyClaimed),
		errors.Is(err, services.ErrDeviceAlreadyClaimed),
		errors.Is(err, services.ErrTokenNotFound),
		errors.Is(err, services.ErrTokenPoolExhausted):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Bad Request",
			"message": err.Error(),
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Internal Server Error",
			"message": "Failed to process claim",
		})
	}
}
