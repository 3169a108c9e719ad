package handlers

import (
	"errors"

	"github.com/gigline/backstage/internal/middleware"
	"github.com/gigline/backstage/internal/services"
	"github.com/gofiber/fiber/v3"
)

type FlagHandler struct {
	flagService *services.FlagService
}

func NewFlagHandler(flagService *services.FlagService) *FlagHandler {
	return &FlagHandler{
		flagService: flagService,
	}
}

// List handles GET /api/flags
func (h *FlagHandler) List(c fiber.Ctx) error {
	flags, err := h.flagService.List(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Internal Server Error",
			"message": "Failed to load flags",
		})
	}
	return c.JSON(fiber.Map{"flags": flags, "total": len(flags)})
}

// Create handles POST /api/flags (admin)
func (h *FlagHandler) Create(c fiber.Ctx) error {
	var payload struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.Bind().JSON(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Bad Request",
			"message": "Invalid request body",
		})
	}
	if payload.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Bad Request",
			"message": "name is required",
		})
	}

	flag, err := h.flagService.Create(c.Context(), payload.Name, payload.Description, middleware.GetUserID(c))
	if err != nil {
		if errors.Is(err, services.ErrFlagExists) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error":   "Conflict",
				"message": err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Internal Server Error",
			"message": "Failed to create flag",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(flag)
}

// Update handles PATCH /api/flags/:key (admin)
func (h *FlagHandler) Update(c fiber.Ctx) error {
	var payload struct {
		Enabled           *bool   `json:"enabled,omitempty"`
		RolloutPercentage *int    `json:"rollout_percentage,omitempty"`
		Description       *string `json:"description,omitempty"`
	}
	if err := c.Bind().JSON(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Bad Request",
			"message": "Invalid request body",
		})
	}

	flag, err := h.flagService.Update(c.Context(), c.Params("key"), services.FlagUpdate{
		Enabled:           payload.Enabled,
		RolloutPercentage: payload.RolloutPercentage,
		Description:       payload.Description,
	}, middleware.GetUserID(c))
	if err != nil {
		if errors.Is(err, services.ErrFlagNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error":   "Not Found",
				"message": err.Error(),
			})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Bad Request",
			"message": err.Error(),
		})
	}
	return c.JSON(flag)
}

// Delete handles DELETE /api/flags/:key (admin)
func (h *FlagHandler) Delete(c fiber.Ctx) error {
	if err := h.flagService.Delete(c.Context(), c.Params("key")); err != nil {
		if errors.Is(err, services.ErrFlagNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error":   "Not Found",
				"message": err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Internal Server Error",
			"message": "Failed to delete flag",
		})
	}
	return c.JSON(fiber.Map{"message": "Flag deleted"})
}
