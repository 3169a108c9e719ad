package handlers

import (
	"errors"
	"time"

	"github.com/gigline/backstage/internal/middleware"
	"github.com/gigline/backstage/internal/services"
	"github.com/gofiber/fiber/v3"
)

type RoleHandler struct {
	roleService *services.RoleService
}

func NewRoleHandler(roleService *services.RoleService) *RoleHandler {
	return &RoleHandler{
		roleService: roleService,
	}
}

// Start handles POST /api/roles/simulate
func (h *RoleHandler) Start(c fiber.Ctx) error {
	var payload struct {
		Role       string `json:"role"`
		TTLMinutes int    `json:"ttl_minutes"`
	}
	if err := c.Bind().JSON(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Bad Request",
			"message": "Invalid request body",
		})
	}
	if payload.Role == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Bad Request",
			"message": "role is required",
		})
	}

	sim, err := h.roleService.Start(c.Context(), middleware.GetUserID(c),
		payload.Role, time.Duration(payload.TTLMinutes)*time.Minute)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Bad Request",
			"message": err.Error(),
		})
	}
	return c.Status(fiber.StatusCreated).JSON(sim)
}

// Current handles GET /api/roles/simulate
func (h *RoleHandler) Current(c fiber.Ctx) error {
	sim, err := h.roleService.Current(c.Context(), middleware.GetUserID(c))
	if err != nil {
		if errors.Is(err, services.ErrNoActiveSimulation) {
			return c.JSON(fiber.Map{"simulation": nil})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Internal Server Error",
			"message": "Failed to load simulation",
		})
	}
	return c.JSON(fiber.Map{"simulation": sim})
}

// Stop handles DELETE /api/roles/simulate
func (h *RoleHandler) Stop(c fiber.Ctx) error {
	if err := h.roleService.Stop(c.Context(), middleware.GetUserID(c)); err != nil {
		if errors.Is(err, services.ErrNoActiveSimulation) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error":   "Not Found",
				"message": err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Internal Server Error",
			"message": "Failed to stop simulation",
		})
	}
	return c.JSON(fiber.Map{"message": "Simulation ended"})
}
