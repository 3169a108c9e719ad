package handlers

import (
	"errors"
	"strconv"

	"github.com/gigline/backstage/internal/middleware"
	"github.com/gigline/backstage/internal/services"
	"github.com/gofiber/fiber/v3"
)

type TriageHandler struct {
	triageService *services.TriageService
}

func NewTriageHandler(triageService *services.TriageService) *TriageHandler {
	return &TriageHandler{
		triageService: triageService,
	}
}

// List handles GET /api/admin-requests
func (h *TriageHandler) List(c fiber.Ctx) error {
	requests, err := h.triageService.List(c.Context(), c.Query("status"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Internal Server Error",
			"message": "Failed to load requests",
		})
	}
	return c.JSON(fiber.Map{"requests": requests, "total": len(requests)})
}

// Create handles POST /api/admin-requests
func (h *TriageHandler) Create(c fiber.Ctx) error {
	var payload struct {
		RequestType string `json:"request_type"`
		Reason      string `json:"reason"`
	}
	if err := c.Bind().JSON(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Bad Request",
			"message": "Invalid request body",
		})
	}
	if payload.RequestType == "" || payload.Reason == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Bad Request",
			"message": "request_type and reason are required",
		})
	}

	req, err := h.triageService.Create(c.Context(), middleware.GetUserID(c), payload.RequestType, payload.Reason)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Internal Server Error",
			"message": "Failed to create request",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(req)
}

// Approve handles POST /api/admin-requests/:id/approve (admin)
func (h *TriageHandler) Approve(c fiber.Ctx) error {
	return h.review(c, true)
}

// Reject handles POST /api/admin-requests/:id/reject (admin)
func (h *TriageHandler) Reject(c fiber.Ctx) error {
	return h.review(c, false)
}

func (h *TriageHandler) review(c fiber.Ctx, approve bool) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Bad Request",
			"message": "Invalid request id",
		})
	}

	var payload struct {
		Note *string `json:"note,omitempty"`
	}
	// Body is optional for reviews
	_ = c.Bind().JSON(&payload)

	req, err := h.triageService.Review(c.Context(), id, middleware.GetUserID(c), approve, payload.Note)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrRequestNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error":   "Not Found",
				"message": err.Error(),
			})
		case errors.Is(err, services.ErrRequestClosed):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error":   "Conflict",
				"message": err.Error(),
			})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":   "Internal Server Error",
				"message": "Failed to review request",
			})
		}
	}
	return c.JSON(req)
}
