package handlers

import (
	"errors"

	"github.com/gigline/backstage/internal/middleware"
	"github.com/gigline/backstage/internal/services"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type MockDataHandler struct {
	mockService *services.MockDataService
}

func NewMockDataHandler(mockService *services.MockDataService) *MockDataHandler {
	return &MockDataHandler{
		mockService: mockService,
	}
}

// Generate handles POST /api/mock/generate
func (h *MockDataHandler) Generate(c fiber.Ctx) error {
	var payload struct {
		Entity string `json:"entity"`
		Count  int    `json:"count"`
		Seed   int64  `json:"seed,omitempty"`
	}
	if err := c.Bind().JSON(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Bad Request",
			"message": "Invalid request body",
		})
	}

	batch, err := h.mockService.Generate(c.Context(), middleware.GetUserID(c),
		payload.Entity, payload.Count, payload.Seed)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Bad Request",
			"message": err.Error(),
		})
	}
	return c.Status(fiber.StatusCreated).JSON(batch)
}

// ListBatches handles GET /api/mock/batches
func (h *MockDataHandler) ListBatches(c fiber.Ctx) error {
	batches, err := h.mockService.ListBatches(c.Context(), middleware.GetUserID(c))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Internal Server Error",
			"message": "Failed to load batches",
		})
	}
	return c.JSON(fiber.Map{"batches": batches, "total": len(batches)})
}

// DeleteBatch handles DELETE /api/mock/batches/:id
func (h *MockDataHandler) DeleteBatch(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Bad Request",
			"message": "Invalid batch id",
		})
	}

	if err := h.mockService.DeleteBatch(c.Context(), id, middleware.GetUserID(c)); err != nil {
		if errors.Is(err, services.ErrBatchNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error":   "Not Found",
				"message": err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Internal Server Error",
			"message": "Failed to delete batch",
		})
	}
	return c.JSON(fiber.Map{"message": "Batch deleted"})
}
