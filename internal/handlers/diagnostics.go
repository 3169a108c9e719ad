package handlers

import (
	"strconv"

	"github.com/gigline/backstage/internal/models"
	"github.com/gigline/backstage/internal/services"
	"github.com/gofiber/fiber/v3"
)

type DiagnosticsHandler struct {
	diagnosticsService *services.DiagnosticsService
}

func NewDiagnosticsHandler(diagnosticsService *services.DiagnosticsService) *DiagnosticsHandler {
	return &DiagnosticsHandler{
		diagnosticsService: diagnosticsService,
	}
}

// Record handles POST /api/diagnostics
func (h *DiagnosticsHandler) Record(c fiber.Ctx) error {
	var payload struct {
		PagePath     string `json:"page_path"`
		LoadMs       int    `json:"load_ms"`
		QueryCount   int    `json:"query_count"`
		PayloadBytes int64  `json:"payload_bytes"`
	}
	if err := c.Bind().JSON(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Bad Request",
			"message": "Invalid request body",
		})
	}

	sample := &models.PageDiagnostic{
		PagePath:     payload.PagePath,
		LoadMs:       payload.LoadMs,
		QueryCount:   payload.QueryCount,
		PayloadBytes: payload.PayloadBytes,
		UserAgent:    c.Get("User-Agent"),
	}
	if err := h.diagnosticsService.Record(c.Context(), sample); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Bad Request",
			"message": err.Error(),
		})
	}
	return c.Status(fiber.StatusCreated).JSON(sample)
}

// List handles GET /api/diagnostics
func (h *DiagnosticsHandler) List(c fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "100"))

	samples, err := h.diagnosticsService.List(c.Context(), c.Query("page_path"), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Internal Server Error",
			"message": "Failed to load diagnostics",
		})
	}
	return c.JSON(fiber.Map{"samples": samples, "total": len(samples)})
}

// Summary handles GET /api/diagnostics/summary
func (h *DiagnosticsHandler) Summary(c fiber.Ctx) error {
	summaries, err := h.diagnosticsService.Summary(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Internal Server Error",
			"message": "Failed to summarize diagnostics",
		})
	}
	return c.JSON(fiber.Map{"pages": summaries, "total": len(summaries)})
}
