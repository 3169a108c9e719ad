package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/gigline/backstage/internal/services"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type ErrorLogHandler struct {
	errorLogService *services.ErrorLogService
}

func NewErrorLogHandler(errorLogService *services.ErrorLogService) *ErrorLogHandler {
	return &ErrorLogHandler{
		errorLogService: errorLogService,
	}
}

// Ingest handles POST /api/errors
func (h *ErrorLogHandler) Ingest(c fiber.Ctx) error {
	var payload struct {
		Level    string          `json:"level"`
		Message  string          `json:"message"`
		Stack    *string         `json:"stack,omitempty"`
		PagePath string          `json:"page_path"`
		Metadata json.RawMessage `json:"metadata,omitempty"`
	}
	if err := c.Bind().JSON(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Bad Request",
			"message": "Invalid request body",
		})
	}
	if payload.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Bad Request",
			"message": "message is required",
		})
	}

	entry, err := h.errorLogService.Ingest(c.Context(), payload.Level, payload.Message,
		payload.Stack, payload.PagePath, c.Get("User-Agent"), payload.Metadata)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Internal Server Error",
			"message": "Failed to store error",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(entry)
}

// List handles GET /api/errors
func (h *ErrorLogHandler) List(c fiber.Ctx) error {
	filters, err := h.parseFilters(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Bad Request",
			"message": err.Error(),
		})
	}

	logs, total, err := h.errorLogService.List(c.Context(), filters)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Internal Server Error",
			"message": "Failed to load errors",
		})
	}
	return c.JSON(fiber.Map{"errors": logs, "total": total})
}

// Export handles GET /api/errors/export
func (h *ErrorLogHandler) Export(c fiber.Ctx) error {
	filters, err := h.parseFilters(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Bad Request",
			"message": err.Error(),
		})
	}
	// Exports ignore pagination
	filters.Limit = 0
	filters.Offset = 0

	file, err := h.errorLogService.Export(c.Context(), filters)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Internal Server Error",
			"message": "Failed to export errors",
		})
	}

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Internal Server Error",
			"message": "Failed to render spreadsheet",
		})
	}

	filename := fmt.Sprintf("error-logs-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	return c.Send(buf.Bytes())
}

// Delete handles DELETE /api/errors/:id
func (h *ErrorLogHandler) Delete(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Bad Request",
			"message": "Invalid error id",
		})
	}

	if err := h.errorLogService.Delete(c.Context(), id); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Internal Server Error",
			"message": "Failed to delete error",
		})
	}
	return c.JSON(fiber.Map{"message": "Error deleted"})
}

func (h *ErrorLogHandler) parseFilters(c fiber.Ctx) (services.ErrorLogFilters, error) {
	limit, _ := strconv.Atoi(c.Query("limit", "100"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))

	filters := services.ErrorLogFilters{
		Level:    c.Query("level"),
		PagePath: c.Query("page_path"),
		Limit:    limit,
		Offset:   offset,
	}

	if since := c.Query("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return filters, fmt.Errorf("since must be RFC3339")
		}
		filters.Since = &t
	}
	return filters, nil
}
