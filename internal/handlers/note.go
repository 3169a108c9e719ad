package handlers

import (
	"database/sql"
	"errors"
	"strconv"

	"github.com/gigline/backstage/internal/middleware"
	"github.com/gigline/backstage/internal/models"
	"github.com/gigline/backstage/internal/services"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type NoteHandler struct {
	noteService *services.NoteService
}

func NewNoteHandler(noteService *services.NoteService) *NoteHandler {
	return &NoteHandler{
		noteService: noteService,
	}
}

// CreateNote handles POST /api/notes
func (h *NoteHandler) CreateNote(c fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	var req struct {
		Title    string `json:"title"`
		Content  string `json:"content"`
		PagePath string `json:"page_path"`
		Pinned   bool   `json:"pinned"`
	}

	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if req.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Title is required"})
	}

	note := &models.DevNote{
		UserID:   userID,
		Title:    req.Title,
		Content:  req.Content,
		PagePath: req.PagePath,
		Pinned:   req.Pinned,
	}

	if err := h.noteService.SaveNote(c.Context(), note); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save note"})
	}

	return c.Status(fiber.StatusCreated).JSON(note)
}

// UpdateNote handles PUT /api/notes/:id
func (h *NoteHandler) UpdateNote(c fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	noteID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid note id"})
	}

	existing, err := h.noteService.GetNoteByID(c.Context(), noteID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Note not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load note"})
	}
	if existing.UserID != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Not your note"})
	}

	var req struct {
		Title    string `json:"title"`
		Content  string `json:"content"`
		PagePath string `json:"page_path"`
		Pinned   bool   `json:"pinned"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	existing.Title = req.Title
	existing.Content = req.Content
	existing.PagePath = req.PagePath
	existing.Pinned = req.Pinned

	if err := h.noteService.SaveNote(c.Context(), existing); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save note"})
	}

	return c.JSON(existing)
}

// GetNotes handles GET /api/notes
func (h *NoteHandler) GetNotes(c fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))

	notes, total, err := h.noteService.GetNotes(c.Context(), services.NoteFilters{
		UserID:   userID,
		PagePath: c.Query("page_path"),
		Search:   c.Query("search"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load notes"})
	}

	return c.JSON(fiber.Map{"notes": notes, "total": total})
}

// DeleteNote handles DELETE /api/notes/:id
func (h *NoteHandler) DeleteNote(c fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	noteID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid note id"})
	}

	if err := h.noteService.DeleteNote(c.Context(), noteID, userID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete note"})
	}

	return c.JSON(fiber.Map{"message": "Note deleted"})
}
