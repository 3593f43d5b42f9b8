package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-portal/internal/api/dto"
	"github.com/spec-kit/complaint-portal/internal/domain"
	"github.com/spec-kit/complaint-portal/internal/service"
	apperrors "github.com/spec-kit/complaint-portal/pkg/util"
)

// PersonalNotesHandler exposes admin-to-staff messaging endpoints.
type PersonalNotesHandler struct {
	notes *service.PersonalNoteService
}

// NewPersonalNotesHandler constructs handler.
func NewPersonalNotesHandler(noteService *service.PersonalNoteService) *PersonalNotesHandler {
	return &PersonalNotesHandler{notes: noteService}
}

// Send POST /personal-notes.
func (h *PersonalNotesHandler) Send(c *fiber.Ctx) error {
	actor, err := actorPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.SendPersonalNoteRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.RecipientID == "" {
		return apperrors.NewValidationError("recipient_id required", nil)
	}

	note, err := h.notes.Send(c.Context(), actor.ID, req.RecipientID, req.Message)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": personalNoteResponse(note)})
}

// MyNotes GET /personal-notes.
func (h *PersonalNotesHandler) MyNotes(c *fiber.Ctx) error {
	actor, err := actorPrincipal(c)
	if err != nil {
		return err
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)

	notes, err := h.notes.NotesFor(c.Context(), actor.ID, pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": personalNoteResponses(notes)})
}

// Unread GET /personal-notes/unread.
func (h *PersonalNotesHandler) Unread(c *fiber.Ctx) error {
	actor, err := actorPrincipal(c)
	if err != nil {
		return err
	}
	notes, err := h.notes.Unread(c.Context(), actor.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": personalNoteResponses(notes)})
}

// UnreadCount GET /personal-notes/unread-count.
func (h *PersonalNotesHandler) UnreadCount(c *fiber.Ctx) error {
	actor, err := actorPrincipal(c)
	if err != nil {
		return err
	}
	count, err := h.notes.UnreadCount(c.Context(), actor.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"unread_count": count}})
}

// MarkRead PUT /personal-notes/:id/read.
func (h *PersonalNotesHandler) MarkRead(c *fiber.Ctx) error {
	actor, err := actorPrincipal(c)
	if err != nil {
		return err
	}
	note, err := h.notes.MarkRead(c.Context(), c.Params("id"), actor.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": personalNoteResponse(note)})
}

// SentNotes GET /personal-notes/sent.
func (h *PersonalNotesHandler) SentNotes(c *fiber.Ctx) error {
	actor, err := actorPrincipal(c)
	if err != nil {
		return err
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)

	notes, err := h.notes.SentBy(c.Context(), actor.ID, pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": personalNoteResponses(notes)})
}

// Delete DELETE /personal-notes/:id.
func (h *PersonalNotesHandler) Delete(c *fiber.Ctx) error {
	actor, err := actorPrincipal(c)
	if err != nil {
		return err
	}
	if err := h.notes.Delete(c.Context(), c.Params("id"), actor.ID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func personalNoteResponse(note *domain.PersonalNote) dto.PersonalNoteResponse {
	return dto.PersonalNoteResponse{
		ID:          note.ID,
		Message:     note.Message,
		SenderID:    note.SenderID,
		RecipientID: note.RecipientID,
		IsRead:      note.IsRead,
		CreatedAt:   note.CreatedAt,
		ReadAt:      note.ReadAt,
	}
}

func personalNoteResponses(notes []domain.PersonalNote) []dto.PersonalNoteResponse {
	items := make([]dto.PersonalNoteResponse, 0, len(notes))
	for i := range notes {
		items = append(items, personalNoteResponse(&notes[i]))
	}
	return items
}
