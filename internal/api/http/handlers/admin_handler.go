package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-portal/internal/api/dto"
	"github.com/spec-kit/complaint-portal/internal/auth"
	"github.com/spec-kit/complaint-portal/internal/domain"
	"github.com/spec-kit/complaint-portal/internal/repository"
	"github.com/spec-kit/complaint-portal/internal/service"
	apperrors "github.com/spec-kit/complaint-portal/pkg/util"
)

// AdminHandler exposes staff-side complaint management endpoints.
type AdminHandler struct {
	complaints *service.ComplaintService
	lifecycle  *service.LifecycleService
	admin      *service.AdminService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(complaintService *service.ComplaintService, lifecycleService *service.LifecycleService, adminService *service.AdminService) *AdminHandler {
	return &AdminHandler{complaints: complaintService, lifecycle: lifecycleService, admin: adminService}
}

// ListComplaints GET /admin/complaints.
func (h *AdminHandler) ListComplaints(c *fiber.Ctx) error {
	filter := parseComplaintFilter(c)
	complaints, err := h.complaints.ListWithFilter(c.Context(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.ComplaintSummary, 0, len(complaints))
	for i := range complaints {
		items = append(items, complaintSummary(&complaints[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetComplaint GET /admin/complaints/:code.
func (h *AdminHandler) GetComplaint(c *fiber.Ctx) error {
	complaint, err := h.complaints.GetByCode(c.Context(), c.Params("code"), true)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintDetail(complaint)})
}

// UpdateStatus PUT /admin/complaints/:code/status.
func (h *AdminHandler) UpdateStatus(c *fiber.Ctx) error {
	actor, err := actorPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Status == "" {
		return apperrors.NewValidationError("status required", nil)
	}

	complaint, err := h.lifecycle.Transition(c.Context(), c.Params("code"), req.Status, req.Comment, actor.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintSummary(complaint)})
}

// Assign POST /admin/complaints/:code/assign.
func (h *AdminHandler) Assign(c *fiber.Ctx) error {
	actor, err := actorPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	complaint, err := h.admin.Assign(c.Context(), c.Params("code"), req.AssigneeID, actor.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintSummary(complaint)})
}

// Escalate POST /admin/complaints/:code/escalate.
func (h *AdminHandler) Escalate(c *fiber.Ctx) error {
	actor, err := actorPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.EscalateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Reason) == "" {
		return apperrors.NewValidationError("reason required", nil)
	}

	complaint, err := h.admin.Escalate(c.Context(), c.Params("code"), req.HigherAuthorityID, req.Reason, req.NotifyAllParties, actor.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintSummary(complaint)})
}

// AddNote POST /admin/complaints/:code/notes.
func (h *AdminHandler) AddNote(c *fiber.Ctx) error {
	actor, err := actorPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.NoteRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Note) == "" {
		return apperrors.NewValidationError("note required", nil)
	}

	complaint, err := h.admin.AddComplaintNote(c.Context(), c.Params("code"), req.Note, req.IsPublic, actor.ID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": complaintSummary(complaint)})
}

// AddPrivateNote POST /admin/complaints/:code/private-notes.
func (h *AdminHandler) AddPrivateNote(c *fiber.Ctx) error {
	actor, err := actorPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.NoteRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Note) == "" {
		return apperrors.NewValidationError("note required", nil)
	}

	complaint, err := h.admin.AddPrivateNote(c.Context(), c.Params("code"), req.Note, actor.ID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": complaintSummary(complaint)})
}

func actorPrincipal(c *fiber.Ctx) (*domain.User, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal.User, nil
}

func parseComplaintFilter(c *fiber.Ctx) repository.ComplaintFilter {
	filter := repository.ComplaintFilter{}
	if statuses := c.Query("status"); statuses != "" {
		for _, part := range strings.Split(statuses, ",") {
			filter.Statuses = append(filter.Statuses, domain.ComplaintStatus(strings.TrimSpace(part)))
		}
	}
	if categories := c.Query("category"); categories != "" {
		for _, part := range strings.Split(categories, ",") {
			filter.Categories = append(filter.Categories, domain.ComplaintCategory(strings.TrimSpace(part)))
		}
	}
	if priorities := c.Query("priority"); priorities != "" {
		for _, part := range strings.Split(priorities, ",") {
			filter.Priorities = append(filter.Priorities, domain.ComplaintPriority(strings.TrimSpace(part)))
		}
	}
	if assignee := c.Query("assigned_to"); assignee != "" {
		filter.AssignedToID = &assignee
	}
	if c.Query("unassigned") == "true" {
		filter.Unassigned = true
	}
	if search := c.Query("search"); search != "" {
		filter.SearchTerm = &search
	}
	if createdFrom := parseTime(c.Query("created_from")); createdFrom != nil {
		filter.CreatedFrom = createdFrom
	}
	if createdTo := parseTime(c.Query("created_to")); createdTo != nil {
		filter.CreatedTo = createdTo
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}
