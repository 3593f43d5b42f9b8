package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-portal/internal/api/dto"
	"github.com/spec-kit/complaint-portal/internal/auth"
	"github.com/spec-kit/complaint-portal/internal/domain"
	"github.com/spec-kit/complaint-portal/internal/service"
	"github.com/spec-kit/complaint-portal/internal/storage"
	apperrors "github.com/spec-kit/complaint-portal/pkg/util"
)

// ComplaintsHandler manages submission and lookup endpoints.
type ComplaintsHandler struct {
	complaints *service.ComplaintService
	files      *storage.FileStore
}

// NewComplaintsHandler constructs handler.
func NewComplaintsHandler(complaintService *service.ComplaintService, files *storage.FileStore) *ComplaintsHandler {
	return &ComplaintsHandler{complaints: complaintService, files: files}
}

// CreateComplaint POST /complaints. Authentication is optional: an
// authenticated PUBLIC submission is linked to the caller, an anonymous
// submission never carries a user reference.
func (h *ComplaintsHandler) CreateComplaint(c *fiber.Ctx) error {
	var req dto.CreateComplaintRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Subject) == "" || strings.TrimSpace(req.Description) == "" {
		return apperrors.NewValidationError("subject and description required", nil)
	}

	input := service.ComplaintCreateInput{
		Subject:        req.Subject,
		Description:    req.Description,
		Category:       req.Category,
		Priority:       req.Priority,
		SubmissionType: req.SubmissionType,
	}
	if principal, ok := auth.PrincipalFromContext(c); ok && principal.User != nil {
		input.SubmitterID = &principal.User.ID
	}

	complaint, err := h.complaints.CreateComplaint(c.Context(), input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": complaintSummary(complaint)})
}

// GetComplaint GET /complaints/:code. Works without authentication so
// submitters can track a complaint by code; internal notes are only shown
// to callers whose role can view all complaints.
func (h *ComplaintsHandler) GetComplaint(c *fiber.Ctx) error {
	privileged := false
	if principal, ok := auth.PrincipalFromContext(c); ok && principal.User != nil {
		privileged = principal.Role().Can(domain.CapViewAllComplaints)
	}
	complaint, err := h.complaints.GetByCode(c.Context(), c.Params("code"), privileged)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintDetail(complaint)})
}

// ListMyComplaints GET /complaints.
func (h *ComplaintsHandler) ListMyComplaints(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	complaints, err := h.complaints.ListForUser(c.Context(), principal.User.ID, pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	items := make([]dto.ComplaintSummary, 0, len(complaints))
	for i := range complaints {
		items = append(items, complaintSummary(&complaints[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// UploadAttachment POST /complaints/:code/attachments.
func (h *ComplaintsHandler) UploadAttachment(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return apperrors.NewValidationError("file required", nil)
	}

	src, err := fileHeader.Open()
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	defer src.Close()

	storedPath, size, err := h.files.Store(fileHeader.Filename, src)
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	attachment, err := h.complaints.AddAttachment(c.Context(), c.Params("code"), service.AttachmentInput{
		FileName:   fileHeader.Filename,
		StoredPath: storedPath,
		SizeBytes:  size,
		MimeType:   fileHeader.Header.Get("Content-Type"),
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": attachmentResponse(attachment)})
}

// DownloadAttachment GET /complaints/:code/attachments/:id.
func (h *ComplaintsHandler) DownloadAttachment(c *fiber.Ctx) error {
	attachment, err := h.complaints.GetAttachment(c.Context(), c.Params("code"), c.Params("id"))
	if err != nil {
		return err
	}
	reader, err := h.files.Open(attachment.StoredPath)
	if err != nil {
		return apperrors.NewNotFound("attachment content", map[string]any{"id": attachment.ID})
	}
	if attachment.MimeType != "" {
		c.Set(fiber.HeaderContentType, attachment.MimeType)
	}
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+attachment.FileName+`"`)
	return c.SendStream(reader, int(attachment.SizeBytes))
}

func complaintSummary(complaint *domain.Complaint) dto.ComplaintSummary {
	return dto.ComplaintSummary{
		Code:           complaint.Code,
		Subject:        complaint.Subject,
		Category:       complaint.Category,
		Priority:       complaint.Priority,
		Status:         complaint.Status,
		SubmissionType: complaint.SubmissionType,
		AssignedToID:   complaint.AssignedToID,
		CreatedAt:      complaint.CreatedAt,
		UpdatedAt:      complaint.UpdatedAt,
	}
}

func complaintDetail(complaint *domain.Complaint) dto.ComplaintDetailResponse {
	updates := make([]dto.StatusUpdateResponse, 0, len(complaint.Updates))
	for i := range complaint.Updates {
		update := &complaint.Updates[i]
		updates = append(updates, dto.StatusUpdateResponse{
			ID:        update.ID,
			Status:    update.Status,
			Comment:   update.Comment,
			IsPublic:  update.IsPublic,
			CreatedAt: update.CreatedAt,
		})
	}
	attachments := make([]dto.AttachmentResponse, 0, len(complaint.Attachments))
	for i := range complaint.Attachments {
		attachments = append(attachments, attachmentResponse(&complaint.Attachments[i]))
	}
	return dto.ComplaintDetailResponse{
		Code:           complaint.Code,
		Subject:        complaint.Subject,
		Description:    complaint.Description,
		Category:       complaint.Category,
		Priority:       complaint.Priority,
		Status:         complaint.Status,
		SubmissionType: complaint.SubmissionType,
		AssignedToID:   complaint.AssignedToID,
		CreatedAt:      complaint.CreatedAt,
		UpdatedAt:      complaint.UpdatedAt,
		ResolvedAt:     complaint.ResolvedAt,
		Updates:        updates,
		Attachments:    attachments,
	}
}

func attachmentResponse(attachment *domain.Attachment) dto.AttachmentResponse {
	return dto.AttachmentResponse{
		ID:        attachment.ID,
		FileName:  attachment.FileName,
		MimeType:  attachment.MimeType,
		SizeBytes: attachment.SizeBytes,
	}
}

func parseInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val <= 0 {
		return fallback
	}
	return val
}

func parseTime(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	return &parsed
}
