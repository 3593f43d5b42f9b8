package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-portal/internal/api/dto"
	"github.com/spec-kit/complaint-portal/internal/domain"
	"github.com/spec-kit/complaint-portal/internal/service"
	apperrors "github.com/spec-kit/complaint-portal/pkg/util"
)

// EmployeeRequestsHandler exposes the staff-access petition endpoints:
// public submission and admin review.
type EmployeeRequestsHandler struct {
	requests *service.EmployeeRequestService
}

// NewEmployeeRequestsHandler constructs handler.
func NewEmployeeRequestsHandler(requestService *service.EmployeeRequestService) *EmployeeRequestsHandler {
	return &EmployeeRequestsHandler{requests: requestService}
}

// Create POST /employee-requests.
func (h *EmployeeRequestsHandler) Create(c *fiber.Ctx) error {
	var req dto.EmployeeRequestCreate
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	request, err := h.requests.Submit(c.Context(), req.Email, req.Reason)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": employeeRequestResponse(request)})
}

// List GET /admin/employee-requests.
func (h *EmployeeRequestsHandler) List(c *fiber.Ctx) error {
	var status *domain.EmployeeRequestStatus
	if raw := c.Query("status"); raw != "" {
		parsed := domain.EmployeeRequestStatus(strings.ToUpper(raw))
		status = &parsed
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)

	requests, err := h.requests.List(c.Context(), status, pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	items := make([]dto.EmployeeRequestResponse, 0, len(requests))
	for i := range requests {
		items = append(items, employeeRequestResponse(&requests[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Review PUT /admin/employee-requests/:id/status.
func (h *EmployeeRequestsHandler) Review(c *fiber.Ctx) error {
	actor, err := actorPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.EmployeeRequestReview
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	decision := domain.EmployeeRequestStatus(strings.ToUpper(string(req.Status)))
	request, err := h.requests.Review(c.Context(), c.Params("id"), decision, actor.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": employeeRequestResponse(request)})
}

func employeeRequestResponse(request *domain.EmployeeRequest) dto.EmployeeRequestResponse {
	return dto.EmployeeRequestResponse{
		ID:           request.ID,
		Email:        request.Email,
		Reason:       request.Reason,
		Status:       request.Status,
		RequestedAt:  request.RequestedAt,
		ReviewedAt:   request.ReviewedAt,
		ReviewedByID: request.ReviewedByID,
	}
}
