package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/complaint-portal/internal/clock"
	"github.com/spec-kit/complaint-portal/internal/domain"
	"github.com/spec-kit/complaint-portal/internal/repository"
	apperrors "github.com/spec-kit/complaint-portal/pkg/util"
)

// EmployeeRequestService manages staff-access petitions: unauthenticated
// submission from the public site and admin review.
type EmployeeRequestService struct {
	requests repository.EmployeeRequestRepository
	clk      clock.Clock
}

// NewEmployeeRequestService constructs the service.
func NewEmployeeRequestService(requests repository.EmployeeRequestRepository, clk clock.Clock) *EmployeeRequestService {
	return &EmployeeRequestService{requests: requests, clk: clk}
}

// Submit files a new petition. Requests always start PENDING.
func (s *EmployeeRequestService) Submit(ctx context.Context, email, reason string) (*domain.EmployeeRequest, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	reason = strings.TrimSpace(reason)
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperrors.NewValidationError("valid email required", nil)
	}
	if reason == "" {
		return nil, apperrors.NewValidationError("reason required", nil)
	}

	request := &domain.EmployeeRequest{
		Email:       email,
		Reason:      reason,
		Status:      domain.RequestPending,
		RequestedAt: s.clk.Now(),
	}
	if err := s.requests.Create(ctx, request); err != nil {
		return nil, apperrors.MapError(err)
	}
	return request, nil
}

// List returns petitions, optionally filtered by status, newest first.
func (s *EmployeeRequestService) List(ctx context.Context, status *domain.EmployeeRequestStatus, limit, offset int) ([]domain.EmployeeRequest, error) {
	requests, err := s.requests.List(ctx, status, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return requests, nil
}

// PendingCount counts unreviewed petitions.
func (s *EmployeeRequestService) PendingCount(ctx context.Context) (int64, error) {
	count, err := s.requests.CountByStatus(ctx, domain.RequestPending)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	return count, nil
}

// Review records an approval or rejection and stamps who decided and when.
// Reviewing an already-reviewed request is a conflict; the original decision
// stands.
func (s *EmployeeRequestService) Review(ctx context.Context, id string, decision domain.EmployeeRequestStatus, reviewerID string) (*domain.EmployeeRequest, error) {
	if !decision.Reviewed() {
		return nil, apperrors.NewValidationError("decision must be APPROVED or REJECTED",
			map[string]any{"status": string(decision)})
	}

	request, err := s.requests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("employee request", map[string]any{"request_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	if request.Status.Reviewed() {
		return nil, apperrors.NewConflict("request already reviewed",
			map[string]any{"request_id": request.ID, "status": string(request.Status)})
	}

	now := s.clk.Now()
	request.Status = decision
	request.ReviewedAt = &now
	request.ReviewedByID = &reviewerID
	if err := s.requests.Update(ctx, request); err != nil {
		return nil, apperrors.MapError(err)
	}
	return request, nil
}
