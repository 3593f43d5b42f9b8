package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/complaint-portal/internal/clock"
	"github.com/spec-kit/complaint-portal/internal/domain"
	"github.com/spec-kit/complaint-portal/internal/events"
	"github.com/spec-kit/complaint-portal/internal/repository"
	apperrors "github.com/spec-kit/complaint-portal/pkg/util"
)

// ComplaintService handles submission and retrieval of complaints.
type ComplaintService struct {
	complaints  repository.ComplaintRepository
	updates     repository.StatusUpdateRepository
	attachments repository.AttachmentRepository
	users       repository.UserRepository
	dispatcher  events.Dispatcher
	clk         clock.Clock
	window      time.Duration
}

// ComplaintDependencies bundles repositories for the complaint service.
type ComplaintDependencies struct {
	ComplaintRepo    repository.ComplaintRepository
	StatusUpdateRepo repository.StatusUpdateRepository
	AttachmentRepo   repository.AttachmentRepository
	UserRepo         repository.UserRepository
	Dispatcher       events.Dispatcher
	Clock            clock.Clock
	Window           time.Duration
}

// ComplaintCreateInput describes a submission payload. SubmitterID is only
// honored for PUBLIC submissions; anonymous complaints never carry a user
// reference. CreatedAt may be set explicitly for seeded or historical data
// and defaults to the current time.
type ComplaintCreateInput struct {
	SubmitterID    *string
	Subject        string
	Description    string
	Category       domain.ComplaintCategory
	Priority       domain.ComplaintPriority
	SubmissionType domain.SubmissionType
	CreatedAt      *time.Time
}

// NewComplaintService constructs the service.
func NewComplaintService(deps ComplaintDependencies) *ComplaintService {
	window := deps.Window
	if window <= 0 {
		window = 7 * 24 * time.Hour
	}
	return &ComplaintService{
		complaints:  deps.ComplaintRepo,
		updates:     deps.StatusUpdateRepo,
		attachments: deps.AttachmentRepo,
		users:       deps.UserRepo,
		dispatcher:  deps.Dispatcher,
		clk:         deps.Clock,
		window:      window,
	}
}

// CreateComplaint registers a new complaint with a generated ticket code,
// fixes its escalation-eligibility timestamp and writes the initial audit
// record in the same transaction as the complaint row.
func (s *ComplaintService) CreateComplaint(ctx context.Context, input ComplaintCreateInput) (*domain.Complaint, error) {
	subject := strings.TrimSpace(input.Subject)
	description := strings.TrimSpace(input.Description)
	if subject == "" || description == "" {
		return nil, apperrors.NewValidationError("subject and description required", nil)
	}

	var userID *string
	if input.SubmissionType == domain.SubmissionPublic && input.SubmitterID != nil {
		user, err := s.users.GetByID(ctx, *input.SubmitterID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("user", map[string]any{"user_id": *input.SubmitterID})
			}
			return nil, apperrors.MapError(err)
		}
		userID = &user.ID
	}

	createdAt := s.clk.Now()
	if input.CreatedAt != nil {
		createdAt = *input.CreatedAt
	}

	code, err := s.generateCode(ctx, createdAt)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	complaint := &domain.Complaint{
		Code:                 code,
		UserID:               userID,
		Subject:              subject,
		Description:          description,
		Category:             input.Category,
		Priority:             input.Priority,
		Status:               domain.StatusNew,
		SubmissionType:       input.SubmissionType,
		CreatedAt:            createdAt,
		UpdatedAt:            createdAt,
		EscalationEligibleAt: createdAt.Add(s.window),
	}
	if complaint.Priority == "" {
		complaint.Priority = domain.PriorityMedium
	}
	if complaint.Category == "" {
		complaint.Category = domain.CategoryOther
	}

	initial := &domain.StatusUpdate{
		Status:    domain.StatusNew,
		Comment:   "Complaint submitted successfully",
		IsPublic:  true,
		CreatedAt: createdAt,
	}
	if err := s.complaints.Create(ctx, complaint, []*domain.StatusUpdate{initial}); err != nil {
		return nil, apperrors.MapError(err)
	}
	complaint.Updates = append(complaint.Updates, *initial)

	s.publishEvent(ctx, events.Event{
		Type:          events.EventComplaintCreated,
		ComplaintCode: complaint.Code,
		ActorID:       userID,
		Payload:       events.ComplaintCreatedPayload{Complaint: events.Ref(complaint)},
	})
	return complaint, nil
}

// GetByCode fetches a complaint with its audit trail and attachments.
// Non-privileged viewers only see public, non-private audit entries.
func (s *ComplaintService) GetByCode(ctx context.Context, code string, privileged bool) (*domain.Complaint, error) {
	complaint, err := s.complaints.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("complaint", map[string]any{"code": code})
		}
		return nil, apperrors.MapError(err)
	}

	updates, err := s.updates.ListByComplaint(ctx, complaint.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	complaint.Updates = VisibleUpdates(updates, privileged)

	attachments, err := s.attachments.ListByComplaint(ctx, complaint.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	complaint.Attachments = attachments
	return complaint, nil
}

// ListForUser returns the caller's own complaints.
func (s *ComplaintService) ListForUser(ctx context.Context, userID string, limit, offset int) ([]domain.Complaint, error) {
	complaints, err := s.complaints.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return complaints, nil
}

// ListWithFilter returns complaints matching triage filters.
func (s *ComplaintService) ListWithFilter(ctx context.Context, filter repository.ComplaintFilter) ([]domain.Complaint, error) {
	complaints, err := s.complaints.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return complaints, nil
}

// AttachmentInput carries stored-file metadata.
type AttachmentInput struct {
	FileName   string
	StoredPath string
	SizeBytes  int64
	MimeType   string
}

// AddAttachment records uploaded file metadata against a complaint.
func (s *ComplaintService) AddAttachment(ctx context.Context, code string, input AttachmentInput) (*domain.Attachment, error) {
	complaint, err := s.complaints.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("complaint", map[string]any{"code": code})
		}
		return nil, apperrors.MapError(err)
	}

	attachment := &domain.Attachment{
		ComplaintID: complaint.ID,
		FileName:    input.FileName,
		StoredPath:  input.StoredPath,
		SizeBytes:   input.SizeBytes,
		MimeType:    input.MimeType,
	}
	if err := s.attachments.Create(ctx, attachment); err != nil {
		return nil, apperrors.MapError(err)
	}
	return attachment, nil
}

// GetAttachment loads one attachment, verifying it belongs to the complaint.
func (s *ComplaintService) GetAttachment(ctx context.Context, code, attachmentID string) (*domain.Attachment, error) {
	complaint, err := s.complaints.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("complaint", map[string]any{"code": code})
		}
		return nil, apperrors.MapError(err)
	}
	attachment, err := s.attachments.GetByID(ctx, attachmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("attachment", map[string]any{"attachment_id": attachmentID})
		}
		return nil, apperrors.MapError(err)
	}
	if attachment.ComplaintID != complaint.ID {
		return nil, apperrors.NewNotFound("attachment", map[string]any{"attachment_id": attachmentID})
	}
	return attachment, nil
}

// VisibleUpdates filters the audit trail for the viewer. Privileged callers
// see everything; submitters and the public see only public entries.
func VisibleUpdates(updates []domain.StatusUpdate, privileged bool) []domain.StatusUpdate {
	if privileged {
		return updates
	}
	filtered := make([]domain.StatusUpdate, 0, len(updates))
	for _, update := range updates {
		if update.IsPrivateNote || !update.IsPublic {
			continue
		}
		filtered = append(filtered, update)
	}
	return filtered
}

// generateCode builds the next ticket code, C<year><zero-padded sequence>.
func (s *ComplaintService) generateCode(ctx context.Context, createdAt time.Time) (string, error) {
	seq, err := s.complaints.NextCodeSeq(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("C%d%03d", createdAt.Year(), seq), nil
}

func (s *ComplaintService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clk.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
