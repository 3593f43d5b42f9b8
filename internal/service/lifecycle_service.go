package service

import (
	"context"
	"errors"
	"math"
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

// LifecycleService is the single authority for complaint state transitions
// and audit-record creation. Every mutation appends exactly one StatusUpdate
// and commits it with the complaint in one transaction.
type LifecycleService struct {
	complaints repository.ComplaintRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	clk        clock.Clock
	window     time.Duration
}

// LifecycleDependencies bundles collaborators for the lifecycle engine.
type LifecycleDependencies struct {
	ComplaintRepo repository.ComplaintRepository
	UserRepo      repository.UserRepository
	Dispatcher    events.Dispatcher
	Clock         clock.Clock
	Window        time.Duration
}

// NewLifecycleService constructs the engine.
func NewLifecycleService(deps LifecycleDependencies) *LifecycleService {
	window := deps.Window
	if window <= 0 {
		window = 7 * 24 * time.Hour
	}
	return &LifecycleService{
		complaints: deps.ComplaintRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		clk:        deps.Clock,
		window:     window,
	}
}

// Window returns the escalation eligibility window.
func (s *LifecycleService) Window() time.Duration {
	return s.window
}

// Transition moves the complaint identified by code into newStatus, stamps
// resolvedAt on the first entry into a terminal status and appends one audit
// record. Terminal states do not block further transitions; a reopened
// complaint keeps its original resolvedAt.
func (s *LifecycleService) Transition(ctx context.Context, code string, newStatus domain.ComplaintStatus, comment, actorID string) (*domain.Complaint, error) {
	complaint, err := s.getComplaint(ctx, code)
	if err != nil {
		return nil, err
	}
	actor, err := s.getUser(ctx, actorID)
	if err != nil {
		return nil, err
	}

	now := s.clk.Now()
	oldStatus := complaint.Status
	complaint.Status = newStatus
	if newStatus.IsTerminal() && complaint.ResolvedAt == nil {
		resolvedAt := now
		complaint.ResolvedAt = &resolvedAt
	}
	complaint.UpdatedAt = now

	update := &domain.StatusUpdate{
		ComplaintID: complaint.ID,
		Status:      newStatus,
		Comment:     strings.TrimSpace(comment),
		IsPublic:    true,
		UpdatedByID: &actor.ID,
		CreatedAt:   now,
	}
	if err := s.complaints.Save(ctx, complaint, []*domain.StatusUpdate{update}); err != nil {
		return nil, apperrors.MapError(err)
	}
	complaint.Updates = append(complaint.Updates, *update)

	s.publish(ctx, events.Event{
		Type:          events.EventStatusChanged,
		ComplaintCode: complaint.Code,
		ActorID:       &actor.ID,
		Payload: events.StatusChangedPayload{
			Complaint: events.Ref(complaint),
			OldStatus: oldStatus,
			NewStatus: newStatus,
			Comment:   update.Comment,
			ActorName: actor.Name,
		},
	})
	return complaint, nil
}

// AddNote appends an audit record without changing the complaint status.
func (s *LifecycleService) AddNote(ctx context.Context, code, text string, isPublic, isPrivate bool, actorID string) (*domain.Complaint, error) {
	complaint, err := s.getComplaint(ctx, code)
	if err != nil {
		return nil, err
	}
	actor, err := s.getUser(ctx, actorID)
	if err != nil {
		return nil, err
	}

	now := s.clk.Now()
	complaint.UpdatedAt = now
	update := &domain.StatusUpdate{
		ComplaintID:   complaint.ID,
		Status:        complaint.Status,
		Comment:       strings.TrimSpace(text),
		IsPublic:      isPublic,
		IsPrivateNote: isPrivate,
		UpdatedByID:   &actor.ID,
		CreatedAt:     now,
	}
	if err := s.complaints.Save(ctx, complaint, []*domain.StatusUpdate{update}); err != nil {
		return nil, apperrors.MapError(err)
	}
	complaint.Updates = append(complaint.Updates, *update)

	s.publish(ctx, events.Event{
		Type:          events.EventNoteAdded,
		ComplaintCode: complaint.Code,
		ActorID:       &actor.ID,
		Payload: events.NoteAddedPayload{
			Complaint: events.Ref(complaint),
			Note:      update.Comment,
			IsPublic:  isPublic && !isPrivate,
		},
	})
	return complaint, nil
}

// EligibleForEscalation reports whether the complaint has aged past its
// eligibility timestamp.
func (s *LifecycleService) EligibleForEscalation(complaint *domain.Complaint) bool {
	return !s.clk.Now().Before(complaint.EscalationEligibleAt)
}

// EnsureEscalationEligible fails with the exact remaining-day count when the
// complaint cannot yet be escalated manually.
func (s *LifecycleService) EnsureEscalationEligible(complaint *domain.Complaint) error {
	now := s.clk.Now()
	if !now.Before(complaint.EscalationEligibleAt) {
		return nil
	}
	remaining := complaint.EscalationEligibleAt.Sub(now)
	days := int(math.Ceil(remaining.Hours() / 24))
	return apperrors.NewEscalationNotEligible(days, complaint.EscalationEligibleAt)
}

func (s *LifecycleService) getComplaint(ctx context.Context, code string) (*domain.Complaint, error) {
	complaint, err := s.complaints.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("complaint", map[string]any{"code": code})
		}
		return nil, apperrors.MapError(err)
	}
	return complaint, nil
}

func (s *LifecycleService) getUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

func (s *LifecycleService) publish(ctx context.Context, event events.Event) {
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
