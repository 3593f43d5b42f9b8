package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/spec-kit/complaint-portal/internal/domain"
	"github.com/spec-kit/complaint-portal/internal/events"
	apperrors "github.com/spec-kit/complaint-portal/pkg/util"
)

// AdminService covers the manual triage path: assignment, escalation and
// note-taking. Role checks happen at the HTTP boundary; target-eligibility
// checks happen here.
type AdminService struct {
	lifecycle *LifecycleService
}

// NewAdminService creates the orchestrator.
func NewAdminService(lifecycle *LifecycleService) *AdminService {
	return &AdminService{lifecycle: lifecycle}
}

// Assign sets or clears the complaint's assignee and appends an audit
// record. A nil targetID unassigns the complaint.
func (s *AdminService) Assign(ctx context.Context, code string, targetID *string, actorID string) (*domain.Complaint, error) {
	complaint, err := s.lifecycle.getComplaint(ctx, code)
	if err != nil {
		return nil, err
	}
	actor, err := s.lifecycle.getUser(ctx, actorID)
	if err != nil {
		return nil, err
	}

	var target *domain.User
	if targetID != nil {
		target, err = s.lifecycle.getUser(ctx, *targetID)
		if err != nil {
			return nil, err
		}
		if !target.Role.AssignmentEligible() {
			return nil, apperrors.NewConflict("user not eligible for assignment", map[string]any{"user_id": target.ID})
		}
	}

	now := s.lifecycle.clk.Now()
	comment := "Complaint unassigned"
	if target != nil {
		complaint.AssignedToID = &target.ID
		comment = fmt.Sprintf("Complaint assigned to %s", target.Name)
	} else {
		complaint.AssignedToID = nil
	}
	complaint.UpdatedAt = now

	update := &domain.StatusUpdate{
		ComplaintID: complaint.ID,
		Status:      complaint.Status,
		Comment:     comment,
		IsPublic:    true,
		UpdatedByID: &actor.ID,
		CreatedAt:   now,
	}
	if err := s.lifecycle.complaints.Save(ctx, complaint, []*domain.StatusUpdate{update}); err != nil {
		return nil, apperrors.MapError(err)
	}
	complaint.Updates = append(complaint.Updates, *update)

	payload := events.ComplaintAssignedPayload{Complaint: events.Ref(complaint)}
	if target != nil {
		payload.AssigneeID = &target.ID
		payload.AssigneeName = target.Name
		payload.AssigneeEmail = target.Email
	}
	s.lifecycle.publish(ctx, events.Event{
		ID:            uuid.NewString(),
		Type:          events.EventComplaintAssigned,
		ComplaintCode: complaint.Code,
		ActorID:       &actor.ID,
		Payload:       payload,
	})
	return complaint, nil
}

// Escalate reassigns the complaint to a higher authority and marks it
// ESCALATED. Fails before the eligibility window has elapsed; the audit
// record is internal-only.
func (s *AdminService) Escalate(ctx context.Context, code string, higherAuthorityID *string, reason string, notifyAllParties bool, actorID string) (*domain.Complaint, error) {
	complaint, err := s.lifecycle.getComplaint(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := s.lifecycle.EnsureEscalationEligible(complaint); err != nil {
		return nil, err
	}
	actor, err := s.lifecycle.getUser(ctx, actorID)
	if err != nil {
		return nil, err
	}

	var authority *domain.User
	if higherAuthorityID != nil {
		authority, err = s.lifecycle.getUser(ctx, *higherAuthorityID)
		if err != nil {
			return nil, err
		}
		if !authority.Role.AssignmentEligible() {
			return nil, apperrors.NewConflict("user not eligible for escalation target", map[string]any{"user_id": authority.ID})
		}
	}

	now := s.lifecycle.clk.Now()
	complaint.Status = domain.StatusEscalated
	complaint.UpdatedAt = now
	if authority != nil {
		complaint.AssignedToID = &authority.ID
	} else {
		complaint.AssignedToID = nil
	}

	comment := fmt.Sprintf("Complaint escalated. Reason: %s", reason)
	if authority != nil {
		comment += fmt.Sprintf(" Escalated to: %s", authority.Name)
	}
	update := &domain.StatusUpdate{
		ComplaintID: complaint.ID,
		Status:      domain.StatusEscalated,
		Comment:     comment,
		IsPublic:    false,
		UpdatedByID: &actor.ID,
		CreatedAt:   now,
	}
	if err := s.lifecycle.complaints.Save(ctx, complaint, []*domain.StatusUpdate{update}); err != nil {
		return nil, apperrors.MapError(err)
	}
	complaint.Updates = append(complaint.Updates, *update)

	payload := events.EscalatedPayload{
		Complaint:        events.Ref(complaint),
		Reason:           reason,
		NotifyAllParties: notifyAllParties,
	}
	if authority != nil {
		payload.AuthorityID = &authority.ID
		payload.AuthorityName = authority.Name
	}
	s.lifecycle.publish(ctx, events.Event{
		ID:            uuid.NewString(),
		Type:          events.EventEscalated,
		ComplaintCode: complaint.Code,
		ActorID:       &actor.ID,
		Payload:       payload,
	})
	return complaint, nil
}

// AddComplaintNote appends a note with the given visibility.
func (s *AdminService) AddComplaintNote(ctx context.Context, code, note string, isPublic bool, actorID string) (*domain.Complaint, error) {
	return s.lifecycle.AddNote(ctx, code, note, isPublic, false, actorID)
}

// AddPrivateNote appends an internal-only note.
func (s *AdminService) AddPrivateNote(ctx context.Context, code, note, actorID string) (*domain.Complaint, error) {
	return s.lifecycle.AddNote(ctx, code, note, false, true, actorID)
}
