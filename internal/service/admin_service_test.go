package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/complaint-portal/internal/domain"
	"github.com/spec-kit/complaint-portal/internal/events"
	apperrors "github.com/spec-kit/complaint-portal/pkg/util"
)

func TestAssignAndUnassign(t *testing.T) {
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	f := newLifecycleFixture(t, now)
	admin := NewAdminService(f.lifecycle)
	complaint := f.submit(t, ComplaintCreateInput{
		Subject:        "Overcharged at checkout",
		Description:    "Charged twice for the same order.",
		Category:       domain.CategoryBilling,
		SubmissionType: domain.SubmissionPublic,
	})

	target := "mgr-1"
	assigned, err := admin.Assign(context.Background(), complaint.Code, &target, "admin-1")
	require.NoError(t, err)
	require.NotNil(t, assigned.AssignedToID)
	assert.Equal(t, "mgr-1", *assigned.AssignedToID)
	// Assignment must not touch the status.
	assert.Equal(t, domain.StatusNew, assigned.Status)

	trail := f.complaints.auditTrail(complaint.ID)
	last := trail[len(trail)-1]
	assert.Equal(t, "Complaint assigned to Mo Manager", last.Comment)
	assert.Equal(t, domain.StatusNew, last.Status)
	assert.True(t, last.IsPublic)

	unassigned, err := admin.Assign(context.Background(), complaint.Code, nil, "admin-1")
	require.NoError(t, err)
	assert.Nil(t, unassigned.AssignedToID)
	trail = f.complaints.auditTrail(complaint.ID)
	assert.Equal(t, "Complaint unassigned", trail[len(trail)-1].Comment)

	published := f.dispatcher.byType(events.EventComplaintAssigned)
	require.Len(t, published, 2)
	first, ok := published[0].Payload.(events.ComplaintAssignedPayload)
	require.True(t, ok)
	assert.Equal(t, "mo@portal.test", first.AssigneeEmail)
}

func TestAssignRejectsPlainUsers(t *testing.T) {
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	f := newLifecycleFixture(t, now)
	admin := NewAdminService(f.lifecycle)
	complaint := f.submit(t, ComplaintCreateInput{
		Subject:        "Lost parcel",
		Description:    "Tracking says delivered but nothing arrived.",
		SubmissionType: domain.SubmissionPublic,
	})

	target := "user-1"
	_, err := admin.Assign(context.Background(), complaint.Code, &target, "admin-1")
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)
	// Rejection happens before any write.
	assert.Len(t, f.complaints.auditTrail(complaint.ID), 1)
}

func TestManualEscalationBeforeWindowFails(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	f := newLifecycleFixture(t, now)
	admin := NewAdminService(f.lifecycle)
	complaint := f.submit(t, ComplaintCreateInput{
		Subject:        "Unresponsive support",
		Description:    "No reply to three emails over two weeks.",
		SubmissionType: domain.SubmissionPublic,
	})

	f.clk.Advance(3 * 24 * time.Hour)
	target := "mgr-1"
	_, err := admin.Escalate(context.Background(), complaint.Code, &target, "still no reply", true, "admin-1")
	require.Error(t, err)
	require.True(t, apperrors.IsEscalationNotEligible(err))
	assert.Equal(t, 4, apperrors.ToDomainError(err).Details["days_remaining"])

	// A premature attempt leaves the complaint untouched: no status change,
	// no assignee, no audit record, no event.
	stored, getErr := f.complaints.GetByCode(context.Background(), complaint.Code)
	require.NoError(t, getErr)
	assert.Equal(t, domain.StatusNew, stored.Status)
	assert.Nil(t, stored.AssignedToID)
	assert.Len(t, f.complaints.auditTrail(complaint.ID), 1)
	assert.Empty(t, f.dispatcher.byType(events.EventEscalated))
}

func TestManualEscalationAfterWindow(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	f := newLifecycleFixture(t, now)
	admin := NewAdminService(f.lifecycle)
	complaint := f.submit(t, ComplaintCreateInput{
		Subject:        "Unsafe wiring",
		Description:    "Exposed cables in the stairwell.",
		Category:       domain.CategoryFacility,
		Priority:       domain.PriorityHigh,
		SubmissionType: domain.SubmissionPublic,
	})

	f.clk.Advance(8 * 24 * time.Hour)
	target := "mgr-1"
	escalated, err := admin.Escalate(context.Background(), complaint.Code, &target, "hazard unaddressed", true, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusEscalated, escalated.Status)
	require.NotNil(t, escalated.AssignedToID)
	assert.Equal(t, "mgr-1", *escalated.AssignedToID)

	trail := f.complaints.auditTrail(complaint.ID)
	require.Len(t, trail, 2)
	last := trail[len(trail)-1]
	assert.Equal(t, "Complaint escalated. Reason: hazard unaddressed Escalated to: Mo Manager", last.Comment)
	assert.False(t, last.IsPublic)

	published := f.dispatcher.byType(events.EventEscalated)
	require.Len(t, published, 1)
	payload, ok := published[0].Payload.(events.EscalatedPayload)
	require.True(t, ok)
	assert.True(t, payload.NotifyAllParties)
	assert.Equal(t, "hazard unaddressed", payload.Reason)
	assert.Equal(t, "Mo Manager", payload.AuthorityName)
}

func TestEscalationWithoutExplicitAuthority(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	f := newLifecycleFixture(t, now)
	admin := NewAdminService(f.lifecycle)
	complaint := f.submit(t, ComplaintCreateInput{
		Subject:        "Mislabeled product",
		Description:    "Allergen not listed on the packaging.",
		SubmissionType: domain.SubmissionPublic,
	})

	f.clk.Advance(7 * 24 * time.Hour)
	escalated, err := admin.Escalate(context.Background(), complaint.Code, nil, "needs regulatory review", false, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusEscalated, escalated.Status)
	assert.Nil(t, escalated.AssignedToID)

	trail := f.complaints.auditTrail(complaint.ID)
	assert.Equal(t, "Complaint escalated. Reason: needs regulatory review", trail[len(trail)-1].Comment)
}

func TestPrivateNotesAreInternal(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	f := newLifecycleFixture(t, now)
	admin := NewAdminService(f.lifecycle)
	complaint := f.submit(t, ComplaintCreateInput{
		Subject:        "Billing dispute",
		Description:    "Disagreement over contract renewal fees.",
		SubmissionType: domain.SubmissionPublic,
	})

	_, err := admin.AddPrivateNote(context.Background(), complaint.Code, "legal is reviewing", "admin-1")
	require.NoError(t, err)

	trail := f.complaints.auditTrail(complaint.ID)
	last := trail[len(trail)-1]
	assert.True(t, last.IsPrivateNote)
	assert.False(t, last.IsPublic)

	// The submitter-facing view filters it out.
	visible := VisibleUpdates(trail, false)
	require.Len(t, visible, 1)
	assert.Equal(t, "Complaint submitted successfully", visible[0].Comment)

	privileged := VisibleUpdates(trail, true)
	assert.Len(t, privileged, 2)
}
