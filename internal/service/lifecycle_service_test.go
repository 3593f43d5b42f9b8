package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/complaint-portal/internal/clock"
	"github.com/spec-kit/complaint-portal/internal/domain"
	"github.com/spec-kit/complaint-portal/internal/events"
	apperrors "github.com/spec-kit/complaint-portal/pkg/util"
)

type lifecycleFixture struct {
	complaints *memComplaintRepo
	users      *memUserRepo
	dispatcher *recordingDispatcher
	clk        *clock.Fake
	lifecycle  *LifecycleService
	service    *ComplaintService
}

func newLifecycleFixture(t *testing.T, now time.Time) *lifecycleFixture {
	t.Helper()
	complaints := newMemComplaintRepo()
	users := newMemUserRepo(
		domain.User{ID: "admin-1", Name: "Ada Admin", Email: "ada@portal.test", Role: domain.RoleAdmin},
		domain.User{ID: "mgr-1", Name: "Mo Manager", Email: "mo@portal.test", Role: domain.RoleManager},
		domain.User{ID: "user-1", Name: "Uma User", Email: "uma@portal.test", Role: domain.RoleUser},
	)
	dispatcher := &recordingDispatcher{}
	clk := clock.NewFake(now)
	lifecycle := NewLifecycleService(LifecycleDependencies{
		ComplaintRepo: complaints,
		UserRepo:      users,
		Dispatcher:    dispatcher,
		Clock:         clk,
		Window:        7 * 24 * time.Hour,
	})
	svc := NewComplaintService(ComplaintDependencies{
		ComplaintRepo:    complaints,
		StatusUpdateRepo: &memStatusUpdateRepo{complaints: complaints},
		AttachmentRepo:   newMemAttachmentRepo(),
		UserRepo:         users,
		Dispatcher:       dispatcher,
		Clock:            clk,
		Window:           7 * 24 * time.Hour,
	})
	return &lifecycleFixture{complaints: complaints, users: users, dispatcher: dispatcher, clk: clk, lifecycle: lifecycle, service: svc}
}

func (f *lifecycleFixture) submit(t *testing.T, input ComplaintCreateInput) *domain.Complaint {
	t.Helper()
	complaint, err := f.service.CreateComplaint(context.Background(), input)
	require.NoError(t, err)
	return complaint
}

func TestTransitionAppendsOneAuditRecord(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	f := newLifecycleFixture(t, now)
	submitterID := "user-1"
	complaint := f.submit(t, ComplaintCreateInput{
		SubmitterID:    &submitterID,
		Subject:        "Delayed refund",
		Description:    "Refund promised three weeks ago has not arrived.",
		Category:       domain.CategoryBilling,
		SubmissionType: domain.SubmissionPublic,
	})

	updated, err := f.lifecycle.Transition(context.Background(), complaint.Code, domain.StatusUnderReview, "taking a look", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUnderReview, updated.Status)
	assert.Nil(t, updated.ResolvedAt)

	trail := f.complaints.auditTrail(complaint.ID)
	require.Len(t, trail, 2) // submission entry + transition entry
	last := trail[len(trail)-1]
	assert.Equal(t, domain.StatusUnderReview, last.Status)
	assert.Equal(t, "taking a look", last.Comment)
	assert.True(t, last.IsPublic)
	require.NotNil(t, last.UpdatedByID)
	assert.Equal(t, "admin-1", *last.UpdatedByID)

	published := f.dispatcher.byType(events.EventStatusChanged)
	require.Len(t, published, 1)
	payload, ok := published[0].Payload.(events.StatusChangedPayload)
	require.True(t, ok)
	assert.Equal(t, domain.StatusNew, payload.OldStatus)
	assert.Equal(t, domain.StatusUnderReview, payload.NewStatus)
	assert.Equal(t, "Ada Admin", payload.ActorName)
}

func TestResolvedAtSetOnceAndKeptThroughReopen(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	f := newLifecycleFixture(t, now)
	complaint := f.submit(t, ComplaintCreateInput{
		Subject:        "Broken elevator",
		Description:    "Elevator in block B has been out for a week.",
		Category:       domain.CategoryFacility,
		SubmissionType: domain.SubmissionAnonymous,
	})

	f.clk.Advance(48 * time.Hour)
	resolved, err := f.lifecycle.Transition(context.Background(), complaint.Code, domain.StatusResolved, "fixed", "admin-1")
	require.NoError(t, err)
	require.NotNil(t, resolved.ResolvedAt)
	firstResolvedAt := *resolved.ResolvedAt
	assert.Equal(t, f.clk.Now(), firstResolvedAt)

	// Reopening is allowed and must not clear the timestamp.
	f.clk.Advance(24 * time.Hour)
	reopened, err := f.lifecycle.Transition(context.Background(), complaint.Code, domain.StatusInProgress, "issue came back", "admin-1")
	require.NoError(t, err)
	require.NotNil(t, reopened.ResolvedAt)
	assert.Equal(t, firstResolvedAt, *reopened.ResolvedAt)

	// Closing after a reopen keeps the original resolution timestamp too.
	f.clk.Advance(24 * time.Hour)
	closed, err := f.lifecycle.Transition(context.Background(), complaint.Code, domain.StatusClosed, "", "admin-1")
	require.NoError(t, err)
	require.NotNil(t, closed.ResolvedAt)
	assert.Equal(t, firstResolvedAt, *closed.ResolvedAt)
}

func TestEscalationEligibilityFixedAtCreation(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := newLifecycleFixture(t, now)
	complaint := f.submit(t, ComplaintCreateInput{
		Subject:        "Rude staff",
		Description:    "Counter staff was dismissive about my issue.",
		Category:       domain.CategoryStaff,
		SubmissionType: domain.SubmissionPublic,
	})
	assert.Equal(t, now.Add(7*24*time.Hour), complaint.EscalationEligibleAt)

	// Status churn must not move the eligibility timestamp.
	_, err := f.lifecycle.Transition(context.Background(), complaint.Code, domain.StatusInProgress, "", "admin-1")
	require.NoError(t, err)
	stored, err := f.complaints.GetByCode(context.Background(), complaint.Code)
	require.NoError(t, err)
	assert.Equal(t, now.Add(7*24*time.Hour), stored.EscalationEligibleAt)

	assert.False(t, f.lifecycle.EligibleForEscalation(stored))
	f.clk.Set(now.Add(7*24*time.Hour - time.Second))
	assert.False(t, f.lifecycle.EligibleForEscalation(stored))
	f.clk.Set(now.Add(7 * 24 * time.Hour))
	assert.True(t, f.lifecycle.EligibleForEscalation(stored))
}

func TestEnsureEscalationEligibleRemainingDays(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := newLifecycleFixture(t, now)
	complaint := f.submit(t, ComplaintCreateInput{
		Subject:        "Wrong invoice",
		Description:    "Invoice lists services that were never rendered.",
		Category:       domain.CategoryBilling,
		SubmissionType: domain.SubmissionPublic,
	})

	// Three days in: four full days remain, partial days round up.
	f.clk.Advance(3 * 24 * time.Hour)
	err := f.lifecycle.EnsureEscalationEligible(complaint)
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, "ESCALATION_NOT_ELIGIBLE", domainErr.Code)
	assert.Equal(t, 4, domainErr.Details["days_remaining"])
	assert.Equal(t, "2026-03-08", domainErr.Details["eligible_on"])

	// An hour past six days still rounds up to one remaining day.
	f.clk.Set(now.Add(6*24*time.Hour + time.Hour))
	err = f.lifecycle.EnsureEscalationEligible(complaint)
	require.Error(t, err)
	assert.Equal(t, 1, apperrors.ToDomainError(err).Details["days_remaining"])

	f.clk.Set(complaint.EscalationEligibleAt)
	assert.NoError(t, f.lifecycle.EnsureEscalationEligible(complaint))
}

func TestAddNoteKeepsStatus(t *testing.T) {
	now := time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)
	f := newLifecycleFixture(t, now)
	complaint := f.submit(t, ComplaintCreateInput{
		Subject:        "Leaking roof",
		Description:    "Water comes in whenever it rains.",
		Category:       domain.CategoryFacility,
		SubmissionType: domain.SubmissionPublic,
	})

	_, err := f.lifecycle.Transition(context.Background(), complaint.Code, domain.StatusInProgress, "", "mgr-1")
	require.NoError(t, err)

	noted, err := f.lifecycle.AddNote(context.Background(), complaint.Code, "contractor scheduled", true, false, "mgr-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, noted.Status)

	trail := f.complaints.auditTrail(complaint.ID)
	last := trail[len(trail)-1]
	assert.Equal(t, domain.StatusInProgress, last.Status)
	assert.Equal(t, "contractor scheduled", last.Comment)
	assert.True(t, last.IsPublic)
	assert.False(t, last.IsPrivateNote)

	// Private notes are never exposed as public regardless of the flag combo.
	_, err = f.lifecycle.AddNote(context.Background(), complaint.Code, "submitter sounded upset", true, true, "mgr-1")
	require.NoError(t, err)
	published := f.dispatcher.byType(events.EventNoteAdded)
	require.Len(t, published, 2)
	privatePayload, ok := published[1].Payload.(events.NoteAddedPayload)
	require.True(t, ok)
	assert.False(t, privatePayload.IsPublic)
}

func TestTransitionUnknownComplaintOrActor(t *testing.T) {
	now := time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)
	f := newLifecycleFixture(t, now)

	_, err := f.lifecycle.Transition(context.Background(), "C2026999", domain.StatusClosed, "", "admin-1")
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)

	complaint := f.submit(t, ComplaintCreateInput{
		Subject:        "Noise at night",
		Description:    "Construction noise after permitted hours.",
		SubmissionType: domain.SubmissionPublic,
	})
	_, err = f.lifecycle.Transition(context.Background(), complaint.Code, domain.StatusClosed, "", "ghost")
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)
	// Failed transition must leave no audit entry behind.
	assert.Len(t, f.complaints.auditTrail(complaint.ID), 1)
}
