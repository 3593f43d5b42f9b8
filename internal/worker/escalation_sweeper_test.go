package worker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-portal/internal/clock"
	"github.com/spec-kit/complaint-portal/internal/config"
	"github.com/spec-kit/complaint-portal/internal/domain"
	"github.com/spec-kit/complaint-portal/internal/events"
	"github.com/spec-kit/complaint-portal/internal/notify"
	"github.com/spec-kit/complaint-portal/internal/observability"
	"github.com/spec-kit/complaint-portal/internal/repository"
	"github.com/spec-kit/complaint-portal/internal/service"
)

type fakeComplaintRepo struct {
	mu       sync.Mutex
	byCode   map[string]domain.Complaint
	audits   map[string][]domain.StatusUpdate
	failSave map[string]error
}

func newFakeComplaintRepo() *fakeComplaintRepo {
	return &fakeComplaintRepo{
		byCode:   map[string]domain.Complaint{},
		audits:   map[string][]domain.StatusUpdate{},
		failSave: map[string]error{},
	}
}

func (r *fakeComplaintRepo) add(c domain.Complaint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byCode[c.Code] = c
}

func (r *fakeComplaintRepo) get(code string) domain.Complaint {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byCode[code]
}

func (r *fakeComplaintRepo) auditTrail(complaintID string) []domain.StatusUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.StatusUpdate{}, r.audits[complaintID]...)
}

func (r *fakeComplaintRepo) Create(_ context.Context, c *domain.Complaint, updates []*domain.StatusUpdate) error {
	r.add(*c)
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, update := range updates {
		update.ComplaintID = c.ID
		r.audits[c.ID] = append(r.audits[c.ID], *update)
	}
	return nil
}

func (r *fakeComplaintRepo) Save(_ context.Context, c *domain.Complaint, updates []*domain.StatusUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failSave[c.Code]; err != nil {
		return err
	}
	if _, ok := r.byCode[c.Code]; !ok {
		return pgx.ErrNoRows
	}
	r.byCode[c.Code] = *c
	for _, update := range updates {
		update.ComplaintID = c.ID
		update.ID = fmt.Sprintf("update-%d", len(r.audits[c.ID])+1)
		r.audits[c.ID] = append(r.audits[c.ID], *update)
	}
	return nil
}

func (r *fakeComplaintRepo) GetByCode(_ context.Context, code string) (*domain.Complaint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byCode[code]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := c
	return &copied, nil
}

func (r *fakeComplaintRepo) ListByUser(context.Context, string, int, int) ([]domain.Complaint, error) {
	return nil, nil
}

func (r *fakeComplaintRepo) ListWithFilter(context.Context, repository.ComplaintFilter) ([]domain.Complaint, error) {
	return nil, nil
}

func (r *fakeComplaintRepo) ListEscalationCandidates(_ context.Context, cutoff time.Time) ([]domain.Complaint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Complaint
	for _, c := range r.byCode {
		if !c.CreatedAt.Before(cutoff) {
			continue
		}
		if c.Status == domain.StatusEscalated || c.Status.IsTerminal() {
			continue
		}
		if c.SubmissionType != domain.SubmissionPublic {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *fakeComplaintRepo) ListCreatedBetween(context.Context, time.Time, time.Time) ([]domain.Complaint, error) {
	return nil, nil
}

func (r *fakeComplaintRepo) CountByStatuses(context.Context, []domain.ComplaintStatus) (int64, error) {
	return 0, nil
}

func (r *fakeComplaintRepo) Count(context.Context) (int64, error) { return 0, nil }

func (r *fakeComplaintRepo) AverageResolutionDays(context.Context) (float64, error) { return 0, nil }

func (r *fakeComplaintRepo) NextCodeSeq(context.Context) (int64, error) { return 0, nil }

type fakeUserRepo struct {
	byID map[string]domain.User
}

func (r *fakeUserRepo) Create(context.Context, *domain.User) error { return nil }
func (r *fakeUserRepo) Update(context.Context, *domain.User) error { return nil }

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := r.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := user
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range r.byID {
		if user.Email == email {
			copied := user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) ListByRoles(context.Context, []domain.Role) ([]domain.User, error) {
	return nil, nil
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

type sentMail struct {
	to      string
	subject string
}

func (m *recordingMailer) Send(to, subject, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to: to, subject: subject})
	return nil
}

type noopBroadcaster struct{}

func (noopBroadcaster) Broadcast(context.Context, events.Event) error { return nil }

var _ notify.EmailSender = (*recordingMailer)(nil)
var _ notify.Broadcaster = noopBroadcaster{}

type sweepFixture struct {
	complaints *fakeComplaintRepo
	clk        *clock.Fake
	sweeper    *EscalationSweeper
	mailer     *recordingMailer
	metrics    *observability.Metrics
}

func newSweepFixture(t *testing.T, now time.Time) *sweepFixture {
	t.Helper()
	complaints := newFakeComplaintRepo()
	users := &fakeUserRepo{byID: map[string]domain.User{
		"senior-1": {ID: "senior-1", Name: "Sana Senior", Email: "senior@portal.test", Role: domain.RoleManager},
		"user-1":   {ID: "user-1", Name: "Uma User", Email: "uma@portal.test", Role: domain.RoleUser},
	}}
	dispatcher := events.NewInMemoryDispatcher()
	mailer := &recordingMailer{}
	notifications := service.NewNotificationService(service.NotificationDependencies{
		Dispatcher:  dispatcher,
		UserRepo:    users,
		Mailer:      mailer,
		Broadcaster: noopBroadcaster{},
		Logger:      zap.NewNop(),
		Config:      config.NotificationConfig{PortalURL: "https://portal.test"},
	})
	notifications.RegisterHandlers()

	clk := clock.NewFake(now)
	metrics := observability.NewMetrics()
	sweeper := NewEscalationSweeper(SweeperDependencies{
		ComplaintRepo:  complaints,
		UserRepo:       users,
		Dispatcher:     dispatcher,
		Logger:         zap.NewNop(),
		Metrics:        metrics,
		Clock:          clk,
		Window:         7 * 24 * time.Hour,
		Interval:       time.Hour,
		AuthorityEmail: "senior@portal.test",
	})
	return &sweepFixture{complaints: complaints, clk: clk, sweeper: sweeper, mailer: mailer, metrics: metrics}
}

func (f *sweepFixture) seed(code string, age time.Duration, status domain.ComplaintStatus, submission domain.SubmissionType, userID *string) {
	createdAt := f.clk.Now().Add(-age)
	f.complaints.add(domain.Complaint{
		ID:                   "id-" + code,
		Code:                 code,
		UserID:               userID,
		Subject:              "Subject " + code,
		Description:          "Description " + code,
		Category:             domain.CategoryOther,
		Priority:             domain.PriorityMedium,
		Status:               status,
		SubmissionType:       submission,
		CreatedAt:            createdAt,
		UpdatedAt:            createdAt,
		EscalationEligibleAt: createdAt.Add(7 * 24 * time.Hour),
	})
}

func TestSweepSelectsOnlyEligibleComplaints(t *testing.T) {
	now := time.Date(2026, 7, 15, 3, 0, 0, 0, time.UTC)
	f := newSweepFixture(t, now)
	submitter := "user-1"

	f.seed("C2026001", 8*24*time.Hour, domain.StatusNew, domain.SubmissionPublic, &submitter)
	f.seed("C2026002", 9*24*time.Hour, domain.StatusInProgress, domain.SubmissionPublic, nil)
	f.seed("C2026003", 10*24*time.Hour, domain.StatusResolved, domain.SubmissionPublic, nil)   // terminal
	f.seed("C2026004", 10*24*time.Hour, domain.StatusEscalated, domain.SubmissionPublic, nil)  // already escalated
	f.seed("C2026005", 10*24*time.Hour, domain.StatusNew, domain.SubmissionAnonymous, nil)     // anonymous
	f.seed("C2026006", 6*24*time.Hour, domain.StatusNew, domain.SubmissionPublic, &submitter)  // too young

	swept, err := f.sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, swept)

	assert.Equal(t, domain.StatusEscalated, f.complaints.get("C2026001").Status)
	assert.Equal(t, domain.StatusEscalated, f.complaints.get("C2026002").Status)
	assert.Equal(t, domain.StatusResolved, f.complaints.get("C2026003").Status)
	assert.Equal(t, domain.StatusNew, f.complaints.get("C2026005").Status)
	assert.Equal(t, domain.StatusNew, f.complaints.get("C2026006").Status)
}

func TestSweepEscalatesToAuthorityWithAuditAndEmails(t *testing.T) {
	now := time.Date(2026, 7, 15, 3, 0, 0, 0, time.UTC)
	f := newSweepFixture(t, now)
	submitter := "user-1"
	f.seed("C2026001", 8*24*time.Hour, domain.StatusNew, domain.SubmissionPublic, &submitter)

	swept, err := f.sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, swept)

	escalated := f.complaints.get("C2026001")
	assert.Equal(t, domain.StatusEscalated, escalated.Status)
	require.NotNil(t, escalated.AssignedToID)
	assert.Equal(t, "senior-1", *escalated.AssignedToID)
	assert.Equal(t, now, escalated.UpdatedAt)

	trail := f.complaints.auditTrail("id-C2026001")
	require.Len(t, trail, 1)
	assert.Equal(t, domain.StatusEscalated, trail[0].Status)
	assert.Equal(t, AutoEscalationReason, trail[0].Comment)
	assert.False(t, trail[0].IsPublic)
	assert.Nil(t, trail[0].UpdatedByID) // system action

	// Submitter and senior authority each get one email.
	require.Len(t, f.mailer.sent, 2)
	recipients := []string{f.mailer.sent[0].to, f.mailer.sent[1].to}
	assert.Contains(t, recipients, "uma@portal.test")
	assert.Contains(t, recipients, "senior@portal.test")
}

func TestSweepAnonymousComplaintNotifiesAuthorityOnly(t *testing.T) {
	now := time.Date(2026, 7, 15, 3, 0, 0, 0, time.UTC)
	f := newSweepFixture(t, now)
	// Anonymous complaints are excluded from the sweep entirely; verify via a
	// PUBLIC complaint without a linked submitter (guest submission).
	f.seed("C2026001", 8*24*time.Hour, domain.StatusNew, domain.SubmissionPublic, nil)

	swept, err := f.sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, swept)

	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, "senior@portal.test", f.mailer.sent[0].to)
}

func TestSweepIsIdempotent(t *testing.T) {
	now := time.Date(2026, 7, 15, 3, 0, 0, 0, time.UTC)
	f := newSweepFixture(t, now)
	submitter := "user-1"
	f.seed("C2026001", 8*24*time.Hour, domain.StatusNew, domain.SubmissionPublic, &submitter)

	first, err := f.sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first)

	second, err := f.sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, second)

	// Exactly one audit record and one email pair, no matter how often the
	// sweep runs.
	assert.Len(t, f.complaints.auditTrail("id-C2026001"), 1)
	assert.Len(t, f.mailer.sent, 2)
}

func TestSweepIsolatesPerComplaintFailures(t *testing.T) {
	now := time.Date(2026, 7, 15, 3, 0, 0, 0, time.UTC)
	f := newSweepFixture(t, now)
	f.seed("C2026001", 8*24*time.Hour, domain.StatusNew, domain.SubmissionPublic, nil)
	f.seed("C2026002", 8*24*time.Hour, domain.StatusNew, domain.SubmissionPublic, nil)
	f.seed("C2026003", 8*24*time.Hour, domain.StatusNew, domain.SubmissionPublic, nil)
	f.complaints.failSave["C2026002"] = errors.New("connection reset")

	swept, err := f.sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, swept)

	assert.Equal(t, domain.StatusEscalated, f.complaints.get("C2026001").Status)
	assert.Equal(t, domain.StatusNew, f.complaints.get("C2026002").Status)
	assert.Equal(t, domain.StatusEscalated, f.complaints.get("C2026003").Status)
	// Failed candidate leaves no audit record behind.
	assert.Empty(t, f.complaints.auditTrail("id-C2026002"))

	// The next run picks the failed one up again.
	delete(f.complaints.failSave, "C2026002")
	swept, err = f.sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, swept)
	assert.Equal(t, domain.StatusEscalated, f.complaints.get("C2026002").Status)
}

func TestSweepSkipsWhenAuthorityMissing(t *testing.T) {
	now := time.Date(2026, 7, 15, 3, 0, 0, 0, time.UTC)
	f := newSweepFixture(t, now)
	f.seed("C2026001", 8*24*time.Hour, domain.StatusNew, domain.SubmissionPublic, nil)

	f.sweeper.authorityEmail = "nobody@portal.test"
	swept, err := f.sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, swept)
	assert.Equal(t, domain.StatusNew, f.complaints.get("C2026001").Status)
	assert.Empty(t, f.complaints.auditTrail("id-C2026001"))
}
