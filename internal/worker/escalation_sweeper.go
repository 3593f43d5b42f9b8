package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-portal/internal/clock"
	"github.com/spec-kit/complaint-portal/internal/domain"
	"github.com/spec-kit/complaint-portal/internal/events"
	"github.com/spec-kit/complaint-portal/internal/observability"
	"github.com/spec-kit/complaint-portal/internal/repository"
)

// AutoEscalationReason is the generated reason attached to every sweep
// escalation.
const AutoEscalationReason = "Automatic escalation after 7 days without resolution"

// EscalationSweeper periodically escalates PUBLIC complaints that have aged
// past the eligibility window without reaching a terminal status. Each
// candidate is processed independently: the status write and audit append
// commit atomically per complaint, and one candidate's failure never aborts
// the rest of the sweep. Repeated runs are idempotent because the candidate
// query always excludes already-escalated complaints and is executed fresh
// on every run.
type EscalationSweeper struct {
	complaints     repository.ComplaintRepository
	users          repository.UserRepository
	dispatcher     events.Dispatcher
	logger         *zap.Logger
	metrics        *observability.Metrics
	clk            clock.Clock
	window         time.Duration
	interval       time.Duration
	authorityEmail string
	cron           *cron.Cron
}

// SweeperDependencies bundles collaborators.
type SweeperDependencies struct {
	ComplaintRepo  repository.ComplaintRepository
	UserRepo       repository.UserRepository
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
	Metrics        *observability.Metrics
	Clock          clock.Clock
	Window         time.Duration
	Interval       time.Duration
	AuthorityEmail string
}

// NewEscalationSweeper constructs the sweeper.
func NewEscalationSweeper(deps SweeperDependencies) *EscalationSweeper {
	window := deps.Window
	if window <= 0 {
		window = 7 * 24 * time.Hour
	}
	interval := deps.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	return &EscalationSweeper{
		complaints:     deps.ComplaintRepo,
		users:          deps.UserRepo,
		dispatcher:     deps.Dispatcher,
		logger:         deps.Logger,
		metrics:        deps.Metrics,
		clk:            deps.Clock,
		window:         window,
		interval:       interval,
		authorityEmail: deps.AuthorityEmail,
	}
}

// Start schedules the sweep at the configured interval.
func (s *EscalationSweeper) Start() {
	if s.cron != nil {
		return
	}
	s.cron = cron.New()
	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, func() {
		if _, err := s.RunOnce(context.Background()); err != nil {
			s.logger.Error("escalation sweep failed", zap.Error(err))
		}
	}); err != nil {
		s.logger.Error("failed to schedule escalation sweep", zap.Error(err))
		return
	}
	s.cron.Start()
	s.logger.Info("escalation sweeper started", zap.Duration("interval", s.interval))
}

// Stop halts the schedule. A sweep already in flight finishes; complaints it
// had not yet committed are picked up by the next run.
func (s *EscalationSweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.cron = nil
	s.logger.Info("escalation sweeper stopped")
}

// RunOnce performs a single sweep and returns the number of complaints
// escalated.
func (s *EscalationSweeper) RunOnce(ctx context.Context) (int, error) {
	cutoff := s.clk.Now().Add(-s.window)
	candidates, err := s.complaints.ListEscalationCandidates(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if len(candidates) == 0 {
		s.metrics.RecordSweep(0, 0)
		return 0, nil
	}
	s.logger.Info("escalation sweep found candidates", zap.Int("count", len(candidates)))

	authority, err := s.users.GetByEmail(ctx, s.authorityEmail)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Error("senior authority not found; skipping sweep",
				zap.String("authority_email", s.authorityEmail))
		} else {
			s.logger.Error("senior authority lookup failed", zap.Error(err))
		}
		s.metrics.RecordSweep(0, len(candidates))
		return 0, nil
	}

	swept := 0
	failed := 0
	for i := range candidates {
		if err := s.escalate(ctx, &candidates[i], authority); err != nil {
			failed++
			s.logger.Error("failed to auto-escalate complaint",
				zap.String("code", candidates[i].Code),
				zap.Error(err))
			continue
		}
		swept++
	}
	s.metrics.RecordSweep(swept, failed)
	s.logger.Info("escalation sweep finished",
		zap.Int("escalated", swept),
		zap.Int("failed", failed))
	return swept, nil
}

func (s *EscalationSweeper) escalate(ctx context.Context, complaint *domain.Complaint, authority *domain.User) error {
	now := s.clk.Now()
	complaint.Status = domain.StatusEscalated
	complaint.AssignedToID = &authority.ID
	complaint.UpdatedAt = now

	update := &domain.StatusUpdate{
		ComplaintID: complaint.ID,
		Status:      domain.StatusEscalated,
		Comment:     AutoEscalationReason,
		IsPublic:    false,
		CreatedAt:   now,
	}
	if err := s.complaints.Save(ctx, complaint, []*domain.StatusUpdate{update}); err != nil {
		return err
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:            uuid.NewString(),
			Type:          events.EventAutoEscalated,
			ComplaintCode: complaint.Code,
			Timestamp:     now,
			Payload: events.AutoEscalatedPayload{
				Complaint:      events.Ref(complaint),
				Reason:         AutoEscalationReason,
				AuthorityID:    authority.ID,
				AuthorityName:  authority.Name,
				AuthorityEmail: authority.Email,
			},
		})
	}
	return nil
}
