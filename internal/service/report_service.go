package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/spec-kit/complaint-portal/internal/clock"
	"github.com/spec-kit/complaint-portal/internal/domain"
	"github.com/spec-kit/complaint-portal/internal/repository"
	apperrors "github.com/spec-kit/complaint-portal/pkg/util"
)

// ReportService builds read-only aggregates over the complaint store.
type ReportService struct {
	complaints repository.ComplaintRepository
	clk        clock.Clock
}

// NewReportService constructs the service.
func NewReportService(complaints repository.ComplaintRepository, clk clock.Clock) *ReportService {
	return &ReportService{complaints: complaints, clk: clk}
}

// DashboardStats summarizes the portal at a glance.
type DashboardStats struct {
	TotalComplaints       int64   `json:"total_complaints"`
	OpenComplaints        int64   `json:"open_complaints"`
	ResolvedComplaints    int64   `json:"resolved_complaints"`
	AverageResolutionDays float64 `json:"average_resolution_days"`
}

var openStatuses = []domain.ComplaintStatus{
	domain.StatusNew, domain.StatusUnderReview, domain.StatusInProgress, domain.StatusEscalated,
}

// Dashboard computes headline counters and the average resolution time in
// days across resolved and closed complaints.
func (s *ReportService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	total, err := s.complaints.Count(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	open, err := s.complaints.CountByStatuses(ctx, openStatuses)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	resolved, err := s.complaints.CountByStatuses(ctx, []domain.ComplaintStatus{domain.StatusResolved})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	avg, err := s.complaints.AverageResolutionDays(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	return &DashboardStats{
		TotalComplaints:       total,
		OpenComplaints:        open,
		ResolvedComplaints:    resolved,
		AverageResolutionDays: math.Round(avg),
	}, nil
}

// Report aggregates a date-ranged slice of complaints.
type Report struct {
	From                    time.Time          `json:"from"`
	To                      time.Time          `json:"to"`
	TotalComplaints         int                `json:"total_complaints"`
	CategoryBreakdown       map[string]int     `json:"category_breakdown"`
	StatusBreakdown         map[string]int     `json:"status_breakdown"`
	PriorityBreakdown       map[string]int     `json:"priority_breakdown"`
	SubmissionTypeBreakdown map[string]int     `json:"submission_type_breakdown"`
	ResolvedCount           int                `json:"resolved_count"`
	AverageResolutionDays   float64            `json:"average_resolution_days"`
	ResolutionRate          float64            `json:"resolution_rate"`
	Complaints              []domain.Complaint `json:"-"`
}

// BuildReport assembles breakdowns for the range, optionally filtered by
// category and status. A zero `to` defaults to now, a zero `from` to the
// preceding 30 days.
func (s *ReportService) BuildReport(ctx context.Context, from, to time.Time, category *domain.ComplaintCategory, status *domain.ComplaintStatus) (*Report, error) {
	if to.IsZero() {
		to = s.clk.Now()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}

	complaints, err := s.complaints.ListCreatedBetween(ctx, from, to)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	filtered := complaints[:0]
	for _, c := range complaints {
		if category != nil && c.Category != *category {
			continue
		}
		if status != nil && c.Status != *status {
			continue
		}
		filtered = append(filtered, c)
	}

	report := &Report{
		From:                    from,
		To:                      to,
		TotalComplaints:         len(filtered),
		CategoryBreakdown:       map[string]int{},
		StatusBreakdown:         map[string]int{},
		PriorityBreakdown:       map[string]int{},
		SubmissionTypeBreakdown: map[string]int{},
		Complaints:              filtered,
	}

	var resolvedDays float64
	for i := range filtered {
		c := &filtered[i]
		report.CategoryBreakdown[string(c.Category)]++
		report.StatusBreakdown[string(c.Status)]++
		report.PriorityBreakdown[string(c.Priority)]++
		report.SubmissionTypeBreakdown[string(c.SubmissionType)]++
		if c.Status == domain.StatusResolved && c.ResolvedAt != nil {
			resolvedDays += c.ResolvedAt.Sub(c.CreatedAt).Hours() / 24
			report.ResolvedCount++
		}
	}
	if report.ResolvedCount > 0 {
		report.AverageResolutionDays = math.Round(resolvedDays / float64(report.ResolvedCount))
	}
	if report.TotalComplaints > 0 {
		report.ResolutionRate = float64(report.ResolvedCount) / float64(report.TotalComplaints) * 100
	}
	return report, nil
}

// WriteCSV streams the report's complaints as CSV rows.
func (s *ReportService) WriteCSV(w io.Writer, report *Report) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{
		"code", "subject", "category", "priority", "status",
		"submission_type", "created_at", "resolved_at",
	}); err != nil {
		return err
	}
	for i := range report.Complaints {
		c := &report.Complaints[i]
		resolvedAt := ""
		if c.ResolvedAt != nil {
			resolvedAt = c.ResolvedAt.Format(time.RFC3339)
		}
		if err := writer.Write([]string{
			c.Code,
			c.Subject,
			string(c.Category),
			string(c.Priority),
			string(c.Status),
			string(c.SubmissionType),
			c.CreatedAt.Format(time.RFC3339),
			resolvedAt,
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
