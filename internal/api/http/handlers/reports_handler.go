package handlers

import (
	"bytes"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-portal/internal/domain"
	"github.com/spec-kit/complaint-portal/internal/service"
	apperrors "github.com/spec-kit/complaint-portal/pkg/util"
)

// ReportsHandler exposes dashboard and reporting endpoints.
type ReportsHandler struct {
	reports *service.ReportService
}

// NewReportsHandler constructs handler.
func NewReportsHandler(reportService *service.ReportService) *ReportsHandler {
	return &ReportsHandler{reports: reportService}
}

// Dashboard GET /admin/dashboard.
func (h *ReportsHandler) Dashboard(c *fiber.Ctx) error {
	stats, err := h.reports.Dashboard(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}

// Report GET /admin/reports.
func (h *ReportsHandler) Report(c *fiber.Ctx) error {
	from, to, category, status := parseReportQuery(c)
	report, err := h.reports.BuildReport(c.Context(), from, to, category, status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": report})
}

// ExportCSV GET /admin/reports/export.
func (h *ReportsHandler) ExportCSV(c *fiber.Ctx) error {
	from, to, category, status := parseReportQuery(c)
	report, err := h.reports.BuildReport(c.Context(), from, to, category, status)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := h.reports.WriteCSV(&buf, report); err != nil {
		return apperrors.NewInternalError(err)
	}
	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="complaints-report.csv"`)
	return c.Send(buf.Bytes())
}

func parseReportQuery(c *fiber.Ctx) (time.Time, time.Time, *domain.ComplaintCategory, *domain.ComplaintStatus) {
	var from, to time.Time
	if parsed := parseTime(c.Query("from")); parsed != nil {
		from = *parsed
	}
	if parsed := parseTime(c.Query("to")); parsed != nil {
		to = *parsed
	}
	var category *domain.ComplaintCategory
	if raw := c.Query("category"); raw != "" {
		value := domain.ComplaintCategory(raw)
		category = &value
	}
	var status *domain.ComplaintStatus
	if raw := c.Query("status"); raw != "" {
		value := domain.ComplaintStatus(raw)
		status = &value
	}
	return from, to, category, status
}
