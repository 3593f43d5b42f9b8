package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-portal/internal/api/http/handlers"
	"github.com/spec-kit/complaint-portal/internal/auth"
	"github.com/spec-kit/complaint-portal/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health           *handlers.HealthHandler
	Users            *handlers.UsersHandler
	Complaints       *handlers.ComplaintsHandler
	Admin            *handlers.AdminHandler
	Reports          *handlers.ReportsHandler
	PersonalNotes    *handlers.PersonalNotesHandler
	EmployeeRequests *handlers.EmployeeRequestsHandler
	AuthMiddleware   *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)

	api := app.Group("/api/v1")

	// Submission and tracking stay public; OptionalHandle links the
	// complaint to a caller that does present a valid token.
	api.Post("/complaints", cfg.AuthMiddleware.OptionalHandle, cfg.Complaints.CreateComplaint)
	api.Get("/complaints/track/:code", cfg.AuthMiddleware.OptionalHandle, cfg.Complaints.GetComplaint)

	// Staff-access petitions come in unauthenticated.
	api.Post("/employee-requests", cfg.EmployeeRequests.Create)

	notes := api.Group("/personal-notes", cfg.AuthMiddleware.Handle)
	notes.Post("", auth.RequireCapability(domain.CapSendPersonalNotes), cfg.PersonalNotes.Send)
	notes.Get("/sent", auth.RequireCapability(domain.CapSendPersonalNotes), cfg.PersonalNotes.SentNotes)
	notes.Delete("/:id", auth.RequireCapability(domain.CapSendPersonalNotes), cfg.PersonalNotes.Delete)
	notes.Get("", auth.RequireCapability(domain.CapReadPersonalNotes), cfg.PersonalNotes.MyNotes)
	notes.Get("/unread", auth.RequireCapability(domain.CapReadPersonalNotes), cfg.PersonalNotes.Unread)
	notes.Get("/unread-count", auth.RequireCapability(domain.CapReadPersonalNotes), cfg.PersonalNotes.UnreadCount)
	notes.Put("/:id/read", auth.RequireCapability(domain.CapReadPersonalNotes), cfg.PersonalNotes.MarkRead)

	user := api.Group("", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	user.Get("/complaints", cfg.Complaints.ListMyComplaints)
	user.Post("/complaints/:code/attachments", cfg.Complaints.UploadAttachment)
	user.Get("/complaints/:code/attachments/:id", cfg.Complaints.DownloadAttachment)

	admin := api.Group("/admin", cfg.AuthMiddleware.Handle)
	admin.Get("/complaints", auth.RequireCapability(domain.CapViewAllComplaints), cfg.Admin.ListComplaints)
	admin.Get("/complaints/:code", auth.RequireCapability(domain.CapViewAllComplaints), cfg.Admin.GetComplaint)
	admin.Put("/complaints/:code/status", auth.RequireCapability(domain.CapUpdateStatus), cfg.Admin.UpdateStatus)
	admin.Post("/complaints/:code/assign", auth.RequireCapability(domain.CapAssignComplaints), cfg.Admin.Assign)
	admin.Post("/complaints/:code/escalate", auth.RequireCapability(domain.CapEscalateComplaints), cfg.Admin.Escalate)
	admin.Post("/complaints/:code/notes", auth.RequireCapability(domain.CapAddNotes), cfg.Admin.AddNote)
	admin.Post("/complaints/:code/private-notes", auth.RequireCapability(domain.CapAddNotes), cfg.Admin.AddPrivateNote)
	admin.Get("/employee-requests", auth.RequireCapability(domain.CapReviewStaffAccess), cfg.EmployeeRequests.List)
	admin.Put("/employee-requests/:id/status", auth.RequireCapability(domain.CapReviewStaffAccess), cfg.EmployeeRequests.Review)
	admin.Get("/dashboard", auth.RequireCapability(domain.CapViewReports), cfg.Reports.Dashboard)
	admin.Get("/reports", auth.RequireCapability(domain.CapViewReports), cfg.Reports.Report)
	admin.Get("/reports/export", auth.RequireCapability(domain.CapViewReports), cfg.Reports.ExportCSV)
}
