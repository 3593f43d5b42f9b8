package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/complaint-portal/internal/config"
	"github.com/spec-kit/complaint-portal/internal/events"
	"github.com/spec-kit/complaint-portal/internal/notify"
	"github.com/spec-kit/complaint-portal/internal/repository"
)

// NotificationService consumes lifecycle events and fans out email and
// real-time notices. Every send is fire-and-forget: failures are logged,
// never returned to the mutation that produced the event.
type NotificationService struct {
	dispatcher  events.Dispatcher
	users       repository.UserRepository
	mailer      notify.EmailSender
	broadcaster notify.Broadcaster
	logger      *zap.Logger
	cfg         config.NotificationConfig
}

// NotificationDependencies bundles collaborators.
type NotificationDependencies struct {
	Dispatcher  events.Dispatcher
	UserRepo    repository.UserRepository
	Mailer      notify.EmailSender
	Broadcaster notify.Broadcaster
	Logger      *zap.Logger
	Config      config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	return &NotificationService{
		dispatcher:  deps.Dispatcher,
		users:       deps.UserRepo,
		mailer:      deps.Mailer,
		broadcaster: deps.Broadcaster,
		logger:      deps.Logger,
		cfg:         deps.Config,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventComplaintCreated, n.handleCreated)
	n.dispatcher.Subscribe(events.EventStatusChanged, n.handleStatusChanged)
	n.dispatcher.Subscribe(events.EventComplaintAssigned, n.handleAssigned)
	n.dispatcher.Subscribe(events.EventEscalated, n.handleEscalated)
	n.dispatcher.Subscribe(events.EventAutoEscalated, n.handleAutoEscalated)
	n.dispatcher.Subscribe(events.EventNoteAdded, n.handleNoteAdded)
	n.dispatcher.Subscribe(events.EventPersonalNoteSent, n.handlePersonalNoteSent)
}

func (n *NotificationService) handleCreated(ctx context.Context, event events.Event) error {
	n.broadcast(ctx, event)
	return nil
}

func (n *NotificationService) handleStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.StatusChangedPayload)
	if !ok {
		return nil
	}
	n.broadcast(ctx, event)

	email, name := n.submitterContact(ctx, payload.Complaint)
	if email == "" {
		return nil
	}
	subject := fmt.Sprintf("Complaint Status Updated - %s", payload.Complaint.Code)
	body := fmt.Sprintf(
		"Dear %s,\n\n"+
			"The status of your complaint has changed.\n\n"+
			"Complaint: %s\n"+
			"Subject: %s\n"+
			"Previous Status: %s\n"+
			"New Status: %s\n"+
			"Updated By: %s\n\n"+
			"You can track your complaint at: %s/complaint/%s\n\n"+
			"Best regards,\nComplaint Portal Team",
		name, payload.Complaint.Code, payload.Complaint.Subject,
		payload.OldStatus, payload.NewStatus, payload.ActorName,
		n.cfg.PortalURL, payload.Complaint.Code)
	n.send(email, subject, body)
	return nil
}

func (n *NotificationService) handleAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ComplaintAssignedPayload)
	if !ok {
		return nil
	}
	n.broadcast(ctx, event)

	if payload.AssigneeEmail == "" {
		return nil
	}
	subject := fmt.Sprintf("Complaint Assigned to You - %s", payload.Complaint.Code)
	body := fmt.Sprintf(
		"Dear %s,\n\n"+
			"A complaint has been assigned to you.\n\n"+
			"Complaint: %s\n"+
			"Subject: %s\n"+
			"Category: %s\n"+
			"Priority: %s\n\n"+
			"Please review it at: %s/complaint/%s\n\n"+
			"Best regards,\nComplaint Portal Team",
		payload.AssigneeName, payload.Complaint.Code, payload.Complaint.Subject,
		payload.Complaint.Category, payload.Complaint.Priority,
		n.cfg.PortalURL, payload.Complaint.Code)
	n.send(payload.AssigneeEmail, subject, body)
	return nil
}

func (n *NotificationService) handleEscalated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.EscalatedPayload)
	if !ok {
		return nil
	}
	n.broadcast(ctx, event)

	if !payload.NotifyAllParties {
		return nil
	}
	email, name := n.submitterContact(ctx, payload.Complaint)
	if email == "" {
		return nil
	}
	subject := fmt.Sprintf("Your Complaint Has Been Escalated - %s", payload.Complaint.Code)
	body := fmt.Sprintf(
		"Dear %s,\n\n"+
			"Your complaint has been escalated for priority attention.\n\n"+
			"Complaint: %s\n"+
			"Subject: %s\n"+
			"Reason for Escalation: %s\n\n"+
			"You can track your complaint at: %s/complaint/%s\n\n"+
			"Best regards,\nComplaint Portal Team",
		name, payload.Complaint.Code, payload.Complaint.Subject, payload.Reason,
		n.cfg.PortalURL, payload.Complaint.Code)
	n.send(email, subject, body)
	return nil
}

func (n *NotificationService) handleAutoEscalated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.AutoEscalatedPayload)
	if !ok {
		return nil
	}
	n.broadcast(ctx, event)

	created := payload.Complaint.CreatedAt.Format("2006-01-02")

	if email, name := n.submitterContact(ctx, payload.Complaint); email != "" {
		subject := fmt.Sprintf("Your Complaint Has Been Escalated - %s", payload.Complaint.Code)
		body := fmt.Sprintf(
			"Dear %s,\n\n"+
				"Your complaint has been automatically escalated to senior management for priority attention.\n\n"+
				"Complaint: %s\n"+
				"Subject: %s\n"+
				"Category: %s\n"+
				"Priority: %s\n"+
				"Submitted: %s\n"+
				"Reason for Escalation: %s\n\n"+
				"You can track your complaint at: %s/complaint/%s\n\n"+
				"Best regards,\nComplaint Portal Team",
			name, payload.Complaint.Code, payload.Complaint.Subject,
			payload.Complaint.Category, payload.Complaint.Priority, created, payload.Reason,
			n.cfg.PortalURL, payload.Complaint.Code)
		n.send(email, subject, body)
	}

	subject := fmt.Sprintf("URGENT: Complaint Auto-Escalated - %s", payload.Complaint.Code)
	body := fmt.Sprintf(
		"Dear %s,\n\n"+
			"A complaint has been automatically escalated to your attention due to extended resolution time.\n\n"+
			"Complaint: %s\n"+
			"Subject: %s\n"+
			"Category: %s\n"+
			"Priority: %s\n"+
			"Submitted: %s\n"+
			"Reason: %s\n\n"+
			"Please review and take appropriate action: %s/complaint/%s\n\n"+
			"Best regards,\nComplaint Portal Auto-Escalation System",
		payload.AuthorityName, payload.Complaint.Code, payload.Complaint.Subject,
		payload.Complaint.Category, payload.Complaint.Priority, created, payload.Reason,
		n.cfg.PortalURL, payload.Complaint.Code)
	n.send(payload.AuthorityEmail, subject, body)
	return nil
}

func (n *NotificationService) handleNoteAdded(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.NoteAddedPayload)
	if !ok {
		return nil
	}
	n.broadcast(ctx, event)

	if !payload.IsPublic {
		return nil
	}
	email, name := n.submitterContact(ctx, payload.Complaint)
	if email == "" {
		return nil
	}
	subject := fmt.Sprintf("Update on Your Complaint - %s", payload.Complaint.Code)
	body := fmt.Sprintf(
		"Dear %s,\n\n"+
			"A new update has been added to your complaint %s:\n\n%s\n\n"+
			"You can track your complaint at: %s/complaint/%s\n\n"+
			"Best regards,\nComplaint Portal Team",
		name, payload.Complaint.Code, payload.Note,
		n.cfg.PortalURL, payload.Complaint.Code)
	n.send(email, subject, body)
	return nil
}

func (n *NotificationService) handlePersonalNoteSent(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.PersonalNoteSentPayload)
	if !ok {
		return nil
	}
	n.broadcast(ctx, event)

	subject := fmt.Sprintf("New Personal Note from %s", payload.SenderName)
	body := fmt.Sprintf(
		"Dear %s,\n\n"+
			"You have received a personal note from %s:\n\n%s\n\n"+
			"Log in to the portal to view and acknowledge it: %s\n\n"+
			"Best regards,\nComplaint Portal Team",
		payload.RecipientName, payload.SenderName, payload.Message,
		n.cfg.PortalURL)
	n.send(payload.RecipientEmail, subject, body)
	return nil
}

// submitterContact resolves the submitting user's email and name. Anonymous
// complaints have no traceable submitter and return empty values.
func (n *NotificationService) submitterContact(ctx context.Context, ref events.ComplaintRef) (string, string) {
	if ref.UserID == nil {
		return "", ""
	}
	user, err := n.users.GetByID(ctx, *ref.UserID)
	if err != nil {
		n.logger.Warn("submitter lookup failed",
			zap.String("complaint_code", ref.Code),
			zap.Error(err))
		return "", ""
	}
	return user.Email, user.Name
}

func (n *NotificationService) send(to, subject, body string) {
	if n.mailer == nil {
		return
	}
	if err := n.mailer.Send(to, subject, body); err != nil {
		n.logger.Warn("email delivery failed",
			zap.String("to", to),
			zap.String("subject", subject),
			zap.Error(err))
	}
}

func (n *NotificationService) broadcast(ctx context.Context, event events.Event) {
	if n.broadcaster == nil {
		return
	}
	if err := n.broadcaster.Broadcast(ctx, event); err != nil {
		n.logger.Warn("broadcast failed",
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
	}
}
