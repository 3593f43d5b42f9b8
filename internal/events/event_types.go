package events

import (
	"time"

	"github.com/spec-kit/complaint-portal/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventComplaintCreated  EventType = "complaint_created"
	EventStatusChanged     EventType = "complaint_status_changed"
	EventComplaintAssigned EventType = "complaint_assigned"
	EventEscalated         EventType = "complaint_escalated"
	EventAutoEscalated     EventType = "complaint_auto_escalated"
	EventNoteAdded         EventType = "complaint_note_added"
	EventPersonalNoteSent  EventType = "personal_note_sent"
)

// ComplaintRef is the complaint snapshot carried by every payload; enough
// for notifiers to build messages without a store round trip.
type ComplaintRef struct {
	Code           string                   `json:"code"`
	Subject        string                   `json:"subject"`
	Category       domain.ComplaintCategory `json:"category"`
	Priority       domain.ComplaintPriority `json:"priority"`
	SubmissionType domain.SubmissionType    `json:"submission_type"`
	CreatedAt      time.Time                `json:"created_at"`
	UserID         *string                  `json:"user_id,omitempty"`
}

// Ref builds a ComplaintRef snapshot.
func Ref(c *domain.Complaint) ComplaintRef {
	return ComplaintRef{
		Code:           c.Code,
		Subject:        c.Subject,
		Category:       c.Category,
		Priority:       c.Priority,
		SubmissionType: c.SubmissionType,
		CreatedAt:      c.CreatedAt,
		UserID:         c.UserID,
	}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID            string      `json:"id"`
	Type          EventType   `json:"type"`
	ComplaintCode string      `json:"complaint_code"`
	ActorID       *string     `json:"actor_id,omitempty"`
	Timestamp     time.Time   `json:"timestamp"`
	Payload       interface{} `json:"payload"`
}

// ComplaintCreatedPayload payload.
type ComplaintCreatedPayload struct {
	Complaint ComplaintRef `json:"complaint"`
}

// StatusChangedPayload payload.
type StatusChangedPayload struct {
	Complaint ComplaintRef           `json:"complaint"`
	OldStatus domain.ComplaintStatus `json:"old_status"`
	NewStatus domain.ComplaintStatus `json:"new_status"`
	Comment   string                 `json:"comment,omitempty"`
	ActorName string                 `json:"actor_name,omitempty"`
}

// ComplaintAssignedPayload payload.
type ComplaintAssignedPayload struct {
	Complaint     ComplaintRef `json:"complaint"`
	AssigneeID    *string      `json:"assignee_id,omitempty"`
	AssigneeName  string       `json:"assignee_name,omitempty"`
	AssigneeEmail string       `json:"assignee_email,omitempty"`
}

// EscalatedPayload payload for manual escalation.
type EscalatedPayload struct {
	Complaint        ComplaintRef `json:"complaint"`
	Reason           string       `json:"reason"`
	AuthorityID      *string      `json:"authority_id,omitempty"`
	AuthorityName    string       `json:"authority_name,omitempty"`
	NotifyAllParties bool         `json:"notify_all_parties"`
}

// AutoEscalatedPayload payload for sweeper escalation.
type AutoEscalatedPayload struct {
	Complaint      ComplaintRef `json:"complaint"`
	Reason         string       `json:"reason"`
	AuthorityID    string       `json:"authority_id"`
	AuthorityName  string       `json:"authority_name"`
	AuthorityEmail string       `json:"authority_email"`
}

// NoteAddedPayload payload.
type NoteAddedPayload struct {
	Complaint ComplaintRef `json:"complaint"`
	Note      string       `json:"note"`
	IsPublic  bool         `json:"is_public"`
}

// PersonalNoteSentPayload payload for admin-to-staff messages. These carry
// no complaint reference; ComplaintCode on the envelope stays empty.
type PersonalNoteSentPayload struct {
	NoteID         string `json:"note_id"`
	Message        string `json:"message"`
	SenderName     string `json:"sender_name"`
	RecipientID    string `json:"recipient_id"`
	RecipientName  string `json:"recipient_name"`
	RecipientEmail string `json:"recipient_email"`
}
