package domain

import "time"

// ComplaintStatus enumerates lifecycle states for complaints.
type ComplaintStatus string

const (
	StatusNew         ComplaintStatus = "NEW"
	StatusUnderReview ComplaintStatus = "UNDER_REVIEW"
	StatusInProgress  ComplaintStatus = "IN_PROGRESS"
	StatusEscalated   ComplaintStatus = "ESCALATED"
	StatusResolved    ComplaintStatus = "RESOLVED"
	StatusClosed      ComplaintStatus = "CLOSED"
)

// IsTerminal reports whether the status closes out the complaint.
// RESOLVED and CLOSED complaints may still be reopened; terminal only
// means the resolution timestamp has been reached.
func (s ComplaintStatus) IsTerminal() bool {
	return s == StatusResolved || s == StatusClosed
}

// ComplaintCategory classifies the subject matter.
type ComplaintCategory string

const (
	CategoryService   ComplaintCategory = "SERVICE"
	CategoryBilling   ComplaintCategory = "BILLING"
	CategoryTechnical ComplaintCategory = "TECHNICAL"
	CategoryStaff     ComplaintCategory = "STAFF"
	CategoryFacility  ComplaintCategory = "FACILITY"
	CategoryOther     ComplaintCategory = "OTHER"
)

// ComplaintPriority enumerates urgency.
type ComplaintPriority string

const (
	PriorityLow    ComplaintPriority = "LOW"
	PriorityMedium ComplaintPriority = "MEDIUM"
	PriorityHigh   ComplaintPriority = "HIGH"
	PriorityUrgent ComplaintPriority = "URGENT"
)

// SubmissionType distinguishes traceable from anonymous complaints.
// Immutable after creation.
type SubmissionType string

const (
	SubmissionPublic    SubmissionType = "PUBLIC"
	SubmissionAnonymous SubmissionType = "ANONYMOUS"
)

// Complaint is the aggregate root for a submitted grievance.
//
// EscalationEligibleAt is fixed at creation (CreatedAt plus the escalation
// window) and never recomputed. ResolvedAt is stamped on the first transition
// into a terminal status and never overwritten afterwards, even if the
// complaint is later reopened.
type Complaint struct {
	ID                   string
	Code                 string
	UserID               *string
	AssignedToID         *string
	Subject              string
	Description          string
	Category             ComplaintCategory
	Priority             ComplaintPriority
	Status               ComplaintStatus
	SubmissionType       SubmissionType
	CreatedAt            time.Time
	UpdatedAt            time.Time
	ResolvedAt           *time.Time
	EscalationEligibleAt time.Time
	Updates              []StatusUpdate
	Attachments          []Attachment
}

// Anonymous reports whether the complaint has no traceable submitter.
func (c *Complaint) Anonymous() bool {
	return c.SubmissionType == SubmissionAnonymous
}
