package dto

import (
	"time"

	"github.com/spec-kit/complaint-portal/internal/domain"
)

// CreateComplaintRequest payload.
type CreateComplaintRequest struct {
	Subject        string                   `json:"subject"`
	Description    string                   `json:"description"`
	Category       domain.ComplaintCategory `json:"category"`
	Priority       domain.ComplaintPriority `json:"priority"`
	SubmissionType domain.SubmissionType    `json:"submission_type"`
}

// ComplaintListQuery captures query filters for admin listings.
type ComplaintListQuery struct {
	Statuses    []domain.ComplaintStatus
	Categories  []domain.ComplaintCategory
	Priorities  []domain.ComplaintPriority
	Unassigned  bool
	Search      *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Page        int
	PageSize    int
}

// ComplaintSummary response.
type ComplaintSummary struct {
	Code           string                   `json:"code"`
	Subject        string                   `json:"subject"`
	Category       domain.ComplaintCategory `json:"category"`
	Priority       domain.ComplaintPriority `json:"priority"`
	Status         domain.ComplaintStatus   `json:"status"`
	SubmissionType domain.SubmissionType    `json:"submission_type"`
	AssignedToID   *string                  `json:"assigned_to_id"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
}

// ComplaintDetailResponse provides full complaint info.
type ComplaintDetailResponse struct {
	Code           string                   `json:"code"`
	Subject        string                   `json:"subject"`
	Description    string                   `json:"description"`
	Category       domain.ComplaintCategory `json:"category"`
	Priority       domain.ComplaintPriority `json:"priority"`
	Status         domain.ComplaintStatus   `json:"status"`
	SubmissionType domain.SubmissionType    `json:"submission_type"`
	AssignedToID   *string                  `json:"assigned_to_id"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
	ResolvedAt     *time.Time               `json:"resolved_at"`
	Updates        []StatusUpdateResponse   `json:"updates"`
	Attachments    []AttachmentResponse     `json:"attachments"`
}

// StatusUpdateResponse represents one audit entry.
type StatusUpdateResponse struct {
	ID        string                 `json:"id"`
	Status    domain.ComplaintStatus `json:"status"`
	Comment   string                 `json:"comment"`
	IsPublic  bool                   `json:"is_public"`
	CreatedAt time.Time              `json:"created_at"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID        string `json:"id"`
	FileName  string `json:"file_name"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status  domain.ComplaintStatus `json:"status"`
	Comment string                 `json:"comment"`
}

// AssignRequest payload. A null assignee unassigns the complaint.
type AssignRequest struct {
	AssigneeID *string `json:"assignee_id"`
}

// EscalateRequest payload.
type EscalateRequest struct {
	HigherAuthorityID *string `json:"higher_authority_id"`
	Reason            string  `json:"reason"`
	NotifyAllParties  bool    `json:"notify_all_parties"`
}

// NoteRequest payload for public/internal notes.
type NoteRequest struct {
	Note     string `json:"note"`
	IsPublic bool   `json:"is_public"`
}
