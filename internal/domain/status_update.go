package domain

import "time"

// StatusUpdate is an immutable audit trail entry owned by a complaint.
// One is appended per mutation (status change, assignment, escalation or
// note); entries are never rewritten or deleted. Status carries the
// complaint status resulting from the mutation, which for note-only events
// equals the prior status.
type StatusUpdate struct {
	ID            string
	ComplaintID   string
	Status        ComplaintStatus
	Comment       string
	IsPublic      bool
	IsPrivateNote bool
	UpdatedByID   *string
	CreatedAt     time.Time
}
