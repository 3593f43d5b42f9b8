package domain

import "time"

// PersonalNote is a direct message from an administrator to a staff member.
// Notes are independent of any complaint: they carry coordination context
// that should not land in a complaint's audit trail. ReadAt is stamped the
// first time the recipient marks the note read and never cleared.
type PersonalNote struct {
	ID          string
	Message     string
	SenderID    string
	RecipientID string
	IsRead      bool
	CreatedAt   time.Time
	ReadAt      *time.Time
}
