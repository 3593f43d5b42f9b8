package dto

import "time"

// SendPersonalNoteRequest payload.
type SendPersonalNoteRequest struct {
	RecipientID string `json:"recipient_id"`
	Message     string `json:"message"`
}

// PersonalNoteResponse represents one note.
type PersonalNoteResponse struct {
	ID          string     `json:"id"`
	Message     string     `json:"message"`
	SenderID    string     `json:"sender_id"`
	RecipientID string     `json:"recipient_id"`
	IsRead      bool       `json:"is_read"`
	CreatedAt   time.Time  `json:"created_at"`
	ReadAt      *time.Time `json:"read_at"`
}
