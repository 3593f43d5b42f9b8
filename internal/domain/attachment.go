package domain

import "time"

// Attachment stores metadata for a file uploaded with a complaint.
// The binary itself lives on disk under the storage root.
type Attachment struct {
	ID          string
	ComplaintID string
	FileName    string
	StoredPath  string
	SizeBytes   int64
	MimeType    string
	CreatedAt   time.Time
}
