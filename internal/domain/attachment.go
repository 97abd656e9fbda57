package domain

import "time"

// Attachment stores metadata for a file uploaded to a ticket.
type Attachment struct {
	ID         string
	TicketID   string
	Name       string
	MimeType   string
	SizeBytes  int64
	StorageKey string
	UploadedAt time.Time
}
