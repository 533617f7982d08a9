package domain

import "time"

// SenderType indicates who authored a message.
type SenderType string

const (
	SenderTypeUser  SenderType = "User"
	SenderTypeAgent SenderType = "Agent"
)

// IsValid reports whether s is a defined sender kind.
func (s SenderType) IsValid() bool {
	return s == SenderTypeUser || s == SenderTypeAgent
}

// Message captures communications in a chat session. Messages are never
// updated after creation.
type Message struct {
	ID          string
	SessionID   string
	SenderID    string
	SenderType  SenderType
	Text        string
	Attachments []Attachment
	CreatedAt   time.Time
}

// Attachment stores metadata for a message attachment.
type Attachment struct {
	URL      string `json:"url"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
}
