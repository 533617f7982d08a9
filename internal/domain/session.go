package domain

import (
	"encoding/json"
	"time"
)

// SessionStatus represents lifecycle states for a chat session.
type SessionStatus string

const (
	SessionStatusActive SessionStatus = "Active"
	SessionStatusClosed SessionStatus = "Closed"
)

// Session is a live chat between an end-user and support agents.
type Session struct {
	ID              string
	UserID          string
	AssignedAgentID *string
	Status          SessionStatus
	Metadata        json.RawMessage
	CreatedAt       time.Time
	UpdatedAt       time.Time
	LastActivityAt  time.Time
}
