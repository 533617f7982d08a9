package dto

import (
	"encoding/json"
	"time"

	"github.com/spec-kit/support-hub/internal/domain"
)

// CreateSessionRequest payload.
type CreateSessionRequest struct {
	UserID          string          `json:"user_id"`
	AssignedAgentID *string         `json:"assigned_agent_id"`
	Metadata        json.RawMessage `json:"metadata"`
}

// SendMessageRequest payload.
type SendMessageRequest struct {
	Text        string              `json:"text"`
	Attachments []domain.Attachment `json:"attachments"`
}

// MessageCursorQuery pages through a session's messages.
type MessageCursorQuery struct {
	After *string
	Limit int
}

// SessionResponse represents a chat session.
type SessionResponse struct {
	ID              string               `json:"id"`
	UserID          string               `json:"user_id"`
	AssignedAgentID *string              `json:"assigned_agent_id"`
	Status          domain.SessionStatus `json:"status"`
	Metadata        json.RawMessage      `json:"metadata,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
	LastActivityAt  time.Time            `json:"last_activity_at"`
}

// MessageResponse represents a persisted chat message.
type MessageResponse struct {
	ID          string              `json:"id"`
	SessionID   string              `json:"session_id"`
	SenderID    string              `json:"sender_id"`
	SenderType  domain.SenderType   `json:"sender_type"`
	Text        string              `json:"text"`
	Attachments []domain.Attachment `json:"attachments"`
	CreatedAt   time.Time           `json:"created_at"`
}

// MessagePageResponse is one cursor page of messages.
type MessagePageResponse struct {
	Items   []MessageResponse `json:"items"`
	HasMore bool              `json:"has_more"`
}
