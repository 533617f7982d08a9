package hub

import (
	"time"

	"github.com/spec-kit/support-hub/internal/domain"
)

// Event names pushed to clients.
const (
	EventReceiveMessage      = "ReceiveMessage"
	EventAgentTyping         = "AgentTyping"
	EventAgentJoined         = "AgentJoined"
	EventAgentLeft           = "AgentLeft"
	EventTicketCreated       = "TicketCreated"
	EventTicketUpdated       = "TicketUpdated"
	EventTicketStatusChanged = "TicketStatusChanged"
	EventTicketAssigned      = "TicketAssigned"
)

// Envelope is the frame written to a connection.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ChatMessage is broadcast as ReceiveMessage.
type ChatMessage struct {
	MessageID   string              `json:"messageId"`
	SessionID   string              `json:"sessionId"`
	SenderID    string              `json:"senderId"`
	SenderName  string              `json:"senderName"`
	SenderType  domain.SenderType   `json:"senderType"`
	Text        string              `json:"text"`
	Attachments []domain.Attachment `json:"attachments"`
	Timestamp   time.Time           `json:"timestamp"`
}

// AgentTypingNotification is broadcast as AgentTyping.
type AgentTypingNotification struct {
	SessionID string `json:"sessionId"`
	AgentID   string `json:"agentId"`
	AgentName string `json:"agentName"`
	IsTyping  bool   `json:"isTyping"`
}

// AgentJoinedNotification is broadcast as AgentJoined.
type AgentJoinedNotification struct {
	SessionID string    `json:"sessionId"`
	AgentID   string    `json:"agentId"`
	AgentName string    `json:"agentName"`
	Timestamp time.Time `json:"timestamp"`
}

// AgentLeftNotification is broadcast as AgentLeft.
type AgentLeftNotification struct {
	SessionID string    `json:"sessionId"`
	AgentID   string    `json:"agentId"`
	AgentName string    `json:"agentName"`
	Timestamp time.Time `json:"timestamp"`
}

// TicketNotification is broadcast as TicketCreated and TicketUpdated.
type TicketNotification struct {
	TicketID        string                `json:"ticketId"`
	Title           string                `json:"title"`
	Priority        domain.TicketPriority `json:"priority"`
	Status          domain.TicketStatus   `json:"status"`
	AssignedAgentID *string               `json:"assignedAgentId"`
	SLADueAt        *time.Time            `json:"slaDueAt"`
	UpdatedAt       time.Time             `json:"updatedAt"`
}

// TicketStatusChangedNotification is broadcast as TicketStatusChanged.
type TicketStatusChangedNotification struct {
	TicketID  string              `json:"ticketId"`
	OldStatus domain.TicketStatus `json:"oldStatus"`
	NewStatus domain.TicketStatus `json:"newStatus"`
}

// TicketAssignedNotification is broadcast as TicketAssigned.
type TicketAssignedNotification struct {
	TicketID  string `json:"ticketId"`
	AgentID   string `json:"agentId"`
	AgentName string `json:"agentName"`
}
