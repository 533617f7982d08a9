package events

import (
	"time"

	"github.com/spec-kit/support-hub/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketUpdated       EventType = "ticket_updated"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
)

// EventTypes lists every type a dispatcher may carry.
var EventTypes = []EventType{
	EventTicketCreated,
	EventTicketUpdated,
	EventTicketStatusChanged,
	EventTicketAssigned,
}

// Actor is the agent that caused the event.
type Actor struct {
	AgentID   string `json:"agent_id"`
	AgentName string `json:"agent_name"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// TicketSnapshotPayload carries the ticket state after a create or update.
type TicketSnapshotPayload struct {
	Ticket domain.Ticket `json:"ticket"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AgentID   string `json:"agent_id"`
	AgentName string `json:"agent_name"`
}
