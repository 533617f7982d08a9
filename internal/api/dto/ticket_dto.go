package dto

import (
	"time"

	"github.com/spec-kit/support-hub/internal/domain"
)

// CreateTicketRequest payload. Priority stays a raw string so that unknown
// values reach validation instead of failing body parsing.
type CreateTicketRequest struct {
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	Priority        string  `json:"priority"`
	AssignedAgentID *string `json:"assigned_agent_id"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	AgentID string `json:"agent_id"`
}

// TicketQuery captures list/search parameters.
type TicketQuery struct {
	Status   *string
	Priority *string
	Search   *string
	Page     int
	PageSize int
}

// TicketResponse represents a ticket with its computed SLA countdown.
type TicketResponse struct {
	ID               string                `json:"id"`
	Title            string                `json:"title"`
	Description      string                `json:"description"`
	Priority         domain.TicketPriority `json:"priority"`
	Status           domain.TicketStatus   `json:"status"`
	AssignedAgentID  *string               `json:"assigned_agent_id"`
	SLADueAt         *time.Time            `json:"sla_due_at"`
	SLATimeRemaining *string               `json:"sla_time_remaining"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

// TicketHistoryResponse represents one audit entry.
type TicketHistoryResponse struct {
	ID        string                     `json:"id"`
	Action    domain.TicketHistoryAction `json:"action"`
	Details   string                     `json:"details"`
	AgentName string                     `json:"agent_name"`
	CreatedAt time.Time                  `json:"created_at"`
}

// CreatedResponse returns the identifier of a new resource.
type CreatedResponse struct {
	ID string `json:"id"`
}
