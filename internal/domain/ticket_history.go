package domain

import "time"

// TicketHistoryAction captures what happened in a history entry.
type TicketHistoryAction string

const (
	HistoryActionCreated       TicketHistoryAction = "Created"
	HistoryActionStatusChanged TicketHistoryAction = "StatusChanged"
	HistoryActionAssigned      TicketHistoryAction = "Assigned"
)

// TicketHistory is an immutable audit trail entry.
type TicketHistory struct {
	ID        string
	TicketID  string
	Action    TicketHistoryAction
	Details   string
	AgentName string
	CreatedAt time.Time
}
