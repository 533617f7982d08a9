package domain

import (
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "Open"
	TicketStatusInProgress TicketStatus = "InProgress"
	TicketStatusResolved   TicketStatus = "Resolved"
)

// TicketStatuses lists every defined status in lifecycle order.
var TicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusResolved,
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "Low"
	TicketPriorityMedium   TicketPriority = "Medium"
	TicketPriorityHigh     TicketPriority = "High"
	TicketPriorityCritical TicketPriority = "Critical"
)

// TicketPriorities lists every defined priority from lowest to highest.
var TicketPriorities = []TicketPriority{
	TicketPriorityLow,
	TicketPriorityMedium,
	TicketPriorityHigh,
	TicketPriorityCritical,
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID              string
	Title           string
	Description     string
	Priority        TicketPriority
	Status          TicketStatus
	AssignedAgentID *string
	SLADueAt        *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasAssignee reports whether an agent reference is set.
func (t *Ticket) HasAssignee() bool {
	return t.AssignedAgentID != nil && strings.TrimSpace(*t.AssignedAgentID) != ""
}

// Clone returns a copy that shares no pointers with t.
func (t *Ticket) Clone() *Ticket {
	cp := *t
	if t.AssignedAgentID != nil {
		id := *t.AssignedAgentID
		cp.AssignedAgentID = &id
	}
	if t.SLADueAt != nil {
		due := *t.SLADueAt
		cp.SLADueAt = &due
	}
	return &cp
}

// IsValid reports whether s is a defined status.
func (s TicketStatus) IsValid() bool {
	for _, candidate := range TicketStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsValid reports whether p is a defined priority.
func (p TicketPriority) IsValid() bool {
	for _, candidate := range TicketPriorities {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsUrgent is true for priorities that must always carry an assignee.
func (p TicketPriority) IsUrgent() bool {
	return p == TicketPriorityHigh || p == TicketPriorityCritical
}

// ParseTicketStatus resolves a status name case-insensitively.
func ParseTicketStatus(raw string) (TicketStatus, bool) {
	raw = strings.TrimSpace(raw)
	for _, candidate := range TicketStatuses {
		if strings.EqualFold(string(candidate), raw) {
			return candidate, true
		}
	}
	return "", false
}

// ParseTicketPriority resolves a priority name case-insensitively.
func ParseTicketPriority(raw string) (TicketPriority, bool) {
	raw = strings.TrimSpace(raw)
	for _, candidate := range TicketPriorities {
		if strings.EqualFold(string(candidate), raw) {
			return candidate, true
		}
	}
	return "", false
}
