// Package rules evaluates ticket business rules: structural checks,
// operation gates and SLA deadlines. Every function is pure; callers decide
// whether a reported violation aborts the write.
package rules

import (
	"time"

	"github.com/spec-kit/support-hub/internal/config"
	"github.com/spec-kit/support-hub/internal/domain"
	"github.com/spec-kit/support-hub/internal/validation"
)

// Gate names a check evaluated against the persisted ticket before a mutation.
type Gate string

const (
	GateStatusUpdate Gate = "status_update"
	GateAssignment   Gate = "assignment"
)

const (
	CodeHighPriorityRequiresAssignment = "HIGH_PRIORITY_REQUIRES_ASSIGNMENT"
	CodeInProgressRequiresAgent        = "INPROGRESS_REQUIRES_AGENT"
	CodeResolvedTicketLocked           = "RESOLVED_TICKET_LOCKED"
	CodeTicketResolved                 = "TICKET_RESOLVED"
)

// ResolvedLockAfter is how long a resolved ticket stays editable.
const ResolvedLockAfter = 24 * time.Hour

// Engine applies ticket rules using configured SLA offsets.
type Engine struct {
	sla config.SLAConfig
	now func() time.Time
}

// Option customises an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine builds an engine.
func NewEngine(sla config.SLAConfig, opts ...Option) *Engine {
	e := &Engine{sla: sla, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Now returns the engine clock's current time in UTC.
func (e *Engine) Now() time.Time {
	return e.now().UTC()
}

// ValidateTicket returns every structural rule t violates.
func (e *Engine) ValidateTicket(t *domain.Ticket) []validation.Error {
	errs := []validation.Error{}
	if t.Priority.IsUrgent() && !t.HasAssignee() {
		errs = append(errs, validation.Error{
			Property: "assignedAgentId",
			Code:     CodeHighPriorityRequiresAssignment,
			Message:  "high and critical tickets must be assigned to an agent",
		})
	}
	if t.Status == domain.TicketStatusInProgress && !t.HasAssignee() {
		errs = append(errs, validation.Error{
			Property: "assignedAgentId",
			Code:     CodeInProgressRequiresAgent,
			Message:  "tickets in progress must be assigned to an agent",
		})
	}
	if e.IsLocked(t) {
		errs = append(errs, validation.Error{
			Property: "status",
			Code:     CodeResolvedTicketLocked,
			Message:  "resolved tickets cannot be modified 24 hours after their last update",
		})
	}
	return errs
}

// IsLocked reports whether t is resolved and past the edit window. A ticket
// updated exactly ResolvedLockAfter ago is still editable.
func (e *Engine) IsLocked(t *domain.Ticket) bool {
	if t.Status != domain.TicketStatusResolved {
		return false
	}
	return e.Now().Sub(t.UpdatedAt) > ResolvedLockAfter
}

// CheckGate evaluates g against the current persisted ticket.
func (e *Engine) CheckGate(g Gate, t *domain.Ticket) []validation.Error {
	errs := []validation.Error{}
	if t.Status != domain.TicketStatusResolved {
		return errs
	}
	switch g {
	case GateStatusUpdate:
		errs = append(errs, validation.Error{
			Property: "status",
			Code:     CodeTicketResolved,
			Message:  "resolved tickets cannot change status",
		})
	case GateAssignment:
		errs = append(errs, validation.Error{
			Property: "agentId",
			Code:     CodeTicketResolved,
			Message:  "resolved tickets cannot be reassigned",
		})
	}
	return errs
}

// ProjectStatusChange gates a status change and checks the rules of the
// resulting ticket.
func (e *Engine) ProjectStatusChange(current *domain.Ticket, status domain.TicketStatus) []validation.Error {
	if errs := e.CheckGate(GateStatusUpdate, current); len(errs) > 0 {
		return errs
	}
	next := current.Clone()
	next.Status = status
	next.UpdatedAt = e.Now()
	return e.ValidateTicket(next)
}

// ProjectAssignment gates an assignment and checks the rules of the
// resulting ticket.
func (e *Engine) ProjectAssignment(current *domain.Ticket, agentID string) []validation.Error {
	if errs := e.CheckGate(GateAssignment, current); len(errs) > 0 {
		return errs
	}
	next := current.Clone()
	next.AssignedAgentID = &agentID
	next.UpdatedAt = e.Now()
	return e.ValidateTicket(next)
}
