package rules

import (
	"fmt"
	"time"

	"github.com/spec-kit/support-hub/internal/domain"
)

// OverdueLabel is rendered once the SLA deadline has passed.
const OverdueLabel = "Overdue"

// SLAOffset returns the configured allowance for priority.
func (e *Engine) SLAOffset(priority domain.TicketPriority) time.Duration {
	switch priority {
	case domain.TicketPriorityCritical:
		return time.Duration(e.sla.CriticalHours) * time.Hour
	case domain.TicketPriorityHigh:
		return time.Duration(e.sla.HighHours) * time.Hour
	case domain.TicketPriorityMedium:
		return time.Duration(e.sla.MediumDays) * 24 * time.Hour
	default:
		return time.Duration(e.sla.LowDays) * 24 * time.Hour
	}
}

// ComputeSLADueAt derives the deadline for a ticket created at from.
func (e *Engine) ComputeSLADueAt(priority domain.TicketPriority, from time.Time) time.Time {
	return from.Add(e.SLAOffset(priority))
}

// TimeRemaining renders TimeRemaining against the engine clock.
func (e *Engine) TimeRemaining(dueAt *time.Time) *string {
	return TimeRemaining(dueAt, e.Now())
}

// TimeRemaining renders the time left until dueAt using the two largest
// units: "Nd Hh", "Hh Mm" or "Mm". It returns nil without a deadline and
// OverdueLabel once dueAt is in the past.
func TimeRemaining(dueAt *time.Time, now time.Time) *string {
	if dueAt == nil {
		return nil
	}
	left := dueAt.Sub(now)
	var out string
	switch {
	case left < 0:
		out = OverdueLabel
	case left >= 24*time.Hour:
		days := int(left / (24 * time.Hour))
		hours := int((left % (24 * time.Hour)) / time.Hour)
		out = fmt.Sprintf("%dd %dh", days, hours)
	case left >= time.Hour:
		hours := int(left / time.Hour)
		minutes := int((left % time.Hour) / time.Minute)
		out = fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		out = fmt.Sprintf("%dm", int(left/time.Minute))
	}
	return &out
}
