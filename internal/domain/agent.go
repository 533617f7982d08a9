package domain

import "time"

// Agent models a support agent.
type Agent struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	IsOnline     bool
	LastSeenAt   *time.Time
	CreatedAt    time.Time
}

// OnlineAt reports whether the agent counts as online at now given the
// allowed silence window.
func (a *Agent) OnlineAt(now time.Time, threshold time.Duration) bool {
	if !a.IsOnline || a.LastSeenAt == nil {
		return false
	}
	return now.Sub(*a.LastSeenAt) <= threshold
}
