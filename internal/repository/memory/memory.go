// Package memory holds map-backed repositories used by tests and by the
// server when no database is configured.
package memory

import (
	"time"

	"github.com/spec-kit/support-hub/internal/repository"
)

// Option customises the store.
type Option func(*Memory)

// WithClock sets the time source for generated timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Memory) {
		m.now = now
	}
}

// Memory bundles every repository over shared maps.
type Memory struct {
	now func() time.Time

	tickets  *ticketRepository
	history  *ticketHistoryRepository
	agents   *agentRepository
	sessions *sessionRepository
	messages *messageRepository
}

func New(opts ...Option) *Memory {
	m := &Memory{now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	clock := func() time.Time { return m.now().UTC() }

	m.tickets = newTicketRepository(clock)
	m.history = newTicketHistoryRepository(clock)
	m.agents = newAgentRepository(clock)
	m.sessions = newSessionRepository(clock)
	m.messages = newMessageRepository(clock)
	return m
}

func (m *Memory) Tickets() repository.TicketRepository {
	return m.tickets
}

func (m *Memory) TicketHistory() repository.TicketHistoryRepository {
	return m.history
}

func (m *Memory) Agents() repository.AgentRepository {
	return m.agents
}

func (m *Memory) Sessions() repository.SessionRepository {
	return m.sessions
}

func (m *Memory) Messages() repository.MessageRepository {
	return m.messages
}
