package memory

import (
	"context"

	"github.com/spec-kit/support-hub/internal/domain"
	"github.com/spec-kit/support-hub/internal/repository"
)

var _ repository.TicketTransactor = &Memory{}

// WithinTx holds the ticket and history locks for the whole of fn, so readers
// never see half a write. Changes are undone if fn fails or ctx ends.
func (m *Memory) WithinTx(ctx context.Context, fn func(ctx context.Context, stores repository.TicketStores) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.tickets.mu.Lock()
	defer m.tickets.mu.Unlock()
	m.history.mu.Lock()
	defer m.history.mu.Unlock()

	tx := &ticketTx{m: m}
	err := fn(ctx, repository.TicketStores{Tickets: tx, History: historyTx{tx}})
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		tx.rollback()
		return err
	}
	return nil
}

// Transactor exposes the store as a repository.TicketTransactor.
func (m *Memory) Transactor() repository.TicketTransactor {
	return m
}

type ticketTx struct {
	m    *Memory
	undo []func()
}

func (t *ticketTx) Create(ctx context.Context, ticket *domain.Ticket) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.m.tickets.insert(ticket)
	id := ticket.ID
	t.undo = append(t.undo, func() { delete(t.m.tickets.tickets, id) })
	return nil
}

func (t *ticketTx) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) (bool, error) {
	return t.update(ctx, id, func(ticket *domain.Ticket) { ticket.Status = status })
}

func (t *ticketTx) Assign(ctx context.Context, id, agentID string) (bool, error) {
	return t.update(ctx, id, assignTo(agentID))
}

func (t *ticketTx) update(ctx context.Context, id string, fn func(*domain.Ticket)) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	prev, ok, err := t.m.tickets.update(id, fn)
	if err != nil || !ok {
		return ok, err
	}
	t.undo = append(t.undo, func() { t.m.tickets.tickets[id] = prev })
	return true, nil
}

func (t *ticketTx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

type historyTx struct {
	tx *ticketTx
}

func (h historyTx) Create(ctx context.Context, history *domain.TicketHistory) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	repo := h.tx.m.history
	n := len(repo.entries[history.TicketID])
	repo.append(history)
	ticketID := history.TicketID
	h.tx.undo = append(h.tx.undo, func() {
		if n == 0 {
			delete(repo.entries, ticketID)
			return
		}
		repo.entries[ticketID] = repo.entries[ticketID][:n]
	})
	return nil
}
