package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/support-hub/internal/domain"
	"github.com/spec-kit/support-hub/internal/repository"
)

type ticketHistoryRepository struct {
	mu      sync.RWMutex
	now     func() time.Time
	entries map[string][]domain.TicketHistory // ticket -> entries in insert order
}

var _ repository.TicketHistoryRepository = &ticketHistoryRepository{}

func newTicketHistoryRepository(now func() time.Time) *ticketHistoryRepository {
	return &ticketHistoryRepository{
		now:     now,
		entries: make(map[string][]domain.TicketHistory),
	}
}

func (r *ticketHistoryRepository) Create(ctx context.Context, history *domain.TicketHistory) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.append(history)
	return nil
}

func (r *ticketHistoryRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.TicketHistory, len(r.entries[ticketID]))
	copy(out, r.entries[ticketID])
	return out, nil
}

// append records history. Callers hold mu.
func (r *ticketHistoryRepository) append(history *domain.TicketHistory) {
	if history.ID == "" {
		history.ID = uuid.NewString()
	}
	if history.CreatedAt.IsZero() {
		history.CreatedAt = r.now()
	}
	r.entries[history.TicketID] = append(r.entries[history.TicketID], *history)
}
