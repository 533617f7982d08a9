package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"

	"github.com/spec-kit/support-hub/internal/domain"
	"github.com/spec-kit/support-hub/internal/repository"
)

type ticketRepository struct {
	mu      sync.RWMutex
	now     func() time.Time
	tickets map[string]*domain.Ticket
}

var _ repository.TicketRepository = &ticketRepository{}

func newTicketRepository(now func() time.Time) *ticketRepository {
	return &ticketRepository{
		now:     now,
		tickets: make(map[string]*domain.Ticket),
	}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.insert(ticket)
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	ticket, ok := r.tickets[id]
	if !ok {
		return nil, goerr.Wrap(repository.ErrNotFound, "ticket not found", goerr.V("ticket_id", id))
	}
	return ticket.Clone(), nil
}

func (r *ticketRepository) Query(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	// substring match, so % and _ are literal
	search := ""
	if filter.Search != nil {
		search = strings.ToLower(strings.TrimSpace(*filter.Search))
	}

	matched := []domain.Ticket{}
	for _, t := range r.tickets {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.Priority != nil && t.Priority != *filter.Priority {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(t.Title), search) &&
			!strings.Contains(strings.ToLower(t.Description), search) {
			continue
		}
		matched = append(matched, *t.Clone())
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	start := filter.Offset()
	if start >= total {
		return []domain.Ticket{}, total, nil
	}
	end := start + filter.Limit()
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok, err := r.update(id, func(t *domain.Ticket) { t.Status = status })
	return ok, err
}

func (r *ticketRepository) Assign(ctx context.Context, id, agentID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok, err := r.update(id, assignTo(agentID))
	return ok, err
}

// insert stores a copy of ticket. Callers hold mu.
func (r *ticketRepository) insert(ticket *domain.Ticket) {
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = r.now()
	}
	if ticket.UpdatedAt.IsZero() {
		ticket.UpdatedAt = ticket.CreatedAt
	}
	r.tickets[ticket.ID] = ticket.Clone()
}

// update applies fn to an unresolved ticket and returns the previous copy.
// Callers hold mu.
func (r *ticketRepository) update(id string, fn func(*domain.Ticket)) (*domain.Ticket, bool, error) {
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, false, nil
	}
	if ticket.Status == domain.TicketStatusResolved {
		return nil, false, goerr.Wrap(repository.ErrTicketResolved, "ticket write skipped", goerr.V("ticket_id", id))
	}
	prev := ticket.Clone()
	next := ticket.Clone()
	fn(next)
	next.UpdatedAt = r.now()
	r.tickets[id] = next
	return prev, true, nil
}

func assignTo(agentID string) func(*domain.Ticket) {
	return func(t *domain.Ticket) {
		assigned := agentID
		t.AssignedAgentID = &assigned
	}
}
