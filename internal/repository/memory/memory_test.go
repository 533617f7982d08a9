package memory_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/spec-kit/support-hub/internal/domain"
	"github.com/spec-kit/support-hub/internal/repository"
	"github.com/spec-kit/support-hub/internal/repository/memory"
)

func TestTicketQueryFiltersAndPages(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	store := memory.New()
	tickets := store.Tickets()

	for i := 0; i < 5; i++ {
		priority := domain.TicketPriorityLow
		if i%2 == 0 {
			priority = domain.TicketPriorityMedium
		}
		ticket := &domain.Ticket{
			Title:     fmt.Sprintf("Printer %d jammed", i),
			Priority:  priority,
			Status:    domain.TicketStatusOpen,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		gt.NoError(t, tickets.Create(ctx, ticket)).Required()
	}
	gt.NoError(t, tickets.Create(ctx, &domain.Ticket{
		Title:       "VPN",
		Description: "tunnel drops every hour",
		Priority:    domain.TicketPriorityLow,
		Status:      domain.TicketStatusOpen,
		CreatedAt:   base.Add(time.Hour),
	})).Required()

	medium := domain.TicketPriorityMedium
	items, total, err := tickets.Query(ctx, repository.TicketFilter{Priority: &medium, Page: 1, PageSize: 2})
	gt.NoError(t, err).Required()
	gt.Value(t, total).Equal(3)
	gt.Array(t, items).Length(2)
	gt.Value(t, items[0].Title).Equal("Printer 4 jammed")

	items, _, err = tickets.Query(ctx, repository.TicketFilter{Priority: &medium, Page: 2, PageSize: 2})
	gt.NoError(t, err).Required()
	gt.Array(t, items).Length(1)

	search := "TUNNEL"
	items, total, err = tickets.Query(ctx, repository.TicketFilter{Search: &search, Page: 1, PageSize: 10})
	gt.NoError(t, err).Required()
	gt.Value(t, total).Equal(1)
	gt.Value(t, items[0].Title).Equal("VPN")

	items, total, err = tickets.Query(ctx, repository.TicketFilter{Page: 9, PageSize: 10})
	gt.NoError(t, err).Required()
	gt.Value(t, total).Equal(6)
	gt.Array(t, items).Length(0)
}

func TestTicketUpdatesStampUpdatedAt(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	store := memory.New(memory.WithClock(func() time.Time { return now }))
	tickets := store.Tickets()

	ticket := &domain.Ticket{Title: "Login loop", Priority: domain.TicketPriorityLow, Status: domain.TicketStatusOpen}
	gt.NoError(t, tickets.Create(ctx, ticket)).Required()
	gt.Value(t, ticket.CreatedAt).Equal(now)

	now = now.Add(time.Hour)
	ok, err := tickets.UpdateStatus(ctx, ticket.ID, domain.TicketStatusResolved)
	gt.NoError(t, err).Required()
	gt.Bool(t, ok).True()

	got, err := tickets.GetByID(ctx, ticket.ID)
	gt.NoError(t, err).Required()
	gt.Value(t, got.Status).Equal(domain.TicketStatusResolved)
	gt.Value(t, got.UpdatedAt).Equal(now)

	ok, err = tickets.Assign(ctx, "missing", "agent")
	gt.NoError(t, err).Required()
	gt.Bool(t, ok).False()

	_, err = tickets.GetByID(ctx, "missing")
	gt.Bool(t, errors.Is(err, repository.ErrNotFound)).True()
}

func TestTicketCopiesAreIsolated(t *testing.T) {
	ctx := context.Background()
	tickets := memory.New().Tickets()

	agent := "a1"
	ticket := &domain.Ticket{Title: "Email", Priority: domain.TicketPriorityHigh, Status: domain.TicketStatusOpen, AssignedAgentID: &agent}
	gt.NoError(t, tickets.Create(ctx, ticket)).Required()
	agent = "changed"

	got, err := tickets.GetByID(ctx, ticket.ID)
	gt.NoError(t, err).Required()
	gt.Value(t, *got.AssignedAgentID).Equal("a1")
}

func TestAgentLookups(t *testing.T) {
	ctx := context.Background()
	agents := memory.New().Agents()

	ada := &domain.Agent{Name: "Ada", Email: " Ada@Example.com "}
	gt.NoError(t, agents.Create(ctx, ada)).Required()
	gt.Error(t, agents.Create(ctx, &domain.Agent{Name: "Dup", Email: "ada@example.com"}))

	exists, err := agents.ExistsByID(ctx, ada.ID)
	gt.NoError(t, err).Required()
	gt.Bool(t, exists).True()

	got, err := agents.GetByEmail(ctx, "ADA@example.com")
	gt.NoError(t, err).Required()
	gt.Value(t, got.ID).Equal(ada.ID)

	seen := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	gt.NoError(t, agents.TouchPresence(ctx, ada.ID, true, seen)).Required()
	got, err = agents.GetByID(ctx, ada.ID)
	gt.NoError(t, err).Required()
	gt.Bool(t, got.IsOnline).True()
	gt.Value(t, *got.LastSeenAt).Equal(seen)

	_, err = agents.GetByID(ctx, "nobody")
	gt.Bool(t, errors.Is(err, repository.ErrNotFound)).True()
}

func TestMessageCursorPaging(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	messages := store.Messages()

	ids := []string{}
	for i := 0; i < 5; i++ {
		msg := &domain.Message{SessionID: "s1", SenderID: "u1", SenderType: domain.SenderTypeUser, Text: fmt.Sprintf("m%d", i)}
		gt.NoError(t, messages.Create(ctx, msg)).Required()
		ids = append(ids, msg.ID)
	}
	gt.NoError(t, messages.Create(ctx, &domain.Message{SessionID: "s2", Text: "other"})).Required()

	page, hasMore, err := messages.ListAfter(ctx, "s1", nil, 2)
	gt.NoError(t, err).Required()
	gt.Bool(t, hasMore).True()
	gt.Value(t, page[0].Text).Equal("m0")
	gt.Value(t, page[1].Text).Equal("m1")

	page, hasMore, err = messages.ListAfter(ctx, "s1", &ids[2], 10)
	gt.NoError(t, err).Required()
	gt.Bool(t, hasMore).False()
	gt.Array(t, page).Length(2)
	gt.Value(t, page[0].Text).Equal("m3")

	page, hasMore, err = messages.ListAfter(ctx, "s1", &ids[4], 10)
	gt.NoError(t, err).Required()
	gt.Bool(t, hasMore).False()
	gt.Array(t, page).Length(0)

	_, _, err = messages.ListAfter(ctx, "s2", &ids[0], 10)
	gt.Bool(t, errors.Is(err, repository.ErrNotFound)).True()
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	sessions := memory.New(memory.WithClock(func() time.Time { return now })).Sessions()

	session := &domain.Session{UserID: "u1", Status: domain.SessionStatusActive}
	gt.NoError(t, sessions.Create(ctx, session)).Required()
	gt.Value(t, string(session.Metadata)).Equal("{}")

	later := now.Add(10 * time.Minute)
	gt.NoError(t, sessions.Touch(ctx, session.ID, later)).Required()

	ok, err := sessions.Close(ctx, session.ID)
	gt.NoError(t, err).Required()
	gt.Bool(t, ok).True()

	got, err := sessions.GetByID(ctx, session.ID)
	gt.NoError(t, err).Required()
	gt.Value(t, got.Status).Equal(domain.SessionStatusClosed)
	gt.Value(t, got.LastActivityAt).Equal(later)

	gt.Bool(t, errors.Is(sessions.Touch(ctx, "missing", later), repository.ErrNotFound)).True()
}

func TestResolvedTicketsRejectWrites(t *testing.T) {
	ctx := context.Background()
	tickets := memory.New().Tickets()

	ticket := &domain.Ticket{Title: "Done", Priority: domain.TicketPriorityLow, Status: domain.TicketStatusResolved}
	gt.NoError(t, tickets.Create(ctx, ticket)).Required()

	ok, err := tickets.UpdateStatus(ctx, ticket.ID, domain.TicketStatusOpen)
	gt.Error(t, err).Is(repository.ErrTicketResolved)
	gt.Bool(t, ok).False()

	ok, err = tickets.Assign(ctx, ticket.ID, "a1")
	gt.Error(t, err).Is(repository.ErrTicketResolved)
	gt.Bool(t, ok).False()

	got, err := tickets.GetByID(ctx, ticket.ID)
	gt.NoError(t, err).Required()
	gt.Value(t, got.Status).Equal(domain.TicketStatusResolved)
	gt.Value(t, got.AssignedAgentID == nil).Equal(true)
}

func TestTicketSearchTreatsWildcardsLiterally(t *testing.T) {
	ctx := context.Background()
	tickets := memory.New().Tickets()

	for _, title := range []string{"Disk at 100% usage", "Disk at 1000 usage", "snake_case field", "snakeXcase field"} {
		gt.NoError(t, tickets.Create(ctx, &domain.Ticket{Title: title, Priority: domain.TicketPriorityLow, Status: domain.TicketStatusOpen})).Required()
	}

	testCases := map[string]string{
		"100%":       "Disk at 100% usage",
		"snake_case": "snake_case field",
	}
	for search, want := range testCases {
		search := search
		items, total, err := tickets.Query(ctx, repository.TicketFilter{Search: &search, Page: 1, PageSize: 10})
		gt.NoError(t, err).Required()
		gt.Value(t, total).Equal(1)
		gt.Value(t, items[0].Title).Equal(want)
	}
}

func TestCancelledContextIsRejected(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := memory.New()

	gt.Error(t, store.Tickets().Create(ctx, &domain.Ticket{Title: "x"})).Is(context.Canceled)
	_, err := store.Tickets().UpdateStatus(ctx, "id", domain.TicketStatusOpen)
	gt.Error(t, err).Is(context.Canceled)
	gt.Error(t, store.TicketHistory().Create(ctx, &domain.TicketHistory{TicketID: "id"})).Is(context.Canceled)
	gt.Error(t, store.Agents().Create(ctx, &domain.Agent{Email: "a@b.c"})).Is(context.Canceled)
	gt.Error(t, store.Agents().TouchPresence(ctx, "id", true, time.Now())).Is(context.Canceled)
	gt.Error(t, store.Sessions().Create(ctx, &domain.Session{})).Is(context.Canceled)
	_, err = store.Sessions().Close(ctx, "id")
	gt.Error(t, err).Is(context.Canceled)
	gt.Error(t, store.Messages().Create(ctx, &domain.Message{SessionID: "s"})).Is(context.Canceled)
	gt.Error(t, store.Transactor().WithinTx(ctx, func(context.Context, repository.TicketStores) error { return nil })).Is(context.Canceled)
}

func TestWithinTxCommitsAndRollsBack(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	tx := store.Transactor()

	var id string
	gt.NoError(t, tx.WithinTx(ctx, func(ctx context.Context, stores repository.TicketStores) error {
		ticket := &domain.Ticket{Title: "Kept", Priority: domain.TicketPriorityLow, Status: domain.TicketStatusOpen}
		if err := stores.Tickets.Create(ctx, ticket); err != nil {
			return err
		}
		id = ticket.ID
		return stores.History.Create(ctx, &domain.TicketHistory{TicketID: id, Action: domain.HistoryActionCreated})
	})).Required()

	boom := errors.New("boom")
	err := tx.WithinTx(ctx, func(ctx context.Context, stores repository.TicketStores) error {
		if _, err := stores.Tickets.UpdateStatus(ctx, id, domain.TicketStatusInProgress); err != nil {
			return err
		}
		if _, err := stores.Tickets.Assign(ctx, id, "a1"); err != nil {
			return err
		}
		if err := stores.History.Create(ctx, &domain.TicketHistory{TicketID: id, Action: domain.HistoryActionAssigned}); err != nil {
			return err
		}
		if err := stores.Tickets.Create(ctx, &domain.Ticket{Title: "Dropped", Priority: domain.TicketPriorityLow}); err != nil {
			return err
		}
		return boom
	})
	gt.Error(t, err).Is(boom)

	got, err := store.Tickets().GetByID(ctx, id)
	gt.NoError(t, err).Required()
	gt.Value(t, got.Status).Equal(domain.TicketStatusOpen)
	gt.Value(t, got.AssignedAgentID == nil).Equal(true)

	history, err := store.TicketHistory().ListByTicket(ctx, id)
	gt.NoError(t, err).Required()
	gt.Array(t, history).Length(1)

	_, total, err := store.Tickets().Query(ctx, repository.TicketFilter{Page: 1, PageSize: 10})
	gt.NoError(t, err).Required()
	gt.Value(t, total).Equal(1)
}
