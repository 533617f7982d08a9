package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"

	"github.com/spec-kit/support-hub/internal/domain"
)

// DBTX is the query surface shared by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TicketWriter is the ticket mutation surface available inside a transaction.
type TicketWriter interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) (bool, error)
	Assign(ctx context.Context, id, agentID string) (bool, error)
}

// HistoryWriter appends audit entries inside a transaction.
type HistoryWriter interface {
	Create(ctx context.Context, history *domain.TicketHistory) error
}

// TicketStores are bound to one transaction.
type TicketStores struct {
	Tickets TicketWriter
	History HistoryWriter
}

// TicketTransactor runs fn in a single transaction. Nothing fn wrote is kept
// when it returns an error or when ctx ends before commit.
type TicketTransactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, stores TicketStores) error) error
}

type pgTransactor struct {
	pool *pgxpool.Pool
}

// NewTicketTransactor builds a transactor over pool.
func NewTicketTransactor(pool *pgxpool.Pool) TicketTransactor {
	return &pgTransactor{pool: pool}
}

func (t *pgTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context, stores TicketStores) error) error {
	tx, err := t.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction")
	}
	// no-op once committed
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	stores := TicketStores{
		Tickets: &ticketRepository{db: tx},
		History: &ticketHistoryRepository{db: tx},
	}
	if err := fn(ctx, stores); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return goerr.Wrap(err, "failed to commit transaction")
	}
	return nil
}
