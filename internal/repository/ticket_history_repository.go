package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"

	"github.com/spec-kit/support-hub/internal/domain"
)

// TicketHistoryRepository stores audit entries.
type TicketHistoryRepository interface {
	HistoryWriter
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistory, error)
}

type ticketHistoryRepository struct {
	db DBTX
}

// NewTicketHistoryRepository builds repository.
func NewTicketHistoryRepository(pool *pgxpool.Pool) TicketHistoryRepository {
	return &ticketHistoryRepository{db: pool}
}

func (r *ticketHistoryRepository) Create(ctx context.Context, history *domain.TicketHistory) error {
	const query = `
        INSERT INTO ticket_history (ticket_id, action, details, agent_name, created_at)
        VALUES ($1,$2,$3,$4,COALESCE($5, NOW()))
        RETURNING id, created_at`
	err := r.db.QueryRow(ctx, query,
		history.TicketID,
		history.Action,
		history.Details,
		history.AgentName,
		nullTime(history.CreatedAt),
	).Scan(&history.ID, &history.CreatedAt)
	if err != nil {
		return goerr.Wrap(err, "failed to insert ticket history", goerr.V("ticket_id", history.TicketID))
	}
	return nil
}

func (r *ticketHistoryRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistory, error) {
	const query = `
        SELECT id, ticket_id, action, details, agent_name, created_at
        FROM ticket_history WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list ticket history", goerr.V("ticket_id", ticketID))
	}
	defer rows.Close()

	result := []domain.TicketHistory{}
	for rows.Next() {
		var history domain.TicketHistory
		if err := rows.Scan(
			&history.ID,
			&history.TicketID,
			&history.Action,
			&history.Details,
			&history.AgentName,
			&history.CreatedAt,
		); err != nil {
			return nil, goerr.Wrap(err, "failed to scan ticket history")
		}
		result = append(result, history)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate ticket history")
	}
	return result, nil
}
