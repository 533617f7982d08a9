package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"

	"github.com/spec-kit/support-hub/internal/domain"
)

// TicketFilter captures list and search parameters. Page is 1-based.
type TicketFilter struct {
	Status   *domain.TicketStatus
	Priority *domain.TicketPriority
	Search   *string
	Page     int
	PageSize int
}

// Offset returns the row offset for the filter's page.
func (f TicketFilter) Offset() int {
	if f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit()
}

// Limit returns the page size, defaulting to 20.
func (f TicketFilter) Limit() int {
	if f.PageSize <= 0 {
		return 20
	}
	return f.PageSize
}

// TicketRepository encapsulates ticket persistence. UpdateStatus and Assign
// report false for a missing ticket and ErrTicketResolved for a resolved one.
type TicketRepository interface {
	TicketWriter
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	Query(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int, error)
}

type ticketRepository struct {
	db DBTX
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{db: pool}
}

const ticketColumns = `id, title, description, priority, status, assigned_agent_id, sla_due_at, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (title, description, priority, status, assigned_agent_id, sla_due_at, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,COALESCE($7, NOW()),COALESCE($8, NOW()))
        RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Priority,
		ticket.Status,
		ticket.AssignedAgentID,
		ticket.SLADueAt,
		nullTime(ticket.CreatedAt),
		nullTime(ticket.UpdatedAt),
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
	if err != nil {
		return goerr.Wrap(err, "failed to insert ticket", goerr.V("title", ticket.Title))
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	ticket, err := scanTicket(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, goerr.Wrap(notFoundOr(err), "failed to get ticket", goerr.V("ticket_id", id))
	}
	return ticket, nil
}

func (r *ticketRepository) Query(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		clauses = append(clauses, fmt.Sprintf("priority=$%d", len(args)))
	}
	if filter.Search != nil && strings.TrimSpace(*filter.Search) != "" {
		search := "%" + escapeLike(strings.ToLower(strings.TrimSpace(*filter.Search))) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(`(LOWER(title) LIKE %s ESCAPE '\' OR LOWER(description) LIKE %s ESCAPE '\')`, placeholder, placeholder))
	}
	where := strings.Join(clauses, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM tickets WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, goerr.Wrap(err, "failed to count tickets")
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d`,
		ticketColumns, where, filter.Limit(), filter.Offset())
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, goerr.Wrap(err, "failed to query tickets")
	}
	defer rows.Close()

	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, 0, goerr.Wrap(err, "failed to scan ticket")
		}
		result = append(result, *ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, goerr.Wrap(err, "failed to iterate tickets")
	}
	return result, total, nil
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) (bool, error) {
	cmd, err := r.db.Exec(ctx,
		`UPDATE tickets SET status=$1, updated_at=NOW() WHERE id=$2 AND status <> $3`,
		status, id, domain.TicketStatusResolved)
	if err != nil {
		return false, goerr.Wrap(err, "failed to update ticket status", goerr.V("ticket_id", id))
	}
	if cmd.RowsAffected() > 0 {
		return true, nil
	}
	return false, r.missOrResolved(ctx, id)
}

func (r *ticketRepository) Assign(ctx context.Context, id, agentID string) (bool, error) {
	cmd, err := r.db.Exec(ctx,
		`UPDATE tickets SET assigned_agent_id=$1, updated_at=NOW() WHERE id=$2 AND status <> $3`,
		agentID, id, domain.TicketStatusResolved)
	if err != nil {
		return false, goerr.Wrap(err, "failed to assign ticket", goerr.V("ticket_id", id), goerr.V("agent_id", agentID))
	}
	if cmd.RowsAffected() > 0 {
		return true, nil
	}
	return false, r.missOrResolved(ctx, id)
}

// missOrResolved tells a missing row (nil) from one the status guard skipped.
func (r *ticketRepository) missOrResolved(ctx context.Context, id string) error {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tickets WHERE id=$1)`, id).Scan(&exists); err != nil {
		return goerr.Wrap(err, "failed to check ticket", goerr.V("ticket_id", id))
	}
	if exists {
		return goerr.Wrap(ErrTicketResolved, "ticket write skipped", goerr.V("ticket_id", id))
	}
	return nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Priority,
		&ticket.Status,
		&ticket.AssignedAgentID,
		&ticket.SLADueAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern using ESCAPE '\'.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
