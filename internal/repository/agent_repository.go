package repository

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"

	"github.com/spec-kit/support-hub/internal/domain"
)

// AgentRepository handles persistence for support agents.
type AgentRepository interface {
	Create(ctx context.Context, agent *domain.Agent) error
	ExistsByID(ctx context.Context, id string) (bool, error)
	GetByID(ctx context.Context, id string) (*domain.Agent, error)
	GetByEmail(ctx context.Context, email string) (*domain.Agent, error)
	List(ctx context.Context) ([]domain.Agent, error)
	TouchPresence(ctx context.Context, id string, online bool, at time.Time) error
}

type agentRepository struct {
	pool *pgxpool.Pool
}

// NewAgentRepository instantiates the repository.
func NewAgentRepository(pool *pgxpool.Pool) AgentRepository {
	return &agentRepository{pool: pool}
}

const agentColumns = `id, name, email, password_hash, is_online, last_seen_at, created_at`

func (r *agentRepository) Create(ctx context.Context, agent *domain.Agent) error {
	const query = `
        INSERT INTO agents (name, email, password_hash)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query,
		agent.Name,
		strings.ToLower(strings.TrimSpace(agent.Email)),
		agent.PasswordHash,
	).Scan(&agent.ID, &agent.CreatedAt)
	if err != nil {
		return goerr.Wrap(err, "failed to insert agent", goerr.V("email", agent.Email))
	}
	return nil
}

func (r *agentRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM agents WHERE id=$1)`, id).Scan(&exists); err != nil {
		return false, goerr.Wrap(err, "failed to check agent", goerr.V("agent_id", id))
	}
	return exists, nil
}

func (r *agentRepository) GetByID(ctx context.Context, id string) (*domain.Agent, error) {
	agent, err := scanAgent(r.pool.QueryRow(ctx, `SELECT `+agentColumns+` FROM agents WHERE id=$1`, id))
	if err != nil {
		return nil, goerr.Wrap(notFoundOr(err), "failed to get agent", goerr.V("agent_id", id))
	}
	return agent, nil
}

func (r *agentRepository) GetByEmail(ctx context.Context, email string) (*domain.Agent, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	agent, err := scanAgent(r.pool.QueryRow(ctx, `SELECT `+agentColumns+` FROM agents WHERE email=$1`, normalized))
	if err != nil {
		return nil, goerr.Wrap(notFoundOr(err), "failed to get agent by email", goerr.V("email", normalized))
	}
	return agent, nil
}

func (r *agentRepository) List(ctx context.Context) ([]domain.Agent, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+agentColumns+` FROM agents ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list agents")
	}
	defer rows.Close()

	result := []domain.Agent{}
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan agent")
		}
		result = append(result, *agent)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate agents")
	}
	return result, nil
}

func (r *agentRepository) TouchPresence(ctx context.Context, id string, online bool, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE agents SET is_online=$1, last_seen_at=$2 WHERE id=$3`, online, at, id)
	if err != nil {
		return goerr.Wrap(err, "failed to update agent presence", goerr.V("agent_id", id))
	}
	return nil
}

func scanAgent(row pgx.Row) (*domain.Agent, error) {
	var agent domain.Agent
	if err := row.Scan(
		&agent.ID,
		&agent.Name,
		&agent.Email,
		&agent.PasswordHash,
		&agent.IsOnline,
		&agent.LastSeenAt,
		&agent.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &agent, nil
}
