package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"

	"github.com/spec-kit/support-hub/internal/domain"
)

// SessionRepository persists chat sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	Touch(ctx context.Context, id string, at time.Time) error
	Close(ctx context.Context, id string) (bool, error)
}

type sessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository builds repository.
func NewSessionRepository(pool *pgxpool.Pool) SessionRepository {
	return &sessionRepository{pool: pool}
}

func (r *sessionRepository) Create(ctx context.Context, session *domain.Session) error {
	const query = `
        INSERT INTO sessions (user_id, assigned_agent_id, status, metadata)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at, last_activity_at`
	metadata := session.Metadata
	if len(metadata) == 0 {
		metadata = json.RawMessage(`{}`)
	}
	err := r.pool.QueryRow(ctx, query,
		session.UserID,
		session.AssignedAgentID,
		session.Status,
		metadata,
	).Scan(&session.ID, &session.CreatedAt, &session.UpdatedAt, &session.LastActivityAt)
	if err != nil {
		return goerr.Wrap(err, "failed to insert session", goerr.V("user_id", session.UserID))
	}
	session.Metadata = metadata
	return nil
}

func (r *sessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	const query = `
        SELECT id, user_id, assigned_agent_id, status, metadata, created_at, updated_at, last_activity_at
        FROM sessions WHERE id=$1`
	var session domain.Session
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&session.ID,
		&session.UserID,
		&session.AssignedAgentID,
		&session.Status,
		&session.Metadata,
		&session.CreatedAt,
		&session.UpdatedAt,
		&session.LastActivityAt,
	)
	if err != nil {
		return nil, goerr.Wrap(notFoundOr(err), "failed to get session", goerr.V("session_id", id))
	}
	return &session, nil
}

func (r *sessionRepository) Touch(ctx context.Context, id string, at time.Time) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE sessions SET last_activity_at=$1, updated_at=$1 WHERE id=$2`, at, id)
	if err != nil {
		return goerr.Wrap(err, "failed to touch session", goerr.V("session_id", id))
	}
	if cmd.RowsAffected() == 0 {
		return goerr.Wrap(ErrNotFound, "session not found", goerr.V("session_id", id))
	}
	return nil
}

func (r *sessionRepository) Close(ctx context.Context, id string) (bool, error) {
	cmd, err := r.pool.Exec(ctx, `UPDATE sessions SET status=$1, updated_at=NOW() WHERE id=$2`, domain.SessionStatusClosed, id)
	if err != nil {
		return false, goerr.Wrap(err, "failed to close session", goerr.V("session_id", id))
	}
	return cmd.RowsAffected() > 0, nil
}

