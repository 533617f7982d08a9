package memory

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"

	"github.com/spec-kit/support-hub/internal/domain"
	"github.com/spec-kit/support-hub/internal/repository"
)

type sessionRepository struct {
	mu       sync.RWMutex
	now      func() time.Time
	sessions map[string]*domain.Session
}

var _ repository.SessionRepository = &sessionRepository{}

func newSessionRepository(now func() time.Time) *sessionRepository {
	return &sessionRepository{
		now:      now,
		sessions: make(map[string]*domain.Session),
	}
}

func copySession(s *domain.Session) *domain.Session {
	cp := *s
	if s.AssignedAgentID != nil {
		id := *s.AssignedAgentID
		cp.AssignedAgentID = &id
	}
	if s.Metadata != nil {
		cp.Metadata = append(json.RawMessage(nil), s.Metadata...)
	}
	return &cp
}

func (r *sessionRepository) Create(ctx context.Context, session *domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if len(session.Metadata) == 0 {
		session.Metadata = json.RawMessage(`{}`)
	}
	now := r.now()
	session.CreatedAt = now
	session.UpdatedAt = now
	session.LastActivityAt = now
	r.sessions[session.ID] = copySession(session)
	return nil
}

func (r *sessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, goerr.Wrap(repository.ErrNotFound, "session not found", goerr.V("session_id", id))
	}
	return copySession(session), nil
}

func (r *sessionRepository) Touch(ctx context.Context, id string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok {
		return goerr.Wrap(repository.ErrNotFound, "session not found", goerr.V("session_id", id))
	}
	session.LastActivityAt = at
	session.UpdatedAt = at
	return nil
}

func (r *sessionRepository) Close(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok {
		return false, nil
	}
	session.Status = domain.SessionStatusClosed
	session.UpdatedAt = r.now()
	return true, nil
}
