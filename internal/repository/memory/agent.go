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

type agentRepository struct {
	mu     sync.RWMutex
	now    func() time.Time
	agents map[string]*domain.Agent
}

var _ repository.AgentRepository = &agentRepository{}

func newAgentRepository(now func() time.Time) *agentRepository {
	return &agentRepository{
		now:    now,
		agents: make(map[string]*domain.Agent),
	}
}

func copyAgent(a *domain.Agent) *domain.Agent {
	cp := *a
	if a.LastSeenAt != nil {
		seen := *a.LastSeenAt
		cp.LastSeenAt = &seen
	}
	return &cp
}

func (r *agentRepository) Create(ctx context.Context, agent *domain.Agent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	agent.Email = strings.ToLower(strings.TrimSpace(agent.Email))
	for _, existing := range r.agents {
		if existing.Email == agent.Email {
			return goerr.New("agent email already registered", goerr.V("email", agent.Email))
		}
	}
	if agent.ID == "" {
		agent.ID = uuid.NewString()
	}
	if agent.CreatedAt.IsZero() {
		agent.CreatedAt = r.now()
	}
	r.agents[agent.ID] = copyAgent(agent)
	return nil
}

func (r *agentRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.agents[id]
	return ok, nil
}

func (r *agentRepository) GetByID(ctx context.Context, id string) (*domain.Agent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	agent, ok := r.agents[id]
	if !ok {
		return nil, goerr.Wrap(repository.ErrNotFound, "agent not found", goerr.V("agent_id", id))
	}
	return copyAgent(agent), nil
}

func (r *agentRepository) GetByEmail(ctx context.Context, email string) (*domain.Agent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	normalized := strings.ToLower(strings.TrimSpace(email))
	for _, agent := range r.agents {
		if agent.Email == normalized {
			return copyAgent(agent), nil
		}
	}
	return nil, goerr.Wrap(repository.ErrNotFound, "agent not found", goerr.V("email", normalized))
}

func (r *agentRepository) List(ctx context.Context) ([]domain.Agent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Agent, 0, len(r.agents))
	for _, agent := range r.agents {
		out = append(out, *copyAgent(agent))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *agentRepository) TouchPresence(ctx context.Context, id string, online bool, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	agent, ok := r.agents[id]
	if !ok {
		return nil
	}
	seen := at
	agent.IsOnline = online
	agent.LastSeenAt = &seen
	return nil
}
