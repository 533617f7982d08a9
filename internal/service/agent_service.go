package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-hub/internal/auth"
	"github.com/spec-kit/support-hub/internal/config"
	"github.com/spec-kit/support-hub/internal/domain"
	"github.com/spec-kit/support-hub/internal/repository"
	apperrors "github.com/spec-kit/support-hub/pkg/util"
)

// OnlineAgents reports the agents with at least one live hub connection.
type OnlineAgents interface {
	OnlineAgents() []string
}

// AgentStatus is an agent with its computed availability.
type AgentStatus struct {
	Agent  domain.Agent
	Online bool
}

// AgentService coordinates agent login, listing and presence.
type AgentService struct {
	agents    repository.AgentRepository
	tokens    *auth.TokenManager
	passwords *auth.PasswordHasher
	presence  OnlineAgents
	threshold time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

// AgentDependencies encapsulates collaborators for agent service.
type AgentDependencies struct {
	AgentRepo repository.AgentRepository
	Tokens    *auth.TokenManager
	Passwords *auth.PasswordHasher
	Presence  OnlineAgents
	Clock     func() time.Time
	Logger    *zap.Logger
}

// NewAgentService builds the service.
func NewAgentService(cfg config.PresenceConfig, deps AgentDependencies) *AgentService {
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AgentService{
		agents:    deps.AgentRepo,
		tokens:    deps.Tokens,
		passwords: deps.Passwords,
		presence:  deps.Presence,
		threshold: cfg.OnlineThreshold(),
		now:       now,
		logger:    logger,
	}
}

// Login verifies credentials and issues an access token. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *AgentService) Login(ctx context.Context, email, password string) (*domain.Agent, string, time.Time, error) {
	agent, err := s.agents.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, err
	}
	if !s.passwords.Matches(agent.PasswordHash, password) {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := s.tokens.GenerateToken(agent)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return agent, token, expiresAt, nil
}

// EnsureAgent creates the agent unless one with the same email exists.
func (s *AgentService) EnsureAgent(ctx context.Context, name, email, password string) (*domain.Agent, error) {
	existing, err := s.agents.GetByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, err
	}
	agent := &domain.Agent{Name: name, Email: email, PasswordHash: hash}
	if err := s.agents.Create(ctx, agent); err != nil {
		return nil, err
	}
	s.logger.Info("seeded agent", zap.String("agent_id", agent.ID), zap.String("email", agent.Email))
	return agent, nil
}

// GetAgent returns one agent with its availability.
func (s *AgentService) GetAgent(ctx context.Context, id string) (*AgentStatus, error) {
	if err := requireID("agent", id); err != nil {
		return nil, err
	}
	agent, err := s.agents.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, "agent", id)
	}
	online := s.onlineSet()
	return &AgentStatus{Agent: *agent, Online: s.isOnline(agent, online)}, nil
}

// ListAgents returns every agent with its availability.
func (s *AgentService) ListAgents(ctx context.Context) ([]AgentStatus, error) {
	agents, err := s.agents.List(ctx)
	if err != nil {
		return nil, err
	}
	online := s.onlineSet()
	out := make([]AgentStatus, 0, len(agents))
	for i := range agents {
		out = append(out, AgentStatus{Agent: agents[i], Online: s.isOnline(&agents[i], online)})
	}
	return out, nil
}

// MarkOnline records that the agent opened a hub connection.
func (s *AgentService) MarkOnline(ctx context.Context, agentID string) {
	if err := s.agents.TouchPresence(ctx, agentID, true, s.now().UTC()); err != nil {
		s.logger.Warn("failed to mark agent online", zap.String("agent_id", agentID), zap.Error(err))
	}
}

// MarkOffline records that the agent closed a hub connection. Agents with
// another live connection stay online.
func (s *AgentService) MarkOffline(ctx context.Context, agentID string) {
	online := s.presence != nil && s.onlineSet()[agentID]
	if err := s.agents.TouchPresence(ctx, agentID, online, s.now().UTC()); err != nil {
		s.logger.Warn("failed to mark agent offline", zap.String("agent_id", agentID), zap.Error(err))
	}
}

func (s *AgentService) onlineSet() map[string]bool {
	set := map[string]bool{}
	if s.presence == nil {
		return set
	}
	for _, id := range s.presence.OnlineAgents() {
		set[id] = true
	}
	return set
}

// isOnline trusts a live connection on this instance first and falls back to
// the stored heartbeat for agents connected elsewhere.
func (s *AgentService) isOnline(agent *domain.Agent, live map[string]bool) bool {
	if live[agent.ID] {
		return true
	}
	return agent.OnlineAt(s.now(), s.threshold)
}
