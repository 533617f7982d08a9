package auth

import (
	"context"
	"errors"

	"github.com/spec-kit/support-hub/internal/domain"
	"github.com/spec-kit/support-hub/internal/repository"
	apperrors "github.com/spec-kit/support-hub/pkg/util"
)

// AgentFinder loads the agent named by a token.
type AgentFinder interface {
	GetByID(ctx context.Context, id string) (*domain.Agent, error)
}

// IdentityResolver turns an access token into the calling agent's identity.
type IdentityResolver struct {
	tokens *TokenManager
	agents AgentFinder
}

// NewIdentityResolver builds a resolver.
func NewIdentityResolver(tokens *TokenManager, agents AgentFinder) *IdentityResolver {
	return &IdentityResolver{tokens: tokens, agents: agents}
}

// Resolve validates the token and confirms the agent still exists. The
// display name comes from the store, not from the token.
func (r *IdentityResolver) Resolve(ctx context.Context, token string) (domain.Identity, error) {
	if token == "" {
		return domain.Identity{}, apperrors.NewUnauthorized("missing access token")
	}
	claims, err := r.tokens.ParseToken(token)
	if err != nil {
		return domain.Identity{}, apperrors.NewUnauthorized("invalid token")
	}

	agent, err := r.agents.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Identity{}, apperrors.NewUnauthorized("agent not found")
		}
		return domain.Identity{}, apperrors.MapError(err)
	}
	return domain.Identity{AgentID: agent.ID, AgentName: agent.Name}, nil
}
