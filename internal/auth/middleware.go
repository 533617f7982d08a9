package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-hub/internal/domain"
	apperrors "github.com/spec-kit/support-hub/pkg/util"
)

const (
	// IdentityLocalsKey stores the resolved agent in fiber locals. WebSocket
	// connections inherit it from the upgrade request.
	IdentityLocalsKey = "auth_identity"

	// AccessTokenQuery carries the token on WebSocket upgrades, where
	// browsers cannot set headers.
	AccessTokenQuery = "access_token"
)

// AuthMiddleware validates bearer tokens and stores the caller identity.
type AuthMiddleware struct {
	resolver *IdentityResolver
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(resolver *IdentityResolver) *AuthMiddleware {
	return &AuthMiddleware{resolver: resolver}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	token, err := bearerToken(c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return err
	}
	return m.resolve(c, token)
}

// HandleUpgrade accepts either a bearer header or the access_token query.
func (m *AuthMiddleware) HandleUpgrade(c *fiber.Ctx) error {
	if header := c.Get(fiber.HeaderAuthorization); header != "" {
		return m.Handle(c)
	}
	return m.resolve(c, c.Query(AccessTokenQuery))
}

func (m *AuthMiddleware) resolve(c *fiber.Ctx, token string) error {
	identity, err := m.resolver.Resolve(c.UserContext(), token)
	if err != nil {
		return err
	}
	c.Locals(IdentityLocalsKey, identity)
	return c.Next()
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", apperrors.NewUnauthorized("missing authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", apperrors.NewUnauthorized("invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}

// IdentityFromContext retrieves the authenticated agent.
func IdentityFromContext(c *fiber.Ctx) (domain.Identity, bool) {
	return IdentityFromLocals(c.Locals(IdentityLocalsKey))
}

// IdentityFromLocals converts a stored locals value back into an identity.
func IdentityFromLocals(value any) (domain.Identity, bool) {
	identity, ok := value.(domain.Identity)
	if !ok || identity.IsZero() {
		return domain.Identity{}, false
	}
	return identity, true
}
