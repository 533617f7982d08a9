package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/m-mizutani/gt"

	"github.com/spec-kit/support-hub/internal/auth"
	"github.com/spec-kit/support-hub/internal/domain"
	"github.com/spec-kit/support-hub/internal/repository/memory"
	apperrors "github.com/spec-kit/support-hub/pkg/util"
)

func setup(t *testing.T) (*auth.TokenManager, *auth.IdentityResolver, *domain.Agent) {
	t.Helper()
	store := memory.New()
	agent := &domain.Agent{Name: "Ada", Email: "ada@example.com"}
	gt.NoError(t, store.Agents().Create(context.Background(), agent)).Required()

	tokens := auth.NewTokenManager("test-secret", 5)
	return tokens, auth.NewIdentityResolver(tokens, store.Agents()), agent
}

func TestResolveValidToken(t *testing.T) {
	tokens, resolver, agent := setup(t)

	token, _, err := tokens.GenerateToken(agent)
	gt.NoError(t, err).Required()

	identity, err := resolver.Resolve(context.Background(), token)
	gt.NoError(t, err).Required()
	gt.Value(t, identity).Equal(domain.Identity{AgentID: agent.ID, AgentName: "Ada"})
}

func TestResolveRejects(t *testing.T) {
	tokens, resolver, _ := setup(t)
	other := auth.NewTokenManager("other-secret", 5)
	ghost := &domain.Agent{ID: "6f1f5d1e-3c1a-4c55-9a2e-1f1f0e3b7a10", Name: "Ghost"}

	forged, _, err := other.GenerateToken(ghost)
	gt.NoError(t, err).Required()
	orphan, _, err := tokens.GenerateToken(ghost)
	gt.NoError(t, err).Required()

	for name, token := range map[string]string{"empty": "", "garbage": "abc.def", "wrong secret": forged, "unknown agent": orphan} {
		t.Run(name, func(t *testing.T) {
			_, err := resolver.Resolve(context.Background(), token)
			gt.Value(t, apperrors.ToDomainError(err).Code).Equal(apperrors.CodeUnauthorized)
		})
	}
}

func TestMiddleware(t *testing.T) {
	tokens, resolver, agent := setup(t)
	token, _, err := tokens.GenerateToken(agent)
	gt.NoError(t, err).Required()

	mw := auth.NewAuthMiddleware(resolver)
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
		},
	})
	whoami := func(c *fiber.Ctx) error {
		identity, ok := auth.IdentityFromContext(c)
		if !ok {
			return c.SendStatus(http.StatusTeapot)
		}
		return c.SendString(identity.AgentName)
	}
	app.Get("/me", mw.Handle, whoami)
	app.Get("/hub", mw.HandleUpgrade, whoami)

	testCases := map[string]struct {
		path   string
		header string
		status int
	}{
		"bearer header":     {path: "/me", header: "Bearer " + token, status: http.StatusOK},
		"lowercase scheme":  {path: "/me", header: "bearer " + token, status: http.StatusOK},
		"missing header":    {path: "/me", status: http.StatusUnauthorized},
		"wrong scheme":      {path: "/me", header: "Basic " + token, status: http.StatusUnauthorized},
		"query on api":      {path: "/me?access_token=" + token, status: http.StatusUnauthorized},
		"query on upgrade":  {path: "/hub?access_token=" + token, status: http.StatusOK},
		"header on upgrade": {path: "/hub", header: "Bearer " + token, status: http.StatusOK},
		"nothing on hub":    {path: "/hub", status: http.StatusUnauthorized},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			gt.NoError(t, err).Required()
			gt.Value(t, resp.StatusCode).Equal(tc.status)
		})
	}
}

func TestPasswordHasher(t *testing.T) {
	hasher := auth.NewPasswordHasher(4)
	hashed, err := hasher.Hash("correct horse")
	gt.NoError(t, err).Required()

	gt.Bool(t, hasher.Matches(hashed, "correct horse")).True()
	gt.Bool(t, hasher.Matches(hashed, "battery staple")).False()
}
