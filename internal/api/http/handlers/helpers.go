package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-hub/internal/auth"
	"github.com/spec-kit/support-hub/internal/domain"
	apperrors "github.com/spec-kit/support-hub/pkg/util"
)

func requireIdentity(c *fiber.Ctx) (domain.Identity, error) {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return domain.Identity{}, apperrors.NewUnauthorized("agent required")
	}
	return identity, nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}

// queryInt returns def when the parameter is absent and 0 when it is not a
// number, so that range validation reports it.
func queryInt(c *fiber.Ctx, key string, def int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return parsed
}

func queryString(c *fiber.Ctx, key string) *string {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	return &raw
}
