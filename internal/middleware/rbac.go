package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-innovation-api/internal/utils"
)

// RequireRole lets the request through when any bound role is in the allow list.
// Admins always pass.
func RequireRole(roles ...string) fiber.Handler {
	allowed := map[string]struct{}{"admin": {}}
	for _, role := range roles {
		if role = strings.ToLower(strings.TrimSpace(role)); role != "" {
			allowed[role] = struct{}{}
		}
	}

	return func(c *fiber.Ctx) error {
		for _, role := range RolesFromContext(c) {
			if _, ok := allowed[role]; ok {
				return c.Next()
			}
		}
		return utils.SendErrorCode(c, fiber.StatusForbidden, "forbidden", "insufficient permissions")
	}
}

// RolesFromContext returns the roles bound by JWTProtected, lowercased. A lone
// "user_role" string is accepted for callers that only set the primary role.
func RolesFromContext(c *fiber.Ctx) []string {
	var raw []string
	switch {
	case len(stringsLocal(c, "user_roles")) > 0:
		raw = stringsLocal(c, "user_roles")
	default:
		if role, ok := c.Locals("user_role").(string); ok {
			raw = []string{role}
		}
	}

	out := make([]string, 0, len(raw))
	for _, role := range raw {
		if role = strings.ToLower(strings.TrimSpace(role)); role != "" {
			out = append(out, role)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func stringsLocal(c *fiber.Ctx, key string) []string {
	values, _ := c.Locals(key).([]string)
	return values
}
