// middleware/auth.go
package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// UserContextMiddleware extracts user identity and roles set by Gateway.
// It is applied only to routes under /s/ or /s/admin/ — but for safety, we guard.
func UserContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Get("X-User-ID")
		username := c.Get("X-Username")
		telegramID := c.Get("X-Telegram-ID")
		rolesStr := c.Get("X-User-Roles")

		// 🔐 Enforce user context on *secured* paths (i.e., /s/ or /s/admin/)
		path := c.Path()
		isSecured := strings.HasPrefix(path, "/s/") || strings.HasPrefix(path, "/s/admin/")
		if isSecured && userID == "" {
			log.Printf("❌ [USER_CTX] X-User-ID required but missing on secured route: %s", path)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-ID — request must come through gateway with auth context",
			})
		}

		var roles []string
		if rolesStr != "" {
			for _, r := range strings.Split(rolesStr, ",") {
				r = strings.TrimSpace(r)
				if r != "" {
					roles = append(roles, r)
				}
			}
		}

		// Attach to ctx for handlers
		c.Locals("user_id", userID)
		c.Locals("username", username)
		c.Locals("telegram_id", telegramID)
		c.Locals("user_roles", roles)

		return c.Next()
	}
}

// RequireRole guards admin routes. Roles come from the Gateway-set
// X-User-Roles header, never from the request body.
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		roles, _ := c.Locals("user_roles").([]string)
		for _, r := range roles {
			if r == role {
				return c.Next()
			}
		}
		log.Printf("🚫 [USER_CTX] user %v missing role %q on %s", c.Locals("user_id"), role, c.Path())
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "insufficient permissions",
		})
	}
}
