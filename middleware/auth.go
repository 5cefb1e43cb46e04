// middleware/auth.go
package middleware

import (
	"log"
	"strings"

	"session-stats-service/services"

	"github.com/gofiber/fiber/v2"
)

// AdminContextMiddleware resolves the caller's session via the auth service
// and requires the admin role. Applied to /admin routes; the ingestion
// procedure re-checks on its own as well, so a misconfigured route can never
// reach the database unauthorized.
func AdminContextMiddleware(auth services.AuthGate) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := strings.TrimPrefix(c.Get("Authorization"), "Bearer ")
		if token == "" {
			token = c.Cookies("session_token")
		}
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": services.ErrNotAuthenticated,
			})
		}

		session, err := auth.GetSession(c.UserContext(), token)
		if err != nil {
			log.Printf("❌ [ADMIN_CTX] Session lookup failed on %s: %v", c.Path(), err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": services.ErrUnknown,
			})
		}
		if session == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": services.ErrNotAuthenticated,
			})
		}
		if session.User.Role != services.RoleAdmin {
			log.Printf("🚫 [ADMIN_CTX] %s (role %q) blocked on %s", session.User.Email, session.User.Role, c.Path())
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": services.ErrNotAuthorized,
			})
		}

		c.Locals("admin_email", session.User.Email)
		return c.Next()
	}
}
