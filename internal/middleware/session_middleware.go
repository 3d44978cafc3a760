package middleware

import (
	"github.com/gofiber/fiber/v2"

	"katalog/internal/models"
	"katalog/internal/services"
)

// SessionCookie is the name of the cookie carrying the opaque session
// token.
const SessionCookie = "session_id"

// ResolveUser resolves the session cookie into c.Locals("user"). The
// full user record is looked up on every request so role changes take
// effect immediately. Anonymous requests pass through with no user
// set.
func ResolveUser(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(SessionCookie)
		if token != "" {
			if user, err := authService.CurrentUser(c.Context(), token); err == nil {
				c.Locals("user", user)
			}
		}
		return c.Next()
	}
}

// RequireAdmin gates the admin section. A request with no session or a
// non-admin role is redirected to the login page before any handler
// logic runs.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := c.Locals("user").(*models.User)
		if !ok || !user.IsAdmin() {
			return c.Redirect("/login", fiber.StatusSeeOther)
		}
		return c.Next()
	}
}
