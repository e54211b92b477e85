package middleware // middleware provides shared request processing for handlers

import (
	"net/http" // standard HTTP status codes

	"github.com/labstack/echo/v4" // echo middleware chaining and context
)

// RequireRole returns a middleware that enforces that the authenticated
// user has one of the listed roles.  The role values correspond to the
// JWT's "role" claim, which JWTAuth must already have placed in the
// context.  Any other role is rejected with 403 Forbidden.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	// Set of allowed roles for constant-time lookups.
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get("role").(string)
			if !ok || !allowed[role] {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
