package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/blogkit/blog-service/pkg/util"
)

// RequireAuthenticated ensures a caller was resolved by the auth middleware.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := AccountFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}

// RequireAdmin ensures the authenticated caller has the admin role. An
// authenticated non-admin gets 403, never 401.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		account, ok := AccountFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !account.IsAdmin() {
			return apperrors.NewForbidden("admin privileges required")
		}
		return c.Next()
	}
}
