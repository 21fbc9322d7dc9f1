package auth

import (
	"slices"
	"strings"

	"github.com/gofiber/fiber/v2"

	"formcraft/internal/config"
	"formcraft/internal/engine"
)

// User is the authenticated caller stored in the request locals.
type User struct {
	Subject string
	Roles   []string
}

func (u *User) HasRole(role string) bool {
	return slices.Contains(u.Roles, role)
}

// Middleware validates bearer tokens and sets the User on the request. When
// auth is disabled every request passes through untouched.
func Middleware(cfg config.AuthConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !cfg.Enabled {
			return c.Next()
		}

		header := c.Get("Authorization")
		if header == "" {
			return engine.UnauthorizedError("Missing auth token")
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return engine.UnauthorizedError("Invalid auth header format")
		}

		claims, err := ParseAccessToken(parts[1], cfg.JWTSecret)
		if err != nil {
			return engine.UnauthorizedError("Invalid or expired token")
		}
		user := &User{Subject: claims.Subject, Roles: claims.Roles}
		if !user.HasRole(RoleEditor) {
			return engine.ForbiddenError("Editor access required")
		}

		c.Locals("user", user)
		return c.Next()
	}
}

// GetUser extracts the User from a Fiber context. It is nil when auth is
// disabled.
func GetUser(c *fiber.Ctx) *User {
	user, _ := c.Locals("user").(*User)
	return user
}
