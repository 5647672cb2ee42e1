package middleware

import (
	"context"
	"errors"
	"log"
	"strings"

	"shopgate/internal/config"
	"shopgate/internal/services"

	"github.com/gofiber/fiber/v2"
)

// SessionCookieName is the HTTP-only cookie carrying the token in cookie transport.
const SessionCookieName = "session"

// SessionLocal is the fiber.Ctx Locals key holding the *services.Session.
const SessionLocal = "session"

// SessionValidator validates a token and returns the current session.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (*services.Session, error)
}

// TokenFromRequest extracts the session token using the deployment's transport.
// It returns "" when no credential is present or the header is malformed.
func TokenFromRequest(c *fiber.Ctx, transport string) string {
	if transport == config.TransportCookie {
		return c.Cookies(SessionCookieName)
	}

	authHeader := c.Get(fiber.HeaderAuthorization)
	// Expected format: "Bearer <token>"
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// AuthRequired is a Fiber middleware that validates the session on every request.
func AuthRequired(sessions SessionValidator, transport string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := sessions.ValidateSession(c.UserContext(), TokenFromRequest(c, transport))
		if err != nil {
			if errors.Is(err, services.ErrUnavailable) {
				log.Printf("Session validation unavailable: %v", err)
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"message": services.PublicMessage(err),
				})
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": services.PublicMessage(err),
			})
		}

		// Store the session for subsequent handlers
		c.Locals(SessionLocal, session)
		return c.Next()
	}
}

// CurrentSession returns the session stored by AuthRequired, or nil.
func CurrentSession(c *fiber.Ctx) *services.Session {
	session, _ := c.Locals(SessionLocal).(*services.Session)
	return session
}
