package middleware

import (
	"log"
	"strconv"
	"time"

	"shopgate/internal/ratelimit"

	"github.com/gofiber/fiber/v2"
)

// RateLimit rejects requests from a client IP once limit hits occur within window.
// Limiter failures let the request through.
func RateLimit(limiter ratelimit.Limiter, limit int, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		decision, err := limiter.Allow(c.UserContext(), c.IP(), limit, window)
		if err != nil {
			log.Printf("Rate limiter error for %s: %v", c.IP(), err)
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		if !decision.Allowed {
			seconds := int(decision.RetryAfter.Round(time.Second) / time.Second)
			if seconds < 1 {
				seconds = 1
			}
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(seconds))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"message": "Too many signin attempts, please try again later",
			})
		}
		return c.Next()
	}
}
