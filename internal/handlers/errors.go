package handlers

import (
	"errors"
	"log"

	"shopgate/internal/services"

	"github.com/gofiber/fiber/v2"
)

// statusFor maps a service error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrConflict),
		errors.Is(err, services.ErrBadCredentials),
		errors.Is(err, services.ErrNotFound):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrUnauthenticated):
		return fiber.StatusUnauthorized
	case errors.Is(err, services.ErrUnauthorized):
		return fiber.StatusForbidden
	case errors.Is(err, services.ErrUnavailable):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError writes err as a JSON body. Server faults are logged with the
// request id, which is also returned so support can correlate them.
func respondError(c *fiber.Ctx, op string, err error) error {
	status := statusFor(err)
	body := fiber.Map{"message": services.PublicMessage(err)}
	if status >= fiber.StatusInternalServerError {
		requestID, _ := c.Locals("requestid").(string)
		log.Printf("[%s] %s failed: %v", requestID, op, err)
		body["request_id"] = requestID
	}
	return c.Status(status).JSON(body)
}
