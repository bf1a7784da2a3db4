package handlers

import (
	"errors"

	"workshop-backend/internal/session"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// sessionError writes the response for an error returned by the session
// package. Anything that is not a session error becomes a 500 with the
// fallback message.
func sessionError(c *fiber.Ctx, err error, fallback string) error {
	var se *session.Error
	if !errors.As(err, &se) {
		log.Error().Err(err).Str("path", c.Path()).Msg(fallback)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fallback,
		})
	}

	status := fiber.StatusInternalServerError
	switch se.Kind {
	case session.KindNotFound:
		status = fiber.StatusNotFound
	case session.KindForbidden:
		status = fiber.StatusForbidden
	case session.KindInvalid:
		status = fiber.StatusBadRequest
	case session.KindUpstreamUnavailable:
		status = fiber.StatusBadGateway
	}

	body := fiber.Map{"error": se.Message}
	if se.Reason != "" {
		body["reason"] = se.Reason
	}
	return c.Status(status).JSON(body)
}
