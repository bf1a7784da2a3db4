package middleware

import (
	"strings"

	"workshop-backend/config"
	"workshop-backend/internal/auth"

	"github.com/gofiber/fiber/v2"
)

// Protected middleware
func Protected(cfg *config.AuthConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing authorization header",
			})
		}

		// Handle both cases: with and without "Bearer " prefix
		token := authHeader
		if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
			token = authHeader[7:]
		}

		claims, err := auth.ValidateToken(token, cfg)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token",
			})
		}

		c.Locals("user", claims)
		return c.Next()
	}
}

// RequireTrainer rejects callers whose token does not carry the trainer role.
// Must run after Protected.
func RequireTrainer() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals("user").(*auth.Claims)
		if !ok || !claims.IsTrainer() {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Trainer access required",
			})
		}
		return c.Next()
	}
}
