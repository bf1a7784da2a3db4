package handlers

import (
	"workshop-backend/config"
	"workshop-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// Handlers groups everything mounted under the API prefix.
type Handlers struct {
	Auth      *AuthHandler
	Users     *UsersHandler
	Workshops *WorkshopHandler
	Video     *VideoHandler
	Health    *HealthHandler
}

// RegisterRoutes mounts all routes on app.
func RegisterRoutes(app *fiber.App, h Handlers, authCfg *config.AuthConfig) {
	app.Get("/health", h.Health.Health)
	app.Get("/ready", h.Health.Ready)

	protected := middleware.Protected(authCfg)
	api := app.Group("/api/v1")

	api.Post("/auth/register", h.Auth.Register)
	api.Post("/auth/login", h.Auth.Login)

	api.Get("/users/me", protected, h.Users.GetMe)

	workshops := api.Group("/workshops")
	workshops.Get("/", h.Workshops.ListWorkshops)
	workshops.Post("/", protected, middleware.RequireTrainer(), h.Workshops.CreateWorkshop)
	workshops.Get("/:id", h.Workshops.GetWorkshop)
	workshops.Patch("/:id", protected, h.Workshops.UpdateWorkshop)
	workshops.Delete("/:id", protected, h.Workshops.DeleteWorkshop)
	workshops.Get("/:id/participants", protected, h.Workshops.ListParticipants)

	videoGroup := api.Group("/video")
	videoGroup.Post("/webhooks/daily", h.Video.Webhook)
	videoGroup.Post("/workshops/:id/join", protected, h.Video.Join)
	videoGroup.Get("/workshops/:id/rules", protected, h.Video.GetRules)
	videoGroup.Put("/workshops/:id/rules", protected, h.Video.UpdateRules)
	videoGroup.Post("/workshops/:id/host-action", protected, h.Video.HostAction)
}
