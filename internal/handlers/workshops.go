package handlers

import (
	"strings"
	"time"

	"workshop-backend/internal/auth"
	"workshop-backend/internal/models"
	"workshop-backend/internal/repository"
	"workshop-backend/internal/session"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

type WorkshopHandler struct {
	workshopRepo    *repository.WorkshopRepository
	participantRepo *repository.ParticipantRepository
	rooms           *session.RoomProvisioner
	now             func() time.Time
}

func NewWorkshopHandler(workshopRepo *repository.WorkshopRepository, participantRepo *repository.ParticipantRepository, rooms *session.RoomProvisioner) *WorkshopHandler {
	return &WorkshopHandler{
		workshopRepo:    workshopRepo,
		participantRepo: participantRepo,
		rooms:           rooms,
		now:             time.Now,
	}
}

func validateWorkshop(w *models.Workshop) string {
	switch {
	case strings.TrimSpace(w.Title) == "":
		return "title is required"
	case w.StartTime.IsZero():
		return "startTime is required"
	case w.DurationMinutes <= 0:
		return "durationMinutes must be positive"
	case w.MaxParticipants <= 0:
		return "maxParticipants must be positive"
	case w.PriceCents < 0:
		return "priceCents must not be negative"
	}
	return ""
}

// loadOwned fetches a workshop and checks the caller created it. On failure
// the response is already written and the returned workshop is nil.
func (h *WorkshopHandler) loadOwned(c *fiber.Ctx) (*models.Workshop, error) {
	workshop, err := h.workshopRepo.GetWorkshop(c.UserContext(), c.Params("id"))
	if err != nil {
		log.Error().Err(err).Msg("Failed to load workshop")
		return nil, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load workshop",
		})
	}
	if workshop == nil {
		return nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Workshop not found",
		})
	}

	claims := c.Locals("user").(*auth.Claims)
	if !workshop.IsOwnedBy(claims.UserID) {
		return nil, c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only the workshop trainer can do this",
		})
	}
	return workshop, nil
}

// @Summary List upcoming workshops
// @Tags workshops
// @Produce json
// @Success 200 {array} models.Workshop
// @Router /api/v1/workshops [get]
func (h *WorkshopHandler) ListWorkshops(c *fiber.Ctx) error {
	workshops, err := h.workshopRepo.ListUpcoming(c.UserContext(), h.now())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list workshops")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list workshops",
		})
	}
	if workshops == nil {
		workshops = []models.Workshop{}
	}
	return c.JSON(workshops)
}

// @Summary Create a workshop
// @Description Only trainers may create workshops
// @Tags workshops
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateWorkshopRequest true "Workshop"
// @Success 201 {object} models.Workshop
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/workshops [post]
func (h *WorkshopHandler) CreateWorkshop(c *fiber.Ctx) error {
	var req CreateWorkshopRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	claims := c.Locals("user").(*auth.Claims)
	workshop := &models.Workshop{
		TrainerID:       claims.UserID,
		Title:           req.Title,
		Description:     req.Description,
		StartTime:       req.StartTime,
		DurationMinutes: req.DurationMinutes,
		PriceCents:      req.PriceCents,
		MaxParticipants: req.MaxParticipants,
	}
	if msg := validateWorkshop(workshop); msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}

	if err := h.workshopRepo.CreateWorkshop(c.UserContext(), workshop); err != nil {
		log.Error().Err(err).Msg("Failed to create workshop")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create workshop",
		})
	}

	log.Info().Str("workshop_id", workshop.ID).Str("trainer_id", workshop.TrainerID).Msg("Workshop created")
	return c.Status(fiber.StatusCreated).JSON(workshop)
}

// @Summary Get a workshop
// @Tags workshops
// @Produce json
// @Param id path string true "Workshop ID"
// @Success 200 {object} models.Workshop
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/workshops/{id} [get]
func (h *WorkshopHandler) GetWorkshop(c *fiber.Ctx) error {
	workshop, err := h.workshopRepo.GetWorkshop(c.UserContext(), c.Params("id"))
	if err != nil {
		log.Error().Err(err).Msg("Failed to load workshop")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load workshop",
		})
	}
	if workshop == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Workshop not found",
		})
	}
	return c.JSON(workshop)
}

// @Summary Update a workshop
// @Tags workshops
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Workshop ID"
// @Param request body UpdateWorkshopRequest true "Fields to change"
// @Success 200 {object} models.Workshop
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/workshops/{id} [patch]
func (h *WorkshopHandler) UpdateWorkshop(c *fiber.Ctx) error {
	var req UpdateWorkshopRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	workshop, err := h.loadOwned(c)
	if workshop == nil {
		return err
	}

	start, duration := workshop.StartTime, workshop.DurationMinutes
	if req.Title != nil {
		workshop.Title = *req.Title
	}
	if req.Description != nil {
		workshop.Description = *req.Description
	}
	if req.StartTime != nil {
		workshop.StartTime = req.StartTime.UTC()
	}
	if req.DurationMinutes != nil {
		workshop.DurationMinutes = *req.DurationMinutes
	}
	if req.PriceCents != nil {
		workshop.PriceCents = *req.PriceCents
	}
	if req.MaxParticipants != nil {
		workshop.MaxParticipants = *req.MaxParticipants
	}
	if msg := validateWorkshop(workshop); msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}
	// A rescheduled workshop may need its room again.
	if !workshop.StartTime.Equal(start) || workshop.DurationMinutes != duration {
		workshop.RoomReleasedAt = nil
	}

	if err := h.workshopRepo.UpdateWorkshop(c.UserContext(), workshop); err != nil {
		log.Error().Err(err).Msg("Failed to update workshop")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update workshop",
		})
	}
	return c.JSON(workshop)
}

// @Summary Delete a workshop
// @Description Removes the workshop, its rules and memberships, and tears down its video room
// @Tags workshops
// @Security BearerAuth
// @Param id path string true "Workshop ID"
// @Success 204
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/workshops/{id} [delete]
func (h *WorkshopHandler) DeleteWorkshop(c *fiber.Ctx) error {
	workshop, err := h.loadOwned(c)
	if workshop == nil {
		return err
	}

	if err := h.rooms.Release(c.UserContext(), workshop); err != nil {
		log.Warn().Err(err).Str("workshop_id", workshop.ID).Msg("Failed to delete video room of deleted workshop")
	}

	if err := h.workshopRepo.DeleteWorkshop(c.UserContext(), workshop.ID); err != nil {
		log.Error().Err(err).Msg("Failed to delete workshop")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete workshop",
		})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// @Summary List workshop participants
// @Description Memberships with role and last join time. Only the workshop trainer may list them.
// @Tags workshops
// @Produce json
// @Security BearerAuth
// @Param id path string true "Workshop ID"
// @Success 200 {array} ParticipantInfo
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/workshops/{id}/participants [get]
func (h *WorkshopHandler) ListParticipants(c *fiber.Ctx) error {
	workshop, err := h.loadOwned(c)
	if workshop == nil {
		return err
	}

	participants, err := h.participantRepo.ListParticipants(c.UserContext(), workshop.ID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list participants")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list participants",
		})
	}

	response := make([]ParticipantInfo, 0, len(participants))
	for _, p := range participants {
		info := ParticipantInfo{
			UserID:   p.UserID,
			Role:     string(p.Role),
			JoinedAt: p.JoinedAt,
		}
		if p.User != nil {
			info.Email = p.User.Email
			info.Name = p.User.Name
		}
		response = append(response, info)
	}
	return c.JSON(response)
}
