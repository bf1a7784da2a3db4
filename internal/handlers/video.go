// Package handlers provides HTTP request handlers for the application.
package handlers

import (
	"context"
	"encoding/json"

	"workshop-backend/internal/auth"
	"workshop-backend/internal/session"
	"workshop-backend/internal/video"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// WebhookSignatureHeader carries the hex HMAC of a webhook body
const WebhookSignatureHeader = "X-Webhook-Signature"

type VideoHandler struct {
	admission     *session.Admission
	rules         *session.RulesResolver
	host          *session.HostControl
	webhookSecret string
}

func NewVideoHandler(admission *session.Admission, rules *session.RulesResolver, host *session.HostControl, webhookSecret string) *VideoHandler {
	return &VideoHandler{
		admission:     admission,
		rules:         rules,
		host:          host,
		webhookSecret: webhookSecret,
	}
}

// @Summary Join a workshop
// @Description Admit the caller into the workshop video room and return a meeting token
// @Tags video
// @Produce json
// @Security BearerAuth
// @Param id path string true "Workshop ID"
// @Success 200 {object} session.SessionGrant
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /api/v1/video/workshops/{id}/join [post]
func (h *VideoHandler) Join(c *fiber.Ctx) error {
	claims := c.Locals("user").(*auth.Claims)

	ctx, cancel := requestContext(c)
	defer cancel()

	grant, err := h.admission.Join(ctx, c.Params("id"), claims.UserID)
	if err != nil {
		return sessionError(c, err, "Failed to join workshop")
	}
	return c.JSON(grant)
}

// @Summary Get workshop rules
// @Description Current room rules including live host-enforced state
// @Tags video
// @Produce json
// @Security BearerAuth
// @Param id path string true "Workshop ID"
// @Success 200 {object} session.EffectiveRules
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/video/workshops/{id}/rules [get]
func (h *VideoHandler) GetRules(c *fiber.Ctx) error {
	rules, err := h.rules.Current(c.UserContext(), c.Params("id"))
	if err != nil {
		return sessionError(c, err, "Failed to load rules")
	}
	return c.JSON(rules)
}

// @Summary Update workshop rules
// @Description Change the static room policy. Only the workshop trainer may do this.
// @Tags video
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Workshop ID"
// @Param request body session.PolicyUpdate true "Policy fields to change"
// @Success 200 {object} session.EffectiveRules
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/video/workshops/{id}/rules [put]
func (h *VideoHandler) UpdateRules(c *fiber.Ctx) error {
	var req session.PolicyUpdate
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	claims := c.Locals("user").(*auth.Claims)
	rules, err := h.host.UpdatePolicy(c.UserContext(), c.Params("id"), claims.UserID, req)
	if err != nil {
		return sessionError(c, err, "Failed to update rules")
	}
	return c.JSON(rules)
}

// @Summary Host action
// @Description Mute or unmute everyone, or turn every camera off or on
// @Tags video
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Workshop ID"
// @Param request body HostActionRequest true "Action"
// @Success 200 {object} session.Ack
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/video/workshops/{id}/host-action [post]
func (h *VideoHandler) HostAction(c *fiber.Ctx) error {
	var req HostActionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	claims := c.Locals("user").(*auth.Claims)
	ctx, cancel := requestContext(c)
	defer cancel()

	ack, err := h.host.Apply(ctx, c.Params("id"), claims.UserID, session.Action(req.Action))
	if err != nil {
		return sessionError(c, err, "Failed to apply host action")
	}
	return c.JSON(ack)
}

// @Summary Video provider webhook
// @Description Receives provider events. Events are logged and always acknowledged.
// @Tags video
// @Accept json
// @Produce json
// @Success 200 {object} StatusResponse
// @Router /api/v1/video/webhooks/daily [post]
func (h *VideoHandler) Webhook(c *fiber.Ctx) error {
	body := c.Body()

	var event video.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Warn().Err(err).Msg("Unreadable video webhook payload")
	}

	if h.webhookSecret != "" && !video.VerifyWebhookSignature(body, c.Get(WebhookSignatureHeader), h.webhookSecret) {
		log.Warn().Str("event", event.Name()).Msg("Video webhook signature mismatch")
		return c.JSON(StatusResponse{Status: "ok"})
	}

	log.Info().Str("event", event.Name()).Msg("Video webhook event")
	return c.JSON(StatusResponse{Status: "ok"})
}

// requestContext derives from the user context and is also canceled when the
// server shuts down. fasthttp has no per-connection disconnect signal, so a
// client hanging up does not cancel it.
func requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(c.UserContext())
	stop := context.AfterFunc(c.Context(), cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
