package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"workshop-backend/internal/models"
	"workshop-backend/internal/repository"
	"workshop-backend/internal/video"

	"github.com/rs/zerolog/log"
)

// SessionGrant is what a caller receives after being admitted.
type SessionGrant struct {
	Token   string                 `json:"token"`
	RoomURL string                 `json:"room_url"`
	Role    models.ParticipantRole `json:"role"`
	Rules   EffectiveRules         `json:"rules"`
}

// AdmissionConfig holds the settings the join path reads.
type AdmissionConfig struct {
	RoomURL  func(roomName string) string
	TokenTTL time.Duration
	Timeout  time.Duration
}

// Admission decides whether a user may join a workshop now and issues the
// meeting token when they may.
type Admission struct {
	workshops WorkshopStore
	members   MembershipStore
	users     UserStore
	rooms     *RoomProvisioner
	rules     *RulesResolver
	gateway   video.Gateway
	cfg       AdmissionConfig
	now       func() time.Time
}

func NewAdmission(
	workshops WorkshopStore,
	members MembershipStore,
	users UserStore,
	rooms *RoomProvisioner,
	rules *RulesResolver,
	gateway video.Gateway,
	cfg AdmissionConfig,
	now func() time.Time,
) *Admission {
	return &Admission{
		workshops: workshops,
		members:   members,
		users:     users,
		rooms:     rooms,
		rules:     rules,
		gateway:   gateway,
		cfg:       cfg,
		now:       clockOrDefault(now),
	}
}

// Join admits userID into the workshop and returns its meeting grant.
func (a *Admission) Join(ctx context.Context, workshopID, userID string) (*SessionGrant, error) {
	workshop, err := a.workshops.GetWorkshop(ctx, workshopID)
	if err != nil {
		return nil, fmt.Errorf("load workshop: %w", err)
	}
	if workshop == nil {
		return nil, errWorkshopNotFound()
	}

	now := a.now().UTC()
	if err := windowError(AdmissionWindow(workshop).Check(now)); err != nil {
		return nil, err
	}

	role := models.ParticipantRoleParticipant
	if workshop.IsOwnedBy(userID) {
		role = models.ParticipantRoleHost
	}

	if _, err := a.members.Admit(ctx, workshop.ID, userID, role, now, workshop.MaxParticipants); err != nil {
		switch {
		case errors.Is(err, repository.ErrWorkshopFull):
			return nil, errForbidden(ReasonFull, "Workshop is full")
		case errors.Is(err, repository.ErrWorkshopNotFound):
			return nil, errWorkshopNotFound()
		}
		return nil, fmt.Errorf("admit participant: %w", err)
	}

	roomName, err := a.rooms.Ensure(ctx, workshop)
	if err != nil {
		return nil, err
	}

	rules, err := a.rules.forWorkshop(ctx, workshop.ID)
	if err != nil {
		return nil, err
	}

	displayName := userID
	if user, err := a.users.GetUserByID(ctx, userID); err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	} else if user != nil {
		displayName = user.DisplayName()
	}

	// A caller that went away gets no token.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	token, err := a.gateway.CreateMeetingToken(tctx, video.TokenSpec{
		RoomName:      roomName,
		UserName:      displayName,
		UserID:        userID,
		IsOwner:       role == models.ParticipantRoleHost,
		TTL:           a.cfg.TokenTTL,
		StartVideoOff: !rules.CameraOn,
		StartAudioOff: rules.MicMuted,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Error().Err(err).
			Str("workshop_id", workshop.ID).
			Str("user_id", userID).
			Msg("Failed to create meeting token")
		return nil, errUpstream(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log.Info().
		Str("workshop_id", workshop.ID).
		Str("user_id", userID).
		Str("role", string(role)).
		Msg("Participant admitted")

	return &SessionGrant{
		Token:   token,
		RoomURL: a.cfg.RoomURL(roomName),
		Role:    role,
		Rules:   rules,
	}, nil
}
