package session

import (
	"context"
	"fmt"
	"time"

	"workshop-backend/internal/models"
	"workshop-backend/internal/video"

	"github.com/rs/zerolog/log"
)

// Action is a global toggle the host can issue during a live workshop.
type Action string

const (
	ActionMuteAll       Action = "mute_all"
	ActionUnmuteAll     Action = "unmute_all"
	ActionCamerasOffAll Action = "cameras_off_all"
	ActionCamerasOnAll  Action = "cameras_on_all"
)

// liveFlag maps each action to the column it sets and the target value.
func (a Action) liveFlag() (column string, value bool, ok bool) {
	switch a {
	case ActionMuteAll:
		return "all_muted", true, true
	case ActionUnmuteAll:
		return "all_muted", false, true
	case ActionCamerasOffAll:
		return "all_cameras_off", true, true
	case ActionCamerasOnAll:
		return "all_cameras_off", false, true
	}
	return "", false, false
}

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	_, _, ok := a.liveFlag()
	return ok
}

// Ack acknowledges an applied host action.
type Ack struct {
	Status        string `json:"status"`
	Action        Action `json:"action"`
	BroadcastSent bool   `json:"broadcast_sent"`
}

// HostControlMessage is broadcast to the live room after a host action.
type HostControlMessage struct {
	Type      string `json:"type"`
	Action    Action `json:"action"`
	Timestamp string `json:"timestamp"`
	From      string `json:"from"`
}

// PolicyUpdate changes the static rules of a workshop. Nil fields keep their
// stored value.
type PolicyUpdate struct {
	ForceCameraOn       *bool                    `json:"force_camera_on"`
	ForceMicMutedOnJoin *bool                    `json:"force_mic_muted_on_join"`
	AllowUnmuteAfter    *int                     `json:"allow_unmute_after"`
	AllowCameraToggle   *bool                    `json:"allow_camera_toggle"`
	LateJoinBehavior    *models.LateJoinBehavior `json:"late_join_behavior"`
}

// HostControl applies trainer-issued changes to a workshop's rules.
//
// Concurrent actions on the same flag resolve to whichever write commits
// last; actions on different flags touch different columns.
type HostControl struct {
	workshops WorkshopStore
	rules     RulesStore
	gateway   video.Gateway
	timeout   time.Duration
	now       func() time.Time
}

func NewHostControl(workshops WorkshopStore, rules RulesStore, gateway video.Gateway, timeout time.Duration, now func() time.Time) *HostControl {
	return &HostControl{
		workshops: workshops,
		rules:     rules,
		gateway:   gateway,
		timeout:   timeout,
		now:       clockOrDefault(now),
	}
}

func (h *HostControl) authorize(ctx context.Context, workshopID, actorID string) (*models.Workshop, error) {
	workshop, err := h.workshops.GetWorkshop(ctx, workshopID)
	if err != nil {
		return nil, fmt.Errorf("load workshop: %w", err)
	}
	if workshop == nil {
		return nil, errWorkshopNotFound()
	}
	if !workshop.IsOwnedBy(actorID) {
		return nil, errForbidden(ReasonNotHost, "Only the host can perform this action")
	}
	return workshop, nil
}

// Apply persists the live flag change of action and then tries to notify the
// room. A failed broadcast only shows up as BroadcastSent=false.
func (h *HostControl) Apply(ctx context.Context, workshopID, actorID string, action Action) (*Ack, error) {
	workshop, err := h.authorize(ctx, workshopID, actorID)
	if err != nil {
		return nil, err
	}

	column, value, ok := action.liveFlag()
	if !ok {
		return nil, errInvalid(ReasonUnknownAction, fmt.Sprintf("Unknown host action %q", action))
	}

	if _, err := h.rules.GetOrCreateRules(ctx, workshop.ID); err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	if err := h.rules.SetLiveFlags(ctx, workshop.ID, map[string]interface{}{column: value}); err != nil {
		return nil, fmt.Errorf("store live flags: %w", err)
	}

	sent := h.broadcast(ctx, workshop, action)

	log.Info().
		Str("workshop_id", workshop.ID).
		Str("action", string(action)).
		Bool("broadcast_sent", sent).
		Msg("Host action applied")

	return &Ack{Status: "accepted", Action: action, BroadcastSent: sent}, nil
}

func (h *HostControl) broadcast(ctx context.Context, workshop *models.Workshop, action Action) bool {
	if workshop.VideoRoomID == "" {
		return false
	}

	bctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	err := h.gateway.SendAppMessage(bctx, workshop.VideoRoomID, HostControlMessage{
		Type:      "host_control",
		Action:    action,
		Timestamp: h.now().UTC().Format(time.RFC3339),
		From:      "server",
	})
	if err != nil {
		log.Warn().Err(err).
			Str("workshop_id", workshop.ID).
			Str("room", workshop.VideoRoomID).
			Msg("Failed to broadcast host action")
		return false
	}
	return true
}

// UpdatePolicy changes the static rules of a workshop. Live flags are left
// as they are.
func (h *HostControl) UpdatePolicy(ctx context.Context, workshopID, actorID string, update PolicyUpdate) (EffectiveRules, error) {
	workshop, err := h.authorize(ctx, workshopID, actorID)
	if err != nil {
		return EffectiveRules{}, err
	}

	if update.AllowUnmuteAfter != nil && *update.AllowUnmuteAfter < 0 {
		return EffectiveRules{}, errInvalid(ReasonInvalidPolicy, "allow_unmute_after must not be negative")
	}
	if update.LateJoinBehavior != nil && !update.LateJoinBehavior.Valid() {
		return EffectiveRules{}, errInvalid(ReasonInvalidPolicy, fmt.Sprintf("Unknown late join behavior %q", *update.LateJoinBehavior))
	}

	rules, err := h.rules.GetOrCreateRules(ctx, workshop.ID)
	if err != nil {
		return EffectiveRules{}, fmt.Errorf("load rules: %w", err)
	}
	if update.ForceCameraOn != nil {
		rules.ForceCameraOn = *update.ForceCameraOn
	}
	if update.ForceMicMutedOnJoin != nil {
		rules.ForceMicMutedOnJoin = *update.ForceMicMutedOnJoin
	}
	if update.AllowUnmuteAfter != nil {
		rules.AllowUnmuteAfter = *update.AllowUnmuteAfter
	}
	if update.AllowCameraToggle != nil {
		rules.AllowCameraToggle = *update.AllowCameraToggle
	}
	if update.LateJoinBehavior != nil {
		rules.LateJoinBehavior = *update.LateJoinBehavior
	}

	if err := h.rules.UpdatePolicy(ctx, rules); err != nil {
		return EffectiveRules{}, fmt.Errorf("store policy: %w", err)
	}

	stored, err := h.rules.GetRules(ctx, workshop.ID)
	if err != nil {
		return EffectiveRules{}, fmt.Errorf("load rules: %w", err)
	}
	return Effective(stored), nil
}
