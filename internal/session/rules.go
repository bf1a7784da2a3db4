package session

import (
	"context"
	"fmt"

	"workshop-backend/internal/models"
)

// EffectiveRules is the static policy of a workshop merged with the live
// flags set by the host. It is computed on every read and never stored.
type EffectiveRules struct {
	CameraOn          bool                    `json:"camera_on"`
	MicMuted          bool                    `json:"mic_muted"`
	AllowUnmuteAfter  int                     `json:"allow_unmute_after"`
	AllowCameraToggle bool                    `json:"allow_camera_toggle"`
	LateJoinBehavior  models.LateJoinBehavior `json:"late_join_behavior"`

	ForceCameraOn       bool `json:"force_camera_on"`
	ForceMicMutedOnJoin bool `json:"force_mic_muted_on_join"`
	AllMuted            bool `json:"all_muted"`
	AllCamerasOff       bool `json:"all_cameras_off"`
}

// Effective merges stored rules with their live flags. A nil row resolves to
// the defaults.
func Effective(stored *models.WorkshopRules) EffectiveRules {
	rules := models.DefaultRules("")
	if stored != nil {
		rules = *stored
	}
	return EffectiveRules{
		CameraOn:            rules.ForceCameraOn && !rules.AllCamerasOff,
		MicMuted:            rules.ForceMicMutedOnJoin || rules.AllMuted,
		AllowUnmuteAfter:    rules.AllowUnmuteAfter,
		AllowCameraToggle:   rules.AllowCameraToggle,
		LateJoinBehavior:    rules.LateJoinBehavior,
		ForceCameraOn:       rules.ForceCameraOn,
		ForceMicMutedOnJoin: rules.ForceMicMutedOnJoin,
		AllMuted:            rules.AllMuted,
		AllCamerasOff:       rules.AllCamerasOff,
	}
}

// RulesResolver serves the effective rules of a workshop. The join path and
// the standalone rules query both go through it.
type RulesResolver struct {
	workshops WorkshopStore
	rules     RulesStore
}

func NewRulesResolver(workshops WorkshopStore, rules RulesStore) *RulesResolver {
	return &RulesResolver{workshops: workshops, rules: rules}
}

// Current returns the effective rules of an existing workshop.
func (r *RulesResolver) Current(ctx context.Context, workshopID string) (EffectiveRules, error) {
	workshop, err := r.workshops.GetWorkshop(ctx, workshopID)
	if err != nil {
		return EffectiveRules{}, fmt.Errorf("load workshop: %w", err)
	}
	if workshop == nil {
		return EffectiveRules{}, errWorkshopNotFound()
	}
	return r.forWorkshop(ctx, workshop.ID)
}

func (r *RulesResolver) forWorkshop(ctx context.Context, workshopID string) (EffectiveRules, error) {
	stored, err := r.rules.GetRules(ctx, workshopID)
	if err != nil {
		return EffectiveRules{}, fmt.Errorf("load rules: %w", err)
	}
	return Effective(stored), nil
}
