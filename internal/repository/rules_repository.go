package repository

import (
	"context"
	"errors"

	"workshop-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RulesRepository struct {
	db *gorm.DB
}

func NewRulesRepository(db *gorm.DB) *RulesRepository {
	return &RulesRepository{db: db}
}

// GetRules returns the stored rules of a workshop, or nil when none exist
func (r *RulesRepository) GetRules(ctx context.Context, workshopID string) (*models.WorkshopRules, error) {
	var rules models.WorkshopRules
	result := r.db.WithContext(ctx).First(&rules, "workshop_id = ?", workshopID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &rules, nil
}

// GetOrCreateRules returns the stored rules, inserting the defaults first when
// the workshop has none. Concurrent callers converge on the same row.
func (r *RulesRepository) GetOrCreateRules(ctx context.Context, workshopID string) (*models.WorkshopRules, error) {
	defaults := models.DefaultRules(workshopID)
	defaults.ID = uuid.New().String()

	db := r.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "workshop_id"}},
		DoNothing: true,
	}).Create(&defaults).Error; err != nil {
		return nil, err
	}

	var rules models.WorkshopRules
	if err := db.First(&rules, "workshop_id = ?", workshopID).Error; err != nil {
		return nil, err
	}
	return &rules, nil
}

// SetLiveFlags updates only the given live-flag columns so that concurrent
// host actions on different flags do not overwrite each other.
func (r *RulesRepository) SetLiveFlags(ctx context.Context, workshopID string, flags map[string]interface{}) error {
	if len(flags) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.WorkshopRules{}).
		Where("workshop_id = ?", workshopID).
		Updates(flags).Error
}

// UpdatePolicy stores the static policy fields, leaving live flags untouched
func (r *RulesRepository) UpdatePolicy(ctx context.Context, rules *models.WorkshopRules) error {
	return r.db.WithContext(ctx).Model(&models.WorkshopRules{}).
		Where("workshop_id = ?", rules.WorkshopID).
		Updates(map[string]interface{}{
			"force_camera_on":         rules.ForceCameraOn,
			"force_mic_muted_on_join": rules.ForceMicMutedOnJoin,
			"allow_unmute_after":      rules.AllowUnmuteAfter,
			"allow_camera_toggle":     rules.AllowCameraToggle,
			"late_join_behavior":      rules.LateJoinBehavior,
		}).Error
}
