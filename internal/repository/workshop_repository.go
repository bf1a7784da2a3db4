package repository

import (
	"context"
	"errors"
	"time"

	"workshop-backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type WorkshopRepository struct {
	db *gorm.DB
}

func NewWorkshopRepository(db *gorm.DB) *WorkshopRepository {
	return &WorkshopRepository{db: db}
}

// CreateWorkshop stores a new workshop together with its default rules
func (r *WorkshopRepository) CreateWorkshop(ctx context.Context, workshop *models.Workshop) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if workshop.ID == "" {
			workshop.ID = uuid.New().String()
		}
		workshop.StartTime = workshop.StartTime.UTC()

		if err := tx.Create(workshop).Error; err != nil {
			log.Error().Err(err).Msg("Failed to create workshop")
			return err
		}

		rules := models.DefaultRules(workshop.ID)
		rules.ID = uuid.New().String()
		if err := tx.Create(&rules).Error; err != nil {
			log.Error().Err(err).Str("workshop_id", workshop.ID).Msg("Failed to create workshop rules")
			return err
		}
		return nil
	})
}

// GetWorkshop retrieves a workshop by ID
func (r *WorkshopRepository) GetWorkshop(ctx context.Context, id string) (*models.Workshop, error) {
	var workshop models.Workshop
	result := r.db.WithContext(ctx).First(&workshop, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &workshop, nil
}

// ListUpcoming returns workshops starting at or after now, earliest first
func (r *WorkshopRepository) ListUpcoming(ctx context.Context, now time.Time) ([]models.Workshop, error) {
	var workshops []models.Workshop
	err := r.db.WithContext(ctx).
		Where("start_time >= ?", now.UTC()).
		Order("start_time ASC").
		Find(&workshops).Error
	return workshops, err
}

// UpdateWorkshop applies the editable columns of a workshop along with its
// room release marker
func (r *WorkshopRepository) UpdateWorkshop(ctx context.Context, workshop *models.Workshop) error {
	return r.db.WithContext(ctx).Model(&models.Workshop{}).
		Where("id = ?", workshop.ID).
		Updates(map[string]interface{}{
			"title":            workshop.Title,
			"description":      workshop.Description,
			"start_time":       workshop.StartTime.UTC(),
			"duration_minutes": workshop.DurationMinutes,
			"price_cents":      workshop.PriceCents,
			"max_participants": workshop.MaxParticipants,
			"room_released_at": workshop.RoomReleasedAt,
		}).Error
}

// SetVideoRoomID records the remote room identifier unless one is already
// set. All concurrent callers compute the same identifier, so losing the race
// is harmless.
func (r *WorkshopRepository) SetVideoRoomID(ctx context.Context, workshopID, roomID string) error {
	return r.db.WithContext(ctx).Model(&models.Workshop{}).
		Where("id = ? AND (video_room_id IS NULL OR video_room_id = '')", workshopID).
		Update("video_room_id", roomID).Error
}

// DeleteWorkshop removes a workshop along with its rules and memberships
func (r *WorkshopRepository) DeleteWorkshop(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.WorkshopRules{}, "workshop_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.WorkshopParticipant{}, "workshop_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Workshop{}, "id = ?", id).Error
	})
}

// ListRoomsToRelease returns workshops holding a remote room that has not been
// released and that started before the cutoff. Callers still need to check the
// end time, which depends on each workshop's duration.
func (r *WorkshopRepository) ListRoomsToRelease(ctx context.Context, startedBefore time.Time) ([]models.Workshop, error) {
	var workshops []models.Workshop
	err := r.db.WithContext(ctx).
		Where("video_room_id <> '' AND room_released_at IS NULL AND start_time < ?", startedBefore.UTC()).
		Find(&workshops).Error
	return workshops, err
}

// MarkRoomReleased stamps the time the remote room was torn down
func (r *WorkshopRepository) MarkRoomReleased(ctx context.Context, workshopID string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Workshop{}).
		Where("id = ?", workshopID).
		Update("room_released_at", at.UTC()).Error
}
