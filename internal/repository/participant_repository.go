package repository

import (
	"context"
	"errors"
	"time"

	"workshop-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrWorkshopFull is returned by Admit when no participant seat is left.
	ErrWorkshopFull = errors.New("repository: workshop is full")
	// ErrWorkshopNotFound is returned when the workshop disappeared mid-admission.
	ErrWorkshopNotFound = errors.New("repository: workshop not found")
)

type ParticipantRepository struct {
	db *gorm.DB
}

func NewParticipantRepository(db *gorm.DB) *ParticipantRepository {
	return &ParticipantRepository{db: db}
}

// Admit upserts the membership of userID in the workshop. New participant-role
// memberships are only created while the participant count is below
// maxParticipants; the check and the insert run in one transaction holding a
// row lock on the workshop, so concurrent admissions cannot overbook. An
// existing membership is refreshed in place and never re-checked.
func (r *ParticipantRepository) Admit(ctx context.Context, workshopID, userID string, role models.ParticipantRole, joinedAt time.Time, maxParticipants int) (*models.WorkshopParticipant, error) {
	var admitted models.WorkshopParticipant

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var workshop models.Workshop
		locked := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Limit(1).
			Find(&workshop, "id = ?", workshopID)
		if locked.Error != nil {
			return locked.Error
		}
		if locked.RowsAffected == 0 {
			return ErrWorkshopNotFound
		}

		var existing models.WorkshopParticipant
		found := tx.Where("workshop_id = ? AND user_id = ?", workshopID, userID).
			Limit(1).
			Find(&existing)
		if found.Error != nil {
			return found.Error
		}
		if found.RowsAffected > 0 {
			if err := tx.Model(&existing).Updates(map[string]interface{}{
				"role":      role,
				"joined_at": joinedAt.UTC(),
			}).Error; err != nil {
				return err
			}
			existing.Role = role
			existing.JoinedAt = joinedAt.UTC()
			admitted = existing
			return nil
		}

		if role == models.ParticipantRoleParticipant {
			var count int64
			if err := tx.Model(&models.WorkshopParticipant{}).
				Where("workshop_id = ? AND role = ?", workshopID, models.ParticipantRoleParticipant).
				Count(&count).Error; err != nil {
				return err
			}
			if count >= int64(maxParticipants) {
				return ErrWorkshopFull
			}
		}

		admitted = models.WorkshopParticipant{
			ID:         uuid.New().String(),
			WorkshopID: workshopID,
			UserID:     userID,
			Role:       role,
			JoinedAt:   joinedAt.UTC(),
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "workshop_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"role", "joined_at"}),
		}).Create(&admitted).Error
	})
	if err != nil {
		return nil, err
	}
	return &admitted, nil
}

// CountByRole counts memberships of the given role in a workshop
func (r *ParticipantRepository) CountByRole(ctx context.Context, workshopID string, role models.ParticipantRole) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.WorkshopParticipant{}).
		Where("workshop_id = ? AND role = ?", workshopID, role).
		Count(&count).Error
	return count, err
}

// GetParticipant returns the membership of a user, or nil when absent
func (r *ParticipantRepository) GetParticipant(ctx context.Context, workshopID, userID string) (*models.WorkshopParticipant, error) {
	var participant models.WorkshopParticipant
	result := r.db.WithContext(ctx).
		Where("workshop_id = ? AND user_id = ?", workshopID, userID).
		First(&participant)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &participant, nil
}

// ListParticipants returns all memberships of a workshop with their users
func (r *ParticipantRepository) ListParticipants(ctx context.Context, workshopID string) ([]models.WorkshopParticipant, error) {
	var participants []models.WorkshopParticipant
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("workshop_id = ?", workshopID).
		Order("joined_at ASC").
		Find(&participants).Error
	return participants, err
}
