package models

import "time"

type Workshop struct {
	ID              string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	TrainerID       string     `json:"trainerId" gorm:"type:varchar(36);not null;index"`
	Title           string     `json:"title" gorm:"not null;type:varchar(255)"`
	Description     string     `json:"description" gorm:"type:text"`
	StartTime       time.Time  `json:"startTime" gorm:"not null;index"`
	DurationMinutes int        `json:"durationMinutes" gorm:"not null"`
	PriceCents      int64      `json:"priceCents" gorm:"not null;default:0"`
	MaxParticipants int        `json:"maxParticipants" gorm:"not null"`
	VideoRoomID     string     `json:"videoRoomId,omitempty" gorm:"type:varchar(255);not null;default:''"`
	RoomReleasedAt  *time.Time `json:"-"`
	CreatedAt       time.Time  `json:"createdAt" gorm:"autoCreateTime;not null"`
	UpdatedAt       time.Time  `json:"updatedAt" gorm:"autoUpdateTime;not null"`
}

func (Workshop) TableName() string {
	return "workshops"
}

// EndTime is the nominal end of the workshop, without any late-join grace.
func (w *Workshop) EndTime() time.Time {
	return w.StartTime.Add(time.Duration(w.DurationMinutes) * time.Minute)
}

// IsOwnedBy reports whether userID is the workshop's trainer.
func (w *Workshop) IsOwnedBy(userID string) bool {
	return userID != "" && w.TrainerID == userID
}
