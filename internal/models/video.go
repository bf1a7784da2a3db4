package models

import "time"

type ParticipantRole string

const (
	ParticipantRoleHost        ParticipantRole = "host"
	ParticipantRoleParticipant ParticipantRole = "participant"
)

type LateJoinBehavior string

const (
	LateJoinAllow      LateJoinBehavior = "allow"
	LateJoinAllowMuted LateJoinBehavior = "allow_muted"
	LateJoinDeny       LateJoinBehavior = "deny"
)

// Valid reports whether b is one of the known behaviors
func (b LateJoinBehavior) Valid() bool {
	switch b {
	case LateJoinAllow, LateJoinAllowMuted, LateJoinDeny:
		return true
	}
	return false
}

// WorkshopParticipant is the membership of a user in a workshop. There is at
// most one row per (workshop, user).
type WorkshopParticipant struct {
	ID         string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	WorkshopID string          `json:"workshopId" gorm:"type:varchar(36);not null;uniqueIndex:idx_workshop_user;index"`
	UserID     string          `json:"userId" gorm:"type:varchar(36);not null;uniqueIndex:idx_workshop_user"`
	Role       ParticipantRole `json:"role" gorm:"type:varchar(20);not null"`
	JoinedAt   time.Time       `json:"joinedAt" gorm:"not null"`
	User       *User           `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

func (WorkshopParticipant) TableName() string {
	return "workshop_participants"
}

// WorkshopRules holds the static camera/mic policy of a workshop and the live
// flags toggled by the host.
type WorkshopRules struct {
	ID                  string           `json:"id" gorm:"primaryKey;type:varchar(36)"`
	WorkshopID          string           `json:"workshopId" gorm:"type:varchar(36);not null;uniqueIndex"`
	ForceCameraOn       bool             `json:"forceCameraOn" gorm:"not null"`
	ForceMicMutedOnJoin bool             `json:"forceMicMutedOnJoin" gorm:"not null"`
	AllowUnmuteAfter    int              `json:"allowUnmuteAfter" gorm:"not null"` // seconds, advisory
	AllowCameraToggle   bool             `json:"allowCameraToggle" gorm:"not null"`
	LateJoinBehavior    LateJoinBehavior `json:"lateJoinBehavior" gorm:"type:varchar(20);not null"`
	AllMuted            bool             `json:"allMuted" gorm:"not null"`
	AllCamerasOff       bool             `json:"allCamerasOff" gorm:"not null"`
	CreatedAt           time.Time        `json:"createdAt" gorm:"autoCreateTime;not null"`
	UpdatedAt           time.Time        `json:"updatedAt" gorm:"autoUpdateTime;not null"`
}

func (WorkshopRules) TableName() string {
	return "workshop_rules"
}

// DefaultRules returns the policy used when a workshop has no stored rules.
func DefaultRules(workshopID string) WorkshopRules {
	return WorkshopRules{
		WorkshopID:          workshopID,
		ForceCameraOn:       true,
		ForceMicMutedOnJoin: true,
		AllowUnmuteAfter:    0,
		AllowCameraToggle:   true,
		LateJoinBehavior:    LateJoinAllowMuted,
	}
}
