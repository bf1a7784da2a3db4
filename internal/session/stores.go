package session

import (
	"context"
	"time"

	"workshop-backend/internal/models"
)

// WorkshopStore is the workshop persistence the session logic needs.
type WorkshopStore interface {
	GetWorkshop(ctx context.Context, id string) (*models.Workshop, error)
	SetVideoRoomID(ctx context.Context, workshopID, roomID string) error
}

// MembershipStore admits users into workshops. Implementations must make the
// capacity check and the insert atomic.
type MembershipStore interface {
	Admit(ctx context.Context, workshopID, userID string, role models.ParticipantRole, joinedAt time.Time, maxParticipants int) (*models.WorkshopParticipant, error)
}

// RulesStore persists per-workshop room rules.
type RulesStore interface {
	GetRules(ctx context.Context, workshopID string) (*models.WorkshopRules, error)
	GetOrCreateRules(ctx context.Context, workshopID string) (*models.WorkshopRules, error)
	SetLiveFlags(ctx context.Context, workshopID string, flags map[string]interface{}) error
	UpdatePolicy(ctx context.Context, rules *models.WorkshopRules) error
}

// UserStore resolves display names for meeting tokens.
type UserStore interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// RoomReleaseStore finds and marks workshops whose remote room can be torn down.
type RoomReleaseStore interface {
	ListRoomsToRelease(ctx context.Context, startedBefore time.Time) ([]models.Workshop, error)
	MarkRoomReleased(ctx context.Context, workshopID string, at time.Time) error
}

func clockOrDefault(now func() time.Time) func() time.Time {
	if now == nil {
		return time.Now
	}
	return now
}
