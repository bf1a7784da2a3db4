package session

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// ReleaseDelay is how long a room outlives the admission window.
const ReleaseDelay = 10 * time.Minute

// RoomReaper tears down remote rooms of workshops that can no longer be joined.
type RoomReaper struct {
	workshops RoomReleaseStore
	rooms     *RoomProvisioner
	now       func() time.Time
}

func NewRoomReaper(workshops RoomReleaseStore, rooms *RoomProvisioner, now func() time.Time) *RoomReaper {
	return &RoomReaper{workshops: workshops, rooms: rooms, now: clockOrDefault(now)}
}

// ReleaseEndedRooms deletes every room whose admission window closed more
// than ReleaseDelay ago and returns how many were released. The room
// identifier stays on the workshop.
func (r *RoomReaper) ReleaseEndedRooms(ctx context.Context) (int, error) {
	now := r.now().UTC()
	// Every workshop lasts at least a minute, so anything releasable started
	// before this instant.
	cutoff := now.Add(-LateJoinGrace - ReleaseDelay)

	candidates, err := r.workshops.ListRoomsToRelease(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	released := 0
	for i := range candidates {
		workshop := &candidates[i]
		if AdmissionWindow(workshop).Closes.Add(ReleaseDelay).After(now) {
			continue
		}
		if err := r.rooms.Release(ctx, workshop); err != nil {
			log.Warn().Err(err).
				Str("workshop_id", workshop.ID).
				Str("room", workshop.VideoRoomID).
				Msg("Failed to release video room")
			continue
		}
		if err := r.workshops.MarkRoomReleased(ctx, workshop.ID, now); err != nil {
			return released, err
		}
		released++
	}

	if released > 0 {
		log.Info().Int("released", released).Msg("Released ended video rooms")
	}
	return released, nil
}
