package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"workshop-backend/internal/models"
	"workshop-backend/internal/video"

	"github.com/rs/zerolog/log"
)

// RoomName is the remote room name of a workshop. It depends only on the
// workshop identity, so concurrent first joiners agree on it.
func RoomName(prefix, workshopID string) string {
	return prefix + "-" + workshopID
}

// RoomProvisioner makes sure a workshop has a remote room.
type RoomProvisioner struct {
	gateway   video.Gateway
	workshops WorkshopStore
	prefix    string
	timeout   time.Duration
}

func NewRoomProvisioner(gateway video.Gateway, workshops WorkshopStore, prefix string, timeout time.Duration) *RoomProvisioner {
	return &RoomProvisioner{
		gateway:   gateway,
		workshops: workshops,
		prefix:    prefix,
		timeout:   timeout,
	}
}

// Ensure creates the workshop's room if needed and returns its name. A room
// that already exists counts as success. The name is recorded on the
// workshop the first time.
func (p *RoomProvisioner) Ensure(ctx context.Context, workshop *models.Workshop) (string, error) {
	name := workshop.VideoRoomID
	if name == "" {
		name = RoomName(p.prefix, workshop.ID)
	}

	cctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.gateway.CreateRoom(cctx, video.RoomSpec{
		Name:            name,
		MaxParticipants: workshop.MaxParticipants,
		StartTime:       workshop.StartTime,
		Duration:        time.Duration(workshop.DurationMinutes) * time.Minute,
	})
	if err != nil && !errors.Is(err, video.ErrRoomExists) {
		log.Error().Err(err).
			Str("workshop_id", workshop.ID).
			Str("room", name).
			Msg("Failed to create video room on join")
		return "", errUpstream(err)
	}

	if workshop.VideoRoomID == "" {
		if err := p.workshops.SetVideoRoomID(ctx, workshop.ID, name); err != nil {
			return "", fmt.Errorf("store video room id: %w", err)
		}
		workshop.VideoRoomID = name
	}
	return name, nil
}

// Release deletes the workshop's remote room. A room that is already gone
// counts as success.
func (p *RoomProvisioner) Release(ctx context.Context, workshop *models.Workshop) error {
	if workshop.VideoRoomID == "" {
		return nil
	}

	cctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.gateway.DeleteRoom(cctx, workshop.VideoRoomID)
	if err != nil && !errors.Is(err, video.ErrRoomNotFound) {
		return errUpstream(err)
	}
	return nil
}
