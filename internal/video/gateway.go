// Package video talks to the remote video-room provider.
package video

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrRoomExists reports that a room with the requested name already exists.
	ErrRoomExists = errors.New("video: room already exists")
	// ErrRoomNotFound reports that the named room does not exist.
	ErrRoomNotFound = errors.New("video: room not found")
)

// APIError is a non-success response from the provider.
type APIError struct {
	Op     string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("video: %s failed: status %d: %s", e.Op, e.Status, e.Body)
}

// RoomSpec describes a room to provision for a workshop.
type RoomSpec struct {
	Name            string
	MaxParticipants int // not counting the host
	StartTime       time.Time
	Duration        time.Duration
}

// TokenSpec describes a meeting token for one participant.
type TokenSpec struct {
	RoomName      string
	UserName      string
	UserID        string
	IsOwner       bool
	TTL           time.Duration
	StartVideoOff bool
	StartAudioOff bool
}

// Gateway is the contract the session logic consumes from the provider.
// Every method must return within the caller's context deadline.
type Gateway interface {
	CreateRoom(ctx context.Context, spec RoomSpec) error
	CreateMeetingToken(ctx context.Context, spec TokenSpec) (string, error)
	SendAppMessage(ctx context.Context, roomName string, payload interface{}) error
	DeleteRoom(ctx context.Context, roomName string) error
}

// roomExpiry keeps a room alive ten minutes past the workshop end, and never
// expires it in the past for workshops already running.
func roomExpiry(spec RoomSpec, now time.Time) time.Time {
	exp := spec.StartTime.Add(spec.Duration + 10*time.Minute)
	if floor := now.Add(10 * time.Minute); exp.Before(floor) {
		return floor
	}
	return exp
}
