package video

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	lkauth "github.com/livekit/protocol/auth"
	"github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go/v2"
	"github.com/rs/zerolog/log"
	"github.com/twitchtv/twirp"
)

// LiveKitClient is a Gateway backed by a LiveKit server. Rooms are managed
// through the RoomService API; meeting tokens are signed locally.
type LiveKitClient struct {
	apiKey      string
	apiSecret   string
	roomService *lksdk.RoomServiceClient
	now         func() time.Time
}

func NewLiveKitClient(host, apiKey, apiSecret string) *LiveKitClient {
	return &LiveKitClient{
		apiKey:      apiKey,
		apiSecret:   apiSecret,
		roomService: lksdk.NewRoomServiceClient(host, apiKey, apiSecret),
		now:         time.Now,
	}
}

var _ Gateway = (*LiveKitClient)(nil)

// participantMetadata is attached to each token; clients read it to decide
// the initial state of camera and microphone.
type participantMetadata struct {
	StartVideoOff bool `json:"startVideoOff"`
	StartAudioOff bool `json:"startAudioOff"`
}

type roomMetadata struct {
	ExpiresAt int64 `json:"expiresAt"`
}

func (l *LiveKitClient) CreateRoom(ctx context.Context, spec RoomSpec) error {
	metadata, err := json.Marshal(roomMetadata{ExpiresAt: roomExpiry(spec, l.now().UTC()).Unix()})
	if err != nil {
		return err
	}

	_, err = l.roomService.CreateRoom(ctx, &livekit.CreateRoomRequest{
		Name:            spec.Name,
		MaxParticipants: uint32(spec.MaxParticipants + 1), // +1 for host
		EmptyTimeout:    uint32((10 * time.Minute).Seconds()),
		Metadata:        string(metadata),
	})
	if err != nil {
		err = classifyLiveKitError(err)
		if !errors.Is(err, ErrRoomExists) {
			log.Error().Err(err).Str("room", spec.Name).Msg("Failed to create LiveKit room")
		}
		return err
	}
	return nil
}

func (l *LiveKitClient) CreateMeetingToken(ctx context.Context, spec TokenSpec) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	metadata, err := json.Marshal(participantMetadata{
		StartVideoOff: spec.StartVideoOff,
		StartAudioOff: spec.StartAudioOff,
	})
	if err != nil {
		return "", err
	}

	at := lkauth.NewAccessToken(l.apiKey, l.apiSecret)
	grant := &lkauth.VideoGrant{
		RoomJoin:  true,
		Room:      spec.RoomName,
		RoomAdmin: spec.IsOwner,
	}
	at.AddGrant(grant).
		SetIdentity(spec.UserID).
		SetName(spec.UserName).
		SetMetadata(string(metadata)).
		SetValidFor(spec.TTL)

	return at.ToJWT()
}

func (l *LiveKitClient) SendAppMessage(ctx context.Context, roomName string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = l.roomService.SendData(ctx, &livekit.SendDataRequest{
		Room: roomName,
		Data: data,
		Kind: livekit.DataPacket_RELIABLE,
	})
	if err != nil {
		return classifyLiveKitError(err)
	}
	return nil
}

func (l *LiveKitClient) DeleteRoom(ctx context.Context, roomName string) error {
	_, err := l.roomService.DeleteRoom(ctx, &livekit.DeleteRoomRequest{Room: roomName})
	if err != nil {
		return classifyLiveKitError(err)
	}
	return nil
}

func classifyLiveKitError(err error) error {
	var terr twirp.Error
	if errors.As(err, &terr) {
		switch terr.Code() {
		case twirp.AlreadyExists:
			return ErrRoomExists
		case twirp.NotFound:
			return ErrRoomNotFound
		}
	}
	return err
}
