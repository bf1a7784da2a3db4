package video

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// DailyClient is a Gateway backed by the Daily.co REST API.
type DailyClient struct {
	apiBase string
	apiKey  string
	timeout time.Duration
	now     func() time.Time
}

func NewDailyClient(apiBase, apiKey string, timeout time.Duration) *DailyClient {
	return &DailyClient{
		apiBase: strings.TrimSuffix(apiBase, "/"),
		apiKey:  apiKey,
		timeout: timeout,
		now:     time.Now,
	}
}

var _ Gateway = (*DailyClient)(nil)

type dailyRoomRequest struct {
	Name       string              `json:"name"`
	Properties dailyRoomProperties `json:"properties"`
}

type dailyRoomProperties struct {
	MaxParticipants   int   `json:"max_participants"`
	Exp               int64 `json:"exp"`
	EnableChat        bool  `json:"enable_chat"`
	StartVideoOff     bool  `json:"start_video_off"`
	StartAudioOff     bool  `json:"start_audio_off"`
	EnableScreenshare bool  `json:"enable_screenshare"`
	EnableRecording   bool  `json:"enable_recording"`
	EnableKnocking    bool  `json:"enable_knocking"`
}

type dailyTokenRequest struct {
	Properties dailyTokenProperties `json:"properties"`
}

type dailyTokenProperties struct {
	RoomName          string `json:"room_name"`
	UserName          string `json:"user_name"`
	UserID            string `json:"user_id"`
	IsOwner           bool   `json:"is_owner"`
	Exp               int64  `json:"exp"`
	StartVideoOff     bool   `json:"start_video_off"`
	StartAudioOff     bool   `json:"start_audio_off"`
	EnableScreenshare bool   `json:"enable_screenshare"`
}

type dailyAppMessage struct {
	Data      interface{} `json:"data"`
	Recipient string      `json:"recipient"`
}

func (d *DailyClient) CreateRoom(ctx context.Context, spec RoomSpec) error {
	body := dailyRoomRequest{
		Name: spec.Name,
		Properties: dailyRoomProperties{
			MaxParticipants: spec.MaxParticipants + 1, // +1 for host
			Exp:             roomExpiry(spec, d.now().UTC()).Unix(),
			EnableChat:      true,
			StartVideoOff:   false,
			StartAudioOff:   true,
		},
	}

	status, resp, err := d.do(ctx, fiber.MethodPost, "/rooms", body)
	if err != nil {
		return err
	}
	if status == fiber.StatusOK {
		return nil
	}
	if status == fiber.StatusConflict || strings.Contains(string(resp), "already exists") {
		return ErrRoomExists
	}
	log.Error().Int("status", status).Str("body", string(resp)).Msg("Daily create_room failed")
	return &APIError{Op: "create_room", Status: status, Body: string(resp)}
}

func (d *DailyClient) CreateMeetingToken(ctx context.Context, spec TokenSpec) (string, error) {
	body := dailyTokenRequest{
		Properties: dailyTokenProperties{
			RoomName:      spec.RoomName,
			UserName:      spec.UserName,
			UserID:        spec.UserID,
			IsOwner:       spec.IsOwner,
			Exp:           d.now().UTC().Add(spec.TTL).Unix(),
			StartVideoOff: spec.StartVideoOff,
			StartAudioOff: spec.StartAudioOff,
		},
	}

	status, resp, err := d.do(ctx, fiber.MethodPost, "/meeting-tokens", body)
	if err != nil {
		return "", err
	}
	if status != fiber.StatusOK {
		log.Error().Int("status", status).Str("body", string(resp)).Msg("Daily create_token failed")
		return "", &APIError{Op: "create_meeting_token", Status: status, Body: string(resp)}
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(resp, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", &APIError{Op: "create_meeting_token", Status: status, Body: "empty token"}
	}
	return out.Token, nil
}

func (d *DailyClient) SendAppMessage(ctx context.Context, roomName string, payload interface{}) error {
	path := "/rooms/" + url.PathEscape(roomName) + "/send-app-message"
	status, resp, err := d.do(ctx, fiber.MethodPost, path, dailyAppMessage{Data: payload, Recipient: "*"})
	if err != nil {
		return err
	}
	if status != fiber.StatusOK {
		log.Error().Int("status", status).Str("body", string(resp)).Msg("Daily send_app_message failed")
		return &APIError{Op: "send_app_message", Status: status, Body: string(resp)}
	}
	return nil
}

func (d *DailyClient) DeleteRoom(ctx context.Context, roomName string) error {
	status, resp, err := d.do(ctx, fiber.MethodDelete, "/rooms/"+url.PathEscape(roomName), nil)
	if err != nil {
		return err
	}
	switch status {
	case fiber.StatusOK:
		return nil
	case fiber.StatusNotFound:
		return ErrRoomNotFound
	}
	log.Error().Int("status", status).Str("body", string(resp)).Msg("Daily delete_room failed")
	return &APIError{Op: "delete_room", Status: status, Body: string(resp)}
}

// do sends one request. The fasthttp agent has no context support, so the
// context is consulted before sending and its deadline caps the timeout.
func (d *DailyClient) do(ctx context.Context, method, path string, body interface{}) (int, []byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}

	timeout := d.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout || timeout <= 0 {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return 0, nil, context.DeadlineExceeded
	}

	agent := fiber.AcquireAgent()
	req := agent.Request()
	req.Header.SetMethod(method)
	req.SetRequestURI(d.apiBase + path)
	if err := agent.Parse(); err != nil {
		fiber.ReleaseAgent(agent)
		return 0, nil, err
	}

	agent.Set(fiber.HeaderAuthorization, "Bearer "+d.apiKey)
	agent.Timeout(timeout)
	if body != nil {
		agent.JSON(body)
	}

	status, resp, errs := agent.Bytes()
	if len(errs) > 0 {
		return 0, nil, errors.Join(errs...)
	}
	return status, resp, nil
}
