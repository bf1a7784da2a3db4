package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"workshop-backend/config"
	"workshop-backend/internal/auth"
	"workshop-backend/internal/database"
	"workshop-backend/internal/models"
	"workshop-backend/internal/repository"
	"workshop-backend/internal/session"
	"workshop-backend/internal/video"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

var testStart = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type fakeGateway struct {
	mu        sync.Mutex
	createErr error
	sendErr   error
	deleted   []string
}

func (f *fakeGateway) CreateRoom(ctx context.Context, spec video.RoomSpec) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createErr
}

func (f *fakeGateway) CreateMeetingToken(ctx context.Context, spec video.TokenSpec) (string, error) {
	return "meeting-token-" + spec.UserID, nil
}

func (f *fakeGateway) SendAppMessage(ctx context.Context, roomName string, payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sendErr
}

func (f *fakeGateway) DeleteRoom(ctx context.Context, roomName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, roomName)
	return nil
}

type testEnv struct {
	app       *fiber.App
	db        *gorm.DB
	gateway   *fakeGateway
	authCfg   *config.AuthConfig
	workshops *repository.WorkshopRepository
	users     *repository.UserRepository
	video     *VideoHandler
}

func setupTestApp(t *testing.T) *testEnv {
	db, err := database.OpenTestDB()
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(func() { database.Close(db) })

	authCfg := &config.AuthConfig{JWTSecret: "test-secret", TokenDuration: 1}
	videoCfg := &config.VideoConfig{Domain: "example.daily.co", RoomPrefix: "workshop"}
	gateway := &fakeGateway{}
	clock := func() time.Time { return testStart }

	workshopRepo := repository.NewWorkshopRepository(db)
	participantRepo := repository.NewParticipantRepository(db)
	rulesRepo := repository.NewRulesRepository(db)
	userRepo := repository.NewUserRepository(db)

	rooms := session.NewRoomProvisioner(gateway, workshopRepo, videoCfg.RoomPrefix, time.Second)
	resolver := session.NewRulesResolver(workshopRepo, rulesRepo)
	admission := session.NewAdmission(workshopRepo, participantRepo, userRepo, rooms, resolver, gateway,
		session.AdmissionConfig{RoomURL: videoCfg.RoomURL, TokenTTL: 10 * time.Minute, Timeout: time.Second},
		clock)
	host := session.NewHostControl(workshopRepo, rulesRepo, gateway, time.Second, clock)

	videoHandler := NewVideoHandler(admission, resolver, host, "hook-secret")

	app := fiber.New()
	RegisterRoutes(app, Handlers{
		Auth:      NewAuthHandler(auth.NewAuthService(userRepo, authCfg)),
		Users:     NewUsersHandler(userRepo),
		Workshops: NewWorkshopHandler(workshopRepo, participantRepo, rooms),
		Video:     videoHandler,
		Health:    NewHealthHandler(db),
	}, authCfg)

	return &testEnv{
		app:       app,
		db:        db,
		gateway:   gateway,
		authCfg:   authCfg,
		workshops: workshopRepo,
		users:     userRepo,
		video:     videoHandler,
	}
}

func (e *testEnv) createUser(t *testing.T, id string, role models.UserRole) string {
	user := &models.User{ID: id, Email: id + "@example.com", Name: "User " + id, Role: role, IsActive: true}
	if err := e.users.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	token, err := auth.GenerateToken(user, e.authCfg)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	return token
}

func (e *testEnv) createWorkshop(t *testing.T, trainerID string, maxParticipants int) *models.Workshop {
	workshop := &models.Workshop{
		TrainerID:       trainerID,
		Title:           "Morning breathwork",
		StartTime:       testStart,
		DurationMinutes: 60,
		MaxParticipants: maxParticipants,
	}
	if err := e.workshops.CreateWorkshop(context.Background(), workshop); err != nil {
		t.Fatalf("Failed to create workshop: %v", err)
	}
	return workshop
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}
	return resp, data
}

func decode(t *testing.T, data []byte, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("Failed to decode %s: %v", data, err)
	}
}

func TestJoinEndpoint(t *testing.T) {
	env := setupTestApp(t)
	trainer := env.createUser(t, "trainer-1", models.RoleTrainer)
	alice := env.createUser(t, "alice", models.RoleUser)
	bob := env.createUser(t, "bob", models.RoleUser)
	workshop := env.createWorkshop(t, "trainer-1", 1)
	path := "/api/v1/video/workshops/" + workshop.ID + "/join"

	resp, body := env.do(t, "POST", path, trainer, nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, body)
	}
	var grant struct {
		Token   string                 `json:"token"`
		RoomURL string                 `json:"room_url"`
		Role    string                 `json:"role"`
		Rules   session.EffectiveRules `json:"rules"`
	}
	decode(t, body, &grant)
	for _, key := range []string{`"room_url"`, `"force_camera_on"`, `"force_mic_muted_on_join"`, `"all_muted"`, `"all_cameras_off"`} {
		if !bytes.Contains(body, []byte(key)) {
			t.Errorf("Expected %s in join response, got %s", key, body)
		}
	}
	if grant.Role != "host" || grant.Token != "meeting-token-trainer-1" {
		t.Errorf("Unexpected grant %+v", grant)
	}
	if grant.RoomURL != "https://example.daily.co/workshop-"+workshop.ID {
		t.Errorf("Unexpected room URL %s", grant.RoomURL)
	}
	if !grant.Rules.CameraOn || !grant.Rules.MicMuted {
		t.Errorf("Expected default rules, got %+v", grant.Rules)
	}

	if resp, body := env.do(t, "POST", path, alice, nil); resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected 200 for alice, got %d: %s", resp.StatusCode, body)
	}

	resp, body = env.do(t, "POST", path, bob, nil)
	if resp.StatusCode != fiber.StatusForbidden {
		t.Fatalf("Expected 403 for full workshop, got %d", resp.StatusCode)
	}
	var errBody map[string]string
	decode(t, body, &errBody)
	if errBody["reason"] != "full" {
		t.Errorf("Expected reason full, got %v", errBody)
	}
}

func TestJoinEndpointHonorsCanceledContext(t *testing.T) {
	env := setupTestApp(t)
	env.createUser(t, "alice", models.RoleUser)
	workshop := env.createWorkshop(t, "trainer-1", 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	app := fiber.New()
	app.Post("/join/:id", func(c *fiber.Ctx) error {
		c.Locals("user", &auth.Claims{UserID: "alice", Role: models.RoleUser})
		c.SetUserContext(ctx)
		return c.Next()
	}, env.video.Join)

	resp, err := app.Test(httptest.NewRequest("POST", "/join/"+workshop.ID, nil))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == fiber.StatusOK {
		t.Fatalf("Expected canceled join to fail, got 200: %s", body)
	}
	if bytes.Contains(body, []byte("meeting-token")) {
		t.Errorf("Expected no token after cancellation, got %s", body)
	}
}

func TestJoinEndpointErrors(t *testing.T) {
	env := setupTestApp(t)
	alice := env.createUser(t, "alice", models.RoleUser)
	workshop := env.createWorkshop(t, "trainer-1", 5)

	if resp, _ := env.do(t, "POST", "/api/v1/video/workshops/"+workshop.ID+"/join", "", nil); resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", resp.StatusCode)
	}

	if resp, _ := env.do(t, "POST", "/api/v1/video/workshops/missing/join", alice, nil); resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}

	env.gateway.createErr = errors.New("connection reset")
	resp, body := env.do(t, "POST", "/api/v1/video/workshops/"+workshop.ID+"/join", alice, nil)
	if resp.StatusCode != fiber.StatusBadGateway {
		t.Fatalf("Expected 502, got %d", resp.StatusCode)
	}
	if bytes.Contains(body, []byte("connection reset")) {
		t.Errorf("Expected upstream detail to stay out of the response, got %s", body)
	}
}

func TestHostActionEndpoint(t *testing.T) {
	env := setupTestApp(t)
	trainer := env.createUser(t, "trainer-1", models.RoleTrainer)
	alice := env.createUser(t, "alice", models.RoleUser)
	workshop := env.createWorkshop(t, "trainer-1", 5)
	path := "/api/v1/video/workshops/" + workshop.ID + "/host-action"

	resp, _ := env.do(t, "POST", path, alice, HostActionRequest{Action: "mute_all"})
	if resp.StatusCode != fiber.StatusForbidden {
		t.Errorf("Expected 403 for non-host, got %d", resp.StatusCode)
	}

	resp, _ = env.do(t, "POST", path, alice, HostActionRequest{Action: "dance"})
	if resp.StatusCode != fiber.StatusForbidden {
		t.Errorf("Expected 403 for non-host with unknown action, got %d", resp.StatusCode)
	}

	resp, _ = env.do(t, "POST", path, trainer, HostActionRequest{Action: "dance"})
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("Expected 400 for unknown action, got %d", resp.StatusCode)
	}

	resp, body := env.do(t, "POST", path, trainer, map[string]string{"action": "cameras_off_all", "target_user_id": "alice"})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, body)
	}
	if !bytes.Contains(body, []byte(`"broadcast_sent":false`)) {
		t.Errorf("Expected broadcast_sent in ack, got %s", body)
	}
	var ack session.Ack
	decode(t, body, &ack)
	if ack.Status != "accepted" || ack.Action != session.ActionCamerasOffAll || ack.BroadcastSent {
		t.Errorf("Unexpected ack %+v", ack)
	}

	resp, body = env.do(t, "GET", "/api/v1/video/workshops/"+workshop.ID+"/rules", alice, nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var raw map[string]interface{}
	decode(t, body, &raw)
	if raw["all_cameras_off"] != true || raw["camera_on"] != false {
		t.Errorf("Expected snake_case rules payload, got %s", body)
	}
	var rules session.EffectiveRules
	decode(t, body, &rules)
	if rules.CameraOn || !rules.AllCamerasOff || !rules.ForceCameraOn {
		t.Errorf("Expected cameras off with policy unchanged, got %+v", rules)
	}
}

func TestRulesEndpoints(t *testing.T) {
	env := setupTestApp(t)
	trainer := env.createUser(t, "trainer-1", models.RoleTrainer)
	alice := env.createUser(t, "alice", models.RoleUser)
	workshop := env.createWorkshop(t, "trainer-1", 5)
	path := "/api/v1/video/workshops/" + workshop.ID + "/rules"

	if resp, _ := env.do(t, "GET", "/api/v1/video/workshops/missing/rules", alice, nil); resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}

	update := map[string]interface{}{"force_mic_muted_on_join": false, "late_join_behavior": "deny"}
	if resp, _ := env.do(t, "PUT", path, alice, update); resp.StatusCode != fiber.StatusForbidden {
		t.Errorf("Expected 403 for non-owner, got %d", resp.StatusCode)
	}

	resp, body := env.do(t, "PUT", path, trainer, update)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, body)
	}
	var rules session.EffectiveRules
	decode(t, body, &rules)
	if rules.MicMuted || rules.LateJoinBehavior != models.LateJoinDeny || !rules.ForceCameraOn {
		t.Errorf("Unexpected rules %+v", rules)
	}

	resp, _ = env.do(t, "PUT", path, trainer, map[string]interface{}{"late_join_behavior": "maybe"})
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("Expected 400 for invalid policy, got %d", resp.StatusCode)
	}
}

func TestWebhookAlwaysAcknowledges(t *testing.T) {
	env := setupTestApp(t)

	for _, body := range []interface{}{
		map[string]string{"event": "participant.joined"},
		"not an object",
	} {
		resp, data := env.do(t, "POST", "/api/v1/video/webhooks/daily", "", body)
		if resp.StatusCode != fiber.StatusOK {
			t.Errorf("Expected 200, got %d", resp.StatusCode)
		}
		var ack StatusResponse
		decode(t, data, &ack)
		if ack.Status != "ok" {
			t.Errorf("Expected status ok, got %+v", ack)
		}
	}
}

func TestWorkshopCRUD(t *testing.T) {
	env := setupTestApp(t)
	trainer := env.createUser(t, "trainer-1", models.RoleTrainer)
	other := env.createUser(t, "trainer-2", models.RoleTrainer)
	alice := env.createUser(t, "alice", models.RoleUser)

	create := CreateWorkshopRequest{
		Title:           "Evening yoga",
		StartTime:       time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second),
		DurationMinutes: 45,
		MaxParticipants: 8,
	}

	if resp, _ := env.do(t, "POST", "/api/v1/workshops", alice, create); resp.StatusCode != fiber.StatusForbidden {
		t.Errorf("Expected 403 for non-trainer, got %d", resp.StatusCode)
	}
	if resp, _ := env.do(t, "POST", "/api/v1/workshops", trainer, CreateWorkshopRequest{Title: "x"}); resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("Expected 400 for invalid workshop, got %d", resp.StatusCode)
	}

	resp, body := env.do(t, "POST", "/api/v1/workshops", trainer, create)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", resp.StatusCode, body)
	}
	var created models.Workshop
	decode(t, body, &created)
	if created.TrainerID != "trainer-1" || created.ID == "" {
		t.Errorf("Unexpected workshop %+v", created)
	}

	resp, body = env.do(t, "GET", "/api/v1/workshops", "", nil)
	var listed []models.Workshop
	decode(t, body, &listed)
	if resp.StatusCode != fiber.StatusOK || len(listed) != 1 {
		t.Errorf("Expected one upcoming workshop, got %d (%d)", len(listed), resp.StatusCode)
	}

	path := "/api/v1/workshops/" + created.ID
	newTitle := "Evening yin yoga"
	if resp, _ := env.do(t, "PATCH", path, other, UpdateWorkshopRequest{Title: &newTitle}); resp.StatusCode != fiber.StatusForbidden {
		t.Errorf("Expected 403 for other trainer, got %d", resp.StatusCode)
	}
	resp, body = env.do(t, "PATCH", path, trainer, UpdateWorkshopRequest{Title: &newTitle})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, body)
	}

	resp, body = env.do(t, "GET", path, "", nil)
	var fetched models.Workshop
	decode(t, body, &fetched)
	if fetched.Title != newTitle || fetched.MaxParticipants != 8 {
		t.Errorf("Unexpected workshop after update %+v", fetched)
	}

	if resp, _ := env.do(t, "DELETE", path, other, nil); resp.StatusCode != fiber.StatusForbidden {
		t.Errorf("Expected 403 for other trainer, got %d", resp.StatusCode)
	}
	if resp, _ := env.do(t, "DELETE", path, trainer, nil); resp.StatusCode != fiber.StatusNoContent {
		t.Errorf("Expected 204, got %d", resp.StatusCode)
	}
	if resp, _ := env.do(t, "GET", path, "", nil); resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", resp.StatusCode)
	}
}

func TestDeleteWorkshopReleasesRoom(t *testing.T) {
	env := setupTestApp(t)
	trainer := env.createUser(t, "trainer-1", models.RoleTrainer)
	workshop := env.createWorkshop(t, "trainer-1", 5)

	if resp, _ := env.do(t, "POST", "/api/v1/video/workshops/"+workshop.ID+"/join", trainer, nil); resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Join failed with %d", resp.StatusCode)
	}
	if resp, _ := env.do(t, "DELETE", "/api/v1/workshops/"+workshop.ID, trainer, nil); resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("Expected 204, got %d", resp.StatusCode)
	}
	if len(env.gateway.deleted) != 1 || env.gateway.deleted[0] != "workshop-"+workshop.ID {
		t.Errorf("Expected room to be deleted, got %v", env.gateway.deleted)
	}
}

func TestRescheduleClearsRoomRelease(t *testing.T) {
	env := setupTestApp(t)
	trainer := env.createUser(t, "trainer-1", models.RoleTrainer)
	workshop := env.createWorkshop(t, "trainer-1", 5)
	ctx := context.Background()
	path := "/api/v1/workshops/" + workshop.ID

	if err := env.workshops.SetVideoRoomID(ctx, workshop.ID, "workshop-"+workshop.ID); err != nil {
		t.Fatalf("SetVideoRoomID failed: %v", err)
	}
	if err := env.workshops.MarkRoomReleased(ctx, workshop.ID, testStart.Add(2*time.Hour)); err != nil {
		t.Fatalf("MarkRoomReleased failed: %v", err)
	}

	if resp, body := env.do(t, "PATCH", path, trainer, map[string]string{"title": "Evening breathwork"}); resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, body)
	}
	stored, _ := env.workshops.GetWorkshop(ctx, workshop.ID)
	if stored.RoomReleasedAt == nil {
		t.Fatal("Expected release marker to survive a title change")
	}

	later := testStart.Add(24 * time.Hour)
	if resp, body := env.do(t, "PATCH", path, trainer, map[string]interface{}{"startTime": later}); resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, body)
	}
	stored, _ = env.workshops.GetWorkshop(ctx, workshop.ID)
	if stored.RoomReleasedAt != nil {
		t.Errorf("Expected release marker to be cleared, got %v", stored.RoomReleasedAt)
	}

	candidates, err := env.workshops.ListRoomsToRelease(ctx, later.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("ListRoomsToRelease failed: %v", err)
	}
	if len(candidates) != 1 || candidates[0].ID != workshop.ID {
		t.Errorf("Expected rescheduled workshop to be released again, got %+v", candidates)
	}
}

func TestListParticipantsEndpoint(t *testing.T) {
	env := setupTestApp(t)
	trainer := env.createUser(t, "trainer-1", models.RoleTrainer)
	alice := env.createUser(t, "alice", models.RoleUser)
	workshop := env.createWorkshop(t, "trainer-1", 5)

	env.do(t, "POST", "/api/v1/video/workshops/"+workshop.ID+"/join", trainer, nil)
	env.do(t, "POST", "/api/v1/video/workshops/"+workshop.ID+"/join", alice, nil)

	path := "/api/v1/workshops/" + workshop.ID + "/participants"
	if resp, _ := env.do(t, "GET", path, alice, nil); resp.StatusCode != fiber.StatusForbidden {
		t.Errorf("Expected 403 for participant, got %d", resp.StatusCode)
	}

	resp, body := env.do(t, "GET", path, trainer, nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var participants []ParticipantInfo
	decode(t, body, &participants)
	if len(participants) != 2 {
		t.Fatalf("Expected 2 participants, got %d", len(participants))
	}
	roles := map[string]string{}
	for _, p := range participants {
		roles[p.UserID] = p.Role
	}
	if roles["trainer-1"] != "host" || roles["alice"] != "participant" {
		t.Errorf("Unexpected roles %v", roles)
	}
	if participants[0].Email == "" {
		t.Error("Expected user details to be loaded")
	}
}

func TestAuthEndpoints(t *testing.T) {
	env := setupTestApp(t)

	creds := map[string]string{"email": "ada@example.com", "password": "hunter22", "name": "Ada"}
	resp, body := env.do(t, "POST", "/api/v1/auth/register", "", creds)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", resp.StatusCode, body)
	}
	if resp, _ := env.do(t, "POST", "/api/v1/auth/register", "", creds); resp.StatusCode != fiber.StatusConflict {
		t.Errorf("Expected 409 for duplicate, got %d", resp.StatusCode)
	}

	if resp, _ := env.do(t, "POST", "/api/v1/auth/login", "", map[string]string{"email": "ada@example.com", "password": "nope"}); resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("Expected 401 for wrong password, got %d", resp.StatusCode)
	}

	resp, body = env.do(t, "POST", "/api/v1/auth/login", "", creds)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, body)
	}
	var login auth.LoginResponse
	decode(t, body, &login)
	if login.AccessToken == "" {
		t.Fatal("Expected access token")
	}

	resp, body = env.do(t, "GET", "/api/v1/users/me", login.AccessToken, nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var me models.User
	decode(t, body, &me)
	if me.Email != "ada@example.com" || me.Role != models.RoleUser {
		t.Errorf("Unexpected user %+v", me)
	}
	if bytes.Contains(body, []byte("hunter22")) || bytes.Contains(body, []byte("password")) {
		t.Errorf("Expected password to stay out of the response, got %s", body)
	}
}

func TestHealthEndpoints(t *testing.T) {
	env := setupTestApp(t)

	for _, path := range []string{"/health", "/ready"} {
		if resp, _ := env.do(t, "GET", path, "", nil); resp.StatusCode != fiber.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, resp.StatusCode)
		}
	}
}
