package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/voiceflowhq/collab/adapters"
	"github.com/voiceflowhq/collab/domain/entities"
	"github.com/voiceflowhq/collab/internal/command"
	"github.com/voiceflowhq/collab/internal/presence"
)

type recordingCues struct {
	mu        sync.Mutex
	messages  []string
	positions []entities.Position
}

func (r *recordingCues) Speak(ctx context.Context, message string, position entities.Position) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
	r.positions = append(r.positions, position)
	return nil
}

func (r *recordingCues) spoken() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

func testServiceWorkspace(t *testing.T) (*CollaborationService, *entities.Workspace, *adapters.MemorySessionRepository, *recordingCues) {
	t.Helper()

	owner := entities.User{ID: "owner-1", Email: "owner@example.com", Name: "Owner"}
	ws := entities.NewWorkspace("Studio", owner)
	ws.Rooms = []entities.Room{
		{
			ID:       "lobby",
			Name:     "Lobby",
			Capacity: 10,
			Permissions: entities.RoomPermissions{
				WhoCanEnter: entities.PermissionEveryone,
				WhoCanSpeak: entities.PermissionEveryone,
				WhoCanEdit:  entities.PermissionMembers,
			},
		},
		{
			ID:       "blog-room",
			Name:     "Blog Room",
			Position: entities.Position{X: 10, Y: 0, Z: 5},
			Capacity: 4,
			Permissions: entities.RoomPermissions{
				WhoCanEnter: entities.PermissionMembers,
				WhoCanSpeak: entities.PermissionMembers,
				WhoCanEdit:  entities.PermissionMembers,
			},
		},
	}
	ws.AddMember(entities.WorkspaceMember{UserID: "editor-1", Name: "Editor", Role: entities.MemberRoleEditor})

	workspaceRepo := adapters.NewMemoryWorkspaceRepository()
	if err := workspaceRepo.Create(context.Background(), ws); err != nil {
		t.Fatalf("Failed to seed workspace: %v", err)
	}

	sessionRepo := adapters.NewMemorySessionRepository()
	cues := &recordingCues{}

	service := NewCollaborationService(workspaceRepo, sessionRepo, zap.NewNop(),
		WithAudioCues(cues))
	return service, ws, sessionRepo, cues
}

func TestStartSessionPersistsAndDefaultsRoom(t *testing.T) {
	service, ws, sessionRepo, _ := testServiceWorkspace(t)

	session, err := service.StartSession(context.Background(), ws.ID, "owner-1", entities.SessionTypeContentEditing, "")
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if session.CurrentRoom != "lobby" {
		t.Errorf("CurrentRoom = %q, want lobby", session.CurrentRoom)
	}

	stored, err := sessionRepo.GetByID(context.Background(), session.ID)
	if err != nil || stored == nil {
		t.Fatalf("Session not persisted: %v, %v", stored, err)
	}

	if _, err := service.Hub(session.ID); err != nil {
		t.Errorf("Hub lookup failed: %v", err)
	}
}

func TestStartSessionRejectsOutsiders(t *testing.T) {
	service, ws, _, _ := testServiceWorkspace(t)

	if _, err := service.StartSession(context.Background(), ws.ID, "stranger", entities.SessionTypeContentEditing, ""); !errors.Is(err, ErrNotAMember) {
		t.Errorf("Expected ErrNotAMember, got %v", err)
	}
	if _, err := service.StartSession(context.Background(), "no-such-workspace", "owner-1", entities.SessionTypeContentEditing, ""); !errors.Is(err, ErrWorkspaceNotFound) {
		t.Errorf("Expected ErrWorkspaceNotFound, got %v", err)
	}
	if _, err := service.StartSession(context.Background(), ws.ID, "owner-1", entities.SessionTypeContentEditing, "no-such-room"); !errors.Is(err, presence.ErrUnknownRoom) {
		t.Errorf("Expected ErrUnknownRoom, got %v", err)
	}
}

func TestJoinAndLeaveSession(t *testing.T) {
	service, ws, _, _ := testServiceWorkspace(t)

	session, err := service.StartSession(context.Background(), ws.ID, "owner-1", entities.SessionTypeContentEditing, "")
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	p, err := service.JoinSession(session.ID, "editor-1", "Editor")
	if err != nil {
		t.Fatalf("JoinSession failed: %v", err)
	}
	if p.Location.Room != "lobby" {
		t.Errorf("Room = %q, want lobby", p.Location.Room)
	}

	if err := service.UpdateLocation(session.ID, "editor-1", "blog-room", 10, 0, 5); err != nil {
		t.Fatalf("UpdateLocation failed: %v", err)
	}
	if err := service.LeaveSession(session.ID, "editor-1"); err != nil {
		t.Fatalf("LeaveSession failed: %v", err)
	}

	if _, err := service.JoinSession("no-such-session", "editor-1", "Editor"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestHandleTranscriptMatchedCommand(t *testing.T) {
	service, ws, _, cues := testServiceWorkspace(t)

	session, _ := service.StartSession(context.Background(), ws.ID, "owner-1", entities.SessionTypeContentEditing, "")
	if _, err := service.JoinSession(session.ID, "editor-1", "Editor"); err != nil {
		t.Fatalf("JoinSession failed: %v", err)
	}

	result, err := service.HandleTranscript(context.Background(), session.ID, "editor-1", "navigate to blog room")
	if err != nil {
		t.Fatalf("HandleTranscript failed: %v", err)
	}
	if !result.Matched || result.Action != command.ActionNavigate {
		t.Errorf("Result = %+v, want matched navigate", result)
	}
	if len(cues.spoken()) != 0 {
		t.Errorf("No cue expected for a matched command, got %v", cues.spoken())
	}

	if len(session.Activity) != 1 || session.Activity[0].Kind != entities.ActivityCommand {
		t.Errorf("Activity = %+v, want one command entry", session.Activity)
	}
}

func TestHandleTranscriptUnmatchedSpeaksCue(t *testing.T) {
	service, ws, _, cues := testServiceWorkspace(t)

	session, _ := service.StartSession(context.Background(), ws.ID, "owner-1", entities.SessionTypeContentEditing, "")
	if _, err := service.JoinSession(session.ID, "editor-1", "Editor"); err != nil {
		t.Fatalf("JoinSession failed: %v", err)
	}

	result, err := service.HandleTranscript(context.Background(), session.ID, "editor-1", "what a lovely day")
	if err != nil {
		t.Fatalf("HandleTranscript failed: %v", err)
	}
	if result.Matched {
		t.Errorf("Expected unmatched result, got %+v", result)
	}

	spoken := cues.spoken()
	if len(spoken) != 1 || spoken[0] != "Command not recognized" {
		t.Errorf("Spoken cues = %v, want one rejection cue", spoken)
	}
}

func TestHandleTranscriptRequiresActiveParticipant(t *testing.T) {
	service, ws, _, _ := testServiceWorkspace(t)

	session, _ := service.StartSession(context.Background(), ws.ID, "owner-1", entities.SessionTypeContentEditing, "")

	if _, err := service.HandleTranscript(context.Background(), session.ID, "editor-1", "help"); !errors.Is(err, presence.ErrUnknownParticipant) {
		t.Errorf("Expected ErrUnknownParticipant, got %v", err)
	}
}

func TestListNearbyThroughService(t *testing.T) {
	service, ws, _, _ := testServiceWorkspace(t)

	session, _ := service.StartSession(context.Background(), ws.ID, "owner-1", entities.SessionTypeContentEditing, "")
	if _, err := service.JoinSession(session.ID, "owner-1", "Owner"); err != nil {
		t.Fatalf("Join owner failed: %v", err)
	}
	if _, err := service.JoinSession(session.ID, "editor-1", "Editor"); err != nil {
		t.Fatalf("Join editor failed: %v", err)
	}

	echoes, err := service.ListNearby(session.ID, "owner-1", 25)
	if err != nil {
		t.Fatalf("ListNearby failed: %v", err)
	}
	if len(echoes) != 1 || echoes[0].Contact.ID != "editor-1" {
		t.Errorf("Echoes = %+v, want just editor-1", echoes)
	}
}

func TestEndIdleSessionsClosesEmptyOnes(t *testing.T) {
	service, ws, sessionRepo, _ := testServiceWorkspace(t)

	busy, _ := service.StartSession(context.Background(), ws.ID, "owner-1", entities.SessionTypeContentEditing, "")
	idle, _ := service.StartSession(context.Background(), ws.ID, "owner-1", entities.SessionTypeMeeting, "")

	if _, err := service.JoinSession(busy.ID, "owner-1", "Owner"); err != nil {
		t.Fatalf("JoinSession failed: %v", err)
	}
	if _, err := service.JoinSession(idle.ID, "editor-1", "Editor"); err != nil {
		t.Fatalf("JoinSession failed: %v", err)
	}
	if err := service.LeaveSession(idle.ID, "editor-1"); err != nil {
		t.Fatalf("LeaveSession failed: %v", err)
	}

	closed, err := service.EndIdleSessions(context.Background())
	if err != nil {
		t.Fatalf("EndIdleSessions failed: %v", err)
	}
	if closed != 1 {
		t.Errorf("closed = %d, want 1", closed)
	}

	stored, err := sessionRepo.GetByID(context.Background(), idle.ID)
	if err != nil || stored == nil || !stored.Ended() {
		t.Errorf("Idle session should be ended and persisted, got %+v, %v", stored, err)
	}

	if _, err := service.Hub(idle.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Idle session should be torn down, got %v", err)
	}
	if _, err := service.Hub(busy.ID); err != nil {
		t.Errorf("Busy session should survive, got %v", err)
	}
}

func TestEndSessionStopsHub(t *testing.T) {
	service, ws, _, _ := testServiceWorkspace(t)

	session, _ := service.StartSession(context.Background(), ws.ID, "owner-1", entities.SessionTypeContentEditing, "")
	hub, err := service.Hub(session.ID)
	if err != nil {
		t.Fatalf("Hub lookup failed: %v", err)
	}

	if err := service.EndSession(context.Background(), session.ID); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}

	select {
	case <-hub.Done():
	default:
		t.Error("Hub still running after EndSession")
	}
}

func TestEndIdleSessionsStopHubs(t *testing.T) {
	service, ws, _, _ := testServiceWorkspace(t)

	idle, _ := service.StartSession(context.Background(), ws.ID, "owner-1", entities.SessionTypeContentEditing, "")
	hub, err := service.Hub(idle.ID)
	if err != nil {
		t.Fatalf("Hub lookup failed: %v", err)
	}

	if _, err := service.EndIdleSessions(context.Background()); err != nil {
		t.Fatalf("EndIdleSessions failed: %v", err)
	}

	select {
	case <-hub.Done():
	default:
		t.Error("Hub still running after idle sweep")
	}
}

func TestEndSessionIsPersisted(t *testing.T) {
	service, ws, sessionRepo, _ := testServiceWorkspace(t)

	session, _ := service.StartSession(context.Background(), ws.ID, "owner-1", entities.SessionTypeContentEditing, "")

	if err := service.EndSession(context.Background(), session.ID); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}
	stored, err := sessionRepo.GetByID(context.Background(), session.ID)
	if err != nil || stored == nil || !stored.Ended() {
		t.Errorf("Ended session not persisted, got %+v, %v", stored, err)
	}
	if err := service.EndSession(context.Background(), session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Second EndSession: expected ErrSessionNotFound, got %v", err)
	}
}
