// Package usecase wires the collaboration core together: sessions,
// presence, command dispatch, and the real-time hubs that serve them.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/voiceflowhq/collab/domain/entities"
	"github.com/voiceflowhq/collab/domain/repositories"
	"github.com/voiceflowhq/collab/internal/command"
	"github.com/voiceflowhq/collab/internal/presence"
	"github.com/voiceflowhq/collab/internal/spatial"
	"github.com/voiceflowhq/collab/internal/websocket"
)

var (
	// ErrWorkspaceNotFound means the workspace does not exist or is inactive.
	ErrWorkspaceNotFound = errors.New("workspace not found")
	// ErrNotAMember means the user has no membership in the workspace.
	ErrNotAMember = errors.New("user is not a workspace member")
	// ErrSessionNotFound means no live session carries the given ID.
	ErrSessionNotFound = errors.New("session not found")
)

// unrecognizedCue is spoken back when a transcript matches no command.
const unrecognizedCue = "Command not recognized"

// liveSession bundles the runtime state of one active session. The
// registry is the authority on presence; the hub fans its changes out.
type liveSession struct {
	session    *entities.CollaborationSession
	registry   *presence.Registry
	dispatcher *command.Dispatcher
	hub        *websocket.Hub
}

// CollaborationService owns the lifecycle of collaboration sessions and
// the live state attached to them.
type CollaborationService struct {
	mu   sync.Mutex
	live map[string]*liveSession

	workspaces  repositories.WorkspaceRepository
	sessions    repositories.SessionRepository
	cues        repositories.AudioCueProvider
	interpreter repositories.CommandInterpreter

	logger *zap.Logger
}

// CollaborationOption configures a CollaborationService.
type CollaborationOption func(*CollaborationService)

// WithAudioCues installs a provider for spoken feedback cues.
func WithAudioCues(cues repositories.AudioCueProvider) CollaborationOption {
	return func(s *CollaborationService) {
		s.cues = cues
	}
}

// WithCommandInterpreter installs an AI interpreter for transcripts the
// pattern table cannot classify.
func WithCommandInterpreter(interpreter repositories.CommandInterpreter) CollaborationOption {
	return func(s *CollaborationService) {
		s.interpreter = interpreter
	}
}

// NewCollaborationService creates the service.
func NewCollaborationService(
	workspaces repositories.WorkspaceRepository,
	sessions repositories.SessionRepository,
	logger *zap.Logger,
	opts ...CollaborationOption,
) *CollaborationService {
	s := &CollaborationService{
		live:       make(map[string]*liveSession),
		workspaces: workspaces,
		sessions:   sessions,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartSession creates and persists a session in the workspace and
// brings up its live state. The session starts in the workspace's first
// room unless a room is named.
func (s *CollaborationService) StartSession(ctx context.Context, workspaceID, userID string, sessionType entities.SessionType, room string) (*entities.CollaborationSession, error) {
	workspace, err := s.workspaces.GetByID(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load workspace: %w", err)
	}
	if workspace == nil || !workspace.IsActive {
		return nil, ErrWorkspaceNotFound
	}
	if _, ok := workspace.Member(userID); !ok {
		return nil, ErrNotAMember
	}

	if room == "" {
		if len(workspace.Rooms) == 0 {
			return nil, errors.New("workspace has no rooms")
		}
		room = workspace.Rooms[0].ID
	} else if _, ok := workspace.Room(room); !ok {
		return nil, presence.ErrUnknownRoom
	}

	session := entities.NewCollaborationSession(workspaceID, sessionType, room)
	if err := session.Validate(); err != nil {
		return nil, err
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	registry := presence.NewRegistry(workspace, session, s.logger)

	var dispatcherOpts []command.Option
	if s.interpreter != nil {
		dispatcherOpts = append(dispatcherOpts, command.WithInterpreter(s.interpreter))
	}
	dispatcher := command.NewDispatcher(s.logger, dispatcherOpts...)

	hub := websocket.NewHub(workspaceID, registry, dispatcher, s.logger)
	go hub.Run()

	s.mu.Lock()
	s.live[session.ID] = &liveSession{
		session:    session,
		registry:   registry,
		dispatcher: dispatcher,
		hub:        hub,
	}
	s.mu.Unlock()

	s.logger.Info("Collaboration session started",
		zap.String("sessionID", session.ID),
		zap.String("workspaceID", workspaceID),
		zap.String("room", room))

	return session, nil
}

func (s *CollaborationService) liveSession(sessionID string) (*liveSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ls, ok := s.live[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return ls, nil
}

// Hub returns the live hub for a session, for the WebSocket endpoint.
func (s *CollaborationService) Hub(sessionID string) (*websocket.Hub, error) {
	ls, err := s.liveSession(sessionID)
	if err != nil {
		return nil, err
	}
	return ls.hub, nil
}

// JoinSession adds the user to the session's presence.
func (s *CollaborationService) JoinSession(sessionID, userID, name string) (*entities.Participant, error) {
	ls, err := s.liveSession(sessionID)
	if err != nil {
		return nil, err
	}
	return ls.registry.Join(userID, name)
}

// LeaveSession removes the user from the session's presence.
func (s *CollaborationService) LeaveSession(sessionID, userID string) error {
	ls, err := s.liveSession(sessionID)
	if err != nil {
		return err
	}
	ls.registry.Leave(userID)
	return nil
}

// UpdateLocation moves the user within the session's workspace.
func (s *CollaborationService) UpdateLocation(sessionID, userID, roomID string, x, y, z float64) error {
	ls, err := s.liveSession(sessionID)
	if err != nil {
		return err
	}
	return ls.registry.UpdateLocation(userID, roomID, x, y, z)
}

// HandleTranscript dispatches a transcript as a voice command, records
// it in the session's activity log, and speaks an audio cue when the
// transcript matches nothing.
func (s *CollaborationService) HandleTranscript(ctx context.Context, sessionID, userID, transcript string) (command.DispatchResult, error) {
	ls, err := s.liveSession(sessionID)
	if err != nil {
		return command.DispatchResult{}, err
	}

	participant, ok := ls.registry.Participant(userID)
	if !ok || !participant.IsActive() {
		return command.DispatchResult{}, presence.ErrUnknownParticipant
	}

	result := ls.dispatcher.Dispatch(ctx, transcript)
	if err := ls.registry.RecordCommand(userID, transcript); err != nil {
		return command.DispatchResult{}, err
	}

	if !result.Matched && s.cues != nil {
		if err := s.cues.Speak(ctx, unrecognizedCue, participant.Location.Position); err != nil {
			s.logger.Warn("Failed to speak audio cue", zap.Error(err))
		}
	}

	return result, nil
}

// ListNearby reports the other active participants within range of the
// user, nearest first.
func (s *CollaborationService) ListNearby(sessionID, userID string, rangeLimit float64) ([]spatial.Echo, error) {
	ls, err := s.liveSession(sessionID)
	if err != nil {
		return nil, err
	}
	return ls.registry.ListNearby(userID, rangeLimit)
}

// EndSession finishes the session, persists its final state, and tears
// down the live machinery.
func (s *CollaborationService) EndSession(ctx context.Context, sessionID string) error {
	ls, err := s.liveSession(sessionID)
	if err != nil {
		return err
	}

	ls.session.End()
	if err := s.sessions.Update(ctx, ls.session); err != nil {
		return fmt.Errorf("failed to persist ended session: %w", err)
	}

	s.mu.Lock()
	delete(s.live, sessionID)
	s.mu.Unlock()

	// Without this the hub's run loop would outlive the session.
	ls.hub.Stop()

	s.logger.Info("Collaboration session ended",
		zap.String("sessionID", sessionID))
	return nil
}

// EndIdleSessions implements websocket.IdleSessionEnder: sessions whose
// last participant has left are ended and persisted.
func (s *CollaborationService) EndIdleSessions(ctx context.Context) (int, error) {
	s.mu.Lock()
	idle := make([]string, 0)
	for id, ls := range s.live {
		if ls.registry.ActiveCount() == 0 {
			idle = append(idle, id)
		}
	}
	s.mu.Unlock()

	closed := 0
	for _, id := range idle {
		if err := s.EndSession(ctx, id); err != nil {
			if errors.Is(err, ErrSessionNotFound) {
				continue
			}
			return closed, err
		}
		closed++
	}
	return closed, nil
}

// ActiveSessions lists the IDs of sessions with live state.
func (s *CollaborationService) ActiveSessions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.live))
	for id := range s.live {
		ids = append(ids, id)
	}
	return ids
}
