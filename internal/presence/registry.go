// Package presence holds the authoritative in-memory model of who is
// where in a workspace session. All mutation goes through Registry so
// the room/occupancy invariant holds at every observable moment.
package presence

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/voiceflowhq/collab/domain/entities"
	"github.com/voiceflowhq/collab/internal/spatial"
)

var (
	// ErrSessionFull means the workspace member cap or room capacity is
	// exceeded.
	ErrSessionFull = errors.New("session is full")
	// ErrAlreadyJoined means the user already holds an active participant
	// in this session. Deliberately not an idempotent no-op, so
	// duplicate-join bugs surface at the caller.
	ErrAlreadyJoined = errors.New("user already joined this session")
	// ErrUnknownParticipant means the user has no active participant.
	ErrUnknownParticipant = errors.New("unknown participant")
	// ErrRoomPermissionDenied means the target room's entry policy
	// excludes the user's role.
	ErrRoomPermissionDenied = errors.New("room entry permission denied")
	// ErrUnknownRoom means the target room does not exist in the
	// workspace layout.
	ErrUnknownRoom = errors.New("unknown room")
)

// Registry tracks participants for one workspace session. One instance
// exists per active session, created with it and discarded when it ends;
// it is handed to collaborating components by reference, never held as
// a package-level singleton.
type Registry struct {
	mu           sync.Mutex
	workspace    *entities.Workspace
	session      *entities.CollaborationSession
	participants map[string]*entities.Participant
	occupants    map[string]map[string]struct{}
	seq          map[string]uint64
	logger       *zap.Logger
}

// NewRegistry creates a registry for a session. Room occupancy starts
// empty; the workspace defines the static room layout.
func NewRegistry(workspace *entities.Workspace, session *entities.CollaborationSession, logger *zap.Logger) *Registry {
	occupants := make(map[string]map[string]struct{}, len(workspace.Rooms))
	for _, room := range workspace.Rooms {
		occupants[room.ID] = make(map[string]struct{})
	}
	return &Registry{
		workspace:    workspace,
		session:      session,
		participants: make(map[string]*entities.Participant),
		occupants:    occupants,
		seq:          make(map[string]uint64),
		logger:       logger,
	}
}

// Session returns the session this registry serves.
func (r *Registry) Session() *entities.CollaborationSession {
	return r.session
}

// Join creates an active participant for the user in the session's
// current room. Joining twice is an error, not a refresh.
func (r *Registry) Join(userID, name string) (*entities.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.participants[userID]; ok && existing.IsActive() {
		return nil, ErrAlreadyJoined
	}

	active := 0
	for _, p := range r.participants {
		if p.IsActive() {
			active++
		}
	}
	if active >= r.workspace.Settings.MaxMembers {
		return nil, ErrSessionFull
	}

	room, ok := r.workspace.Room(r.session.CurrentRoom)
	if !ok {
		return nil, ErrUnknownRoom
	}
	if room.Capacity > 0 && len(r.occupants[room.ID]) >= room.Capacity {
		return nil, ErrSessionFull
	}

	r.seq[userID]++
	participant := &entities.Participant{
		UserID: userID,
		Name:   name,
		Location: entities.Location{
			Room:     room.ID,
			Position: room.Position,
		},
		VoiceStatus: entities.VoiceStatusListening,
		State:       entities.ParticipantActive,
		JoinedAt:    time.Now(),
		Seq:         r.seq[userID],
	}
	r.participants[userID] = participant
	r.occupants[room.ID][userID] = struct{}{}

	r.logger.Info("Participant joined",
		zap.String("userID", userID),
		zap.String("sessionID", r.session.ID),
		zap.String("room", room.ID))

	return snapshot(participant), nil
}

// UpdateLocation migrates the participant between rooms and updates the
// position, all under one lock hold so no caller ever observes the user
// in both rooms or neither.
func (r *Registry) UpdateLocation(userID, roomID string, x, y, z float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	participant, ok := r.participants[userID]
	if !ok || !participant.IsActive() {
		return ErrUnknownParticipant
	}

	room, ok := r.workspace.Room(roomID)
	if !ok {
		return ErrUnknownRoom
	}
	if !room.Permissions.WhoCanEnter.Allows(r.workspace.RoleOf(userID)) {
		return ErrRoomPermissionDenied
	}

	if participant.Location.Room != room.ID {
		delete(r.occupants[participant.Location.Room], userID)
		r.occupants[room.ID][userID] = struct{}{}
	}
	participant.Location = entities.Location{
		Room:     room.ID,
		Position: entities.Position{X: x, Y: y, Z: z},
	}
	r.seq[userID]++
	participant.Seq = r.seq[userID]

	return nil
}

// SetVoiceStatus updates the participant's voice state. Becoming
// speaking records a speak entry in the session's activity log.
func (r *Registry) SetVoiceStatus(userID string, status entities.VoiceStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	participant, ok := r.participants[userID]
	if !ok || !participant.IsActive() {
		return ErrUnknownParticipant
	}

	previous := participant.VoiceStatus
	participant.VoiceStatus = status
	r.seq[userID]++
	participant.Seq = r.seq[userID]

	if status == entities.VoiceStatusSpeaking && previous != entities.VoiceStatusSpeaking {
		r.session.RecordActivity(userID, entities.ActivitySpeak, "", participant.Location.Room)
	}

	return nil
}

// RecordCommand appends an executed voice command to the session's
// activity log at the participant's current room.
func (r *Registry) RecordCommand(userID, command string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	participant, ok := r.participants[userID]
	if !ok || !participant.IsActive() {
		return ErrUnknownParticipant
	}

	r.session.RecordActivity(userID, entities.ActivityCommand, command, participant.Location.Room)
	return nil
}

// Leave transitions the participant to Left and releases occupancy.
// Idempotent: disconnect events can be delivered more than once.
func (r *Registry) Leave(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	participant, ok := r.participants[userID]
	if !ok || participant.State == entities.ParticipantLeft {
		return
	}

	delete(r.occupants[participant.Location.Room], userID)
	participant.State = entities.ParticipantLeft
	r.seq[userID]++
	participant.Seq = r.seq[userID]

	r.session.RecordActivity(userID, entities.ActivityNavigation, "left", participant.Location.Room)

	r.logger.Info("Participant left",
		zap.String("userID", userID),
		zap.String("sessionID", r.session.ID))
}

// ListNearby runs a radar scan from the user's position over the other
// active participants in the session's workspace.
func (r *Registry) ListNearby(originUserID string, rangeLimit float64) ([]spatial.Echo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	origin, ok := r.participants[originUserID]
	if !ok || !origin.IsActive() {
		return nil, ErrUnknownParticipant
	}

	contacts := make([]spatial.Contact, 0, len(r.participants))
	for _, p := range r.participants {
		if p.UserID == originUserID || !p.IsActive() {
			continue
		}
		contacts = append(contacts, spatial.Contact{
			ID:       p.UserID,
			Position: p.Location.Position,
		})
	}

	return spatial.RadarScan(origin.Location.Position, contacts, rangeLimit), nil
}

// Participant returns a snapshot of one participant.
func (r *Registry) Participant(userID string) (*entities.Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[userID]
	if !ok {
		return nil, false
	}
	return snapshot(p), true
}

// Participants returns a snapshot of all active participants.
func (r *Registry) Participants() []entities.Participant {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]entities.Participant, 0, len(r.participants))
	for _, p := range r.participants {
		if p.IsActive() {
			out = append(out, *p)
		}
	}
	return out
}

// Occupants returns the user IDs currently in a room.
func (r *Registry) Occupants(roomID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.occupants[roomID]))
	for userID := range r.occupants[roomID] {
		out = append(out, userID)
	}
	return out
}

// ActiveCount reports how many participants currently hold presence.
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, p := range r.participants {
		if p.IsActive() {
			n++
		}
	}
	return n
}

func snapshot(p *entities.Participant) *entities.Participant {
	copied := *p
	return &copied
}
