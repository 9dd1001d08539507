package entities

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// SessionType categorizes what a collaboration session is for
type SessionType string

const (
	SessionTypeContentEditing SessionType = "content-editing"
	SessionTypeMeeting        SessionType = "meeting"
	SessionTypeBrainstorming  SessionType = "brainstorming"
	SessionTypeReview         SessionType = "review"
)

// ActivityKind classifies an entry in the session's voice-activity log
type ActivityKind string

const (
	ActivitySpeak      ActivityKind = "speak"
	ActivityCommand    ActivityKind = "command"
	ActivityNavigation ActivityKind = "navigation"
)

// VoiceActivity is one append-only entry in a session's activity log.
// Entries are never mutated after being recorded.
type VoiceActivity struct {
	UserID    string       `json:"user_id" bson:"user_id"`
	Timestamp time.Time    `json:"timestamp" bson:"timestamp"`
	Kind      ActivityKind `json:"kind" bson:"kind"`
	Payload   string       `json:"payload" bson:"payload"`
	Room      string       `json:"room" bson:"room"`
}

// CollaborationSession represents one live collaboration within a
// workspace. It is created when a user starts a session and ends when
// the last participant leaves.
type CollaborationSession struct {
	ID          string          `json:"id" bson:"_id,omitempty"`
	WorkspaceID string          `json:"workspace_id" bson:"workspace_id"`
	Type        SessionType     `json:"type" bson:"type"`
	CurrentRoom string          `json:"current_room" bson:"current_room"`
	StartTime   time.Time       `json:"start_time" bson:"start_time"`
	EndTime     *time.Time      `json:"end_time,omitempty" bson:"end_time,omitempty"`
	Activity    []VoiceActivity `json:"voice_activity" bson:"voice_activity"`
}

// NewCollaborationSession creates a session rooted in the given room.
func NewCollaborationSession(workspaceID string, sessionType SessionType, room string) *CollaborationSession {
	return &CollaborationSession{
		ID:          uuid.NewString(),
		WorkspaceID: workspaceID,
		Type:        sessionType,
		CurrentRoom: room,
		StartTime:   time.Now(),
		Activity:    make([]VoiceActivity, 0),
	}
}

// RecordActivity appends one entry to the activity log.
func (s *CollaborationSession) RecordActivity(userID string, kind ActivityKind, payload, room string) {
	s.Activity = append(s.Activity, VoiceActivity{
		UserID:    userID,
		Timestamp: time.Now(),
		Kind:      kind,
		Payload:   payload,
		Room:      room,
	})
}

// End marks the session finished. Ending twice keeps the first end time.
func (s *CollaborationSession) End() {
	if s.EndTime != nil {
		return
	}
	now := time.Now()
	s.EndTime = &now
}

// Ended reports whether the session has finished.
func (s *CollaborationSession) Ended() bool {
	return s.EndTime != nil
}

func (s *CollaborationSession) Validate() error {
	if s.WorkspaceID == "" {
		return errors.New("workspace_id is required")
	}
	switch s.Type {
	case SessionTypeContentEditing, SessionTypeMeeting, SessionTypeBrainstorming, SessionTypeReview:
	default:
		return errors.New("invalid session type")
	}
	return nil
}
