package entities

import "time"

// VoiceStatus represents a participant's current voice activity state
type VoiceStatus string

const (
	VoiceStatusSpeaking  VoiceStatus = "speaking"
	VoiceStatusListening VoiceStatus = "listening"
	VoiceStatusMuted     VoiceStatus = "muted"
)

// ParticipantState is the lifecycle state of a presence record
type ParticipantState string

const (
	ParticipantJoining ParticipantState = "joining"
	ParticipantActive  ParticipantState = "active"
	ParticipantLeft    ParticipantState = "left"
)

// Location is a participant's current room plus position within it
type Location struct {
	Room     string   `json:"room" bson:"room"`
	Position Position `json:"position" bson:"position"`
}

// Participant is a live presence record for one user in one session.
// Seq is assigned by the presence registry and increases monotonically
// per user; it orders concurrent updates instead of wall-clock time.
type Participant struct {
	UserID      string           `json:"user_id" bson:"user_id"`
	Name        string           `json:"name" bson:"name"`
	Location    Location         `json:"location" bson:"location"`
	VoiceStatus VoiceStatus      `json:"voice_status" bson:"voice_status"`
	State       ParticipantState `json:"state" bson:"state"`
	JoinedAt    time.Time        `json:"joined_at" bson:"joined_at"`
	Seq         uint64           `json:"seq" bson:"seq"`
}

// IsActive reports whether the participant currently holds presence.
func (p *Participant) IsActive() bool {
	return p.State == ParticipantActive
}
