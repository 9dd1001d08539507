package api

import (
	"time"

	"github.com/voiceflowhq/collab/domain/entities"
	"github.com/voiceflowhq/collab/domain/repositories"
)

// RegisterRequest is the payload for creating a user account
type RegisterRequest struct {
	Email    string `json:"email" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginRequest is the payload for password login
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse carries a signed token for subsequent requests
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
}

// VoiceEnrollRequest carries the samples captured during enrollment.
// Exactly three samples and three passphrases are required.
type VoiceEnrollRequest struct {
	Samples     []entities.VoiceFeatureVector `json:"samples"`
	Passphrases []string                      `json:"passphrases"`
}

// VoiceEnrollResponse confirms enrollment
type VoiceEnrollResponse struct {
	Fingerprint string    `json:"fingerprint"`
	EnrolledAt  time.Time `json:"enrolled_at"`
}

// VoiceLoginRequest is the payload for voice-biometric login
type VoiceLoginRequest struct {
	Email  string                      `json:"email" validate:"required"`
	Sample entities.VoiceFeatureVector `json:"sample"`
}

// CreateWorkspaceRequest is the payload for creating a workspace. When
// Rooms is empty the workspace gets the default room layout.
type CreateWorkspaceRequest struct {
	Name  string          `json:"name" validate:"required"`
	Rooms []entities.Room `json:"rooms,omitempty"`
}

// StartSessionRequest is the payload for starting a collaboration session
type StartSessionRequest struct {
	WorkspaceID string `json:"workspace_id" validate:"required"`
	Type        string `json:"type,omitempty"`
	Room        string `json:"room,omitempty"`
}

// StartSessionResponse identifies the created session
type StartSessionResponse struct {
	SessionID   string    `json:"session_id"`
	WorkspaceID string    `json:"workspace_id"`
	Room        string    `json:"room"`
	StartTime   time.Time `json:"start_time"`
}

// VoiceCommandRequest carries a spoken command into a session, either as
// an already-transcribed string or as raw audio to transcribe first.
type VoiceCommandRequest struct {
	Transcript string `json:"transcript,omitempty"`
	Audio      []byte `json:"audio,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
	Encoding   string `json:"encoding,omitempty"`
	Language   string `json:"language,omitempty"`
}

// VoiceCommandResponse reports what the dispatcher did with the command
type VoiceCommandResponse struct {
	Transcript string            `json:"transcript"`
	Matched    bool              `json:"matched"`
	Action     string            `json:"action,omitempty"`
	Params     map[string]string `json:"params,omitempty"`
}

// DashboardResponse is the analytics read model served to the dashboard
type DashboardResponse struct {
	repositories.AnalyticsSnapshot
	UserID string `json:"user_id"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
