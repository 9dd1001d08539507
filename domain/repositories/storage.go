package repositories

import (
	"context"

	"github.com/voiceflowhq/collab/domain/entities"
)

// UserRepository defines data access methods for users
type UserRepository interface {
	Create(ctx context.Context, user *entities.User) error
	GetByID(ctx context.Context, id string) (*entities.User, error)
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
	Update(ctx context.Context, user *entities.User) error
}

// WorkspaceRepository defines data access methods for workspaces. The
// presence registry itself never touches persistence; its caller loads
// workspace and room definitions through this interface.
type WorkspaceRepository interface {
	Create(ctx context.Context, workspace *entities.Workspace) error
	GetByID(ctx context.Context, id string) (*entities.Workspace, error)
	GetByMember(ctx context.Context, userID string) ([]*entities.Workspace, error)
	Update(ctx context.Context, workspace *entities.Workspace) error
	Delete(ctx context.Context, id string) error
}

// SessionRepository defines data access methods for collaboration sessions
type SessionRepository interface {
	Create(ctx context.Context, session *entities.CollaborationSession) error
	GetByID(ctx context.Context, id string) (*entities.CollaborationSession, error)
	GetActiveByWorkspace(ctx context.Context, workspaceID string) ([]*entities.CollaborationSession, error)
	Update(ctx context.Context, session *entities.CollaborationSession) error
}

// VoiceProfileRepository defines data access methods for enrolled
// voice-biometric profiles
type VoiceProfileRepository interface {
	Save(ctx context.Context, profile *entities.VoiceProfile) error
	GetByUserID(ctx context.Context, userID string) (*entities.VoiceProfile, error)
	Delete(ctx context.Context, userID string) error
}

// AnalyticsSnapshot is a pre-computed per-user read model. The core
// consumes it as-is; aggregation happens elsewhere.
type AnalyticsSnapshot struct {
	TotalContent        int `json:"total_content"`
	TotalWorkspaces     int `json:"total_workspaces"`
	VoiceSessions       int `json:"voice_sessions"`
	SpatialInteractions int `json:"spatial_interactions"`
}

// AnalyticsReader serves cached analytics read models
type AnalyticsReader interface {
	Get(ctx context.Context, userID string) (*AnalyticsSnapshot, error)
	Put(ctx context.Context, userID string, snapshot *AnalyticsSnapshot) error
}
