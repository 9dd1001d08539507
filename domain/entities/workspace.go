package entities

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// MemberRole represents a member's role within a workspace
type MemberRole string

const (
	MemberRoleOwner  MemberRole = "owner"
	MemberRoleAdmin  MemberRole = "admin"
	MemberRoleEditor MemberRole = "editor"
	MemberRoleViewer MemberRole = "viewer"
)

// PermissionLevel gates who may enter, speak in, or edit a room
type PermissionLevel string

const (
	PermissionEveryone PermissionLevel = "everyone"
	PermissionMembers  PermissionLevel = "members"
	PermissionAdmins   PermissionLevel = "admins"
)

// RoomPermissions holds the per-room access policy
type RoomPermissions struct {
	WhoCanEnter PermissionLevel `json:"who_can_enter" bson:"who_can_enter"`
	WhoCanSpeak PermissionLevel `json:"who_can_speak" bson:"who_can_speak"`
	WhoCanEdit  PermissionLevel `json:"who_can_edit" bson:"who_can_edit"`
}

// Room is a positioned sub-area of a workspace. Occupancy is a derived
// view owned by the presence registry, never stored on the room itself.
type Room struct {
	ID          string          `json:"id" bson:"id"`
	Name        string          `json:"name" bson:"name"`
	Position    Position        `json:"position" bson:"position"`
	Capacity    int             `json:"capacity" bson:"capacity"`
	Permissions RoomPermissions `json:"permissions" bson:"permissions"`
}

// Allows reports whether a role satisfies the given permission level.
func (l PermissionLevel) Allows(role MemberRole) bool {
	switch l {
	case PermissionEveryone:
		return true
	case PermissionMembers:
		return role != ""
	case PermissionAdmins:
		return role == MemberRoleOwner || role == MemberRoleAdmin
	default:
		return false
	}
}

// WorkspaceMember is a user's membership record in a workspace
type WorkspaceMember struct {
	UserID     string     `json:"user_id" bson:"user_id"`
	Name       string     `json:"name" bson:"name"`
	Email      string     `json:"email" bson:"email"`
	Role       MemberRole `json:"role" bson:"role"`
	JoinedAt   time.Time  `json:"joined_at" bson:"joined_at"`
	LastActive time.Time  `json:"last_active" bson:"last_active"`
}

// WorkspaceSettings holds workspace-level feature flags and limits
type WorkspaceSettings struct {
	IsPublic                 bool `json:"is_public" bson:"is_public"`
	AllowVoiceCollaboration  bool `json:"allow_voice_collaboration" bson:"allow_voice_collaboration"`
	EnableSpatialAudio       bool `json:"enable_spatial_audio" bson:"enable_spatial_audio"`
	VoiceCommandsEnabled     bool `json:"voice_commands_enabled" bson:"voice_commands_enabled"`
	SpatialNavigationEnabled bool `json:"spatial_navigation_enabled" bson:"spatial_navigation_enabled"`
	MaxMembers               int  `json:"max_members" bson:"max_members"`
}

// Workspace is a named collaboration container owning rooms and members.
// It is mutated only through explicit workspace-update operations.
type Workspace struct {
	ID        string            `json:"id" bson:"_id,omitempty"`
	Name      string            `json:"name" bson:"name"`
	OwnerID   string            `json:"owner_id" bson:"owner_id"`
	Members   []WorkspaceMember `json:"members" bson:"members"`
	Rooms     []Room            `json:"rooms" bson:"rooms"`
	Settings  WorkspaceSettings `json:"settings" bson:"settings"`
	CreatedAt time.Time         `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time         `json:"updated_at" bson:"updated_at"`
	IsActive  bool              `json:"is_active" bson:"is_active"`
}

// NewWorkspace creates a workspace owned by the given user, with the
// owner pre-registered as its first member.
func NewWorkspace(name string, owner User) *Workspace {
	now := time.Now()
	return &Workspace{
		ID:      uuid.NewString(),
		Name:    name,
		OwnerID: owner.ID,
		Members: []WorkspaceMember{
			{
				UserID:     owner.ID,
				Name:       owner.Name,
				Email:      owner.Email,
				Role:       MemberRoleOwner,
				JoinedAt:   now,
				LastActive: now,
			},
		},
		Settings: WorkspaceSettings{
			AllowVoiceCollaboration:  true,
			EnableSpatialAudio:       true,
			VoiceCommandsEnabled:     true,
			SpatialNavigationEnabled: true,
			MaxMembers:               50,
		},
		CreatedAt: now,
		UpdatedAt: now,
		IsActive:  true,
	}
}

// Member looks up a member by user ID.
func (w *Workspace) Member(userID string) (*WorkspaceMember, bool) {
	for i := range w.Members {
		if w.Members[i].UserID == userID {
			return &w.Members[i], true
		}
	}
	return nil, false
}

// Room looks up a room by ID.
func (w *Workspace) Room(roomID string) (*Room, bool) {
	for i := range w.Rooms {
		if w.Rooms[i].ID == roomID {
			return &w.Rooms[i], true
		}
	}
	return nil, false
}

// RoleOf returns the member's role, or the empty role for non-members.
func (w *Workspace) RoleOf(userID string) MemberRole {
	if m, ok := w.Member(userID); ok {
		return m.Role
	}
	return ""
}

// AddMember appends a membership record; adding an existing member is an
// update of the stored record.
func (w *Workspace) AddMember(member WorkspaceMember) {
	for i := range w.Members {
		if w.Members[i].UserID == member.UserID {
			w.Members[i] = member
			w.UpdatedAt = time.Now()
			return
		}
	}
	w.Members = append(w.Members, member)
	w.UpdatedAt = time.Now()
}

func (w *Workspace) Validate() error {
	if w.Name == "" {
		return errors.New("workspace name is required")
	}
	if w.OwnerID == "" {
		return errors.New("owner_id is required")
	}
	if w.Settings.MaxMembers <= 0 {
		return errors.New("max_members must be positive")
	}
	seen := make(map[string]bool, len(w.Rooms))
	for _, room := range w.Rooms {
		if room.ID == "" {
			return errors.New("room id is required")
		}
		if seen[room.ID] {
			return errors.New("duplicate room id: " + room.ID)
		}
		seen[room.ID] = true
	}
	return nil
}
