// Package adapters holds storage implementations. The in-memory
// repositories here back local development and tests when no MongoDB is
// configured; they hold copies, never caller-owned pointers.
package adapters

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voiceflowhq/collab/domain/entities"
	"github.com/voiceflowhq/collab/domain/repositories"
)

// MemoryUserRepository is an in-memory implementation of UserRepository
type MemoryUserRepository struct {
	mu     sync.RWMutex
	users  map[string]*entities.User
	emails map[string]string // email -> id
}

// NewMemoryUserRepository creates a new in-memory user repository
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users:  make(map[string]*entities.User),
		emails: make(map[string]string),
	}
}

// Create implements repositories.UserRepository
func (m *MemoryUserRepository) Create(ctx context.Context, user *entities.User) error {
	if user == nil {
		return errors.New("user cannot be nil")
	}
	if err := user.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.emails[user.Email]; exists {
		return errors.New("user with this email already exists")
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	userCopy := *user
	m.users[user.ID] = &userCopy
	m.emails[user.Email] = user.ID
	return nil
}

// GetByID implements repositories.UserRepository
func (m *MemoryUserRepository) GetByID(ctx context.Context, id string) (*entities.User, error) {
	if id == "" {
		return nil, errors.New("user ID cannot be empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	user, exists := m.users[id]
	if !exists {
		return nil, nil
	}
	userCopy := *user
	return &userCopy, nil
}

// GetByEmail implements repositories.UserRepository
func (m *MemoryUserRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	if email == "" {
		return nil, errors.New("email cannot be empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	id, exists := m.emails[email]
	if !exists {
		return nil, nil
	}
	userCopy := *m.users[id]
	return &userCopy, nil
}

// Update implements repositories.UserRepository
func (m *MemoryUserRepository) Update(ctx context.Context, user *entities.User) error {
	if user == nil {
		return errors.New("user cannot be nil")
	}
	if user.ID == "" {
		return errors.New("user ID cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, exists := m.users[user.ID]
	if !exists {
		return errors.New("user not found")
	}

	user.CreatedAt = existing.CreatedAt // Preserve original creation time
	user.UpdatedAt = time.Now()

	if existing.Email != user.Email {
		if _, taken := m.emails[user.Email]; taken {
			return errors.New("user with this email already exists")
		}
		delete(m.emails, existing.Email)
		m.emails[user.Email] = user.ID
	}

	userCopy := *user
	m.users[user.ID] = &userCopy
	return nil
}

// MemoryWorkspaceRepository is an in-memory implementation of WorkspaceRepository
type MemoryWorkspaceRepository struct {
	mu         sync.RWMutex
	workspaces map[string]*entities.Workspace
}

// NewMemoryWorkspaceRepository creates a new in-memory workspace repository
func NewMemoryWorkspaceRepository() *MemoryWorkspaceRepository {
	return &MemoryWorkspaceRepository{
		workspaces: make(map[string]*entities.Workspace),
	}
}

// Create implements repositories.WorkspaceRepository
func (m *MemoryWorkspaceRepository) Create(ctx context.Context, workspace *entities.Workspace) error {
	if workspace == nil {
		return errors.New("workspace cannot be nil")
	}
	if err := workspace.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if workspace.ID == "" {
		workspace.ID = uuid.New().String()
	}
	workspaceCopy := *workspace
	m.workspaces[workspace.ID] = &workspaceCopy
	return nil
}

// GetByID implements repositories.WorkspaceRepository
func (m *MemoryWorkspaceRepository) GetByID(ctx context.Context, id string) (*entities.Workspace, error) {
	if id == "" {
		return nil, errors.New("workspace ID cannot be empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	workspace, exists := m.workspaces[id]
	if !exists {
		return nil, nil
	}
	workspaceCopy := *workspace
	return &workspaceCopy, nil
}

// GetByMember implements repositories.WorkspaceRepository
func (m *MemoryWorkspaceRepository) GetByMember(ctx context.Context, userID string) ([]*entities.Workspace, error) {
	if userID == "" {
		return nil, errors.New("user ID cannot be empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*entities.Workspace, 0)
	for _, workspace := range m.workspaces {
		if !workspace.IsActive {
			continue
		}
		if _, ok := workspace.Member(userID); ok {
			workspaceCopy := *workspace
			result = append(result, &workspaceCopy)
		}
	}
	return result, nil
}

// Update implements repositories.WorkspaceRepository
func (m *MemoryWorkspaceRepository) Update(ctx context.Context, workspace *entities.Workspace) error {
	if workspace == nil {
		return errors.New("workspace cannot be nil")
	}
	if workspace.ID == "" {
		return errors.New("workspace ID cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.workspaces[workspace.ID]; !exists {
		return errors.New("workspace not found")
	}

	workspace.UpdatedAt = time.Now()
	workspaceCopy := *workspace
	m.workspaces[workspace.ID] = &workspaceCopy
	return nil
}

// Delete implements repositories.WorkspaceRepository as a soft delete
func (m *MemoryWorkspaceRepository) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("workspace ID cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	workspace, exists := m.workspaces[id]
	if !exists {
		return errors.New("workspace not found")
	}
	workspace.IsActive = false
	workspace.UpdatedAt = time.Now()
	return nil
}

// MemorySessionRepository is an in-memory implementation of SessionRepository
type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*entities.CollaborationSession
}

// NewMemorySessionRepository creates a new in-memory session repository
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[string]*entities.CollaborationSession),
	}
}

// Create implements repositories.SessionRepository
func (m *MemorySessionRepository) Create(ctx context.Context, session *entities.CollaborationSession) error {
	if session == nil {
		return errors.New("session cannot be nil")
	}
	if err := session.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	sessionCopy := *session
	m.sessions[session.ID] = &sessionCopy
	return nil
}

// GetByID implements repositories.SessionRepository
func (m *MemorySessionRepository) GetByID(ctx context.Context, id string) (*entities.CollaborationSession, error) {
	if id == "" {
		return nil, errors.New("session ID cannot be empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[id]
	if !exists {
		return nil, nil
	}
	sessionCopy := *session
	return &sessionCopy, nil
}

// GetActiveByWorkspace implements repositories.SessionRepository
func (m *MemorySessionRepository) GetActiveByWorkspace(ctx context.Context, workspaceID string) ([]*entities.CollaborationSession, error) {
	if workspaceID == "" {
		return nil, errors.New("workspace ID cannot be empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*entities.CollaborationSession, 0)
	for _, session := range m.sessions {
		if session.WorkspaceID == workspaceID && !session.Ended() {
			sessionCopy := *session
			result = append(result, &sessionCopy)
		}
	}
	return result, nil
}

// Update implements repositories.SessionRepository
func (m *MemorySessionRepository) Update(ctx context.Context, session *entities.CollaborationSession) error {
	if session == nil {
		return errors.New("session cannot be nil")
	}
	if session.ID == "" {
		return errors.New("session ID cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[session.ID]; !exists {
		return errors.New("session not found")
	}
	sessionCopy := *session
	m.sessions[session.ID] = &sessionCopy
	return nil
}

// MemoryVoiceProfileRepository is an in-memory implementation of VoiceProfileRepository
type MemoryVoiceProfileRepository struct {
	mu       sync.RWMutex
	profiles map[string]*entities.VoiceProfile
}

// NewMemoryVoiceProfileRepository creates a new in-memory voice profile repository
func NewMemoryVoiceProfileRepository() *MemoryVoiceProfileRepository {
	return &MemoryVoiceProfileRepository{
		profiles: make(map[string]*entities.VoiceProfile),
	}
}

// Save implements repositories.VoiceProfileRepository
func (m *MemoryVoiceProfileRepository) Save(ctx context.Context, profile *entities.VoiceProfile) error {
	if profile == nil {
		return errors.New("profile cannot be nil")
	}
	if profile.UserID == "" {
		return errors.New("user ID cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	profileCopy := *profile
	m.profiles[profile.UserID] = &profileCopy
	return nil
}

// GetByUserID implements repositories.VoiceProfileRepository
func (m *MemoryVoiceProfileRepository) GetByUserID(ctx context.Context, userID string) (*entities.VoiceProfile, error) {
	if userID == "" {
		return nil, errors.New("user ID cannot be empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	profile, exists := m.profiles[userID]
	if !exists {
		return nil, nil
	}
	profileCopy := *profile
	return &profileCopy, nil
}

// Delete implements repositories.VoiceProfileRepository
func (m *MemoryVoiceProfileRepository) Delete(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.New("user ID cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.profiles, userID)
	return nil
}

// MemoryAnalyticsCache is an in-memory implementation of AnalyticsReader
// used when no Redis is configured.
type MemoryAnalyticsCache struct {
	mu        sync.RWMutex
	snapshots map[string]*repositories.AnalyticsSnapshot
}

// NewMemoryAnalyticsCache creates a new in-memory analytics cache
func NewMemoryAnalyticsCache() *MemoryAnalyticsCache {
	return &MemoryAnalyticsCache{
		snapshots: make(map[string]*repositories.AnalyticsSnapshot),
	}
}

// Get implements repositories.AnalyticsReader
func (m *MemoryAnalyticsCache) Get(ctx context.Context, userID string) (*repositories.AnalyticsSnapshot, error) {
	if userID == "" {
		return nil, errors.New("user ID cannot be empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot, exists := m.snapshots[userID]
	if !exists {
		return nil, nil
	}
	snapshotCopy := *snapshot
	return &snapshotCopy, nil
}

// Put implements repositories.AnalyticsReader
func (m *MemoryAnalyticsCache) Put(ctx context.Context, userID string, snapshot *repositories.AnalyticsSnapshot) error {
	if userID == "" {
		return errors.New("user ID cannot be empty")
	}
	if snapshot == nil {
		return errors.New("snapshot cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snapshotCopy := *snapshot
	m.snapshots[userID] = &snapshotCopy
	return nil
}
