package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/voiceflowhq/collab/domain/entities"
	"github.com/voiceflowhq/collab/domain/repositories"
)

type SessionRepository struct {
	collection *mongo.Collection
}

// NewSessionRepository creates a new MongoDB collaboration session repository
func NewSessionRepository(db *mongo.Database) repositories.SessionRepository {
	return &SessionRepository{
		collection: db.Collection(collectionSessions),
	}
}

// Create implements repositories.SessionRepository
func (r *SessionRepository) Create(ctx context.Context, session *entities.CollaborationSession) error {
	if session == nil {
		return errors.New("session cannot be nil")
	}
	if session.ID == "" {
		session.ID = uuid.NewString()
	}

	if _, err := r.collection.InsertOne(ctx, session); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetByID implements repositories.SessionRepository
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*entities.CollaborationSession, error) {
	if id == "" {
		return nil, errors.New("session ID cannot be empty")
	}

	var session entities.CollaborationSession
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil // No session found, return nil without error
		}
		return nil, fmt.Errorf("failed to get session %s: %w", id, err)
	}
	return &session, nil
}

// GetActiveByWorkspace implements repositories.SessionRepository
func (r *SessionRepository) GetActiveByWorkspace(ctx context.Context, workspaceID string) ([]*entities.CollaborationSession, error) {
	if workspaceID == "" {
		return nil, errors.New("workspace ID cannot be empty")
	}

	filter := bson.M{
		"workspace_id": workspaceID,
		"end_time":     bson.M{"$exists": false},
	}
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list active sessions for workspace %s: %w", workspaceID, err)
	}
	defer cursor.Close(ctx)

	var sessions []*entities.CollaborationSession
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}
	return sessions, nil
}

// Update implements repositories.SessionRepository
func (r *SessionRepository) Update(ctx context.Context, session *entities.CollaborationSession) error {
	if session == nil {
		return errors.New("session cannot be nil")
	}
	if session.ID == "" {
		return errors.New("session ID cannot be empty")
	}

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": session.ID}, session)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("session with ID %s not found", session.ID)
	}
	return nil
}
