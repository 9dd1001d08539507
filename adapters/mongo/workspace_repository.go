package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/voiceflowhq/collab/domain/entities"
	"github.com/voiceflowhq/collab/domain/repositories"
)

type WorkspaceRepository struct {
	collection *mongo.Collection
}

// NewWorkspaceRepository creates a new MongoDB workspace repository
func NewWorkspaceRepository(db *mongo.Database) repositories.WorkspaceRepository {
	return &WorkspaceRepository{
		collection: db.Collection(collectionWorkspaces),
	}
}

// Create implements repositories.WorkspaceRepository
func (r *WorkspaceRepository) Create(ctx context.Context, workspace *entities.Workspace) error {
	if workspace == nil {
		return errors.New("workspace cannot be nil")
	}
	if err := workspace.Validate(); err != nil {
		return err
	}
	if workspace.ID == "" {
		workspace.ID = uuid.NewString()
	}

	if _, err := r.collection.InsertOne(ctx, workspace); err != nil {
		return fmt.Errorf("failed to create workspace: %w", err)
	}
	return nil
}

// GetByID implements repositories.WorkspaceRepository
func (r *WorkspaceRepository) GetByID(ctx context.Context, id string) (*entities.Workspace, error) {
	if id == "" {
		return nil, errors.New("workspace ID cannot be empty")
	}

	var workspace entities.Workspace
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&workspace)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil // No workspace found, return nil without error
		}
		return nil, fmt.Errorf("failed to get workspace %s: %w", id, err)
	}
	return &workspace, nil
}

// GetByMember implements repositories.WorkspaceRepository
func (r *WorkspaceRepository) GetByMember(ctx context.Context, userID string) ([]*entities.Workspace, error) {
	if userID == "" {
		return nil, errors.New("user ID cannot be empty")
	}

	filter := bson.M{
		"is_active":       true,
		"members.user_id": userID,
	}
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces for user %s: %w", userID, err)
	}
	defer cursor.Close(ctx)

	var workspaces []*entities.Workspace
	if err := cursor.All(ctx, &workspaces); err != nil {
		return nil, fmt.Errorf("failed to decode workspaces: %w", err)
	}
	return workspaces, nil
}

// Update implements repositories.WorkspaceRepository
func (r *WorkspaceRepository) Update(ctx context.Context, workspace *entities.Workspace) error {
	if workspace == nil {
		return errors.New("workspace cannot be nil")
	}
	if workspace.ID == "" {
		return errors.New("workspace ID cannot be empty")
	}

	workspace.UpdatedAt = time.Now()
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": workspace.ID}, workspace)
	if err != nil {
		return fmt.Errorf("failed to update workspace: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("workspace with ID %s not found", workspace.ID)
	}
	return nil
}

// Delete implements repositories.WorkspaceRepository as a soft delete so
// historical sessions keep a resolvable workspace reference.
func (r *WorkspaceRepository) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("workspace ID cannot be empty")
	}

	update := bson.M{"$set": bson.M{"is_active": false, "updated_at": time.Now()}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to delete workspace: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("workspace with ID %s not found", id)
	}
	return nil
}
