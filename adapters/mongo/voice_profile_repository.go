package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/voiceflowhq/collab/domain/entities"
	"github.com/voiceflowhq/collab/domain/repositories"
)

type VoiceProfileRepository struct {
	collection *mongo.Collection
}

// NewVoiceProfileRepository creates a new MongoDB voice profile repository
func NewVoiceProfileRepository(db *mongo.Database) repositories.VoiceProfileRepository {
	return &VoiceProfileRepository{
		collection: db.Collection(collectionVoiceProfiles),
	}
}

// Save implements repositories.VoiceProfileRepository. Re-enrollment
// replaces the stored profile.
func (r *VoiceProfileRepository) Save(ctx context.Context, profile *entities.VoiceProfile) error {
	if profile == nil {
		return errors.New("profile cannot be nil")
	}
	if profile.UserID == "" {
		return errors.New("user ID cannot be empty")
	}

	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"user_id": profile.UserID}, profile, opts)
	if err != nil {
		return fmt.Errorf("failed to save voice profile: %w", err)
	}
	return nil
}

// GetByUserID implements repositories.VoiceProfileRepository
func (r *VoiceProfileRepository) GetByUserID(ctx context.Context, userID string) (*entities.VoiceProfile, error) {
	if userID == "" {
		return nil, errors.New("user ID cannot be empty")
	}

	var profile entities.VoiceProfile
	err := r.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&profile)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil // Not enrolled
		}
		return nil, fmt.Errorf("failed to get voice profile for user %s: %w", userID, err)
	}
	return &profile, nil
}

// Delete implements repositories.VoiceProfileRepository
func (r *VoiceProfileRepository) Delete(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.New("user ID cannot be empty")
	}

	if _, err := r.collection.DeleteOne(ctx, bson.M{"user_id": userID}); err != nil {
		return fmt.Errorf("failed to delete voice profile: %w", err)
	}
	return nil
}
