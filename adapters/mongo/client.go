// Package mongo persists users, workspaces, collaboration sessions,
// and voice profiles.
package mongo

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Collection names shared by the repositories in this package.
const (
	collectionUsers         = "users"
	collectionWorkspaces    = "workspaces"
	collectionSessions      = "collaboration_sessions"
	collectionVoiceProfiles = "voice_profiles"
)

const (
	defaultURI      = "mongodb://localhost:27017"
	defaultDatabase = "voiceflow"

	connectTimeout   = 10 * time.Second
	selectionTimeout = 5 * time.Second

	// Session lifecycle traffic is bursty: every start, end, and idle
	// sweep writes, so the pool leaves headroom over the driver default.
	maxPoolSize     = 20
	maxConnIdleTime = 15 * time.Minute
)

type clientConfig struct {
	URI      string
	Database string
}

// clientConfigFromEnv reads MONGODB_URI and MONGODB_DATABASE, falling
// back to the local development defaults.
func clientConfigFromEnv() clientConfig {
	cfg := clientConfig{
		URI:      os.Getenv("MONGODB_URI"),
		Database: os.Getenv("MONGODB_DATABASE"),
	}
	if cfg.URI == "" {
		cfg.URI = defaultURI
	}
	if cfg.Database == "" {
		cfg.Database = defaultDatabase
	}
	return cfg
}

// Client wraps the MongoDB client and database
type Client struct {
	*mongo.Client
	Database *mongo.Database
	logger   *zap.Logger
}

// NewClient connects, verifies the connection, and bootstraps the
// indexes the repositories rely on.
func NewClient(logger *zap.Logger) (*Client, error) {
	cfg := clientConfigFromEnv()

	clientOptions := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(maxPoolSize).
		SetMaxConnIdleTime(maxConnIdleTime).
		SetServerSelectionTimeout(selectionTimeout).
		SetConnectTimeout(connectTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(cfg.Database)
	if err := ensureIndexes(ctx, db); err != nil {
		return nil, fmt.Errorf("failed to ensure indexes: %w", err)
	}

	logger.Info("Connected to MongoDB",
		zap.String("database", cfg.Database))

	return &Client{
		Client:   client,
		Database: db,
		logger:   logger,
	}, nil
}

// ensureIndexes creates the lookups the repositories query by: email
// for password and voice login, user for voice profile upserts, member
// and workspace scans for the listing endpoints.
func ensureIndexes(ctx context.Context, db *mongo.Database) error {
	unique := options.Index().SetUnique(true)

	indexes := []struct {
		collection string
		model      mongo.IndexModel
	}{
		{collectionUsers, mongo.IndexModel{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: unique,
		}},
		{collectionVoiceProfiles, mongo.IndexModel{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: unique,
		}},
		{collectionWorkspaces, mongo.IndexModel{
			Keys: bson.D{{Key: "members.user_id", Value: 1}},
		}},
		{collectionSessions, mongo.IndexModel{
			Keys: bson.D{
				{Key: "workspace_id", Value: 1},
				{Key: "start_time", Value: -1},
			},
		}},
	}

	for _, idx := range indexes {
		if _, err := db.Collection(idx.collection).Indexes().CreateOne(ctx, idx.model); err != nil {
			return fmt.Errorf("index on %s: %w", idx.collection, err)
		}
	}
	return nil
}

// Close closes the MongoDB connection
func (c *Client) Close(ctx context.Context) error {
	if err := c.Client.Disconnect(ctx); err != nil {
		c.logger.Error("Failed to disconnect from MongoDB", zap.Error(err))
		return err
	}
	c.logger.Info("Disconnected from MongoDB")
	return nil
}
