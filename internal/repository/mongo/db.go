package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Default connection timeout
const defaultTimeout = 10 * time.Second

// Collection names owned by the engine.
const (
	activeWorkoutCollectionName = "active_workouts"
	lockCollectionName          = "workout_locks"
	idempotencyCollectionName   = "workout_idempotency"
	eventCollectionName         = "workout_events"
	archiveCollectionName       = "workout_archives"
)

// ConnectDB establishes a connection to MongoDB using the provided URI.
// Transactions need a replica set or a sharded cluster; a standalone server will connect
// but fail on the first RunTransaction.
func ConnectDB(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	// Ping the primary; the driver connects lazily.
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()

	if err = client.Ping(pingCtx, readpref.Primary()); err != nil {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		_ = client.Disconnect(disconnectCtx)
		return nil, err
	}
	return client, nil
}

// DisconnectDB gracefully disconnects the MongoDB client.
func DisconnectDB(client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	return client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes of every collection the engine uses.
// Failures are logged and do not stop startup.
func EnsureIndexes(ctx context.Context, db *mongo.Database, logger *zap.Logger) {
	ensure := func(collection *mongo.Collection, indexes []mongo.IndexModel) {
		if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
			logger.Warn("failed to create indexes", zap.String("collection", collection.Name()), zap.Error(err))
		}
	}

	ensure(db.Collection(activeWorkoutCollectionName), []mongo.IndexModel{
		{
			// FindInProgress: newest in-progress workout of a user
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "status", Value: 1}, {Key: "startTime", Value: -1}},
			Options: options.Index().SetName("user_status_start"),
		},
	})
	ensure(db.Collection(eventCollectionName), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "workoutId", Value: 1}, {Key: "version", Value: 1}},
			Options: options.Index().SetName("workout_version"),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("user_created"),
		},
	})
	ensure(db.Collection(idempotencyCollectionName), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "workoutId", Value: 1}, {Key: "key", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("workout_key"),
		},
	})
	ensure(db.Collection(archiveCollectionName), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "archivedAt", Value: -1}},
			Options: options.Index().SetName("user_archived"),
		},
	})
	EnsureCatalogIndexes(ctx, db, logger)
}
