package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Default connection timeout
const defaultTimeout = 10 * time.Second

// ConnectDB establishes a connection to MongoDB using the provided URI.
// It returns the mongo.Client which can be used to access databases and collections.
func ConnectDB(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	// Ping the primary; a successful Connect does not mean the server is reachable.
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

// EnsureIndexes creates the indexes of every collection owned by the service.
// The unique indexes on assignments and overrides must exist before serving writes.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	steps := []struct {
		name string
		fn   func() error
	}{
		{assignmentCollectionName, func() error { return EnsureAssignmentIndexes(ctx, db.Collection(assignmentCollectionName)) }},
		{overrideCollectionName, func() error { return EnsureOverrideIndexes(ctx, db.Collection(overrideCollectionName)) }},
		{exerciseCollectionName, func() error { return EnsureExerciseIndexes(ctx, db.Collection(exerciseCollectionName)) }},
		{sessionCollectionName, func() error { return EnsureSessionIndexes(ctx, db.Collection(sessionCollectionName)) }},
		{workoutTypeCollectionName, func() error { return EnsureWorkoutTypeIndexes(ctx, db.Collection(workoutTypeCollectionName)) }},
		{reportCollectionName, func() error { return EnsureReportIndexes(ctx, db.Collection(reportCollectionName)) }},
		{"roster", func() error { return EnsureRosterIndexes(ctx, db) }},
	}
	for _, s := range steps {
		if err := s.fn(); err != nil {
			return fmt.Errorf("ensure %s indexes: %w", s.name, err)
		}
	}
	return nil
}
