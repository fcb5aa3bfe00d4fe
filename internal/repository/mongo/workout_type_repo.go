package mongo

import (
	"alcyxob/training-service/internal/domain"
	"alcyxob/training-service/internal/repository"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const workoutTypeCollectionName = "workout_types"

type mongoWorkoutTypeRepository struct {
	collection *mongo.Collection
}

// NewMongoWorkoutTypeRepository creates a new workout type repository.
func NewMongoWorkoutTypeRepository(db *mongo.Database) repository.WorkoutTypeRepository {
	return &mongoWorkoutTypeRepository{
		collection: db.Collection(workoutTypeCollectionName),
	}
}

func (r *mongoWorkoutTypeRepository) Create(ctx context.Context, wt *domain.WorkoutType) (primitive.ObjectID, error) {
	wt.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	wt.CreatedAt = now
	wt.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, wt)
	if err != nil {
		// Names are unique per organization
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted workout type ID")
	}
	return insertedID, nil
}

func (r *mongoWorkoutTypeRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutType, error) {
	var wt domain.WorkoutType
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&wt)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &wt, nil
}

func (r *mongoWorkoutTypeRepository) GetByOrganization(ctx context.Context, organizationID string, activeOnly bool) ([]domain.WorkoutType, error) {
	filter := bson.M{"organizationId": organizationID}
	if activeOnly {
		filter["isActive"] = true
	}
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var types []domain.WorkoutType
	if err = cursor.All(ctx, &types); err != nil {
		return nil, err
	}
	return types, cursor.Err()
}

func (r *mongoWorkoutTypeRepository) Update(ctx context.Context, wt *domain.WorkoutType) error {
	if wt.ID == primitive.NilObjectID {
		return errors.New("workout type ID is required for update")
	}
	filter := bson.M{"_id": wt.ID, "organizationId": wt.OrganizationID}
	update := bson.M{
		"$set": bson.M{
			"name":                   wt.Name,
			"description":            wt.Description,
			"category":               wt.Category,
			"defaultDurationMinutes": wt.DefaultDurationMinutes,
			"intensityMin":           wt.IntensityMin,
			"intensityMax":           wt.IntensityMax,
			"trackedMetrics":         wt.TrackedMetrics,
			"isActive":               wt.IsActive,
			"updatedAt":              time.Now().UTC(),
		},
	}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoWorkoutTypeRepository) Delete(ctx context.Context, id primitive.ObjectID, organizationID string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "organizationId": organizationID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureWorkoutTypeIndexes creates necessary indexes for the workout_types collection.
func EnsureWorkoutTypeIndexes(ctx context.Context, collection *mongo.Collection) error {
	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "organizationId", Value: 1}, {Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
