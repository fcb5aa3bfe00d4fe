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

const overrideCollectionName = "workout_player_overrides"

// mongoOverrideRepository implements repository.OverrideRepository
type mongoOverrideRepository struct {
	collection *mongo.Collection
}

// NewMongoOverrideRepository creates a new Override repository backed by MongoDB.
func NewMongoOverrideRepository(db *mongo.Database) repository.OverrideRepository {
	return &mongoOverrideRepository{
		collection: db.Collection(overrideCollectionName),
	}
}

func (r *mongoOverrideRepository) Create(ctx context.Context, override *domain.WorkoutPlayerOverride) (primitive.ObjectID, error) {
	if override.WorkoutAssignmentID == primitive.NilObjectID || override.PlayerID == "" {
		return primitive.NilObjectID, errors.New("override requires workoutAssignmentId and playerId")
	}

	if override.ID.IsZero() {
		override.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	override.CreatedAt = now
	override.UpdatedAt = now
	override.EffectiveDate = domain.StartOfDay(override.EffectiveDate)

	result, err := r.collection.InsertOne(ctx, override)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted override ID")
	}
	return insertedID, nil
}

func (r *mongoOverrideRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutPlayerOverride, error) {
	var override domain.WorkoutPlayerOverride
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&override)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &override, nil
}

func (r *mongoOverrideRepository) GetByKey(ctx context.Context, key domain.OverrideKey) (*domain.WorkoutPlayerOverride, error) {
	filter := bson.M{
		"workoutAssignmentId": key.WorkoutAssignmentID,
		"playerId":            key.PlayerID,
		"effectiveDate":       domain.StartOfDay(key.EffectiveDate),
	}
	var override domain.WorkoutPlayerOverride
	err := r.collection.FindOne(ctx, filter).Decode(&override)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &override, nil
}

func (r *mongoOverrideRepository) Find(ctx context.Context, f repository.OverrideFilter) ([]domain.WorkoutPlayerOverride, error) {
	filter := bson.M{}
	if len(f.AssignmentIDs) > 0 {
		filter["workoutAssignmentId"] = bson.M{"$in": f.AssignmentIDs}
	}
	if len(f.PlayerIDs) > 0 {
		filter["playerId"] = bson.M{"$in": f.PlayerIDs}
	}
	if len(f.Statuses) > 0 {
		filter["status"] = bson.M{"$in": f.Statuses}
	}
	if len(f.Types) > 0 {
		filter["type"] = bson.M{"$in": f.Types}
	}
	if f.MedicalRecordID != nil {
		filter["medicalRecordId"] = *f.MedicalRecordID
	}
	if f.To != nil {
		filter["effectiveDate"] = bson.M{"$lte": *f.To}
	}
	if f.From != nil {
		// Open-ended overrides have no expiryDate
		filter["$or"] = bson.A{
			bson.M{"expiryDate": nil},
			bson.M{"expiryDate": bson.M{"$gte": *f.From}},
		}
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "effectiveDate", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var overrides []domain.WorkoutPlayerOverride
	if err = cursor.All(ctx, &overrides); err != nil {
		return nil, err
	}
	return overrides, cursor.Err()
}

func (r *mongoOverrideRepository) Update(ctx context.Context, override *domain.WorkoutPlayerOverride) error {
	if override.ID == primitive.NilObjectID {
		return errors.New("override ID is required for update")
	}
	override.UpdatedAt = time.Now().UTC()
	override.EffectiveDate = domain.StartOfDay(override.EffectiveDate)

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": override.ID}, override)
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

// EnsureOverrideIndexes creates necessary indexes for the workout_player_overrides collection.
func EnsureOverrideIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "workoutAssignmentId", Value: 1},
				{Key: "playerId", Value: 1},
				{Key: "effectiveDate", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("override_identity"),
		},
		{
			Keys:    bson.D{{Key: "playerId", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index(),
		},
		{
			// Clearing events expire every override linked to a medical record
			Keys:    bson.D{{Key: "medicalRecordId", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
