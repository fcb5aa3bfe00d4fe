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

const assignmentCollectionName = "workout_assignments"

// mongoAssignmentRepository implements repository.AssignmentRepository
type mongoAssignmentRepository struct {
	collection *mongo.Collection
}

// NewMongoAssignmentRepository creates a new Assignment repository backed by MongoDB.
func NewMongoAssignmentRepository(db *mongo.Database) repository.AssignmentRepository {
	return &mongoAssignmentRepository{
		collection: db.Collection(assignmentCollectionName),
	}
}

// Create inserts a new assignment. A collision on the unique key returns repository.ErrDuplicate.
func (r *mongoAssignmentRepository) Create(ctx context.Context, assignment *domain.WorkoutAssignment) (primitive.ObjectID, error) {
	if assignment.WorkoutSessionID == primitive.NilObjectID || assignment.OrganizationID == "" {
		return primitive.NilObjectID, errors.New("assignment requires workoutSessionId and organizationId")
	}

	if assignment.ID.IsZero() {
		assignment.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	assignment.CreatedAt = now
	assignment.UpdatedAt = now
	assignment.EffectiveDate = domain.StartOfDay(assignment.EffectiveDate)
	if assignment.Status == "" { // Default status if not provided
		assignment.Status = domain.StatusDraft
	}

	result, err := r.collection.InsertOne(ctx, assignment)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted assignment ID")
	}
	return insertedID, nil
}

// GetByID retrieves an assignment by its ID.
func (r *mongoAssignmentRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutAssignment, error) {
	var assignment domain.WorkoutAssignment
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&assignment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &assignment, nil
}

// GetByKey looks an assignment up by its identity tuple.
func (r *mongoAssignmentRepository) GetByKey(ctx context.Context, key domain.AssignmentKey) (*domain.WorkoutAssignment, error) {
	filter := bson.M{
		"workoutSessionId": key.WorkoutSessionID,
		"organizationId":   key.OrganizationID,
		"effectiveDate":    domain.StartOfDay(key.EffectiveDate),
		"playerId":         key.PlayerID,
	}
	var assignment domain.WorkoutAssignment
	err := r.collection.FindOne(ctx, filter).Decode(&assignment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &assignment, nil
}

// Find returns assignments matching the filter, oldest effective date first.
func (r *mongoAssignmentRepository) Find(ctx context.Context, f repository.AssignmentFilter) ([]domain.WorkoutAssignment, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "effectiveDate", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, assignmentQuery(f), findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var assignments []domain.WorkoutAssignment
	if err = cursor.All(ctx, &assignments); err != nil {
		return nil, err
	}
	return assignments, cursor.Err()
}

// GetChildren returns the records cascaded from a parent assignment.
func (r *mongoAssignmentRepository) GetChildren(ctx context.Context, parentID primitive.ObjectID) ([]domain.WorkoutAssignment, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"parentAssignmentId": parentID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var assignments []domain.WorkoutAssignment
	if err = cursor.All(ctx, &assignments); err != nil {
		return nil, err
	}
	return assignments, cursor.Err()
}

// Update replaces the stored document. Moving onto another record's key returns ErrDuplicate.
func (r *mongoAssignmentRepository) Update(ctx context.Context, assignment *domain.WorkoutAssignment) error {
	if assignment.ID == primitive.NilObjectID {
		return errors.New("assignment ID is required for update")
	}
	assignment.UpdatedAt = time.Now().UTC()
	assignment.EffectiveDate = domain.StartOfDay(assignment.EffectiveDate)

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": assignment.ID}, assignment)
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

// assignmentQuery translates the filter into a Mongo query document.
func assignmentQuery(f repository.AssignmentFilter) bson.M {
	filter := bson.M{}
	var and []bson.M

	if len(f.PlayerIDs) > 0 {
		filter["playerId"] = bson.M{"$in": f.PlayerIDs}
	}
	if f.TeamID != "" {
		filter["teamId"] = f.TeamID
	}
	if f.OrganizationID != "" {
		filter["organizationId"] = f.OrganizationID
	}
	if f.WorkoutSessionID != nil {
		filter["workoutSessionId"] = *f.WorkoutSessionID
	}
	if len(f.Statuses) > 0 {
		filter["status"] = bson.M{"$in": f.Statuses}
	}
	if len(f.Types) > 0 {
		filter["type"] = bson.M{"$in": f.Types}
	}
	if f.ExcludeParents {
		and = append(and, bson.M{"playerId": bson.M{"$ne": ""}})
	}

	// Window overlap. Without an expiry the assignment occupies its whole effective day,
	// which for a midnight-normalised effectiveDate means effectiveDate >= day(From).
	if f.To != nil {
		and = append(and, bson.M{"effectiveDate": bson.M{"$lte": *f.To}})
	}
	if f.From != nil {
		and = append(and, bson.M{"$or": bson.A{
			bson.M{"expiryDate": bson.M{"$gte": *f.From}},
			bson.M{"expiryDate": nil, "effectiveDate": bson.M{"$gte": domain.StartOfDay(*f.From)}},
		}})
	}

	effective := bson.M{}
	if f.EffectiveFrom != nil {
		effective["$gte"] = *f.EffectiveFrom
	}
	if f.EffectiveTo != nil {
		effective["$lte"] = *f.EffectiveTo
	}
	if len(effective) > 0 {
		and = append(and, bson.M{"effectiveDate": effective})
	}

	if len(and) > 0 {
		filter["$and"] = and
	}
	return filter
}

// EnsureAssignmentIndexes creates necessary indexes for the workout_assignments collection.
// The unique key is the serialization point for concurrent bulk and cascade writers.
func EnsureAssignmentIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "workoutSessionId", Value: 1},
				{Key: "organizationId", Value: 1},
				{Key: "effectiveDate", Value: 1},
				{Key: "playerId", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("assignment_identity"),
		},
		{
			// Schedule lookups per player
			Keys:    bson.D{{Key: "playerId", Value: 1}, {Key: "status", Value: 1}, {Key: "effectiveDate", Value: 1}},
			Options: options.Index(),
		},
		{
			// Phase adjustments scan a team's active assignments
			Keys:    bson.D{{Key: "teamId", Value: 1}, {Key: "status", Value: 1}, {Key: "effectiveDate", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "parentAssignmentId", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
