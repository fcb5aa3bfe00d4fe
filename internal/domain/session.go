package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SessionExercise is one exercise slot inside a workout session.
type SessionExercise struct {
	ExerciseID primitive.ObjectID `bson:"exerciseId" json:"exerciseId"`
	Sequence   int                `bson:"sequence" json:"sequence"` // Order within the session
	Sets       *int               `bson:"sets,omitempty" json:"sets,omitempty"`
	Reps       *string            `bson:"reps,omitempty" json:"reps,omitempty"`
	Rest       *string            `bson:"rest,omitempty" json:"rest,omitempty"`
	Duration   *string            `bson:"duration,omitempty" json:"duration,omitempty"`
	Notes      string             `bson:"notes,omitempty" json:"notes,omitempty"`
}

// WorkoutSession represents a planned training session that assignments point at.
type WorkoutSession struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	OrganizationID  string              `bson:"organizationId" json:"organizationId"`
	TeamID          string              `bson:"teamId,omitempty" json:"teamId,omitempty"`
	WorkoutTypeID   *primitive.ObjectID `bson:"workoutTypeId,omitempty" json:"workoutTypeId,omitempty"`
	Name            string              `bson:"name" json:"name"` // e.g., "Day 1: Lower Body Power"
	ScheduledDate   time.Time           `bson:"scheduledDate" json:"scheduledDate"`
	DurationMinutes int                 `bson:"durationMinutes" json:"durationMinutes"`
	EstimatedLoad   float64             `bson:"estimatedLoad" json:"estimatedLoad"`
	Exercises       []SessionExercise   `bson:"exercises" json:"exercises"`
	Notes           string              `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedBy       string              `bson:"createdBy,omitempty" json:"createdBy,omitempty"`
	CreatedAt       time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// ExerciseIDs returns the exercise ids in session order.
func (s *WorkoutSession) ExerciseIDs() []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(s.Exercises))
	for _, e := range s.Exercises {
		ids = append(ids, e.ExerciseID)
	}
	return ids
}
