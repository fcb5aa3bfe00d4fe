package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WorkoutType is per-organization configuration for a category of sessions.
type WorkoutType struct {
	ID                     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrganizationID         string             `bson:"organizationId" json:"organizationId"`
	Name                   string             `bson:"name" json:"name"`
	Description            string             `bson:"description,omitempty" json:"description,omitempty"`
	Category               string             `bson:"category" json:"category"` // e.g. "strength", "conditioning", "recovery"
	DefaultDurationMinutes int                `bson:"defaultDurationMinutes" json:"defaultDurationMinutes"`
	IntensityMin           float64            `bson:"intensityMin" json:"intensityMin"`
	IntensityMax           float64            `bson:"intensityMax" json:"intensityMax"`
	TrackedMetrics         []string           `bson:"trackedMetrics,omitempty" json:"trackedMetrics,omitempty"` // e.g. "heart_rate", "rpe"
	IsActive               bool               `bson:"isActive" json:"isActive"`
	CreatedBy              string             `bson:"createdBy,omitempty" json:"createdBy,omitempty"`
	CreatedAt              time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt              time.Time          `bson:"updatedAt" json:"updatedAt"`
}
