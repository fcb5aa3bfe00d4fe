// internal/domain/exercise.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Exercise represents a single exercise definition in an organization's library.
type Exercise struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrganizationID string             `bson:"organizationId" json:"organizationId"` // Library owner (tenant)
	Name           string             `bson:"name" json:"name"`
	Description    string             `bson:"description,omitempty" json:"description,omitempty"`

	Category         string   `bson:"category" json:"category"`                                     // e.g. "plyometric", "strength", "mobility"
	MovementPatterns []string `bson:"movementPatterns,omitempty" json:"movementPatterns,omitempty"` // e.g. "jump", "squat", "push"
	PrimaryMuscles   []string `bson:"primaryMuscles,omitempty" json:"primaryMuscles,omitempty"`
	SecondaryMuscles []string `bson:"secondaryMuscles,omitempty" json:"secondaryMuscles,omitempty"`
	Equipment        string   `bson:"equipment,omitempty" json:"equipment,omitempty"`   // e.g. "bodyweight", "barbell"
	DefaultIntensity float64  `bson:"defaultIntensity" json:"defaultIntensity"`         // percent of max effort, 0-100
	Supervised       bool     `bson:"supervised" json:"supervised"`                     // performed under staff supervision
	Difficulty       string   `bson:"difficulty,omitempty" json:"difficulty,omitempty"` // e.g. "Novice", "Medium", "Advanced"
	Instructions     string   `bson:"instructions,omitempty" json:"instructions,omitempty"`
	VideoURL         string   `bson:"videoUrl,omitempty" json:"videoUrl,omitempty"`

	CreatedBy string    `bson:"createdBy,omitempty" json:"createdBy,omitempty"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Muscles returns primary followed by secondary muscle groups.
func (e *Exercise) Muscles() []string {
	out := make([]string, 0, len(e.PrimaryMuscles)+len(e.SecondaryMuscles))
	out = append(out, e.PrimaryMuscles...)
	return append(out, e.SecondaryMuscles...)
}
