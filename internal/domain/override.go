package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OverrideType string

const (
	OverrideMedical     OverrideType = "medical"
	OverridePerformance OverrideType = "performance"
	OverrideScheduling  OverrideType = "scheduling"
	OverrideCustom      OverrideType = "custom"
)

func (t OverrideType) Valid() bool {
	switch t {
	case OverrideMedical, OverridePerformance, OverrideScheduling, OverrideCustom:
		return true
	}
	return false
}

type OverrideStatus string

const (
	OverridePending  OverrideStatus = "pending"
	OverrideApproved OverrideStatus = "approved"
	OverrideRejected OverrideStatus = "rejected"
	OverrideExpired  OverrideStatus = "expired"
)

// IsLive is true for overrides that still shape a player's training.
func (s OverrideStatus) IsLive() bool {
	return s == OverridePending || s == OverrideApproved
}

// ExerciseSubstitution swaps one exercise for another for a single player.
type ExerciseSubstitution struct {
	OriginalExerciseID   primitive.ObjectID `bson:"originalExerciseId" json:"originalExerciseId"`
	SubstituteExerciseID primitive.ObjectID `bson:"substituteExerciseId" json:"substituteExerciseId"`
	Reason               string             `bson:"reason,omitempty" json:"reason,omitempty"`
}

// IntensityZone clamps the intensity a player may train at, as a percentage of max.
type IntensityZone struct {
	MinPercent float64 `bson:"minPercent" json:"minPercent"`
	MaxPercent float64 `bson:"maxPercent" json:"maxPercent"`
}

// OverrideModifications is the concrete change applied to an assignment for one player.
type OverrideModifications struct {
	LoadMultiplier    *float64               `bson:"loadMultiplier,omitempty" json:"loadMultiplier,omitempty"`
	RestMultiplier    *float64               `bson:"restMultiplier,omitempty" json:"restMultiplier,omitempty"`
	ExcludedExercises []primitive.ObjectID   `bson:"excludedExercises,omitempty" json:"excludedExercises,omitempty"`
	Substitutions     []ExerciseSubstitution `bson:"substitutions,omitempty" json:"substitutions,omitempty"`
	IntensityZone     *IntensityZone         `bson:"intensityZone,omitempty" json:"intensityZone,omitempty"`
	Exempt            bool                   `bson:"exempt" json:"exempt"`
	ExemptionReason   string                 `bson:"exemptionReason,omitempty" json:"exemptionReason,omitempty"`
}

// Excludes reports whether the exercise is in the explicit exclusion list.
func (m OverrideModifications) Excludes(exerciseID primitive.ObjectID) bool {
	for _, id := range m.ExcludedExercises {
		if id == exerciseID {
			return true
		}
	}
	return false
}

// RestrictionSnapshot mirrors the structured part of a medical restriction at sync time.
type RestrictionSnapshot struct {
	Severity            Severity `bson:"severity" json:"severity"`
	AffectedBodyParts   []string `bson:"affectedBodyParts,omitempty" json:"affectedBodyParts,omitempty"`
	RestrictedMovements []string `bson:"restrictedMovements,omitempty" json:"restrictedMovements,omitempty"`
	MaxExertionLevel    *float64 `bson:"maxExertionLevel,omitempty" json:"maxExertionLevel,omitempty"`
	RequiresSupervision bool     `bson:"requiresSupervision" json:"requiresSupervision"`
	ClearanceRequired   bool     `bson:"clearanceRequired" json:"clearanceRequired"`
}

// WorkoutPlayerOverride is a player-specific modification to an assignment.
// Records are never deleted, only status-transitioned.
type WorkoutPlayerOverride struct {
	ID                  primitive.ObjectID    `bson:"_id,omitempty" json:"id"`
	WorkoutAssignmentID primitive.ObjectID    `bson:"workoutAssignmentId" json:"workoutAssignmentId"`
	PlayerID            string                `bson:"playerId" json:"playerId"`
	OrganizationID      string                `bson:"organizationId" json:"organizationId"` // copied from the assignment
	Type                OverrideType          `bson:"type" json:"type"`
	Status              OverrideStatus        `bson:"status" json:"status"`
	EffectiveDate       time.Time             `bson:"effectiveDate" json:"effectiveDate"`
	ExpiryDate          *time.Time            `bson:"expiryDate,omitempty" json:"expiryDate,omitempty"`
	Modifications       OverrideModifications `bson:"modifications" json:"modifications"`
	MedicalRecordID     *string               `bson:"medicalRecordId,omitempty" json:"medicalRecordId,omitempty"`
	Restriction         *RestrictionSnapshot  `bson:"restriction,omitempty" json:"restriction,omitempty"`
	Notes               string                `bson:"notes,omitempty" json:"notes,omitempty"`
	RequestedBy         string                `bson:"requestedBy" json:"requestedBy"`
	RequestedAt         time.Time             `bson:"requestedAt" json:"requestedAt"`
	ApprovedBy          *string               `bson:"approvedBy,omitempty" json:"approvedBy,omitempty"`
	ApprovedAt          *time.Time            `bson:"approvedAt,omitempty" json:"approvedAt,omitempty"`
	CreatedAt           time.Time             `bson:"createdAt" json:"createdAt"`
	UpdatedAt           time.Time             `bson:"updatedAt" json:"updatedAt"`
}

// ActiveDuring reports whether a live override overlaps [from, to].
func (o *WorkoutPlayerOverride) ActiveDuring(from, to time.Time) bool {
	if !o.Status.IsLive() {
		return false
	}
	return WindowsOverlap(o.EffectiveDate, o.ExpiryDate, from, &to)
}

// OverrideKey is the identity tuple backed by the unique index.
type OverrideKey struct {
	WorkoutAssignmentID primitive.ObjectID
	PlayerID            string
	EffectiveDate       time.Time
}

func (o *WorkoutPlayerOverride) Key() OverrideKey {
	return OverrideKey{
		WorkoutAssignmentID: o.WorkoutAssignmentID,
		PlayerID:            o.PlayerID,
		EffectiveDate:       StartOfDay(o.EffectiveDate),
	}
}
