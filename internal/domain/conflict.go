package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ConflictType string

const (
	ConflictScheduling ConflictType = "scheduling"
	ConflictMedical    ConflictType = "medical"
	ConflictLoadLimit  ConflictType = "load_limit"
	ConflictDuplicate  ConflictType = "duplicate"
)

type ConflictSeverity string

const (
	ConflictLow      ConflictSeverity = "low"
	ConflictMedium   ConflictSeverity = "medium"
	ConflictHigh     ConflictSeverity = "high"
	ConflictCritical ConflictSeverity = "critical"
)

// ResolutionAction is one of the ways a caller may settle a conflict.
type ResolutionAction string

const (
	ResolveCancel     ResolutionAction = "cancel"
	ResolveReschedule ResolutionAction = "reschedule"
	ResolveMerge      ResolutionAction = "merge"
	ResolveOverride   ResolutionAction = "override"
)

// ProposedAssignment is the delta the caller wanted to commit.
type ProposedAssignment struct {
	WorkoutSessionID primitive.ObjectID `json:"workoutSessionId"`
	EffectiveDate    time.Time          `json:"effectiveDate"`
	ExpiryDate       *time.Time         `json:"expiryDate,omitempty"`
	Load             float64            `json:"load,omitempty"`
}

// ConflictInfo is transient: produced by conflict checks, never persisted.
type ConflictInfo struct {
	ID                 string              `json:"id"`
	Type               ConflictType        `json:"type"`
	Severity           ConflictSeverity    `json:"severity"`
	PlayerID           string              `json:"playerId"`
	ExistingAssignment *WorkoutAssignment  `json:"existingAssignment,omitempty"`
	ExistingOverrideID *primitive.ObjectID `json:"existingOverrideId,omitempty"`
	Proposed           ProposedAssignment  `json:"proposed"`
	Message            string              `json:"message"`
	Resolutions        []ResolutionAction  `json:"resolutions"`
}

// Allows reports whether action is a permissible resolution for the conflict.
func (c ConflictInfo) Allows(action ResolutionAction) bool {
	for _, r := range c.Resolutions {
		if r == action {
			return true
		}
	}
	return false
}
