package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AssignmentType describes which hierarchy node an assignment was derived from.
type AssignmentType string

const (
	AssignmentIndividual  AssignmentType = "individual"
	AssignmentTeam        AssignmentType = "team"
	AssignmentLine        AssignmentType = "line"
	AssignmentPosition    AssignmentType = "position"
	AssignmentAgeGroup    AssignmentType = "age_group"
	AssignmentCustomGroup AssignmentType = "custom_group"
)

// Valid reports whether t is one of the known assignment types.
func (t AssignmentType) Valid() bool {
	switch t {
	case AssignmentIndividual, AssignmentTeam, AssignmentLine, AssignmentPosition, AssignmentAgeGroup, AssignmentCustomGroup:
		return true
	}
	return false
}

// AssignmentStatus type for assignment lifecycle
type AssignmentStatus string

const (
	StatusDraft     AssignmentStatus = "draft"
	StatusActive    AssignmentStatus = "active"
	StatusCompleted AssignmentStatus = "completed"
	StatusCancelled AssignmentStatus = "cancelled"
	StatusArchived  AssignmentStatus = "archived" // terminal
)

// CanTransitionTo enforces draft -> active -> {completed | cancelled} -> archived.
// A draft may also be cancelled before it is ever activated.
func (s AssignmentStatus) CanTransitionTo(next AssignmentStatus) bool {
	switch s {
	case StatusDraft:
		return next == StatusActive || next == StatusCancelled
	case StatusActive:
		return next == StatusCompleted || next == StatusCancelled
	case StatusCompleted, StatusCancelled:
		return next == StatusArchived
	}
	return false
}

// IsOpen is true for statuses that still occupy a player's schedule.
func (s AssignmentStatus) IsOpen() bool {
	return s == StatusDraft || s == StatusActive
}

// AssignmentTarget records the hierarchy node(s) an assignment was resolved from.
type AssignmentTarget struct {
	PlayerIDs      []string `bson:"playerIds,omitempty" json:"playerIds,omitempty"`
	TeamIDs        []string `bson:"teamIds,omitempty" json:"teamIds,omitempty"`
	Lines          []string `bson:"lines,omitempty" json:"lines,omitempty"`
	Positions      []string `bson:"positions,omitempty" json:"positions,omitempty"`
	AgeGroups      []string `bson:"ageGroups,omitempty" json:"ageGroups,omitempty"`
	CustomGroupIDs []string `bson:"customGroupIds,omitempty" json:"customGroupIds,omitempty"`
}

// IsEmpty is true when no node of any kind was named.
func (t AssignmentTarget) IsEmpty() bool {
	return len(t.PlayerIDs) == 0 && len(t.TeamIDs) == 0 && len(t.Lines) == 0 &&
		len(t.Positions) == 0 && len(t.AgeGroups) == 0 && len(t.CustomGroupIDs) == 0
}

type RecurrenceType string

const (
	RecurrenceNone    RecurrenceType = "none"
	RecurrenceDaily   RecurrenceType = "daily"
	RecurrenceWeekly  RecurrenceType = "weekly"
	RecurrenceMonthly RecurrenceType = "monthly"
	RecurrenceCustom  RecurrenceType = "custom"
)

// RecurrencePattern describes how often an assignment repeats.
type RecurrencePattern struct {
	Interval   int         `bson:"interval" json:"interval"`                         // e.g. every N days
	DaysOfWeek []int       `bson:"daysOfWeek,omitempty" json:"daysOfWeek,omitempty"` // 0 (Sun) - 6 (Sat)
	Exceptions []time.Time `bson:"exceptions,omitempty" json:"exceptions,omitempty"`
	EndDate    *time.Time  `bson:"endDate,omitempty" json:"endDate,omitempty"`
}

// LoadProgression describes the planned training load and how it evolves.
type LoadProgression struct {
	BaseLoad        float64  `bson:"baseLoad" json:"baseLoad"`
	ProgressionType string   `bson:"progressionType,omitempty" json:"progressionType,omitempty"` // linear, step, undulating
	ProgressionRate float64  `bson:"progressionRate,omitempty" json:"progressionRate,omitempty"`
	MinLoad         *float64 `bson:"minLoad,omitempty" json:"minLoad,omitempty"`
	MaxLoad         *float64 `bson:"maxLoad,omitempty" json:"maxLoad,omitempty"`
}

// HeartRateZone is a target heart-rate window in bpm.
type HeartRateZone struct {
	Min int `bson:"min" json:"min"`
	Max int `bson:"max" json:"max"`
}

// PerformanceThresholds are the targets a player is expected to hit.
type PerformanceThresholds struct {
	HeartRate         *HeartRateZone `bson:"heartRate,omitempty" json:"heartRate,omitempty"`
	MaxRPE            *float64       `bson:"maxRpe,omitempty" json:"maxRpe,omitempty"`
	MinCompletionRate *float64       `bson:"minCompletionRate,omitempty" json:"minCompletionRate,omitempty"`
}

// WorkoutAssignment is the unit of scheduled work: a workout session assigned to a player
// (or, for org-level cascade parents, to a hierarchy node with an empty PlayerID).
type WorkoutAssignment struct {
	ID                    primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	WorkoutSessionID      primitive.ObjectID     `bson:"workoutSessionId" json:"workoutSessionId"`
	PlayerID              string                 `bson:"playerId" json:"playerId,omitempty"` // empty on parent records
	TeamID                string                 `bson:"teamId,omitempty" json:"teamId,omitempty"`
	OrganizationID        string                 `bson:"organizationId" json:"organizationId"`
	Type                  AssignmentType         `bson:"type" json:"type"`
	Status                AssignmentStatus       `bson:"status" json:"status"`
	Target                AssignmentTarget       `bson:"target" json:"target"`
	EffectiveDate         time.Time              `bson:"effectiveDate" json:"effectiveDate"`
	ExpiryDate            *time.Time             `bson:"expiryDate,omitempty" json:"expiryDate,omitempty"`
	ScheduledDate         time.Time              `bson:"scheduledDate" json:"scheduledDate"`
	RecurrenceType        RecurrenceType         `bson:"recurrenceType,omitempty" json:"recurrenceType,omitempty"`
	RecurrencePattern     *RecurrencePattern     `bson:"recurrencePattern,omitempty" json:"recurrencePattern,omitempty"`
	LoadProgression       *LoadProgression       `bson:"loadProgression,omitempty" json:"loadProgression,omitempty"`
	PerformanceThresholds *PerformanceThresholds `bson:"performanceThresholds,omitempty" json:"performanceThresholds,omitempty"`
	Priority              int                    `bson:"priority" json:"priority"` // 0-10
	ParentAssignmentID    *primitive.ObjectID    `bson:"parentAssignmentId,omitempty" json:"parentAssignmentId,omitempty"`
	Notes                 string                 `bson:"notes,omitempty" json:"notes,omitempty"`
	Metadata              AssignmentMetadata     `bson:"metadata" json:"metadata"`
	CreatedBy             string                 `bson:"createdBy,omitempty" json:"createdBy,omitempty"`
	CreatedAt             time.Time              `bson:"createdAt" json:"createdAt"`
	UpdatedAt             time.Time              `bson:"updatedAt" json:"updatedAt"`
	CompletedAt           *time.Time             `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
}

// Window returns the [start, end] interval the assignment occupies. Without an expiry
// date the assignment occupies its whole effective day.
func (a *WorkoutAssignment) Window() (time.Time, time.Time) {
	start := a.EffectiveDate
	if a.ExpiryDate != nil {
		return start, *a.ExpiryDate
	}
	return start, EndOfDay(start)
}

// Overlaps reports whether the assignment window intersects [from, to].
func (a *WorkoutAssignment) Overlaps(from, to time.Time) bool {
	start, end := a.Window()
	return !start.After(to) && !end.Before(from)
}

// Load returns the planned base load, or zero when none is set.
func (a *WorkoutAssignment) Load() float64 {
	if a.LoadProgression == nil {
		return 0
	}
	return a.LoadProgression.BaseLoad
}

// IsParent is true for org-level cascade intent records.
func (a *WorkoutAssignment) IsParent() bool {
	return a.PlayerID == ""
}

// AssignmentKey is the identity tuple backed by the unique index.
type AssignmentKey struct {
	WorkoutSessionID primitive.ObjectID
	OrganizationID   string
	EffectiveDate    time.Time
	PlayerID         string
}

// Key returns the uniqueness tuple of the assignment.
func (a *WorkoutAssignment) Key() AssignmentKey {
	return AssignmentKey{
		WorkoutSessionID: a.WorkoutSessionID,
		OrganizationID:   a.OrganizationID,
		EffectiveDate:    StartOfDay(a.EffectiveDate),
		PlayerID:         a.PlayerID,
	}
}
