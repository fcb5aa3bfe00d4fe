package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MetadataVersion is bumped whenever the AssignmentMetadata layout changes.
const MetadataVersion = 1

// AdjustmentKind tags the variant carried by an AdjustmentEntry.
type AdjustmentKind string

const (
	AdjustmentLoad      AdjustmentKind = "load"
	AdjustmentFrequency AdjustmentKind = "frequency"
	AdjustmentIntensity AdjustmentKind = "intensity"
	AdjustmentMerge     AdjustmentKind = "merge"
)

// AssignmentMetadata is the versioned audit trail attached to an assignment.
// History is append-only.
type AssignmentMetadata struct {
	Version           int                 `bson:"version" json:"version"`
	PlanningPhaseID   string              `bson:"planningPhaseId,omitempty" json:"planningPhaseId,omitempty"`
	PlanningPhaseType string              `bson:"planningPhaseType,omitempty" json:"planningPhaseType,omitempty"`
	LastAdjustedAt    *time.Time          `bson:"lastAdjustedAt,omitempty" json:"lastAdjustedAt,omitempty"`
	Baseline          *AdjustmentBaseline `bson:"baseline,omitempty" json:"baseline,omitempty"`
	History           []AdjustmentEntry   `bson:"history,omitempty" json:"history,omitempty"`
}

// AdjustmentBaseline captures the values an assignment had before any planning
// adjustment, so later phases scale from the original rather than compounding.
type AdjustmentBaseline struct {
	BaseLoad     *float64 `bson:"baseLoad,omitempty" json:"baseLoad,omitempty"`
	Interval     *int     `bson:"interval,omitempty" json:"interval,omitempty"`
	HeartRateMax *int     `bson:"heartRateMax,omitempty" json:"heartRateMax,omitempty"`
}

// AdjustmentEntry is a tagged union: exactly one of the variant pointers matching
// Kind is set.
type AdjustmentEntry struct {
	Kind      AdjustmentKind       `bson:"kind" json:"kind"`
	PhaseID   string               `bson:"phaseId,omitempty" json:"phaseId,omitempty"`
	AppliedAt time.Time            `bson:"appliedAt" json:"appliedAt"`
	Load      *LoadAdjustment      `bson:"load,omitempty" json:"load,omitempty"`
	Frequency *FrequencyAdjustment `bson:"frequency,omitempty" json:"frequency,omitempty"`
	Intensity *IntensityAdjustment `bson:"intensity,omitempty" json:"intensity,omitempty"`
	Merge     *MergeRecord         `bson:"merge,omitempty" json:"merge,omitempty"`
}

type LoadAdjustment struct {
	Before     float64 `bson:"before" json:"before"`
	After      float64 `bson:"after" json:"after"`
	Multiplier float64 `bson:"multiplier" json:"multiplier"`
}

type FrequencyAdjustment struct {
	BeforeInterval    int     `bson:"beforeInterval" json:"beforeInterval"`
	AfterInterval     int     `bson:"afterInterval" json:"afterInterval"`
	TrainingFrequency float64 `bson:"trainingFrequency" json:"trainingFrequency"`
}

type IntensityAdjustment struct {
	BeforeHeartRateMax int            `bson:"beforeHeartRateMax" json:"beforeHeartRateMax"`
	AfterHeartRateMax  int            `bson:"afterHeartRateMax" json:"afterHeartRateMax"`
	Intensity          IntensityLevel `bson:"intensity" json:"intensity"`
	Multiplier         float64        `bson:"multiplier" json:"multiplier"`
}

// MergeRecord documents a merge conflict resolution.
type MergeRecord struct {
	SourceAssignmentID primitive.ObjectID `bson:"sourceAssignmentId" json:"sourceAssignmentId"`
	PreviousSessionID  primitive.ObjectID `bson:"previousSessionId" json:"previousSessionId"`
	MergedSessionID    primitive.ObjectID `bson:"mergedSessionId" json:"mergedSessionId"`
	ExerciseStrategy   string             `bson:"exerciseStrategy" json:"exerciseStrategy"`
	DurationStrategy   string             `bson:"durationStrategy" json:"durationStrategy"`
}

// Append adds an entry to the history without touching earlier entries.
func (m *AssignmentMetadata) Append(e AdjustmentEntry) {
	if m.Version == 0 {
		m.Version = MetadataVersion
	}
	m.History = append(m.History, e)
}

// EntriesFor returns the history entries recorded for a planning phase.
func (m AssignmentMetadata) EntriesFor(phaseID string) []AdjustmentEntry {
	var out []AdjustmentEntry
	for _, e := range m.History {
		if e.PhaseID == phaseID {
			out = append(out, e)
		}
	}
	return out
}
