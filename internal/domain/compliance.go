package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ComplianceStatus string

const (
	ComplianceNotApplicable ComplianceStatus = "not_applicable"
	ComplianceCompliant     ComplianceStatus = "compliant"
	CompliancePartial       ComplianceStatus = "partial"
	ComplianceNonCompliant  ComplianceStatus = "non_compliant"
)

// Weight orders statuses: non_compliant > partial > compliant > not_applicable.
func (s ComplianceStatus) Weight() int {
	switch s {
	case ComplianceCompliant:
		return 1
	case CompliancePartial:
		return 2
	case ComplianceNonCompliant:
		return 3
	}
	return 0
}

// MostSevere returns the heavier of two statuses.
func MostSevere(a, b ComplianceStatus) ComplianceStatus {
	if b.Weight() > a.Weight() {
		return b
	}
	return a
}

type ViolationRule string

const (
	ViolationExcludedExercise   ViolationRule = "excluded_exercise"
	ViolationRestrictedMovement ViolationRule = "restricted_movement"
	ViolationExceedsExertion    ViolationRule = "exceeds_max_exertion"
	ViolationUnsupervised       ViolationRule = "requires_supervision"
)

type ComplianceViolation struct {
	AssignmentID primitive.ObjectID `json:"assignmentId"`
	OverrideID   primitive.ObjectID `json:"overrideId"`
	ExerciseID   primitive.ObjectID `json:"exerciseId"`
	ExerciseName string             `json:"exerciseName"`
	Rule         ViolationRule      `json:"rule"`
	Detail       string             `json:"detail"`
}

type PlayerCompliance struct {
	PlayerID        string                `json:"playerId"`
	Status          ComplianceStatus      `json:"status"`
	AssignmentIDs   []primitive.ObjectID  `json:"assignmentIds"`
	ActiveOverrides int                   `json:"activeOverrides"`
	PendingApproval bool                  `json:"pendingApproval"`
	Violations      []ComplianceViolation `json:"violations,omitempty"`
}

type ComplianceResult struct {
	SessionID        primitive.ObjectID `json:"sessionId"`
	OrganizationID   string             `json:"organizationId"`
	OverallStatus    ComplianceStatus   `json:"overallStatus"`
	RequiresApproval bool               `json:"requiresApproval"`
	Players          []PlayerCompliance `json:"players"`
	Detailed         bool               `json:"detailed"`
	CheckedAt        time.Time          `json:"checkedAt"`
}
