package domain

import (
	"strings"
	"time"
)

// Severity of a medical restriction. The set is closed; anything unknown parses to SeverityNone.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
	SeverityComplete Severity = "complete"
)

// ParseSeverity normalises free text from the medical service.
func ParseSeverity(s string) Severity {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case SeverityMild:
		return SeverityMild
	case SeverityModerate:
		return SeverityModerate
	case SeveritySevere:
		return SeveritySevere
	case SeverityComplete:
		return SeverityComplete
	}
	return SeverityNone
}

// Rank orders severities from none (0) to complete (4).
func (s Severity) Rank() int {
	switch ParseSeverity(string(s)) {
	case SeverityMild:
		return 1
	case SeverityModerate:
		return 2
	case SeveritySevere:
		return 3
	case SeverityComplete:
		return 4
	}
	return 0
}

type RestrictionStatus string

const (
	RestrictionActive  RestrictionStatus = "active"
	RestrictionPending RestrictionStatus = "pending"
	RestrictionExpired RestrictionStatus = "expired"
	RestrictionCleared RestrictionStatus = "cleared"
)

// ParseRestrictionStatus matches case-insensitively; unknown values are pending.
func ParseRestrictionStatus(s string) RestrictionStatus {
	switch RestrictionStatus(strings.ToLower(strings.TrimSpace(s))) {
	case RestrictionActive:
		return RestrictionActive
	case RestrictionExpired:
		return RestrictionExpired
	case RestrictionCleared:
		return RestrictionCleared
	}
	return RestrictionPending
}

// MedicalRestriction is owned by the medical service and mirrored read-only.
type MedicalRestriction struct {
	ID                      string            `json:"id"`
	PlayerID                string            `json:"playerId"`
	OrganizationID          string            `json:"organizationId,omitempty"`
	TeamID                  string            `json:"teamId,omitempty"`
	Severity                Severity          `json:"severity"`
	Status                  RestrictionStatus `json:"status"`
	AffectedBodyParts       []string          `json:"affectedBodyParts,omitempty"`
	RestrictedMovements     []string          `json:"restrictedMovements,omitempty"`
	RestrictedExerciseTypes []string          `json:"restrictedExerciseTypes,omitempty"`
	MaxExertionLevel        *float64          `json:"maxExertionLevel,omitempty"` // percent
	RequiresSupervision     bool              `json:"requiresSupervision"`
	ClearanceRequired       bool              `json:"clearanceRequired"`
	EffectiveDate           time.Time         `json:"effectiveDate"`
	ExpiryDate              *time.Time        `json:"expiryDate,omitempty"`
	PrescribedBy            string            `json:"prescribedBy,omitempty"`
	Notes                   string            `json:"notes,omitempty"`
}

// IsActive is true while the medical service enforces the restriction.
func (r MedicalRestriction) IsActive() bool {
	return ParseRestrictionStatus(string(r.Status)) == RestrictionActive
}

// IsActiveAt is true for an active restriction whose window contains t.
func (r MedicalRestriction) IsActiveAt(t time.Time) bool {
	if !r.IsActive() {
		return false
	}
	if t.Before(StartOfDay(r.EffectiveDate)) {
		return false
	}
	return r.ExpiryDate == nil || !t.After(*r.ExpiryDate)
}

// IsLifted is true once the medical service no longer enforces the restriction.
func (r MedicalRestriction) IsLifted() bool {
	status := ParseRestrictionStatus(string(r.Status))
	return status == RestrictionCleared || status == RestrictionExpired
}
