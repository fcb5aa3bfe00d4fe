// Package restriction maps medical restrictions onto training limits: load and rest
// multipliers, priorities and the set of exercises a player must not perform.
// Everything in mapper.go is pure.
package restriction

import (
	"fmt"
	"strings"
	"time"

	"alcyxob/training-service/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LoadMultiplier scales prescribed load for a severity.
func LoadMultiplier(s domain.Severity) float64 {
	switch domain.ParseSeverity(string(s)) {
	case domain.SeverityComplete:
		return 0
	case domain.SeveritySevere:
		return 0.3
	case domain.SeverityModerate:
		return 0.6
	case domain.SeverityMild:
		return 0.8
	default:
		return 1.0
	}
}

// RestMultiplier scales prescribed rest for a severity.
func RestMultiplier(s domain.Severity) float64 {
	switch domain.ParseSeverity(string(s)) {
	case domain.SeverityComplete, domain.SeveritySevere:
		return 2.0
	case domain.SeverityModerate:
		return 1.5
	case domain.SeverityMild:
		return 1.2
	default:
		return 1.0
	}
}

// PriorityFor labels how urgently a restriction must be honored.
func PriorityFor(s domain.Severity) domain.ConflictSeverity {
	switch domain.ParseSeverity(string(s)) {
	case domain.SeverityComplete:
		return domain.ConflictCritical
	case domain.SeveritySevere:
		return domain.ConflictHigh
	case domain.SeverityModerate:
		return domain.ConflictMedium
	default:
		return domain.ConflictLow
	}
}

// Limits is the part of a restriction that decides which exercises are off limits.
type Limits struct {
	ExerciseTypes []string `json:"restrictedExerciseTypes,omitempty"`
	Movements     []string `json:"restrictedMovements,omitempty"`
	BodyParts     []string `json:"affectedBodyParts,omitempty"`
	MaxExertion   *float64 `json:"maxExertionLevel,omitempty"`
}

// LimitsOf extracts the exclusion-relevant fields of a restriction.
func LimitsOf(r domain.MedicalRestriction) Limits {
	return Limits{
		ExerciseTypes: r.RestrictedExerciseTypes,
		Movements:     r.RestrictedMovements,
		BodyParts:     r.AffectedBodyParts,
		MaxExertion:   r.MaxExertionLevel,
	}
}

// Combined is the most conservative view over several active restrictions of one player.
type Combined struct {
	Limits
	Severity            domain.Severity `json:"severity"`
	LoadMultiplier      float64         `json:"loadMultiplier"`
	RestMultiplier      float64         `json:"restMultiplier"`
	RequiresSupervision bool            `json:"requiresSupervision"`
	ClearanceRequired   bool            `json:"clearanceRequired"`
	RestrictionIDs      []string        `json:"restrictionIds,omitempty"`
	EffectiveDate       time.Time       `json:"effectiveDate"`
	ExpiryDate          *time.Time      `json:"expiryDate,omitempty"` // nil when any restriction is open-ended
}

// IsEmpty is true when no active restriction contributed.
func (c Combined) IsEmpty() bool {
	return len(c.RestrictionIDs) == 0
}

// Snapshot converts the combined view into the structure stored on overrides.
func (c Combined) Snapshot() domain.RestrictionSnapshot {
	return domain.RestrictionSnapshot{
		Severity:            c.Severity,
		AffectedBodyParts:   c.BodyParts,
		RestrictedMovements: c.Movements,
		MaxExertionLevel:    c.MaxExertion,
		RequiresSupervision: c.RequiresSupervision,
		ClearanceRequired:   c.ClearanceRequired,
	}
}

// Combine folds active restrictions: min load multiplier, max rest multiplier, union of
// limits, lowest exertion ceiling, OR of the flags and the most severe severity.
// Restrictions that are not active are ignored.
func Combine(restrictions []domain.MedicalRestriction) Combined {
	c := Combined{Severity: domain.SeverityNone, LoadMultiplier: 1.0, RestMultiplier: 1.0}
	openEnded := false

	for _, r := range restrictions {
		if !r.IsActive() {
			continue
		}
		sev := domain.ParseSeverity(string(r.Severity))
		if sev.Rank() > c.Severity.Rank() {
			c.Severity = sev
		}
		if m := LoadMultiplier(sev); m < c.LoadMultiplier {
			c.LoadMultiplier = m
		}
		if m := RestMultiplier(sev); m > c.RestMultiplier {
			c.RestMultiplier = m
		}
		c.ExerciseTypes = union(c.ExerciseTypes, r.RestrictedExerciseTypes)
		c.Movements = union(c.Movements, r.RestrictedMovements)
		c.BodyParts = union(c.BodyParts, r.AffectedBodyParts)
		if r.MaxExertionLevel != nil && (c.MaxExertion == nil || *r.MaxExertionLevel < *c.MaxExertion) {
			v := *r.MaxExertionLevel
			c.MaxExertion = &v
		}
		c.RequiresSupervision = c.RequiresSupervision || r.RequiresSupervision
		c.ClearanceRequired = c.ClearanceRequired || r.ClearanceRequired

		if len(c.RestrictionIDs) == 0 || r.EffectiveDate.Before(c.EffectiveDate) {
			c.EffectiveDate = r.EffectiveDate
		}
		if r.ExpiryDate == nil {
			openEnded = true
		} else if c.ExpiryDate == nil || r.ExpiryDate.After(*c.ExpiryDate) {
			v := *r.ExpiryDate
			c.ExpiryDate = &v
		}
		c.RestrictionIDs = append(c.RestrictionIDs, r.ID)
	}
	if openEnded {
		c.ExpiryDate = nil
	}
	return c
}

// Reason explains why an exercise is prohibited.
type Reason struct {
	Rule   string `json:"rule"`
	Detail string `json:"detail"`
}

const (
	RuleExerciseType = "restricted_exercise_type"
	RuleMovement     = "restricted_movement"
	RuleBodyPart     = "affected_body_part"
	RuleExertion     = "exceeds_max_exertion"
)

// ProhibitionReasons lists every rule the exercise breaks under the limits.
// Matching of names is case-insensitive.
func ProhibitionReasons(ex domain.Exercise, l Limits) []Reason {
	var reasons []Reason
	if containsFold(l.ExerciseTypes, ex.Category) {
		reasons = append(reasons, Reason{Rule: RuleExerciseType, Detail: fmt.Sprintf("category %q is restricted", ex.Category)})
	}
	if hit := intersectFold(ex.MovementPatterns, l.Movements); len(hit) > 0 {
		reasons = append(reasons, Reason{Rule: RuleMovement, Detail: "restricted movements: " + strings.Join(hit, ", ")})
	}
	if hit := intersectFold(ex.Muscles(), l.BodyParts); len(hit) > 0 {
		reasons = append(reasons, Reason{Rule: RuleBodyPart, Detail: "loads affected body parts: " + strings.Join(hit, ", ")})
	}
	if l.MaxExertion != nil && ex.DefaultIntensity > *l.MaxExertion {
		reasons = append(reasons, Reason{
			Rule:   RuleExertion,
			Detail: fmt.Sprintf("intensity %.0f exceeds max exertion %.0f", ex.DefaultIntensity, *l.MaxExertion),
		})
	}
	return reasons
}

func IsProhibited(ex domain.Exercise, l Limits) bool {
	return len(ProhibitionReasons(ex, l)) > 0
}

// ExclusionSet returns the exercises prohibited by any active restriction, with reasons.
func ExclusionSet(exercises []domain.Exercise, restrictions []domain.MedicalRestriction) map[primitive.ObjectID][]Reason {
	limits := Combine(restrictions).Limits
	out := make(map[primitive.ObjectID][]Reason)
	for _, ex := range exercises {
		if reasons := ProhibitionReasons(ex, limits); len(reasons) > 0 {
			out[ex.ID] = reasons
		}
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func containsFold(list []string, v string) bool {
	v = normalize(v)
	if v == "" {
		return false
	}
	for _, x := range list {
		if normalize(x) == v {
			return true
		}
	}
	return false
}

func intersectFold(a, b []string) []string {
	var out []string
	for _, x := range a {
		if containsFold(b, x) && !containsFold(out, x) {
			out = append(out, x)
		}
	}
	return out
}

func union(a, b []string) []string {
	out := a
	for _, x := range b {
		if !containsFold(out, x) {
			out = append(out, x)
		}
	}
	return out
}

// Intersect returns the entries of a also present in b, compared case-insensitively.
func Intersect(a, b []string) []string {
	return intersectFold(a, b)
}
