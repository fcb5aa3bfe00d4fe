package domain

import "time"

// IntensityLevel is the planning service's intensity label for a phase.
type IntensityLevel string

const (
	IntensityLow      IntensityLevel = "low"
	IntensityMedium   IntensityLevel = "medium"
	IntensityHigh     IntensityLevel = "high"
	IntensityPeak     IntensityLevel = "peak"
	IntensityRecovery IntensityLevel = "recovery"
)

// Multiplier scales heart-rate ceilings for the intensity label. Unknown labels are neutral.
func (l IntensityLevel) Multiplier() float64 {
	switch l {
	case IntensityLow:
		return 0.8
	case IntensityMedium:
		return 1.0
	case IntensityHigh:
		return 1.2
	case IntensityPeak:
		return 1.4
	case IntensityRecovery:
		return 0.6
	}
	return 1.0
}

// PlanningPhase is fetched from the planning service; never persisted here.
type PlanningPhase struct {
	ID                string         `json:"id"`
	Name              string         `json:"name,omitempty"`
	Type              string         `json:"type"` // preseason, in_season, playoffs, off_season, ...
	StartDate         time.Time      `json:"startDate"`
	EndDate           time.Time      `json:"endDate"`
	LoadMultiplier    float64        `json:"loadMultiplier"`
	TrainingFrequency float64        `json:"trainingFrequency"` // sessions per week
	GameFrequency     float64        `json:"gameFrequency,omitempty"`
	Intensity         IntensityLevel `json:"intensity"`
	Focus             []string       `json:"focus,omitempty"`
}

// Contains reports whether t falls inside the phase window (whole days).
func (p PlanningPhase) Contains(t time.Time) bool {
	return !t.Before(StartOfDay(p.StartDate)) && !t.After(EndOfDay(p.EndDate))
}

// SeasonPlan groups the phases of a team's season.
type SeasonPlan struct {
	ID        string          `json:"id"`
	TeamID    string          `json:"teamId"`
	Season    string          `json:"season,omitempty"`
	StartDate time.Time       `json:"startDate"`
	EndDate   time.Time       `json:"endDate"`
	Phases    []PlanningPhase `json:"phases"`
}

// Phase looks up a phase of the plan by id.
func (p *SeasonPlan) Phase(id string) (PlanningPhase, bool) {
	if p == nil {
		return PlanningPhase{}, false
	}
	for _, ph := range p.Phases {
		if ph.ID == id {
			return ph, true
		}
	}
	return PlanningPhase{}, false
}

// PlanningTemplate is a reusable set of sessions published by the planning service.
type PlanningTemplate struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	PhaseType   string   `json:"phaseType,omitempty"`
	SessionIDs  []string `json:"sessionIds,omitempty"`
	Description string   `json:"description,omitempty"`
}
