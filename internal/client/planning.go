package client

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"alcyxob/training-service/internal/domain"
)

// WorkloadAnalysisRequest asks the planning service to evaluate a player's load.
type WorkloadAnalysisRequest struct {
	TeamID    string    `json:"teamId"`
	PlayerIDs []string  `json:"playerIds,omitempty"`
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
}

type PlayerWorkload struct {
	PlayerID       string  `json:"playerId"`
	AcuteLoad      float64 `json:"acuteLoad"`
	ChronicLoad    float64 `json:"chronicLoad"`
	Ratio          float64 `json:"ratio"`
	Recommendation string  `json:"recommendation,omitempty"`
}

type WorkloadAnalysis struct {
	TeamID  string           `json:"teamId"`
	Players []PlayerWorkload `json:"players"`
}

// CompletionReport tells the planning service a session was completed.
type CompletionReport struct {
	AssignmentID     string    `json:"assignmentId"`
	WorkoutSessionID string    `json:"workoutSessionId"`
	PlayerID         string    `json:"playerId"`
	TeamID           string    `json:"teamId,omitempty"`
	PlanningPhaseID  string    `json:"planningPhaseId,omitempty"`
	Load             float64   `json:"load"`
	CompletedAt      time.Time `json:"completedAt"`
}

// PlanningClient is the planning-service contract the training service consumes.
type PlanningClient interface {
	GetCurrentPhase(ctx context.Context, teamID string) (*domain.PlanningPhase, error)
	GetSeasonPlan(ctx context.Context, teamID string) (*domain.SeasonPlan, error)
	GetTemplate(ctx context.Context, templateID string) (*domain.PlanningTemplate, error)
	AnalyzeWorkload(ctx context.Context, req WorkloadAnalysisRequest) (*WorkloadAnalysis, error)
	ReportCompletion(ctx context.Context, report CompletionReport) error
}

type planningClient struct {
	httpClient
}

func NewPlanningClient(opts Options) PlanningClient {
	return &planningClient{httpClient: newHTTPClient("planning-service", opts)}
}

// GetCurrentPhase returns nil without error when the team has no current phase.
func (c *planningClient) GetCurrentPhase(ctx context.Context, teamID string) (*domain.PlanningPhase, error) {
	var out struct {
		Phase *domain.PlanningPhase `json:"phase"`
	}
	path := "/api/v1/planning/teams/" + url.PathEscape(teamID) + "/current-phase"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Phase, nil
}

func (c *planningClient) GetSeasonPlan(ctx context.Context, teamID string) (*domain.SeasonPlan, error) {
	var out struct {
		Plan *domain.SeasonPlan `json:"plan"`
	}
	path := "/api/v1/planning/teams/" + url.PathEscape(teamID) + "/season-plan"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Plan, nil
}

func (c *planningClient) GetTemplate(ctx context.Context, templateID string) (*domain.PlanningTemplate, error) {
	var out domain.PlanningTemplate
	if err := c.do(ctx, http.MethodGet, "/api/v1/planning/templates/"+url.PathEscape(templateID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *planningClient) AnalyzeWorkload(ctx context.Context, req WorkloadAnalysisRequest) (*WorkloadAnalysis, error) {
	var out WorkloadAnalysis
	if err := c.do(ctx, http.MethodPost, "/api/v1/planning/workload/analyze", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *planningClient) ReportCompletion(ctx context.Context, report CompletionReport) error {
	return c.do(ctx, http.MethodPost, "/api/v1/planning/training/completion", report, nil)
}
