package service

import (
	"alcyxob/training-service/internal/cache"
	"alcyxob/training-service/internal/client"
	"alcyxob/training-service/internal/domain"
	"alcyxob/training-service/internal/events"
	"alcyxob/training-service/internal/repository"
	"context"
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	// PlanningActor is recorded as requester on workload overrides.
	PlanningActor = "planning-service"

	defaultBreachMultiplier = 0.8
	breachLookahead         = 7 * 24 * time.Hour
)

// PlanningCacheTTLs configures the stale-tolerant planning cache.
type PlanningCacheTTLs struct {
	Phase time.Duration
	Plan  time.Duration
	Stale time.Duration
}

type AdjustmentResult struct {
	TeamID        string               `json:"teamId"`
	PhaseID       string               `json:"phaseId,omitempty"`
	Adjusted      int                  `json:"adjusted"`
	Skipped       int                  `json:"skipped"`
	Failed        int                  `json:"failed"`
	AssignmentIDs []primitive.ObjectID `json:"assignmentIds,omitempty"`
	NoPhase       bool                 `json:"noPhase,omitempty"`
}

// WorkloadBreach is the payload of planning.workload.threshold_breach.
type WorkloadBreach struct {
	PlayerID                 string    `json:"playerId"`
	TeamID                   string    `json:"teamId,omitempty"`
	OrganizationID           string    `json:"organizationId,omitempty"`
	Metric                   string    `json:"metric,omitempty"`
	Value                    float64   `json:"value"`
	Threshold                float64   `json:"threshold"`
	RecommendedLoadReduction float64   `json:"recommendedLoadReduction,omitempty"` // fraction, e.g. 0.2
	DetectedAt               time.Time `json:"detectedAt"`
}

// multiplier derives the load multiplier: the recommendation, else threshold/value, else 0.8.
func (b WorkloadBreach) multiplier() float64 {
	if b.RecommendedLoadReduction > 0 && b.RecommendedLoadReduction < 1 {
		return 1 - b.RecommendedLoadReduction
	}
	if b.Threshold > 0 && b.Value > b.Threshold {
		return b.Threshold / b.Value
	}
	return defaultBreachMultiplier
}

type BreachResult struct {
	PlayerID         string          `json:"playerId"`
	LoadMultiplier   float64         `json:"loadMultiplier"`
	OverridesCreated int             `json:"overridesCreated"`
	OverridesUpdated int             `json:"overridesUpdated"`
	Failed           []PlayerFailure `json:"failed,omitempty"`
}

// --- Service Interface ---
type PlanningService interface {
	GetCurrentPhase(ctx context.Context, teamID string) *domain.PlanningPhase
	GetSeasonPlan(ctx context.Context, teamID string) *domain.SeasonPlan
	ApplyPhaseAdjustments(ctx context.Context, teamID, phaseID string) (*AdjustmentResult, error)
	SyncPhaseUpdates(ctx context.Context, teamID string) (*AdjustmentResult, error)
	HandleWorkloadBreach(ctx context.Context, breach WorkloadBreach) (*BreachResult, error)
	AnalyzeWorkload(ctx context.Context, req client.WorkloadAnalysisRequest) (*client.WorkloadAnalysis, error)
	GetTemplate(ctx context.Context, templateID string) (*domain.PlanningTemplate, error)
	InvalidateTeam(ctx context.Context, teamID string)
}

// --- Service Implementation ---

type planningService struct {
	planning       client.PlanningClient
	assignmentRepo repository.AssignmentRepository
	overrides      OverrideService
	assignments    AssignmentService
	publisher      *events.Publisher
	cache          cache.Cache
	ttl            PlanningCacheTTLs
	log            *zap.Logger
	now            func() time.Time
}

// NewPlanningService creates the planning phase adjuster.
func NewPlanningService(
	planning client.PlanningClient,
	assignmentRepo repository.AssignmentRepository,
	overrides OverrideService,
	assignments AssignmentService,
	publisher *events.Publisher,
	c cache.Cache,
	ttl PlanningCacheTTLs,
	log *zap.Logger,
) PlanningService {
	return &planningService{
		planning:       planning,
		assignmentRepo: assignmentRepo,
		overrides:      overrides,
		assignments:    assignments,
		publisher:      publisher,
		cache:          c,
		ttl:            ttl,
		log:            log.Named("planning"),
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// staleTolerant serves key from cache, else fetches and refreshes both the fresh and the
// stale copy. When the fetch fails the stale copy (or nil) is returned.
func staleTolerant[T any](ctx context.Context, c cache.Cache, log *zap.Logger, key string, ttl, staleTTL time.Duration, fetch func(context.Context) (*T, error)) *T {
	var hit T
	if ok, err := c.Get(ctx, key, &hit); err != nil {
		log.Warn("planning cache read failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		return &hit
	}

	fresh, err := fetch(ctx)
	if err != nil {
		log.Warn("planning service unavailable, serving stale data", zap.String("key", key), zap.Error(err))
		var stale T
		if ok, _ := c.Get(ctx, cache.StaleKey(key), &stale); ok {
			return &stale
		}
		return nil
	}
	if fresh == nil {
		return nil
	}
	if err := c.Set(ctx, key, fresh, ttl); err != nil {
		log.Warn("planning cache write failed", zap.String("key", key), zap.Error(err))
	}
	if err := c.Set(ctx, cache.StaleKey(key), fresh, staleTTL); err != nil {
		log.Warn("planning cache write failed", zap.String("key", cache.StaleKey(key)), zap.Error(err))
	}
	return fresh
}

func (s *planningService) GetCurrentPhase(ctx context.Context, teamID string) *domain.PlanningPhase {
	return staleTolerant(ctx, s.cache, s.log, cache.PhaseKey(teamID), s.ttl.Phase, s.ttl.Stale,
		func(ctx context.Context) (*domain.PlanningPhase, error) {
			return s.planning.GetCurrentPhase(ctx, teamID)
		})
}

func (s *planningService) GetSeasonPlan(ctx context.Context, teamID string) *domain.SeasonPlan {
	return staleTolerant(ctx, s.cache, s.log, cache.PlanKey(teamID), s.ttl.Plan, s.ttl.Stale,
		func(ctx context.Context) (*domain.SeasonPlan, error) {
			return s.planning.GetSeasonPlan(ctx, teamID)
		})
}

// InvalidateTeam drops the fresh copies; stale copies stay as fallback.
func (s *planningService) InvalidateTeam(ctx context.Context, teamID string) {
	for _, key := range []string{cache.PhaseKey(teamID), cache.PlanKey(teamID)} {
		if err := s.cache.Delete(ctx, key); err != nil {
			s.log.Warn("planning cache invalidation failed", zap.String("key", key), zap.Error(err))
		}
	}
}

func (s *planningService) resolvePhase(ctx context.Context, teamID, phaseID string) (*domain.PlanningPhase, error) {
	current := s.GetCurrentPhase(ctx, teamID)
	if current != nil && (phaseID == "" || current.ID == phaseID) {
		return current, nil
	}
	if phaseID != "" {
		if phase, ok := s.GetSeasonPlan(ctx, teamID).Phase(phaseID); ok {
			return &phase, nil
		}
	}
	return nil, ErrPhaseNotFound
}

// ApplyPhaseAdjustments scales the team's active assignments inside the phase window.
// Assignments already tagged with the phase are skipped, so repeated calls are no-ops.
func (s *planningService) ApplyPhaseAdjustments(ctx context.Context, teamID, phaseID string) (*AdjustmentResult, error) {
	if teamID == "" {
		return nil, &ValidationError{Fields: map[string]string{"teamId": "is required"}}
	}
	phase, err := s.resolvePhase(ctx, teamID, phaseID)
	if err != nil {
		return nil, err
	}

	from, to := domain.StartOfDay(phase.StartDate), domain.EndOfDay(phase.EndDate)
	list, err := s.assignmentRepo.Find(ctx, repository.AssignmentFilter{
		TeamID:         teamID,
		Statuses:       []domain.AssignmentStatus{domain.StatusActive},
		EffectiveFrom:  &from,
		EffectiveTo:    &to,
		ExcludeParents: true,
	})
	if err != nil {
		return nil, fmt.Errorf("load team assignments: %w", err)
	}

	result := &AdjustmentResult{TeamID: teamID, PhaseID: phase.ID}
	for i := range list {
		a := &list[i]
		if a.Metadata.PlanningPhaseID == phase.ID {
			result.Skipped++
			continue
		}
		adjustForPhase(a, *phase, s.now())
		if err := s.assignmentRepo.Update(ctx, a); err != nil {
			s.log.Warn("phase adjustment failed", zap.String("assignmentId", a.ID.Hex()), zap.Error(err))
			result.Failed++
			continue
		}
		result.Adjusted++
		result.AssignmentIDs = append(result.AssignmentIDs, a.ID)
		if s.assignments != nil {
			s.assignments.InvalidatePlayer(ctx, a.PlayerID)
		}
	}

	s.log.Info("phase adjustments applied",
		zap.String("teamId", teamID),
		zap.String("phaseId", phase.ID),
		zap.Int("adjusted", result.Adjusted),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed))
	s.publisher.Publish(ctx, events.TopicPhaseAdjustmentsApplied, result)
	return result, nil
}

// adjustForPhase applies the load, frequency and intensity rules from the baseline and
// tags the assignment with the phase.
func adjustForPhase(a *domain.WorkoutAssignment, phase domain.PlanningPhase, now time.Time) {
	md := &a.Metadata
	if md.Baseline == nil {
		md.Baseline = &domain.AdjustmentBaseline{}
	}
	base := md.Baseline

	if lp := a.LoadProgression; lp != nil && phase.LoadMultiplier > 0 {
		if base.BaseLoad == nil {
			v := lp.BaseLoad
			base.BaseLoad = &v
		}
		before := lp.BaseLoad
		after := math.Round(*base.BaseLoad * phase.LoadMultiplier)
		if lp.MinLoad != nil && after < *lp.MinLoad {
			after = *lp.MinLoad
		}
		if lp.MaxLoad != nil && after > *lp.MaxLoad {
			after = *lp.MaxLoad
		}
		lp.BaseLoad = after
		md.Append(domain.AdjustmentEntry{
			Kind: domain.AdjustmentLoad, PhaseID: phase.ID, AppliedAt: now,
			Load: &domain.LoadAdjustment{Before: before, After: after, Multiplier: phase.LoadMultiplier},
		})
	}

	if rp := a.RecurrencePattern; rp != nil && phase.TrainingFrequency > 0 {
		if base.Interval == nil {
			v := rp.Interval
			base.Interval = &v
		}
		before := rp.Interval
		rp.Interval = max(1, int(math.Round(7/phase.TrainingFrequency)))
		md.Append(domain.AdjustmentEntry{
			Kind: domain.AdjustmentFrequency, PhaseID: phase.ID, AppliedAt: now,
			Frequency: &domain.FrequencyAdjustment{BeforeInterval: before, AfterInterval: rp.Interval, TrainingFrequency: phase.TrainingFrequency},
		})
	}

	if pt := a.PerformanceThresholds; pt != nil && pt.HeartRate != nil && phase.Intensity != "" {
		if base.HeartRateMax == nil {
			v := pt.HeartRate.Max
			base.HeartRateMax = &v
		}
		before := pt.HeartRate.Max
		mult := phase.Intensity.Multiplier()
		pt.HeartRate.Max = int(math.Round(float64(*base.HeartRateMax) * mult))
		if pt.HeartRate.Min > pt.HeartRate.Max {
			pt.HeartRate.Min = pt.HeartRate.Max
		}
		md.Append(domain.AdjustmentEntry{
			Kind: domain.AdjustmentIntensity, PhaseID: phase.ID, AppliedAt: now,
			Intensity: &domain.IntensityAdjustment{
				BeforeHeartRateMax: before, AfterHeartRateMax: pt.HeartRate.Max,
				Intensity: phase.Intensity, Multiplier: mult,
			},
		})
	}

	md.Version = domain.MetadataVersion
	md.PlanningPhaseID = phase.ID
	md.PlanningPhaseType = phase.Type
	md.LastAdjustedAt = &now
}

// SyncPhaseUpdates refetches the team's current phase and applies it. No current phase is
// a no-op rather than an error.
func (s *planningService) SyncPhaseUpdates(ctx context.Context, teamID string) (*AdjustmentResult, error) {
	if teamID == "" {
		return nil, &ValidationError{Fields: map[string]string{"teamId": "is required"}}
	}
	s.InvalidateTeam(ctx, teamID)
	phase := s.GetCurrentPhase(ctx, teamID)
	if phase == nil {
		s.log.Info("no current phase, nothing to sync", zap.String("teamId", teamID))
		return &AdjustmentResult{TeamID: teamID, NoPhase: true}, nil
	}
	return s.ApplyPhaseAdjustments(ctx, teamID, phase.ID)
}

// HandleWorkloadBreach requests reduced-load performance overrides on the player's
// upcoming active assignments. They wait for staff approval.
func (s *planningService) HandleWorkloadBreach(ctx context.Context, breach WorkloadBreach) (*BreachResult, error) {
	if breach.PlayerID == "" {
		return nil, &ValidationError{Fields: map[string]string{"playerId": "is required"}}
	}
	mult := breach.multiplier()
	result := &BreachResult{PlayerID: breach.PlayerID, LoadMultiplier: mult}

	from := domain.StartOfDay(s.now())
	to := from.Add(breachLookahead)
	upcoming, err := s.assignmentRepo.Find(ctx, repository.AssignmentFilter{
		PlayerIDs:      []string{breach.PlayerID},
		Statuses:       []domain.AssignmentStatus{domain.StatusActive},
		EffectiveFrom:  &from,
		EffectiveTo:    &to,
		ExcludeParents: true,
	})
	if err != nil {
		return nil, fmt.Errorf("load upcoming assignments: %w", err)
	}

	note := fmt.Sprintf("workload threshold breach: %s %.2f > %.2f", breach.Metric, breach.Value, breach.Threshold)
	for _, a := range upcoming {
		m := mult
		_, created, err := s.overrides.CreateOverride(ctx, CreateOverrideRequest{
			WorkoutAssignmentID: a.ID,
			PlayerID:            breach.PlayerID,
			Type:                domain.OverridePerformance,
			EffectiveDate:       a.EffectiveDate,
			ExpiryDate:          a.ExpiryDate,
			Modifications:       domain.OverrideModifications{LoadMultiplier: &m},
			Notes:               note,
			RequestedBy:         PlanningActor,
			RequireApproval:     true,
		})
		if err != nil {
			s.log.Warn("workload override failed", zap.String("assignmentId", a.ID.Hex()), zap.Error(err))
			result.Failed = append(result.Failed, PlayerFailure{PlayerID: breach.PlayerID, Error: err.Error()})
			continue
		}
		if created {
			result.OverridesCreated++
		} else {
			result.OverridesUpdated++
		}
	}
	s.log.Info("workload breach handled",
		zap.String("playerId", breach.PlayerID),
		zap.Float64("loadMultiplier", mult),
		zap.Int("created", result.OverridesCreated))
	return result, nil
}

func (s *planningService) AnalyzeWorkload(ctx context.Context, req client.WorkloadAnalysisRequest) (*client.WorkloadAnalysis, error) {
	if req.TeamID == "" {
		return nil, &ValidationError{Fields: map[string]string{"teamId": "is required"}}
	}
	return s.planning.AnalyzeWorkload(ctx, req)
}

func (s *planningService) GetTemplate(ctx context.Context, templateID string) (*domain.PlanningTemplate, error) {
	return s.planning.GetTemplate(ctx, templateID)
}
