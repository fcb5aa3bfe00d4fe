package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"alcyxob/training-service/internal/cache"
	"alcyxob/training-service/internal/client"
	"alcyxob/training-service/internal/domain"
	"alcyxob/training-service/internal/events"
	"alcyxob/training-service/internal/repository/memory"
	"alcyxob/training-service/internal/restriction"
	"alcyxob/training-service/internal/service"
	"alcyxob/training-service/internal/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// =============================================================================
// FAKE UPSTREAMS
// =============================================================================

type fakeMedical struct {
	mu           sync.Mutex
	restrictions []domain.MedicalRestriction
	err          error
	concerns     []client.Concern
}

func (m *fakeMedical) GetRestrictions(_ context.Context, q client.RestrictionQuery) ([]domain.MedicalRestriction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.MedicalRestriction
	for _, r := range m.restrictions {
		if len(q.PlayerIDs) > 0 && !containsString(q.PlayerIDs, r.PlayerID) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *fakeMedical) GetPlayerRestrictions(ctx context.Context, playerID string) ([]domain.MedicalRestriction, error) {
	return m.GetRestrictions(ctx, client.RestrictionQuery{PlayerIDs: []string{playerID}})
}

func (m *fakeMedical) ReportConcern(_ context.Context, c client.Concern) (*client.ConcernAck, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.concerns = append(m.concerns, c)
	return &client.ConcernAck{ID: "concern-1", Status: "received"}, nil
}

func (m *fakeMedical) set(rs ...domain.MedicalRestriction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.restrictions = rs
}

type fakePlanning struct {
	mu          sync.Mutex
	phase       *domain.PlanningPhase
	plan        *domain.SeasonPlan
	err         error
	phaseCalls  int
	completions []client.CompletionReport
}

func (p *fakePlanning) GetCurrentPhase(context.Context, string) (*domain.PlanningPhase, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.phaseCalls++
	if p.err != nil {
		return nil, p.err
	}
	return p.phase, nil
}

func (p *fakePlanning) GetSeasonPlan(context.Context, string) (*domain.SeasonPlan, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	return p.plan, nil
}

func (p *fakePlanning) GetTemplate(_ context.Context, id string) (*domain.PlanningTemplate, error) {
	return &domain.PlanningTemplate{ID: id, Name: "Template"}, nil
}

func (p *fakePlanning) AnalyzeWorkload(_ context.Context, req client.WorkloadAnalysisRequest) (*client.WorkloadAnalysis, error) {
	return &client.WorkloadAnalysis{TeamID: req.TeamID}, nil
}

func (p *fakePlanning) ReportCompletion(_ context.Context, r client.CompletionReport) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.completions = append(p.completions, r)
	return nil
}

var errUpstreamDown = &client.UpstreamError{Service: "planning", StatusCode: 503, Err: errors.New("unavailable")}

// =============================================================================
// FIXTURE
// =============================================================================

type recorder struct {
	mu     sync.Mutex
	topics []string
}

func (r *recorder) count(topic string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.topics {
		if t == topic {
			n++
		}
	}
	return n
}

type fixture struct {
	assignments *memory.AssignmentRepository
	overrides   *memory.OverrideRepository
	sessions    *memory.SessionRepository
	exercises   *memory.ExerciseRepository
	roster      *memory.RosterRepository
	reports     *memory.ReportRepository
	cache       *cache.MemoryCache
	medical     *fakeMedical
	planning    *fakePlanning
	events      *recorder

	overrideSvc   service.OverrideService
	assignmentSvc service.AssignmentService
	complianceSvc service.ComplianceService
	syncSvc       service.MedicalSyncService
	planningSvc   service.PlanningService
}

func newFixture(t *testing.T, store storage.FileStorage) *fixture {
	t.Helper()
	log := zap.NewNop()
	f := &fixture{
		assignments: memory.NewAssignmentRepository(),
		overrides:   memory.NewOverrideRepository(),
		sessions:    memory.NewSessionRepository(),
		exercises:   memory.NewExerciseRepository(),
		roster:      memory.NewRosterRepository(),
		reports:     memory.NewReportRepository(),
		cache:       cache.NewMemoryCache(),
		medical:     &fakeMedical{},
		planning:    &fakePlanning{},
		events:      &recorder{},
	}
	if store == nil {
		store = storage.NoopStorage{}
	}

	bus := events.NewLocalBus(log)
	for _, topic := range []string{
		events.TopicWorkoutCreated, events.TopicWorkoutAssigned, events.TopicWorkoutCompleted,
		events.TopicWorkoutCancelled, events.TopicInjuryReported, events.TopicMilestoneAchieved,
		events.TopicPhaseAdjustmentsApplied, events.TopicMedicalOverrideCreated, events.TopicMedicalSyncCompleted,
	} {
		bus.Subscribe(topic, func(_ context.Context, e events.Event) error {
			f.events.mu.Lock()
			defer f.events.mu.Unlock()
			f.events.topics = append(f.events.topics, e.Topic)
			return nil
		})
	}
	publisher := events.NewPublisher(bus, "training-service", 1, 0, log)

	f.overrideSvc = service.NewOverrideService(f.overrides, f.assignments, publisher, log)
	f.assignmentSvc = service.NewAssignmentService(f.assignments, f.overrides, f.sessions, f.roster,
		f.overrideSvc, f.planning, publisher, f.cache, time.Minute, log)
	f.complianceSvc = service.NewComplianceService(f.sessions, f.assignments, f.overrides, f.exercises,
		f.reports, store, f.cache, time.Minute, log)
	finder := restriction.NewFinder(f.exercises, f.cache, time.Minute, log)
	f.syncSvc = service.NewMedicalSyncService(f.medical, f.overrideSvc, f.assignments, f.sessions,
		f.exercises, finder, publisher, log)
	f.planningSvc = service.NewPlanningService(f.planning, f.assignments, f.overrideSvc, f.assignmentSvc,
		publisher, f.cache, service.PlanningCacheTTLs{Phase: time.Hour, Plan: 2 * time.Hour, Stale: 24 * time.Hour}, log)

	f.overrideSvc.OnPlayerChange(f.complianceSvc.InvalidatePlayer)
	f.overrideSvc.OnPlayerChange(f.assignmentSvc.InvalidatePlayer)
	return f
}

func (f *fixture) exercise(t *testing.T, e domain.Exercise) domain.Exercise {
	t.Helper()
	if e.OrganizationID == "" {
		e.OrganizationID = "org-1"
	}
	_, err := f.exercises.Create(context.Background(), &e)
	if err != nil {
		t.Fatalf("seed exercise: %v", err)
	}
	return e
}

func (f *fixture) session(t *testing.T, name string, exercises ...domain.Exercise) domain.WorkoutSession {
	t.Helper()
	s := domain.WorkoutSession{OrganizationID: "org-1", Name: name, DurationMinutes: 60, EstimatedLoad: 300}
	for i, e := range exercises {
		s.Exercises = append(s.Exercises, domain.SessionExercise{ExerciseID: e.ID, Sequence: i + 1})
	}
	if _, err := f.sessions.Create(context.Background(), &s); err != nil {
		t.Fatalf("seed session: %v", err)
	}
	return s
}

func (f *fixture) assign(t *testing.T, session primitive.ObjectID, player string, day time.Time) domain.WorkoutAssignment {
	t.Helper()
	a := domain.WorkoutAssignment{
		WorkoutSessionID: session,
		OrganizationID:   "org-1",
		TeamID:           "team-1",
		PlayerID:         player,
		Type:             domain.AssignmentIndividual,
		Status:           domain.StatusActive,
		EffectiveDate:    day,
		ScheduledDate:    day,
	}
	if _, err := f.assignments.Create(context.Background(), &a); err != nil {
		t.Fatalf("seed assignment: %v", err)
	}
	return a
}

func (f *fixture) players(ids ...string) {
	for _, id := range ids {
		f.roster.AddPlayer(domain.Player{ID: id, OrganizationID: "org-1", TeamID: "team-1", Active: true})
	}
}

func day(d int) time.Time {
	return time.Date(2026, time.March, d, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }

func containsString(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
