package memory

import (
	"alcyxob/training-service/internal/domain"
	"alcyxob/training-service/internal/repository"
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// =============================================================================
// EXERCISES
// =============================================================================

type ExerciseRepository struct {
	mu   sync.RWMutex
	data map[primitive.ObjectID]domain.Exercise
}

func NewExerciseRepository(seed ...domain.Exercise) *ExerciseRepository {
	r := &ExerciseRepository{data: make(map[primitive.ObjectID]domain.Exercise)}
	for _, e := range seed {
		if e.ID.IsZero() {
			e.ID = primitive.NewObjectID()
		}
		r.data[e.ID] = e
	}
	return r
}

func (r *ExerciseRepository) Create(_ context.Context, e *domain.Exercise) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	e.CreatedAt, e.UpdatedAt = now, now
	r.data[e.ID] = *e
	return e.ID, nil
}

func (r *ExerciseRepository) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Exercise, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.data[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (r *ExerciseRepository) GetByIDs(_ context.Context, ids []primitive.ObjectID) ([]domain.Exercise, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Exercise
	for _, id := range ids {
		if e, ok := r.data[id]; ok {
			out = append(out, e)
		}
	}
	return byName(out), nil
}

func (r *ExerciseRepository) GetByOrganization(_ context.Context, organizationID string) ([]domain.Exercise, error) {
	return r.filter(func(e domain.Exercise) bool { return e.OrganizationID == organizationID }), nil
}

func (r *ExerciseRepository) GetByCategory(_ context.Context, organizationID, category string) ([]domain.Exercise, error) {
	return r.filter(func(e domain.Exercise) bool {
		return e.OrganizationID == organizationID && e.Category == category
	}), nil
}

func (r *ExerciseRepository) Update(_ context.Context, e *domain.Exercise) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.data[e.ID]
	if !ok || old.OrganizationID != e.OrganizationID {
		return repository.ErrNotFound
	}
	e.CreatedAt = old.CreatedAt
	e.UpdatedAt = time.Now().UTC()
	r.data[e.ID] = *e
	return nil
}

func (r *ExerciseRepository) Delete(_ context.Context, id primitive.ObjectID, organizationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.data[id]
	if !ok || e.OrganizationID != organizationID {
		return repository.ErrNotFound
	}
	delete(r.data, id)
	return nil
}

func (r *ExerciseRepository) filter(keep func(domain.Exercise) bool) []domain.Exercise {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Exercise
	for _, e := range r.data {
		if keep(e) {
			out = append(out, e)
		}
	}
	return byName(out)
}

func byName(list []domain.Exercise) []domain.Exercise {
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// =============================================================================
// SESSIONS
// =============================================================================

type SessionRepository struct {
	mu   sync.RWMutex
	data map[primitive.ObjectID]domain.WorkoutSession
}

func NewSessionRepository(seed ...domain.WorkoutSession) *SessionRepository {
	r := &SessionRepository{data: make(map[primitive.ObjectID]domain.WorkoutSession)}
	for _, s := range seed {
		if s.ID.IsZero() {
			s.ID = primitive.NewObjectID()
		}
		r.data[s.ID] = s
	}
	return r
}

func (r *SessionRepository) Create(_ context.Context, s *domain.WorkoutSession) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
	cp := *s
	cp.Exercises = append([]domain.SessionExercise(nil), s.Exercises...)
	r.data[s.ID] = cp
	return s.ID, nil
}

func (r *SessionRepository) GetByID(_ context.Context, id primitive.ObjectID) (*domain.WorkoutSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.data[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	s.Exercises = append([]domain.SessionExercise(nil), s.Exercises...)
	return &s, nil
}

// =============================================================================
// ROSTER
// =============================================================================

type RosterRepository struct {
	mu      sync.RWMutex
	teams   map[string]domain.Team
	players map[string]domain.Player
}

func NewRosterRepository() *RosterRepository {
	return &RosterRepository{
		teams:   make(map[string]domain.Team),
		players: make(map[string]domain.Player),
	}
}

// AddTeam and AddPlayer seed the mirror; the roster service owns the data.
func (r *RosterRepository) AddTeam(t domain.Team) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.teams[t.ID] = t
}

func (r *RosterRepository) AddPlayer(p domain.Player) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.players[p.ID] = p
}

func (r *RosterRepository) GetTeam(_ context.Context, id string) (*domain.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.teams[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (r *RosterRepository) GetSubTeams(_ context.Context, parentTeamID string) ([]domain.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Team
	for _, t := range r.teams {
		if t.ParentTeamID != nil && *t.ParentTeamID == parentTeamID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *RosterRepository) FindPlayers(_ context.Context, f repository.PlayerFilter) ([]domain.Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Player
	for _, p := range r.players {
		switch {
		case f.OrganizationID != "" && p.OrganizationID != f.OrganizationID:
		case len(f.TeamIDs) > 0 && !contains(f.TeamIDs, p.TeamID):
		case len(f.PlayerIDs) > 0 && !contains(f.PlayerIDs, p.ID):
		case len(f.Lines) > 0 && !contains(f.Lines, p.Line):
		case len(f.Positions) > 0 && !contains(f.Positions, p.Position):
		case f.ActiveOnly && !p.Active:
		default:
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================================================================
// WORKOUT TYPES
// =============================================================================

type WorkoutTypeRepository struct {
	mu   sync.RWMutex
	data map[primitive.ObjectID]domain.WorkoutType
}

func NewWorkoutTypeRepository() *WorkoutTypeRepository {
	return &WorkoutTypeRepository{data: make(map[primitive.ObjectID]domain.WorkoutType)}
}

func (r *WorkoutTypeRepository) Create(_ context.Context, wt *domain.WorkoutType) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.nameTaken(wt.OrganizationID, wt.Name, primitive.NilObjectID) {
		return primitive.NilObjectID, repository.ErrDuplicate
	}
	wt.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	wt.CreatedAt, wt.UpdatedAt = now, now
	r.data[wt.ID] = *wt
	return wt.ID, nil
}

func (r *WorkoutTypeRepository) GetByID(_ context.Context, id primitive.ObjectID) (*domain.WorkoutType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	wt, ok := r.data[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &wt, nil
}

func (r *WorkoutTypeRepository) GetByOrganization(_ context.Context, organizationID string, activeOnly bool) ([]domain.WorkoutType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.WorkoutType
	for _, wt := range r.data {
		if wt.OrganizationID == organizationID && (!activeOnly || wt.IsActive) {
			out = append(out, wt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *WorkoutTypeRepository) Update(_ context.Context, wt *domain.WorkoutType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.data[wt.ID]
	if !ok || old.OrganizationID != wt.OrganizationID {
		return repository.ErrNotFound
	}
	if r.nameTaken(wt.OrganizationID, wt.Name, wt.ID) {
		return repository.ErrDuplicate
	}
	wt.CreatedAt = old.CreatedAt
	wt.UpdatedAt = time.Now().UTC()
	r.data[wt.ID] = *wt
	return nil
}

func (r *WorkoutTypeRepository) Delete(_ context.Context, id primitive.ObjectID, organizationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	wt, ok := r.data[id]
	if !ok || wt.OrganizationID != organizationID {
		return repository.ErrNotFound
	}
	delete(r.data, id)
	return nil
}

func (r *WorkoutTypeRepository) nameTaken(org, name string, self primitive.ObjectID) bool {
	for id, wt := range r.data {
		if id != self && wt.OrganizationID == org && wt.Name == name {
			return true
		}
	}
	return false
}

// =============================================================================
// REPORTS
// =============================================================================

type ReportRepository struct {
	mu   sync.RWMutex
	data map[primitive.ObjectID]domain.ComplianceReport
}

func NewReportRepository() *ReportRepository {
	return &ReportRepository{data: make(map[primitive.ObjectID]domain.ComplianceReport)}
}

func (r *ReportRepository) Create(_ context.Context, report *domain.ComplianceReport) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	report.ID = primitive.NewObjectID()
	report.CreatedAt = time.Now().UTC()
	r.data[report.ID] = *report
	return report.ID, nil
}

func (r *ReportRepository) GetByID(_ context.Context, id primitive.ObjectID) (*domain.ComplianceReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	report, ok := r.data[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &report, nil
}
