// Package memory provides in-memory repository implementations (for testing/dev).
// They enforce the same unique constraints as the Mongo indexes.
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
// ASSIGNMENTS
// =============================================================================

type AssignmentRepository struct {
	mu    sync.RWMutex
	byID  map[primitive.ObjectID]domain.WorkoutAssignment
	byKey map[domain.AssignmentKey]primitive.ObjectID
}

func NewAssignmentRepository() *AssignmentRepository {
	return &AssignmentRepository{
		byID:  make(map[primitive.ObjectID]domain.WorkoutAssignment),
		byKey: make(map[domain.AssignmentKey]primitive.ObjectID),
	}
}

func (r *AssignmentRepository) Create(_ context.Context, a *domain.WorkoutAssignment) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a.EffectiveDate = domain.StartOfDay(a.EffectiveDate)
	key := a.Key()
	if _, exists := r.byKey[key]; exists {
		return primitive.NilObjectID, repository.ErrDuplicate
	}
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	if a.Status == "" {
		a.Status = domain.StatusDraft
	}
	r.byID[a.ID] = clone(*a)
	r.byKey[key] = a.ID
	return a.ID, nil
}

func (r *AssignmentRepository) GetByID(_ context.Context, id primitive.ObjectID) (*domain.WorkoutAssignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := clone(a)
	return &out, nil
}

func (r *AssignmentRepository) GetByKey(ctx context.Context, key domain.AssignmentKey) (*domain.WorkoutAssignment, error) {
	key.EffectiveDate = domain.StartOfDay(key.EffectiveDate)
	r.mu.RLock()
	id, ok := r.byKey[key]
	r.mu.RUnlock()
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *AssignmentRepository) Find(_ context.Context, f repository.AssignmentFilter) ([]domain.WorkoutAssignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.WorkoutAssignment
	for _, a := range r.byID {
		if matchAssignment(&a, f) {
			out = append(out, clone(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EffectiveDate.Equal(out[j].EffectiveDate) {
			return out[i].ID.Hex() < out[j].ID.Hex()
		}
		return out[i].EffectiveDate.Before(out[j].EffectiveDate)
	})
	return out, nil
}

func (r *AssignmentRepository) GetChildren(_ context.Context, parentID primitive.ObjectID) ([]domain.WorkoutAssignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.WorkoutAssignment
	for _, a := range r.byID {
		if a.ParentAssignmentID != nil && *a.ParentAssignmentID == parentID {
			out = append(out, clone(a))
		}
	}
	return out, nil
}

func (r *AssignmentRepository) Update(_ context.Context, a *domain.WorkoutAssignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.byID[a.ID]
	if !ok {
		return repository.ErrNotFound
	}
	a.EffectiveDate = domain.StartOfDay(a.EffectiveDate)
	oldKey, newKey := old.Key(), a.Key()
	if oldKey != newKey {
		if _, taken := r.byKey[newKey]; taken {
			return repository.ErrDuplicate
		}
		delete(r.byKey, oldKey)
		r.byKey[newKey] = a.ID
	}
	a.UpdatedAt = time.Now().UTC()
	r.byID[a.ID] = clone(*a)
	return nil
}

func matchAssignment(a *domain.WorkoutAssignment, f repository.AssignmentFilter) bool {
	if len(f.PlayerIDs) > 0 && !contains(f.PlayerIDs, a.PlayerID) {
		return false
	}
	if f.TeamID != "" && a.TeamID != f.TeamID {
		return false
	}
	if f.OrganizationID != "" && a.OrganizationID != f.OrganizationID {
		return false
	}
	if f.WorkoutSessionID != nil && a.WorkoutSessionID != *f.WorkoutSessionID {
		return false
	}
	if len(f.Statuses) > 0 && !contains(f.Statuses, a.Status) {
		return false
	}
	if len(f.Types) > 0 && !contains(f.Types, a.Type) {
		return false
	}
	if f.ExcludeParents && a.IsParent() {
		return false
	}
	if f.From != nil || f.To != nil {
		from, to := time.Time{}, time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)
		if f.From != nil {
			from = *f.From
		}
		if f.To != nil {
			to = *f.To
		}
		if !a.Overlaps(from, to) {
			return false
		}
	}
	if f.EffectiveFrom != nil && a.EffectiveDate.Before(*f.EffectiveFrom) {
		return false
	}
	if f.EffectiveTo != nil && a.EffectiveDate.After(*f.EffectiveTo) {
		return false
	}
	return true
}

// clone copies the slices and pointers callers might mutate.
func clone(a domain.WorkoutAssignment) domain.WorkoutAssignment {
	if a.LoadProgression != nil {
		lp := *a.LoadProgression
		a.LoadProgression = &lp
	}
	if a.RecurrencePattern != nil {
		rp := *a.RecurrencePattern
		a.RecurrencePattern = &rp
	}
	if a.PerformanceThresholds != nil {
		pt := *a.PerformanceThresholds
		if pt.HeartRate != nil {
			hr := *pt.HeartRate
			pt.HeartRate = &hr
		}
		a.PerformanceThresholds = &pt
	}
	a.Metadata.History = append([]domain.AdjustmentEntry(nil), a.Metadata.History...)
	return a
}

func contains[T comparable](list []T, v T) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
