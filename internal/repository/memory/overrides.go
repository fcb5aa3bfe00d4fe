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
// OVERRIDES - no Delete, mirrors the Mongo repository
// =============================================================================

type OverrideRepository struct {
	mu    sync.RWMutex
	byID  map[primitive.ObjectID]domain.WorkoutPlayerOverride
	byKey map[domain.OverrideKey]primitive.ObjectID
}

func NewOverrideRepository() *OverrideRepository {
	return &OverrideRepository{
		byID:  make(map[primitive.ObjectID]domain.WorkoutPlayerOverride),
		byKey: make(map[domain.OverrideKey]primitive.ObjectID),
	}
}

func (r *OverrideRepository) Create(_ context.Context, o *domain.WorkoutPlayerOverride) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o.EffectiveDate = domain.StartOfDay(o.EffectiveDate)
	key := o.Key()
	if _, exists := r.byKey[key]; exists {
		return primitive.NilObjectID, repository.ErrDuplicate
	}
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now
	r.byID[o.ID] = cloneOverride(*o)
	r.byKey[key] = o.ID
	return o.ID, nil
}

func (r *OverrideRepository) GetByID(_ context.Context, id primitive.ObjectID) (*domain.WorkoutPlayerOverride, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneOverride(o)
	return &out, nil
}

func (r *OverrideRepository) GetByKey(ctx context.Context, key domain.OverrideKey) (*domain.WorkoutPlayerOverride, error) {
	key.EffectiveDate = domain.StartOfDay(key.EffectiveDate)
	r.mu.RLock()
	id, ok := r.byKey[key]
	r.mu.RUnlock()
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *OverrideRepository) Find(_ context.Context, f repository.OverrideFilter) ([]domain.WorkoutPlayerOverride, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.WorkoutPlayerOverride
	for _, o := range r.byID {
		if matchOverride(&o, f) {
			out = append(out, cloneOverride(o))
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

func (r *OverrideRepository) Update(_ context.Context, o *domain.WorkoutPlayerOverride) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.byID[o.ID]
	if !ok {
		return repository.ErrNotFound
	}
	o.EffectiveDate = domain.StartOfDay(o.EffectiveDate)
	oldKey, newKey := old.Key(), o.Key()
	if oldKey != newKey {
		if _, taken := r.byKey[newKey]; taken {
			return repository.ErrDuplicate
		}
		delete(r.byKey, oldKey)
		r.byKey[newKey] = o.ID
	}
	o.UpdatedAt = time.Now().UTC()
	r.byID[o.ID] = cloneOverride(*o)
	return nil
}

// Len is the number of stored overrides, for tests.
func (r *OverrideRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

func matchOverride(o *domain.WorkoutPlayerOverride, f repository.OverrideFilter) bool {
	if len(f.AssignmentIDs) > 0 && !contains(f.AssignmentIDs, o.WorkoutAssignmentID) {
		return false
	}
	if len(f.PlayerIDs) > 0 && !contains(f.PlayerIDs, o.PlayerID) {
		return false
	}
	if len(f.Statuses) > 0 && !contains(f.Statuses, o.Status) {
		return false
	}
	if len(f.Types) > 0 && !contains(f.Types, o.Type) {
		return false
	}
	if f.MedicalRecordID != nil && (o.MedicalRecordID == nil || *o.MedicalRecordID != *f.MedicalRecordID) {
		return false
	}
	if f.From != nil || f.To != nil {
		from := time.Time{}
		if f.From != nil {
			from = *f.From
		}
		if !domain.WindowsOverlap(o.EffectiveDate, o.ExpiryDate, from, f.To) {
			return false
		}
	}
	return true
}

func cloneOverride(o domain.WorkoutPlayerOverride) domain.WorkoutPlayerOverride {
	m := o.Modifications
	m.ExcludedExercises = append([]primitive.ObjectID(nil), m.ExcludedExercises...)
	m.Substitutions = append([]domain.ExerciseSubstitution(nil), m.Substitutions...)
	o.Modifications = m
	if o.Restriction != nil {
		rs := *o.Restriction
		o.Restriction = &rs
	}
	return o
}
