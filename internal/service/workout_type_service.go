package service

import (
	"alcyxob/training-service/internal/domain"
	"alcyxob/training-service/internal/repository"
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WorkoutTypeInput carries the editable fields of a workout type.
type WorkoutTypeInput struct {
	Name                   string
	Description            string
	Category               string
	DefaultDurationMinutes int
	IntensityMin           float64
	IntensityMax           float64
	TrackedMetrics         []string
	IsActive               bool
}

func (in WorkoutTypeInput) validate() error {
	var v validator
	v.check(strings.TrimSpace(in.Name) != "", "name", "is required")
	v.check(in.DefaultDurationMinutes >= 0, "defaultDurationMinutes", "must not be negative")
	v.check(in.IntensityMin >= 0 && in.IntensityMax <= 100 && in.IntensityMin <= in.IntensityMax,
		"intensity", "must satisfy 0 <= min <= max <= 100")
	return v.err()
}

func (in WorkoutTypeInput) applyTo(wt *domain.WorkoutType) {
	wt.Name = strings.TrimSpace(in.Name)
	wt.Description = in.Description
	wt.Category = in.Category
	wt.DefaultDurationMinutes = in.DefaultDurationMinutes
	wt.IntensityMin = in.IntensityMin
	wt.IntensityMax = in.IntensityMax
	wt.TrackedMetrics = in.TrackedMetrics
	wt.IsActive = in.IsActive
}

// --- Service Interface ---
type WorkoutTypeService interface {
	CreateWorkoutType(ctx context.Context, organizationID, createdBy string, in WorkoutTypeInput) (*domain.WorkoutType, error)
	GetWorkoutType(ctx context.Context, organizationID string, id primitive.ObjectID) (*domain.WorkoutType, error)
	ListWorkoutTypes(ctx context.Context, organizationID string, activeOnly bool) ([]domain.WorkoutType, error)
	UpdateWorkoutType(ctx context.Context, organizationID string, id primitive.ObjectID, in WorkoutTypeInput) (*domain.WorkoutType, error)
	DeleteWorkoutType(ctx context.Context, organizationID string, id primitive.ObjectID) error
}

// --- Service Implementation ---

type workoutTypeService struct {
	workoutTypeRepo repository.WorkoutTypeRepository
}

func NewWorkoutTypeService(workoutTypeRepo repository.WorkoutTypeRepository) WorkoutTypeService {
	return &workoutTypeService{workoutTypeRepo: workoutTypeRepo}
}

func (s *workoutTypeService) CreateWorkoutType(ctx context.Context, organizationID, createdBy string, in WorkoutTypeInput) (*domain.WorkoutType, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	wt := &domain.WorkoutType{OrganizationID: organizationID, CreatedBy: createdBy}
	in.applyTo(wt)
	if _, err := s.workoutTypeRepo.Create(ctx, wt); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrWorkoutTypeExists
		}
		return nil, err
	}
	return wt, nil
}

// GetWorkoutType hides types of other organizations behind not-found.
func (s *workoutTypeService) GetWorkoutType(ctx context.Context, organizationID string, id primitive.ObjectID) (*domain.WorkoutType, error) {
	wt, err := s.workoutTypeRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWorkoutTypeNotFound
		}
		return nil, err
	}
	if wt.OrganizationID != organizationID {
		return nil, ErrWorkoutTypeNotFound
	}
	return wt, nil
}

func (s *workoutTypeService) ListWorkoutTypes(ctx context.Context, organizationID string, activeOnly bool) ([]domain.WorkoutType, error) {
	return s.workoutTypeRepo.GetByOrganization(ctx, organizationID, activeOnly)
}

func (s *workoutTypeService) UpdateWorkoutType(ctx context.Context, organizationID string, id primitive.ObjectID, in WorkoutTypeInput) (*domain.WorkoutType, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	wt, err := s.GetWorkoutType(ctx, organizationID, id)
	if err != nil {
		return nil, err
	}
	in.applyTo(wt)
	if err := s.workoutTypeRepo.Update(ctx, wt); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, ErrWorkoutTypeExists
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrWorkoutTypeNotFound
		}
		return nil, err
	}
	return wt, nil
}

func (s *workoutTypeService) DeleteWorkoutType(ctx context.Context, organizationID string, id primitive.ObjectID) error {
	if err := s.workoutTypeRepo.Delete(ctx, id, organizationID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrWorkoutTypeNotFound
		}
		return err
	}
	return nil
}
