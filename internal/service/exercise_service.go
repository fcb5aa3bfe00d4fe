package service

import (
	"alcyxob/training-service/internal/domain"
	"alcyxob/training-service/internal/repository" // Import repository package
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrExerciseAccessDenied = errors.New("access denied to modify or delete this exercise")
)

// ExerciseInput carries the editable fields of an exercise.
type ExerciseInput struct {
	Name             string
	Description      string
	Category         string
	MovementPatterns []string
	PrimaryMuscles   []string
	SecondaryMuscles []string
	Equipment        string
	DefaultIntensity float64
	Supervised       bool
	Difficulty       string
	Instructions     string
	VideoURL         string
}

func (in ExerciseInput) validate() error {
	var v validator
	v.check(strings.TrimSpace(in.Name) != "", "name", "is required")
	v.check(strings.TrimSpace(in.Category) != "", "category", "is required")
	v.check(in.DefaultIntensity >= 0 && in.DefaultIntensity <= 100, "defaultIntensity", "must be between 0 and 100")
	return v.err()
}

func (in ExerciseInput) applyTo(e *domain.Exercise) {
	e.Name = strings.TrimSpace(in.Name)
	e.Description = in.Description
	e.Category = strings.TrimSpace(in.Category)
	e.MovementPatterns = in.MovementPatterns
	e.PrimaryMuscles = in.PrimaryMuscles
	e.SecondaryMuscles = in.SecondaryMuscles
	e.Equipment = in.Equipment
	e.DefaultIntensity = in.DefaultIntensity
	e.Supervised = in.Supervised
	e.Difficulty = in.Difficulty
	e.Instructions = in.Instructions
	e.VideoURL = in.VideoURL
}

// --- Service Interface ---
type ExerciseService interface {
	CreateExercise(ctx context.Context, organizationID, createdBy string, in ExerciseInput) (*domain.Exercise, error)
	GetExerciseByID(ctx context.Context, exerciseID primitive.ObjectID) (*domain.Exercise, error)
	GetExercisesByOrganization(ctx context.Context, organizationID, category string) ([]domain.Exercise, error)
	UpdateExercise(ctx context.Context, organizationID string, exerciseID primitive.ObjectID, in ExerciseInput) (*domain.Exercise, error)
	DeleteExercise(ctx context.Context, organizationID string, exerciseID primitive.ObjectID) error
}

// --- Service Implementation ---

// exerciseService implements the ExerciseService interface.
type exerciseService struct {
	exerciseRepo repository.ExerciseRepository
}

// NewExerciseService creates a new instance of exerciseService.
func NewExerciseService(exerciseRepo repository.ExerciseRepository) ExerciseService {
	return &exerciseService{
		exerciseRepo: exerciseRepo,
	}
}

// CreateExercise adds an exercise to the organization's library.
func (s *exerciseService) CreateExercise(ctx context.Context, organizationID, createdBy string, in ExerciseInput) (*domain.Exercise, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if organizationID == "" {
		return nil, &ValidationError{Fields: map[string]string{"organizationId": "is required"}}
	}

	exercise := &domain.Exercise{OrganizationID: organizationID, CreatedBy: createdBy}
	in.applyTo(exercise)

	exerciseID, err := s.exerciseRepo.Create(ctx, exercise)
	if err != nil {
		return nil, err
	}
	// Fetch again to get all fields
	return s.exerciseRepo.GetByID(ctx, exerciseID)
}

// GetExerciseByID retrieves a single exercise.
func (s *exerciseService) GetExerciseByID(ctx context.Context, exerciseID primitive.ObjectID) (*domain.Exercise, error) {
	exercise, err := s.exerciseRepo.GetByID(ctx, exerciseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExerciseNotFound
		}
		return nil, err // Propagate other repository errors
	}
	return exercise, nil
}

// GetExercisesByOrganization lists the library, optionally narrowed to one category.
func (s *exerciseService) GetExercisesByOrganization(ctx context.Context, organizationID, category string) ([]domain.Exercise, error) {
	if organizationID == "" {
		return nil, &ValidationError{Fields: map[string]string{"organizationId": "is required"}}
	}
	if category != "" {
		return s.exerciseRepo.GetByCategory(ctx, organizationID, category)
	}
	return s.exerciseRepo.GetByOrganization(ctx, organizationID)
}

// UpdateExercise handles updating an existing exercise, ensuring ownership.
func (s *exerciseService) UpdateExercise(ctx context.Context, organizationID string, exerciseID primitive.ObjectID, in ExerciseInput) (*domain.Exercise, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	existing, err := s.GetExerciseByID(ctx, exerciseID)
	if err != nil {
		return nil, err
	}
	if existing.OrganizationID != organizationID {
		return nil, ErrExerciseAccessDenied
	}

	in.applyTo(existing)
	if err := s.exerciseRepo.Update(ctx, existing); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExerciseNotFound
		}
		return nil, err
	}
	return existing, nil
}

// DeleteExercise removes an exercise; the repository filter enforces ownership.
func (s *exerciseService) DeleteExercise(ctx context.Context, organizationID string, exerciseID primitive.ObjectID) error {
	if err := s.exerciseRepo.Delete(ctx, exerciseID, organizationID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Not found or owned by another organization.
			return ErrExerciseNotFound
		}
		return err
	}
	return nil
}
