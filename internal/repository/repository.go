package repository

import (
	"alcyxob/training-service/internal/domain"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrDuplicate    = RepositoryError("duplicate key")
	ErrUpdateFailed = RepositoryError("update failed")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// AssignmentFilter narrows assignment queries. Zero values are ignored.
type AssignmentFilter struct {
	PlayerIDs        []string
	TeamID           string
	OrganizationID   string
	WorkoutSessionID *primitive.ObjectID
	Statuses         []domain.AssignmentStatus
	Types            []domain.AssignmentType
	// From/To select assignments whose window overlaps [From, To].
	From *time.Time
	To   *time.Time
	// EffectiveFrom/EffectiveTo select on the effective date alone.
	EffectiveFrom  *time.Time
	EffectiveTo    *time.Time
	ExcludeParents bool
}

// AssignmentRepository defines the interface for interacting with assignment data.
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *domain.WorkoutAssignment) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutAssignment, error)
	GetByKey(ctx context.Context, key domain.AssignmentKey) (*domain.WorkoutAssignment, error)
	Find(ctx context.Context, filter AssignmentFilter) ([]domain.WorkoutAssignment, error)
	GetChildren(ctx context.Context, parentID primitive.ObjectID) ([]domain.WorkoutAssignment, error)
	Update(ctx context.Context, assignment *domain.WorkoutAssignment) error
}

// OverrideFilter narrows override queries. Zero values are ignored.
type OverrideFilter struct {
	AssignmentIDs   []primitive.ObjectID
	PlayerIDs       []string
	Statuses        []domain.OverrideStatus
	Types           []domain.OverrideType
	MedicalRecordID *string
	// From/To select overrides whose window overlaps [From, To].
	From *time.Time
	To   *time.Time
}

// OverrideRepository persists WorkoutPlayerOverride records. There is no Delete.
type OverrideRepository interface {
	Create(ctx context.Context, override *domain.WorkoutPlayerOverride) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutPlayerOverride, error)
	GetByKey(ctx context.Context, key domain.OverrideKey) (*domain.WorkoutPlayerOverride, error)
	Find(ctx context.Context, filter OverrideFilter) ([]domain.WorkoutPlayerOverride, error)
	Update(ctx context.Context, override *domain.WorkoutPlayerOverride) error
}

// ExerciseRepository defines the interface for interacting with exercise data.
type ExerciseRepository interface {
	Create(ctx context.Context, exercise *domain.Exercise) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Exercise, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.Exercise, error)
	GetByOrganization(ctx context.Context, organizationID string) ([]domain.Exercise, error)
	GetByCategory(ctx context.Context, organizationID, category string) ([]domain.Exercise, error)
	Update(ctx context.Context, exercise *domain.Exercise) error
	Delete(ctx context.Context, id primitive.ObjectID, organizationID string) error // Ensure the organization owns the exercise
}

// SessionRepository defines the interface for interacting with workout session data.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.WorkoutSession) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutSession, error)
}

// PlayerFilter narrows roster queries. Zero values are ignored.
type PlayerFilter struct {
	OrganizationID string
	TeamIDs        []string
	PlayerIDs      []string
	Lines          []string
	Positions      []string
	ActiveOnly     bool
}

// RosterRepository resolves hierarchy nodes (teams, sub-teams, lines, positions) to players.
type RosterRepository interface {
	GetTeam(ctx context.Context, id string) (*domain.Team, error)
	GetSubTeams(ctx context.Context, parentTeamID string) ([]domain.Team, error)
	FindPlayers(ctx context.Context, filter PlayerFilter) ([]domain.Player, error)
}

// WorkoutTypeRepository defines the interface for workout type configuration.
type WorkoutTypeRepository interface {
	Create(ctx context.Context, wt *domain.WorkoutType) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutType, error)
	GetByOrganization(ctx context.Context, organizationID string, activeOnly bool) ([]domain.WorkoutType, error)
	Update(ctx context.Context, wt *domain.WorkoutType) error
	Delete(ctx context.Context, id primitive.ObjectID, organizationID string) error
}

// ReportRepository defines the interface for archived compliance report metadata.
type ReportRepository interface {
	Create(ctx context.Context, report *domain.ComplianceReport) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ComplianceReport, error)
}
