package memory_test

import (
	"context"
	"testing"
	"time"

	"alcyxob/training-service/internal/domain"
	"alcyxob/training-service/internal/repository"
	"alcyxob/training-service/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func day(d int) time.Time {
	return time.Date(2026, time.March, d, 0, 0, 0, 0, time.UTC)
}

func assignment(session primitive.ObjectID, player string, effective time.Time) *domain.WorkoutAssignment {
	return &domain.WorkoutAssignment{
		WorkoutSessionID: session,
		OrganizationID:   "org-1",
		TeamID:           "team-1",
		PlayerID:         player,
		Type:             domain.AssignmentIndividual,
		Status:           domain.StatusActive,
		EffectiveDate:    effective,
		ScheduledDate:    effective,
	}
}

// =============================================================================
// UNIQUENESS INVARIANT TESTS
// =============================================================================

func TestAssignmentRepository_DuplicateKey_Rejected(t *testing.T) {
	// GIVEN: A player already holds session S on March 10
	// WHEN: Creating the same (session, org, day, player) again, at a different hour
	// THEN: The store reports ErrDuplicate and keeps one record

	ctx := context.Background()
	repo := memory.NewAssignmentRepository()
	session := primitive.NewObjectID()

	_, err := repo.Create(ctx, assignment(session, "p1", day(10)))
	require.NoError(t, err)

	_, err = repo.Create(ctx, assignment(session, "p1", day(10).Add(15*time.Hour)))
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	all, err := repo.Find(ctx, repository.AssignmentFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestAssignmentRepository_SameSessionDifferentPlayers_Allowed(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewAssignmentRepository()
	session := primitive.NewObjectID()

	for _, p := range []string{"p1", "p2", "p3"} {
		_, err := repo.Create(ctx, assignment(session, p, day(10)))
		require.NoError(t, err)
	}

	found, err := repo.GetByKey(ctx, domain.AssignmentKey{
		WorkoutSessionID: session, OrganizationID: "org-1", EffectiveDate: day(10).Add(time.Hour), PlayerID: "p2",
	})
	require.NoError(t, err)
	assert.Equal(t, "p2", found.PlayerID)
}

func TestAssignmentRepository_UpdateOntoTakenKey_Rejected(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewAssignmentRepository()
	session := primitive.NewObjectID()

	_, err := repo.Create(ctx, assignment(session, "p1", day(10)))
	require.NoError(t, err)
	second := assignment(session, "p1", day(11))
	_, err = repo.Create(ctx, second)
	require.NoError(t, err)

	second.EffectiveDate = day(10)
	assert.ErrorIs(t, repo.Update(ctx, second), repository.ErrDuplicate)
}

// =============================================================================
// QUERY TESTS
// =============================================================================

func TestAssignmentRepository_Find_WindowOverlap(t *testing.T) {
	// GIVEN: One single-day assignment on March 10 and one spanning March 12-14
	// WHEN: Querying windows that touch or miss them
	// THEN: Only overlapping assignments come back

	ctx := context.Background()
	repo := memory.NewAssignmentRepository()

	_, err := repo.Create(ctx, assignment(primitive.NewObjectID(), "p1", day(10)))
	require.NoError(t, err)
	spanning := assignment(primitive.NewObjectID(), "p1", day(12))
	expiry := day(14)
	spanning.ExpiryDate = &expiry
	_, err = repo.Create(ctx, spanning)
	require.NoError(t, err)

	from, to := day(10).Add(18*time.Hour), day(10).Add(20*time.Hour)
	got, err := repo.Find(ctx, repository.AssignmentFilter{PlayerIDs: []string{"p1"}, From: &from, To: &to})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	from, to = day(13), domain.EndOfDay(day(13))
	got, err = repo.Find(ctx, repository.AssignmentFilter{PlayerIDs: []string{"p1"}, From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, spanning.ID, got[0].ID)

	from, to = day(15), day(20)
	got, err = repo.Find(ctx, repository.AssignmentFilter{PlayerIDs: []string{"p1"}, From: &from, To: &to})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAssignmentRepository_Find_ExcludeParents(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewAssignmentRepository()
	session := primitive.NewObjectID()

	parent := assignment(session, "", day(10))
	parent.Type = domain.AssignmentTeam
	parentID, err := repo.Create(ctx, parent)
	require.NoError(t, err)

	child := assignment(session, "p1", day(10))
	child.ParentAssignmentID = &parentID
	_, err = repo.Create(ctx, child)
	require.NoError(t, err)

	got, err := repo.Find(ctx, repository.AssignmentFilter{WorkoutSessionID: &session, ExcludeParents: true})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].PlayerID)

	children, err := repo.GetChildren(ctx, parentID)
	require.NoError(t, err)
	assert.Len(t, children, 1)
}

func TestAssignmentRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewAssignmentRepository()
	a := assignment(primitive.NewObjectID(), "p1", day(10))
	a.LoadProgression = &domain.LoadProgression{BaseLoad: 100}
	id, err := repo.Create(ctx, a)
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	got.LoadProgression.BaseLoad = 1

	again, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 100.0, again.LoadProgression.BaseLoad)
}

func TestOverrideRepository_DuplicateKey_Rejected(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewOverrideRepository()
	assignmentID := primitive.NewObjectID()

	o := &domain.WorkoutPlayerOverride{
		WorkoutAssignmentID: assignmentID, PlayerID: "p1", Type: domain.OverridePerformance,
		Status: domain.OverridePending, EffectiveDate: day(10),
	}
	_, err := repo.Create(ctx, o)
	require.NoError(t, err)

	dup := *o
	dup.ID = primitive.NilObjectID
	dup.EffectiveDate = day(10).Add(9 * time.Hour)
	_, err = repo.Create(ctx, &dup)
	assert.ErrorIs(t, err, repository.ErrDuplicate)
	assert.Equal(t, 1, repo.Len())
}

func TestOverrideRepository_Find_ByMedicalRecord(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewOverrideRepository()
	record := "rec-1"

	_, err := repo.Create(ctx, &domain.WorkoutPlayerOverride{
		WorkoutAssignmentID: primitive.NewObjectID(), PlayerID: "p1", Type: domain.OverrideMedical,
		Status: domain.OverrideApproved, EffectiveDate: day(10), MedicalRecordID: &record,
	})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &domain.WorkoutPlayerOverride{
		WorkoutAssignmentID: primitive.NewObjectID(), PlayerID: "p1", Type: domain.OverridePerformance,
		Status: domain.OverrideApproved, EffectiveDate: day(10),
	})
	require.NoError(t, err)

	got, err := repo.Find(ctx, repository.OverrideFilter{MedicalRecordID: &record})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.OverrideMedical, got[0].Type)
}

func TestRosterRepository_FindPlayers(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRosterRepository()
	repo.AddPlayer(domain.Player{ID: "p1", OrganizationID: "org-1", TeamID: "t1", Line: "forwards", Active: true})
	repo.AddPlayer(domain.Player{ID: "p2", OrganizationID: "org-1", TeamID: "t1", Line: "defense", Active: true})
	repo.AddPlayer(domain.Player{ID: "p3", OrganizationID: "org-1", TeamID: "t1", Line: "forwards", Active: false})

	got, err := repo.FindPlayers(ctx, repository.PlayerFilter{TeamIDs: []string{"t1"}, Lines: []string{"forwards"}, ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].ID)
}

func TestWorkoutTypeRepository_NameUniquePerOrganization(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewWorkoutTypeRepository()

	_, err := repo.Create(ctx, &domain.WorkoutType{OrganizationID: "org-1", Name: "Strength"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &domain.WorkoutType{OrganizationID: "org-1", Name: "Strength"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
	_, err = repo.Create(ctx, &domain.WorkoutType{OrganizationID: "org-2", Name: "Strength"})
	assert.NoError(t, err)
}
