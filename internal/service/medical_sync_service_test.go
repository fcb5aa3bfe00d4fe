package service_test

import (
	"context"
	"testing"

	"alcyxob/training-service/internal/client"
	"alcyxob/training-service/internal/domain"
	"alcyxob/training-service/internal/events"
	"alcyxob/training-service/internal/repository"
	"alcyxob/training-service/internal/restriction"
	"alcyxob/training-service/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func kneeRestriction(id, player string, status domain.RestrictionStatus) domain.MedicalRestriction {
	return domain.MedicalRestriction{
		ID:                  id,
		PlayerID:            player,
		OrganizationID:      "org-1",
		Severity:            domain.SeverityModerate,
		Status:              status,
		RestrictedMovements: []string{"jump"},
		MaxExertionLevel:    ptr(70.0),
		EffectiveDate:       day(1),
	}
}

type syncScene struct {
	f          *fixture
	jump       domain.Exercise
	plank      domain.Exercise
	assignment domain.WorkoutAssignment
}

func newSyncScene(t *testing.T) *syncScene {
	f := newFixture(t, nil)
	jump := f.exercise(t, domain.Exercise{Name: "Jump Squats", Category: "plyometric", MovementPatterns: []string{"jump", "squat"}, DefaultIntensity: 80})
	plank := f.exercise(t, domain.Exercise{Name: "Plank", Category: "core", MovementPatterns: []string{"hold"}, DefaultIntensity: 40})
	session := f.session(t, "Lower Body", jump, plank)
	return &syncScene{f: f, jump: jump, plank: plank, assignment: f.assign(t, session.ID, "p1", day(10))}
}

func TestMedicalSync_CreatesOverrideFromRestriction(t *testing.T) {
	// GIVEN: p1 has an active moderate restriction on jumping and a session with Jump Squats
	// WHEN: Syncing restrictions
	// THEN: One medical override excludes Jump Squats and carries the moderate multipliers

	sc := newSyncScene(t)
	sc.f.medical.set(kneeRestriction("r1", "p1", domain.RestrictionActive))

	result, err := sc.f.syncSvc.SyncMedicalRestrictions(context.Background(), service.SyncRequest{OrganizationID: "org-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.PlayersProcessed)
	assert.Equal(t, 1, result.OverridesCreated)
	assert.Equal(t, 0, result.Failed)

	overrides, err := sc.f.overrideSvc.GetPlayerOverrides(context.Background(), "p1", true)
	require.NoError(t, err)
	require.Len(t, overrides, 1)
	o := overrides[0]
	assert.Equal(t, domain.OverrideMedical, o.Type)
	assert.Equal(t, sc.assignment.ID, o.WorkoutAssignmentID)
	assert.Equal(t, []primitive.ObjectID{sc.jump.ID}, o.Modifications.ExcludedExercises)
	assert.InDelta(t, restriction.LoadMultiplier(domain.SeverityModerate), *o.Modifications.LoadMultiplier, 1e-9)
	assert.InDelta(t, restriction.RestMultiplier(domain.SeverityModerate), *o.Modifications.RestMultiplier, 1e-9)
	require.NotNil(t, o.Modifications.IntensityZone)
	assert.Equal(t, 70.0, o.Modifications.IntensityZone.MaxPercent)
	assert.False(t, o.Modifications.Exempt)
	assert.Equal(t, "r1", *o.MedicalRecordID)
	assert.Equal(t, 1, sc.f.events.count(events.TopicMedicalSyncCompleted))
}

func TestMedicalSync_MixedCaseStatusIsActive(t *testing.T) {
	sc := newSyncScene(t)
	sc.f.medical.set(kneeRestriction("r1", "p1", "Active"))

	result, err := sc.f.syncSvc.SyncMedicalRestrictions(context.Background(), service.SyncRequest{OrganizationID: "org-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.OverridesCreated)
}

func TestMedicalSync_IsIdempotent(t *testing.T) {
	// GIVEN: A completed sync
	// WHEN: Syncing again with unchanged restrictions
	// THEN: No override is created and the stored override is unchanged

	sc := newSyncScene(t)
	ctx := context.Background()
	sc.f.medical.set(kneeRestriction("r1", "p1", domain.RestrictionActive))

	_, err := sc.f.syncSvc.SyncMedicalRestrictions(ctx, service.SyncRequest{OrganizationID: "org-1"})
	require.NoError(t, err)
	before, err := sc.f.overrideSvc.GetPlayerOverrides(ctx, "p1", false)
	require.NoError(t, err)

	result, err := sc.f.syncSvc.SyncMedicalRestrictions(ctx, service.SyncRequest{OrganizationID: "org-1"})
	require.NoError(t, err)
	after, err := sc.f.overrideSvc.GetPlayerOverrides(ctx, "p1", false)
	require.NoError(t, err)

	assert.Equal(t, 0, result.OverridesCreated)
	assert.Equal(t, 1, sc.f.overrides.Len())
	require.Len(t, after, 1)
	assert.Equal(t, before[0].ID, after[0].ID)
	assert.Equal(t, before[0].Status, after[0].Status)
	assert.Equal(t, before[0].Modifications, after[0].Modifications)
	assert.Equal(t, before[0].Restriction, after[0].Restriction)
	assert.Equal(t, 1, sc.f.events.count(events.TopicMedicalOverrideCreated))
}

func TestMedicalSync_CompleteSeverityExempts(t *testing.T) {
	sc := newSyncScene(t)
	r := kneeRestriction("r1", "p1", domain.RestrictionActive)
	r.Severity = domain.SeverityComplete
	r.RequiresSupervision = true
	sc.f.medical.set(r)

	_, err := sc.f.syncSvc.SyncMedicalRestrictions(context.Background(), service.SyncRequest{PlayerIDs: []string{"p1"}})
	require.NoError(t, err)

	overrides, err := sc.f.overrideSvc.GetPlayerOverrides(context.Background(), "p1", true)
	require.NoError(t, err)
	require.Len(t, overrides, 1)
	assert.True(t, overrides[0].Modifications.Exempt)
	assert.Equal(t, domain.OverridePending, overrides[0].Status)
}

func TestMedicalSync_ClearedRestrictionExpiresOverride(t *testing.T) {
	sc := newSyncScene(t)
	ctx := context.Background()
	sc.f.medical.set(kneeRestriction("r1", "p1", domain.RestrictionActive))
	_, err := sc.f.syncSvc.SyncMedicalRestrictions(ctx, service.SyncRequest{OrganizationID: "org-1"})
	require.NoError(t, err)

	sc.f.medical.set(kneeRestriction("r1", "p1", domain.RestrictionCleared))
	result, err := sc.f.syncSvc.SyncMedicalRestrictions(ctx, service.SyncRequest{OrganizationID: "org-1"})
	require.NoError(t, err)

	assert.Equal(t, 1, result.OverridesExpired)
	live, err := sc.f.overrideSvc.GetPlayerOverrides(ctx, "p1", true)
	require.NoError(t, err)
	assert.Empty(t, live)
}

func TestMedicalSync_HandleRestrictionCleared_ResyncsRemaining(t *testing.T) {
	// GIVEN: Two active restrictions, the more severe one linked to the override
	// WHEN: The severe one is cleared
	// THEN: The override is expired, then revived from the remaining restriction

	sc := newSyncScene(t)
	ctx := context.Background()
	mild := kneeRestriction("r-mild", "p1", domain.RestrictionActive)
	mild.Severity = domain.SeverityMild
	severe := kneeRestriction("r-severe", "p1", domain.RestrictionActive)
	severe.Severity = domain.SeveritySevere
	sc.f.medical.set(mild, severe)

	_, err := sc.f.syncSvc.SyncMedicalRestrictions(ctx, service.SyncRequest{OrganizationID: "org-1"})
	require.NoError(t, err)

	severe.Status = domain.RestrictionCleared
	sc.f.medical.set(mild, severe)
	result, err := sc.f.syncSvc.HandleRestrictionCleared(ctx, "r-severe", "p1", "org-1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.OverridesExpired)

	live, err := sc.f.overrideSvc.GetPlayerOverrides(ctx, "p1", true)
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, "r-mild", *live[0].MedicalRecordID)
	assert.Equal(t, domain.SeverityMild, live[0].Restriction.Severity)
}

func TestMedicalSync_PlayerFailureIsIsolated(t *testing.T) {
	sc := newSyncScene(t)
	ctx := context.Background()
	sc.f.assign(t, primitive.NewObjectID(), "p2", day(10)) // session does not exist
	sc.f.medical.set(
		kneeRestriction("r1", "p1", domain.RestrictionActive),
		kneeRestriction("r2", "p2", domain.RestrictionActive),
	)

	result, err := sc.f.syncSvc.SyncMedicalRestrictions(ctx, service.SyncRequest{OrganizationID: "org-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.PlayersProcessed)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "p2", result.Failures[0].PlayerID)
	assert.Equal(t, 1, result.OverridesCreated)
}

func TestMedicalSync_UpstreamErrorPropagates(t *testing.T) {
	sc := newSyncScene(t)
	sc.f.medical.err = &client.UpstreamError{Service: "medical", StatusCode: 500}

	_, err := sc.f.syncSvc.SyncMedicalRestrictions(context.Background(), service.SyncRequest{OrganizationID: "org-1"})
	assert.ErrorIs(t, err, client.ErrUpstream)
	assert.Equal(t, 0, sc.f.overrides.Len())
}

func TestMedicalSync_RestrictionOutsideWindowIgnored(t *testing.T) {
	sc := newSyncScene(t)
	r := kneeRestriction("r1", "p1", domain.RestrictionActive)
	r.EffectiveDate = day(1)
	r.ExpiryDate = ptr(day(5))
	sc.f.medical.set(r)

	result, err := sc.f.syncSvc.SyncMedicalRestrictions(context.Background(), service.SyncRequest{OrganizationID: "org-1"})
	require.NoError(t, err)
	assert.Equal(t, 0, result.OverridesCreated)

	all, err := sc.f.overrideSvc.FindOverrides(context.Background(), repository.OverrideFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestMedicalSync_ReportConcern(t *testing.T) {
	sc := newSyncScene(t)

	ack, err := sc.f.syncSvc.ReportConcern(context.Background(), client.Concern{
		PlayerID: "p1", ReportedBy: "coach-1", Description: "knee pain after sprints", BodyPart: "knee",
	})
	require.NoError(t, err)
	assert.Equal(t, "concern-1", ack.ID)
	require.Len(t, sc.f.medical.concerns, 1)
	assert.NotNil(t, sc.f.medical.concerns[0].OccurredAt)
	assert.Equal(t, 1, sc.f.events.count(events.TopicInjuryReported))

	_, err = sc.f.syncSvc.ReportConcern(context.Background(), client.Concern{PlayerID: "p1"})
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestMedicalSync_FindAlternatives(t *testing.T) {
	sc := newSyncScene(t)
	ctx := context.Background()
	sc.f.exercise(t, domain.Exercise{Name: "Wall Sits", Category: "plyometric", MovementPatterns: []string{"hold"}, DefaultIntensity: 50})
	sc.f.medical.set(kneeRestriction("r1", "p1", domain.RestrictionActive))

	result, err := sc.f.syncSvc.FindAlternatives(ctx, service.AlternativesRequest{ExerciseID: sc.jump.ID, PlayerID: "p1"})
	require.NoError(t, err)
	assert.True(t, result.Prohibited)
	require.NotEmpty(t, result.Alternatives)
	assert.Equal(t, "Wall Sits", result.Alternatives[0].Exercise.Name)

	_, err = sc.f.syncSvc.FindAlternatives(ctx, service.AlternativesRequest{ExerciseID: primitive.NewObjectID()})
	assert.ErrorIs(t, err, service.ErrExerciseNotFound)

	_, err = sc.f.syncSvc.FindAlternatives(ctx, service.AlternativesRequest{OrganizationID: "org-2", ExerciseID: sc.jump.ID, PlayerID: "p1"})
	assert.ErrorIs(t, err, service.ErrExerciseNotFound)
}
