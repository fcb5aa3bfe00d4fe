package service_test

import (
	"context"
	"testing"
	"time"

	"alcyxob/training-service/internal/domain"
	"alcyxob/training-service/internal/events"
	"alcyxob/training-service/internal/repository"
	"alcyxob/training-service/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func medicalRequest(a domain.WorkoutAssignment, record string, supervision bool) service.CreateOverrideRequest {
	return service.CreateOverrideRequest{
		WorkoutAssignmentID: a.ID,
		PlayerID:            a.PlayerID,
		Type:                domain.OverrideMedical,
		EffectiveDate:       a.EffectiveDate,
		Modifications:       domain.OverrideModifications{LoadMultiplier: ptr(0.7)},
		MedicalRecordID:     &record,
		Restriction:         &domain.RestrictionSnapshot{Severity: domain.SeverityModerate, RequiresSupervision: supervision},
		RequestedBy:         "dr-1",
	}
}

// =============================================================================
// CREATE / UPSERT
// =============================================================================

func TestOverrideService_Create_AutoApprovesWithoutSupervision(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.assign(t, primitive.NewObjectID(), "p1", day(10))

	o, created, err := f.overrideSvc.CreateOverride(ctx, medicalRequest(a, "rec-1", false))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, domain.OverrideApproved, o.Status)
	require.NotNil(t, o.ApprovedBy)
	assert.Equal(t, service.SystemActor, *o.ApprovedBy)
	assert.Equal(t, 1, f.events.count(events.TopicMedicalOverrideCreated))
}

func TestOverrideService_Create_SupervisionRequiresApproval(t *testing.T) {
	f := newFixture(t, nil)
	a := f.assign(t, primitive.NewObjectID(), "p1", day(10))

	o, _, err := f.overrideSvc.CreateOverride(context.Background(), medicalRequest(a, "rec-1", true))
	require.NoError(t, err)
	assert.Equal(t, domain.OverridePending, o.Status)
	assert.Nil(t, o.ApprovedBy)
}

func TestOverrideService_Create_SameKeyUpdatesInPlace(t *testing.T) {
	// GIVEN: A live override for (assignment, player, day)
	// WHEN: Creating again with different modifications, later in the same day
	// THEN: The same record is updated; no second row, no second creation event

	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.assign(t, primitive.NewObjectID(), "p1", day(10))

	first, created, err := f.overrideSvc.CreateOverride(ctx, medicalRequest(a, "rec-1", false))
	require.NoError(t, err)
	require.True(t, created)

	req := medicalRequest(a, "rec-1", false)
	req.EffectiveDate = day(10).Add(14 * time.Hour)
	req.Modifications.LoadMultiplier = ptr(0.4)
	second, created, err := f.overrideSvc.CreateOverride(ctx, req)
	require.NoError(t, err)

	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, f.overrides.Len())
	assert.Equal(t, 1, f.events.count(events.TopicMedicalOverrideCreated))

	stored, err := f.overrideSvc.GetOverride(ctx, first.ID)
	require.NoError(t, err)
	assert.InDelta(t, 0.4, *stored.Modifications.LoadMultiplier, 1e-9)
}

func TestOverrideService_Create_KeepsHumanApproval(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.assign(t, primitive.NewObjectID(), "p1", day(10))

	o, _, err := f.overrideSvc.CreateOverride(ctx, medicalRequest(a, "rec-1", true))
	require.NoError(t, err)
	_, err = f.overrideSvc.ApproveOverride(ctx, o.ID, "dr-2")
	require.NoError(t, err)

	again, _, err := f.overrideSvc.CreateOverride(ctx, medicalRequest(a, "rec-1", true))
	require.NoError(t, err)
	assert.Equal(t, domain.OverrideApproved, again.Status)
	assert.Equal(t, "dr-2", *again.ApprovedBy)
}

func TestOverrideService_Create_RevivesExpired(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.assign(t, primitive.NewObjectID(), "p1", day(10))

	o, _, err := f.overrideSvc.CreateOverride(ctx, medicalRequest(a, "rec-1", false))
	require.NoError(t, err)
	_, err = f.overrideSvc.ExpireOverride(ctx, o.ID)
	require.NoError(t, err)

	revived, created, err := f.overrideSvc.CreateOverride(ctx, medicalRequest(a, "rec-2", false))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, o.ID, revived.ID)
	assert.Equal(t, domain.OverrideApproved, revived.Status)
	assert.Equal(t, "rec-2", *revived.MedicalRecordID)
}

func TestOverrideService_Create_Validation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.assign(t, primitive.NewObjectID(), "p1", day(10))

	tests := []struct {
		name   string
		mutate func(*service.CreateOverrideRequest)
		field  string
	}{
		{"medical without record", func(r *service.CreateOverrideRequest) { r.MedicalRecordID = nil }, "medicalRecordId"},
		{"expiry before effective", func(r *service.CreateOverrideRequest) { r.ExpiryDate = ptr(day(9)) }, "expiryDate"},
		{"unknown type", func(r *service.CreateOverrideRequest) { r.Type = "vacation" }, "type"},
		{"bad intensity zone", func(r *service.CreateOverrideRequest) {
			r.Modifications.IntensityZone = &domain.IntensityZone{MinPercent: 80, MaxPercent: 50}
		}, "modifications.intensityZone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := medicalRequest(a, "rec-1", false)
			tt.mutate(&req)
			_, _, err := f.overrideSvc.CreateOverride(ctx, req)

			var verr *service.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.ErrorIs(t, err, service.ErrValidation)
			assert.Contains(t, verr.Fields, tt.field)
		})
	}
	assert.Equal(t, 0, f.overrides.Len())
}

func TestOverrideService_Create_UnknownAssignment(t *testing.T) {
	f := newFixture(t, nil)
	req := medicalRequest(domain.WorkoutAssignment{ID: primitive.NewObjectID(), PlayerID: "p1", EffectiveDate: day(10)}, "rec-1", false)

	_, _, err := f.overrideSvc.CreateOverride(context.Background(), req)
	assert.ErrorIs(t, err, service.ErrAssignmentNotFound)
}

func TestOverrideService_Create_CarriesAssignmentOrganization(t *testing.T) {
	// GIVEN: An org-1 assignment
	// WHEN: org-2 asks for an override on it, then org-1 does
	// THEN: org-2 is told it does not exist; org-1's override is stamped with org-1

	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.assign(t, primitive.NewObjectID(), "p1", day(10))

	req := medicalRequest(a, "rec-1", false)
	req.OrganizationID = "org-2"
	_, _, err := f.overrideSvc.CreateOverride(ctx, req)
	assert.ErrorIs(t, err, service.ErrAssignmentNotFound)
	assert.Equal(t, 0, f.overrides.Len())

	req.OrganizationID = "org-1"
	o, created, err := f.overrideSvc.CreateOverride(ctx, req)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "org-1", o.OrganizationID)
}

// =============================================================================
// STATUS TRANSITIONS
// =============================================================================

func TestOverrideService_ApproveReject_OnlyFromPending(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.assign(t, primitive.NewObjectID(), "p1", day(10))

	o, _, err := f.overrideSvc.CreateOverride(ctx, medicalRequest(a, "rec-1", true))
	require.NoError(t, err)

	rejected, err := f.overrideSvc.RejectOverride(ctx, o.ID, "dr-2", "not indicated")
	require.NoError(t, err)
	assert.Equal(t, domain.OverrideRejected, rejected.Status)
	assert.Contains(t, rejected.Notes, "not indicated")

	_, err = f.overrideSvc.ApproveOverride(ctx, o.ID, "dr-2")
	assert.ErrorIs(t, err, service.ErrInvalidTransition)

	_, err = f.overrideSvc.ExpireOverride(ctx, o.ID)
	assert.ErrorIs(t, err, service.ErrInvalidTransition)
}

func TestOverrideService_StatusChange_FiresPlayerHooks(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.assign(t, primitive.NewObjectID(), "p1", day(10))

	var seen []string
	f.overrideSvc.OnPlayerChange(func(_ context.Context, playerID string) { seen = append(seen, playerID) })

	o, _, err := f.overrideSvc.CreateOverride(ctx, medicalRequest(a, "rec-1", true))
	require.NoError(t, err)
	_, err = f.overrideSvc.ApproveOverride(ctx, o.ID, "dr-2")
	require.NoError(t, err)

	assert.Equal(t, []string{"p1", "p1"}, seen)
}

func TestOverrideService_ExpireDue(t *testing.T) {
	// GIVEN: One override that expired yesterday and one open-ended
	// WHEN: Sweeping at noon today
	// THEN: Only the past-due one is expired

	f := newFixture(t, nil)
	ctx := context.Background()
	a1 := f.assign(t, primitive.NewObjectID(), "p1", day(10))
	a2 := f.assign(t, primitive.NewObjectID(), "p1", day(10))

	due := medicalRequest(a1, "rec-1", false)
	due.ExpiryDate = ptr(day(11))
	dueOverride, _, err := f.overrideSvc.CreateOverride(ctx, due)
	require.NoError(t, err)
	_, _, err = f.overrideSvc.CreateOverride(ctx, medicalRequest(a2, "rec-2", false))
	require.NoError(t, err)

	n, err := f.overrideSvc.ExpireDue(ctx, day(12).Add(12*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.overrideSvc.GetOverride(ctx, dueOverride.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OverrideExpired, got.Status)

	live, err := f.overrideSvc.GetPlayerOverrides(ctx, "p1", true)
	require.NoError(t, err)
	assert.Len(t, live, 1)
}

func TestOverrideService_ExpireByMedicalRecord(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a1 := f.assign(t, primitive.NewObjectID(), "p1", day(10))
	a2 := f.assign(t, primitive.NewObjectID(), "p1", day(11))

	for _, a := range []domain.WorkoutAssignment{a1, a2} {
		_, _, err := f.overrideSvc.CreateOverride(ctx, medicalRequest(a, "rec-1", false))
		require.NoError(t, err)
	}

	n, err := f.overrideSvc.ExpireByMedicalRecord(ctx, "rec-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	record := "rec-1"
	live, err := f.overrideSvc.FindOverrides(ctx, repository.OverrideFilter{
		MedicalRecordID: &record,
		Statuses:        []domain.OverrideStatus{domain.OverridePending, domain.OverrideApproved},
	})
	require.NoError(t, err)
	assert.Empty(t, live)
}
