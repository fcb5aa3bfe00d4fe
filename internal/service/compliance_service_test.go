package service_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"alcyxob/training-service/internal/cache"
	"alcyxob/training-service/internal/domain"
	"alcyxob/training-service/internal/repository/memory"
	"alcyxob/training-service/internal/service"
	"alcyxob/training-service/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	putErr  error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte)}
}

func (s *fakeStorage) PutObject(_ context.Context, key, _ string, body io.Reader, _ int64) error {
	if s.putErr != nil {
		return s.putErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *fakeStorage) GeneratePresignedDownloadURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://reports.example.test/" + key, nil
}

func (s *fakeStorage) DeleteObject(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	s.deleted = append(s.deleted, key)
	return nil
}

type failingReportRepo struct{}

func (failingReportRepo) Create(context.Context, *domain.ComplianceReport) (primitive.ObjectID, error) {
	return primitive.NilObjectID, errors.New("write concern failed")
}

func (failingReportRepo) GetByID(context.Context, primitive.ObjectID) (*domain.ComplianceReport, error) {
	return nil, errors.New("unreachable")
}

type complianceScene struct {
	f       *fixture
	jump    domain.Exercise
	plank   domain.Exercise
	session domain.WorkoutSession
}

func newComplianceScene(t *testing.T, store storage.FileStorage) *complianceScene {
	f := newFixture(t, store)
	jump := f.exercise(t, domain.Exercise{Name: "Jump Squats", Category: "plyometric", MovementPatterns: []string{"Jump"}, DefaultIntensity: 80})
	plank := f.exercise(t, domain.Exercise{Name: "Plank", Category: "core", MovementPatterns: []string{"hold"}, DefaultIntensity: 40, Supervised: true})
	return &complianceScene{f: f, jump: jump, plank: plank, session: f.session(t, "Lower Body", jump, plank)}
}

func (sc *complianceScene) medicalOverride(t *testing.T, a domain.WorkoutAssignment, pending bool) *domain.WorkoutPlayerOverride {
	t.Helper()
	rec := "rec-" + a.PlayerID
	o, _, err := sc.f.overrideSvc.CreateOverride(context.Background(), service.CreateOverrideRequest{
		WorkoutAssignmentID: a.ID,
		PlayerID:            a.PlayerID,
		Type:                domain.OverrideMedical,
		EffectiveDate:       a.EffectiveDate,
		Modifications:       domain.OverrideModifications{ExcludedExercises: []primitive.ObjectID{sc.jump.ID}},
		MedicalRecordID:     &rec,
		Restriction: &domain.RestrictionSnapshot{
			Severity:            domain.SeverityModerate,
			RestrictedMovements: []string{"jump"},
			MaxExertionLevel:    ptr(70.0),
		},
		RequestedBy:     "physio-1",
		RequireApproval: pending,
	})
	require.NoError(t, err)
	return o
}

func TestCheckCompliance_NoOverrides_NotApplicable(t *testing.T) {
	sc := newComplianceScene(t, nil)
	sc.f.assign(t, sc.session.ID, "p1", day(10))

	result, err := sc.f.complianceSvc.CheckCompliance(context.Background(), "org-1", sc.session.ID, "", true)
	require.NoError(t, err)
	assert.Equal(t, domain.ComplianceNotApplicable, result.OverallStatus)
	assert.False(t, result.RequiresApproval)
	require.Len(t, result.Players, 1)
	assert.Equal(t, 0, result.Players[0].ActiveOverrides)
}

func TestCheckCompliance_UnknownSession(t *testing.T) {
	sc := newComplianceScene(t, nil)
	_, err := sc.f.complianceSvc.CheckCompliance(context.Background(), "org-1", primitive.NewObjectID(), "", false)
	assert.ErrorIs(t, err, service.ErrSessionNotFound)
}

func TestCheckCompliance_Detailed_ReportsViolations(t *testing.T) {
	// GIVEN: An approved medical override excluding Jump Squats and capping exertion at 70
	// WHEN: Checking compliance in detailed mode
	// THEN: Jump Squats violates three rules, Plank none, and approval is required

	sc := newComplianceScene(t, nil)
	a := sc.f.assign(t, sc.session.ID, "p1", day(10))
	o := sc.medicalOverride(t, a, false)

	result, err := sc.f.complianceSvc.CheckCompliance(context.Background(), "org-1", sc.session.ID, "p1", true)
	require.NoError(t, err)
	assert.Equal(t, domain.ComplianceNonCompliant, result.OverallStatus)
	assert.True(t, result.RequiresApproval)
	require.Len(t, result.Players, 1)

	pc := result.Players[0]
	assert.Equal(t, 1, pc.ActiveOverrides)
	var rules []domain.ViolationRule
	for _, v := range pc.Violations {
		assert.Equal(t, sc.jump.ID, v.ExerciseID)
		assert.Equal(t, o.ID, v.OverrideID)
		assert.Equal(t, a.ID, v.AssignmentID)
		rules = append(rules, v.Rule)
	}
	assert.ElementsMatch(t, []domain.ViolationRule{
		domain.ViolationExcludedExercise, domain.ViolationRestrictedMovement, domain.ViolationExceedsExertion,
	}, rules)
}

func TestCheckCompliance_Summary_NeverNonCompliant(t *testing.T) {
	sc := newComplianceScene(t, nil)
	a := sc.f.assign(t, sc.session.ID, "p1", day(10))
	sc.medicalOverride(t, a, false)

	result, err := sc.f.complianceSvc.CheckCompliance(context.Background(), "org-1", sc.session.ID, "", false)
	require.NoError(t, err)
	assert.Equal(t, domain.ComplianceCompliant, result.OverallStatus)
	assert.Empty(t, result.Players[0].Violations)
}

func TestCheckCompliance_PendingOverride_Partial(t *testing.T) {
	sc := newComplianceScene(t, nil)
	a := sc.f.assign(t, sc.session.ID, "p1", day(10))
	sc.medicalOverride(t, a, true)

	result, err := sc.f.complianceSvc.CheckCompliance(context.Background(), "org-1", sc.session.ID, "", false)
	require.NoError(t, err)
	assert.Equal(t, domain.CompliancePartial, result.OverallStatus)
	assert.True(t, result.Players[0].PendingApproval)
}

func TestCheckCompliance_OverallIsMostSevere(t *testing.T) {
	// GIVEN: p1 compliant, p2 partial, p3 without overrides
	// WHEN: Checking the session
	// THEN: The overall status is partial and players come back sorted

	sc := newComplianceScene(t, nil)
	sc.medicalOverride(t, sc.f.assign(t, sc.session.ID, "p1", day(10)), false)
	sc.medicalOverride(t, sc.f.assign(t, sc.session.ID, "p2", day(10)), true)
	sc.f.assign(t, sc.session.ID, "p3", day(10))

	result, err := sc.f.complianceSvc.CheckCompliance(context.Background(), "org-1", sc.session.ID, "", false)
	require.NoError(t, err)
	assert.Equal(t, domain.CompliancePartial, result.OverallStatus)
	require.Len(t, result.Players, 3)
	assert.Equal(t, domain.ComplianceCompliant, result.Players[0].Status)
	assert.Equal(t, domain.CompliancePartial, result.Players[1].Status)
	assert.Equal(t, domain.ComplianceNotApplicable, result.Players[2].Status)
}

func TestCheckCompliance_IgnoresNonMedicalOverrides(t *testing.T) {
	sc := newComplianceScene(t, nil)
	a := sc.f.assign(t, sc.session.ID, "p1", day(10))
	_, _, err := sc.f.overrideSvc.CreateOverride(context.Background(), service.CreateOverrideRequest{
		WorkoutAssignmentID: a.ID, PlayerID: "p1", Type: domain.OverridePerformance, EffectiveDate: day(10),
		Modifications: domain.OverrideModifications{LoadMultiplier: ptr(0.8)}, RequestedBy: "coach-1",
	})
	require.NoError(t, err)

	result, err := sc.f.complianceSvc.CheckCompliance(context.Background(), "org-1", sc.session.ID, "", true)
	require.NoError(t, err)
	assert.Equal(t, domain.ComplianceNotApplicable, result.OverallStatus)
}

func TestCheckCompliance_OverrideChangeInvalidatesCache(t *testing.T) {
	// GIVEN: A cached not_applicable result for the session
	// WHEN: A medical override is created for a player in it
	// THEN: The next check recomputes instead of serving the stale result

	sc := newComplianceScene(t, nil)
	ctx := context.Background()
	a := sc.f.assign(t, sc.session.ID, "p1", day(10))

	first, err := sc.f.complianceSvc.CheckCompliance(ctx, "org-1", sc.session.ID, "", false)
	require.NoError(t, err)
	assert.Equal(t, domain.ComplianceNotApplicable, first.OverallStatus)
	hit, err := sc.f.cache.Get(ctx, cache.ComplianceKey(sc.session.ID.Hex(), "", false), &domain.ComplianceResult{})
	require.NoError(t, err)
	require.True(t, hit)

	sc.medicalOverride(t, a, true)

	second, err := sc.f.complianceSvc.CheckCompliance(ctx, "org-1", sc.session.ID, "", false)
	require.NoError(t, err)
	assert.Equal(t, domain.CompliancePartial, second.OverallStatus)
}

func TestCheckCompliance_OtherOrganization_NotFound(t *testing.T) {
	// GIVEN: A session owned by org-1, already checked once so the result is cached
	// WHEN: org-2 asks for it, alone or in a bulk check
	// THEN: It looks missing either way

	sc := newComplianceScene(t, nil)
	ctx := context.Background()
	sc.f.assign(t, sc.session.ID, "p1", day(10))

	_, err := sc.f.complianceSvc.CheckCompliance(ctx, "org-1", sc.session.ID, "", false)
	require.NoError(t, err)

	_, err = sc.f.complianceSvc.CheckCompliance(ctx, "org-2", sc.session.ID, "", false)
	assert.ErrorIs(t, err, service.ErrSessionNotFound)

	bulk, err := sc.f.complianceSvc.BulkCompliance(ctx, "org-2", []primitive.ObjectID{sc.session.ID}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, bulk.Failed)
	assert.Nil(t, bulk.Sessions[0].Result)
}

func TestBulkCompliance_FailingSessionIsolated(t *testing.T) {
	sc := newComplianceScene(t, nil)
	a := sc.f.assign(t, sc.session.ID, "p1", day(10))
	sc.medicalOverride(t, a, true)
	missing := primitive.NewObjectID()

	bulk, err := sc.f.complianceSvc.BulkCompliance(context.Background(), "org-1", []primitive.ObjectID{sc.session.ID, missing}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, bulk.Failed)
	assert.Equal(t, domain.CompliancePartial, bulk.OverallStatus)
	require.Len(t, bulk.Sessions, 2)
	assert.Equal(t, sc.session.ID, bulk.Sessions[0].SessionID)
	assert.Equal(t, missing, bulk.Sessions[1].SessionID)
	assert.NotEmpty(t, bulk.Sessions[1].Error)

	_, err = sc.f.complianceSvc.BulkCompliance(context.Background(), "org-1", nil, false)
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestArchiveBulkReport_StoresObjectAndMetadata(t *testing.T) {
	store := newFakeStorage()
	sc := newComplianceScene(t, store)
	ctx := context.Background()
	sc.f.assign(t, sc.session.ID, "p1", day(10))

	bulk, err := sc.f.complianceSvc.BulkCompliance(ctx, "org-1", []primitive.ObjectID{sc.session.ID}, true)
	require.NoError(t, err)

	report, err := sc.f.complianceSvc.ArchiveBulkReport(ctx, "org-1", "coach-1", bulk)
	require.NoError(t, err)
	assert.Regexp(t, `^compliance-reports/org-1/\d{4}/\d{2}/\d{2}/[0-9a-f-]{36}\.json$`, report.S3ObjectKey)
	assert.Equal(t, "application/json", report.ContentType)
	assert.Contains(t, store.objects, report.S3ObjectKey)
	assert.Equal(t, int64(len(store.objects[report.S3ObjectKey])), report.Size)
	assert.Equal(t, "https://reports.example.test/"+report.S3ObjectKey, report.DownloadURL)

	got, err := sc.f.complianceSvc.GetReport(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{sc.session.ID}, got.SessionIDs)
	assert.NotEmpty(t, got.DownloadURL)

	_, err = sc.f.complianceSvc.GetReport(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, service.ErrReportNotFound)
}

func TestArchiveBulkReport_StorageDisabled(t *testing.T) {
	sc := newComplianceScene(t, nil)
	bulk := &service.BulkComplianceResult{OverallStatus: domain.ComplianceCompliant, CheckedAt: time.Now()}

	_, err := sc.f.complianceSvc.ArchiveBulkReport(context.Background(), "org-1", "coach-1", bulk)
	assert.ErrorIs(t, err, service.ErrArchiveUnavailable)
}

func TestArchiveBulkReport_MetadataFailureRemovesObject(t *testing.T) {
	store := newFakeStorage()
	svc := service.NewComplianceService(memory.NewSessionRepository(), memory.NewAssignmentRepository(),
		memory.NewOverrideRepository(), memory.NewExerciseRepository(), failingReportRepo{}, store,
		cache.NewMemoryCache(), time.Minute, zap.NewNop())
	bulk := &service.BulkComplianceResult{OverallStatus: domain.ComplianceCompliant, CheckedAt: time.Now()}

	_, err := svc.ArchiveBulkReport(context.Background(), "org-1", "coach-1", bulk)
	require.Error(t, err)
	assert.Empty(t, store.objects)
	assert.Len(t, store.deleted, 1)
}
