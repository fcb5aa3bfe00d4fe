package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"alcyxob/training-service/internal/api"
	"alcyxob/training-service/internal/client"
	"alcyxob/training-service/internal/domain"
	"alcyxob/training-service/internal/events"
	"alcyxob/training-service/internal/repository/memory"
	"alcyxob/training-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

// --- fakes ---

type fakeAssignments struct {
	service.AssignmentService
	err        error
	assignment *domain.WorkoutAssignment
	checked    service.ConflictCheckRequest
	resolved   service.ResolveConflictRequest
	schedule   []domain.WorkoutAssignment
}

// ResolveConflict applies the same organization rule as the real engine.
func (f *fakeAssignments) ResolveConflict(_ context.Context, req service.ResolveConflictRequest) (*service.ResolveConflictResult, error) {
	f.resolved = req
	if f.assignment == nil || f.assignment.ID != req.AssignmentID || f.assignment.OrganizationID != req.OrganizationID {
		return nil, service.ErrAssignmentNotFound
	}
	f.assignment.Status = domain.StatusCancelled
	cp := *f.assignment
	return &service.ResolveConflictResult{Action: req.Action, Assignment: &cp}, nil
}

func (f *fakeAssignments) GetPlayerAssignments(context.Context, string, time.Time, time.Time) ([]domain.WorkoutAssignment, error) {
	return f.schedule, nil
}

func (f *fakeAssignments) CheckConflicts(_ context.Context, req service.ConflictCheckRequest) ([]domain.ConflictInfo, error) {
	f.checked = req
	if f.err != nil {
		return nil, f.err
	}
	return []domain.ConflictInfo{}, nil
}

func (f *fakeAssignments) GetAssignment(_ context.Context, id primitive.ObjectID) (*domain.WorkoutAssignment, error) {
	if f.assignment == nil || f.assignment.ID != id {
		return nil, service.ErrAssignmentNotFound
	}
	cp := *f.assignment
	return &cp, nil
}

func (f *fakeAssignments) Transition(_ context.Context, _ primitive.ObjectID, next domain.AssignmentStatus, _ string) (*domain.WorkoutAssignment, error) {
	if !f.assignment.Status.CanTransitionTo(next) {
		return nil, service.ErrInvalidTransition
	}
	f.assignment.Status = next
	cp := *f.assignment
	return &cp, nil
}

type fakeOverrides struct {
	service.OverrideService
	created  bool
	req      service.CreateOverrideRequest
	stored   map[primitive.ObjectID]domain.WorkoutPlayerOverride
	approved []primitive.ObjectID
	rejected []primitive.ObjectID
}

func (f *fakeOverrides) GetOverride(_ context.Context, id primitive.ObjectID) (*domain.WorkoutPlayerOverride, error) {
	o, ok := f.stored[id]
	if !ok {
		return nil, service.ErrOverrideNotFound
	}
	return &o, nil
}

func (f *fakeOverrides) ApproveOverride(_ context.Context, id primitive.ObjectID, _ string) (*domain.WorkoutPlayerOverride, error) {
	f.approved = append(f.approved, id)
	o := f.stored[id]
	o.Status = domain.OverrideApproved
	return &o, nil
}

func (f *fakeOverrides) RejectOverride(_ context.Context, id primitive.ObjectID, _, _ string) (*domain.WorkoutPlayerOverride, error) {
	f.rejected = append(f.rejected, id)
	o := f.stored[id]
	o.Status = domain.OverrideRejected
	return &o, nil
}

func (f *fakeOverrides) GetPlayerOverrides(_ context.Context, playerID string, _ bool) ([]domain.WorkoutPlayerOverride, error) {
	var out []domain.WorkoutPlayerOverride
	for _, o := range f.stored {
		if o.PlayerID == playerID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOverrides) CreateOverride(_ context.Context, req service.CreateOverrideRequest) (*domain.WorkoutPlayerOverride, bool, error) {
	f.req = req
	return &domain.WorkoutPlayerOverride{ID: primitive.NewObjectID(), PlayerID: req.PlayerID, Type: req.Type}, f.created, nil
}

type fakeCompliance struct {
	service.ComplianceService
	archiveErr error
	archivedBy string
	checkedOrg string
	bulkOrg    string
}

func (f *fakeCompliance) CheckCompliance(_ context.Context, org string, sessionID primitive.ObjectID, _ string, _ bool) (*domain.ComplianceResult, error) {
	f.checkedOrg = org
	if org != "org-1" {
		return nil, service.ErrSessionNotFound
	}
	return &domain.ComplianceResult{SessionID: sessionID, OrganizationID: org, OverallStatus: domain.ComplianceNotApplicable}, nil
}

func (f *fakeCompliance) BulkCompliance(_ context.Context, org string, ids []primitive.ObjectID, _ bool) (*service.BulkComplianceResult, error) {
	f.bulkOrg = org
	res := &service.BulkComplianceResult{OverallStatus: domain.ComplianceCompliant}
	for _, id := range ids {
		res.Sessions = append(res.Sessions, service.SessionCompliance{SessionID: id})
	}
	return res, nil
}

func (f *fakeCompliance) ArchiveBulkReport(_ context.Context, org, by string, _ *service.BulkComplianceResult) (*domain.ComplianceReport, error) {
	f.archivedBy = by
	if f.archiveErr != nil {
		return nil, f.archiveErr
	}
	return &domain.ComplianceReport{ID: primitive.NewObjectID(), OrganizationID: org}, nil
}

type fakePlanning struct {
	service.PlanningService
	phase *domain.PlanningPhase
}

func (f *fakePlanning) GetCurrentPhase(context.Context, string) *domain.PlanningPhase { return f.phase }

type recordingBus struct {
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) error {
	b.published = append(b.published, e)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

// --- harness ---

type harness struct {
	router      *gin.Engine
	assignments *fakeAssignments
	overrides   *fakeOverrides
	compliance  *fakeCompliance
	planning    *fakePlanning
	bus         *recordingBus
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := &harness{
		router:      gin.New(),
		assignments: &fakeAssignments{},
		overrides:   &fakeOverrides{},
		compliance:  &fakeCompliance{},
		planning:    &fakePlanning{},
		bus:         &recordingBus{},
	}
	api.SetupRoutes(h.router, testSecret, zap.NewNop(), api.Services{
		Assignment:  h.assignments,
		Override:    h.overrides,
		Compliance:  h.compliance,
		Planning:    h.planning,
		Exercise:    service.NewExerciseService(memory.NewExerciseRepository()),
		WorkoutType: service.NewWorkoutTypeService(memory.NewWorkoutTypeRepository()),
		Bus:         h.bus,
	})
	return h
}

func token(t *testing.T, role domain.Role, org string) string {
	t.Helper()
	tok, err := api.IssueToken(testSecret, "user-1", role, org, time.Hour)
	require.NoError(t, err)
	return tok
}

func (h *harness) do(t *testing.T, method, path, tok string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

// =============================================================================
// MIDDLEWARE TESTS
// =============================================================================

func TestPing_EchoesCorrelationID(t *testing.T) {
	h := newHarness(t)
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(api.CorrelationIDHeader, "corr-42")
	rec := httptest.NewRecorder()

	h.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "corr-42", rec.Header().Get(api.CorrelationIDHeader))
}

func TestAuth_RejectsMissingAndForeignTokens(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/api/v1/training/exercises", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	forged, err := api.IssueToken("other-secret", "user-1", domain.RoleCoach, "org-1", time.Hour)
	require.NoError(t, err)
	rec = h.do(t, http.MethodGet, "/api/v1/training/exercises", forged, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	expired, err := api.IssueToken(testSecret, "user-1", domain.RoleCoach, "org-1", time.Nanosecond)
	require.NoError(t, err)
	time.Sleep(time.Second)
	rec = h.do(t, http.MethodGet, "/api/v1/training/exercises", expired, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRoles_PlayerCannotWriteCatalog(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/v1/training/exercises", token(t, domain.RolePlayer, "org-1"),
		map[string]string{"name": "Plank", "category": "core"})

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestIssueToken_RequiresClaims(t *testing.T) {
	_, err := api.IssueToken(testSecret, "user-1", domain.RoleCoach, "", time.Hour)
	assert.ErrorIs(t, err, api.ErrTokenGeneration)
	_, err = api.IssueToken("", "user-1", domain.RoleCoach, "org-1", time.Hour)
	assert.ErrorIs(t, err, api.ErrTokenGeneration)
}

// =============================================================================
// ERROR MAPPING TESTS
// =============================================================================

func TestConflictCheck_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		field  string
	}{
		{"validation", &service.ValidationError{Fields: map[string]string{"playerIds": "required"}}, http.StatusBadRequest, "fields"},
		{"conflicts", &service.ConflictError{Conflicts: []domain.ConflictInfo{{ID: "c1"}}}, http.StatusConflict, "conflicts"},
		{"not found", service.ErrSessionNotFound, http.StatusNotFound, ""},
		{"taken", service.ErrAssignmentExists, http.StatusConflict, ""},
		{"upstream", &client.UpstreamError{Service: "medical", StatusCode: 503}, http.StatusBadGateway, ""},
		{"unexpected", errors.New("disk on fire"), http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.assignments.err = tt.err

			rec := h.do(t, http.MethodPost, "/api/v1/training/assignments/conflicts/check", token(t, domain.RoleCoach, "org-1"),
				map[string]interface{}{"playerIds": []string{"p1"}, "effectiveDate": "2026-03-10T00:00:00Z"})

			assert.Equal(t, tt.status, rec.Code)
			var body map[string]interface{}
			decode(t, rec, &body)
			assert.NotEmpty(t, body["error"])
			if tt.field != "" {
				assert.Contains(t, body, tt.field)
			}
			assert.NotContains(t, rec.Body.String(), "disk on fire")
		})
	}
}

func TestConflictCheck_ScopedToTokenOrganization(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/v1/training/assignments/conflicts/check", token(t, domain.RoleCoach, "org-7"),
		map[string]interface{}{"playerIds": []string{"p1"}, "effectiveDate": "2026-03-10T00:00:00Z", "load": 200})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "org-7", h.assignments.checked.OrganizationID)
	var body api.ConflictCheckResponse
	decode(t, rec, &body)
	assert.False(t, body.HasConflicts)
}

// =============================================================================
// HANDLER TESTS
// =============================================================================

func TestTransitionStatus(t *testing.T) {
	// GIVEN: An active assignment in org-1
	// WHEN: Completing it, completing it again, and touching it from org-2
	// THEN: 200, then 409 for the invalid transition, then 404 across tenants

	h := newHarness(t)
	id := primitive.NewObjectID()
	h.assignments.assignment = &domain.WorkoutAssignment{ID: id, OrganizationID: "org-1", Status: domain.StatusActive}
	path := "/api/v1/training/assignments/" + id.Hex() + "/status"

	rec := h.do(t, http.MethodPost, path, token(t, domain.RoleCoach, "org-1"), map[string]string{"status": "completed"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodPost, path, token(t, domain.RoleCoach, "org-1"), map[string]string{"status": "completed"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = h.do(t, http.MethodPost, path, token(t, domain.RoleCoach, "org-2"), map[string]string{"status": "archived"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/v1/training/assignments/not-an-id/status", token(t, domain.RoleCoach, "org-1"),
		map[string]string{"status": "archived"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResolveConflict_OtherOrganization_NotFound(t *testing.T) {
	// GIVEN: An active assignment in org-1
	// WHEN: A coach in org-2 tries to cancel it, then a coach in org-1 does
	// THEN: 404 for org-2 with the assignment untouched, 200 for org-1

	h := newHarness(t)
	id := primitive.NewObjectID()
	h.assignments.assignment = &domain.WorkoutAssignment{ID: id, OrganizationID: "org-1", Status: domain.StatusActive}
	body := map[string]interface{}{"action": "cancel", "assignmentId": id.Hex()}

	rec := h.do(t, http.MethodPost, "/api/v1/training/assignments/conflicts/resolve", token(t, domain.RoleCoach, "org-2"), body)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "org-2", h.assignments.resolved.OrganizationID)
	assert.Equal(t, domain.StatusActive, h.assignments.assignment.Status)

	rec = h.do(t, http.MethodPost, "/api/v1/training/assignments/conflicts/resolve", token(t, domain.RoleCoach, "org-1"), body)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.StatusCancelled, h.assignments.assignment.Status)
}

func TestPlayerAssignments_OnlyCallerOrganization(t *testing.T) {
	h := newHarness(t)
	h.assignments.schedule = []domain.WorkoutAssignment{
		{ID: primitive.NewObjectID(), OrganizationID: "org-1", PlayerID: "p1"},
		{ID: primitive.NewObjectID(), OrganizationID: "org-2", PlayerID: "p1"},
	}

	rec := h.do(t, http.MethodGet, "/api/v1/training/assignments/players/p1?from=2026-03-01&to=2026-03-31", token(t, domain.RoleCoach, "org-2"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got []domain.WorkoutAssignment
	decode(t, rec, &got)
	require.Len(t, got, 1)
	assert.Equal(t, "org-2", got[0].OrganizationID)
}

func TestOverrideApproval_OtherOrganization_NotFound(t *testing.T) {
	// GIVEN: A pending override on an org-1 assignment
	// WHEN: Medical staff in org-2 approve or reject it
	// THEN: 404 and the service is never asked; org-1 staff can approve it

	h := newHarness(t)
	id := primitive.NewObjectID()
	h.overrides.stored = map[primitive.ObjectID]domain.WorkoutPlayerOverride{
		id: {ID: id, OrganizationID: "org-1", PlayerID: "p1", Status: domain.OverridePending},
	}
	other := token(t, domain.RoleMedical, "org-2")

	rec := h.do(t, http.MethodPost, "/api/v1/training/medical-sync/overrides/"+id.Hex()+"/approve", other, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = h.do(t, http.MethodPost, "/api/v1/training/medical-sync/overrides/"+id.Hex()+"/reject", other, map[string]string{"reason": "no"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, h.overrides.approved)
	assert.Empty(t, h.overrides.rejected)

	rec = h.do(t, http.MethodPost, "/api/v1/training/medical-sync/overrides/"+id.Hex()+"/approve", token(t, domain.RoleMedical, "org-1"), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []primitive.ObjectID{id}, h.overrides.approved)
}

func TestPlayerOverrides_OnlyCallerOrganization(t *testing.T) {
	h := newHarness(t)
	mine, theirs := primitive.NewObjectID(), primitive.NewObjectID()
	h.overrides.stored = map[primitive.ObjectID]domain.WorkoutPlayerOverride{
		mine:   {ID: mine, OrganizationID: "org-1", PlayerID: "p1"},
		theirs: {ID: theirs, OrganizationID: "org-2", PlayerID: "p1"},
	}

	rec := h.do(t, http.MethodGet, "/api/v1/training/medical-sync/players/p1/overrides", token(t, domain.RoleCoach, "org-1"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got []domain.WorkoutPlayerOverride
	decode(t, rec, &got)
	require.Len(t, got, 1)
	assert.Equal(t, mine, got[0].ID)
}

func TestCheckCompliance_ScopedToTokenOrganization(t *testing.T) {
	h := newHarness(t)
	path := "/api/v1/training/medical-sync/compliance/" + primitive.NewObjectID().Hex()

	rec := h.do(t, http.MethodGet, path, token(t, domain.RoleCoach, "org-2"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "org-2", h.compliance.checkedOrg)

	rec = h.do(t, http.MethodGet, path, token(t, domain.RoleCoach, "org-1"), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateOverride_StatusReflectsUpsert(t *testing.T) {
	h := newHarness(t)
	body := map[string]interface{}{
		"workoutAssignmentId": primitive.NewObjectID().Hex(),
		"playerId":            "p1",
		"type":                "performance",
		"effectiveDate":       "2026-03-10T00:00:00Z",
		"modifications":       map[string]interface{}{"loadMultiplier": 0.8},
	}

	h.overrides.created = true
	rec := h.do(t, http.MethodPost, "/api/v1/training/medical-sync/overrides", token(t, domain.RoleCoach, "org-1"), body)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "user-1", h.overrides.req.RequestedBy)
	assert.Equal(t, "org-1", h.overrides.req.OrganizationID)
	require.NotNil(t, h.overrides.req.Modifications.LoadMultiplier)
	assert.Equal(t, 0.8, *h.overrides.req.Modifications.LoadMultiplier)

	h.overrides.created = false
	rec = h.do(t, http.MethodPost, "/api/v1/training/medical-sync/overrides", token(t, domain.RoleCoach, "org-1"), body)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBulkCompliance_ArchiveFailureStillReturnsResult(t *testing.T) {
	h := newHarness(t)
	h.compliance.archiveErr = service.ErrArchiveUnavailable
	sessionID := primitive.NewObjectID()

	rec := h.do(t, http.MethodPost, "/api/v1/training/medical-sync/compliance/bulk", token(t, domain.RoleMedical, "org-1"),
		map[string]interface{}{"sessionIds": []string{sessionID.Hex()}, "archive": true})

	require.Equal(t, http.StatusOK, rec.Code)
	var body api.BulkComplianceResponse
	decode(t, rec, &body)
	require.NotNil(t, body.BulkComplianceResult)
	assert.Len(t, body.Sessions, 1)
	assert.Nil(t, body.Report)
	assert.Contains(t, body.ArchiveError, "archive unavailable")
	assert.Equal(t, "user-1", h.compliance.archivedBy)
	assert.Equal(t, "org-1", h.compliance.bulkOrg)
}

func TestBulkCompliance_ArchivesReport(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/v1/training/medical-sync/compliance/bulk", token(t, domain.RoleCoach, "org-1"),
		map[string]interface{}{"sessionIds": []string{primitive.NewObjectID().Hex()}, "archive": true})

	require.Equal(t, http.StatusOK, rec.Code)
	var body api.BulkComplianceResponse
	decode(t, rec, &body)
	require.NotNil(t, body.Report)
	assert.Equal(t, "org-1", body.Report.OrganizationID)
	assert.Empty(t, body.ArchiveError)
}

func TestCurrentPhase_NotFoundWhenUnknown(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/api/v1/training/planning/teams/team-1/current-phase", token(t, domain.RoleCoach, "org-1"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	h.planning.phase = &domain.PlanningPhase{ID: "ph-1", Type: "preseason"}
	rec = h.do(t, http.MethodGet, "/api/v1/training/planning/teams/team-1/current-phase", token(t, domain.RoleCoach, "org-1"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var phase domain.PlanningPhase
	decode(t, rec, &phase)
	assert.Equal(t, "ph-1", phase.ID)
}

func TestExercises_CRUDScopedToOrganization(t *testing.T) {
	// GIVEN: A coach in org-1
	// WHEN: Creating an exercise, then reading it from org-1 and org-2
	// THEN: org-1 sees it, org-2 gets 404 and an empty list

	h := newHarness(t)
	coach := token(t, domain.RoleCoach, "org-1")

	rec := h.do(t, http.MethodPost, "/api/v1/training/exercises", coach, map[string]interface{}{
		"name": "Box Jumps", "category": "plyometric", "movementPatterns": []string{"jump"}, "defaultIntensity": 80,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created domain.Exercise
	decode(t, rec, &created)
	assert.Equal(t, "org-1", created.OrganizationID)
	assert.Equal(t, "user-1", created.CreatedBy)

	rec = h.do(t, http.MethodGet, "/api/v1/training/exercises/"+created.ID.Hex(), coach, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	other := token(t, domain.RoleCoach, "org-2")
	rec = h.do(t, http.MethodGet, "/api/v1/training/exercises/"+created.ID.Hex(), other, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/v1/training/exercises", other, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = h.do(t, http.MethodDelete, "/api/v1/training/exercises/"+created.ID.Hex(), coach, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestWorkoutTypes_DuplicateNameConflicts(t *testing.T) {
	h := newHarness(t)
	coach := token(t, domain.RoleCoach, "org-1")
	body := map[string]interface{}{"name": "Strength", "category": "strength", "defaultDurationMinutes": 60, "intensityMin": 60, "intensityMax": 85}

	rec := h.do(t, http.MethodPost, "/api/v1/training/workout-types", coach, body)
	require.Equal(t, http.StatusCreated, rec.Code)
	var wt domain.WorkoutType
	decode(t, rec, &wt)
	assert.True(t, wt.IsActive)

	rec = h.do(t, http.MethodPost, "/api/v1/training/workout-types", coach, body)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestIngestEvent_PublishesToBus(t *testing.T) {
	h := newHarness(t)
	payload := map[string]interface{}{
		"topic":   events.TopicPhaseChanged,
		"source":  "planning-service",
		"payload": map[string]string{"teamId": "team-1"},
	}

	rec := h.do(t, http.MethodPost, "/api/v1/training/events", token(t, domain.RoleCoach, "org-1"), payload)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, h.bus.published)

	rec = h.do(t, http.MethodPost, "/api/v1/training/events", token(t, domain.RoleService, "org-1"), payload)
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, h.bus.published, 1)
	e := h.bus.published[0]
	assert.Equal(t, events.TopicPhaseChanged, e.Topic)
	assert.NotEmpty(t, e.ID)
	assert.NotEmpty(t, e.CorrelationID)
	assert.JSONEq(t, `{"teamId":"team-1"}`, string(e.Payload))
}
