package service

import (
	"alcyxob/training-service/internal/cache"
	"alcyxob/training-service/internal/domain"
	"alcyxob/training-service/internal/repository"
	"alcyxob/training-service/internal/restriction"
	"alcyxob/training-service/internal/storage"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const bulkComplianceConcurrency = 4

// SessionCompliance is one session's entry in a bulk check.
type SessionCompliance struct {
	SessionID primitive.ObjectID       `json:"sessionId"`
	Result    *domain.ComplianceResult `json:"result,omitempty"`
	Error     string                   `json:"error,omitempty"`
}

type BulkComplianceResult struct {
	OverallStatus domain.ComplianceStatus `json:"overallStatus"`
	Sessions      []SessionCompliance     `json:"sessions"`
	Failed        int                     `json:"failed"`
	CheckedAt     time.Time               `json:"checkedAt"`
}

// --- Service Interface ---
type ComplianceService interface {
	CheckCompliance(ctx context.Context, organizationID string, sessionID primitive.ObjectID, playerID string, detailed bool) (*domain.ComplianceResult, error)
	BulkCompliance(ctx context.Context, organizationID string, sessionIDs []primitive.ObjectID, detailed bool) (*BulkComplianceResult, error)
	ArchiveBulkReport(ctx context.Context, organizationID, requestedBy string, result *BulkComplianceResult) (*domain.ComplianceReport, error)
	GetReport(ctx context.Context, id primitive.ObjectID) (*domain.ComplianceReport, error)
	InvalidatePlayer(ctx context.Context, playerID string)
}

// --- Service Implementation ---

type complianceService struct {
	sessionRepo    repository.SessionRepository
	assignmentRepo repository.AssignmentRepository
	overrideRepo   repository.OverrideRepository
	exerciseRepo   repository.ExerciseRepository
	reportRepo     repository.ReportRepository
	fileStorage    storage.FileStorage
	cache          cache.Cache
	ttl            time.Duration
	log            *zap.Logger
}

// NewComplianceService creates the compliance checker.
func NewComplianceService(
	sessionRepo repository.SessionRepository,
	assignmentRepo repository.AssignmentRepository,
	overrideRepo repository.OverrideRepository,
	exerciseRepo repository.ExerciseRepository,
	reportRepo repository.ReportRepository,
	fileStorage storage.FileStorage,
	c cache.Cache,
	ttl time.Duration,
	log *zap.Logger,
) ComplianceService {
	return &complianceService{
		sessionRepo:    sessionRepo,
		assignmentRepo: assignmentRepo,
		overrideRepo:   overrideRepo,
		exerciseRepo:   exerciseRepo,
		reportRepo:     reportRepo,
		fileStorage:    fileStorage,
		cache:          c,
		ttl:            ttl,
		log:            log.Named("compliance"),
	}
}

// CheckCompliance evaluates a session's assignments against live medical overrides.
// A session without overrides is not_applicable, never an error.
func (s *complianceService) CheckCompliance(ctx context.Context, organizationID string, sessionID primitive.ObjectID, playerID string, detailed bool) (*domain.ComplianceResult, error) {
	key := cache.ComplianceKey(sessionID.Hex(), playerID, detailed)
	var cached domain.ComplianceResult
	if hit, err := s.cache.Get(ctx, key, &cached); err != nil {
		s.log.Warn("compliance cache read failed", zap.String("key", key), zap.Error(err))
	} else if hit {
		if cached.OrganizationID != organizationID {
			return nil, ErrSessionNotFound
		}
		return &cached, nil
	}

	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	// Sessions of other organizations are indistinguishable from missing ones.
	if session.OrganizationID != organizationID {
		return nil, ErrSessionNotFound
	}

	filter := repository.AssignmentFilter{
		OrganizationID:   organizationID,
		WorkoutSessionID: &sessionID,
		Statuses:         []domain.AssignmentStatus{domain.StatusDraft, domain.StatusActive, domain.StatusCompleted},
		ExcludeParents:   true,
	}
	if playerID != "" {
		filter.PlayerIDs = []string{playerID}
	}
	assignments, err := s.assignmentRepo.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("load session assignments: %w", err)
	}

	result := &domain.ComplianceResult{
		SessionID:      sessionID,
		OrganizationID: session.OrganizationID,
		OverallStatus:  domain.ComplianceNotApplicable,
		Players:        []domain.PlayerCompliance{},
		Detailed:       detailed,
		CheckedAt:      time.Now().UTC(),
	}

	var exercises []domain.Exercise
	if detailed && len(assignments) > 0 {
		exercises, err = s.exerciseRepo.GetByIDs(ctx, session.ExerciseIDs())
		if err != nil {
			return nil, fmt.Errorf("load session exercises: %w", err)
		}
	}

	byPlayer := make(map[string][]domain.WorkoutAssignment)
	var players []string
	for _, a := range assignments {
		if _, seen := byPlayer[a.PlayerID]; !seen {
			players = append(players, a.PlayerID)
		}
		byPlayer[a.PlayerID] = append(byPlayer[a.PlayerID], a)
	}
	sort.Strings(players)

	for _, p := range players {
		pc, err := s.checkPlayer(ctx, p, byPlayer[p], exercises, detailed)
		if err != nil {
			return nil, err
		}
		result.Players = append(result.Players, *pc)
		result.OverallStatus = domain.MostSevere(result.OverallStatus, pc.Status)
	}
	result.RequiresApproval = result.OverallStatus == domain.ComplianceNonCompliant

	if err := s.cache.Set(ctx, key, result, s.ttl); err != nil {
		s.log.Warn("compliance cache write failed", zap.String("key", key), zap.Error(err))
	}
	return result, nil
}

func (s *complianceService) checkPlayer(ctx context.Context, playerID string, assignments []domain.WorkoutAssignment, exercises []domain.Exercise, detailed bool) (*domain.PlayerCompliance, error) {
	pc := &domain.PlayerCompliance{PlayerID: playerID, Status: domain.ComplianceNotApplicable}
	ids := make([]primitive.ObjectID, 0, len(assignments))
	byID := make(map[primitive.ObjectID]*domain.WorkoutAssignment, len(assignments))
	for i := range assignments {
		ids = append(ids, assignments[i].ID)
		byID[assignments[i].ID] = &assignments[i]
	}
	pc.AssignmentIDs = ids

	overrides, err := s.overrideRepo.Find(ctx, repository.OverrideFilter{
		AssignmentIDs: ids,
		PlayerIDs:     []string{playerID},
		Statuses:      []domain.OverrideStatus{domain.OverridePending, domain.OverrideApproved},
		Types:         []domain.OverrideType{domain.OverrideMedical},
	})
	if err != nil {
		return nil, fmt.Errorf("load overrides for %s: %w", playerID, err)
	}

	for _, o := range overrides {
		a := byID[o.WorkoutAssignmentID]
		if a == nil {
			continue
		}
		start, end := a.Window()
		if !o.ActiveDuring(start, end) {
			continue
		}
		pc.ActiveOverrides++
		if o.Status == domain.OverridePending {
			pc.PendingApproval = true
		}
		if detailed {
			pc.Violations = append(pc.Violations, violations(a.ID, o, exercises)...)
		}
	}

	switch {
	case pc.ActiveOverrides == 0:
		pc.Status = domain.ComplianceNotApplicable
	case len(pc.Violations) > 0:
		pc.Status = domain.ComplianceNonCompliant
	case pc.PendingApproval:
		pc.Status = domain.CompliancePartial
	default:
		pc.Status = domain.ComplianceCompliant
	}
	return pc, nil
}

// violations checks each session exercise against one override.
func violations(assignmentID primitive.ObjectID, o domain.WorkoutPlayerOverride, exercises []domain.Exercise) []domain.ComplianceViolation {
	var out []domain.ComplianceViolation
	add := func(ex domain.Exercise, rule domain.ViolationRule, detail string) {
		out = append(out, domain.ComplianceViolation{
			AssignmentID: assignmentID,
			OverrideID:   o.ID,
			ExerciseID:   ex.ID,
			ExerciseName: ex.Name,
			Rule:         rule,
			Detail:       detail,
		})
	}

	var maxExertion *float64
	if o.Restriction != nil && o.Restriction.MaxExertionLevel != nil {
		maxExertion = o.Restriction.MaxExertionLevel
	} else if o.Modifications.IntensityZone != nil {
		maxExertion = &o.Modifications.IntensityZone.MaxPercent
	}

	for _, ex := range exercises {
		if o.Modifications.Excludes(ex.ID) {
			add(ex, domain.ViolationExcludedExercise, "exercise is excluded for this player")
		}
		if o.Restriction != nil {
			if hit := restriction.Intersect(ex.MovementPatterns, o.Restriction.RestrictedMovements); len(hit) > 0 {
				add(ex, domain.ViolationRestrictedMovement, "restricted movements: "+strings.Join(hit, ", "))
			}
		}
		if maxExertion != nil && ex.DefaultIntensity > *maxExertion {
			add(ex, domain.ViolationExceedsExertion,
				fmt.Sprintf("intensity %.0f exceeds max exertion %.0f", ex.DefaultIntensity, *maxExertion))
		}
		if o.Restriction != nil && o.Restriction.RequiresSupervision && !ex.Supervised {
			add(ex, domain.ViolationUnsupervised, "restriction requires supervision")
		}
	}
	return out
}

// BulkCompliance checks sessions concurrently. A failing session is reported in place and
// does not abort the others.
func (s *complianceService) BulkCompliance(ctx context.Context, organizationID string, sessionIDs []primitive.ObjectID, detailed bool) (*BulkComplianceResult, error) {
	if len(sessionIDs) == 0 {
		return nil, &ValidationError{Fields: map[string]string{"sessionIds": "at least one session is required"}}
	}

	outcomes := make([]SessionCompliance, len(sessionIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bulkComplianceConcurrency)
	for i, id := range sessionIDs {
		i, id := i, id
		g.Go(func() error {
			outcomes[i].SessionID = id
			res, err := s.CheckCompliance(gctx, organizationID, id, "", detailed)
			if err != nil {
				outcomes[i].Error = err.Error()
				return nil
			}
			outcomes[i].Result = res
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bulk := &BulkComplianceResult{
		OverallStatus: domain.ComplianceNotApplicable,
		Sessions:      outcomes,
		CheckedAt:     time.Now().UTC(),
	}
	for _, o := range outcomes {
		if o.Result == nil {
			bulk.Failed++
			continue
		}
		bulk.OverallStatus = domain.MostSevere(bulk.OverallStatus, o.Result.OverallStatus)
	}
	return bulk, nil
}

// ArchiveBulkReport uploads the report to object storage and records its metadata.
func (s *complianceService) ArchiveBulkReport(ctx context.Context, organizationID, requestedBy string, result *BulkComplianceResult) (*domain.ComplianceReport, error) {
	if organizationID == "" || result == nil {
		return nil, &ValidationError{Fields: map[string]string{"organizationId": "organization and report are required"}}
	}

	body, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}

	// compliance-reports/<org>/<yyyy>/<mm>/<dd>/<uuid>.json
	objectKey := fmt.Sprintf("compliance-reports/%s/%s/%s.json",
		organizationID, result.CheckedAt.UTC().Format("2006/01/02"), uuid.NewString())
	const contentType = "application/json"

	if err := s.fileStorage.PutObject(ctx, objectKey, contentType, bytes.NewReader(body), int64(len(body))); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArchiveUnavailable, err)
	}

	sessionIDs := make([]primitive.ObjectID, 0, len(result.Sessions))
	for _, sc := range result.Sessions {
		sessionIDs = append(sessionIDs, sc.SessionID)
	}
	report := &domain.ComplianceReport{
		OrganizationID: organizationID,
		SessionIDs:     sessionIDs,
		OverallStatus:  result.OverallStatus,
		S3ObjectKey:    objectKey,
		ContentType:    contentType,
		Size:           int64(len(body)),
		RequestedBy:    requestedBy,
	}
	id, err := s.reportRepo.Create(ctx, report)
	if err != nil {
		// Keep storage and metadata consistent.
		if delErr := s.fileStorage.DeleteObject(ctx, objectKey); delErr != nil {
			s.log.Error("failed to clean up orphaned report object", zap.String("key", objectKey), zap.Error(delErr))
		}
		return nil, fmt.Errorf("save report metadata: %w", err)
	}
	report.ID = id

	s.attachDownloadURL(ctx, report)
	s.log.Info("compliance report archived", zap.String("reportId", id.Hex()), zap.Int64("size", report.Size))
	return report, nil
}

func (s *complianceService) GetReport(ctx context.Context, id primitive.ObjectID) (*domain.ComplianceReport, error) {
	report, err := s.reportRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}
	s.attachDownloadURL(ctx, report)
	return report, nil
}

func (s *complianceService) attachDownloadURL(ctx context.Context, report *domain.ComplianceReport) {
	url, err := s.fileStorage.GeneratePresignedDownloadURL(ctx, report.S3ObjectKey, storage.DefaultPresignedURLExpiry)
	if err != nil {
		s.log.Warn("failed to presign report download", zap.String("key", report.S3ObjectKey), zap.Error(err))
		return
	}
	report.DownloadURL = url
}

// InvalidatePlayer drops cached compliance results touched by the player's overrides.
func (s *complianceService) InvalidatePlayer(ctx context.Context, playerID string) {
	for _, pattern := range cache.CompliancePlayerPatterns(playerID) {
		if err := s.cache.DeletePattern(ctx, pattern); err != nil {
			s.log.Warn("compliance cache invalidation failed", zap.String("pattern", pattern), zap.Error(err))
		}
	}
}
