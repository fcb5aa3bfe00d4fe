package service

import (
	"alcyxob/training-service/internal/client"
	"alcyxob/training-service/internal/domain"
	"alcyxob/training-service/internal/events"
	"alcyxob/training-service/internal/repository"
	"alcyxob/training-service/internal/restriction"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// MedicalSyncActor is recorded as requester on overrides mirrored from the medical service.
const MedicalSyncActor = "medical-sync"

// SyncRequest scopes a medical restriction sync. At least one of the fields should be set.
type SyncRequest struct {
	OrganizationID string     `json:"organizationId"`
	TeamID         string     `json:"teamId,omitempty"`
	PlayerIDs      []string   `json:"playerIds,omitempty"`
	FromDate       *time.Time `json:"fromDate,omitempty"`
}

// SyncResult summarises one reconciliation pass.
type SyncResult struct {
	PlayersProcessed int             `json:"playersProcessed"`
	OverridesCreated int             `json:"overridesCreated"`
	OverridesUpdated int             `json:"overridesUpdated"`
	OverridesExpired int             `json:"overridesExpired"`
	Failed           int             `json:"failed"`
	Failures         []PlayerFailure `json:"failures,omitempty"`
	SyncedAt         time.Time       `json:"syncedAt"`
}

// AlternativesRequest asks for substitutes of one exercise. Restrictions default to the
// player's active restrictions when omitted.
type AlternativesRequest struct {
	OrganizationID string // when set, the exercise must belong to it
	ExerciseID     primitive.ObjectID
	PlayerID       string
	Restrictions   []domain.MedicalRestriction
}

// --- Service Interface ---
type MedicalSyncService interface {
	SyncMedicalRestrictions(ctx context.Context, req SyncRequest) (*SyncResult, error)
	HandleRestrictionCleared(ctx context.Context, restrictionID, playerID, organizationID string) (*SyncResult, error)
	ReportConcern(ctx context.Context, concern client.Concern) (*client.ConcernAck, error)
	FindAlternatives(ctx context.Context, req AlternativesRequest) (*restriction.AlternativeResult, error)
}

// --- Service Implementation ---

type medicalSyncService struct {
	medical        client.MedicalClient
	overrides      OverrideService
	assignmentRepo repository.AssignmentRepository
	sessionRepo    repository.SessionRepository
	exerciseRepo   repository.ExerciseRepository
	finder         *restriction.Finder
	publisher      *events.Publisher
	log            *zap.Logger
}

// NewMedicalSyncService creates the one-way mirror from medical restrictions to overrides.
func NewMedicalSyncService(
	medical client.MedicalClient,
	overrides OverrideService,
	assignmentRepo repository.AssignmentRepository,
	sessionRepo repository.SessionRepository,
	exerciseRepo repository.ExerciseRepository,
	finder *restriction.Finder,
	publisher *events.Publisher,
	log *zap.Logger,
) MedicalSyncService {
	return &medicalSyncService{
		medical:        medical,
		overrides:      overrides,
		assignmentRepo: assignmentRepo,
		sessionRepo:    sessionRepo,
		exerciseRepo:   exerciseRepo,
		finder:         finder,
		publisher:      publisher,
		log:            log.Named("medical-sync"),
	}
}

// SyncMedicalRestrictions mirrors the medical service's restrictions onto overrides.
// Running it twice with unchanged restrictions leaves the override store unchanged.
func (s *medicalSyncService) SyncMedicalRestrictions(ctx context.Context, req SyncRequest) (*SyncResult, error) {
	if req.OrganizationID == "" && req.TeamID == "" && len(req.PlayerIDs) == 0 {
		return nil, &ValidationError{Fields: map[string]string{"organizationId": "organization, team or players required"}}
	}

	restrictions, err := s.medical.GetRestrictions(ctx, client.RestrictionQuery{
		OrganizationID: req.OrganizationID,
		TeamID:         req.TeamID,
		PlayerIDs:      req.PlayerIDs,
		FromDate:       req.FromDate,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch restrictions: %w", err)
	}

	byPlayer := make(map[string][]domain.MedicalRestriction)
	for _, r := range restrictions {
		if r.PlayerID == "" {
			continue
		}
		byPlayer[r.PlayerID] = append(byPlayer[r.PlayerID], r)
	}
	players := make([]string, 0, len(byPlayer))
	for p := range byPlayer {
		players = append(players, p)
	}
	sort.Strings(players)

	result := &SyncResult{}
	sessions := make(map[primitive.ObjectID][]domain.Exercise)
	for _, playerID := range players {
		if err := s.syncPlayer(ctx, req.OrganizationID, playerID, byPlayer[playerID], sessions, result); err != nil {
			s.log.Warn("medical sync failed for player", zap.String("playerId", playerID), zap.Error(err))
			result.Failed++
			result.Failures = append(result.Failures, PlayerFailure{PlayerID: playerID, Error: err.Error()})
			continue
		}
		result.PlayersProcessed++
	}
	result.SyncedAt = time.Now().UTC()

	s.log.Info("medical sync completed",
		zap.Int("players", result.PlayersProcessed),
		zap.Int("created", result.OverridesCreated),
		zap.Int("updated", result.OverridesUpdated),
		zap.Int("expired", result.OverridesExpired),
		zap.Int("failed", result.Failed))
	s.publisher.Publish(ctx, events.TopicMedicalSyncCompleted, result)
	return result, nil
}

func (s *medicalSyncService) syncPlayer(
	ctx context.Context,
	orgID, playerID string,
	restrictions []domain.MedicalRestriction,
	sessions map[primitive.ObjectID][]domain.Exercise,
	result *SyncResult,
) error {
	// Lifted records go first so a remaining active restriction can revive the same override.
	var active []domain.MedicalRestriction
	for _, r := range restrictions {
		switch {
		case r.IsLifted():
			n, err := s.overrides.ExpireByMedicalRecord(ctx, r.ID)
			result.OverridesExpired += n
			if err != nil {
				return fmt.Errorf("expire overrides for %s: %w", r.ID, err)
			}
		case r.IsActive():
			active = append(active, r)
		}
	}
	if len(active) == 0 {
		return nil
	}

	combined := restriction.Combine(active)
	from := domain.StartOfDay(combined.EffectiveDate)
	assignments, err := s.assignmentRepo.Find(ctx, repository.AssignmentFilter{
		PlayerIDs:      []string{playerID},
		OrganizationID: orgID,
		Statuses:       []domain.AssignmentStatus{domain.StatusDraft, domain.StatusActive},
		From:           &from,
		To:             combined.ExpiryDate,
		ExcludeParents: true,
	})
	if err != nil {
		return fmt.Errorf("load assignments: %w", err)
	}

	for i := range assignments {
		a := &assignments[i]
		start, end := a.Window()
		var applicable []domain.MedicalRestriction
		for _, r := range active {
			if domain.WindowsOverlap(domain.StartOfDay(r.EffectiveDate), r.ExpiryDate, start, &end) {
				applicable = append(applicable, r)
			}
		}
		if len(applicable) == 0 {
			continue
		}

		exercises, err := s.sessionExercises(ctx, a.WorkoutSessionID, sessions)
		if err != nil {
			return err
		}
		req := medicalOverrideFor(a, applicable, exercises)
		_, created, err := s.overrides.CreateOverride(ctx, req)
		if err != nil {
			return fmt.Errorf("upsert override for assignment %s: %w", a.ID.Hex(), err)
		}
		if created {
			result.OverridesCreated++
		} else {
			result.OverridesUpdated++
		}
	}
	return nil
}

// medicalOverrideFor builds the override mirroring restrictions onto one assignment.
func medicalOverrideFor(a *domain.WorkoutAssignment, restrictions []domain.MedicalRestriction, exercises []domain.Exercise) CreateOverrideRequest {
	combined := restriction.Combine(restrictions)
	snapshot := combined.Snapshot()

	// The most severe restriction is the record the override is linked to.
	primary := restrictions[0]
	for _, r := range restrictions[1:] {
		if r.Severity.Rank() > primary.Severity.Rank() {
			primary = r
		}
	}
	recordID := primary.ID

	load, rest := combined.LoadMultiplier, combined.RestMultiplier
	mods := domain.OverrideModifications{
		LoadMultiplier: &load,
		RestMultiplier: &rest,
	}
	excluded := restriction.ExclusionSet(exercises, restrictions)
	for id := range excluded {
		mods.ExcludedExercises = append(mods.ExcludedExercises, id)
	}
	sort.Slice(mods.ExcludedExercises, func(i, j int) bool {
		return mods.ExcludedExercises[i].Hex() < mods.ExcludedExercises[j].Hex()
	})
	if combined.MaxExertion != nil {
		mods.IntensityZone = &domain.IntensityZone{MinPercent: 0, MaxPercent: *combined.MaxExertion}
	}
	if combined.Severity == domain.SeverityComplete {
		mods.Exempt = true
		mods.ExemptionReason = "complete medical restriction"
	}

	ids := append([]string(nil), combined.RestrictionIDs...)
	sort.Strings(ids)
	return CreateOverrideRequest{
		WorkoutAssignmentID: a.ID,
		PlayerID:            a.PlayerID,
		Type:                domain.OverrideMedical,
		EffectiveDate:       a.EffectiveDate,
		ExpiryDate:          combined.ExpiryDate,
		Modifications:       mods,
		MedicalRecordID:     &recordID,
		Restriction:         &snapshot,
		Notes:               "mirrored from medical restrictions " + strings.Join(ids, ", "),
		RequestedBy:         MedicalSyncActor,
	}
}

func (s *medicalSyncService) sessionExercises(ctx context.Context, sessionID primitive.ObjectID, memo map[primitive.ObjectID][]domain.Exercise) ([]domain.Exercise, error) {
	if exercises, ok := memo[sessionID]; ok {
		return exercises, nil
	}
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID.Hex())
		}
		return nil, err
	}
	exercises, err := s.exerciseRepo.GetByIDs(ctx, session.ExerciseIDs())
	if err != nil {
		return nil, fmt.Errorf("load session exercises: %w", err)
	}
	memo[sessionID] = exercises
	return exercises, nil
}

// HandleRestrictionCleared expires overrides linked to the record, then re-syncs the
// player so other active restrictions stay mirrored.
func (s *medicalSyncService) HandleRestrictionCleared(ctx context.Context, restrictionID, playerID, organizationID string) (*SyncResult, error) {
	expired, err := s.overrides.ExpireByMedicalRecord(ctx, restrictionID)
	if err != nil {
		return nil, err
	}
	if playerID == "" {
		return &SyncResult{OverridesExpired: expired, SyncedAt: time.Now().UTC()}, nil
	}
	result, err := s.SyncMedicalRestrictions(ctx, SyncRequest{OrganizationID: organizationID, PlayerIDs: []string{playerID}})
	if err != nil {
		return nil, err
	}
	result.OverridesExpired += expired
	return result, nil
}

func (s *medicalSyncService) ReportConcern(ctx context.Context, concern client.Concern) (*client.ConcernAck, error) {
	var v validator
	v.check(concern.PlayerID != "", "playerId", "is required")
	v.check(concern.Description != "", "description", "is required")
	if err := v.err(); err != nil {
		return nil, err
	}
	if concern.OccurredAt == nil {
		now := time.Now().UTC()
		concern.OccurredAt = &now
	}

	ack, err := s.medical.ReportConcern(ctx, concern)
	if err != nil {
		return nil, fmt.Errorf("report concern: %w", err)
	}
	s.publisher.Publish(ctx, events.TopicInjuryReported, map[string]interface{}{
		"concernId":      ack.ID,
		"playerId":       concern.PlayerID,
		"organizationId": concern.OrganizationID,
		"bodyPart":       concern.BodyPart,
		"severity":       concern.Severity,
		"reportedBy":     concern.ReportedBy,
	})
	return ack, nil
}

func (s *medicalSyncService) FindAlternatives(ctx context.Context, req AlternativesRequest) (*restriction.AlternativeResult, error) {
	original, err := s.exerciseRepo.GetByID(ctx, req.ExerciseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExerciseNotFound
		}
		return nil, err
	}
	if req.OrganizationID != "" && original.OrganizationID != req.OrganizationID {
		return nil, ErrExerciseNotFound
	}
	restrictions := req.Restrictions
	if restrictions == nil && req.PlayerID != "" {
		restrictions, err = s.medical.GetPlayerRestrictions(ctx, req.PlayerID)
		if err != nil {
			return nil, fmt.Errorf("fetch player restrictions: %w", err)
		}
	}
	return s.finder.FindAlternatives(ctx, *original, restrictions)
}
