package service

import (
	"alcyxob/training-service/internal/domain"
	"alcyxob/training-service/internal/events"
	"alcyxob/training-service/internal/repository"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// SystemActor is recorded as approver for overrides that need no human sign-off.
const SystemActor = "system"

// PlayerChangeHook is called whenever an override affecting the player changes.
type PlayerChangeHook func(ctx context.Context, playerID string)

// CreateOverrideRequest describes an override to create (or refresh in place).
type CreateOverrideRequest struct {
	WorkoutAssignmentID primitive.ObjectID
	OrganizationID      string // when set, the assignment must belong to it
	PlayerID            string
	Type                domain.OverrideType
	EffectiveDate       time.Time
	ExpiryDate          *time.Time
	Modifications       domain.OverrideModifications
	MedicalRecordID     *string
	Restriction         *domain.RestrictionSnapshot
	Notes               string
	RequestedBy         string
	RequireApproval     bool
}

// UpdateOverrideRequest carries the mutable parts of an override. Nil fields are left alone.
type UpdateOverrideRequest struct {
	ExpiryDate    *time.Time
	Modifications *domain.OverrideModifications
	Notes         *string
}

// --- Service Interface ---
type OverrideService interface {
	CreateOverride(ctx context.Context, req CreateOverrideRequest) (*domain.WorkoutPlayerOverride, bool, error)
	UpdateOverride(ctx context.Context, id primitive.ObjectID, req UpdateOverrideRequest) (*domain.WorkoutPlayerOverride, error)
	GetOverride(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutPlayerOverride, error)
	FindOverrides(ctx context.Context, filter repository.OverrideFilter) ([]domain.WorkoutPlayerOverride, error)
	GetPlayerOverrides(ctx context.Context, playerID string, liveOnly bool) ([]domain.WorkoutPlayerOverride, error)
	ApproveOverride(ctx context.Context, id primitive.ObjectID, approver string) (*domain.WorkoutPlayerOverride, error)
	RejectOverride(ctx context.Context, id primitive.ObjectID, approver, reason string) (*domain.WorkoutPlayerOverride, error)
	ExpireOverride(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutPlayerOverride, error)
	ExpireDue(ctx context.Context, now time.Time) (int, error)
	ExpireByMedicalRecord(ctx context.Context, medicalRecordID string) (int, error)
	OnPlayerChange(hook PlayerChangeHook)
}

// --- Service Implementation ---

type overrideService struct {
	overrideRepo   repository.OverrideRepository
	assignmentRepo repository.AssignmentRepository
	publisher      *events.Publisher
	log            *zap.Logger

	mu    sync.RWMutex
	hooks []PlayerChangeHook
	now   func() time.Time
}

// NewOverrideService creates the medical override store.
func NewOverrideService(
	overrideRepo repository.OverrideRepository,
	assignmentRepo repository.AssignmentRepository,
	publisher *events.Publisher,
	log *zap.Logger,
) OverrideService {
	return &overrideService{
		overrideRepo:   overrideRepo,
		assignmentRepo: assignmentRepo,
		publisher:      publisher,
		log:            log.Named("overrides"),
		now:            func() time.Time { return time.Now().UTC() },
	}
}

func (s *overrideService) OnPlayerChange(hook PlayerChangeHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, hook)
}

func (s *overrideService) notify(ctx context.Context, playerID string) {
	s.mu.RLock()
	hooks := append([]PlayerChangeHook(nil), s.hooks...)
	s.mu.RUnlock()
	for _, h := range hooks {
		h(ctx, playerID)
	}
}

func validateCreateOverride(req CreateOverrideRequest) error {
	var v validator
	v.check(!req.WorkoutAssignmentID.IsZero(), "workoutAssignmentId", "is required")
	v.check(req.PlayerID != "", "playerId", "is required")
	v.check(req.Type.Valid(), "type", "must be one of medical, performance, scheduling, custom")
	v.check(!req.EffectiveDate.IsZero(), "effectiveDate", "is required")
	if req.ExpiryDate != nil && req.ExpiryDate.Before(req.EffectiveDate) {
		v.add("expiryDate", "must not be before effectiveDate")
	}
	if req.Type == domain.OverrideMedical && (req.MedicalRecordID == nil || *req.MedicalRecordID == "") {
		v.add("medicalRecordId", "is required for medical overrides")
	}
	validateModifications(&v, req.Modifications)
	return v.err()
}

func validateModifications(v *validator, m domain.OverrideModifications) {
	if m.LoadMultiplier != nil && *m.LoadMultiplier < 0 {
		v.add("modifications.loadMultiplier", "must not be negative")
	}
	if m.RestMultiplier != nil && *m.RestMultiplier < 0 {
		v.add("modifications.restMultiplier", "must not be negative")
	}
	if z := m.IntensityZone; z != nil {
		if z.MinPercent < 0 || z.MaxPercent > 100 || z.MinPercent > z.MaxPercent {
			v.add("modifications.intensityZone", "must satisfy 0 <= min <= max <= 100")
		}
	}
}

// initialStatus returns pending when a human must sign off.
func initialStatus(req CreateOverrideRequest) domain.OverrideStatus {
	if req.RequireApproval || (req.Restriction != nil && req.Restriction.RequiresSupervision) {
		return domain.OverridePending
	}
	return domain.OverrideApproved
}

// CreateOverride creates an override, or refreshes the live override already occupying the
// same (assignment, player, day). The boolean reports whether a new record was created.
func (s *overrideService) CreateOverride(ctx context.Context, req CreateOverrideRequest) (*domain.WorkoutPlayerOverride, bool, error) {
	if err := validateCreateOverride(req); err != nil {
		return nil, false, err
	}
	assignment, err := s.assignmentRepo.GetByID(ctx, req.WorkoutAssignmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, false, ErrAssignmentNotFound
		}
		return nil, false, err
	}
	if req.OrganizationID != "" && assignment.OrganizationID != req.OrganizationID {
		return nil, false, ErrAssignmentNotFound
	}
	req.OrganizationID = assignment.OrganizationID

	key := domain.OverrideKey{
		WorkoutAssignmentID: req.WorkoutAssignmentID,
		PlayerID:            req.PlayerID,
		EffectiveDate:       domain.StartOfDay(req.EffectiveDate),
	}
	existing, err := s.overrideRepo.GetByKey(ctx, key)
	switch {
	case err == nil:
		o, err := s.refresh(ctx, existing, req)
		return o, false, err
	case !errors.Is(err, repository.ErrNotFound):
		return nil, false, err
	}

	now := s.now()
	o := &domain.WorkoutPlayerOverride{
		WorkoutAssignmentID: req.WorkoutAssignmentID,
		PlayerID:            req.PlayerID,
		OrganizationID:      req.OrganizationID,
		Type:                req.Type,
		EffectiveDate:       req.EffectiveDate,
		ExpiryDate:          req.ExpiryDate,
		Modifications:       req.Modifications,
		MedicalRecordID:     req.MedicalRecordID,
		Restriction:         req.Restriction,
		Notes:               req.Notes,
		RequestedBy:         req.RequestedBy,
		RequestedAt:         now,
	}
	setInitialStatus(o, initialStatus(req), now)

	id, err := s.overrideRepo.Create(ctx, o)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Lost an insert race; the winner's row is refreshed instead.
			existing, getErr := s.overrideRepo.GetByKey(ctx, key)
			if getErr != nil {
				return nil, false, fmt.Errorf("reconcile duplicate override: %w", getErr)
			}
			o, err := s.refresh(ctx, existing, req)
			return o, false, err
		}
		return nil, false, err
	}
	o.ID = id

	s.log.Info("override created",
		zap.String("overrideId", id.Hex()),
		zap.String("playerId", o.PlayerID),
		zap.String("type", string(o.Type)),
		zap.String("status", string(o.Status)))
	s.publisher.Publish(ctx, events.TopicMedicalOverrideCreated, o)
	s.notify(ctx, o.PlayerID)
	return o, true, nil
}

func setInitialStatus(o *domain.WorkoutPlayerOverride, status domain.OverrideStatus, now time.Time) {
	o.Status = status
	o.ApprovedBy, o.ApprovedAt = nil, nil
	if status == domain.OverrideApproved {
		actor := SystemActor
		o.ApprovedBy = &actor
		o.ApprovedAt = &now
	}
}

// refresh rewrites an existing override with the requested content.
// Live overrides keep a human approval; expired ones are revived; rejected ones stay rejected.
func (s *overrideService) refresh(ctx context.Context, o *domain.WorkoutPlayerOverride, req CreateOverrideRequest) (*domain.WorkoutPlayerOverride, error) {
	if o.Status == domain.OverrideRejected {
		s.log.Debug("override previously rejected, leaving untouched", zap.String("overrideId", o.ID.Hex()))
		return o, nil
	}

	now := s.now()
	wanted := initialStatus(req)
	switch o.Status {
	case domain.OverrideExpired:
		o.RequestedAt = now
		o.RequestedBy = req.RequestedBy
		setInitialStatus(o, wanted, now)
	case domain.OverridePending:
		if wanted == domain.OverrideApproved {
			setInitialStatus(o, wanted, now)
		}
	}

	o.OrganizationID = req.OrganizationID
	o.Type = req.Type
	o.ExpiryDate = req.ExpiryDate
	o.Modifications = req.Modifications
	o.MedicalRecordID = req.MedicalRecordID
	o.Restriction = req.Restriction
	if req.Notes != "" {
		o.Notes = req.Notes
	}
	if err := s.overrideRepo.Update(ctx, o); err != nil {
		return nil, err
	}
	s.notify(ctx, o.PlayerID)
	return o, nil
}

func (s *overrideService) UpdateOverride(ctx context.Context, id primitive.ObjectID, req UpdateOverrideRequest) (*domain.WorkoutPlayerOverride, error) {
	o, err := s.GetOverride(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.Status.IsLive() {
		return nil, fmt.Errorf("%w: override is %s", ErrInvalidTransition, o.Status)
	}

	var v validator
	if req.ExpiryDate != nil && req.ExpiryDate.Before(o.EffectiveDate) {
		v.add("expiryDate", "must not be before effectiveDate")
	}
	if req.Modifications != nil {
		validateModifications(&v, *req.Modifications)
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	if req.ExpiryDate != nil {
		o.ExpiryDate = req.ExpiryDate
	}
	if req.Modifications != nil {
		o.Modifications = *req.Modifications
	}
	if req.Notes != nil {
		o.Notes = *req.Notes
	}
	if err := s.overrideRepo.Update(ctx, o); err != nil {
		return nil, err
	}
	s.notify(ctx, o.PlayerID)
	return o, nil
}

func (s *overrideService) GetOverride(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutPlayerOverride, error) {
	o, err := s.overrideRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOverrideNotFound
		}
		return nil, err
	}
	return o, nil
}

func (s *overrideService) FindOverrides(ctx context.Context, filter repository.OverrideFilter) ([]domain.WorkoutPlayerOverride, error) {
	return s.overrideRepo.Find(ctx, filter)
}

func (s *overrideService) GetPlayerOverrides(ctx context.Context, playerID string, liveOnly bool) ([]domain.WorkoutPlayerOverride, error) {
	filter := repository.OverrideFilter{PlayerIDs: []string{playerID}}
	if liveOnly {
		filter.Statuses = []domain.OverrideStatus{domain.OverridePending, domain.OverrideApproved}
	}
	return s.overrideRepo.Find(ctx, filter)
}

func (s *overrideService) ApproveOverride(ctx context.Context, id primitive.ObjectID, approver string) (*domain.WorkoutPlayerOverride, error) {
	return s.setStatus(ctx, id, domain.OverrideApproved, approver, "")
}

func (s *overrideService) RejectOverride(ctx context.Context, id primitive.ObjectID, approver, reason string) (*domain.WorkoutPlayerOverride, error) {
	return s.setStatus(ctx, id, domain.OverrideRejected, approver, reason)
}

func (s *overrideService) ExpireOverride(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutPlayerOverride, error) {
	return s.setStatus(ctx, id, domain.OverrideExpired, SystemActor, "")
}

// setStatus applies pending -> approved|rejected and live -> expired.
func (s *overrideService) setStatus(ctx context.Context, id primitive.ObjectID, next domain.OverrideStatus, actor, note string) (*domain.WorkoutPlayerOverride, error) {
	o, err := s.GetOverride(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, o, next, actor, note); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *overrideService) apply(ctx context.Context, o *domain.WorkoutPlayerOverride, next domain.OverrideStatus, actor, note string) error {
	allowed := false
	switch next {
	case domain.OverrideApproved, domain.OverrideRejected:
		allowed = o.Status == domain.OverridePending
	case domain.OverrideExpired:
		allowed = o.Status.IsLive()
	}
	if !allowed {
		return fmt.Errorf("%w: override %s -> %s", ErrInvalidTransition, o.Status, next)
	}

	now := s.now()
	o.Status = next
	if next != domain.OverrideExpired {
		o.ApprovedBy = &actor
		o.ApprovedAt = &now
	}
	if note != "" {
		if o.Notes != "" {
			o.Notes += "\n"
		}
		o.Notes += note
	}
	if err := s.overrideRepo.Update(ctx, o); err != nil {
		return err
	}
	s.log.Info("override status changed",
		zap.String("overrideId", o.ID.Hex()),
		zap.String("status", string(next)),
		zap.String("actor", actor))
	s.notify(ctx, o.PlayerID)
	return nil
}

// ExpireDue expires live overrides whose expiry date lies before now.
func (s *overrideService) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	live, err := s.overrideRepo.Find(ctx, repository.OverrideFilter{
		Statuses: []domain.OverrideStatus{domain.OverridePending, domain.OverrideApproved},
	})
	if err != nil {
		return 0, err
	}
	expired := 0
	for i := range live {
		o := &live[i]
		if o.ExpiryDate == nil || !o.ExpiryDate.Before(now) {
			continue
		}
		if err := s.apply(ctx, o, domain.OverrideExpired, SystemActor, ""); err != nil {
			s.log.Warn("failed to expire override", zap.String("overrideId", o.ID.Hex()), zap.Error(err))
			continue
		}
		expired++
	}
	return expired, nil
}

// ExpireByMedicalRecord expires every live override linked to a medical record.
func (s *overrideService) ExpireByMedicalRecord(ctx context.Context, medicalRecordID string) (int, error) {
	linked, err := s.overrideRepo.Find(ctx, repository.OverrideFilter{
		MedicalRecordID: &medicalRecordID,
		Statuses:        []domain.OverrideStatus{domain.OverridePending, domain.OverrideApproved},
	})
	if err != nil {
		return 0, err
	}
	expired := 0
	for i := range linked {
		if err := s.apply(ctx, &linked[i], domain.OverrideExpired, SystemActor, ""); err != nil {
			return expired, err
		}
		expired++
	}
	return expired, nil
}
