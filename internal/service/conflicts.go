package service

import (
	"alcyxob/training-service/internal/domain"
	"alcyxob/training-service/internal/repository"
	"alcyxob/training-service/internal/restriction"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// LoadLimits are optional ceilings on the summed planned load of a player.
type LoadLimits struct {
	DailyMax  *float64 `json:"dailyMax,omitempty"`
	WeeklyMax *float64 `json:"weeklyMax,omitempty"`
}

type ConflictCheckRequest struct {
	OrganizationID   string
	PlayerIDs        []string
	WorkoutSessionID primitive.ObjectID
	EffectiveDate    time.Time
	ExpiryDate       *time.Time
	Load             float64
	CheckMedical     bool
	LoadLimits       *LoadLimits
}

func (r ConflictCheckRequest) window() (time.Time, time.Time) {
	if r.ExpiryDate != nil {
		return r.EffectiveDate, *r.ExpiryDate
	}
	return r.EffectiveDate, domain.EndOfDay(r.EffectiveDate)
}

func (r ConflictCheckRequest) proposed() domain.ProposedAssignment {
	return domain.ProposedAssignment{
		WorkoutSessionID: r.WorkoutSessionID,
		EffectiveDate:    r.EffectiveDate,
		ExpiryDate:       r.ExpiryDate,
		Load:             r.Load,
	}
}

const (
	ExerciseStrategyUnion      = "union"
	ExerciseStrategyKeepTarget = "keep_target"
	DurationStrategySum        = "sum"
	DurationStrategyMax        = "max"
)

// MergeOptions must be stated explicitly; there is no default merge behavior.
type MergeOptions struct {
	ExerciseStrategy string `json:"exerciseStrategy"`
	DurationStrategy string `json:"durationStrategy"`
}

func (o *MergeOptions) validate() error {
	if o == nil || o.ExerciseStrategy == "" || o.DurationStrategy == "" {
		return ErrMergeOptionsRequired
	}
	var v validator
	v.check(o.ExerciseStrategy == ExerciseStrategyUnion || o.ExerciseStrategy == ExerciseStrategyKeepTarget,
		"mergeOptions.exerciseStrategy", "must be union or keep_target")
	v.check(o.DurationStrategy == DurationStrategySum || o.DurationStrategy == DurationStrategyMax,
		"mergeOptions.durationStrategy", "must be sum or max")
	return v.err()
}

// ResolveConflictRequest acts on AssignmentID with exactly one action. Every record it
// touches must belong to OrganizationID.
type ResolveConflictRequest struct {
	Action         domain.ResolutionAction
	OrganizationID string
	AssignmentID   primitive.ObjectID
	Actor          string

	// reschedule
	NewEffectiveDate *time.Time

	// merge: the source is either a stored assignment (cancelled afterwards) or a bare session.
	SourceAssignmentID *primitive.ObjectID
	SourceSessionID    *primitive.ObjectID
	MergeOptions       *MergeOptions

	// override
	PlayerIDs []string
	Reason    string
}

type ResolveConflictResult struct {
	Action     domain.ResolutionAction        `json:"action"`
	Assignment *domain.WorkoutAssignment      `json:"assignment"`
	Cancelled  []primitive.ObjectID           `json:"cancelled,omitempty"`
	Session    *domain.WorkoutSession         `json:"mergedSession,omitempty"`
	Overrides  []domain.WorkoutPlayerOverride `json:"overrides,omitempty"`
}

// CheckConflicts reports scheduling conflicts for every player, plus medical and load-limit
// conflicts when requested. An empty result means the proposal can be committed.
func (s *assignmentService) CheckConflicts(ctx context.Context, req ConflictCheckRequest) ([]domain.ConflictInfo, error) {
	var v validator
	v.check(len(req.PlayerIDs) > 0, "playerIds", "at least one player is required")
	v.check(!req.EffectiveDate.IsZero(), "effectiveDate", "is required")
	if req.ExpiryDate != nil && req.ExpiryDate.Before(req.EffectiveDate) {
		v.add("expiryDate", "must not be before effectiveDate")
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	conflicts := []domain.ConflictInfo{}
	for _, playerID := range req.PlayerIDs {
		found, err := s.playerConflicts(ctx, req, playerID)
		if err != nil {
			return nil, fmt.Errorf("check conflicts for %s: %w", playerID, err)
		}
		conflicts = append(conflicts, found...)
	}
	return conflicts, nil
}

func (s *assignmentService) playerConflicts(ctx context.Context, req ConflictCheckRequest, playerID string) ([]domain.ConflictInfo, error) {
	var out []domain.ConflictInfo
	proposed := req.proposed()
	newConflict := func(t domain.ConflictType, sev domain.ConflictSeverity, msg string, actions ...domain.ResolutionAction) domain.ConflictInfo {
		return domain.ConflictInfo{
			ID:          uuid.NewString(),
			Type:        t,
			Severity:    sev,
			PlayerID:    playerID,
			Proposed:    proposed,
			Message:     msg,
			Resolutions: actions,
		}
	}

	start, end := req.window()
	existing, err := s.openAssignments(ctx, req.OrganizationID, playerID, start, end)
	if err != nil {
		return nil, err
	}
	for i := range existing {
		e := existing[i]
		if e.WorkoutSessionID == req.WorkoutSessionID && domain.StartOfDay(e.EffectiveDate).Equal(domain.StartOfDay(req.EffectiveDate)) {
			c := newConflict(domain.ConflictDuplicate, domain.ConflictHigh,
				"player already has this session on the same day",
				domain.ResolveCancel, domain.ResolveReschedule)
			c.ExistingAssignment = &e
			out = append(out, c)
			continue
		}
		sev := domain.ConflictMedium
		if e.Priority >= 8 {
			sev = domain.ConflictHigh
		}
		c := newConflict(domain.ConflictScheduling, sev,
			fmt.Sprintf("overlaps assignment %s", e.ID.Hex()),
			domain.ResolveCancel, domain.ResolveReschedule, domain.ResolveMerge, domain.ResolveOverride)
		c.ExistingAssignment = &e
		out = append(out, c)
	}

	if req.CheckMedical {
		medical, err := s.medicalConflicts(ctx, playerID, start, end)
		if err != nil {
			return nil, err
		}
		for _, m := range medical {
			m := m
			c := newConflict(domain.ConflictMedical, m.severity, m.message, domain.ResolveReschedule)
			c.ExistingAssignment = m.assignment
			c.ExistingOverrideID = &m.overrideID
			out = append(out, c)
		}
	}

	if req.LoadLimits != nil {
		loadConflicts, err := s.loadConflicts(ctx, req, playerID)
		if err != nil {
			return nil, err
		}
		for _, lc := range loadConflicts {
			out = append(out, newConflict(domain.ConflictLoadLimit, lc.severity, lc.message,
				domain.ResolveReschedule, domain.ResolveCancel, domain.ResolveOverride))
		}
	}
	return out, nil
}

// openAssignments lists the player's draft/active assignments in the window, minus those
// covered by an approved scheduling exemption.
func (s *assignmentService) openAssignments(ctx context.Context, orgID, playerID string, from, to time.Time) ([]domain.WorkoutAssignment, error) {
	found, err := s.assignmentRepo.Find(ctx, repository.AssignmentFilter{
		PlayerIDs:      []string{playerID},
		OrganizationID: orgID,
		Statuses:       []domain.AssignmentStatus{domain.StatusDraft, domain.StatusActive},
		From:           &from,
		To:             &to,
		ExcludeParents: true,
	})
	if err != nil || len(found) == 0 {
		return found, err
	}

	ids := make([]primitive.ObjectID, 0, len(found))
	for _, a := range found {
		ids = append(ids, a.ID)
	}
	exemptions, err := s.overrideRepo.Find(ctx, repository.OverrideFilter{
		AssignmentIDs: ids,
		PlayerIDs:     []string{playerID},
		Statuses:      []domain.OverrideStatus{domain.OverrideApproved},
		Types:         []domain.OverrideType{domain.OverrideScheduling},
	})
	if err != nil {
		return nil, err
	}
	exempt := make(map[primitive.ObjectID]bool)
	for _, o := range exemptions {
		if o.Modifications.Exempt {
			exempt[o.WorkoutAssignmentID] = true
		}
	}
	out := found[:0]
	for _, a := range found {
		if !exempt[a.ID] {
			out = append(out, a)
		}
	}
	return out, nil
}

type medicalHit struct {
	overrideID primitive.ObjectID
	assignment *domain.WorkoutAssignment
	severity   domain.ConflictSeverity
	message    string
}

func (s *assignmentService) medicalConflicts(ctx context.Context, playerID string, from, to time.Time) ([]medicalHit, error) {
	overrides, err := s.overrideRepo.Find(ctx, repository.OverrideFilter{
		PlayerIDs: []string{playerID},
		Statuses:  []domain.OverrideStatus{domain.OverrideApproved},
		Types:     []domain.OverrideType{domain.OverrideMedical},
		From:      &from,
		To:        &to,
	})
	if err != nil {
		return nil, err
	}
	var out []medicalHit
	for _, o := range overrides {
		if !o.Modifications.Exempt {
			continue
		}
		hit := medicalHit{overrideID: o.ID, severity: domain.ConflictHigh, message: "player is medically exempt in this window"}
		if o.Restriction != nil {
			hit.severity = restriction.PriorityFor(o.Restriction.Severity)
		}
		if a, err := s.assignmentRepo.GetByID(ctx, o.WorkoutAssignmentID); err == nil {
			hit.assignment = a
		}
		out = append(out, hit)
	}
	return out, nil
}

type loadHit struct {
	severity domain.ConflictSeverity
	message  string
}

func (s *assignmentService) loadConflicts(ctx context.Context, req ConflictCheckRequest, playerID string) ([]loadHit, error) {
	var out []loadHit
	check := func(label string, limit *float64, from, to time.Time) error {
		if limit == nil {
			return nil
		}
		existing, err := s.openAssignments(ctx, req.OrganizationID, playerID, from, to)
		if err != nil {
			return err
		}
		total := req.Load
		for _, a := range existing {
			total += a.Load()
		}
		if total <= *limit {
			return nil
		}
		sev := domain.ConflictMedium
		if total > *limit*1.2 {
			sev = domain.ConflictHigh
		}
		out = append(out, loadHit{
			severity: sev,
			message:  fmt.Sprintf("%s load %.1f exceeds limit %.1f", label, total, *limit),
		})
		return nil
	}

	if err := check("daily", req.LoadLimits.DailyMax, domain.StartOfDay(req.EffectiveDate), domain.EndOfDay(req.EffectiveDate)); err != nil {
		return nil, err
	}
	weekStart, weekEnd := domain.WeekBounds(req.EffectiveDate)
	if err := check("weekly", req.LoadLimits.WeeklyMax, weekStart, weekEnd); err != nil {
		return nil, err
	}
	return out, nil
}

func validateResolution(req ResolveConflictRequest) error {
	var v validator
	v.check(req.OrganizationID != "", "organizationId", "is required")
	v.check(!req.AssignmentID.IsZero(), "assignmentId", "is required")
	switch req.Action {
	case domain.ResolveCancel:
	case domain.ResolveReschedule:
		v.check(req.NewEffectiveDate != nil && !req.NewEffectiveDate.IsZero(), "newEffectiveDate", "is required to reschedule")
	case domain.ResolveMerge:
		v.check((req.SourceAssignmentID == nil) != (req.SourceSessionID == nil),
			"source", "exactly one of sourceAssignmentId or sourceSessionId is required")
		if err := v.err(); err != nil {
			return err
		}
		return req.MergeOptions.validate()
	case domain.ResolveOverride:
		v.check(len(req.PlayerIDs) > 0, "playerIds", "at least one player is required")
	default:
		v.add("action", "must be one of cancel, reschedule, merge, override")
	}
	return v.err()
}

// ResolveConflict applies exactly one resolution to the existing assignment.
func (s *assignmentService) ResolveConflict(ctx context.Context, req ResolveConflictRequest) (*ResolveConflictResult, error) {
	if err := validateResolution(req); err != nil {
		return nil, err
	}
	target, err := s.GetAssignment(ctx, req.AssignmentID)
	if err != nil {
		return nil, err
	}
	if target.OrganizationID != req.OrganizationID {
		return nil, ErrAssignmentNotFound
	}
	result := &ResolveConflictResult{Action: req.Action}

	switch req.Action {
	case domain.ResolveCancel:
		a, err := s.transition(ctx, target, domain.StatusCancelled, req.Actor)
		if err != nil {
			return nil, err
		}
		result.Assignment = a
		result.Cancelled = []primitive.ObjectID{a.ID}

	case domain.ResolveReschedule:
		a, err := s.reschedule(ctx, target, *req.NewEffectiveDate)
		if err != nil {
			return nil, err
		}
		result.Assignment = a

	case domain.ResolveMerge:
		var source *domain.WorkoutAssignment
		sourceSession := primitive.NilObjectID
		if req.SourceAssignmentID != nil {
			source, err = s.GetAssignment(ctx, *req.SourceAssignmentID)
			if err != nil {
				return nil, err
			}
			if source.OrganizationID != req.OrganizationID {
				return nil, ErrAssignmentNotFound
			}
			if source.ID == target.ID {
				return nil, &ValidationError{Fields: map[string]string{"sourceAssignmentId": "must differ from the target"}}
			}
			sourceSession = source.WorkoutSessionID
		} else {
			sourceSession = *req.SourceSessionID
		}
		a, session, err := s.mergeSession(ctx, target, sourceSession, source, *req.MergeOptions, req.Actor)
		if err != nil {
			return nil, err
		}
		result.Assignment, result.Session = a, session
		if source != nil {
			result.Cancelled = []primitive.ObjectID{source.ID}
		}

	case domain.ResolveOverride:
		if !target.Status.IsOpen() {
			return nil, fmt.Errorf("%w: assignment is %s", ErrInvalidTransition, target.Status)
		}
		reason := req.Reason
		if reason == "" {
			reason = "scheduling conflict resolved by override"
		}
		for _, playerID := range req.PlayerIDs {
			o, _, err := s.overrides.CreateOverride(ctx, CreateOverrideRequest{
				WorkoutAssignmentID: target.ID,
				OrganizationID:      target.OrganizationID,
				PlayerID:            playerID,
				Type:                domain.OverrideScheduling,
				EffectiveDate:       target.EffectiveDate,
				ExpiryDate:          target.ExpiryDate,
				Modifications:       domain.OverrideModifications{Exempt: true, ExemptionReason: reason},
				Notes:               reason,
				RequestedBy:         req.Actor,
			})
			if err != nil {
				return nil, err
			}
			result.Overrides = append(result.Overrides, *o)
		}
		result.Assignment = target
	}

	s.log.Info("conflict resolved",
		zap.String("action", string(req.Action)),
		zap.String("assignmentId", target.ID.Hex()),
		zap.String("actor", req.Actor))
	return result, nil
}

// reschedule moves the assignment to a new day, keeping its window length.
func (s *assignmentService) reschedule(ctx context.Context, a *domain.WorkoutAssignment, newDate time.Time) (*domain.WorkoutAssignment, error) {
	if !a.Status.IsOpen() {
		return nil, fmt.Errorf("%w: cannot reschedule a %s assignment", ErrInvalidTransition, a.Status)
	}
	shift := newDate.Sub(a.EffectiveDate)
	a.EffectiveDate = newDate
	if a.ExpiryDate != nil {
		moved := a.ExpiryDate.Add(shift)
		a.ExpiryDate = &moved
	}
	a.ScheduledDate = a.ScheduledDate.Add(shift)
	if err := s.assignmentRepo.Update(ctx, a); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAssignmentExists
		}
		return nil, err
	}
	s.InvalidatePlayer(ctx, a.PlayerID)
	return a, nil
}

// mergeSession combines the target's session with another into a new session, re-points the
// target at it and records the merge. A stored source assignment is cancelled.
func (s *assignmentService) mergeSession(
	ctx context.Context,
	target *domain.WorkoutAssignment,
	sourceSessionID primitive.ObjectID,
	source *domain.WorkoutAssignment,
	opts MergeOptions,
	actor string,
) (*domain.WorkoutAssignment, *domain.WorkoutSession, error) {
	if !target.Status.IsOpen() {
		return nil, nil, fmt.Errorf("%w: cannot merge into a %s assignment", ErrInvalidTransition, target.Status)
	}
	if source != nil && (!source.Status.IsOpen() || source.PlayerID != target.PlayerID) {
		return nil, nil, &ValidationError{Fields: map[string]string{"sourceAssignmentId": "must be an open assignment of the same player"}}
	}
	targetSession, err := s.getSession(ctx, target.WorkoutSessionID)
	if err != nil {
		return nil, nil, err
	}
	sourceSession, err := s.getSession(ctx, sourceSessionID)
	if err != nil {
		return nil, nil, err
	}
	if sourceSession.OrganizationID != target.OrganizationID {
		return nil, nil, ErrSessionNotFound
	}

	merged := combineSessions(targetSession, sourceSession, opts)
	merged.CreatedBy = actor
	if _, err := s.sessionRepo.Create(ctx, merged); err != nil {
		return nil, nil, fmt.Errorf("create merged session: %w", err)
	}

	previous := target.WorkoutSessionID
	target.WorkoutSessionID = merged.ID
	sourceID := primitive.NilObjectID
	if source != nil {
		sourceID = source.ID
	}
	target.Metadata.Append(domain.AdjustmentEntry{
		Kind:      domain.AdjustmentMerge,
		AppliedAt: s.now(),
		Merge: &domain.MergeRecord{
			SourceAssignmentID: sourceID,
			PreviousSessionID:  previous,
			MergedSessionID:    merged.ID,
			ExerciseStrategy:   opts.ExerciseStrategy,
			DurationStrategy:   opts.DurationStrategy,
		},
	})
	if err := s.assignmentRepo.Update(ctx, target); err != nil {
		return nil, nil, err
	}
	s.InvalidatePlayer(ctx, target.PlayerID)

	if source != nil {
		if _, err := s.transition(ctx, source, domain.StatusCancelled, actor); err != nil {
			return nil, nil, fmt.Errorf("cancel merged source: %w", err)
		}
	}
	return target, merged, nil
}

func combineSessions(target, source *domain.WorkoutSession, opts MergeOptions) *domain.WorkoutSession {
	merged := &domain.WorkoutSession{
		OrganizationID: target.OrganizationID,
		TeamID:         target.TeamID,
		WorkoutTypeID:  target.WorkoutTypeID,
		Name:           target.Name + " + " + source.Name,
		ScheduledDate:  target.ScheduledDate,
		Notes:          target.Notes,
	}

	merged.Exercises = append([]domain.SessionExercise(nil), target.Exercises...)
	if opts.ExerciseStrategy == ExerciseStrategyUnion {
		seen := make(map[primitive.ObjectID]bool, len(target.Exercises))
		for _, e := range target.Exercises {
			seen[e.ExerciseID] = true
		}
		for _, e := range source.Exercises {
			if !seen[e.ExerciseID] {
				seen[e.ExerciseID] = true
				merged.Exercises = append(merged.Exercises, e)
			}
		}
	}
	for i := range merged.Exercises {
		merged.Exercises[i].Sequence = i + 1
	}

	switch opts.DurationStrategy {
	case DurationStrategySum:
		merged.DurationMinutes = target.DurationMinutes + source.DurationMinutes
		merged.EstimatedLoad = target.EstimatedLoad + source.EstimatedLoad
	default:
		merged.DurationMinutes = max(target.DurationMinutes, source.DurationMinutes)
		merged.EstimatedLoad = max(target.EstimatedLoad, source.EstimatedLoad)
	}
	return merged
}
