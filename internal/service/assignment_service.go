package service

import (
	"alcyxob/training-service/internal/cache"
	"alcyxob/training-service/internal/client"
	"alcyxob/training-service/internal/domain"
	"alcyxob/training-service/internal/events"
	"alcyxob/training-service/internal/repository"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Completed-workout counts that publish a milestone event.
var completionMilestones = []int{10, 25, 50, 100, 250, 500}

// AssignmentSpec holds the fields shared by every assignment a request creates.
type AssignmentSpec struct {
	WorkoutSessionID      primitive.ObjectID            `json:"workoutSessionId"`
	OrganizationID        string                        `json:"organizationId"`
	TeamID                string                        `json:"teamId,omitempty"`
	Type                  domain.AssignmentType         `json:"type,omitempty"`
	EffectiveDate         time.Time                     `json:"effectiveDate"`
	ExpiryDate            *time.Time                    `json:"expiryDate,omitempty"`
	ScheduledDate         *time.Time                    `json:"scheduledDate,omitempty"`
	RecurrenceType        domain.RecurrenceType         `json:"recurrenceType,omitempty"`
	RecurrencePattern     *domain.RecurrencePattern     `json:"recurrencePattern,omitempty"`
	LoadProgression       *domain.LoadProgression       `json:"loadProgression,omitempty"`
	PerformanceThresholds *domain.PerformanceThresholds `json:"performanceThresholds,omitempty"`
	Priority              int                           `json:"priority"`
	Notes                 string                        `json:"notes,omitempty"`
	CreatedBy             string                        `json:"createdBy,omitempty"`
	// Draft creates assignments in draft instead of active.
	Draft bool `json:"draft,omitempty"`
}

type CreateAssignmentRequest struct {
	AssignmentSpec
	PlayerID     string
	CheckMedical bool
	LoadLimits   *LoadLimits
}

type BulkAssignRequest struct {
	AssignmentSpec
	Target       domain.AssignmentTarget
	CheckMedical bool
	LoadLimits   *LoadLimits
}

type BulkAssignResult struct {
	TargetPlayers   int                        `json:"targetPlayers"`
	Created         []domain.WorkoutAssignment `json:"created"`
	Conflicts       []domain.ConflictInfo      `json:"conflicts"`
	AlreadyExisting []string                   `json:"alreadyExisting,omitempty"`
	Failed          []PlayerFailure            `json:"failed,omitempty"`
}

// ConflictPolicy decides what cascade does with a player's existing same-day assignment.
type ConflictPolicy string

const (
	PolicySkip    ConflictPolicy = "skip"
	PolicyReplace ConflictPolicy = "replace"
	PolicyMerge   ConflictPolicy = "merge"
)

type CascadeAssignRequest struct {
	AssignmentSpec
	RootTeamID                 string
	IncludeSubTeams            bool
	ExcludeTeamIDs             []string
	ExcludePlayerIDs           []string
	Lines                      []string
	Positions                  []string
	RespectExistingAssignments bool
	ConflictPolicy             ConflictPolicy
	MergeOptions               *MergeOptions
}

type CascadeAssignResult struct {
	Parent          *domain.WorkoutAssignment  `json:"parent"`
	TeamIDs         []string                   `json:"teamIds"`
	Created         []domain.WorkoutAssignment `json:"created"`
	Skipped         []string                   `json:"skipped,omitempty"`
	Replaced        []primitive.ObjectID       `json:"replaced,omitempty"`
	Merged          []domain.WorkoutAssignment `json:"merged,omitempty"`
	AlreadyExisting []string                   `json:"alreadyExisting,omitempty"`
	Failed          []PlayerFailure            `json:"failed,omitempty"`
}

// --- Service Interface ---
type AssignmentService interface {
	CreateAssignment(ctx context.Context, req CreateAssignmentRequest) (*domain.WorkoutAssignment, error)
	GetAssignment(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutAssignment, error)
	BulkAssign(ctx context.Context, req BulkAssignRequest) (*BulkAssignResult, error)
	CascadeAssign(ctx context.Context, req CascadeAssignRequest) (*CascadeAssignResult, error)
	CheckConflicts(ctx context.Context, req ConflictCheckRequest) ([]domain.ConflictInfo, error)
	ResolveConflict(ctx context.Context, req ResolveConflictRequest) (*ResolveConflictResult, error)
	Transition(ctx context.Context, id primitive.ObjectID, next domain.AssignmentStatus, actor string) (*domain.WorkoutAssignment, error)
	GetPlayerAssignments(ctx context.Context, playerID string, from, to time.Time) ([]domain.WorkoutAssignment, error)
	InvalidatePlayer(ctx context.Context, playerID string)
}

// --- Service Implementation ---

type assignmentService struct {
	assignmentRepo repository.AssignmentRepository
	overrideRepo   repository.OverrideRepository
	sessionRepo    repository.SessionRepository
	rosterRepo     repository.RosterRepository
	overrides      OverrideService
	planning       client.PlanningClient
	publisher      *events.Publisher
	cache          cache.Cache
	cacheTTL       time.Duration
	log            *zap.Logger
	now            func() time.Time
}

// NewAssignmentService creates the assignment engine.
func NewAssignmentService(
	assignmentRepo repository.AssignmentRepository,
	overrideRepo repository.OverrideRepository,
	sessionRepo repository.SessionRepository,
	rosterRepo repository.RosterRepository,
	overrides OverrideService,
	planning client.PlanningClient,
	publisher *events.Publisher,
	c cache.Cache,
	cacheTTL time.Duration,
	log *zap.Logger,
) AssignmentService {
	return &assignmentService{
		assignmentRepo: assignmentRepo,
		overrideRepo:   overrideRepo,
		sessionRepo:    sessionRepo,
		rosterRepo:     rosterRepo,
		overrides:      overrides,
		planning:       planning,
		publisher:      publisher,
		cache:          c,
		cacheTTL:       cacheTTL,
		log:            log.Named("assignments"),
		now:            func() time.Time { return time.Now().UTC() },
	}
}

func validateSpec(v *validator, spec AssignmentSpec) {
	v.check(!spec.WorkoutSessionID.IsZero(), "workoutSessionId", "is required")
	v.check(spec.OrganizationID != "", "organizationId", "is required")
	v.check(!spec.EffectiveDate.IsZero(), "effectiveDate", "is required")
	if spec.ExpiryDate != nil && spec.ExpiryDate.Before(spec.EffectiveDate) {
		v.add("expiryDate", "must not be before effectiveDate")
	}
	if spec.Type != "" && !spec.Type.Valid() {
		v.add("type", "is not a known assignment type")
	}
	v.check(spec.Priority >= 0 && spec.Priority <= 10, "priority", "must be between 0 and 10")
}

// newAssignment builds a record from the spec for one player (empty for parents).
func (s *assignmentService) newAssignment(spec AssignmentSpec, playerID, teamID string, target domain.AssignmentTarget) *domain.WorkoutAssignment {
	status := domain.StatusActive
	if spec.Draft {
		status = domain.StatusDraft
	}
	scheduled := spec.EffectiveDate
	if spec.ScheduledDate != nil {
		scheduled = *spec.ScheduledDate
	}
	if teamID == "" {
		teamID = spec.TeamID
	}
	return &domain.WorkoutAssignment{
		WorkoutSessionID:      spec.WorkoutSessionID,
		PlayerID:              playerID,
		TeamID:                teamID,
		OrganizationID:        spec.OrganizationID,
		Type:                  spec.Type,
		Status:                status,
		Target:                target,
		EffectiveDate:         spec.EffectiveDate,
		ExpiryDate:            spec.ExpiryDate,
		ScheduledDate:         scheduled,
		RecurrenceType:        spec.RecurrenceType,
		RecurrencePattern:     spec.RecurrencePattern,
		LoadProgression:       spec.LoadProgression,
		PerformanceThresholds: spec.PerformanceThresholds,
		Priority:              spec.Priority,
		Notes:                 spec.Notes,
		CreatedBy:             spec.CreatedBy,
		Metadata:              domain.AssignmentMetadata{Version: domain.MetadataVersion},
	}
}

func (s *assignmentService) getSession(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutSession, error) {
	session, err := s.sessionRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return session, nil
}

func (s *assignmentService) GetAssignment(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutAssignment, error) {
	a, err := s.assignmentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, err
	}
	return a, nil
}

// proposedLoad is the load used for limit checks: the planned base load, else the session estimate.
func proposedLoad(spec AssignmentSpec, session *domain.WorkoutSession) float64 {
	if spec.LoadProgression != nil && spec.LoadProgression.BaseLoad > 0 {
		return spec.LoadProgression.BaseLoad
	}
	return session.EstimatedLoad
}

// CreateAssignment assigns a session to one player after conflict detection.
func (s *assignmentService) CreateAssignment(ctx context.Context, req CreateAssignmentRequest) (*domain.WorkoutAssignment, error) {
	var v validator
	validateSpec(&v, req.AssignmentSpec)
	v.check(req.PlayerID != "", "playerId", "is required")
	if err := v.err(); err != nil {
		return nil, err
	}
	session, err := s.getSession(ctx, req.WorkoutSessionID)
	if err != nil {
		return nil, err
	}
	if req.Type == "" {
		req.Type = domain.AssignmentIndividual
	}

	conflicts, err := s.CheckConflicts(ctx, ConflictCheckRequest{
		OrganizationID:   req.OrganizationID,
		PlayerIDs:        []string{req.PlayerID},
		WorkoutSessionID: req.WorkoutSessionID,
		EffectiveDate:    req.EffectiveDate,
		ExpiryDate:       req.ExpiryDate,
		Load:             proposedLoad(req.AssignmentSpec, session),
		CheckMedical:     req.CheckMedical,
		LoadLimits:       req.LoadLimits,
	})
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return nil, &ConflictError{Conflicts: conflicts}
	}

	a := s.newAssignment(req.AssignmentSpec, req.PlayerID, "", domain.AssignmentTarget{PlayerIDs: []string{req.PlayerID}})
	if _, err := s.assignmentRepo.Create(ctx, a); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAssignmentExists
		}
		return nil, err
	}
	s.afterCreate(ctx, a)
	s.publisher.Publish(ctx, events.TopicWorkoutCreated, map[string]interface{}{
		"workoutSessionId": a.WorkoutSessionID.Hex(),
		"organizationId":   a.OrganizationID,
		"assignments":      1,
	})
	return a, nil
}

// afterCreate runs the side effects of a newly stored player assignment.
func (s *assignmentService) afterCreate(ctx context.Context, a *domain.WorkoutAssignment) {
	s.InvalidatePlayer(ctx, a.PlayerID)
	s.publisher.Publish(ctx, events.TopicWorkoutAssigned, assignmentEvent(a))
}

func assignmentEvent(a *domain.WorkoutAssignment) map[string]interface{} {
	payload := map[string]interface{}{
		"assignmentId":     a.ID.Hex(),
		"workoutSessionId": a.WorkoutSessionID.Hex(),
		"playerId":         a.PlayerID,
		"teamId":           a.TeamID,
		"organizationId":   a.OrganizationID,
		"status":           a.Status,
		"effectiveDate":    a.EffectiveDate,
	}
	if a.ParentAssignmentID != nil {
		payload["parentAssignmentId"] = a.ParentAssignmentID.Hex()
	}
	return payload
}

// BulkAssign resolves the target to players, detects conflicts for all of them first and
// creates assignments only for the conflict-free ones.
func (s *assignmentService) BulkAssign(ctx context.Context, req BulkAssignRequest) (*BulkAssignResult, error) {
	var v validator
	validateSpec(&v, req.AssignmentSpec)
	v.check(!req.Target.IsEmpty(), "target", "at least one player or hierarchy node is required")
	v.check(len(req.Target.CustomGroupIDs) == 0, "target.customGroupIds", "custom groups must be expanded to playerIds by the caller")
	if err := v.err(); err != nil {
		return nil, err
	}
	session, err := s.getSession(ctx, req.WorkoutSessionID)
	if err != nil {
		return nil, err
	}
	if req.Type == "" {
		req.Type = typeForTarget(req.Target)
	}

	players, err := s.resolveTarget(ctx, req.OrganizationID, req.TeamID, req.Target, req.EffectiveDate)
	if err != nil {
		return nil, fmt.Errorf("resolve target: %w", err)
	}
	result := &BulkAssignResult{
		TargetPlayers: len(players),
		Created:       []domain.WorkoutAssignment{},
		Conflicts:     []domain.ConflictInfo{},
	}
	if len(players) == 0 {
		return result, nil
	}

	ids := make([]string, 0, len(players))
	for _, p := range players {
		ids = append(ids, p.ID)
	}
	conflicts, err := s.CheckConflicts(ctx, ConflictCheckRequest{
		OrganizationID:   req.OrganizationID,
		PlayerIDs:        ids,
		WorkoutSessionID: req.WorkoutSessionID,
		EffectiveDate:    req.EffectiveDate,
		ExpiryDate:       req.ExpiryDate,
		Load:             proposedLoad(req.AssignmentSpec, session),
		CheckMedical:     req.CheckMedical,
		LoadLimits:       req.LoadLimits,
	})
	if err != nil {
		return nil, err
	}
	blocked := make(map[string]bool)
	for _, c := range conflicts {
		blocked[c.PlayerID] = true
	}
	result.Conflicts = conflicts

	for _, p := range players {
		if blocked[p.ID] {
			continue
		}
		a := s.newAssignment(req.AssignmentSpec, p.ID, p.TeamID, req.Target)
		if _, err := s.assignmentRepo.Create(ctx, a); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				result.AlreadyExisting = append(result.AlreadyExisting, p.ID)
				continue
			}
			s.log.Warn("bulk assignment failed for player", zap.String("playerId", p.ID), zap.Error(err))
			result.Failed = append(result.Failed, PlayerFailure{PlayerID: p.ID, Error: err.Error()})
			continue
		}
		s.afterCreate(ctx, a)
		result.Created = append(result.Created, *a)
	}

	s.log.Info("bulk assignment finished",
		zap.String("workoutSessionId", req.WorkoutSessionID.Hex()),
		zap.Int("targets", result.TargetPlayers),
		zap.Int("created", len(result.Created)),
		zap.Int("conflicts", len(result.Conflicts)),
		zap.Int("failed", len(result.Failed)))
	if len(result.Created) > 0 {
		s.publisher.Publish(ctx, events.TopicWorkoutCreated, map[string]interface{}{
			"workoutSessionId": req.WorkoutSessionID.Hex(),
			"organizationId":   req.OrganizationID,
			"assignments":      len(result.Created),
		})
	}
	return result, nil
}

func typeForTarget(t domain.AssignmentTarget) domain.AssignmentType {
	switch {
	case len(t.AgeGroups) > 0:
		return domain.AssignmentAgeGroup
	case len(t.Positions) > 0:
		return domain.AssignmentPosition
	case len(t.Lines) > 0:
		return domain.AssignmentLine
	case len(t.TeamIDs) > 0:
		return domain.AssignmentTeam
	}
	return domain.AssignmentIndividual
}

// resolveTarget expands explicit players plus the hierarchy query (teams narrowed by
// lines, positions and age groups) into active players, deduplicated and sorted by id.
func (s *assignmentService) resolveTarget(ctx context.Context, orgID, teamID string, t domain.AssignmentTarget, ref time.Time) ([]domain.Player, error) {
	byID := make(map[string]domain.Player)

	for _, id := range t.PlayerIDs {
		byID[id] = domain.Player{ID: id, OrganizationID: orgID, TeamID: teamID, Active: true}
	}
	if len(t.PlayerIDs) > 0 {
		// Fill in team membership where the roster knows the player.
		known, err := s.rosterRepo.FindPlayers(ctx, repository.PlayerFilter{PlayerIDs: t.PlayerIDs})
		if err != nil {
			return nil, err
		}
		for _, p := range known {
			byID[p.ID] = p
		}
	}

	if len(t.TeamIDs) > 0 || len(t.Lines) > 0 || len(t.Positions) > 0 || len(t.AgeGroups) > 0 {
		teams := t.TeamIDs
		if len(teams) == 0 && teamID != "" {
			teams = []string{teamID}
		}
		found, err := s.rosterRepo.FindPlayers(ctx, repository.PlayerFilter{
			OrganizationID: orgID,
			TeamIDs:        teams,
			Lines:          t.Lines,
			Positions:      t.Positions,
			ActiveOnly:     true,
		})
		if err != nil {
			return nil, err
		}
		for _, p := range found {
			if len(t.AgeGroups) > 0 && !contains(t.AgeGroups, p.AgeGroup(ref)) {
				continue
			}
			byID[p.ID] = p
		}
	}

	out := make([]domain.Player, 0, len(byID))
	for _, p := range byID {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CascadeAssign records one parent assignment and fans it out to the players of a team
// and, optionally, its sub-teams.
func (s *assignmentService) CascadeAssign(ctx context.Context, req CascadeAssignRequest) (*CascadeAssignResult, error) {
	var v validator
	validateSpec(&v, req.AssignmentSpec)
	v.check(req.RootTeamID != "", "rootTeamId", "is required")
	if req.ConflictPolicy == "" {
		req.ConflictPolicy = PolicySkip
	}
	switch req.ConflictPolicy {
	case PolicySkip, PolicyReplace, PolicyMerge:
	default:
		v.add("conflictPolicy", "must be one of skip, replace, merge")
	}
	if err := v.err(); err != nil {
		return nil, err
	}
	if req.RespectExistingAssignments && req.ConflictPolicy == PolicyMerge {
		if err := req.MergeOptions.validate(); err != nil {
			return nil, err
		}
	}
	if _, err := s.getSession(ctx, req.WorkoutSessionID); err != nil {
		return nil, err
	}
	if _, err := s.rosterRepo.GetTeam(ctx, req.RootTeamID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	if req.Type == "" {
		req.Type = domain.AssignmentTeam
	}
	if req.TeamID == "" {
		req.TeamID = req.RootTeamID
	}

	teamIDs, err := s.cascadeTeams(ctx, req.RootTeamID, req.IncludeSubTeams, req.ExcludeTeamIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve sub-teams: %w", err)
	}
	result := &CascadeAssignResult{TeamIDs: teamIDs, Created: []domain.WorkoutAssignment{}}

	parent, err := s.ensureParent(ctx, req, teamIDs)
	if err != nil {
		return nil, err
	}
	result.Parent = parent

	players, err := s.rosterRepo.FindPlayers(ctx, repository.PlayerFilter{
		OrganizationID: req.OrganizationID,
		TeamIDs:        teamIDs,
		Lines:          req.Lines,
		Positions:      req.Positions,
		ActiveOnly:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("resolve players: %w", err)
	}

	for _, p := range players {
		if contains(req.ExcludePlayerIDs, p.ID) {
			continue
		}
		if err := s.cascadeToPlayer(ctx, req, parent, p, result); err != nil {
			s.log.Warn("cascade failed for player", zap.String("playerId", p.ID), zap.Error(err))
			result.Failed = append(result.Failed, PlayerFailure{PlayerID: p.ID, Error: err.Error()})
		}
	}

	s.log.Info("cascade assignment finished",
		zap.String("parentId", parent.ID.Hex()),
		zap.Int("teams", len(teamIDs)),
		zap.Int("created", len(result.Created)),
		zap.Int("skipped", len(result.Skipped)),
		zap.Int("replaced", len(result.Replaced)),
		zap.Int("merged", len(result.Merged)),
		zap.Int("failed", len(result.Failed)))
	s.publisher.Publish(ctx, events.TopicWorkoutCreated, map[string]interface{}{
		"workoutSessionId":   req.WorkoutSessionID.Hex(),
		"organizationId":     req.OrganizationID,
		"parentAssignmentId": parent.ID.Hex(),
		"assignments":        len(result.Created),
	})
	return result, nil
}

// cascadeTeams walks the team tree breadth-first; excluded teams prune their subtree.
func (s *assignmentService) cascadeTeams(ctx context.Context, rootID string, includeSubTeams bool, exclude []string) ([]string, error) {
	if contains(exclude, rootID) {
		return nil, nil
	}
	out := []string{rootID}
	if !includeSubTeams {
		return out, nil
	}
	seen := map[string]bool{rootID: true}
	queue := []string{rootID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		subs, err := s.rosterRepo.GetSubTeams(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, t := range subs {
			if seen[t.ID] || contains(exclude, t.ID) {
				continue
			}
			seen[t.ID] = true
			out = append(out, t.ID)
			queue = append(queue, t.ID)
		}
	}
	return out, nil
}

// ensureParent returns the org-level intent record, creating it on first use.
func (s *assignmentService) ensureParent(ctx context.Context, req CascadeAssignRequest, teamIDs []string) (*domain.WorkoutAssignment, error) {
	key := domain.AssignmentKey{
		WorkoutSessionID: req.WorkoutSessionID,
		OrganizationID:   req.OrganizationID,
		EffectiveDate:    domain.StartOfDay(req.EffectiveDate),
	}
	if existing, err := s.assignmentRepo.GetByKey(ctx, key); err == nil {
		return existing, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	parent := s.newAssignment(req.AssignmentSpec, "", req.RootTeamID, domain.AssignmentTarget{TeamIDs: teamIDs})
	if _, err := s.assignmentRepo.Create(ctx, parent); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return s.assignmentRepo.GetByKey(ctx, key)
		}
		return nil, fmt.Errorf("create parent assignment: %w", err)
	}
	return parent, nil
}

func (s *assignmentService) cascadeToPlayer(ctx context.Context, req CascadeAssignRequest, parent *domain.WorkoutAssignment, p domain.Player, result *CascadeAssignResult) error {
	parentID := parent.ID
	child := s.newAssignment(req.AssignmentSpec, p.ID, p.TeamID, domain.AssignmentTarget{TeamIDs: []string{p.TeamID}})
	child.ParentAssignmentID = &parentID

	if req.RespectExistingAssignments {
		day := req.EffectiveDate
		from, to := domain.StartOfDay(day), domain.EndOfDay(day)
		existing, err := s.assignmentRepo.Find(ctx, repository.AssignmentFilter{
			PlayerIDs:      []string{p.ID},
			OrganizationID: req.OrganizationID,
			Statuses:       []domain.AssignmentStatus{domain.StatusDraft, domain.StatusActive},
			Types:          []domain.AssignmentType{req.Type},
			EffectiveFrom:  &from,
			EffectiveTo:    &to,
			ExcludeParents: true,
		})
		if err != nil {
			return err
		}
		// Children already cascaded from this parent are not conflicts.
		var others []domain.WorkoutAssignment
		for _, e := range existing {
			if e.ParentAssignmentID != nil && *e.ParentAssignmentID == parentID {
				result.AlreadyExisting = append(result.AlreadyExisting, p.ID)
				return nil
			}
			others = append(others, e)
		}
		if len(others) > 0 {
			return s.applyPolicy(ctx, req, child, others, result)
		}
	}

	if _, err := s.assignmentRepo.Create(ctx, child); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			result.AlreadyExisting = append(result.AlreadyExisting, p.ID)
			return nil
		}
		return err
	}
	s.afterCreate(ctx, child)
	result.Created = append(result.Created, *child)
	return nil
}

func (s *assignmentService) applyPolicy(ctx context.Context, req CascadeAssignRequest, child *domain.WorkoutAssignment, existing []domain.WorkoutAssignment, result *CascadeAssignResult) error {
	switch req.ConflictPolicy {
	case PolicySkip:
		result.Skipped = append(result.Skipped, child.PlayerID)
		return nil

	case PolicyMerge:
		target := existing[0]
		merged, _, err := s.mergeSession(ctx, &target, req.WorkoutSessionID, nil, *req.MergeOptions, req.CreatedBy)
		if err != nil {
			return err
		}
		result.Merged = append(result.Merged, *merged)
		return nil
	}

	// replace
	var rewritten *domain.WorkoutAssignment
	for i := range existing {
		e := &existing[i]
		if rewritten == nil && e.Key() == child.Key() {
			// Same identity: rewrite in place instead of cancel + insert.
			e.ParentAssignmentID = child.ParentAssignmentID
			e.TeamID, e.Target = child.TeamID, child.Target
			e.ExpiryDate, e.ScheduledDate = child.ExpiryDate, child.ScheduledDate
			e.RecurrenceType, e.RecurrencePattern = child.RecurrenceType, child.RecurrencePattern
			e.LoadProgression, e.PerformanceThresholds = child.LoadProgression, child.PerformanceThresholds
			e.Priority, e.Notes = child.Priority, child.Notes
			if err := s.assignmentRepo.Update(ctx, e); err != nil {
				return err
			}
			s.InvalidatePlayer(ctx, e.PlayerID)
			result.Replaced = append(result.Replaced, e.ID)
			rewritten = e
			continue
		}
		if _, err := s.transition(ctx, e, domain.StatusCancelled, req.CreatedBy); err != nil {
			return err
		}
		result.Replaced = append(result.Replaced, e.ID)
	}
	if rewritten != nil {
		result.Created = append(result.Created, *rewritten)
		return nil
	}
	if _, err := s.assignmentRepo.Create(ctx, child); err != nil {
		return err
	}
	s.afterCreate(ctx, child)
	result.Created = append(result.Created, *child)
	return nil
}

// Transition moves an assignment through its lifecycle. Parents never cascade to children.
func (s *assignmentService) Transition(ctx context.Context, id primitive.ObjectID, next domain.AssignmentStatus, actor string) (*domain.WorkoutAssignment, error) {
	a, err := s.GetAssignment(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, a, next, actor)
}

func (s *assignmentService) transition(ctx context.Context, a *domain.WorkoutAssignment, next domain.AssignmentStatus, actor string) (*domain.WorkoutAssignment, error) {
	if !a.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, next)
	}
	previous := a.Status
	a.Status = next
	if next == domain.StatusCompleted {
		now := s.now()
		a.CompletedAt = &now
	}
	if err := s.assignmentRepo.Update(ctx, a); err != nil {
		return nil, err
	}
	s.log.Info("assignment status changed",
		zap.String("assignmentId", a.ID.Hex()),
		zap.String("from", string(previous)),
		zap.String("to", string(next)),
		zap.String("actor", actor))
	s.InvalidatePlayer(ctx, a.PlayerID)

	switch next {
	case domain.StatusActive:
		s.publisher.Publish(ctx, events.TopicWorkoutAssigned, assignmentEvent(a))
	case domain.StatusCompleted:
		s.publisher.Publish(ctx, events.TopicWorkoutCompleted, assignmentEvent(a))
		if !a.IsParent() {
			s.reportCompletion(ctx, a)
			s.checkMilestone(ctx, a)
		}
	case domain.StatusCancelled:
		s.publisher.Publish(ctx, events.TopicWorkoutCancelled, assignmentEvent(a))
	}
	return a, nil
}

// reportCompletion is advisory: planning being down never fails the transition.
func (s *assignmentService) reportCompletion(ctx context.Context, a *domain.WorkoutAssignment) {
	if s.planning == nil {
		return
	}
	err := s.planning.ReportCompletion(ctx, client.CompletionReport{
		AssignmentID:     a.ID.Hex(),
		WorkoutSessionID: a.WorkoutSessionID.Hex(),
		PlayerID:         a.PlayerID,
		TeamID:           a.TeamID,
		PlanningPhaseID:  a.Metadata.PlanningPhaseID,
		Load:             a.Load(),
		CompletedAt:      *a.CompletedAt,
	})
	if err != nil {
		s.log.Warn("failed to report completion to planning", zap.String("assignmentId", a.ID.Hex()), zap.Error(err))
	}
}

func (s *assignmentService) checkMilestone(ctx context.Context, a *domain.WorkoutAssignment) {
	completed, err := s.assignmentRepo.Find(ctx, repository.AssignmentFilter{
		PlayerIDs:      []string{a.PlayerID},
		Statuses:       []domain.AssignmentStatus{domain.StatusCompleted, domain.StatusArchived},
		ExcludeParents: true,
	})
	if err != nil {
		s.log.Warn("failed to count completed assignments", zap.String("playerId", a.PlayerID), zap.Error(err))
		return
	}
	count := 0
	for _, c := range completed {
		if c.CompletedAt != nil {
			count++
		}
	}
	for _, m := range completionMilestones {
		if count == m {
			s.publisher.Publish(ctx, events.TopicMilestoneAchieved, map[string]interface{}{
				"playerId":          a.PlayerID,
				"organizationId":    a.OrganizationID,
				"completedWorkouts": count,
				"assignmentId":      a.ID.Hex(),
			})
			return
		}
	}
}

// GetPlayerAssignments lists a player's assignments overlapping [from, to], cached per player.
func (s *assignmentService) GetPlayerAssignments(ctx context.Context, playerID string, from, to time.Time) ([]domain.WorkoutAssignment, error) {
	if playerID == "" {
		return nil, &ValidationError{Fields: map[string]string{"playerId": "is required"}}
	}
	if to.Before(from) {
		return nil, &ValidationError{Fields: map[string]string{"to": "must not be before from"}}
	}

	key := cache.PlayerAssignmentsKey(playerID, from, to)
	var cached []domain.WorkoutAssignment
	if hit, err := s.cache.Get(ctx, key, &cached); err != nil {
		s.log.Warn("assignment cache read failed", zap.String("key", key), zap.Error(err))
	} else if hit {
		return cached, nil
	}

	list, err := s.assignmentRepo.Find(ctx, repository.AssignmentFilter{
		PlayerIDs:      []string{playerID},
		From:           &from,
		To:             &to,
		ExcludeParents: true,
	})
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []domain.WorkoutAssignment{}
	}
	if err := s.cache.Set(ctx, key, list, s.cacheTTL); err != nil {
		s.log.Warn("assignment cache write failed", zap.String("key", key), zap.Error(err))
	}
	return list, nil
}

func (s *assignmentService) InvalidatePlayer(ctx context.Context, playerID string) {
	if playerID == "" {
		return
	}
	if err := s.cache.DeletePattern(ctx, cache.PlayerAssignmentsPattern(playerID)); err != nil {
		s.log.Warn("assignment cache invalidation failed", zap.String("playerId", playerID), zap.Error(err))
	}
}

func contains[T comparable](list []T, v T) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
