package api

import (
	"alcyxob/training-service/internal/domain"
	"alcyxob/training-service/internal/service"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// defaultAssignmentWindow is used when a player's schedule is requested without an end date.
const defaultAssignmentWindow = 14 * 24 * time.Hour

type AssignmentHandler struct {
	assignmentService service.AssignmentService
}

func NewAssignmentHandler(assignmentService service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignmentService: assignmentService}
}

// --- DTOs ---

type BulkAssignRequest struct {
	service.AssignmentSpec
	Target       domain.AssignmentTarget `json:"target"`
	CheckMedical bool                    `json:"checkMedical"`
	LoadLimits   *service.LoadLimits     `json:"loadLimits"`
}

type CascadeAssignRequest struct {
	service.AssignmentSpec
	RootTeamID                 string                 `json:"rootTeamId" binding:"required"`
	IncludeSubTeams            bool                   `json:"includeSubTeams"`
	ExcludeTeamIDs             []string               `json:"excludeTeamIds"`
	ExcludePlayerIDs           []string               `json:"excludePlayerIds"`
	Lines                      []string               `json:"lines"`
	Positions                  []string               `json:"positions"`
	RespectExistingAssignments bool                   `json:"respectExistingAssignments"`
	ConflictPolicy             service.ConflictPolicy `json:"conflictPolicy"`
	MergeOptions               *service.MergeOptions  `json:"mergeOptions"`
}

type ConflictCheckRequest struct {
	PlayerIDs        []string            `json:"playerIds" binding:"required,min=1"`
	WorkoutSessionID primitive.ObjectID  `json:"workoutSessionId"`
	EffectiveDate    time.Time           `json:"effectiveDate" binding:"required"`
	ExpiryDate       *time.Time          `json:"expiryDate"`
	Load             float64             `json:"load"`
	CheckMedical     bool                `json:"checkMedical"`
	LoadLimits       *service.LoadLimits `json:"loadLimits"`
}

type ConflictCheckResponse struct {
	HasConflicts bool                  `json:"hasConflicts"`
	Conflicts    []domain.ConflictInfo `json:"conflicts"`
}

type ResolveConflictRequest struct {
	Action             domain.ResolutionAction `json:"action" binding:"required"`
	AssignmentID       primitive.ObjectID      `json:"assignmentId" binding:"required"`
	NewEffectiveDate   *time.Time              `json:"newEffectiveDate"`
	SourceAssignmentID *primitive.ObjectID     `json:"sourceAssignmentId"`
	SourceSessionID    *primitive.ObjectID     `json:"sourceSessionId"`
	MergeOptions       *service.MergeOptions   `json:"mergeOptions"`
	PlayerIDs          []string                `json:"playerIds"`
	Reason             string                  `json:"reason"`
}

type TransitionRequest struct {
	Status domain.AssignmentStatus `json:"status" binding:"required"`
}

// --- Handler Methods ---

// BulkAssign godoc
// @Summary Assign a session to every player a hierarchy target resolves to
// @Tags Assignments
// @Router /training/assignments/bulk [post]
func (h *AssignmentHandler) BulkAssign(c *gin.Context) {
	var req BulkAssignRequest
	if !bindJSON(c, &req) {
		return
	}
	userID, orgID, ok := identity(c)
	if !ok {
		return
	}
	req.OrganizationID, req.CreatedBy = orgID, userID

	result, err := h.assignmentService.BulkAssign(c.Request.Context(), service.BulkAssignRequest{
		AssignmentSpec: req.AssignmentSpec,
		Target:         req.Target,
		CheckMedical:   req.CheckMedical,
		LoadLimits:     req.LoadLimits,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(createdOrOK(len(result.Created)), result)
}

// CascadeAssign godoc
// @Summary Assign a session down a team hierarchy
// @Tags Assignments
// @Router /training/assignments/cascade [post]
func (h *AssignmentHandler) CascadeAssign(c *gin.Context) {
	var req CascadeAssignRequest
	if !bindJSON(c, &req) {
		return
	}
	userID, orgID, ok := identity(c)
	if !ok {
		return
	}
	req.OrganizationID, req.CreatedBy = orgID, userID
	if req.ConflictPolicy == "" {
		req.ConflictPolicy = service.PolicySkip
	}

	result, err := h.assignmentService.CascadeAssign(c.Request.Context(), service.CascadeAssignRequest{
		AssignmentSpec:             req.AssignmentSpec,
		RootTeamID:                 req.RootTeamID,
		IncludeSubTeams:            req.IncludeSubTeams,
		ExcludeTeamIDs:             req.ExcludeTeamIDs,
		ExcludePlayerIDs:           req.ExcludePlayerIDs,
		Lines:                      req.Lines,
		Positions:                  req.Positions,
		RespectExistingAssignments: req.RespectExistingAssignments,
		ConflictPolicy:             req.ConflictPolicy,
		MergeOptions:               req.MergeOptions,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(createdOrOK(len(result.Created)+len(result.Merged)), result)
}

// CheckConflicts godoc
// @Summary Report what would collide with a proposed assignment
// @Tags Assignments
// @Router /training/assignments/conflicts/check [post]
func (h *AssignmentHandler) CheckConflicts(c *gin.Context) {
	var req ConflictCheckRequest
	if !bindJSON(c, &req) {
		return
	}
	_, orgID, ok := identity(c)
	if !ok {
		return
	}

	conflicts, err := h.assignmentService.CheckConflicts(c.Request.Context(), service.ConflictCheckRequest{
		OrganizationID:   orgID,
		PlayerIDs:        req.PlayerIDs,
		WorkoutSessionID: req.WorkoutSessionID,
		EffectiveDate:    req.EffectiveDate,
		ExpiryDate:       req.ExpiryDate,
		Load:             req.Load,
		CheckMedical:     req.CheckMedical,
		LoadLimits:       req.LoadLimits,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, ConflictCheckResponse{HasConflicts: len(conflicts) > 0, Conflicts: conflicts})
}

// ResolveConflict godoc
// @Summary Settle a conflict by cancel, reschedule, merge or override
// @Tags Assignments
// @Router /training/assignments/conflicts/resolve [post]
func (h *AssignmentHandler) ResolveConflict(c *gin.Context) {
	var req ResolveConflictRequest
	if !bindJSON(c, &req) {
		return
	}
	userID, orgID, ok := identity(c)
	if !ok {
		return
	}

	result, err := h.assignmentService.ResolveConflict(c.Request.Context(), service.ResolveConflictRequest{
		Action:             req.Action,
		OrganizationID:     orgID,
		AssignmentID:       req.AssignmentID,
		Actor:              userID,
		NewEffectiveDate:   req.NewEffectiveDate,
		SourceAssignmentID: req.SourceAssignmentID,
		SourceSessionID:    req.SourceSessionID,
		MergeOptions:       req.MergeOptions,
		PlayerIDs:          req.PlayerIDs,
		Reason:             req.Reason,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// TransitionStatus godoc
// @Summary Move an assignment through draft, active, completed, cancelled and archived
// @Tags Assignments
// @Router /training/assignments/{id}/status [post]
func (h *AssignmentHandler) TransitionStatus(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req TransitionRequest
	if !bindJSON(c, &req) {
		return
	}
	userID, orgID, ok := identity(c)
	if !ok {
		return
	}

	existing, err := h.assignmentService.GetAssignment(c.Request.Context(), id)
	if err != nil {
		respondWithError(c, err)
		return
	}
	if existing.OrganizationID != orgID {
		respondWithError(c, service.ErrAssignmentNotFound)
		return
	}

	updated, err := h.assignmentService.Transition(c.Request.Context(), id, req.Status, userID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// GetPlayerAssignments godoc
// @Summary List a player's live assignments in a date window
// @Tags Assignments
// @Param from query string false "Window start (YYYY-MM-DD), default today"
// @Param to query string false "Window end (YYYY-MM-DD), default two weeks after start"
// @Router /training/assignments/players/{playerId} [get]
func (h *AssignmentHandler) GetPlayerAssignments(c *gin.Context) {
	_, orgID, ok := identity(c)
	if !ok {
		return
	}
	from, ok := parseDateQuery(c, "from", domain.StartOfDay(time.Now().UTC()))
	if !ok {
		return
	}
	to, ok := parseDateQuery(c, "to", from.Add(defaultAssignmentWindow))
	if !ok {
		return
	}
	if len(c.Query("to")) == len("2006-01-02") {
		to = domain.EndOfDay(to) // a bare date is inclusive
	}

	assignments, err := h.assignmentService.GetPlayerAssignments(c.Request.Context(), c.Param("playerId"), from, to)
	if err != nil {
		respondWithError(c, err)
		return
	}
	visible := []domain.WorkoutAssignment{}
	for _, a := range assignments {
		if a.OrganizationID == orgID {
			visible = append(visible, a)
		}
	}
	c.JSON(http.StatusOK, visible)
}

func createdOrOK(created int) int {
	if created > 0 {
		return http.StatusCreated
	}
	return http.StatusOK
}
