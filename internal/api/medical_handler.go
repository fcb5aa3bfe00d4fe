package api

import (
	"alcyxob/training-service/internal/client"
	"alcyxob/training-service/internal/domain"
	"alcyxob/training-service/internal/service"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MedicalHandler exposes medical sync, compliance and override management.
type MedicalHandler struct {
	syncService       service.MedicalSyncService
	complianceService service.ComplianceService
	overrideService   service.OverrideService
}

func NewMedicalHandler(
	syncService service.MedicalSyncService,
	complianceService service.ComplianceService,
	overrideService service.OverrideService,
) *MedicalHandler {
	return &MedicalHandler{
		syncService:       syncService,
		complianceService: complianceService,
		overrideService:   overrideService,
	}
}

// --- DTOs ---

type SyncRestrictionsRequest struct {
	TeamID    string     `json:"teamId"`
	PlayerIDs []string   `json:"playerIds"`
	FromDate  *time.Time `json:"fromDate"`
}

type BulkComplianceRequest struct {
	SessionIDs []primitive.ObjectID `json:"sessionIds" binding:"required,min=1"`
	Detailed   bool                 `json:"detailed"`
	Archive    bool                 `json:"archive"`
}

type BulkComplianceResponse struct {
	*service.BulkComplianceResult
	Report       *domain.ComplianceReport `json:"report,omitempty"`
	ArchiveError string                   `json:"archiveError,omitempty"`
}

type ReportConcernRequest struct {
	PlayerID     string     `json:"playerId" binding:"required"`
	BodyPart     string     `json:"bodyPart"`
	Description  string     `json:"description" binding:"required"`
	Severity     string     `json:"severity"`
	AssignmentID string     `json:"assignmentId"`
	OccurredAt   *time.Time `json:"occurredAt"`
}

type AlternativesRequest struct {
	ExerciseID   primitive.ObjectID          `json:"exerciseId" binding:"required"`
	PlayerID     string                      `json:"playerId"`
	Restrictions []domain.MedicalRestriction `json:"restrictions"`
}

type CreateOverrideRequest struct {
	WorkoutAssignmentID primitive.ObjectID           `json:"workoutAssignmentId" binding:"required"`
	PlayerID            string                       `json:"playerId" binding:"required"`
	Type                domain.OverrideType          `json:"type" binding:"required"`
	EffectiveDate       time.Time                    `json:"effectiveDate" binding:"required"`
	ExpiryDate          *time.Time                   `json:"expiryDate"`
	Modifications       domain.OverrideModifications `json:"modifications"`
	MedicalRecordID     *string                      `json:"medicalRecordId"`
	Notes               string                       `json:"notes"`
	RequireApproval     bool                         `json:"requireApproval"`
}

type RejectOverrideRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// --- Handler Methods ---

// SyncRestrictions godoc
// @Summary Mirror medical restrictions onto workout overrides
// @Tags Medical
// @Router /training/medical-sync/restrictions/sync [post]
func (h *MedicalHandler) SyncRestrictions(c *gin.Context) {
	var req SyncRestrictionsRequest
	if !bindJSON(c, &req) {
		return
	}
	_, orgID, ok := identity(c)
	if !ok {
		return
	}

	result, err := h.syncService.SyncMedicalRestrictions(c.Request.Context(), service.SyncRequest{
		OrganizationID: orgID,
		TeamID:         req.TeamID,
		PlayerIDs:      req.PlayerIDs,
		FromDate:       req.FromDate,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CheckCompliance godoc
// @Summary Check a session's assignments against the players' medical overrides
// @Tags Medical
// @Param sessionId path string true "Workout session ID"
// @Param playerId query string false "Restrict to one player"
// @Param detailed query bool false "Evaluate every exercise"
// @Router /training/medical-sync/compliance/{sessionId} [get]
func (h *MedicalHandler) CheckCompliance(c *gin.Context) {
	sessionID, ok := objectIDParam(c, "sessionId")
	if !ok {
		return
	}
	_, orgID, ok := identity(c)
	if !ok {
		return
	}
	detailed := c.Query("detailed") == "true"

	result, err := h.complianceService.CheckCompliance(c.Request.Context(), orgID, sessionID, c.Query("playerId"), detailed)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// BulkCompliance godoc
// @Summary Check several sessions at once, optionally archiving the report
// @Tags Medical
// @Router /training/medical-sync/compliance/bulk [post]
func (h *MedicalHandler) BulkCompliance(c *gin.Context) {
	var req BulkComplianceRequest
	if !bindJSON(c, &req) {
		return
	}
	userID, orgID, ok := identity(c)
	if !ok {
		return
	}

	result, err := h.complianceService.BulkCompliance(c.Request.Context(), orgID, req.SessionIDs, req.Detailed)
	if err != nil {
		respondWithError(c, err)
		return
	}

	resp := BulkComplianceResponse{BulkComplianceResult: result}
	if req.Archive {
		// The checks already ran; an archive failure is reported alongside them.
		report, err := h.complianceService.ArchiveBulkReport(c.Request.Context(), orgID, userID, result)
		if err != nil {
			_ = c.Error(err)
			resp.ArchiveError = err.Error()
		} else {
			resp.Report = report
		}
	}
	c.JSON(http.StatusOK, resp)
}

// GetReport godoc
// @Summary Fetch archived compliance report metadata with a download link
// @Tags Medical
// @Router /training/medical-sync/compliance/reports/{id} [get]
func (h *MedicalHandler) GetReport(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	_, orgID, ok := identity(c)
	if !ok {
		return
	}

	report, err := h.complianceService.GetReport(c.Request.Context(), id)
	if err != nil {
		respondWithError(c, err)
		return
	}
	if report.OrganizationID != orgID {
		respondWithError(c, service.ErrReportNotFound)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ReportConcern godoc
// @Summary Forward a staff concern about a player to the medical service
// @Tags Medical
// @Router /training/medical-sync/concerns [post]
func (h *MedicalHandler) ReportConcern(c *gin.Context) {
	var req ReportConcernRequest
	if !bindJSON(c, &req) {
		return
	}
	userID, orgID, ok := identity(c)
	if !ok {
		return
	}

	ack, err := h.syncService.ReportConcern(c.Request.Context(), client.Concern{
		PlayerID:       req.PlayerID,
		OrganizationID: orgID,
		ReportedBy:     userID,
		BodyPart:       req.BodyPart,
		Description:    req.Description,
		Severity:       req.Severity,
		AssignmentID:   req.AssignmentID,
		OccurredAt:     req.OccurredAt,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ack)
}

// FindAlternatives godoc
// @Summary Rank substitute exercises that respect a player's restrictions
// @Tags Medical
// @Router /training/medical-sync/alternatives [post]
func (h *MedicalHandler) FindAlternatives(c *gin.Context) {
	var req AlternativesRequest
	if !bindJSON(c, &req) {
		return
	}
	_, orgID, ok := identity(c)
	if !ok {
		return
	}

	result, err := h.syncService.FindAlternatives(c.Request.Context(), service.AlternativesRequest{
		OrganizationID: orgID,
		ExerciseID:     req.ExerciseID,
		PlayerID:       req.PlayerID,
		Restrictions:   req.Restrictions,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CreateOverride godoc
// @Summary Create or refresh a player override on an assignment
// @Tags Overrides
// @Success 201 {object} domain.WorkoutPlayerOverride "Override created"
// @Success 200 {object} domain.WorkoutPlayerOverride "Existing override updated"
// @Router /training/medical-sync/overrides [post]
func (h *MedicalHandler) CreateOverride(c *gin.Context) {
	var req CreateOverrideRequest
	if !bindJSON(c, &req) {
		return
	}
	userID, orgID, ok := identity(c)
	if !ok {
		return
	}

	override, created, err := h.overrideService.CreateOverride(c.Request.Context(), service.CreateOverrideRequest{
		WorkoutAssignmentID: req.WorkoutAssignmentID,
		OrganizationID:      orgID,
		PlayerID:            req.PlayerID,
		Type:                req.Type,
		EffectiveDate:       req.EffectiveDate,
		ExpiryDate:          req.ExpiryDate,
		Modifications:       req.Modifications,
		MedicalRecordID:     req.MedicalRecordID,
		Notes:               req.Notes,
		RequestedBy:         userID,
		RequireApproval:     req.RequireApproval,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, override)
}

// ApproveOverride godoc
// @Summary Approve a pending override
// @Tags Overrides
// @Router /training/medical-sync/overrides/{id}/approve [post]
func (h *MedicalHandler) ApproveOverride(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	userID, orgID, ok := identity(c)
	if !ok {
		return
	}
	if !h.ownsOverride(c, id, orgID) {
		return
	}

	override, err := h.overrideService.ApproveOverride(c.Request.Context(), id, userID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, override)
}

// RejectOverride godoc
// @Summary Reject a pending override
// @Tags Overrides
// @Router /training/medical-sync/overrides/{id}/reject [post]
func (h *MedicalHandler) RejectOverride(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req RejectOverrideRequest
	if !bindJSON(c, &req) {
		return
	}
	userID, orgID, ok := identity(c)
	if !ok {
		return
	}
	if !h.ownsOverride(c, id, orgID) {
		return
	}

	override, err := h.overrideService.RejectOverride(c.Request.Context(), id, userID, req.Reason)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, override)
}

// GetPlayerOverrides godoc
// @Summary List a player's overrides
// @Tags Overrides
// @Param liveOnly query bool false "Only pending and approved overrides"
// @Router /training/medical-sync/players/{playerId}/overrides [get]
func (h *MedicalHandler) GetPlayerOverrides(c *gin.Context) {
	_, orgID, ok := identity(c)
	if !ok {
		return
	}
	overrides, err := h.overrideService.GetPlayerOverrides(c.Request.Context(), c.Param("playerId"), c.Query("liveOnly") == "true")
	if err != nil {
		respondWithError(c, err)
		return
	}
	visible := []domain.WorkoutPlayerOverride{}
	for _, o := range overrides {
		if o.OrganizationID == orgID {
			visible = append(visible, o)
		}
	}
	c.JSON(http.StatusOK, visible)
}

// ownsOverride aborts with 404 unless the override belongs to the caller's organization.
func (h *MedicalHandler) ownsOverride(c *gin.Context, id primitive.ObjectID, orgID string) bool {
	o, err := h.overrideService.GetOverride(c.Request.Context(), id)
	if err != nil {
		respondWithError(c, err)
		return false
	}
	if o.OrganizationID != orgID {
		respondWithError(c, service.ErrOverrideNotFound)
		return false
	}
	return true
}
