package api

import (
	"alcyxob/training-service/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

type PlanningHandler struct {
	planningService service.PlanningService
}

func NewPlanningHandler(planningService service.PlanningService) *PlanningHandler {
	return &PlanningHandler{planningService: planningService}
}

type PhaseAdjustmentsRequest struct {
	PhaseID string `json:"phaseId"` // empty means the team's current phase
}

// GetCurrentPhase godoc
// @Summary Current planning phase of a team, served from cache when upstream is down
// @Tags Planning
// @Router /training/planning/teams/{teamId}/current-phase [get]
func (h *PlanningHandler) GetCurrentPhase(c *gin.Context) {
	phase := h.planningService.GetCurrentPhase(c.Request.Context(), c.Param("teamId"))
	if phase == nil {
		respondWithError(c, service.ErrPhaseNotFound)
		return
	}
	c.JSON(http.StatusOK, phase)
}

// ApplyPhaseAdjustments godoc
// @Summary Rescale a team's active assignments for a planning phase
// @Tags Planning
// @Router /training/planning/teams/{teamId}/phase-adjustments [post]
func (h *PlanningHandler) ApplyPhaseAdjustments(c *gin.Context) {
	var req PhaseAdjustmentsRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	result, err := h.planningService.ApplyPhaseAdjustments(c.Request.Context(), c.Param("teamId"), req.PhaseID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// SyncPhase godoc
// @Summary Refetch the team's phase and apply it
// @Tags Planning
// @Router /training/planning/teams/{teamId}/sync [post]
func (h *PlanningHandler) SyncPhase(c *gin.Context) {
	result, err := h.planningService.SyncPhaseUpdates(c.Request.Context(), c.Param("teamId"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
