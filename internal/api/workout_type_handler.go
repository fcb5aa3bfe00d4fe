package api

import (
	"alcyxob/training-service/internal/domain"
	"alcyxob/training-service/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

type WorkoutTypeHandler struct {
	workoutTypeService service.WorkoutTypeService
}

func NewWorkoutTypeHandler(workoutTypeService service.WorkoutTypeService) *WorkoutTypeHandler {
	return &WorkoutTypeHandler{workoutTypeService: workoutTypeService}
}

type WorkoutTypeRequest struct {
	Name                   string   `json:"name" binding:"required"`
	Description            string   `json:"description"`
	Category               string   `json:"category" binding:"required"`
	DefaultDurationMinutes int      `json:"defaultDurationMinutes"`
	IntensityMin           float64  `json:"intensityMin"`
	IntensityMax           float64  `json:"intensityMax"`
	TrackedMetrics         []string `json:"trackedMetrics"`
	IsActive               *bool    `json:"isActive"` // defaults to true
}

func (r WorkoutTypeRequest) input() service.WorkoutTypeInput {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return service.WorkoutTypeInput{
		Name:                   r.Name,
		Description:            r.Description,
		Category:               r.Category,
		DefaultDurationMinutes: r.DefaultDurationMinutes,
		IntensityMin:           r.IntensityMin,
		IntensityMax:           r.IntensityMax,
		TrackedMetrics:         r.TrackedMetrics,
		IsActive:               active,
	}
}

func (h *WorkoutTypeHandler) CreateWorkoutType(c *gin.Context) {
	var req WorkoutTypeRequest
	if !bindJSON(c, &req) {
		return
	}
	userID, orgID, ok := identity(c)
	if !ok {
		return
	}

	wt, err := h.workoutTypeService.CreateWorkoutType(c.Request.Context(), orgID, userID, req.input())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, wt)
}

func (h *WorkoutTypeHandler) ListWorkoutTypes(c *gin.Context) {
	_, orgID, ok := identity(c)
	if !ok {
		return
	}

	types, err := h.workoutTypeService.ListWorkoutTypes(c.Request.Context(), orgID, c.Query("activeOnly") == "true")
	if err != nil {
		respondWithError(c, err)
		return
	}
	if types == nil {
		types = []domain.WorkoutType{}
	}
	c.JSON(http.StatusOK, types)
}

func (h *WorkoutTypeHandler) GetWorkoutType(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	_, orgID, ok := identity(c)
	if !ok {
		return
	}

	wt, err := h.workoutTypeService.GetWorkoutType(c.Request.Context(), orgID, id)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, wt)
}

func (h *WorkoutTypeHandler) UpdateWorkoutType(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req WorkoutTypeRequest
	if !bindJSON(c, &req) {
		return
	}
	_, orgID, ok := identity(c)
	if !ok {
		return
	}

	wt, err := h.workoutTypeService.UpdateWorkoutType(c.Request.Context(), orgID, id, req.input())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, wt)
}

func (h *WorkoutTypeHandler) DeleteWorkoutType(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	_, orgID, ok := identity(c)
	if !ok {
		return
	}

	if err := h.workoutTypeService.DeleteWorkoutType(c.Request.Context(), orgID, id); err != nil {
		respondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
