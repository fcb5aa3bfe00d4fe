package api

import (
	"alcyxob/training-service/internal/domain"
	"alcyxob/training-service/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ExerciseHandler holds the exercise service dependency.
type ExerciseHandler struct {
	exerciseService service.ExerciseService
}

// NewExerciseHandler creates a new ExerciseHandler.
func NewExerciseHandler(exerciseService service.ExerciseService) *ExerciseHandler {
	return &ExerciseHandler{exerciseService: exerciseService}
}

// ExerciseRequest defines the expected JSON for creating or replacing an exercise.
type ExerciseRequest struct {
	Name             string   `json:"name" binding:"required"`
	Description      string   `json:"description"`
	Category         string   `json:"category" binding:"required"` // e.g. "plyometric", "strength"
	MovementPatterns []string `json:"movementPatterns"`
	PrimaryMuscles   []string `json:"primaryMuscles"`
	SecondaryMuscles []string `json:"secondaryMuscles"`
	Equipment        string   `json:"equipment"`
	DefaultIntensity float64  `json:"defaultIntensity"`
	Supervised       bool     `json:"supervised"`
	Difficulty       string   `json:"difficulty"`
	Instructions     string   `json:"instructions"`
	VideoURL         string   `json:"videoUrl" binding:"omitempty,url"`
}

func (r ExerciseRequest) input() service.ExerciseInput {
	return service.ExerciseInput{
		Name:             r.Name,
		Description:      r.Description,
		Category:         r.Category,
		MovementPatterns: r.MovementPatterns,
		PrimaryMuscles:   r.PrimaryMuscles,
		SecondaryMuscles: r.SecondaryMuscles,
		Equipment:        r.Equipment,
		DefaultIntensity: r.DefaultIntensity,
		Supervised:       r.Supervised,
		Difficulty:       r.Difficulty,
		Instructions:     r.Instructions,
		VideoURL:         r.VideoURL,
	}
}

// CreateExercise godoc
// @Summary Create a new exercise
// @Description Adds an exercise to the caller's organization library.
// @Tags Exercises
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param exercise body ExerciseRequest true "Exercise details"
// @Success 201 {object} domain.Exercise "Exercise created successfully"
// @Failure 400 {object} gin.H "Invalid input (validation error)"
// @Failure 401 {object} gin.H "Unauthorized"
// @Router /training/exercises [post]
func (h *ExerciseHandler) CreateExercise(c *gin.Context) {
	var req ExerciseRequest
	if !bindJSON(c, &req) {
		return
	}
	userID, orgID, ok := identity(c)
	if !ok {
		return
	}

	exercise, err := h.exerciseService.CreateExercise(c.Request.Context(), orgID, userID, req.input())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, exercise)
}

// GetExercises godoc
// @Summary List the organization's exercises
// @Tags Exercises
// @Param category query string false "Only this category"
// @Success 200 {array} domain.Exercise "List of exercises"
// @Router /training/exercises [get]
func (h *ExerciseHandler) GetExercises(c *gin.Context) {
	_, orgID, ok := identity(c)
	if !ok {
		return
	}

	exercises, err := h.exerciseService.GetExercisesByOrganization(c.Request.Context(), orgID, c.Query("category"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	if exercises == nil {
		exercises = []domain.Exercise{}
	}
	c.JSON(http.StatusOK, exercises)
}

// GetExercise godoc
// @Summary Get one exercise
// @Tags Exercises
// @Router /training/exercises/{id} [get]
func (h *ExerciseHandler) GetExercise(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	_, orgID, ok := identity(c)
	if !ok {
		return
	}

	exercise, err := h.exerciseService.GetExerciseByID(c.Request.Context(), id)
	if err != nil {
		respondWithError(c, err)
		return
	}
	if exercise.OrganizationID != orgID {
		respondWithError(c, service.ErrExerciseNotFound)
		return
	}
	c.JSON(http.StatusOK, exercise)
}

// UpdateExercise godoc
// @Summary Replace an exercise's definition
// @Tags Exercises
// @Router /training/exercises/{id} [put]
func (h *ExerciseHandler) UpdateExercise(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req ExerciseRequest
	if !bindJSON(c, &req) {
		return
	}
	_, orgID, ok := identity(c)
	if !ok {
		return
	}

	exercise, err := h.exerciseService.UpdateExercise(c.Request.Context(), orgID, id, req.input())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, exercise)
}

// DeleteExercise godoc
// @Summary Delete an exercise
// @Tags Exercises
// @Success 204 "Deleted"
// @Router /training/exercises/{id} [delete]
func (h *ExerciseHandler) DeleteExercise(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	_, orgID, ok := identity(c)
	if !ok {
		return
	}

	if err := h.exerciseService.DeleteExercise(c.Request.Context(), orgID, id); err != nil {
		respondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
