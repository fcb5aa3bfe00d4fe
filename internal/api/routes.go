package api

import (
	"alcyxob/training-service/internal/domain"
	"alcyxob/training-service/internal/events"
	"alcyxob/training-service/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Services are the dependencies the HTTP surface is built from.
type Services struct {
	Assignment  service.AssignmentService
	Override    service.OverrideService
	MedicalSync service.MedicalSyncService
	Compliance  service.ComplianceService
	Planning    service.PlanningService
	Exercise    service.ExerciseService
	WorkoutType service.WorkoutTypeService
	Bus         events.Bus
}

func SetupRoutes(router *gin.Engine, jwtSecret string, log *zap.Logger, svc Services) {
	medicalHandler := NewMedicalHandler(svc.MedicalSync, svc.Compliance, svc.Override)
	assignmentHandler := NewAssignmentHandler(svc.Assignment)
	planningHandler := NewPlanningHandler(svc.Planning)
	exerciseHandler := NewExerciseHandler(svc.Exercise)
	workoutTypeHandler := NewWorkoutTypeHandler(svc.WorkoutType)
	eventHandler := NewEventHandler(svc.Bus)

	router.Use(CorrelationMiddleware(), RequestLogger(log))

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	staff := RoleMiddleware(domain.RoleAdmin, domain.RoleCoach, domain.RoleMedical)
	coaches := RoleMiddleware(domain.RoleAdmin, domain.RoleCoach)
	medical := RoleMiddleware(domain.RoleAdmin, domain.RoleMedical)

	training := router.Group("/api/v1/training")
	training.Use(AuthMiddleware(jwtSecret))
	{
		// --- Medical Sync & Overrides ---
		medicalGroup := training.Group("/medical-sync")
		{
			medicalGroup.POST("/restrictions/sync", medical, medicalHandler.SyncRestrictions)
			medicalGroup.POST("/compliance/bulk", staff, medicalHandler.BulkCompliance)
			medicalGroup.GET("/compliance/reports/:id", staff, medicalHandler.GetReport)
			medicalGroup.GET("/compliance/:sessionId", staff, medicalHandler.CheckCompliance)
			medicalGroup.POST("/concerns", staff, medicalHandler.ReportConcern)
			medicalGroup.POST("/alternatives", staff, medicalHandler.FindAlternatives)

			medicalGroup.POST("/overrides", staff, medicalHandler.CreateOverride)
			medicalGroup.POST("/overrides/:id/approve", medical, medicalHandler.ApproveOverride)
			medicalGroup.POST("/overrides/:id/reject", medical, medicalHandler.RejectOverride)
			medicalGroup.GET("/players/:playerId/overrides", medicalHandler.GetPlayerOverrides)
		}

		// --- Assignments ---
		assignmentGroup := training.Group("/assignments")
		{
			assignmentGroup.POST("/bulk", coaches, assignmentHandler.BulkAssign)
			assignmentGroup.POST("/cascade", coaches, assignmentHandler.CascadeAssign)
			assignmentGroup.POST("/conflicts/check", staff, assignmentHandler.CheckConflicts)
			assignmentGroup.POST("/conflicts/resolve", coaches, assignmentHandler.ResolveConflict)
			assignmentGroup.POST("/:id/status", assignmentHandler.TransitionStatus)
			assignmentGroup.GET("/players/:playerId", assignmentHandler.GetPlayerAssignments)
		}

		// --- Planning ---
		planningGroup := training.Group("/planning/teams/:teamId")
		{
			planningGroup.GET("/current-phase", planningHandler.GetCurrentPhase)
			planningGroup.POST("/phase-adjustments", coaches, planningHandler.ApplyPhaseAdjustments)
			planningGroup.POST("/sync", coaches, planningHandler.SyncPhase)
		}

		training.POST("/events", RoleMiddleware(domain.RoleService, domain.RoleAdmin), eventHandler.IngestEvent)

		// --- Catalog ---
		workoutTypeGroup := training.Group("/workout-types")
		{
			workoutTypeGroup.POST("", coaches, workoutTypeHandler.CreateWorkoutType)
			workoutTypeGroup.GET("", workoutTypeHandler.ListWorkoutTypes)
			workoutTypeGroup.GET("/:id", workoutTypeHandler.GetWorkoutType)
			workoutTypeGroup.PUT("/:id", coaches, workoutTypeHandler.UpdateWorkoutType)
			workoutTypeGroup.DELETE("/:id", coaches, workoutTypeHandler.DeleteWorkoutType)
		}

		exerciseGroup := training.Group("/exercises")
		{
			exerciseGroup.POST("", coaches, exerciseHandler.CreateExercise)
			exerciseGroup.GET("", exerciseHandler.GetExercises)
			exerciseGroup.GET("/:id", exerciseHandler.GetExercise)
			exerciseGroup.PUT("/:id", coaches, exerciseHandler.UpdateExercise)
			exerciseGroup.DELETE("/:id", coaches, exerciseHandler.DeleteExercise)
		}
	}
}
