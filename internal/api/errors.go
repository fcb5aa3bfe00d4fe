package api

import (
	"alcyxob/training-service/internal/client"
	"alcyxob/training-service/internal/service"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// respondWithError maps service errors onto status codes. Unexpected errors are
// attached to the context for RequestLogger and answered with a generic message.
func respondWithError(c *gin.Context, err error) {
	var validationErr *service.ValidationError
	var conflictErr *service.ConflictError

	switch {
	case errors.As(err, &validationErr):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": service.ErrValidation.Error(), "fields": validationErr.Fields})
	case errors.As(err, &conflictErr):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error(), "conflicts": conflictErr.Conflicts})
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrMergeOptionsRequired):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrExerciseAccessDenied):
		abortWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrAssignmentNotFound),
		errors.Is(err, service.ErrOverrideNotFound),
		errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrTeamNotFound),
		errors.Is(err, service.ErrPhaseNotFound),
		errors.Is(err, service.ErrExerciseNotFound),
		errors.Is(err, service.ErrWorkoutTypeNotFound),
		errors.Is(err, service.ErrReportNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrConflict),
		errors.Is(err, service.ErrAssignmentExists),
		errors.Is(err, service.ErrWorkoutTypeExists),
		errors.Is(err, service.ErrInvalidTransition):
		abortWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrArchiveUnavailable):
		abortWithError(c, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, client.ErrUpstream):
		_ = c.Error(err)
		abortWithError(c, http.StatusBadGateway, "Upstream service unavailable.")
	default:
		_ = c.Error(err)
		abortWithError(c, http.StatusInternalServerError, "Internal server error.")
	}
}

// bindJSON binds the body, answering 400 on failure.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return false
	}
	return true
}

// objectIDParam parses a hex ObjectID path parameter, answering 400 on failure.
func objectIDParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid "+name+" format.")
		return primitive.NilObjectID, false
	}
	return id, true
}

// parseDateQuery accepts YYYY-MM-DD or RFC 3339; an absent parameter yields fallback.
func parseDateQuery(c *gin.Context, name string, fallback time.Time) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, true
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t.UTC(), true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid "+name+" date, expected YYYY-MM-DD or RFC 3339.")
		return time.Time{}, false
	}
	return t.UTC(), true
}
