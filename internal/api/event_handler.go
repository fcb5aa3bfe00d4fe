package api

import (
	"alcyxob/training-service/internal/events"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// EventHandler accepts events pushed by other platform services and hands them to the bus.
type EventHandler struct {
	bus events.Bus
}

func NewEventHandler(bus events.Bus) *EventHandler {
	return &EventHandler{bus: bus}
}

type IngestEventRequest struct {
	ID            string          `json:"id"`
	Topic         string          `json:"topic" binding:"required"`
	OccurredAt    *time.Time      `json:"occurredAt"`
	CorrelationID string          `json:"correlationId"`
	Source        string          `json:"source" binding:"required"`
	Payload       json.RawMessage `json:"payload" binding:"required"`
}

// IngestEvent godoc
// @Summary Deliver an upstream event to the training service's subscribers
// @Tags Events
// @Success 202 {object} gin.H "Event accepted"
// @Router /training/events [post]
func (h *EventHandler) IngestEvent(c *gin.Context) {
	var req IngestEventRequest
	if !bindJSON(c, &req) {
		return
	}

	e := events.Event{
		ID:            req.ID,
		Topic:         req.Topic,
		OccurredAt:    time.Now().UTC(),
		CorrelationID: req.CorrelationID,
		Source:        req.Source,
		Payload:       req.Payload,
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if req.OccurredAt != nil {
		e.OccurredAt = req.OccurredAt.UTC()
	}
	if e.CorrelationID == "" {
		e.CorrelationID = events.CorrelationID(c.Request.Context())
	}

	if err := h.bus.Publish(c.Request.Context(), e); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"id": e.ID})
}
