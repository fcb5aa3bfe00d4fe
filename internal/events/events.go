// Package events carries domain events between the training service and the rest of
// the platform. The transport is behind Bus; LocalBus delivers in process.
package events

import (
	"context"
	"encoding/json"
	"time"
)

// Topics published by the training service.
const (
	TopicWorkoutCreated          = "training.workout.created"
	TopicWorkoutAssigned         = "training.workout.assigned"
	TopicWorkoutCompleted        = "training.workout.completed"
	TopicWorkoutCancelled        = "training.workout.cancelled"
	TopicInjuryReported          = "training.injury.reported"
	TopicMilestoneAchieved       = "training.milestone.achieved"
	TopicPhaseAdjustmentsApplied = "training.phase_adjustments.applied"
	TopicMedicalOverrideCreated  = "training.medical_override.created"
	TopicMedicalSyncCompleted    = "training.medical_sync.completed"
)

// Topics consumed from other services.
const (
	TopicPhaseChanged              = "planning.phase.changed"
	TopicSeasonPlanUpdated         = "planning.season_plan.updated"
	TopicWorkloadThresholdBreach   = "planning.workload.threshold_breach"
	TopicTemplateApplied           = "planning.template.applied"
	TopicMedicalRestrictionCreated = "medical.restriction.created"
	TopicMedicalRestrictionUpdated = "medical.restriction.updated"
	TopicMedicalRestrictionCleared = "medical.restriction.cleared"
	TopicMedicalInjuryReported     = "medical.injury.reported"
)

// Event is the envelope every message travels in.
type Event struct {
	ID            string          `json:"id"`
	Topic         string          `json:"topic"`
	OccurredAt    time.Time       `json:"occurredAt"`
	CorrelationID string          `json:"correlationId,omitempty"`
	Source        string          `json:"source"`
	Payload       json.RawMessage `json:"payload"`
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// Handler processes one delivered event.
type Handler func(ctx context.Context, e Event) error

// Bus is the publish/subscribe primitive the service is given.
type Bus interface {
	Publish(ctx context.Context, e Event) error
	Subscribe(topic string, h Handler)
}

type correlationKey struct{}

// WithCorrelationID stores the id on the context so events published downstream carry it.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the id stored by WithCorrelationID, or "".
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}
