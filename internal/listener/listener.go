// Package listener routes events from the planning and medical services to the
// training services that react to them.
package listener

import (
	"alcyxob/training-service/internal/events"
	"alcyxob/training-service/internal/service"
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var errMissingField = errors.New("event payload missing required field")

// PlanningEvent covers phase, season plan and template notifications.
type PlanningEvent struct {
	TeamID     string `json:"teamId"`
	PhaseID    string `json:"phaseId,omitempty"`
	PlanID     string `json:"planId,omitempty"`
	TemplateID string `json:"templateId,omitempty"`
}

// RestrictionEvent covers medical restriction and injury notifications.
type RestrictionEvent struct {
	RestrictionID  string `json:"restrictionId"`
	PlayerID       string `json:"playerId"`
	OrganizationID string `json:"organizationId,omitempty"`
	TeamID         string `json:"teamId,omitempty"`
}

type Listener struct {
	planning service.PlanningService
	medical  service.MedicalSyncService
	log      *zap.Logger
}

func New(planning service.PlanningService, medical service.MedicalSyncService, log *zap.Logger) *Listener {
	return &Listener{planning: planning, medical: medical, log: log.Named("listener")}
}

// Register subscribes every consumed topic on the bus.
func (l *Listener) Register(bus events.Bus) {
	routes := map[string]events.Handler{
		events.TopicPhaseChanged:              l.onPhaseChanged,
		events.TopicSeasonPlanUpdated:         l.onSeasonPlanUpdated,
		events.TopicTemplateApplied:           l.onPhaseChanged,
		events.TopicWorkloadThresholdBreach:   l.onWorkloadBreach,
		events.TopicMedicalRestrictionCreated: l.onRestrictionChanged,
		events.TopicMedicalRestrictionUpdated: l.onRestrictionChanged,
		events.TopicMedicalInjuryReported:     l.onRestrictionChanged,
		events.TopicMedicalRestrictionCleared: l.onRestrictionCleared,
	}
	for topic, h := range routes {
		bus.Subscribe(topic, l.logged(h))
	}
	l.log.Info("event listener registered", zap.Int("topics", len(routes)))
}

// logged attaches the event's correlation id. Errors go back to the bus, which
// logs them; events are not retried.
func (l *Listener) logged(h events.Handler) events.Handler {
	return func(ctx context.Context, e events.Event) error {
		if e.CorrelationID != "" {
			ctx = events.WithCorrelationID(ctx, e.CorrelationID)
		}
		if err := h(ctx, e); err != nil {
			return fmt.Errorf("%s from %s: %w", e.Topic, e.Source, err)
		}
		l.log.Debug("event handled", zap.String("topic", e.Topic), zap.String("eventId", e.ID))
		return nil
	}
}

func decodePlanning(e events.Event) (PlanningEvent, error) {
	var p PlanningEvent
	if err := e.Decode(&p); err != nil {
		return p, fmt.Errorf("decode %s: %w", e.Topic, err)
	}
	if p.TeamID == "" {
		return p, fmt.Errorf("%w: teamId", errMissingField)
	}
	return p, nil
}

func (l *Listener) onPhaseChanged(ctx context.Context, e events.Event) error {
	p, err := decodePlanning(e)
	if err != nil {
		return err
	}
	result, err := l.planning.SyncPhaseUpdates(ctx, p.TeamID)
	if err != nil {
		return err
	}
	l.log.Info("phase sync after planning event",
		zap.String("topic", e.Topic),
		zap.String("teamId", p.TeamID),
		zap.Int("adjusted", result.Adjusted),
		zap.Bool("noPhase", result.NoPhase))
	return nil
}

func (l *Listener) onSeasonPlanUpdated(ctx context.Context, e events.Event) error {
	p, err := decodePlanning(e)
	if err != nil {
		return err
	}
	l.planning.InvalidateTeam(ctx, p.TeamID)
	return l.onPhaseChanged(ctx, e)
}

func (l *Listener) onWorkloadBreach(ctx context.Context, e events.Event) error {
	var breach service.WorkloadBreach
	if err := e.Decode(&breach); err != nil {
		return fmt.Errorf("decode %s: %w", e.Topic, err)
	}
	if breach.PlayerID == "" {
		return fmt.Errorf("%w: playerId", errMissingField)
	}
	_, err := l.planning.HandleWorkloadBreach(ctx, breach)
	return err
}

func decodeRestriction(e events.Event) (RestrictionEvent, error) {
	var r RestrictionEvent
	if err := e.Decode(&r); err != nil {
		return r, fmt.Errorf("decode %s: %w", e.Topic, err)
	}
	if r.PlayerID == "" {
		return r, fmt.Errorf("%w: playerId", errMissingField)
	}
	return r, nil
}

func (l *Listener) onRestrictionChanged(ctx context.Context, e events.Event) error {
	r, err := decodeRestriction(e)
	if err != nil {
		return err
	}
	_, err = l.medical.SyncMedicalRestrictions(ctx, service.SyncRequest{
		OrganizationID: r.OrganizationID,
		TeamID:         r.TeamID,
		PlayerIDs:      []string{r.PlayerID},
	})
	return err
}

func (l *Listener) onRestrictionCleared(ctx context.Context, e events.Event) error {
	r, err := decodeRestriction(e)
	if err != nil {
		return err
	}
	if r.RestrictionID == "" {
		return fmt.Errorf("%w: restrictionId", errMissingField)
	}
	_, err = l.medical.HandleRestrictionCleared(ctx, r.RestrictionID, r.PlayerID, r.OrganizationID)
	return err
}
