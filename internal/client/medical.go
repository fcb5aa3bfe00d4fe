package client

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"alcyxob/training-service/internal/domain"
)

// RestrictionQuery selects restrictions from the medical service. Empty fields are omitted.
type RestrictionQuery struct {
	OrganizationID string
	TeamID         string
	PlayerIDs      []string
	FromDate       *time.Time
	Status         domain.RestrictionStatus
}

// Concern is a training-observed injury concern forwarded to medical staff.
type Concern struct {
	PlayerID       string     `json:"playerId"`
	OrganizationID string     `json:"organizationId,omitempty"`
	ReportedBy     string     `json:"reportedBy"`
	BodyPart       string     `json:"bodyPart,omitempty"`
	Description    string     `json:"description"`
	Severity       string     `json:"severity,omitempty"`
	AssignmentID   string     `json:"assignmentId,omitempty"`
	OccurredAt     *time.Time `json:"occurredAt,omitempty"`
}

// ConcernAck is the medical service's answer to a concern.
type ConcernAck struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// MedicalClient is the medical-service contract the training service consumes.
type MedicalClient interface {
	GetRestrictions(ctx context.Context, q RestrictionQuery) ([]domain.MedicalRestriction, error)
	GetPlayerRestrictions(ctx context.Context, playerID string) ([]domain.MedicalRestriction, error)
	ReportConcern(ctx context.Context, c Concern) (*ConcernAck, error)
}

type medicalClient struct {
	httpClient
}

func NewMedicalClient(opts Options) MedicalClient {
	return &medicalClient{httpClient: newHTTPClient("medical-service", opts)}
}

func (c *medicalClient) GetRestrictions(ctx context.Context, q RestrictionQuery) ([]domain.MedicalRestriction, error) {
	v := url.Values{}
	if q.OrganizationID != "" {
		v.Set("organizationId", q.OrganizationID)
	}
	if q.TeamID != "" {
		v.Set("teamId", q.TeamID)
	}
	if len(q.PlayerIDs) > 0 {
		v.Set("playerIds", strings.Join(q.PlayerIDs, ","))
	}
	if q.FromDate != nil {
		v.Set("fromDate", q.FromDate.UTC().Format(time.RFC3339))
	}
	if q.Status != "" {
		v.Set("status", string(q.Status))
	}
	path := "/api/v1/medical/restrictions"
	if enc := v.Encode(); enc != "" {
		path += "?" + enc
	}

	var out []domain.MedicalRestriction
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *medicalClient) GetPlayerRestrictions(ctx context.Context, playerID string) ([]domain.MedicalRestriction, error) {
	var out []domain.MedicalRestriction
	path := "/api/v1/medical/restrictions/player/" + url.PathEscape(playerID) + "?active=true"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *medicalClient) ReportConcern(ctx context.Context, concern Concern) (*ConcernAck, error) {
	var ack ConcernAck
	if err := c.do(ctx, http.MethodPost, "/api/v1/medical/concerns", concern, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}
