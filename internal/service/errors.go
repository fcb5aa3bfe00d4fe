package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"alcyxob/training-service/internal/domain"
)

// --- Error Definitions ---
var (
	ErrValidation           = errors.New("validation failed")
	ErrConflict             = errors.New("conflicts detected")
	ErrAssignmentNotFound   = errors.New("assignment not found")
	ErrAssignmentExists     = errors.New("assignment already exists for this session, day and player")
	ErrOverrideNotFound     = errors.New("override not found")
	ErrSessionNotFound      = errors.New("workout session not found")
	ErrTeamNotFound         = errors.New("team not found")
	ErrPhaseNotFound        = errors.New("planning phase not found")
	ErrExerciseNotFound     = errors.New("exercise not found")
	ErrWorkoutTypeNotFound  = errors.New("workout type not found")
	ErrWorkoutTypeExists    = errors.New("workout type with this name already exists")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrMergeOptionsRequired = errors.New("merge requires explicit exercise and duration strategies")
	ErrArchiveUnavailable   = errors.New("report archive unavailable")
	ErrReportNotFound       = errors.New("compliance report not found")
)

// ValidationError carries field-level messages. It matches ErrValidation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// validator collects field errors; err() is nil when nothing was added.
type validator struct {
	fields map[string]string
}

func (v *validator) add(field, msg string) {
	if v.fields == nil {
		v.fields = make(map[string]string)
	}
	if _, exists := v.fields[field]; !exists {
		v.fields[field] = msg
	}
}

func (v *validator) check(ok bool, field, msg string) {
	if !ok {
		v.add(field, msg)
	}
}

func (v *validator) err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: v.fields}
}

// ConflictError reports structured conflicts instead of a bare failure. It matches ErrConflict.
type ConflictError struct {
	Conflicts []domain.ConflictInfo
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%d conflict(s) detected", len(e.Conflicts))
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// PlayerFailure records a per-player error inside a batch so callers can retry the subset.
type PlayerFailure struct {
	PlayerID string `json:"playerId"`
	Error    string `json:"error"`
}
