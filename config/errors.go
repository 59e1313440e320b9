package config

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigCorrupt marks a persisted record that could not be parsed.
	// Load recovers from it by discarding the file.
	ErrConfigCorrupt = errors.New("config: persisted configuration is corrupt")

	// ErrMissingValue marks a required key that is still empty after
	// every source was consulted.
	ErrMissingValue = errors.New("config: missing required value")

	// ErrInvalidPlan marks a plan whose steps reference unknown or later steps.
	ErrInvalidPlan = errors.New("config: invalid deployment plan")
)

// MissingValueError names the key that could not be resolved.
type MissingValueError struct {
	Key     string
	EnvVars []string
}

// Error implements the error interface.
func (e *MissingValueError) Error() string {
	if len(e.EnvVars) == 0 {
		return fmt.Sprintf("missing required value %q", e.Key)
	}
	return fmt.Sprintf("missing required value %q (set %s or answer the prompt)", e.Key, e.EnvVars[0])
}

// Is reports whether target is ErrMissingValue.
func (e *MissingValueError) Is(target error) bool {
	return target == ErrMissingValue
}

// PlanError describes why a plan failed validation.
type PlanError struct {
	Step   string
	Reason string
}

// Error implements the error interface.
func (e *PlanError) Error() string {
	if e.Step == "" {
		return fmt.Sprintf("invalid plan: %s", e.Reason)
	}
	return fmt.Sprintf("invalid plan: step %s: %s", e.Step, e.Reason)
}

// Is reports whether target is ErrInvalidPlan.
func (e *PlanError) Is(target error) bool {
	return target == ErrInvalidPlan
}
