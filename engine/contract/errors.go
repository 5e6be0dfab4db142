package contract

import "errors"

var (
	// ErrValidation marks malformed requests at the engine boundary.
	ErrValidation = errors.New("validation failed")
	// ErrInternal marks invariant violations (wiring bugs) that must
	// reach an operator, never a user re-prompt.
	ErrInternal = errors.New("internal consistency error")
	// ErrModelInvoke and ErrSchemaViolation belong to the LLM
	// collaborators at the boundary.
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
)
