package domain

import (
	"errors"
	"fmt"
)

// Error kinds shared by every evaluation component. Callers match them with
// errors.Is; the transport layer maps each kind to a status and a stable code.
var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicate         = errors.New("duplicate")
	ErrConflict          = errors.New("conflict")
	ErrCycle             = errors.New("hierarchy cycle")
	ErrSelfReference     = errors.New("self reference")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrValidation        = errors.New("validation error")
)

// Error is a domain failure with a human-readable message.
type Error struct {
	Kind    error
	Entity  string
	ID      string
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s: %v", e.Entity, e.ID, e.Kind)
}

func (e *Error) Unwrap() error { return e.Kind }

func NotFound(entity, id string) *Error {
	return &Error{Kind: ErrNotFound, Entity: entity, ID: id, Message: fmt.Sprintf("%s %s not found", entity, id)}
}

func Duplicate(entity, message string) *Error {
	return &Error{Kind: ErrDuplicate, Entity: entity, Message: message}
}

func Conflict(entity, id, message string) *Error {
	return &Error{Kind: ErrConflict, Entity: entity, ID: id, Message: message}
}

func Cycle(managerID, staffID string) *Error {
	return &Error{
		Kind:    ErrCycle,
		Entity:  "hierarchy_edge",
		ID:      staffID,
		Message: fmt.Sprintf("staff %s reporting to %s would create a reporting cycle", staffID, managerID),
	}
}

func SelfReference(staffID string) *Error {
	return &Error{
		Kind:    ErrSelfReference,
		Entity:  "hierarchy_edge",
		ID:      staffID,
		Message: fmt.Sprintf("staff %s cannot report to themselves", staffID),
	}
}

func InvalidTransition(entity, id, from, to string) *Error {
	return &Error{
		Kind:    ErrInvalidTransition,
		Entity:  entity,
		ID:      id,
		Message: fmt.Sprintf("%s %s cannot move from %s to %s", entity, id, from, to),
	}
}

// FieldError describes a validation failure for a single input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	return fmt.Sprintf("validation: %d errors", len(e.Errors))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Errors: []FieldError{{Field: field, Message: message}}}
}
