package domain

import (
	"errors"
	"fmt"
)

// Common domain errors that can occur while ranking, drawing, allocating or
// computing breaks.
var (
	// ErrInvalidInput indicates a malformed or contradictory snapshot.
	// It is surfaced to the caller and never silently corrected.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDraw indicates that a draw cannot satisfy a structural requirement.
	ErrDraw = errors.New("draw error")

	// ErrInsufficientResources indicates that fewer adjudicators or venues are
	// available than the round needs. It accompanies a partial result.
	ErrInsufficientResources = errors.New("insufficient resources")

	// ErrOperationInProgress indicates that the same operation is already
	// running for the same round.
	ErrOperationInProgress = errors.New("operation already in progress")

	// ErrNotFound indicates that a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
)

// DrawError represents a structural failure of draw generation.
// No pairing is emitted or persisted when a DrawError is returned.
type DrawError struct {
	// Round is the sequence number of the round being drawn.
	Round int

	// Reason describes which structural requirement failed.
	Reason string
}

// Error implements the error interface for DrawError.
func (e *DrawError) Error() string {
	return fmt.Sprintf("draw error: round=%d, reason=%s", e.Round, e.Reason)
}

// Unwrap lets errors.Is match ErrDraw.
func (e *DrawError) Unwrap() error { return ErrDraw }

// NewDrawError creates a new DrawError for the given round.
func NewDrawError(round int, format string, args ...any) *DrawError {
	return &DrawError{Round: round, Reason: fmt.Sprintf(format, args...)}
}

// InsufficientResourcesError describes a shortfall of adjudicators or venues.
// It is returned alongside a partial result rather than instead of one.
type InsufficientResourcesError struct {
	// Resource names what ran short, e.g. "adjudicators" or "venues".
	Resource string

	// Needed is how many were required.
	Needed int

	// Available is how many could be used.
	Available int
}

// Error implements the error interface for InsufficientResourcesError.
func (e *InsufficientResourcesError) Error() string {
	return fmt.Sprintf("insufficient %s: needed=%d, available=%d", e.Resource, e.Needed, e.Available)
}

// Unwrap lets errors.Is match ErrInsufficientResources.
func (e *InsufficientResourcesError) Unwrap() error { return ErrInsufficientResources }

// ValidationError represents an error that occurred during validation.
// It can contain multiple validation failures.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// Unwrap lets errors.Is match ErrInvalidInput.
func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// AddErrorf adds a formatted error message to the validation error.
func (e *ValidationError) AddErrorf(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// Err returns the ValidationError if it holds any messages and nil otherwise.
func (e *ValidationError) Err() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Errors: make([]string, 0),
	}
}
