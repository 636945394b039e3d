package service

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-innovation-api/internal/workflow"
)

// Sentinels matched by the typed errors below. Handlers switch on them with errors.Is.
var (
	ErrValidation        = errors.New("validation failed")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrForbidden         = errors.New("forbidden")
	ErrLocked            = errors.New("submission locked")
	ErrConflict          = errors.New("conflict")
	ErrNotFound          = errors.New("not found")
)

// ValidationError reports malformed input.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func (e *ValidationError) Unwrap() error { return e.Err }

// InvalidTransitionError reports a stage change missing from the workflow table.
type InvalidTransitionError struct {
	Workflow string
	From     string
	To       string
	Err      error
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s workflow: cannot move from %s to %s", e.Workflow, e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition || target == ErrValidation
}

func (e *InvalidTransitionError) Unwrap() error { return e.Err }

// AuthorizationError reports an actor lacking the rights for an operation.
type AuthorizationError struct {
	ActorID uint
	Reason  string
	Err     error
}

func (e *AuthorizationError) Error() string { return e.Reason }

func (e *AuthorizationError) Is(target error) bool { return target == ErrForbidden }

func (e *AuthorizationError) Unwrap() error { return e.Err }

// LockedStateError reports a mutation attempted while the submission is under active review.
type LockedStateError struct {
	Stage string
}

func (e *LockedStateError) Error() string {
	return fmt.Sprintf("submission is locked while in %s", e.Stage)
}

func (e *LockedStateError) Is(target error) bool { return target == ErrLocked }

// ConflictError reports an operation that was already performed.
type ConflictError struct {
	Reason string
	Err    error
}

func (e *ConflictError) Error() string { return e.Reason }

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

func (e *ConflictError) Unwrap() error { return e.Err }

// NotFoundError reports a missing entity.
type NotFoundError struct {
	Entity string
	ID     interface{}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func validationFailed(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		first := verrs[0]
		return &ValidationError{Field: first.Field(), Reason: fmt.Sprintf("failed on %s", first.Tag()), Err: err}
	}
	return &ValidationError{Reason: err.Error(), Err: err}
}

// storeError maps persistence failures onto the domain taxonomy.
func storeError(err error, entity string, id interface{}) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return &NotFoundError{Entity: entity, ID: id}
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return &ConflictError{Reason: fmt.Sprintf("%s already exists", entity), Err: err}
	default:
		return err
	}
}

// transitionError maps workflow rule violations onto the domain taxonomy.
func transitionError(err error, def *workflow.Definition, from, to workflow.Stage, actor workflow.Actor) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, workflow.ErrLocked):
		return &LockedStateError{Stage: string(from)}
	case errors.Is(err, workflow.ErrInvalidTransition), errors.Is(err, workflow.ErrUnknownStage):
		return &InvalidTransitionError{Workflow: string(def.Kind()), From: string(from), To: string(to), Err: err}
	case errors.Is(err, workflow.ErrRoleNotAllowed), errors.Is(err, workflow.ErrAuthorOnly), errors.Is(err, workflow.ErrSelfReview):
		return &AuthorizationError{ActorID: actor.ID, Reason: err.Error(), Err: err}
	default:
		return err
	}
}
