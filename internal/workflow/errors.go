package workflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lestari-foundation/forestgate/internal/domain"
)

// Sentinel errors.
var (
	ErrNotFound          = errors.New("resource not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrValidationFailed  = errors.New("resource is incomplete")
	ErrInvalidDecision   = errors.New("invalid review decision")
	ErrUnknownKind       = errors.New("unknown resource kind")
	ErrStatusConflict    = errors.New("status changed concurrently")
)

// TransitionError reports an action that is not legal from the current status.
type TransitionError struct {
	Action  Action
	Current domain.WorkflowStatus
	Allowed []domain.WorkflowStatus
}

func (e *TransitionError) Error() string {
	allowed := make([]string, len(e.Allowed))
	for i, s := range e.Allowed {
		allowed[i] = string(s)
	}
	return fmt.Sprintf("invalid transition: cannot %s from %s (allowed from: %s)",
		e.Action, e.Current, strings.Join(allowed, ", "))
}

// Is makes errors.Is(err, ErrInvalidTransition) hold.
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// Details returns the client-facing context of the error.
func (e *TransitionError) Details() any {
	return map[string]any{
		"current_status":   e.Current,
		"allowed_statuses": e.Allowed,
	}
}

// ValidationError lists the fields that block a submission.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "resource is incomplete: missing " + strings.Join(e.Missing, ", ")
}

// Is makes errors.Is(err, ErrValidationFailed) hold.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

// Details returns the client-facing context of the error.
func (e *ValidationError) Details() any {
	return map[string]any{"missing_fields": e.Missing}
}

// ConflictError is returned by a Store when the compare-and-set did not
// match. Modified is set when the status was still acceptable but the row
// had been edited after the snapshot named by Change.ExpectUpdatedAt.
type ConflictError struct {
	Current  domain.WorkflowStatus
	Modified bool
}

func (e *ConflictError) Error() string {
	if e.Modified {
		return fmt.Sprintf("resource modified concurrently (status %s)", e.Current)
	}
	return fmt.Sprintf("status changed concurrently: now %s", e.Current)
}

// Is makes errors.Is(err, ErrStatusConflict) hold.
func (e *ConflictError) Is(target error) bool {
	return target == ErrStatusConflict
}
