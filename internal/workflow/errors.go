package workflow

import (
	"context"
	"errors"
	"fmt"

	"archcanvas/internal/confirm"
	"archcanvas/internal/remote"
)

var (
	// ErrNoCandidates means the service offered nothing to choose from
	ErrNoCandidates = errors.New("workflow: no candidates")
	// ErrStaleReference means a referenced node or edge left the canvas
	ErrStaleReference = errors.New("workflow: stale reference")
	// ErrNoArchitecture means the session has no architecture yet
	ErrNoArchitecture = errors.New("workflow: no architecture")
	// ErrOptimisticEdge means the edge is a placeholder with no remote identity
	ErrOptimisticEdge = errors.New("workflow: edge is still being created")
	// ErrInvalidInput means a gesture carried unusable values
	ErrInvalidInput = errors.New("workflow: invalid input")
	// ErrCancelled is the operator dismissing a dialog
	ErrCancelled = confirm.ErrCancelled
)

// RejectionError is a proposed link the service declared invalid. It is a
// normal negative outcome, not a fault.
type RejectionError struct {
	Message string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("rejected: %s", e.Message)
}

// Kind classifies an engine error
type Kind string

const (
	KindNone           Kind = ""
	KindRemote         Kind = "remote_failure"
	KindRejection      Kind = "rejection"
	KindNoCandidates   Kind = "no_candidates"
	KindCancelled      Kind = "cancelled"
	KindStale          Kind = "stale_reference"
	KindNoArchitecture Kind = "no_architecture"
	KindOptimisticEdge Kind = "optimistic_edge"
	KindInvalid        Kind = "invalid_input"
	KindInternal       Kind = "internal"
)

// Classify maps err onto the error taxonomy
func Classify(err error) Kind {
	var rejection *RejectionError
	var remoteErr *remote.Error

	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, confirm.ErrCancelled), errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.As(err, &rejection):
		return KindRejection
	case errors.Is(err, ErrNoCandidates):
		return KindNoCandidates
	case errors.Is(err, ErrStaleReference):
		return KindStale
	case errors.Is(err, ErrNoArchitecture):
		return KindNoArchitecture
	case errors.Is(err, ErrOptimisticEdge):
		return KindOptimisticEdge
	case errors.Is(err, ErrInvalidInput):
		return KindInvalid
	case errors.As(err, &remoteErr):
		return KindRemote
	default:
		return KindInternal
	}
}

// serviceMessage is the service-supplied text of err, or fallback
func serviceMessage(err error, fallback string) string {
	return remote.ServiceMessage(err, fallback)
}
