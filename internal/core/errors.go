package core

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors shared across every layer. Callers branch with errors.Is
// only; the structured types below carry the details.
var (
	ErrNotFound          = errors.New("not found")
	ErrAmbiguous         = errors.New("ambiguous reference")
	ErrStaleReference    = errors.New("stale reference")
	ErrNoSuggestion      = errors.New("no suggestion")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidDate       = errors.New("invalid date")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

type (
	// Candidate is one possible match for an ambiguous query, ranked by
	// recent transaction activity.
	Candidate struct {
		ID           string `json:"id"`
		Name         string `json:"name"`
		LastActivity Date   `json:"last_activity,omitempty"`
	}

	// NotFoundError means a query matched no entity. It is a user-input
	// miss, distinct from StaleReferenceError.
	NotFoundError struct {
		Kind  EntityKind
		Query string
	}

	// AmbiguousError means a query matched several entities equally well.
	AmbiguousError struct {
		Kind       EntityKind
		Query      string
		Candidates []Candidate
	}

	// StaleReferenceError means an ID that should exist is missing from
	// the current snapshot. One forced refresh plus a retry recovers the
	// cases caused by cache lag.
	StaleReferenceError struct {
		Kind EntityKind
		ID   string
	}
)

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q %s", e.Kind, e.Query, ErrNotFound)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

func (e *AmbiguousError) Error() string {
	names := make([]string, len(e.Candidates))
	for i, c := range e.Candidates {
		names[i] = c.Name
	}
	return fmt.Sprintf("%s %q is ambiguous: %s", e.Kind, e.Query, strings.Join(names, ", "))
}

func (e *AmbiguousError) Unwrap() error { return ErrAmbiguous }

func (e *StaleReferenceError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Kind, e.ID, ErrStaleReference)
}

func (e *StaleReferenceError) Unwrap() error { return ErrStaleReference }
