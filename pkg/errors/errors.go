// Package errors defines error types and utilities for the search layer
package errors

import (
	"errors"
	"fmt"
)

// Common errors that can occur in search operations
var (
	// ErrInvalidLimit is returned when a caller passes limit <= 0
	ErrInvalidLimit = errors.New("limit must be greater than zero")

	// ErrEmptyCollections is returned when a multi-collection search is
	// given no collections
	ErrEmptyCollections = errors.New("no collections given")

	// ErrInvalidFieldPath is returned when a condition or sort names a
	// malformed field path
	ErrInvalidFieldPath = errors.New("invalid field path")

	// ErrInvalidOperator is returned when a condition uses an operator
	// the store does not support
	ErrInvalidOperator = errors.New("invalid query operator")

	// ErrInvalidDirection is returned when a sort direction is neither
	// "asc" nor "desc"
	ErrInvalidDirection = errors.New("invalid sort direction")

	// ErrCursorMismatch is returned when a cursor is replayed against a
	// query shape other than the one that produced it
	ErrCursorMismatch = errors.New("cursor does not match query shape")

	// ErrInvalidCursor is returned when a cursor token cannot be decoded
	ErrInvalidCursor = errors.New("invalid cursor")

	// ErrNotFound is returned when a document is not found in the store
	ErrNotFound = errors.New("document not found")
)

// Kind classifies a search error for the caller's handling taxonomy.
type Kind int

const (
	// KindValidation covers bad input rejected before any store call.
	KindValidation Kind = iota + 1

	// KindStoreQuery covers queries the store rejected as unsatisfiable,
	// such as a missing composite index. Never retried: re-running an
	// unsatisfiable query cannot succeed.
	KindStoreQuery

	// KindStoreTransport covers network or availability failures from
	// the store client. Retry policy is left to the caller.
	KindStoreTransport

	// KindMergeFailure covers a multi-collection merge where at least
	// one per-collection query failed. The whole merge fails.
	KindMergeFailure
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindStoreQuery:
		return "store-query"
	case KindStoreTransport:
		return "store-transport"
	case KindMergeFailure:
		return "merge-failure"
	default:
		return "unknown"
	}
}

// SearchError carries the failing operation, the collection involved
// and the underlying cause. The store's original error is preserved
// unchanged through Unwrap.
type SearchError struct {
	Op         string
	Collection string
	Kind       Kind
	Err        error
}

// Error implements the error interface
func (e *SearchError) Error() string {
	if e.Collection != "" {
		return fmt.Sprintf("searchcore: %s %q: %v", e.Op, e.Collection, e.Err)
	}
	return fmt.Sprintf("searchcore: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *SearchError) Unwrap() error {
	return e.Err
}

// Is checks if the error matches the target error
func (e *SearchError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// New creates a SearchError wrapping err.
func New(op, collection string, kind Kind, err error) *SearchError {
	return &SearchError{
		Op:         op,
		Collection: collection,
		Kind:       kind,
		Err:        err,
	}
}

// KindOf returns the classification of err, or zero when err is not a
// SearchError.
func KindOf(err error) Kind {
	var se *SearchError
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}

// IsValidation checks if an error was raised before any store call
func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}

// IsStoreQuery checks if the store rejected the constructed query
func IsStoreQuery(err error) bool {
	return KindOf(err) == KindStoreQuery
}

// IsStoreTransport checks if the store client failed at the transport level
func IsStoreTransport(err error) bool {
	return KindOf(err) == KindStoreTransport
}

// IsMergeFailure checks if a multi-collection merge failed
func IsMergeFailure(err error) bool {
	return KindOf(err) == KindMergeFailure
}

// IsNotFound checks if an error indicates a missing document
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
