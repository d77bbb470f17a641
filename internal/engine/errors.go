package engine

import "errors"

// Errors returned by engine operations.
var (
	// ErrMismatchedTransaction indicates a transaction was applied to a
	// state other than the one it was started from.
	ErrMismatchedTransaction = errors.New("transaction does not start at the state's document")

	// ErrCollabDisabled indicates a collaboration call on a state created
	// without WithCollab.
	ErrCollabDisabled = errors.New("collaboration is not enabled")
)
