package app

import (
	"errors"
	"fmt"
)

// Application errors.
var (
	// ErrInvalidLog indicates a replay log that is not a JSON array of
	// steps or entries.
	ErrInvalidLog = errors.New("invalid replay log")

	// ErrDiverged indicates replicas that did not converge after a replay.
	ErrDiverged = errors.New("replicas diverged")
)

// InitError reports a component that failed to initialize.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("failed to initialize %s: %v", e.Component, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// EntryError reports the replay log entry that failed.
type EntryError struct {
	Index  int
	Client string
	Err    error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("entry %d (client %s): %v", e.Index, e.Client, e.Err)
}

func (e *EntryError) Unwrap() error {
	return e.Err
}
