package model

import (
	"errors"
	"fmt"
)

// Errors returned by document model operations.
var (
	// ErrPositionOutOfRange indicates a position outside [0, doc.Content.Size()].
	ErrPositionOutOfRange = errors.New("position out of range")

	// ErrInvalidContent indicates content that does not satisfy a node type's content expression.
	ErrInvalidContent = errors.New("invalid content")

	// ErrUnknownType indicates a node or mark type name the schema does not define.
	ErrUnknownType = errors.New("unknown type")

	// ErrMissingAttr indicates a required attribute was not supplied.
	ErrMissingAttr = errors.New("missing required attribute")

	// ErrInvalidSchema indicates a schema specification that cannot be compiled.
	ErrInvalidSchema = errors.New("invalid schema")

	// ErrInvalidJSON indicates malformed or structurally invalid JSON input.
	ErrInvalidJSON = errors.New("invalid JSON")

	// ErrEmptyText indicates an attempt to create an empty text node.
	ErrEmptyText = errors.New("empty text nodes are not allowed")
)

// ReplaceError is returned when a replace cannot be assembled into a valid document,
// for example when a slice's open sides do not fit the surrounding structure.
type ReplaceError struct {
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ReplaceError) Error() string {
	if e.Err != nil {
		return "replace: " + e.Message + ": " + e.Err.Error()
	}
	return "replace: " + e.Message
}

// Unwrap returns the underlying cause, if any.
func (e *ReplaceError) Unwrap() error { return e.Err }

func replaceErrorf(format string, args ...any) *ReplaceError {
	return &ReplaceError{Message: fmt.Sprintf(format, args...)}
}

func outOfRange(pos, size int) error {
	return fmt.Errorf("%w: position %d outside of [0, %d]", ErrPositionOutOfRange, pos, size)
}
