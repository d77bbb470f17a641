package selection

import "errors"

var (
	// ErrInvalidSelection indicates a selection that cannot exist in the
	// given document.
	ErrInvalidSelection = errors.New("invalid selection")

	// ErrUnknownSelectionType indicates a serialized selection of an
	// unknown kind.
	ErrUnknownSelectionType = errors.New("unknown selection type")
)
