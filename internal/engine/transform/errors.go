package transform

import "errors"

// Errors returned by steps and transforms.
var (
	// ErrStepFailed indicates a step could not be applied to a document.
	ErrStepFailed = errors.New("step failed")

	// ErrUnknownStepType indicates a serialized step with an unrecognized stepType.
	ErrUnknownStepType = errors.New("unknown step type")

	// ErrRangeInvalid indicates a range whose start lies after its end.
	ErrRangeInvalid = errors.New("invalid range")
)
