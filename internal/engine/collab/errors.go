package collab

import "errors"

var (
	// ErrVersionMismatch is returned by the authority when a client submits
	// steps based on an outdated version.
	ErrVersionMismatch = errors.New("version mismatch")

	// ErrRebaseFailed indicates that the inverse of an unconfirmed step did
	// not apply, meaning the unconfirmed steps do not match the document.
	ErrRebaseFailed = errors.New("rebase failed")
)
