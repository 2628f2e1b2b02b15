// internal/lobby/errors.go
package lobby

import "errors"

var (
	// ErrNotFound means the code is unknown or the lobby sat idle past its
	// expiry window.
	ErrNotFound = errors.New("lobby not found or expired")

	// ErrForbidden means a non-host attempted a host-only action.
	ErrForbidden = errors.New("only the host can spin")

	// ErrValidation flags a malformed create/join/spin request.
	ErrValidation = errors.New("invalid request")
)
