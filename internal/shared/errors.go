package shared

import "errors"

var (
	// ErrNoEngine indicates a request reached a session endpoint without an engine.
	ErrNoEngine = errors.New("session engine missing")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)
