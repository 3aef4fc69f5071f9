package model

import "github.com/rotisserie/eris"

// Sentinel errors for the engine's error taxonomy. Callers match with
// errors.Is; store and engine methods wrap these with context via eris.
var (
	// ErrNotFound indicates a referenced pattern, question, suggestion or
	// alert id does not exist.
	ErrNotFound = eris.New("not found")

	// ErrInvalidState indicates an operation precondition is not met, e.g.
	// enabling auto-submit on a non-expert pattern or reviewing a suggestion
	// that is no longer pending.
	ErrInvalidState = eris.New("invalid state")
)
