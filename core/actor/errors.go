package actor

import "errors"

var (
	// ErrStopped is what pending request continuations resolve with when
	// their actor stops, and what sends return for a target ref that is
	// neither local nor deliverable. A send to a local actor whose mailbox
	// has already closed fails with mailbox.ErrClosed instead.
	ErrStopped = errors.New("actor: stopped")
	// ErrRequestTimeout is the error a pending request resolves with if its
	// deadline elapses before a response arrives.
	ErrRequestTimeout = errors.New("actor: request timed out")
	// ErrNoMatchingHandler is returned (never panicked) when a behavior's
	// dispatcher has no entry for a message's type list and no default
	// handler is installed.
	ErrNoMatchingHandler = errors.New("actor: no matching handler")
)
