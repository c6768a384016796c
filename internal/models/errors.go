package models

import "errors"

// Centralized error taxonomy. Every error returned by services is one of
// these sentinels (possibly wrapped), so callers branch with errors.Is
// instead of string matching.

// Caller mistakes, surfaced to the user and never retried.
var (
	ErrInvalidInput = errors.New("invalid input")
)

// Expected absence, surfaced as a normal negative outcome.
var (
	ErrNotFound       = errors.New("not found")
	ErrNoActiveDraw   = errors.New("no active draw")
	ErrNoParticipants = errors.New("draw has no participants")
)

// Expected race losers, surfaced as a normal negative outcome.
var (
	ErrAlreadyJoined = errors.New("user already joined this draw")
	ErrConflict      = errors.New("conflicting state")
)

// Lifecycle violations: the draw is not in the state the operation needs.
var (
	ErrInvalidState = errors.New("draw is in the wrong state for this operation")
)

// Infrastructure fault. Propagated uninterpreted; retry policy belongs to
// the caller, never to the core.
var (
	ErrStorageUnavailable = errors.New("storage unavailable")
)
