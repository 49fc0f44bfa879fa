package engine

import "errors"

var (
	// ErrConflictingUpdate is returned when a transition for the same order
	// is already in flight. The caller retries after the first resolves.
	ErrConflictingUpdate = errors.New("conflicting update in flight")

	// ErrRemoteCommand is returned when the order command service rejected
	// or never received a status command. Transient from the caller's view;
	// the engine reconciles with a snapshot re-fetch.
	ErrRemoteCommand = errors.New("remote command failed")

	// ErrFetchFailed is returned when a snapshot load did not complete. The
	// collection is left untouched and the caller may retry.
	ErrFetchFailed = errors.New("snapshot fetch failed")

	// ErrNotRunning is returned for operations against a session that has
	// not been started or was torn down.
	ErrNotRunning = errors.New("session not running")
)
