package engine

import "errors"

// Failure taxonomy for the engine. ErrOrderConflict is the only retryable
// error; everything else is terminal for the request. Callers branch with
// errors.Is.
var (
	// ErrOrderConflict signals a concurrent writer raced past an order
	// allocation. Internal; PostMessage retries once before reclassifying
	// it as ErrConflict.
	ErrOrderConflict = errors.New("message order conflict")

	// ErrConflict is an order conflict that survived the retry.
	ErrConflict = errors.New("conflict")

	// ErrRoomFull rejects a join against a room at capacity.
	ErrRoomFull = errors.New("room is full")

	// ErrNotAMember rejects authorship by a character that is not an
	// active participant/member of the channel.
	ErrNotAMember = errors.New("character is not an active member of the channel")

	// ErrNotFound means the referenced channel or character does not exist.
	ErrNotFound = errors.New("not found")
)
