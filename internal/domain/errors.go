package domain

import "errors"

// Request failures. Handlers wrap these with detail via fmt.Errorf("%w: ...")
// and callers branch with errors.Is.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnknownConnection = errors.New("unknown connection")
	ErrNoLocation        = errors.New("location not set")
	ErrRateLimited       = errors.New("rate limited")

	ErrInvalidCode     = errors.New("invalid room code")
	ErrAlreadyInRoom   = errors.New("already in a private room")
	ErrRoomExists      = errors.New("room already exists")
	ErrRoomNotFound    = errors.New("room not found")
	ErrNotInRoom       = errors.New("not a member of the room")
	ErrUserNotFound    = errors.New("user not found")
	ErrVoteAlreadyOpen = errors.New("deletion vote already open")
	ErrNoOpenVote      = errors.New("no open deletion vote")
)
