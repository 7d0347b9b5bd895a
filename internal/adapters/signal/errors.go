package signal

import (
	"errors"

	"github.com/dkeye/Nearby/internal/core"
	"github.com/dkeye/Nearby/internal/domain"
)

var userMessages = []struct {
	err error
	msg string
}{
	{domain.ErrInvalidCode, "Room code must be 6 characters of A-Z and 0-9."},
	{domain.ErrAlreadyInRoom, "You are already in another private room."},
	{domain.ErrRoomExists, "That room code is already in use."},
	{domain.ErrRoomNotFound, "No private room with that code. Check the code."},
	{domain.ErrNotInRoom, "You are not a member of that room."},
	{domain.ErrVoteAlreadyOpen, "A deletion vote is already in progress."},
	{domain.ErrNoOpenVote, "There is no deletion vote in progress."},
	{domain.ErrUserNotFound, "Could not find the user to invite."},
	{domain.ErrRateLimited, "You are sending messages too fast. Try again shortly."},
	{domain.ErrUnknownConnection, "Register before doing that."},
	{domain.ErrNoLocation, "Your location is not known yet."},
	{domain.ErrInvalidInput, "Invalid input."},
}

func userMessage(err error) string {
	for _, m := range userMessages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	return "Something went wrong."
}

// errorEvent renders err for the client; room operations answer with
// privateRoomError, everything else with error.
func errorEvent(err error, roomScoped bool) core.ErrorEvent {
	typ := core.EvError
	if roomScoped {
		typ = core.EvPrivateRoomError
	}
	return core.ErrorEvent{Type: typ, Message: userMessage(err)}
}
