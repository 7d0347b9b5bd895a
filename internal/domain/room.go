package domain

import (
	"fmt"
	"regexp"
)

const RoomCodeLen = 6

var roomCodePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

// RoomCode addresses a private room: six characters of [A-Z0-9].
type RoomCode string

func ParseRoomCode(s string) (RoomCode, error) {
	if !roomCodePattern.MatchString(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidCode, s)
	}
	return RoomCode(s), nil
}

type Vote string

const (
	VoteAgree    Vote = "agree"
	VoteDisagree Vote = "disagree"
)
