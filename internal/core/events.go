package core

import "github.com/dkeye/Nearby/internal/domain"

// Server -> client event types.
const (
	EvNearbyUsers         = "nearbyUsers"
	EvUserJoined          = "userJoined"
	EvUserLeft            = "userLeft"
	EvUserLocationUpdated = "userLocationUpdated"
	EvNewMessage          = "newMessage"
	EvMessageSent         = "messageSent"
	EvRecentMessages      = "recentMessages"

	EvPrivateRoomJoined     = "privateRoomJoined"
	EvPrivateRoomLeft       = "privateRoomLeft"
	EvUserJoinedPrivateRoom = "userJoinedPrivateRoom"
	EvUserLeftPrivateRoom   = "userLeftPrivateRoom"
	EvNewPrivateMessage     = "newPrivateMessage"
	EvPrivateMessageSent    = "privateMessageSent"
	EvPrivateRoomInvite     = "privateRoomInvite"
	EvPrivateInviteRejected = "privateRoomInviteRejected"
	EvPrivateRoomError      = "privateRoomError"
	EvError                 = "error"
	EvDeletionVoteStarted   = "roomDeletionVoteStarted"
	EvDeletionVoteUpdated   = "roomDeletionVoteUpdated"
	EvDeletionVotePassed    = "roomDeletionVotePassed"
	EvDeletionVoteCancelled = "roomDeletionVoteCancelled"
	EvWhoAmI                = "whoami"
	EvPong                  = "pong"
)

type NearbyUsersEvent struct {
	Type  string     `json:"type"`
	Users []Neighbor `json:"users"`
}

// PresenceEvent covers userJoined, userLeft and userLocationUpdated.
type PresenceEvent struct {
	Type      string        `json:"type"`
	ID        domain.UserID `json:"id"`
	Username  string        `json:"username"`
	Distance  int           `json:"distance"`
	Latitude  *float64      `json:"latitude,omitempty"`
	Longitude *float64      `json:"longitude,omitempty"`
}

// MessageEvent covers newMessage and messageSent.
type MessageEvent struct {
	Type string `json:"type"`
	domain.Message
}

type RecentMessagesEvent struct {
	Type     string           `json:"type"`
	Messages []domain.Message `json:"messages"`
}

type RoomJoinedEvent struct {
	Type     string          `json:"type"`
	RoomCode domain.RoomCode `json:"roomCode"`
	Users    []MemberDTO     `json:"users"`
}

type RoomLeftEvent struct {
	Type     string          `json:"type"`
	RoomCode domain.RoomCode `json:"roomCode"`
}

// RoomMemberEvent covers userJoinedPrivateRoom and userLeftPrivateRoom.
type RoomMemberEvent struct {
	Type     string          `json:"type"`
	ID       domain.UserID   `json:"id"`
	Username string          `json:"username"`
	RoomCode domain.RoomCode `json:"roomCode"`
}

// PrivateMessageEvent covers newPrivateMessage and privateMessageSent.
type PrivateMessageEvent struct {
	Type string `json:"type"`
	domain.PrivateMessage
}

type InviteEvent struct {
	Type            string          `json:"type"`
	RoomCode        domain.RoomCode `json:"roomCode"`
	InviterID       domain.UserID   `json:"inviterId"`
	InviterUsername string          `json:"inviterUsername"`
}

type InviteRejectedEvent struct {
	Type           string          `json:"type"`
	RoomCode       domain.RoomCode `json:"roomCode"`
	TargetUsername string          `json:"targetUsername"`
}

// ErrorEvent covers error and privateRoomError.
type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type VoteStartedEvent struct {
	Type          string          `json:"type"`
	RoomCode      domain.RoomCode `json:"roomCode"`
	Initiator     string          `json:"initiator"`
	InitiatorID   domain.UserID   `json:"initiatorId"`
	TotalUsers    int             `json:"totalUsers"`
	RequiredVotes int             `json:"requiredVotes"`
}

type VoteUpdatedEvent struct {
	Type          string          `json:"type"`
	RoomCode      domain.RoomCode `json:"roomCode"`
	CurrentVotes  int             `json:"currentVotes"`
	RequiredVotes int             `json:"requiredVotes"`
}

type VotePassedEvent struct {
	Type          string          `json:"type"`
	RoomCode      domain.RoomCode `json:"roomCode"`
	TotalVotes    int             `json:"totalVotes"`
	RequiredVotes int             `json:"requiredVotes"`
}

type VoteCancelledEvent struct {
	Type     string          `json:"type"`
	RoomCode domain.RoomCode `json:"roomCode"`
	Reason   string          `json:"reason"`
}
