package orch

import (
	"testing"

	"github.com/dkeye/Nearby/internal/core"
	"github.com/dkeye/Nearby/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sidOf(s string) core.SessionID { return core.SessionID(s) }

func rosterIDs(t *testing.T, ev map[string]any) []string {
	t.Helper()
	users, ok := ev["users"].([]any)
	require.True(t, ok)
	var out []string
	for _, u := range users {
		out = append(out, u.(map[string]any)["id"].(string))
	}
	return out
}

func TestCreateAndJoinRoom(t *testing.T) {
	h := newHarness(t)
	a := h.join("A", "Ann", 37.0, 127.0)
	b := h.join("B", "Bob", 37.0, 127.0)
	h.resetAll()

	require.NoError(t, h.o.CreateRoom("A", "ABC123", nil))
	created := a.ofType("privateRoomJoined")
	require.Len(t, created, 1)
	assert.Equal(t, "ABC123", created[0]["roomCode"])
	assert.Equal(t, []string{"A"}, rosterIDs(t, created[0]))

	require.NoError(t, h.o.JoinRoom("B", "ABC123", nil))
	joined := b.ofType("privateRoomJoined")
	require.Len(t, joined, 1)
	assert.Equal(t, []string{"A", "B"}, rosterIDs(t, joined[0]))

	notice := a.ofType("userJoinedPrivateRoom")
	require.Len(t, notice, 1)
	assert.Equal(t, "B", notice[0]["id"])
	assert.Equal(t, "Bob", notice[0]["username"])

	rooms := h.o.RoomList()
	require.Len(t, rooms, 1)
	assert.Equal(t, 2, rooms[0].MemberCount)
}

func TestRoomRequestErrors(t *testing.T) {
	h := newHarness(t)
	h.connect("U")
	assert.ErrorIs(t, h.o.CreateRoom("U", "ABC123", nil), domain.ErrUnknownConnection)

	h.join("A", "Ann", 37.0, 127.0)
	h.join("B", "Bob", 37.0, 127.0)
	assert.ErrorIs(t, h.o.JoinRoom("A", "ABC123", nil), domain.ErrRoomNotFound)
	assert.ErrorIs(t, h.o.CreateRoom("A", "abc", nil), domain.ErrInvalidCode)
	require.NoError(t, h.o.CreateRoom("A", "ABC123", nil))
	assert.ErrorIs(t, h.o.CreateRoom("B", "ABC123", nil), domain.ErrRoomExists)
	assert.ErrorIs(t, h.o.CreateRoom("A", "XYZ789", nil), domain.ErrAlreadyInRoom)
	assert.ErrorIs(t, h.o.JoinRoom("A", "ABC123", nil), domain.ErrAlreadyInRoom)
}

func TestJoinWithPresenceRegistersFirst(t *testing.T) {
	h := newHarness(t)
	a := h.join("A", "Ann", 37.0, 127.0)
	require.NoError(t, h.o.CreateRoom("A", "ABC123", nil))
	h.resetAll()

	n := h.connect("N")
	p := &Presence{Name: "Newbie", Location: domain.Location{Latitude: 37.0, Longitude: 127.0001}}
	require.NoError(t, h.o.JoinRoom("N", "ABC123", p))

	assert.Equal(t, []string{"nearbyUsers", "privateRoomJoined"}, n.types())
	assert.Len(t, a.ofType("userJoined"), 1)
	assert.Len(t, a.ofType("userJoinedPrivateRoom"), 1)

	u, ok := h.o.Registry.Get("N")
	require.True(t, ok)
	assert.Equal(t, "Newbie", u.Username)
}

func TestLeaveRoom(t *testing.T) {
	h := newHarness(t)
	a := h.join("A", "Ann", 37.0, 127.0)
	b := h.join("B", "Bob", 37.0, 127.0)
	require.NoError(t, h.o.CreateRoom("A", "ABC123", nil))
	require.NoError(t, h.o.JoinRoom("B", "ABC123", nil))
	h.resetAll()

	require.NoError(t, h.o.LeaveRoom("B", "ABC123"))
	assert.Len(t, b.ofType("privateRoomLeft"), 1)
	left := a.ofType("userLeftPrivateRoom")
	require.Len(t, left, 1)
	assert.Equal(t, "B", left[0]["id"])

	h.resetAll()
	require.NoError(t, h.o.LeaveRoom("B", "ABC123"), "second leave is a no-op")
	assert.Empty(t, a.events())
	assert.Empty(t, b.events())

	assert.ErrorIs(t, h.o.LeaveRoom("B", "nope"), domain.ErrInvalidCode)
	require.NoError(t, h.o.Rooms.CheckInvariant())
}

func TestDisconnectLeavesRoom(t *testing.T) {
	h := newHarness(t)
	a := h.join("A", "Ann", 37.0, 127.0)
	h.join("B", "Bob", 50.0, 10.0)
	require.NoError(t, h.o.CreateRoom("A", "ABC123", nil))
	require.NoError(t, h.o.JoinRoom("B", "ABC123", nil))
	h.resetAll()

	h.o.OnDisconnect("B")
	left := a.ofType("userLeftPrivateRoom")
	require.Len(t, left, 1)
	assert.Equal(t, "Bob", left[0]["username"])
	assert.Empty(t, a.ofType("userLeft"), "B was never a neighbor")

	_, ok := h.o.Rooms.RoomOf("B")
	assert.False(t, ok)
}

func TestDeletionVoteDissolvesRoom(t *testing.T) {
	h := newHarness(t)
	names := map[string]string{"A": "Ann", "B": "Bob", "C": "Cat", "D": "Dan"}
	for _, sid := range []string{"A", "B", "C", "D"} {
		h.join(sidOf(sid), names[sid], 37.0, 127.0)
	}
	require.NoError(t, h.o.CreateRoom("A", "ABC123", nil))
	for _, sid := range []string{"B", "C", "D"} {
		require.NoError(t, h.o.JoinRoom(sidOf(sid), "ABC123", nil))
	}
	h.resetAll()

	require.NoError(t, h.o.StartDeletionVote("A", "ABC123"))
	for sid, c := range h.conns {
		started := c.ofType("roomDeletionVoteStarted")
		require.Len(t, started, 1, sid)
		assert.Equal(t, "Ann", started[0]["initiator"])
		assert.Equal(t, "A", started[0]["initiatorId"])
		assert.EqualValues(t, 4, started[0]["totalUsers"])
		assert.EqualValues(t, 2, started[0]["requiredVotes"])
	}
	assert.ErrorIs(t, h.o.StartDeletionVote("B", "ABC123"), domain.ErrVoteAlreadyOpen)

	require.NoError(t, h.o.CastDeletionVote("A", "ABC123", domain.VoteAgree))
	upd := h.conns["D"].ofType("roomDeletionVoteUpdated")
	require.Len(t, upd, 1)
	assert.EqualValues(t, 1, upd[0]["currentVotes"])
	assert.True(t, h.roomExists("ABC123"))

	require.NoError(t, h.o.CastDeletionVote("B", "ABC123", domain.VoteAgree))
	for sid, c := range h.conns {
		assert.Len(t, c.ofType("roomDeletionVotePassed"), 1, sid)
		assert.Len(t, c.ofType("privateRoomLeft"), 1, sid)
	}
	assert.False(t, h.roomExists("ABC123"))
	assert.ErrorIs(t, h.o.JoinRoom("A", "ABC123", nil), domain.ErrRoomNotFound)
	require.NoError(t, h.o.Rooms.CheckInvariant())
}

func TestDeletionVoteCancelledByDisagree(t *testing.T) {
	h := newHarness(t)
	a := h.join("A", "Ann", 37.0, 127.0)
	h.join("B", "Bob", 37.0, 127.0)
	require.NoError(t, h.o.CreateRoom("A", "ABC123", nil))
	require.NoError(t, h.o.JoinRoom("B", "ABC123", nil))
	require.NoError(t, h.o.StartDeletionVote("A", "ABC123"))

	require.NoError(t, h.o.CastDeletionVote("B", "ABC123", domain.VoteDisagree))
	assert.Len(t, a.ofType("roomDeletionVoteCancelled"), 1)
	assert.True(t, h.roomExists("ABC123"))
	assert.ErrorIs(t, h.o.CastDeletionVote("A", "ABC123", domain.VoteAgree), domain.ErrNoOpenVote)
}

func TestInviteFlow(t *testing.T) {
	h := newHarness(t)
	a := h.join("A", "Ann", 37.0, 127.0)
	c := h.join("C", "Carol", 10.0, 10.0)
	require.NoError(t, h.o.CreateRoom("A", "ABC123", nil))
	h.resetAll()

	assert.ErrorIs(t, h.o.Invite("C", "ABC123", "Ann"), domain.ErrNotInRoom)
	assert.ErrorIs(t, h.o.Invite("A", "NOPE00", "Carol"), domain.ErrRoomNotFound)
	assert.ErrorIs(t, h.o.Invite("A", "ABC123", "Nobody"), domain.ErrUserNotFound)

	require.NoError(t, h.o.Invite("A", "ABC123", "Carol"))
	inv := c.ofType("privateRoomInvite")
	require.Len(t, inv, 1)
	assert.Equal(t, "A", inv[0]["inviterId"])
	assert.Equal(t, "Ann", inv[0]["inviterUsername"])

	require.NoError(t, h.o.RespondInvite("C", "ABC123", "A", false))
	rej := a.ofType("privateRoomInviteRejected")
	require.Len(t, rej, 1)
	assert.Equal(t, "Carol", rej[0]["targetUsername"])
	_, ok := h.o.Rooms.RoomOf("C")
	assert.False(t, ok)

	require.NoError(t, h.o.RespondInvite("C", "ABC123", "A", true))
	assert.Len(t, c.ofType("privateRoomJoined"), 1)
	assert.Len(t, a.ofType("userJoinedPrivateRoom"), 1)
}
