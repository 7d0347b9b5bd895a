package app

import (
	"testing"
	"time"

	"github.com/dkeye/Nearby/internal/core"
	"github.com/dkeye/Nearby/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roomWith(t *testing.T, code domain.RoomCode, sids ...core.SessionID) *RoomManager {
	t.Helper()
	m := NewRoomManager(time.Hour, 10)
	_, err := m.Create(code, sids[0])
	require.NoError(t, err)
	for _, sid := range sids[1:] {
		_, err := m.Join(code, sid)
		require.NoError(t, err)
	}
	return m
}

func TestRequiredVotes(t *testing.T) {
	for members, want := range map[int]int{1: 1, 2: 1, 3: 2, 4: 2, 5: 3} {
		assert.Equal(t, want, requiredVotes(members), "members=%d", members)
	}
}

func TestVotePassesWithHalf(t *testing.T) {
	m := roomWith(t, "ABC123", "s1", "s2", "s3", "s4")

	res, err := m.StartVote("ABC123", "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Required)
	assert.Equal(t, 4, res.Total)
	assert.Equal(t, core.SessionID("s1"), res.Initiator)

	_, err = m.StartVote("ABC123", "s2")
	assert.ErrorIs(t, err, domain.ErrVoteAlreadyOpen)

	res, err = m.CastVote("ABC123", "s1", domain.VoteAgree)
	require.NoError(t, err)
	assert.Equal(t, VoteOpen, res.Status)
	assert.Equal(t, 1, res.Current)

	res, err = m.CastVote("ABC123", "s1", domain.VoteAgree)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Current, "repeat agree counts once")
	assert.Equal(t, core.SessionID("s1"), res.Initiator, "initiator survives later ballots")

	res, err = m.CastVote("ABC123", "s3", domain.VoteAgree)
	require.NoError(t, err)
	assert.Equal(t, VotePassed, res.Status)
	assert.Len(t, res.Departures, 4)
	assert.Empty(t, res.Departures[3].Remaining)

	assert.False(t, m.exists("ABC123"))
	assert.False(t, m.voteOpen("ABC123"))
	_, ok := m.RoomOf("s2")
	assert.False(t, ok)
	_, err = m.Join("ABC123", "s5")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
	require.NoError(t, m.CheckInvariant())
}

func TestVoteDisagreeCancels(t *testing.T) {
	m := roomWith(t, "ABC123", "s1", "s2", "s3")
	_, err := m.StartVote("ABC123", "s1")
	require.NoError(t, err)
	_, err = m.CastVote("ABC123", "s1", domain.VoteAgree)
	require.NoError(t, err)

	res, err := m.CastVote("ABC123", "s2", domain.VoteDisagree)
	require.NoError(t, err)
	assert.Equal(t, VoteCancelled, res.Status)
	assert.True(t, m.exists("ABC123"))
	assert.False(t, m.voteOpen("ABC123"))

	_, err = m.CastVote("ABC123", "s3", domain.VoteAgree)
	assert.ErrorIs(t, err, domain.ErrNoOpenVote)

	_, err = m.StartVote("ABC123", "s3")
	assert.NoError(t, err, "a new vote may start after a cancel")
}

func TestVoteErrors(t *testing.T) {
	m := roomWith(t, "ABC123", "s1", "s2")

	_, err := m.StartVote("bad", "s1")
	assert.ErrorIs(t, err, domain.ErrInvalidCode)
	_, err = m.StartVote("NOPE00", "s1")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
	_, err = m.StartVote("ABC123", "outsider")
	assert.ErrorIs(t, err, domain.ErrNotInRoom)

	_, err = m.CastVote("ABC123", "s1", domain.VoteAgree)
	assert.ErrorIs(t, err, domain.ErrNoOpenVote)

	_, err = m.StartVote("ABC123", "s1")
	require.NoError(t, err)
	_, err = m.CastVote("ABC123", "s1", "maybe")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = m.CastVote("ABC123", "outsider", domain.VoteAgree)
	assert.ErrorIs(t, err, domain.ErrNotInRoom)
}

func TestVoteKeepsAgreesOfLeavers(t *testing.T) {
	m := roomWith(t, "ABC123", "s1", "s2", "s3", "s4")
	_, err := m.StartVote("ABC123", "s1")
	require.NoError(t, err)
	_, err = m.CastVote("ABC123", "s1", domain.VoteAgree)
	require.NoError(t, err)

	m.LeaveCurrent("s1")

	res, err := m.CastVote("ABC123", "s2", domain.VoteAgree)
	require.NoError(t, err)
	assert.Equal(t, VotePassed, res.Status, "required stays at 2 and s1's agree still counts")
	assert.Len(t, res.Departures, 3)
}

func TestSweepDropsOpenVote(t *testing.T) {
	clk := newFakeClock()
	m := NewRoomManager(time.Hour, 10).WithClock(clk.Now)
	_, err := m.Create("ABC123", "s1")
	require.NoError(t, err)
	_, err = m.StartVote("ABC123", "s1")
	require.NoError(t, err)
	m.LeaveCurrent("s1")

	clk.Advance(61 * time.Minute)
	m.Sweep(clk.Now())
	assert.False(t, m.voteOpen("ABC123"))
}
