package app

import (
	"fmt"

	"github.com/dkeye/Nearby/internal/core"
	"github.com/dkeye/Nearby/internal/domain"
	"github.com/rs/zerolog/log"
)

type VoteStatus int

const (
	VoteOpen VoteStatus = iota
	VotePassed
	VoteCancelled
)

// deletionVote is the open vote of one room. Required is fixed when the vote
// starts; later joins, leaves and disconnects do not touch it or the agree set.
type deletionVote struct {
	agree     map[core.SessionID]struct{}
	required  int
	initiator core.SessionID
}

// Departure is one forced leave caused by a passed vote.
type Departure struct {
	SID       core.SessionID
	Remaining []core.SessionID
}

type VoteResult struct {
	Code       domain.RoomCode
	Status     VoteStatus
	Initiator  core.SessionID
	Current    int
	Required   int
	Total      int
	Members    []core.SessionID
	Departures []Departure
}

func requiredVotes(members int) int { return (members + 1) / 2 }

// StartVote opens a deletion vote on code on behalf of sid.
func (m *RoomManager) StartVote(code domain.RoomCode, sid core.SessionID) (VoteResult, error) {
	if _, err := domain.ParseRoomCode(string(code)); err != nil {
		return VoteResult{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[code]
	if !ok {
		return VoteResult{}, fmt.Errorf("%w: %s", domain.ErrRoomNotFound, code)
	}
	if !room.Has(sid) {
		return VoteResult{}, fmt.Errorf("%w: %s", domain.ErrNotInRoom, code)
	}
	if _, ok := m.votes[code]; ok {
		return VoteResult{}, fmt.Errorf("%w: %s", domain.ErrVoteAlreadyOpen, code)
	}
	v := &deletionVote{
		agree:     make(map[core.SessionID]struct{}),
		required:  requiredVotes(room.MemberCount()),
		initiator: sid,
	}
	m.votes[code] = v
	log.Info().Str("module", "app.votes").Str("room", string(code)).Str("sid", string(sid)).Int("required", v.required).Msg("deletion vote started")
	return VoteResult{
		Code:      code,
		Status:    VoteOpen,
		Initiator: sid,
		Required:  v.required,
		Total:     room.MemberCount(),
		Members:   room.Members(),
	}, nil
}

// CastVote records sid's ballot. A single disagree cancels the vote; reaching
// the required number of agrees dissolves the room.
func (m *RoomManager) CastVote(code domain.RoomCode, sid core.SessionID, ballot domain.Vote) (VoteResult, error) {
	if ballot != domain.VoteAgree && ballot != domain.VoteDisagree {
		return VoteResult{}, fmt.Errorf("%w: vote %q", domain.ErrInvalidInput, ballot)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.votes[code]
	if !ok {
		return VoteResult{}, fmt.Errorf("%w: %s", domain.ErrNoOpenVote, code)
	}
	room, ok := m.rooms[code]
	if !ok || !room.Has(sid) {
		return VoteResult{}, fmt.Errorf("%w: %s", domain.ErrNotInRoom, code)
	}

	res := VoteResult{
		Code:      code,
		Initiator: v.initiator,
		Required:  v.required,
		Total:     room.MemberCount(),
		Members:   room.Members(),
	}

	if ballot == domain.VoteDisagree {
		delete(m.votes, code)
		res.Status = VoteCancelled
		res.Current = len(v.agree)
		log.Info().Str("module", "app.votes").Str("room", string(code)).Str("sid", string(sid)).Msg("deletion vote cancelled")
		return res, nil
	}

	v.agree[sid] = struct{}{}
	res.Current = len(v.agree)
	if res.Current < v.required {
		res.Status = VoteOpen
		return res, nil
	}

	res.Status = VotePassed
	for _, member := range res.Members {
		remaining, _ := m.leaveLocked(member, code)
		res.Departures = append(res.Departures, Departure{SID: member, Remaining: remaining})
	}
	m.deleteLocked(code)
	log.Info().Str("module", "app.votes").Str("room", string(code)).Int("votes", res.Current).Msg("deletion vote passed")
	return res, nil
}
