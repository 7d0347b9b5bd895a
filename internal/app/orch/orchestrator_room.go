package orch

import (
	"fmt"
	"slices"

	"github.com/dkeye/Nearby/internal/app"
	"github.com/dkeye/Nearby/internal/core"
	"github.com/dkeye/Nearby/internal/domain"
	"github.com/rs/zerolog/log"
)

// Presence is registration data a room request may carry for a connection
// that has not registered yet.
type Presence struct {
	Name     string
	Location domain.Location
}

func (o *Orchestrator) userLocked(sid core.SessionID) (domain.User, error) {
	user, ok := o.Registry.Get(sid)
	if !ok {
		return domain.User{}, fmt.Errorf("%w: %s", domain.ErrUnknownConnection, sid)
	}
	return user, nil
}

func (o *Orchestrator) ensureRegisteredLocked(sid core.SessionID, p *Presence, out *batch) (domain.User, bool, error) {
	if user, ok := o.Registry.Get(sid); ok {
		return user, false, nil
	}
	if p == nil {
		return domain.User{}, false, fmt.Errorf("%w: %s", domain.ErrUnknownConnection, sid)
	}
	user, err := o.registerLocked(sid, p.Name, p.Location, out)
	if err != nil {
		return domain.User{}, false, err
	}
	return user, true, nil
}

func (o *Orchestrator) rosterLocked(sids []core.SessionID) []core.MemberDTO {
	out := make([]core.MemberDTO, 0, len(sids))
	for _, sid := range sids {
		if u, ok := o.Registry.Get(sid); ok {
			out = append(out, core.MemberDTO{ID: u.ID, Username: u.Username})
		}
	}
	return out
}

// CreateRoom opens code with sid as its first member.
func (o *Orchestrator) CreateRoom(sid core.SessionID, code domain.RoomCode, p *Presence) error {
	var fresh *domain.User
	err := o.run(func(out *batch) error {
		user, registered, err := o.ensureRegisteredLocked(sid, p, out)
		if err != nil {
			return err
		}
		if registered {
			fresh = &user
		}
		roster, err := o.Rooms.Create(code, sid)
		if err != nil {
			return err
		}
		out.add(sid, core.RoomJoinedEvent{Type: core.EvPrivateRoomJoined, RoomCode: code, Users: o.rosterLocked(roster)})
		return nil
	})
	if fresh != nil {
		o.replayHistory(sid, *fresh.Location)
	}
	return err
}

// JoinRoom adds sid to an existing room and introduces it to the members.
func (o *Orchestrator) JoinRoom(sid core.SessionID, code domain.RoomCode, p *Presence) error {
	var fresh *domain.User
	err := o.run(func(out *batch) error {
		user, registered, err := o.ensureRegisteredLocked(sid, p, out)
		if err != nil {
			return err
		}
		if registered {
			fresh = &user
		}
		return o.joinLocked(sid, user, code, out)
	})
	if fresh != nil {
		o.replayHistory(sid, *fresh.Location)
	}
	return err
}

func (o *Orchestrator) joinLocked(sid core.SessionID, user domain.User, code domain.RoomCode, out *batch) error {
	roster, err := o.Rooms.Join(code, sid)
	if err != nil {
		return err
	}
	out.addAll(without(roster, sid), core.RoomMemberEvent{
		Type:     core.EvUserJoinedPrivateRoom,
		ID:       user.ID,
		Username: user.Username,
		RoomCode: code,
	})
	out.add(sid, core.RoomJoinedEvent{Type: core.EvPrivateRoomJoined, RoomCode: code, Users: o.rosterLocked(roster)})
	return nil
}

// LeaveRoom removes sid from code. Leaving a room one is not in succeeds.
func (o *Orchestrator) LeaveRoom(sid core.SessionID, code domain.RoomCode) error {
	if _, err := domain.ParseRoomCode(string(code)); err != nil {
		return err
	}
	return o.run(func(out *batch) error {
		remaining, left := o.Rooms.Leave(sid, code)
		if !left {
			return nil
		}
		user, _ := o.Registry.Get(sid)
		out.addAll(remaining, core.RoomMemberEvent{
			Type:     core.EvUserLeftPrivateRoom,
			ID:       domain.UserID(sid),
			Username: user.Username,
			RoomCode: code,
		})
		out.add(sid, core.RoomLeftEvent{Type: core.EvPrivateRoomLeft, RoomCode: code})
		return nil
	})
}

// StartDeletionVote opens a vote to dissolve code.
func (o *Orchestrator) StartDeletionVote(sid core.SessionID, code domain.RoomCode) error {
	return o.run(func(out *batch) error {
		user, err := o.userLocked(sid)
		if err != nil {
			return err
		}
		res, err := o.Rooms.StartVote(code, sid)
		if err != nil {
			return err
		}
		out.addAll(res.Members, core.VoteStartedEvent{
			Type:          core.EvDeletionVoteStarted,
			RoomCode:      code,
			Initiator:     user.Username,
			InitiatorID:   domain.UserID(res.Initiator),
			TotalUsers:    res.Total,
			RequiredVotes: res.Required,
		})
		return nil
	})
}

// CastDeletionVote records a ballot and broadcasts the outcome to the room.
func (o *Orchestrator) CastDeletionVote(sid core.SessionID, code domain.RoomCode, ballot domain.Vote) error {
	return o.run(func(out *batch) error {
		if _, err := o.userLocked(sid); err != nil {
			return err
		}
		res, err := o.Rooms.CastVote(code, sid, ballot)
		if err != nil {
			return err
		}
		switch res.Status {
		case app.VoteCancelled:
			out.addAll(res.Members, core.VoteCancelledEvent{
				Type:     core.EvDeletionVoteCancelled,
				RoomCode: code,
				Reason:   "cancelled by a disagree vote",
			})
		case app.VoteOpen:
			out.addAll(res.Members, core.VoteUpdatedEvent{
				Type:          core.EvDeletionVoteUpdated,
				RoomCode:      code,
				CurrentVotes:  res.Current,
				RequiredVotes: res.Required,
			})
		case app.VotePassed:
			out.addAll(res.Members, core.VotePassedEvent{
				Type:          core.EvDeletionVotePassed,
				RoomCode:      code,
				TotalVotes:    res.Current,
				RequiredVotes: res.Required,
			})
			for _, d := range res.Departures {
				user, _ := o.Registry.Get(d.SID)
				out.addAll(d.Remaining, core.RoomMemberEvent{
					Type:     core.EvUserLeftPrivateRoom,
					ID:       domain.UserID(d.SID),
					Username: user.Username,
					RoomCode: code,
				})
				out.add(d.SID, core.RoomLeftEvent{Type: core.EvPrivateRoomLeft, RoomCode: code})
			}
			log.Info().Str("module", "orch").Str("room", string(code)).Msg("room dissolved by vote")
		}
		return nil
	})
}

// Invite asks the user named target to join code. Only members may invite.
func (o *Orchestrator) Invite(sid core.SessionID, code domain.RoomCode, target string) error {
	return o.run(func(out *batch) error {
		user, err := o.userLocked(sid)
		if err != nil {
			return err
		}
		members, ok := o.Rooms.Members(code)
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrRoomNotFound, code)
		}
		if !slices.Contains(members, sid) {
			return fmt.Errorf("%w: %s", domain.ErrNotInRoom, code)
		}
		invitee, ok := o.Registry.FindByUsername(target)
		if !ok {
			return fmt.Errorf("%w: %q", domain.ErrUserNotFound, target)
		}
		out.add(core.SessionID(invitee.ID), core.InviteEvent{
			Type:            core.EvPrivateRoomInvite,
			RoomCode:        code,
			InviterID:       user.ID,
			InviterUsername: user.Username,
		})
		return nil
	})
}

// RespondInvite joins code on accept, or tells the inviter about the refusal.
func (o *Orchestrator) RespondInvite(sid core.SessionID, code domain.RoomCode, inviter core.SessionID, accept bool) error {
	return o.run(func(out *batch) error {
		user, err := o.userLocked(sid)
		if err != nil {
			return err
		}
		if accept {
			return o.joinLocked(sid, user, code, out)
		}
		if _, ok := o.Registry.Get(inviter); ok {
			out.add(inviter, core.InviteRejectedEvent{
				Type:           core.EvPrivateInviteRejected,
				RoomCode:       code,
				TargetUsername: user.Username,
			})
		}
		return nil
	})
}

// RoomList returns every room, oldest first.
func (o *Orchestrator) RoomList() []core.RoomInfo {
	rooms := o.Rooms.List()
	slices.SortFunc(rooms, func(a, b core.RoomInfo) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return rooms
}
