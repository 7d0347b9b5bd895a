package signal

import (
	"github.com/dkeye/Nearby/internal/core"
	"github.com/dkeye/Nearby/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleCreateRoom(sid core.SessionID, _ *WsSignalConn, data []byte) error {
	p, err := decode[roomEntryRequest](data)
	if err != nil {
		return err
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", p.RoomCode).Msg("create room")
	return ctl.Orch.CreateRoom(sid, domain.RoomCode(p.RoomCode), p.presence())
}

func (ctl *SignalWSController) handleJoinRoom(sid core.SessionID, _ *WsSignalConn, data []byte) error {
	p, err := decode[roomEntryRequest](data)
	if err != nil {
		return err
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", p.RoomCode).Msg("join room")
	return ctl.Orch.JoinRoom(sid, domain.RoomCode(p.RoomCode), p.presence())
}

func (ctl *SignalWSController) handleSendPrivate(sid core.SessionID, _ *WsSignalConn, data []byte) error {
	p, err := decode[privateMessageRequest](data)
	if err != nil {
		return err
	}
	return ctl.Orch.SendPrivate(sid, domain.RoomCode(p.RoomCode), p.Message)
}

// handleLeaveRoom leaves the room but keeps the socket and presence.
func (ctl *SignalWSController) handleLeaveRoom(sid core.SessionID, _ *WsSignalConn, data []byte) error {
	p, err := decode[roomRequest](data)
	if err != nil {
		return err
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", p.RoomCode).Msg("leave room")
	return ctl.Orch.LeaveRoom(sid, domain.RoomCode(p.RoomCode))
}

func (ctl *SignalWSController) handleStartVote(sid core.SessionID, _ *WsSignalConn, data []byte) error {
	p, err := decode[roomRequest](data)
	if err != nil {
		return err
	}
	return ctl.Orch.StartDeletionVote(sid, domain.RoomCode(p.RoomCode))
}

func (ctl *SignalWSController) handleVote(sid core.SessionID, _ *WsSignalConn, data []byte) error {
	p, err := decode[voteRequest](data)
	if err != nil {
		return err
	}
	return ctl.Orch.CastDeletionVote(sid, domain.RoomCode(p.RoomCode), domain.Vote(p.Vote))
}

func (ctl *SignalWSController) handleInvite(sid core.SessionID, _ *WsSignalConn, data []byte) error {
	p, err := decode[inviteRequest](data)
	if err != nil {
		return err
	}
	return ctl.Orch.Invite(sid, domain.RoomCode(p.RoomCode), p.TargetUsername)
}

func (ctl *SignalWSController) handleRespondInvite(sid core.SessionID, _ *WsSignalConn, data []byte) error {
	p, err := decode[inviteResponseRequest](data)
	if err != nil {
		return err
	}
	return ctl.Orch.RespondInvite(sid, domain.RoomCode(p.RoomCode), core.SessionID(p.InviterID), *p.Accept)
}
